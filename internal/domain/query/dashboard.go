package query

import (
	"slices"

	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/model"
)

// DefaultRecentLimit — число последних движений на панели.
const DefaultRecentLimit = 5

// RecentMovement — движение вместе с кодом и предметом экспедиента.
type RecentMovement struct {
	model.Movement
	DocCode    string `json:"docCode"`
	DocSubject string `json:"docSubject"`
}

// Dashboard — ключевые показатели по всей коллекции.
type Dashboard struct {
	Total           int              `json:"total"`
	InProcess       int              `json:"inProcess"`
	Archived        int              `json:"archived"`
	Urgent          int              `json:"urgent"`
	ByStatus        []Count          `json:"byStatus"`
	ByArea          []Count          `json:"byArea"`
	RecentMovements []RecentMovement `json:"recentMovements"`
}

// DashboardKPIs считает показатели панели и limit самых свежих движений.
func DashboardKPIs(records []model.CaseRecord, areas []area.Area, limit int) Dashboard {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	d := Dashboard{Total: len(records)}
	recent := make([]RecentMovement, 0)

	for _, r := range records {
		switch r.Status {
		case model.StatusInProcess:
			d.InProcess++
		case model.StatusArchived:
			d.Archived++
		}
		if r.Priority.Elevated() {
			d.Urgent++
		}
		for _, m := range r.Movements {
			recent = append(recent, RecentMovement{Movement: m, DocCode: r.Code, DocSubject: r.Subject})
		}
	}

	slices.SortStableFunc(recent, func(a, b RecentMovement) int {
		return b.Date.Compare(a.Date)
	})
	if len(recent) > limit {
		recent = recent[:limit]
	}

	d.ByStatus = countByStatus(records)
	d.ByArea = countByArea(records, areas)
	d.RecentMovements = recent
	return d
}
