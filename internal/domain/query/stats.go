package query

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/model"
)

// ErrDayWithoutMonth — день задан без месяца.
var ErrDayWithoutMonth = errors.New("день можно выбрать только вместе с месяцем")

// Window — временное окно статистики. Month и Day нумеруются с 1;
// 0 означает «все».
type Window struct {
	Year     int            `json:"year"`
	Month    int            `json:"month,omitempty"`
	Day      int            `json:"day,omitempty"`
	Location *time.Location `json:"-"`
}

// ParseWindow разбирает параметры окна. month и day принимают ALL
// (или пустую строку) как «все».
func ParseWindow(year, month, day string, loc *time.Location) (Window, error) {
	w := Window{Location: loc}

	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 1900 || y > 9999 {
		return Window{}, fmt.Errorf("некорректный год %q", year)
	}
	w.Year = y

	if !IsAll(month) {
		m, err := strconv.Atoi(strings.TrimSpace(month))
		if err != nil || m < 1 || m > 12 {
			return Window{}, fmt.Errorf("некорректный месяц %q, допустимо 1-12 или ALL", month)
		}
		w.Month = m
	}

	if !IsAll(day) {
		if w.Month == 0 {
			return Window{}, ErrDayWithoutMonth
		}
		d, err := strconv.Atoi(strings.TrimSpace(day))
		if err != nil || d < 1 || d > w.daysInMonth() {
			return Window{}, fmt.Errorf("некорректный день %q для %04d-%02d", day, w.Year, w.Month)
		}
		w.Day = d
	}
	return w, nil
}

func (w Window) loc() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

func (w Window) daysInMonth() int {
	return time.Date(w.Year, time.Month(w.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains сообщает, попадает ли момент t в окно.
func (w Window) Contains(t time.Time) bool {
	t = t.In(w.loc())
	if t.Year() != w.Year {
		return false
	}
	if w.Month != 0 && int(t.Month()) != w.Month {
		return false
	}
	if w.Day != 0 && t.Day() != w.Day {
		return false
	}
	return true
}

// IsExit — движение считается выходом, если это деривация или архивирование.
func IsExit(m model.Movement) bool {
	return m.Action == model.ActionDerive || m.Action == model.ActionArchive
}

// Bucket — точка графика «входы/выходы». Label — номер месяца или дня.
type Bucket struct {
	Label   int `json:"label"`
	Entries int `json:"entries"`
	Exits   int `json:"exits"`
}

// Count — количество по ключу (статус, приоритет, область).
type Count struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Count int    `json:"count"`
}

// Stats — результат TimeWindowStats.
type Stats struct {
	Window       Window             `json:"window"`
	TotalEntries int                `json:"totalEntries"`
	TotalExits   int                `json:"totalExits"`
	Entries      []model.CaseRecord `json:"entries"`
	Exits        []model.Movement   `json:"exits"`
	Buckets      []Bucket           `json:"buckets"`
	InProcess    int                `json:"inProcess"`
	Archived     int                `json:"archived"`
	Urgent       int                `json:"urgent"`
	ByArea       []Count            `json:"byArea"`
	ByStatus     []Count            `json:"byStatus"`
	ByPriority   []Count            `json:"byPriority"`
}

// TimeWindowStats считает входы (экспедиенты, зарегистрированные в окне)
// и выходы (движения «Derivación»/«Archivado» в окне) по всем записям.
//
// При Month=0 график строится по 12 месяцам года, иначе по дням месяца.
// Выбранный день сужает итоги, но не график.
func TimeWindowStats(records []model.CaseRecord, w Window, areas []area.Area) Stats {
	st := Stats{
		Window:  w,
		Entries: make([]model.CaseRecord, 0),
		Exits:   make([]model.Movement, 0),
	}

	for _, r := range records {
		if w.Contains(r.RegisterDate) {
			st.Entries = append(st.Entries, r)
		}
		for _, m := range r.Movements {
			if IsExit(m) && w.Contains(m.Date) {
				st.Exits = append(st.Exits, m)
			}
		}
	}
	st.TotalEntries = len(st.Entries)
	st.TotalExits = len(st.Exits)

	for _, r := range st.Entries {
		switch r.Status {
		case model.StatusInProcess:
			st.InProcess++
		case model.StatusArchived:
			st.Archived++
		}
		if r.Priority.Elevated() {
			st.Urgent++
		}
	}

	st.Buckets = buckets(records, w)
	st.ByArea = countByArea(st.Entries, areas)
	st.ByStatus = countByStatus(st.Entries)
	st.ByPriority = countByPriority(st.Entries)
	return st
}

// buckets раскладывает входы и выходы по месяцам (Month=0) или дням месяца.
func buckets(records []model.CaseRecord, w Window) []Bucket {
	scope := Window{Year: w.Year, Month: w.Month, Location: w.Location}

	n := 12
	if w.Month != 0 {
		n = w.daysInMonth()
	}
	out := make([]Bucket, n)
	for i := range out {
		out[i].Label = i + 1
	}

	index := func(t time.Time) int {
		t = t.In(scope.loc())
		if scope.Month == 0 {
			return int(t.Month()) - 1
		}
		return t.Day() - 1
	}

	for _, r := range records {
		if scope.Contains(r.RegisterDate) {
			out[index(r.RegisterDate)].Entries++
		}
		for _, m := range r.Movements {
			if IsExit(m) && scope.Contains(m.Date) {
				out[index(m.Date)].Exits++
			}
		}
	}
	return out
}

// countByArea — нагрузка по областям справочника, по убыванию.
func countByArea(records []model.CaseRecord, areas []area.Area) []Count {
	counts := make(map[string]int, len(areas))
	for _, r := range records {
		counts[r.CurrentAreaID]++
	}
	out := make([]Count, 0, len(areas))
	for _, a := range areas {
		out = append(out, Count{Key: a.ID, Label: a.Name, Count: counts[a.ID]})
	}
	slices.SortStableFunc(out, func(a, b Count) int { return b.Count - a.Count })
	return out
}

func countByStatus(records []model.CaseRecord) []Count {
	counts := make(map[model.Status]int)
	for _, r := range records {
		counts[r.Status]++
	}
	out := make([]Count, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		out = append(out, Count{Key: string(s), Count: counts[s]})
	}
	return out
}

func countByPriority(records []model.CaseRecord) []Count {
	counts := make(map[model.Priority]int)
	for _, r := range records {
		counts[r.Priority]++
	}
	out := make([]Count, 0, len(model.Priorities))
	for _, p := range model.Priorities {
		out = append(out, Count{Key: string(p), Count: counts[p]})
	}
	return out
}
