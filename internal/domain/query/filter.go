// Пакет query — представления над коллекцией экспедиентов: входящие,
// полнотекстовый поиск, фильтры и статистика по временным окнам.
//
// Функции не изменяют входной срез и сохраняют порядок записей.
package query

import (
	"slices"
	"strings"

	"github.com/drem-apurimac/tramite/internal/domain/model"
)

// FilterAll — значение фильтра «без ограничения».
const FilterAll = "ALL"

// legacyAll — то же значение в исходном интерфейсе.
const legacyAll = "TODOS"

// IsAll сообщает, означает ли значение фильтра «все».
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, FilterAll) || strings.EqualFold(v, legacyAll)
}

// Inbox исключает архивные экспедиенты и, если priority не ALL,
// оставляет только записи с этим приоритетом.
func Inbox(records []model.CaseRecord, priority string) []model.CaseRecord {
	all := IsAll(priority)
	out := make([]model.CaseRecord, 0, len(records))
	for _, r := range records {
		if r.Status == model.StatusArchived {
			continue
		}
		if !all && string(r.Priority) != priority {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Search — регистронезависимый поиск подстроки по code, resolutionNumber,
// subject, administrado, ruc, province, district и type.
// Пустой запрос совпадает со всеми записями.
func Search(records []model.CaseRecord, q string) []model.CaseRecord {
	term := strings.ToLower(strings.TrimSpace(q))
	out := make([]model.CaseRecord, 0, len(records))
	for _, r := range records {
		if term == "" || matches(r, term) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r model.CaseRecord, term string) bool {
	for _, f := range [...]string{
		r.Code, r.ResolutionNumber, r.Subject, r.Administrado,
		r.RUC, r.Province, r.District, r.Type,
	} {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// FilterByStatusAndYear — точное совпадение статуса и года.
// Пустое значение или ALL отключает соответствующий фильтр.
func FilterByStatusAndYear(records []model.CaseRecord, status model.Status, year string) []model.CaseRecord {
	anyStatus := IsAll(string(status))
	anyYear := IsAll(year)
	out := make([]model.CaseRecord, 0, len(records))
	for _, r := range records {
		if !anyStatus && r.Status != status {
			continue
		}
		if !anyYear && r.Year != year {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Criteria — параметры списка экспедиентов.
type Criteria struct {
	Query  string
	Status model.Status
	Year   string
}

// Apply комбинирует поиск и фильтры статуса/года по AND.
func Apply(records []model.CaseRecord, c Criteria) []model.CaseRecord {
	return Search(FilterByStatusAndYear(records, c.Status, c.Year), c.Query)
}

// Years возвращает различные значения года по убыванию.
func Years(records []model.CaseRecord) []string {
	seen := make(map[string]bool)
	years := make([]string, 0)
	for _, r := range records {
		if r.Year != "" && !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	slices.Sort(years)
	slices.Reverse(years)
	return years
}

// Paginate возвращает окно [offset, offset+limit) и общее число записей.
func Paginate[T any](items []T, limit, offset int) ([]T, int) {
	total := len(items)
	if offset >= total {
		return []T{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total
}
