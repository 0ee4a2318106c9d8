// Пакет area — справочник организационных подразделений (областей),
// между которыми перемещаются экспедиенты.
package area

import (
	"fmt"
	"strings"
)

// External — условная область-источник «вне системы».
// Допустима только как origin первичного движения, в справочник не входит.
const External = "EXTERNO"

// DefaultIntake — область приёма новых документов по умолчанию.
const DefaultIntake = "MESA"

// Area — организационное подразделение.
type Area struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// defaultAreas — подразделения DREM Apurímac.
var defaultAreas = []Area{
	{ID: "DIRECCION", Name: "Dirección Regional"},
	{ID: "ADMIN", Name: "Oficina de Administración"},
	{ID: "LEGAL", Name: "Asesoría Jurídica"},
	{ID: "MINERIA", Name: "Dirección de Minería"},
	{ID: "ENERGIA", Name: "Dirección de Energía"},
	{ID: "AMBIENTAL", Name: "Asuntos Ambientales"},
	{ID: "MESA", Name: "Mesa de Partes"},
}

// Directory — неизменяемый справочник областей.
// Безопасен для конкурентного чтения: после создания не модифицируется.
type Directory struct {
	areas []Area
	byID  map[string]Area
}

// New создаёт справочник из списка областей.
// Пустые и повторяющиеся идентификаторы отклоняются.
func New(areas []Area) (*Directory, error) {
	d := &Directory{
		areas: make([]Area, 0, len(areas)),
		byID:  make(map[string]Area, len(areas)),
	}
	for _, a := range areas {
		if strings.TrimSpace(a.ID) == "" {
			return nil, fmt.Errorf("пустой идентификатор области (name=%q)", a.Name)
		}
		if a.ID == External {
			return nil, fmt.Errorf("идентификатор %q зарезервирован", External)
		}
		if _, dup := d.byID[a.ID]; dup {
			return nil, fmt.Errorf("повторяющийся идентификатор области %q", a.ID)
		}
		d.areas = append(d.areas, a)
		d.byID[a.ID] = a
	}
	return d, nil
}

// Default возвращает стандартный справочник DREM.
func Default() *Directory {
	d, err := New(defaultAreas)
	if err != nil {
		panic(err)
	}
	return d
}

// All возвращает копию списка областей в исходном порядке.
func (d *Directory) All() []Area {
	out := make([]Area, len(d.areas))
	copy(out, d.areas)
	return out
}

// Lookup ищет область по идентификатору.
func (d *Directory) Lookup(id string) (Area, bool) {
	a, ok := d.byID[id]
	return a, ok
}

// Contains сообщает, входит ли идентификатор в справочник.
func (d *Directory) Contains(id string) bool {
	_, ok := d.byID[id]
	return ok
}

// Name возвращает отображаемое имя области.
// Для неизвестного идентификатора возвращается сам идентификатор.
func (d *Directory) Name(id string) string {
	if id == External {
		return "Externo"
	}
	if a, ok := d.byID[id]; ok {
		return a.Name
	}
	return id
}
