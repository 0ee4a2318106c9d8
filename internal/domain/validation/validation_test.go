package validation

import (
	"fmt"
	"testing"
)

type sample struct {
	Name  string  `json:"name" validate:"notblank"`
	RUC   string  `json:"ruc" validate:"ruc"`
	Email string  `json:"email,omitempty" validate:"omitempty,email"`
	Link  *string `json:"link,omitempty" validate:"omitnil,optionalurl"`
}

func ptr(s string) *string { return &s }

func TestStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name       string
		input      sample
		wantFields []string
	}{
		{"валидная запись", sample{Name: "ACME", RUC: "20100123456"}, nil},
		{"ruc пустой допустим", sample{Name: "ACME"}, nil},
		{"пустое имя", sample{Name: "  ", RUC: ""}, []string{"name"}},
		{"короткий ruc", sample{Name: "ACME", RUC: "12345"}, []string{"ruc"}},
		{"ruc с буквами", sample{Name: "ACME", RUC: "2010012345A"}, []string{"ruc"}},
		{"несколько ошибок", sample{RUC: "1", Email: "bad"}, []string{"name", "ruc", "email"}},
		{"пустая ссылка допустима", sample{Name: "ACME", Link: ptr("")}, nil},
		{"корректная ссылка", sample{Name: "ACME", Link: ptr("https://drem.gob.pe/doc")}, nil},
		{"некорректная ссылка", sample{Name: "ACME", Link: ptr("not a url")}, []string{"link"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Struct() = %v, ожидается nil", err)
				}
				return
			}

			ve, ok := As(err)
			if !ok {
				t.Fatalf("Struct() = %v, ожидается *Error", err)
			}
			if len(ve.Fields) != len(tt.wantFields) {
				t.Fatalf("Fields = %+v, ожидается %v", ve.Fields, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if !ve.Has(f) {
					t.Errorf("нет ошибки для поля %q: %+v", f, ve.Fields)
				}
			}
		})
	}
}

func TestFields(t *testing.T) {
	if err := Fields(); err != nil {
		t.Errorf("Fields() = %v, ожидается nil", err)
	}

	err := fmt.Errorf("обёртка: %w", Fields(FieldError{Field: "ruc", Reason: "x"}))
	ve, ok := As(err)
	if !ok || !ve.Has("ruc") {
		t.Errorf("As() не извлёк *Error из %v", err)
	}
}

func TestValidRUC(t *testing.T) {
	for ruc, want := range map[string]bool{
		"":             true,
		"20100123456":  true,
		"2010012345":   false,
		"201001234567": false,
		"20100 23456":  false,
	} {
		if got := ValidRUC(ruc); got != want {
			t.Errorf("ValidRUC(%q) = %v, ожидается %v", ruc, got, want)
		}
	}
}
