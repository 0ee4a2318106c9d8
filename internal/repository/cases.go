package repository

import (
	"context"

	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/gateway"
)

// CaseRepository — коллекция documents (экспедиенты с журналом движений).
type CaseRepository interface {
	// List возвращает все экспедиенты в порядке регистрации.
	List(ctx context.Context) ([]model.CaseRecord, error)
	// Get возвращает экспедиент по id. Если не найден — ErrNotFound.
	Get(ctx context.Context, id string) (model.CaseRecord, error)
	// Save записывает экспедиент целиком (журнал включительно).
	Save(ctx context.Context, rec model.CaseRecord) error
	// Delete удаляет экспедиент безвозвратно.
	Delete(ctx context.Context, id string) error
}

type caseRepo struct {
	c collection[model.CaseRecord]
}

// NewCaseRepository создаёт репозиторий экспедиентов.
func NewCaseRepository(gw gateway.Gateway) CaseRepository {
	return &caseRepo{c: collection[model.CaseRecord]{gw: gw, name: gateway.CollectionDocuments}}
}

func (r *caseRepo) List(ctx context.Context) ([]model.CaseRecord, error) {
	return r.c.list(ctx)
}

func (r *caseRepo) Get(ctx context.Context, id string) (model.CaseRecord, error) {
	return r.c.get(ctx, id)
}

func (r *caseRepo) Save(ctx context.Context, rec model.CaseRecord) error {
	if rec.Movements == nil {
		rec.Movements = []model.Movement{}
	}
	return r.c.put(ctx, rec.ID, rec, false)
}

func (r *caseRepo) Delete(ctx context.Context, id string) error {
	return r.c.remove(ctx, id)
}
