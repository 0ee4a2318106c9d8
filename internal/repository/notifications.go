package repository

import (
	"cmp"
	"context"
	"slices"

	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/gateway"
)

// NotificationRepository — коллекция notifications.
type NotificationRepository interface {
	// Latest возвращает до limit уведомлений, новые первыми.
	Latest(ctx context.Context, limit int) ([]model.Notification, error)
	Add(ctx context.Context, n model.Notification) error
	// MarkRead отмечает уведомление прочитанным. Если не найдено — ErrNotFound.
	MarkRead(ctx context.Context, id string) error
}

type notificationRepo struct {
	c collection[model.Notification]
}

// NewNotificationRepository создаёт репозиторий уведомлений.
func NewNotificationRepository(gw gateway.Gateway) NotificationRepository {
	return &notificationRepo{c: collection[model.Notification]{gw: gw, name: gateway.CollectionNotifications}}
}

func (r *notificationRepo) Latest(ctx context.Context, limit int) ([]model.Notification, error) {
	items, err := r.c.list(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b model.Notification) int {
		return cmp.Compare(b.Date.UnixNano(), a.Date.UnixNano())
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *notificationRepo) Add(ctx context.Context, n model.Notification) error {
	return r.c.put(ctx, n.ID, n, false)
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string) error {
	if _, err := r.c.get(ctx, id); err != nil {
		return err
	}
	return r.c.put(ctx, id, map[string]bool{"read": true}, true)
}
