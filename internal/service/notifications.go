package service

import (
	"context"
	"log/slog"

	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/repository"
)

// NotificationsLimit — число уведомлений в ленте.
const NotificationsLimit = 20

// NotificationService — лента системных уведомлений.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(notifications repository.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_service")),
	}
}

// Latest возвращает последние NotificationsLimit уведомлений, новые первыми.
func (s *NotificationService) Latest(ctx context.Context) ([]model.Notification, error) {
	items, err := s.notifications.Latest(ctx, NotificationsLimit)
	if err != nil {
		return nil, classify("лента уведомлений", err)
	}
	return items, nil
}

// MarkRead отмечает уведомление прочитанным.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.notifications.MarkRead(ctx, id); err != nil {
		return classify("отметка уведомления", err)
	}
	s.logger.Debug("Уведомление прочитано", slog.String("id", id))
	return nil
}
