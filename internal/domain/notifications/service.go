package notifications

import (
	"context"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

// Create stores the in-app notification and, when email delivery is
// switched on, mirrors it to the user's inbox. Email failures are logged
// and swallowed: the stored notification is the system of record.
func (s *Service) Create(ctx context.Context, userID, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, userID, ntype, title, body); err != nil {
		return err
	}

	if s.Mailer == nil {
		return nil
	}

	enabled, from := s.emailSettings(ctx)
	if !enabled {
		return nil
	}
	if from == "" {
		from = s.DefaultFrom
	}

	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		zap.L().Warn("notification email lookup failed", zap.Error(err))
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, from, email, title, body); err != nil {
		zap.L().Warn("notification email send failed", zap.Error(err))
	}
	return nil
}

// Email sends a standalone message with no in-app counterpart, such as a
// password reset token. It is a no-op while email delivery is disabled.
func (s *Service) Email(ctx context.Context, to, subject, body string) error {
	if s.Mailer == nil {
		return nil
	}
	enabled, from := s.emailSettings(ctx)
	if !enabled {
		return nil
	}
	if from == "" {
		from = s.DefaultFrom
	}
	return s.Mailer.Send(ctx, from, to, subject, body)
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.store.CountNotifications(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

func (s *Service) emailSettings(ctx context.Context) (bool, string) {
	enabled, from, err := s.store.EmailSettings(ctx)
	if err != nil {
		return false, ""
	}
	return enabled, from
}

func (s *Service) GetSettings(ctx context.Context) (bool, string, error) {
	return s.store.EmailSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, enabled bool, from string) error {
	return s.store.UpdateSettings(ctx, enabled, from)
}
