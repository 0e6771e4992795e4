package notifications

import (
	"context"
	"errors"
	"testing"
)

type fakeStore struct {
	created      []string
	emailEnabled bool
	emailFrom    string
	userEmail    string
	emailLookup  error
}

func (f *fakeStore) CreateNotification(ctx context.Context, userID, ntype, title, body string) error {
	f.created = append(f.created, title)
	return nil
}

func (f *fakeStore) UserEmail(ctx context.Context, userID string) (string, error) {
	return f.userEmail, f.emailLookup
}

func (f *fakeStore) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return nil, nil
}

func (f *fakeStore) CountNotifications(ctx context.Context, userID string) (int, error) {
	return len(f.created), nil
}

func (f *fakeStore) MarkRead(ctx context.Context, userID, notificationID string) error {
	return nil
}

func (f *fakeStore) EmailSettings(ctx context.Context) (bool, string, error) {
	return f.emailEnabled, f.emailFrom, nil
}

func (f *fakeStore) UpdateSettings(ctx context.Context, enabled bool, from string) error {
	f.emailEnabled, f.emailFrom = enabled, from
	return nil
}

type fakeMailer struct {
	sent []string
	from string
	fail error
}

func (f *fakeMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if f.fail != nil {
		return f.fail
	}
	f.from = from
	f.sent = append(f.sent, to)
	return nil
}

func TestCreateStoresWithoutMailer(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, nil)

	if err := svc.Create(context.Background(), "u1", "payroll", "Payslip ready", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one stored notification, got %d", len(store.created))
	}
}

func TestCreateMirrorsEmailWhenEnabled(t *testing.T) {
	store := &fakeStore{emailEnabled: true, emailFrom: "hr@corp.test", userEmail: "ann@corp.test"}
	mailer := &fakeMailer{}
	svc := New(store, mailer)

	if err := svc.Create(context.Background(), "u1", "payroll", "Payslip ready", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "ann@corp.test" {
		t.Fatalf("expected one email to ann@corp.test, got %v", mailer.sent)
	}
	if mailer.from != "hr@corp.test" {
		t.Fatalf("expected configured sender, got %q", mailer.from)
	}
}

func TestCreateSkipsEmailWhenDisabled(t *testing.T) {
	store := &fakeStore{emailEnabled: false, userEmail: "ann@corp.test"}
	mailer := &fakeMailer{}
	svc := New(store, mailer)

	if err := svc.Create(context.Background(), "u1", "payroll", "Payslip ready", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no email while disabled, got %v", mailer.sent)
	}
}

func TestCreateFallsBackToDefaultSender(t *testing.T) {
	store := &fakeStore{emailEnabled: true, userEmail: "ann@corp.test"}
	mailer := &fakeMailer{}
	svc := New(store, mailer)

	if err := svc.Create(context.Background(), "u1", "payroll", "Payslip ready", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mailer.from != svc.DefaultFrom {
		t.Fatalf("expected default sender %q, got %q", svc.DefaultFrom, mailer.from)
	}
}

func TestCreateSurvivesMailerFailure(t *testing.T) {
	store := &fakeStore{emailEnabled: true, userEmail: "ann@corp.test"}
	mailer := &fakeMailer{fail: errors.New("smtp down")}
	svc := New(store, mailer)

	if err := svc.Create(context.Background(), "u1", "payroll", "Payslip ready", "body"); err != nil {
		t.Fatalf("stored notification must win even when email fails: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected stored notification, got %d", len(store.created))
	}
}

func TestEmailNoopWhenDisabled(t *testing.T) {
	store := &fakeStore{emailEnabled: false}
	mailer := &fakeMailer{}
	svc := New(store, mailer)

	if err := svc.Email(context.Background(), "ann@corp.test", "subject", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no email while disabled, got %v", mailer.sent)
	}
}
