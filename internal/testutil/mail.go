package testutil

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/mail"
)

// MailRecorder is a mail.Dispatcher that keeps every message in memory.
// Setting Err makes Send fail after recording.
type MailRecorder struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

func NewMailRecorder() *MailRecorder {
	return &MailRecorder{}
}

func (m *MailRecorder) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.Err
}

// Messages returns a copy of everything sent so far
func (m *MailRecorder) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// Last returns the most recent message of template sent to email
func (m *MailRecorder) Last(email string, template mail.Template) (mail.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = domain.NormalizeEmail(email)
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.To == email && msg.Template == template {
			return msg, true
		}
	}
	return mail.Message{}, false
}

// ActivationCode extracts the code from the last activation mail sent to email
func (m *MailRecorder) ActivationCode(t *testing.T, email string) string {
	t.Helper()

	msg, ok := m.Last(email, mail.TemplateActivation)
	if !ok {
		t.Fatalf("no activation mail sent to %s", email)
	}
	link := msg.Data["link"]
	return link[strings.LastIndex(link, "/")+1:]
}

// ResetToken extracts the token from the last password reset mail sent to email
func (m *MailRecorder) ResetToken(t *testing.T, email string) string {
	t.Helper()

	msg, ok := m.Last(email, mail.TemplatePasswordReset)
	if !ok {
		t.Fatalf("no password reset mail sent to %s", email)
	}
	u, err := url.Parse(msg.Data["link"])
	if err != nil {
		t.Fatalf("failed to parse reset link: %v", err)
	}
	return u.Query().Get("token")
}

// EventRecorder is a service.EventPublisher that keeps every event.
type EventRecorder struct {
	mu     sync.Mutex
	events []domain.AccountEvent
}

func (r *EventRecorder) Publish(event domain.AccountEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Types returns the recorded event types in order
func (r *EventRecorder) Types() []domain.AccountEventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]domain.AccountEventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}
