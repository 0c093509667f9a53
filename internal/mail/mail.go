// Package mail carries account emails from the API to the mailer process.
// The API publishes Messages to RabbitMQ; cmd/mailer consumes them, renders
// the named template and delivers it over SMTP.
package mail

import (
	"context"
	"log"
)

type Template string

const (
	TemplateActivation    Template = "activation"
	TemplateCredentials   Template = "credentials"
	TemplatePasswordReset Template = "password_reset"
)

// Message is the queued form of an email: recipient, template and its data.
type Message struct {
	To       string            `json:"to"`
	Name     string            `json:"name"`
	Template Template          `json:"template"`
	Data     map[string]string `json:"data"`
}

// Dispatcher hands a message off for delivery.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// LogDispatcher only logs messages. It is used when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) Send(ctx context.Context, msg Message) error {
	log.Printf("INFO [mail.LogDispatcher] %s mail for %s not delivered: no broker configured", msg.Template, msg.To)
	return nil
}
