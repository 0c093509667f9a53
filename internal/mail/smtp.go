package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/dom/account-api/internal/config"
)

// SMTPSender renders messages and delivers them through an SMTP relay.
type SMTPSender struct {
	addr     string
	from     string
	auth     smtp.Auth
	renderer *Renderer
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg *config.Config, renderer *Renderer) *SMTPSender {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPSender{
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		from:     cfg.MailFrom,
		auth:     auth,
		renderer: renderer,
		send:     smtp.SendMail,
	}
}

// Deliver satisfies Handler so the sender can be plugged into a Consumer.
func (s *SMTPSender) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := s.renderer.Render(msg)
	if err != nil {
		return err
	}
	if err := s.send(s.addr, s.auth, s.from, []string{msg.To}, s.compose(msg.To, subject, body)); err != nil {
		return fmt.Errorf("send %s mail to %s: %w", msg.Template, msg.To, err)
	}
	return nil
}

func (s *SMTPSender) compose(to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
