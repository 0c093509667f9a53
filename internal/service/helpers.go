package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/mail"
	validation "github.com/go-ozzo/ozzo-validation"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Lengths of generated secrets.
const (
	activationCodeLength    = 60
	resetTokenBytes         = 32
	generatedPasswordLength = 10
	minPasswordLength       = 6
	minResetTokenLength     = 64
)

// EventPublisher receives account events after they are committed.
type EventPublisher interface {
	Publish(event domain.AccountEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.AccountEvent) {}

func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(alphanumeric)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate random string: %w", err)
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b), nil
}

func randomHex(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// hashToken is the stored form of a password-reset token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// matches fails unless the value equals other.
func matches(other, message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != other {
			return errors.New(message)
		}
		return nil
	}
}

// dispatch hands msg to the mailer. State is already committed when this
// runs, so failures are logged rather than returned.
func dispatch(ctx context.Context, mailer mail.Dispatcher, msg mail.Message) {
	if err := mailer.Send(ctx, msg); err != nil {
		log.Printf("ERROR [service.dispatch] failed to queue %s mail for %s: %v", msg.Template, msg.To, err)
	}
}

func trimURL(url string) string {
	return strings.TrimRight(url, "/")
}
