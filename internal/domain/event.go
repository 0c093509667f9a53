package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountEventType string

const (
	EventUserOnline      AccountEventType = "user.online"
	EventUserOffline     AccountEventType = "user.offline"
	EventUserDeactivated AccountEventType = "user.deactivated"
	EventUserReactivated AccountEventType = "user.reactivated"
	EventUserDeleted     AccountEventType = "user.deleted"
)

// AccountEvent is emitted after a lifecycle change has been committed.
type AccountEvent struct {
	Type   AccountEventType `json:"type"`
	UserID uuid.UUID        `json:"userId"`
	Email  string           `json:"email"`
	At     time.Time        `json:"at"`
}

func NewAccountEvent(eventType AccountEventType, user *User, at time.Time) AccountEvent {
	return AccountEvent{
		Type:   eventType,
		UserID: user.ID,
		Email:  user.Email,
		At:     at,
	}
}
