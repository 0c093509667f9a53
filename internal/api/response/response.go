// Package response writes the JSON envelope shared by every endpoint:
// {"status":"success","message":...,"data":...} on success and
// {"status":"error","message":...,"errors":[...]} on failure.
package response

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dom/account-api/internal/service"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Envelope struct {
	Status  string               `json:"status"`
	Message string               `json:"message,omitempty"`
	Data    interface{}          `json:"data,omitempty"`
	Errors  []service.FieldError `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR [response.JSON] failed to encode response: %v", err)
	}
}

func Success(w http.ResponseWriter, status int, message string, data interface{}) {
	JSON(w, status, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Status: StatusError, Message: message})
}

// Error renders err by its kind. Internal errors are logged under op and the
// client only sees a generic message.
func Error(w http.ResponseWriter, op string, err error) {
	status := StatusFor(service.KindOf(err))
	if status == http.StatusInternalServerError {
		log.Printf("ERROR [%s] %v", op, err)
		Fail(w, status, "Internal server error")
		return
	}

	env := Envelope{Status: StatusError, Message: err.Error()}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		env.Message = "The given data was invalid"
		env.Errors = verr.Fields
	}
	JSON(w, status, env)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind error) int {
	switch kind {
	case service.ErrValidation:
		return http.StatusBadRequest
	case service.ErrUnauthorized:
		return http.StatusUnauthorized
	case service.ErrForbidden:
		return http.StatusForbidden
	case service.ErrNotFound:
		return http.StatusNotFound
	case service.ErrDuplicateEmail, service.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
