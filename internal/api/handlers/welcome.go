package handlers

import (
	"fmt"
	"net/http"

	"github.com/dom/account-api/internal/api/response"
)

func Welcome(appName string) http.HandlerFunc {
	message := fmt.Sprintf("Welcome to %s API", appName)
	return func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, message, nil)
	}
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}
