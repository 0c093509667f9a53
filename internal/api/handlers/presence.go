package handlers

import (
	"log"
	"net/http"

	"github.com/dom/account-api/internal/api/response"
	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/service"
	"github.com/dom/account-api/internal/websocket"
	ws "github.com/gorilla/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PresenceHandler streams account events to administrators. Browsers cannot
// set headers on a websocket handshake, so the token comes from ?token=.
type PresenceHandler struct {
	hub    *websocket.Hub
	tokens *service.TokenService
	access *service.AccessService
}

func NewPresenceHandler(hub *websocket.Hub, tokens *service.TokenService, access *service.AccessService) *PresenceHandler {
	return &PresenceHandler{
		hub:    hub,
		tokens: tokens,
		access: access,
	}
}

func (h *PresenceHandler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tokens.Authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		response.Error(w, "handlers.PresenceHandler.Handle", err)
		return
	}
	if err := h.access.Authorize(r.Context(), userID, domain.PermissionAdmin); err != nil {
		response.Error(w, "handlers.PresenceHandler.Handle", err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR [handlers.PresenceHandler.Handle] upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
