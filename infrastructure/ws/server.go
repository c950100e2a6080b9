// Package ws exposes the realtime layer over HTTP: a websocket upgrade
// endpoint for the persistent full-duplex channel and a plain
// request/response endpoint for history pulls.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"teamboard/auth"
	"teamboard/domain"
	"teamboard/services"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type Server struct {
	log        *slog.Logger
	chat       services.IChatService
	secret     []byte
	bufferSize int
	upgrader   websocket.Upgrader
}

// NewServer builds the HTTP surface. An empty allowedOrigin accepts any
// Origin header, for deployments where the dashboard fronts this service
// behind its own origin checks; otherwise the handshake only upgrades
// requests from that exact origin.
func NewServer(log *slog.Logger, chat services.IChatService, secret []byte, bufferSize int, allowedOrigin string) *Server {
	return &Server{
		log:        log,
		chat:       chat,
		secret:     secret,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return allowedOrigin == "" || r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleSocket)
	router.HandleFunc("/api/history/{conversation}", s.handleHistory).Methods(http.MethodGet)
	return router
}

// authenticate verifies the signed credential presented at handshake time,
// from the Authorization header or, for browser websocket clients that
// cannot set headers, the token query parameter.
func (s *Server) authenticate(r *http.Request) (*auth.Claims, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return auth.ValidateToken(s.secret, token)
}

// handleSocket refuses the connection before any registry interaction when
// the credential is absent or invalid, then upgrades and runs the
// connection's read loop until transport loss.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	session := newConnection(s.log, s.chat, claims.Identity, s.bufferSize)
	session.run(r.Context(), conn)
}

type historyResponse struct {
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Content        string    `json:"content"`
	PersistentID   string    `json:"persistent_id"`
	Timestamp      time.Time `json:"timestamp"`
	Read           bool      `json:"read"`
}

// handleHistory serves the pull-on-reconnect path: after an outage the
// client refetches the full conversation instead of relying on buffered
// live events.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r); err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conversation := mux.Vars(r)["conversation"]
	messages, err := s.chat.History(conversation)
	if err != nil {
		s.log.Error("History fetch failed", "conversation", conversation, "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	response := lo.Map(messages, func(m domain.Message, _ int) historyResponse {
		return historyResponse{
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			RecipientID:    m.RecipientID,
			Content:        m.Content,
			PersistentID:   m.PersistentID.String(),
			Timestamp:      m.CreatedAt,
			Read:           m.Read,
		}
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.Warn("History response not written", "error", err)
	}
}
