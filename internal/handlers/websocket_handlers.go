package handlers

import (
	"net/http"

	"bipv-docs/internal/utils"
	"bipv-docs/internal/websocket"

	"github.com/sirupsen/logrus"
)

// HandleWebSocket upgrades an authenticated request to a notification stream.
// Browsers cannot set headers on websocket requests, so the token comes in the
// query string.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			writeError(w, utils.NewUnauthorizedError("missing authentication token"))
			return
		}

		claims, err := s.JWT.ValidateToken(tokenString)
		if err != nil {
			logrus.WithError(err).Debug("WebSocket connection failed: invalid token")
			writeError(w, utils.NewAppError(utils.ErrInvalidToken, "Invalid or expired token", err))
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// The upgrader has already written the HTTP error.
			logrus.WithError(err).WithField("username", claims.Username).Warn("WebSocket upgrade failed")
			return
		}

		client := websocket.NewClient(s.Hub, claims.Username, conn)
		if !client.Hub.AddClient(client) {
			logrus.WithField("username", claims.Username).Debug("WebSocket hub stopped, closing connection")
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
