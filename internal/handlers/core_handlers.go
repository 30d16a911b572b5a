package handlers

import (
	"net/http"
	"time"

	"bipv-docs/internal/engine/actors"
	"bipv-docs/internal/middleware"
	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"
)

// HealthPayload is returned by /health
type HealthPayload struct {
	Status         string                `json:"status"`
	Ledgers        map[string]int        `json:"ledgers"`
	ConnectedUsers int                   `json:"connectedUsers"`
	Metrics        utils.MetricsSnapshot `json:"metrics"`
	ServerTime     time.Time             `json:"serverTime"`
}

// ChannelsPayload is returned by /channels
type ChannelsPayload struct {
	Organization string   `json:"organization"`
	Name         string   `json:"name"`
	Channels     []string `json:"channels"`
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		namespaces, err := s.Engine.Namespaces()
		if err != nil {
			writeError(w, err)
			return
		}

		ledgers := make(map[string]int, len(namespaces))
		for _, ns := range namespaces {
			result, err := s.Engine.AskLedger(ns, &actors.GetCountsMsg{})
			if err != nil {
				writeError(w, err)
				return
			}
			ledgers[ns], _ = result.(int)
		}

		payload := &HealthPayload{
			Status:     "healthy",
			Ledgers:    ledgers,
			Metrics:    s.Metrics.Snapshot(),
			ServerTime: time.Now().UTC(),
		}
		if s.Hub != nil {
			payload.ConnectedUsers = s.Hub.ConnectedUsers()
		}
		writeSuccess(w, http.StatusOK, "ok", payload)
	}
}

// HandleChannels lists the channels of the caller's organization
func (s *Server) HandleChannels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		claims, ok := middleware.GetClaimsFromContext(r.Context())
		if !ok {
			writeError(w, utils.NewUnauthorizedError("missing token"))
			return
		}

		org, known := s.Organizations[claims.Organization]
		if !known {
			org = &models.Organization{ID: claims.Organization, Name: claims.Organization}
		}
		writeSuccess(w, http.StatusOK, "", &ChannelsPayload{
			Organization: org.ID,
			Name:         org.Name,
			Channels:     append([]string{}, org.Channels...),
		})
	}
}
