package handlers

import (
	"net/http"

	"bipv-docs/internal/api"
	"bipv-docs/internal/engine/actors"
	"bipv-docs/internal/middleware"
	"bipv-docs/internal/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RegisterUserRequest represents a request to register a new user
type RegisterUserRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=100"`
	Password     string `json:"password" validate:"required,min=6,nefield=Username"`
	Organization string `json:"organization" validate:"required"`
}

// LoginRequest represents a request to log in a user
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleUserRegistration handles requests to register a new user
func (s *Server) HandleUserRegistration() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		var req RegisterUserRequest
		if err := s.decodeRequest(r, &req); err != nil {
			writeError(w, err)
			return
		}

		result, err := s.Engine.AskUsers(&actors.RegisterUserMsg{
			Username:     req.Username,
			Password:     req.Password,
			Organization: req.Organization,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, "user registered", result)
	}
}

// HandleUserLogin checks credentials and issues a token
func (s *Server) HandleUserLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		var req LoginRequest
		if err := s.decodeRequest(r, &req); err != nil {
			writeError(w, err)
			return
		}

		logrus.WithField("username", req.Username).Debug("HTTP Handler: Received login request")

		result, err := s.Engine.AskUsers(&actors.LoginMsg{
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		loginResp, ok := result.(*actors.LoginResult)
		if !ok {
			writeError(w, errors.Errorf("unexpected login reply %T", result))
			return
		}
		if !loginResp.Success {
			writeError(w, utils.NewAppError(utils.ErrInvalidCredentials, loginResp.Error, nil))
			return
		}

		token, err := s.JWT.GenerateToken(loginResp.Username, loginResp.Organization)
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "login successful", &api.LoginPayload{
			Token:        token,
			Username:     loginResp.Username,
			Organization: loginResp.Organization,
		})
	}
}

// HandleUserProfile returns the profile of the token's user
func (s *Server) HandleUserProfile() http.HandlerFunc {
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

		result, err := s.Engine.AskUsers(&actors.GetUserProfileMsg{Username: claims.Username})
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "", result)
	}
}
