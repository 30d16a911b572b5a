package handlers

import (
	"net/http"

	"bipv-docs/internal/engine"
	"bipv-docs/internal/middleware"
	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"
	"bipv-docs/internal/websocket"

	"github.com/go-playground/validator/v10"
	ws "github.com/gorilla/websocket"
)

// Server holds all server dependencies, including the engine and the websocket hub
type Server struct {
	Engine         *engine.Engine
	Metrics        *utils.MetricsCollector
	JWT            *middleware.JWT
	Hub            *websocket.Hub
	Organizations  map[string]*models.Organization
	AllowedOrigins []string

	validate *validator.Validate
	upgrader ws.Upgrader
}

// NewServer creates a new Server instance with the given components
func NewServer(
	engine *engine.Engine,
	metrics *utils.MetricsCollector,
	jwt *middleware.JWT,
	hub *websocket.Hub,
	organizations map[string]*models.Organization,
	allowedOrigins []string,
) *Server {
	s := &Server{
		Engine:         engine,
		Metrics:        metrics,
		JWT:            jwt,
		Hub:            hub,
		Organizations:  organizations,
		AllowedOrigins: allowedOrigins,
		validate:       newValidator(),
	}
	cors := middleware.DefaultCORSConfig(allowedOrigins)
	s.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cors.Allows(origin)
		},
	}
	return s
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.HandleHealth())
	mux.HandleFunc("/channels", s.HandleChannels())

	mux.HandleFunc("/user/register", s.HandleUserRegistration())
	mux.HandleFunc("/user/login", s.HandleUserLogin())
	mux.HandleFunc("/user/profile", s.HandleUserProfile())

	mux.HandleFunc("/ledger/init", s.HandleInitLedger())
	mux.HandleFunc("/assets", s.HandleAssets())
	mux.HandleFunc("/assets/deleted", s.HandleDeletedAssets())
	mux.HandleFunc("/asset", s.HandleAsset())
	mux.HandleFunc("/asset/exists", s.HandleAssetExists())
	mux.HandleFunc("/asset/transfer", s.HandleTransferAsset())

	mux.HandleFunc("/ws", s.HandleWebSocket())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, utils.NewAppError(utils.ErrNotFound, "Route not found: "+r.URL.Path, nil))
	})

	return mux
}

// Handler is the full middleware chain around Routes.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Routes()
	h = s.JWT.AuthMiddleware(h)
	h = middleware.CORSMiddleware(middleware.DefaultCORSConfig(s.AllowedOrigins))(h)
	h = middleware.RequestLogger(s.Metrics)(h)
	return h
}
