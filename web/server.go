package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"deathpool-service/config"
	"deathpool-service/services"
	"deathpool-service/timezone"
)

type Server struct {
	config      *config.Config
	db          *sql.DB
	wsHub       *Hub
	clock       *timezone.Clock
	catalog     *services.VoteCatalog
	shows       *services.ShowService
	players     *services.PlayerService
	suggestions *services.SuggestionService
	liveVotes   *services.LiveVoteService
	options     *services.OptionService
	voteState   *services.VoteStateService
	broker      services.MessageBroker
	httpServer  *http.Server
	upgrader    websocket.Upgrader
}

func NewServer(cfg *config.Config, db *sql.DB, hub *Hub, clock *timezone.Clock, broker services.MessageBroker) *Server {
	catalog := services.NewVoteCatalog(db)
	shows := services.NewShowService(db, catalog, clock)
	suggestions := services.NewSuggestionService(db)
	liveVotes := services.NewLiveVoteService(db)
	options := services.NewOptionService(db, suggestions)

	return &Server{
		config:      cfg,
		db:          db,
		wsHub:       hub,
		clock:       clock,
		catalog:     catalog,
		shows:       shows,
		players:     services.NewPlayerService(db),
		suggestions: suggestions,
		liveVotes:   liveVotes,
		options:     options,
		voteState:   services.NewVoteStateService(db, catalog, shows, options, liveVotes, suggestions, clock),
		broker:      broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Router builds the route table. Split out of Start so tests can exercise
// it with httptest.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/current_time", s.handleCurrentTime).Methods("GET")

	// Public voting surface
	api.HandleFunc("/shows", s.handleGetShows).Methods("GET")
	api.HandleFunc("/shows/{show_id}", s.handleGetShow).Methods("GET")
	api.HandleFunc("/shows/{show_id}/state", s.handleShowState).Methods("GET")
	api.HandleFunc("/shows/{show_id}/interval_timer", s.handleIntervalTimer).Methods("GET")
	api.HandleFunc("/live_vote", s.handleLiveVote).Methods("POST")
	api.HandleFunc("/upvote", s.handleUpvote).Methods("POST")
	api.HandleFunc("/suggestions", s.handleGetSuggestions).Methods("GET")
	api.HandleFunc("/suggestions", s.handleCreateSuggestion).Methods("POST")
	api.HandleFunc("/suggestions/{suggestion_id}", s.handleDeleteSuggestion).Methods("DELETE")

	// Admin surface
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminOnly)
	admin.HandleFunc("/shows", s.handleCreateShow).Methods("POST")
	admin.HandleFunc("/shows/{show_id}", s.handleDeleteShow).Methods("DELETE")
	admin.HandleFunc("/shows/{show_id}/start", s.handleStartShow).Methods("POST")
	admin.HandleFunc("/shows/{show_id}/start_vote", s.handleStartVote).Methods("POST")
	admin.HandleFunc("/shows/{show_id}/recap", s.handleStartRecap).Methods("POST")
	admin.HandleFunc("/shows/{show_id}/lock", s.handleLockShow).Methods("POST")
	admin.HandleFunc("/shows/{show_id}/unlock", s.handleUnlockShow).Methods("POST")
	admin.HandleFunc("/players", s.handleGetPlayers).Methods("GET")
	admin.HandleFunc("/players", s.handleCreatePlayer).Methods("POST")
	admin.HandleFunc("/players/{player_id}", s.handleDeletePlayer).Methods("DELETE")
	admin.HandleFunc("/vote_types", s.handleGetVoteTypes).Methods("GET")

	// WebSocket push channel
	router.HandleFunc("/ws", s.handleWebSocket)

	// Static assets (player photos etc.)
	router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static")))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(router)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// adminOnly gates the admin subrouter on the configured token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdmin(r) {
			writeError(w, http.StatusUnauthorized, "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) isAdmin(r *http.Request) bool {
	return s.config.IsAdminToken(r.Header.Get("X-Admin-Token"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleCurrentTime reports the show-local wall clock, used by screens to
// sync their countdowns.
func (s *Server) handleCurrentTime(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	writeJSON(w, http.StatusOK, map[string]int{
		"hour":   now.Hour(),
		"minute": now.Minute(),
		"second": now.Second(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:     s.wsHub,
		conn:    conn,
		send:    make(chan []byte, 256),
		showIDs: make(map[int64]bool),
	}
	client.hub.register <- client

	welcome, _ := json.Marshal(&WSMessage{
		Type: "connected",
		Data: map[string]interface{}{"time": time.Now().Unix()},
	})
	client.send <- welcome

	go client.writePump()
	go client.readPump()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
