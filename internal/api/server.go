// Package api implements the external interface: the REST surface and the
// WebSocket event feed described in the system's external-interfaces
// design, wired through gin (REST) and gorilla/websocket (events).
package api

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vn-signal-engine/internal/events"
	"vn-signal-engine/internal/model"
	"vn-signal-engine/internal/store"
	"vn-signal-engine/internal/worker"
)

// accessLog is the secondary structured-logging surface: a zerolog-backed
// HTTP access log, separate from the engine's own logging package which
// covers bar/signal/worker events.
var accessLog = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

func accessLogMiddleware(c *gin.Context) {
	start := time.Now()
	c.Next()
	accessLog.Info().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).
		Dur("latency", time.Since(start)).
		Msg("request")
}

// Store is the subset of the persistence layer the API needs.
type Store interface {
	GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.Bar, error)
	GetSignals(ctx context.Context, filter store.SignalFilter) ([]model.Signal, error)
	GetSignalByID(ctx context.Context, id int64) (*model.Signal, error)
	SaveSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key, def string) (string, error)
}

// Server wires the store, the worker manager, and the event bus into a
// gin engine.
type Server struct {
	router    *gin.Engine
	store     Store
	manager   *worker.Manager
	bus       *events.Bus
	timeframe string
}

// NewServer builds the HTTP router. allowedOrigins configures CORS for
// browser-based subscribers.
func NewServer(store Store, manager *worker.Manager, bus *events.Bus, timeframe string, allowedOrigins []string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(accessLogMiddleware)
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "PUT", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{router: router, store: store, manager: manager, bus: bus, timeframe: timeframe}
	s.registerRoutes()
	return s
}

// Router exposes the underlying gin engine, e.g. for http.ListenAndServe.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/symbols", s.handleSymbols)
	s.router.GET("/settings", s.handleGetSettings)
	s.router.PUT("/settings", s.handlePutSettings)
	s.router.GET("/signals", s.handleListSignals)
	s.router.GET("/signals/:id", s.handleGetSignal)
	s.router.GET("/bars", s.handleGetBars)
	s.router.GET("/indicators/:symbol", s.handleIndicators)
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok", "subscribers": s.bus.SubscriberCount()})
}

func (s *Server) handleSymbols(c *gin.Context) {
	c.JSON(200, gin.H{"symbols": s.manager.Symbols()})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	watchlistJSON, err := s.store.GetSetting(c.Request.Context(), "watchlist", "[]")
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	var watchlist []string
	_ = json.Unmarshal([]byte(watchlistJSON), &watchlist)

	quantity, err := s.store.GetSetting(c.Request.Context(), "default_quantity", "0")
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"watchlist": watchlist, "default_quantity": quantity})
}

type settingsRequest struct {
	Watchlist       []string `json:"watchlist"`
	DefaultQuantity string   `json:"default_quantity"`
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	watchlistJSON, err := json.Marshal(req.Watchlist)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SaveSetting(c.Request.Context(), "watchlist", string(watchlistJSON)); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if req.DefaultQuantity != "" {
		if err := s.store.SaveSetting(c.Request.Context(), "default_quantity", req.DefaultQuantity); err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
	}

	// Workers added here outlive the request, so their context must not be
	// cancelled when the handler returns.
	s.manager.SetWatchlist(context.WithoutCancel(c.Request.Context()), req.Watchlist)
	c.JSON(200, gin.H{"status": "updated"})
}

func (s *Server) handleListSignals(c *gin.Context) {
	filter := store.SignalFilter{
		Symbol: c.Query("symbol"),
		Limit:  parseIntOrDefault(c.Query("limit"), 50),
	}
	signals, err := s.store.GetSignals(c.Request.Context(), filter)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"signals": signals})
}

func (s *Server) handleGetSignal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}
	signal, err := s.store.GetSignalByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if signal == nil {
		c.JSON(404, gin.H{"error": "signal not found"})
		return
	}
	c.JSON(200, signal)
}

func (s *Server) handleGetBars(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(400, gin.H{"error": "symbol is required"})
		return
	}
	limit := parseIntOrDefault(c.Query("limit"), 200)

	bars, err := s.store.GetBars(c.Request.Context(), symbol, s.timeframe, limit)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"bars": bars})
}

func (s *Server) handleIndicators(c *gin.Context) {
	symbol := c.Param("symbol")
	w := s.manager.Worker(symbol)
	if w == nil {
		c.JSON(404, gin.H{"error": "symbol not tracked"})
		return
	}

	result, ok := w.Snapshot(c.Request.Context())
	if !ok {
		c.JSON(503, gin.H{"error": "worker unavailable"})
		return
	}
	c.JSON(200, events.BuildSignalCheckPayload(symbol, result))
}

func parseIntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
