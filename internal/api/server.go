// Package api exposes the trading core over HTTP: session lifecycle commands,
// read endpoints for decisions and positions, auth, and a websocket stream of
// live events.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trading-intelligence/internal/balance"
	"trading-intelligence/internal/events"
	"trading-intelligence/internal/execution"
	"trading-intelligence/internal/risk"
	"trading-intelligence/internal/session"
	"trading-intelligence/pkg/config"
	"trading-intelligence/pkg/db"
)

// Server wires HTTP endpoints around the session manager and the event bus.
type Server struct {
	Router     *gin.Engine
	Bus        *events.Bus
	DB         *db.Database
	Sessions   *session.Manager
	Exec       *execution.Executor // nil when live execution is disabled
	BalanceMgr *balance.Manager
	Limits     risk.Limits
	JWTSecret  string
	Meta       SystemMeta

	// Profiles are optional per-symbol defaults applied to start requests
	// that leave the matching fields unset.
	Profiles map[string]config.Profile
}

// SystemMeta describes runtime status exposed to operators.
type SystemMeta struct {
	Version          string
	InstanceID       string
	Predictor        string
	UseMockMarket    bool
	ExecutionEnabled bool
	DefaultSymbol    string
	StartedAt        time.Time
}

func NewServer(bus *events.Bus, database *db.Database, sessions *session.Manager, exec *execution.Executor, balanceMgr *balance.Manager, limits risk.Limits, meta SystemMeta, jwtSecret string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:     r,
		Bus:        bus,
		DB:         database,
		Sessions:   sessions,
		Exec:       exec,
		BalanceMgr: balanceMgr,
		Limits:     limits,
		JWTSecret:  jwtSecret,
		Meta:       meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)

		// Auth endpoints (no auth required)
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
		}

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			trading := protected.Group("/trading")
			{
				trading.POST("/start", s.startTrading)
				trading.POST("/stop", s.stopTrading)
				trading.POST("/pause", s.pauseTrading)
				trading.POST("/resume", s.resumeTrading)
				trading.GET("/status", s.getTradingStatus)
			}

			protected.GET("/sessions/recent", s.listSessions)
			protected.GET("/sessions/:id", s.getSession)
			protected.GET("/decisions/recent", s.listDecisions)
			protected.GET("/positions", s.getPositions)
			protected.GET("/risk", s.getRiskStatus)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
