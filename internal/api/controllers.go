package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trading-intelligence/internal/session"
)

type startTradingRequest struct {
	Symbol          string  `json:"symbol" binding:"required,min=1"`
	Timeframe       string  `json:"timeframe"`
	IntervalSeconds int     `json:"interval_seconds" binding:"omitempty,gt=0"`
	MaxDecisions    int     `json:"max_decisions" binding:"omitempty,gt=0"`
	BuyThreshold    float64 `json:"buy_threshold" binding:"omitempty,gt=0,lte=1"`
	SellThreshold   float64 `json:"sell_threshold" binding:"omitempty,gt=0,lte=1"`
}

type symbolRequest struct {
	Symbol string `json:"symbol" binding:"required,min=1"`
}

type listQuery struct {
	Limit int `form:"limit"`
}

func (q *listQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
}

// applyProfile fills unset start parameters from the symbol's profile.
func (s *Server) applyProfile(symbol string, req *startTradingRequest) {
	p, ok := s.Profiles[symbol]
	if !ok {
		return
	}
	if req.Timeframe == "" {
		req.Timeframe = p.Timeframe
	}
	if req.IntervalSeconds == 0 {
		req.IntervalSeconds = p.IntervalSeconds
	}
	if req.MaxDecisions == 0 {
		req.MaxDecisions = p.MaxDecisions
	}
	if req.BuyThreshold == 0 {
		req.BuyThreshold = p.BuyThreshold
	}
	if req.SellThreshold == 0 {
		req.SellThreshold = p.SellThreshold
	}
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// respondSessionError maps session layer errors onto HTTP statuses.
func respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionExists):
		respondError(c, http.StatusConflict, "SESSION_EXISTS", err.Error())
	case errors.Is(err, session.ErrNotFound):
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
	case errors.Is(err, session.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// startTrading activates a trading session for a symbol.
func (s *Server) startTrading(c *gin.Context) {
	var req startTradingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	s.applyProfile(symbol, &req)

	snap, err := s.Sessions.Start(c.Request.Context(), symbol, session.StartOptions{
		Interval:      time.Duration(req.IntervalSeconds) * time.Second,
		MaxDecisions:  req.MaxDecisions,
		Timeframe:     req.Timeframe,
		BuyThreshold:  req.BuyThreshold,
		SellThreshold: req.SellThreshold,
	})
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "trading session started",
		"session": snap,
	})
}

// stopTrading stops the symbol's session and waits for the scheduler to exit.
func (s *Server) stopTrading(c *gin.Context) {
	var req symbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	snap, err := s.Sessions.Stop(c.Request.Context(), symbol)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "trading session stopped",
		"session": snap,
	})
}

func (s *Server) pauseTrading(c *gin.Context) {
	var req symbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	snap, err := s.Sessions.Pause(c.Request.Context(), symbol)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "trading session paused",
		"session": snap,
	})
}

func (s *Server) resumeTrading(c *gin.Context) {
	var req symbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	snap, err := s.Sessions.Resume(c.Request.Context(), symbol)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "trading session resumed",
		"session": snap,
	})
}

// getTradingStatus returns the latest session snapshot for a symbol.
func (s *Server) getTradingStatus(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		symbol = s.Meta.DefaultSymbol
	}

	snap, err := s.Sessions.Status(symbol)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": snap})
}

// listSessions returns the most recent sessions across all symbols.
func (s *Server) listSessions(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	q.normalize()

	sessions, err := s.DB.RecentSessions(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if sessions == nil {
		sessions = []session.Snapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

// getSession looks up a single session by id, including stopped ones.
func (s *Server) getSession(c *gin.Context) {
	snap, err := s.DB.FindSession(c.Request.Context(), c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": snap})
}

// listDecisions returns the most recent decisions, newest first.
func (s *Server) listDecisions(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	q.normalize()

	decisions, err := s.DB.RecentDecisions(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": decisions, "count": len(decisions)})
}

// getPositions reports open positions held by the executor.
func (s *Server) getPositions(c *gin.Context) {
	if s.Exec == nil {
		c.JSON(http.StatusOK, gin.H{"positions": []any{}, "count": 0})
		return
	}
	positions := s.Exec.Positions()
	c.JSON(http.StatusOK, gin.H{"positions": positions, "count": len(positions)})
}

// getRiskStatus reports the configured limits alongside current usage.
func (s *Server) getRiskStatus(c *gin.Context) {
	resp := gin.H{
		"limits":            s.Limits,
		"execution_enabled": s.Meta.ExecutionEnabled,
	}
	if s.Exec != nil {
		resp["daily_trades"] = s.Exec.DailyTrades()
		resp["open_positions"] = len(s.Exec.Positions())
	}
	if s.BalanceMgr != nil {
		if bal, err := s.BalanceMgr.Available(c.Request.Context()); err == nil {
			resp["available_balance"] = bal
		}
	}
	c.JSON(http.StatusOK, resp)
}

// getSystemStatus reports service metadata and active sessions.
func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "running",
		"version":           s.Meta.Version,
		"instance_id":       s.Meta.InstanceID,
		"predictor":         s.Meta.Predictor,
		"mock_market":       s.Meta.UseMockMarket,
		"execution_enabled": s.Meta.ExecutionEnabled,
		"active_symbols":    s.Sessions.ActiveSymbols(),
		"uptime_seconds":    int(time.Since(s.Meta.StartedAt) / time.Second),
	})
}
