// Package server exposes recording and valuation over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/folio-dev/folio/internal/config"
	"github.com/folio-dev/folio/internal/ledger"
	"github.com/folio-dev/folio/internal/model"
	"github.com/folio-dev/folio/internal/recorder"
	"github.com/folio-dev/folio/internal/valuation"
)

// RateSource serves the cached rate table.
type RateSource interface {
	Get(ctx context.Context) model.RateTable
	Invalidate()
}

// Deps are the services behind the handlers.
type Deps struct {
	Store      ledger.Store
	Rates      RateSource
	Recorder   *recorder.Recorder
	Aggregator *valuation.Aggregator
	Valuation  config.ValuationConfig
}

// Server holds the router and its dependencies.
type Server struct {
	R      *gin.Engine
	deps   Deps
	logger *zap.Logger
}

type apiError struct {
	Code    string                     `json:"code"`
	Message string                     `json:"message"`
	Fields  []recorder.ValidationError `json:"fields,omitempty"`
}

type rateRow struct {
	Kind string          `json:"kind"`
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}

type ledgerResponse struct {
	Category string         `json:"category"`
	Rows     []model.Record `json:"rows"`
}

type summaryResponse struct {
	Valuation    string           `json:"valuation"`
	Rate         model.Rate       `json:"rate"`
	TotalLocal   decimal.Decimal  `json:"total_local"`
	TotalForeign *decimal.Decimal `json:"total_foreign"`
	Rows         []model.Record   `json:"rows"`
	Malformed    int              `json:"malformed"`
	Message      string           `json:"message,omitempty"`
}

// New wires the router, middleware and handlers.
func New(deps Deps, cfg config.ServerConfig, logger *zap.Logger) *Server {
	g := gin.New()

	g.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	})
	g.Use(gin.Recovery())

	if len(cfg.CORSOrigins) > 0 {
		cc := cors.DefaultConfig()
		cc.AllowOrigins = cfg.CORSOrigins
		cc.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
		cc.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		cc.ExposeHeaders = []string{"Content-Length"}
		g.Use(cors.New(cc))
	}

	s := &Server{R: g, deps: deps, logger: logger}

	g.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	g.GET("/rates", s.getRates)
	g.DELETE("/rates/cache", s.clearRates)
	g.GET("/ledger/:category", s.getLedger)
	g.POST("/ledger/:category", s.postLedger)
	g.GET("/summary", s.getSummary)

	return s
}

// --- Helpers ---

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: msg})
}

func (s *Server) internalError(c *gin.Context, where string, err error) {
	s.logger.Error("internal_error", zap.String("where", where), zap.Error(err))
	c.JSON(http.StatusInternalServerError, apiError{Code: "internal_server_error", Message: "internal server error"})
}

func (s *Server) category(c *gin.Context) (model.Category, bool) {
	cat, err := model.ParseCategory(c.Param("category"))
	if err != nil {
		s.badRequest(c, err.Error())
		return "", false
	}
	return cat, true
}

// --- Handlers ---

func (s *Server) getRates(c *gin.Context) {
	table := s.deps.Rates.Get(c.Request.Context())
	rows := make([]rateRow, 0, len(table))
	for _, k := range model.RateKinds {
		if r, ok := table[k]; ok {
			rows = append(rows, rateRow{Kind: k, Buy: r.Buy, Sell: r.Sell})
		}
	}
	c.JSON(http.StatusOK, gin.H{"rates": rows})
}

func (s *Server) clearRates(c *gin.Context) {
	s.deps.Rates.Invalidate()
	c.Status(http.StatusNoContent)
}

func (s *Server) getLedger(c *gin.Context) {
	cat, ok := s.category(c)
	if !ok {
		return
	}
	rows, err := s.deps.Store.Read(c.Request.Context(), cat)
	if err != nil && !ledger.IsNotFound(err) {
		s.internalError(c, "Read", err)
		return
	}
	if rows == nil {
		rows = []model.Record{}
	}
	c.JSON(http.StatusOK, ledgerResponse{Category: string(cat), Rows: rows})
}

func (s *Server) postLedger(c *gin.Context) {
	cat, ok := s.category(c)
	if !ok {
		return
	}
	var form recorder.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		s.badRequest(c, "invalid JSON body: "+err.Error())
		return
	}

	tx, err := s.deps.Recorder.Record(c.Request.Context(), cat, form)
	if err != nil {
		var verrs recorder.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apiError{Code: "validation_failed", Message: verrs.Error(), Fields: verrs})
			return
		}
		s.logger.Error("internal_error", zap.String("where", "Record"), zap.Error(err))
		c.JSON(http.StatusInternalServerError, apiError{Code: "store_failure", Message: "the transaction could not be saved, please try again"})
		return
	}
	c.JSON(http.StatusCreated, tx.Record())
}

func (s *Server) getSummary(c *gin.Context) {
	kind := strings.TrimSpace(c.Query("valuation"))
	if kind == "" {
		kind = s.deps.Valuation.DefaultKind
	}
	if !slices.ContainsFunc(s.deps.Valuation.Kinds, func(k string) bool { return strings.EqualFold(k, kind) }) {
		s.badRequest(c, "valuation must be one of "+strings.Join(s.deps.Valuation.Kinds, ", "))
		return
	}

	ctx := c.Request.Context()
	key, rate, err := valuation.SelectRate(s.deps.Rates.Get(ctx), kind)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	sum, err := s.deps.Aggregator.Summarize(ctx, model.Categories, rate)
	resp := summaryResponse{
		Valuation:  key,
		Rate:       rate,
		TotalLocal: sum.TotalLocal,
		Rows:       sum.Rows,
		Malformed:  sum.Malformed,
	}
	switch {
	case errors.Is(err, valuation.ErrValuationUnavailable):
		resp.Message = "valuation unavailable"
	case err != nil:
		s.internalError(c, "Summarize", err)
		return
	default:
		resp.TotalForeign = &sum.TotalForeign
	}
	if resp.Rows == nil {
		resp.Rows = []model.Record{}
	}
	c.JSON(http.StatusOK, resp)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.R, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	s.logger.Info("shutdown complete")
	return nil
}
