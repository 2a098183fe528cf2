// Package api exposes the tracker over HTTP as a JSON API behind the shared
// access code.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/from2future/poker-tracker/internal/auth"
	"github.com/from2future/poker-tracker/internal/importer"
	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/internal/state"
	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/logger"
)

// Importer runs a historical import
type Importer interface {
	Run(ctx context.Context, ds importer.Dataset) (*importer.Report, error)
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires the API to the rest of the program
type Deps struct {
	State     *state.Container
	Gate      *auth.Gate
	Importer  Importer
	Store     Pinger
	Logger    *logger.Logger
	Dashboard ledger.Options
	// SecureCookie marks the login cookie HTTPS only
	SecureCookie bool
}

type API struct {
	state     *state.Container
	gate      *auth.Gate
	importer  Importer
	store     Pinger
	logger    *logger.Logger
	dashboard ledger.Options
	secure    bool
}

func New(d Deps) *API {
	return &API{
		state:     d.State,
		gate:      d.Gate,
		importer:  d.Importer,
		store:     d.Store,
		logger:    d.Logger,
		dashboard: d.Dashboard,
		secure:    d.SecureCookie,
	}
}

// Routes builds the gin engine
func (a *API) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), a.accessLog())

	r.GET("/health", a.health)
	r.GET("/ready", a.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/login", a.login)
		api.POST("/logout", a.logout)

		authed := api.Group("", a.requireLogin())
		{
			authed.GET("/players", a.listPlayers)
			authed.POST("/players", a.createPlayer)
			authed.PUT("/players/:id", a.renamePlayer)
			authed.DELETE("/players/:id", a.deletePlayer)

			authed.GET("/sessions", a.listSessions)
			authed.POST("/sessions", a.createSession)
			authed.GET("/sessions/:id", a.getSession)
			authed.PUT("/sessions/:id", a.updateSession)
			authed.DELETE("/sessions/:id", a.deleteSession)
			authed.PUT("/sessions/:id/results/:playerId", a.setResult)
			authed.POST("/sessions/:id/roster", a.addToRoster)

			authed.GET("/dashboard", a.getDashboard)
			authed.POST("/admin/import", a.runImport)
		}
	}
	return r
}

func (a *API) health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (a *API) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.Warn("store not ready", zap.Error(err))
		c.String(http.StatusServiceUnavailable, "store unavailable")
		return
	}
	c.String(http.StatusOK, "ready")
}

// accessLog logs one line per request
func (a *API) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// fail maps an error onto a status code and a JSON body
func (a *API) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", err, zap.String("path", c.FullPath()))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrSessionNotFound),
		errors.Is(err, state.ErrPlayerNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrEmptyName),
		errors.Is(err, state.ErrMissingDate),
		errors.Is(err, state.ErrInvalidField),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidAccessCode):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccessCodeMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
