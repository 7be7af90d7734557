package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"
	"QuantPulse/internal/service/ratelimit"
	"QuantPulse/internal/usecase"
	xhttp "QuantPulse/pkg/http"
	applogger "QuantPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HeaderDataSource tells callers whether a prediction is live or synthetic.
const HeaderDataSource = "X-Data-Source"

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// EnsembleHandler exposes the prediction and history endpoints.
type EnsembleHandler struct {
	ensemble domsvc.EnsembleProvider
	history  *usecase.HistoryUseCase
	limiter  *ratelimit.Limiter
	checks   map[string]HealthCheck
	logger   *applogger.Logger
}

// EnsembleHandlerOption configures EnsembleHandler.
type EnsembleHandlerOption func(*EnsembleHandler)

// WithRateLimiter limits the /api/v1 routes per client IP.
func WithRateLimiter(l *ratelimit.Limiter) EnsembleHandlerOption {
	return func(h *EnsembleHandler) { h.limiter = l }
}

// WithHealthCheck adds a named dependency probe to /healthz.
func WithHealthCheck(name string, check HealthCheck) EnsembleHandlerOption {
	return func(h *EnsembleHandler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

// WithHandlerLogger sets the logger.
func WithHandlerLogger(l *applogger.Logger) EnsembleHandlerOption {
	return func(h *EnsembleHandler) { h.logger = l }
}

func NewEnsembleHandler(ensemble domsvc.EnsembleProvider, history *usecase.HistoryUseCase, opts ...EnsembleHandlerOption) *EnsembleHandler {
	h := &EnsembleHandler{
		ensemble: ensemble,
		history:  history,
		checks:   make(map[string]HealthCheck),
		logger:   applogger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the HTTP routes.
func (h *EnsembleHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, h.limiter.Middleware())
	}
	v1 := e.Group("/api/v1", mw...)
	v1.POST("/ensemble-predict", h.PostEnsemble)
	v1.GET("/ensemble-predict/:symbol", h.GetEnsemble)
	v1.GET("/predictions/:symbol/history", h.GetHistory)
}

// PostEnsemble godoc
// @Summary Ensemble prediction
// @Tags ensemble
// @Accept json
// @Produce json
// @Param body body models.EnsemblePredictRequest true "prediction request"
// @Success 200 {object} models.EnsembleResult
// @Failure 400 {object} xhttp.APIResponse400Err
// @Failure 500 {object} xhttp.APIResponse500Err
// @Router /api/v1/ensemble-predict [post]
func (h *EnsembleHandler) PostEnsemble(c echo.Context) error {
	var req models.EnsemblePredictRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	return h.predict(c, req.Symbol, req.ShockSimulation, req.PriceOrZero())
}

// GetEnsemble godoc
// @Summary Ensemble prediction for a symbol
// @Tags ensemble
// @Produce json
// @Param symbol path string true "ticker, e.g. RELIANCE"
// @Param shock_simulation query bool false "apply the market-shock scenario"
// @Success 200 {object} models.EnsembleResult
// @Failure 400 {object} xhttp.APIResponse400Err
// @Router /api/v1/ensemble-predict/{symbol} [get]
func (h *EnsembleHandler) GetEnsemble(c echo.Context) error {
	var req models.EnsembleGetRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	return h.predict(c, req.Symbol, req.ShockSimulation, 0)
}

func (h *EnsembleHandler) predict(c echo.Context, symbol string, shock bool, price float64) error {
	req, err := models.NewPredictionRequest(symbol, shock, price)
	if err != nil {
		return invalidRequest(c, "symbol", err)
	}

	res, err := h.ensemble.GetEnsemble(c.Request().Context(), req)
	if err != nil {
		return h.failure(c, req.Symbol(), err)
	}

	c.Response().Header().Set(HeaderDataSource, string(res.Source))
	return c.JSON(http.StatusOK, Present(res))
}

// GetHistory godoc
// @Summary Recent predictions served for a symbol
// @Tags predictions
// @Produce json
// @Param symbol path string true "ticker"
// @Param limit query int false "max records (1-500)"
// @Param since query string false "RFC3339, date or unix seconds"
// @Success 200 {object} xhttp.APIResponse{data=usecase.GetHistoryResult}
// @Router /api/v1/predictions/{symbol}/history [get]
func (h *EnsembleHandler) GetHistory(c echo.Context) error {
	var req models.HistoryRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	var since time.Time
	if req.Since != "" {
		t, ok := xhttp.ParseTime(req.Since)
		if !ok {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
				Code:    "ERR_INVALID_TIME",
				Field:   "since",
				Message: "since must be RFC3339, a date or unix seconds",
			}})
		}
		since = t
	}

	res, err := h.history.GetHistory(c.Request().Context(), usecase.GetHistoryParams{
		Symbol: req.Symbol,
		Since:  since,
		Limit:  req.Limit,
	})
	if err != nil {
		return h.failure(c, req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports "ok", or "degraded" with 503 when any probe fails.
func (h *EnsembleHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	rep := healthReport{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			rep.Status = "degraded"
			rep.Checks[name] = err.Error()
			continue
		}
		rep.Checks[name] = "ok"
	}
	if rep.Status != "ok" {
		return c.JSON(http.StatusServiceUnavailable, rep)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *EnsembleHandler) failure(c echo.Context, symbol string, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		return invalidRequest(c, "symbol", err)
	case errors.Is(err, models.ErrInvariantViolation):
		h.logger.Error("ensemble invariant violated",
			applogger.String("symbol", symbol),
			applogger.String("path", c.Path()),
			applogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, xhttp.InvariantError(err))
	default:
		h.logger.Error("request failed", applogger.String("symbol", symbol), applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}

func invalidRequest(c echo.Context, field string, err error) error {
	return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
		Code:    "ERR_INVALID_REQUEST",
		Field:   field,
		Message: err.Error(),
	}})
}

var _ xhttp.Handler = (*EnsembleHandler)(nil)
