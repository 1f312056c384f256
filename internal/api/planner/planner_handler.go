package planner

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/ratelimit"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type Handler struct {
	service Service
	limiter *ratelimit.Limiter
	metrics *metrics.AppMetrics
	logger  *slog.Logger
}

func NewHandler(service Service, limiter *ratelimit.Limiter, appMetrics *metrics.AppMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		limiter: limiter,
		metrics: appMetrics,
		logger:  logger,
	}
}

// GenerateTripPlan handles POST /plans: decodes the request, applies the
// per-caller generation rate limit, runs the pipeline and writes the plan.
// Duration, success and error category are logged so the caller's activity
// sink can build its audit record; raw model output never leaves the logs.
func (h *Handler) GenerateTripPlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GenerateTripPlan").Start(r.Context(), "GenerateTripPlan", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/plans"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GenerateTripPlan"))
	l.DebugContext(ctx, "Generate trip plan handler invoked")

	var req types.TravelPlanRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.limiter.Check(ratelimit.KeyTravelPlan, clientIdentifier(r)); err != nil {
		if h.metrics != nil {
			h.metrics.RateLimitRejectedTotal.Add(ctx, 1)
		}
		l.WarnContext(ctx, "Request rejected by rate limiter", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}

	start := time.Now()
	plan, err := h.service.GenerateTripPlan(ctx, req)
	duration := time.Since(start)

	if err != nil {
		l.ErrorContext(ctx, "Trip plan generation failed",
			slog.Duration("duration", duration),
			slog.Bool("success", false),
			slog.Any("error", err),
		)
		api.ErrorResponse(w, r, statusForError(err), publicMessageForError(err))
		return
	}

	l.InfoContext(ctx, "Trip plan generated",
		slog.String("plan_id", plan.ID.String()),
		slog.Duration("duration", duration),
		slog.Bool("success", true),
	)
	api.WriteJSONResponse(w, r, http.StatusOK, plan)
}

// clientIdentifier keys the rate limiter by caller. RealIP middleware has
// already rewritten RemoteAddr when the service sits behind a proxy.
func clientIdentifier(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, types.ErrGenerationBackend),
		errors.Is(err, types.ErrInvalidAccommodationCount),
		errors.Is(err, types.ErrMissingCategory),
		errors.Is(err, types.ErrDuplicateAccommodationName),
		errors.Is(err, types.ErrDuplicatePrice),
		errors.Is(err, types.ErrPriceOrderingViolation),
		errors.Is(err, types.ErrInsufficientPlaces),
		errors.Is(err, types.ErrDayCountMismatch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessageForError keeps diagnostic detail (prompts, raw responses) out
// of client responses; operators get it from the logs.
func publicMessageForError(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, types.ErrRateLimitExceeded):
		return "Too many requests. Please try again later."
	default:
		return "Failed to generate trip plan. Please try again."
	}
}
