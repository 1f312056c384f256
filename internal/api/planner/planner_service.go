package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/places"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const defaultChunkSizeDays = 3

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for trip plan generation.
type Service interface {
	GenerateTripPlan(ctx context.Context, req types.TravelPlanRequest) (*types.TripPlan, error)
}

// ServiceImpl provides the implementation for Service.
type ServiceImpl struct {
	logger    *slog.Logger
	backend   generativeAI.Backend
	photos    places.Service
	metrics   *metrics.AppMetrics
	chunkSize int

	// inflight coalesces concurrent identical requests onto one generation;
	// the entry is dropped as soon as the shared call settles.
	inflight singleflight.Group
}

// NewService creates a new planner service instance.
func NewService(backend generativeAI.Backend, photos places.Service, appMetrics *metrics.AppMetrics, chunkSize int, logger *slog.Logger) *ServiceImpl {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSizeDays
	}
	return &ServiceImpl{
		logger:    logger,
		backend:   backend,
		photos:    photos,
		metrics:   appMetrics,
		chunkSize: chunkSize,
	}
}

// GenerateTripPlan runs the full pipeline for one request: dedup against
// identical in-flight requests, concurrent accommodation and day-chunk
// generation, merge and validation, then best-effort photo enrichment.
// No partial plan is ever returned.
func (s *ServiceImpl) GenerateTripPlan(ctx context.Context, req types.TravelPlanRequest) (*types.TripPlan, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "GenerateTripPlan", trace.WithAttributes(
		attribute.String("trip.destination", req.Destination),
		attribute.String("trip.start_date", req.StartDate),
		attribute.String("trip.end_date", req.EndDate),
	))
	defer span.End()

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request")
		return nil, err
	}

	ch := s.inflight.DoChan(req.Fingerprint(), func() (interface{}, error) {
		return s.generatePlan(ctx, req)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, "Plan generation failed")
			return nil, res.Err
		}
		if res.Shared {
			span.SetAttributes(attribute.Bool("trip.deduplicated", true))
			if s.metrics != nil {
				s.metrics.InFlightDedupHitsTotal.Add(ctx, 1)
			}
		}
		return res.Val.(*types.TripPlan), nil
	case <-ctx.Done():
		// This caller stops waiting; the entry is released when the shared
		// call settles, so a retry is not deduplicated against a dead run.
		return nil, ctx.Err()
	}
}

func (s *ServiceImpl) generatePlan(ctx context.Context, req types.TravelPlanRequest) (*types.TripPlan, error) {
	start := time.Now()
	l := s.logger.With(
		slog.String("destination", req.Destination),
		slog.String("start_date", req.StartDate),
		slog.String("end_date", req.EndDate),
	)

	numberOfDays, err := req.NumberOfDays()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidRequest, err)
	}
	chunkCount := (numberOfDays + s.chunkSize - 1) / s.chunkSize
	l.DebugContext(ctx, "Starting trip plan generation",
		slog.Int("days", numberOfDays),
		slog.Int("chunks", chunkCount),
		slog.String("provider", s.backend.Provider()),
	)

	// Accommodations and every day chunk run concurrently; the first failure
	// cancels the siblings and fails the whole pipeline.
	g, gctx := errgroup.WithContext(ctx)

	var accommodations []types.Accommodation
	dayChunks := make([][]types.DayPlan, chunkCount)

	g.Go(func() error {
		raw, err := s.backend.Generate(gctx, getAccommodationsPrompt(req.Destination, req.BudgetMin, req.BudgetMax))
		if err != nil {
			return fmt.Errorf("accommodations call failed: %w", err)
		}
		parsed, err := parseAccommodations(raw)
		if err != nil {
			return err
		}
		accommodations = parsed
		return nil
	})

	for i := 0; i < chunkCount; i++ {
		g.Go(func() error {
			startDay := i*s.chunkSize + 1
			daysInChunk := numberOfDays - i*s.chunkSize
			if daysInChunk > s.chunkSize {
				daysInChunk = s.chunkSize
			}

			chunkStart := time.Now()
			raw, err := s.backend.Generate(gctx, getDayChunkPrompt(req.Destination, startDay, daysInChunk))
			if err != nil {
				return fmt.Errorf("chunk for days %d-%d failed: %w", startDay, startDay+daysInChunk-1, err)
			}
			days, err := parseDayChunk(raw)
			if err != nil {
				return err
			}

			// Stamp dates from the request; the model's own date text is never trusted.
			for j := range days {
				date, err := req.DateForDayOffset(i*s.chunkSize + (days[j].Day - startDay))
				if err != nil {
					return fmt.Errorf("%w: %v", types.ErrInvalidRequest, err)
				}
				days[j].Date = date
			}

			l.DebugContext(gctx, "Day chunk generated",
				slog.Int("start_day", startDay),
				slog.Int("days_in_chunk", daysInChunk),
				slog.Duration("duration", time.Since(chunkStart)),
			)
			dayChunks[i] = days
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if s.metrics != nil {
			s.metrics.GenerationErrorsTotal.Add(ctx, 1)
		}
		l.ErrorContext(ctx, "Trip plan generation failed", slog.Any("error", err))
		return nil, err
	}

	days := make([]types.DayPlan, 0, numberOfDays)
	for _, chunk := range dayChunks {
		days = append(days, chunk...)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	if len(days) != numberOfDays {
		return nil, fmt.Errorf("%w: expected %d days, got %d", types.ErrDayCountMismatch, numberOfDays, len(days))
	}
	for i := range days {
		if days[i].Day != i+1 {
			return nil, fmt.Errorf("%w: day numbers have gaps or duplicates at position %d", types.ErrDayCountMismatch, i+1)
		}
	}

	if err := validateAccommodations(accommodations); err != nil {
		return nil, err
	}
	for i := range days {
		if err := repairDay(&days[i]); err != nil {
			return nil, err
		}
	}

	plan := &types.TripPlan{
		ID:             uuid.New(),
		Accommodations: accommodations,
		Days:           days,
	}
	s.enrichWithImages(ctx, plan, req.Destination)

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.PlanRequestsTotal.Add(ctx, 1)
		s.metrics.PlanDurationSeconds.Record(ctx, duration.Seconds())
	}
	l.InfoContext(ctx, "Trip plan generation completed",
		slog.String("plan_id", plan.ID.String()),
		slog.Int("days", numberOfDays),
		slog.Int("chunks", chunkCount),
		slog.Duration("duration", duration),
	)
	return plan, nil
}

// enrichWithImages resolves a photo for every accommodation and place
// concurrently. Lookups never fail upward: a miss degrades to stock imagery
// inside the photo service, so the join only ever waits, never errors.
func (s *ServiceImpl) enrichWithImages(ctx context.Context, plan *types.TripPlan, destination string) {
	var wg sync.WaitGroup

	for i := range plan.Accommodations {
		wg.Add(1)
		go func(a *types.Accommodation) {
			defer wg.Done()
			a.Image = s.photos.GetPlacePhoto(ctx, places.PhotoQuery{
				Name:        a.Name,
				Destination: destination,
				Kind:        places.KindAccommodation,
			})
		}(&plan.Accommodations[i])
	}

	for i := range plan.Days {
		for j := range plan.Days[i].Places {
			wg.Add(1)
			go func(p *types.Place) {
				defer wg.Done()
				kind := places.KindAttraction
				if p.Kind == types.PlaceRestaurant {
					kind = places.KindRestaurant
				}
				p.Image = s.photos.GetPlacePhoto(ctx, places.PhotoQuery{
					Name:        p.Name,
					Location:    p.Location,
					Destination: destination,
					Kind:        kind,
				})
			}(&plan.Days[i].Places[j])
		}
	}

	wg.Wait()
}
