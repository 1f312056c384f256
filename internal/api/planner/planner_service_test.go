package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api/places"
	"github.com/FACorreiaa/go-trip-planner/internal/ratelimit"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// --- Mocks ---

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Provider() string { return "mock" }

type MockPhotoService struct {
	mock.Mock
}

func (m *MockPhotoService) GetPlacePhoto(ctx context.Context, query places.PhotoQuery) string {
	args := m.Called(ctx, query)
	return args.String(0)
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parisRequest() types.TravelPlanRequest {
	return types.TravelPlanRequest{
		Destination: "Paris",
		StartDate:   "2024-06-01",
		EndDate:     "2024-06-03",
		BudgetMin:   500,
		BudgetMax:   3000,
	}
}

func accommodationsResponse(t *testing.T, accommodations []types.Accommodation) string {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"accommodations": accommodations})
	require.NoError(t, err)
	return string(raw)
}

// chunkResponse builds a well-formed chunk for numDays days starting at
// startDay. Dates are deliberately bogus so tests can prove they get
// overwritten from the request.
func chunkResponse(t *testing.T, startDay, numDays int) string {
	t.Helper()
	days := make([]types.DayPlan, numDays)
	for i := 0; i < numDays; i++ {
		day := startDay + i
		days[i] = types.DayPlan{
			Day:  day,
			Date: "1999-12-31",
			Places: []types.Place{
				attraction(fmt.Sprintf("Attraction %d-A", day), types.TimeMorning),
				restaurant(fmt.Sprintf("Restaurant %d-Lunch", day), types.TimeAfternoon),
				attraction(fmt.Sprintf("Attraction %d-B", day), types.TimeAfternoon),
				restaurant(fmt.Sprintf("Restaurant %d-Dinner", day), types.TimeEvening),
			},
			Transportation: "Metro",
		}
	}
	raw, err := json.Marshal(map[string]interface{}{"days": days})
	require.NoError(t, err)
	return string(raw)
}

func accommodationsPromptMatcher() interface{} {
	return mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "hotels/places to stay")
	})
}

func chunkPromptMatcher(startDay, endDay int) interface{} {
	return mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, fmt.Sprintf("days %d-%d", startDay, endDay))
	})
}

// --- Tests ---

func TestGenerateTripPlan_ThreeDayPlan(t *testing.T) {
	backend := new(MockBackend)
	photos := new(MockPhotoService)
	service := NewService(backend, photos, nil, 3, testLogger())

	backend.On("Generate", mock.Anything, accommodationsPromptMatcher()).
		Return(accommodationsResponse(t, validAccommodations()), nil).Once()
	backend.On("Generate", mock.Anything, chunkPromptMatcher(1, 3)).
		Return(chunkResponse(t, 1, 3), nil).Once()
	photos.On("GetPlacePhoto", mock.Anything, mock.Anything).
		Return("https://example.com/photo.jpg")

	plan, err := service.GenerateTripPlan(context.Background(), parisRequest())
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.NotEqual(t, uuid.Nil, plan.ID)

	require.Len(t, plan.Days, 3)
	expectedDates := []string{"2024-06-01", "2024-06-02", "2024-06-03"}
	for i, day := range plan.Days {
		assert.Equal(t, i+1, day.Day)
		assert.Equal(t, expectedDates[i], day.Date, "model dates are replaced with request dates")
		for _, place := range day.Places {
			assert.NotEmpty(t, place.Image, "place %q should be enriched", place.Name)
		}
	}

	require.Len(t, plan.Accommodations, 4)
	for _, a := range plan.Accommodations {
		assert.NotEmpty(t, a.Image, "accommodation %q should be enriched", a.Name)
	}

	// 4 accommodations + 3 days x 4 places
	photos.AssertNumberOfCalls(t, "GetPlacePhoto", 16)
	backend.AssertExpectations(t)
}

func TestGenerateTripPlan_FiveDaysSplitsIntoTwoChunks(t *testing.T) {
	backend := new(MockBackend)
	photos := new(MockPhotoService)
	service := NewService(backend, photos, nil, 3, testLogger())

	req := parisRequest()
	req.EndDate = "2024-06-05"

	backend.On("Generate", mock.Anything, accommodationsPromptMatcher()).
		Return(accommodationsResponse(t, validAccommodations()), nil).Once()
	backend.On("Generate", mock.Anything, chunkPromptMatcher(1, 3)).
		Return(chunkResponse(t, 1, 3), nil).Once()
	backend.On("Generate", mock.Anything, chunkPromptMatcher(4, 5)).
		Return(chunkResponse(t, 4, 2), nil).Once()
	photos.On("GetPlacePhoto", mock.Anything, mock.Anything).
		Return("https://example.com/photo.jpg")

	plan, err := service.GenerateTripPlan(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, plan.Days, 5)
	for i, day := range plan.Days {
		assert.Equal(t, i+1, day.Day, "merged days are ordered 1..N")
	}
	assert.Equal(t, "2024-06-04", plan.Days[3].Date)
	assert.Equal(t, "2024-06-05", plan.Days[4].Date)

	backend.AssertNumberOfCalls(t, "Generate", 3)
}

func TestGenerateTripPlan_KindSpecificEnrichmentQueries(t *testing.T) {
	backend := new(MockBackend)
	photos := new(MockPhotoService)
	service := NewService(backend, photos, nil, 3, testLogger())

	req := parisRequest()
	req.EndDate = "2024-06-01"

	backend.On("Generate", mock.Anything, accommodationsPromptMatcher()).
		Return(accommodationsResponse(t, validAccommodations()), nil)
	backend.On("Generate", mock.Anything, chunkPromptMatcher(1, 1)).
		Return(chunkResponse(t, 1, 1), nil)

	photos.On("GetPlacePhoto", mock.Anything, mock.MatchedBy(func(q places.PhotoQuery) bool {
		return q.Kind == places.KindAccommodation
	})).Return("https://example.com/hotel.jpg")
	photos.On("GetPlacePhoto", mock.Anything, mock.MatchedBy(func(q places.PhotoQuery) bool {
		return q.Kind == places.KindRestaurant
	})).Return("https://example.com/restaurant.jpg")
	photos.On("GetPlacePhoto", mock.Anything, mock.MatchedBy(func(q places.PhotoQuery) bool {
		return q.Kind == places.KindAttraction
	})).Return("https://example.com/attraction.jpg")

	plan, err := service.GenerateTripPlan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/hotel.jpg", plan.Accommodations[0].Image)
	for _, place := range plan.Days[0].Places {
		switch place.Kind {
		case types.PlaceRestaurant:
			assert.Equal(t, "https://example.com/restaurant.jpg", place.Image)
		case types.PlaceAttraction:
			assert.Equal(t, "https://example.com/attraction.jpg", place.Image)
		}
	}
}

func TestGenerateTripPlan_InvalidRequestSkipsBackend(t *testing.T) {
	backend := new(MockBackend)
	photos := new(MockPhotoService)
	service := NewService(backend, photos, nil, 3, testLogger())

	req := parisRequest()
	req.StartDate = "not-a-date"

	_, err := service.GenerateTripPlan(context.Background(), req)
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
	backend.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerateTripPlan_BadAccommodationSetFailsWithoutEnrichment(t *testing.T) {
	backend := new(MockBackend)
	photos := new(MockPhotoService)
	service := NewService(backend, photos, nil, 3, testLogger())

	backend.On("Generate", mock.Anything, accommodationsPromptMatcher()).
		Return(accommodationsResponse(t, validAccommodations()[:3]), nil)
	backend.On("Generate", mock.Anything, chunkPromptMatcher(1, 3)).
		Return(chunkResponse(t, 1, 3), nil)

	_, err := service.GenerateTripPlan(context.Background(), parisRequest())
	assert.ErrorIs(t, err, types.ErrInvalidAccommodationCount)
	photos.AssertNotCalled(t, "GetPlacePhoto", mock.Anything, mock.Anything)
}

func TestGenerateTripPlan_ChunkFailureFailsWholePipeline(t *testing.T) {
	backend := new(MockBackend)
	photos := new(MockPhotoService)
	service := NewService(backend, photos, nil, 3, testLogger())

	backend.On("Generate", mock.Anything, accommodationsPromptMatcher()).
		Return(accommodationsResponse(t, validAccommodations()), nil).Maybe()
	backend.On("Generate", mock.Anything, chunkPromptMatcher(1, 3)).
		Return("", fmt.Errorf("%w: model unavailable", types.ErrGenerationBackend))

	_, err := service.GenerateTripPlan(context.Background(), parisRequest())
	assert.ErrorIs(t, err, types.ErrGenerationBackend)
	photos.AssertNotCalled(t, "GetPlacePhoto", mock.Anything, mock.Anything)
}

func TestGenerateTripPlan_DuplicateDayNumbersFail(t *testing.T) {
	backend := new(MockBackend)
	photos := new(MockPhotoService)
	service := NewService(backend, photos, nil, 3, testLogger())

	// Chunk claims days 1, 1, 2 instead of 1, 2, 3
	days := []types.DayPlan{
		{Day: 1, Places: fourPlaces(1)},
		{Day: 1, Places: fourPlaces(1)},
		{Day: 2, Places: fourPlaces(2)},
	}
	raw, err := json.Marshal(map[string]interface{}{"days": days})
	require.NoError(t, err)

	backend.On("Generate", mock.Anything, accommodationsPromptMatcher()).
		Return(accommodationsResponse(t, validAccommodations()), nil)
	backend.On("Generate", mock.Anything, chunkPromptMatcher(1, 3)).
		Return(string(raw), nil)

	_, err = service.GenerateTripPlan(context.Background(), parisRequest())
	assert.ErrorIs(t, err, types.ErrDayCountMismatch)
}

func TestGenerateTripPlan_DeduplicatesConcurrentIdenticalRequests(t *testing.T) {
	backend := new(MockBackend)
	photos := new(MockPhotoService)
	service := NewService(backend, photos, nil, 3, testLogger())

	req := parisRequest()
	req.EndDate = "2024-06-02" // 2 days, one chunk

	// Slow the backend down so the second caller arrives while the first
	// generation is still in flight.
	backend.On("Generate", mock.Anything, accommodationsPromptMatcher()).
		Run(func(args mock.Arguments) { time.Sleep(100 * time.Millisecond) }).
		Return(accommodationsResponse(t, validAccommodations()), nil)
	backend.On("Generate", mock.Anything, chunkPromptMatcher(1, 2)).
		Run(func(args mock.Arguments) { time.Sleep(100 * time.Millisecond) }).
		Return(chunkResponse(t, 1, 2), nil)
	photos.On("GetPlacePhoto", mock.Anything, mock.Anything).
		Return("https://example.com/photo.jpg")

	var wg sync.WaitGroup
	plans := make([]*types.TripPlan, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plans[i], errs[i] = service.GenerateTripPlan(context.Background(), req)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, plans[0].ID, plans[1].ID, "both callers share one generated plan")

	// One accommodations call plus one chunk call, not two of each
	backend.AssertNumberOfCalls(t, "Generate", 2)
}

func TestGenerateTripPlan_DifferentRequestsAreNotDeduplicated(t *testing.T) {
	backend := new(MockBackend)
	photos := new(MockPhotoService)
	service := NewService(backend, photos, nil, 3, testLogger())

	backend.On("Generate", mock.Anything, accommodationsPromptMatcher()).
		Return(accommodationsResponse(t, validAccommodations()), nil)
	backend.On("Generate", mock.Anything, chunkPromptMatcher(1, 3)).
		Return(chunkResponse(t, 1, 3), nil)
	photos.On("GetPlacePhoto", mock.Anything, mock.Anything).
		Return("https://example.com/photo.jpg")

	first, err := service.GenerateTripPlan(context.Background(), parisRequest())
	require.NoError(t, err)

	other := parisRequest()
	other.BudgetMax = 9000
	second, err := service.GenerateTripPlan(context.Background(), other)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	backend.AssertNumberOfCalls(t, "Generate", 4)
}

// stubBackend drives call-dependent behavior the static mock cannot express,
// like blocking until the pipeline's context is cancelled.
type stubBackend struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, call int, prompt string) (string, error)
}

func (s *stubBackend) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(ctx, call, prompt)
}

func (s *stubBackend) Provider() string { return "stub" }

func (s *stubBackend) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestGenerateTripPlan_CancellationReleasesInFlightEntry(t *testing.T) {
	photos := new(MockPhotoService)
	photos.On("GetPlacePhoto", mock.Anything, mock.Anything).
		Return("https://example.com/photo.jpg")

	// First generation round (accommodations + one chunk) hangs until the
	// caller cancels; every later call behaves normally.
	var settled sync.WaitGroup
	settled.Add(2)
	backend := &stubBackend{}
	backend.fn = func(ctx context.Context, call int, prompt string) (string, error) {
		if call <= 2 {
			defer settled.Done()
			<-ctx.Done()
			return "", ctx.Err()
		}
		if strings.Contains(prompt, "hotels/places to stay") {
			return accommodationsResponse(t, validAccommodations()), nil
		}
		return chunkResponse(t, 1, 2), nil
	}

	service := NewService(backend, photos, nil, 3, testLogger())

	req := parisRequest()
	req.EndDate = "2024-06-02" // 2 days, one chunk

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := service.GenerateTripPlan(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)

	// The fingerprint is released once the shared call settles, which happens
	// after both outstanding generation calls observe the cancellation.
	settled.Wait()
	time.Sleep(20 * time.Millisecond)

	plan, err := service.GenerateTripPlan(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, 4, backend.callCount(), "retry runs a fresh generation instead of joining the dead one")
}

func TestGenerateTripPlan_PhotoLookupFailuresNeverFailPipeline(t *testing.T) {
	// A photo backend that always errors: enrichment must degrade to stock
	// imagery without surfacing anything to the pipeline.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	t.Setenv("GOOGLE_PLACES_API_KEY", "test-key")
	logger := testLogger()
	limiter := ratelimit.NewLimiter(map[string]config.RateLimitConfig{
		ratelimit.KeyGooglePlaces: {Window: time.Minute, MaxRequests: 100},
	}, logger)

	var cfg config.Config
	cfg.Places.BaseURL = server.URL
	cfg.Places.MaxWidth = 800
	cfg.Places.CacheTTL = time.Minute
	photoService := places.NewService(cfg, limiter, nil, logger)

	backend := new(MockBackend)
	backend.On("Generate", mock.Anything, accommodationsPromptMatcher()).
		Return(accommodationsResponse(t, validAccommodations()), nil)
	backend.On("Generate", mock.Anything, chunkPromptMatcher(1, 3)).
		Return(chunkResponse(t, 1, 3), nil)

	service := NewService(backend, photoService, nil, 3, logger)
	plan, err := service.GenerateTripPlan(context.Background(), parisRequest())
	require.NoError(t, err)

	for _, a := range plan.Accommodations {
		assert.True(t, strings.HasPrefix(a.Image, "https://images.unsplash.com/"),
			"accommodation %q should carry stock imagery, got %q", a.Name, a.Image)
	}
	for _, day := range plan.Days {
		for _, place := range day.Places {
			assert.True(t, strings.HasPrefix(place.Image, "https://images.unsplash.com/"),
				"place %q should carry stock imagery, got %q", place.Name, place.Image)
		}
	}
}

func fourPlaces(day int) []types.Place {
	return []types.Place{
		attraction(fmt.Sprintf("Attraction %d-A", day), types.TimeMorning),
		restaurant(fmt.Sprintf("Restaurant %d-Lunch", day), types.TimeAfternoon),
		attraction(fmt.Sprintf("Attraction %d-B", day), types.TimeAfternoon),
		restaurant(fmt.Sprintf("Restaurant %d-Dinner", day), types.TimeEvening),
	}
}
