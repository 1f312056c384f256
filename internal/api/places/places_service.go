package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/ratelimit"
)

// PhotoKind selects the fallback pool when a lookup yields nothing.
type PhotoKind string

const (
	KindAttraction    PhotoKind = "attraction"
	KindRestaurant    PhotoKind = "restaurant"
	KindAccommodation PhotoKind = "accommodation"
)

// PhotoQuery carries the hints for one lookup, most specific first.
type PhotoQuery struct {
	Name        string
	Location    string
	Destination string
	Kind        PhotoKind
}

// Service resolves a human-readable place name to a representative photo URL.
// Resolution is best-effort: it never returns an error, only a usable URL.
type Service interface {
	GetPlacePhoto(ctx context.Context, query PhotoQuery) string
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger     *slog.Logger
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *cache.Cache
	metrics    *metrics.AppMetrics

	apiKey   string
	baseURL  string
	maxWidth int

	// per-kind cursors cycling the fallback pools
	fallbackCursors map[PhotoKind]*atomic.Uint64
}

func NewService(cfg config.Config, limiter *ratelimit.Limiter, appMetrics *metrics.AppMetrics, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    limiter,
		cache:      cache.New(cfg.Places.CacheTTL, 1*time.Hour),
		metrics:    appMetrics,
		apiKey:     os.Getenv("GOOGLE_PLACES_API_KEY"),
		baseURL:    cfg.Places.BaseURL,
		maxWidth:   cfg.Places.MaxWidth,
		fallbackCursors: map[PhotoKind]*atomic.Uint64{
			KindAttraction:    {},
			KindRestaurant:    {},
			KindAccommodation: {},
		},
	}
}

// GetPlacePhoto builds a text query from the hints, asks the Places API for a
// candidate with photos and returns the constructed photo URL. On any failure
// (rate limit, transport, no candidate, no photo) it degrades to a stock image
// for the query's kind instead of surfacing an error.
func (s *ServiceImpl) GetPlacePhoto(ctx context.Context, query PhotoQuery) string {
	input := buildSearchInput(query)
	cacheKey := "photo:" + input

	if cached, found := s.cache.Get(cacheKey); found {
		if u, ok := cached.(string); ok {
			return u
		}
	}

	photoURL, err := s.lookupPhoto(ctx, input)
	if err != nil {
		s.logger.DebugContext(ctx, "Place photo lookup failed, using fallback",
			slog.String("query", input),
			slog.String("kind", string(query.Kind)),
			slog.Any("error", err),
		)
		if s.metrics != nil {
			s.metrics.PhotoFallbacksTotal.Add(ctx, 1)
		}
		return s.fallbackImage(query.Kind)
	}

	s.cache.Set(cacheKey, photoURL, cache.DefaultExpiration)
	return photoURL
}

func (s *ServiceImpl) lookupPhoto(ctx context.Context, input string) (string, error) {
	if err := s.limiter.Check(ratelimit.KeyGooglePlaces, "places_api"); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("input", input)
	params.Set("inputtype", "textquery")
	params.Set("fields", "photos")
	params.Set("key", s.apiKey)

	endpoint := s.baseURL + "/findplacefromtext/json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("places api error: %s", resp.Status)
	}

	var result struct {
		Candidates []struct {
			Photos []struct {
				PhotoReference string `json:"photo_reference"`
			} `json:"photos"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Photos) == 0 {
		return "", fmt.Errorf("no photo candidates for %q", input)
	}

	ref := result.Candidates[0].Photos[0].PhotoReference
	return fmt.Sprintf("%s/photo?maxwidth=%d&photoreference=%s&key=%s", s.baseURL, s.maxWidth, ref, s.apiKey), nil
}

func buildSearchInput(query PhotoQuery) string {
	hints := make([]string, 0, 3)
	for _, hint := range []string{query.Name, query.Location, query.Destination} {
		if strings.TrimSpace(hint) != "" {
			hints = append(hints, strings.TrimSpace(hint))
		}
	}
	return strings.Join(hints, ", ")
}

// fallbackImage cycles over a fixed stock pool per kind so a plan full of
// fallbacks still shows visual variety rather than one repeated image.
func (s *ServiceImpl) fallbackImage(kind PhotoKind) string {
	pool, ok := fallbackPools[kind]
	if !ok {
		pool = fallbackPools[KindAttraction]
	}
	cursor, ok := s.fallbackCursors[kind]
	if !ok {
		cursor = s.fallbackCursors[KindAttraction]
	}
	n := cursor.Add(1) - 1
	return pool[n%uint64(len(pool))]
}

var fallbackPools = map[PhotoKind][]string{
	KindAttraction: {
		"https://images.unsplash.com/photo-1499678329028-101435549a4e?w=800&q=80",
		"https://images.unsplash.com/photo-1523906834658-6e24ef2386f9?w=800&q=80",
		"https://images.unsplash.com/photo-1480796927426-f609979314bd?w=800&q=80",
		"https://images.unsplash.com/photo-1528181304800-259b08848526?w=800&q=80",
	},
	KindRestaurant: {
		"https://images.unsplash.com/photo-1517248135467-4c7edcad34c4?w=800&q=80",
		"https://images.unsplash.com/photo-1414235077428-338989a2e8c0?w=800&q=80",
		"https://images.unsplash.com/photo-1552566626-52f8b828add9?w=800&q=80",
		"https://images.unsplash.com/photo-1466978913421-dad2ebd01d17?w=800&q=80",
	},
	KindAccommodation: {
		"https://images.unsplash.com/photo-1566073771259-6a8506099945?w=800&q=80",
		"https://images.unsplash.com/photo-1571003123894-1f0594d2b5d9?w=800&q=80",
		"https://images.unsplash.com/photo-1551882547-ff40c63fe5fa?w=800&q=80",
		"https://images.unsplash.com/photo-1520250497591-112f2f40a3f4?w=800&q=80",
	},
}
