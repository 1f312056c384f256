package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type AccommodationCategory string

const (
	CategoryLuxury         AccommodationCategory = "Luxury"
	CategoryMidRange       AccommodationCategory = "Mid-range"
	CategoryBudgetFriendly AccommodationCategory = "Budget-friendly"
	CategoryUniqueBoutique AccommodationCategory = "Unique/Boutique"
)

// RequiredAccommodationCategories lists the categories every plan must cover,
// one accommodation each.
func RequiredAccommodationCategories() []AccommodationCategory {
	return []AccommodationCategory{
		CategoryLuxury,
		CategoryMidRange,
		CategoryBudgetFriendly,
		CategoryUniqueBoutique,
	}
}

type PlaceKind string

const (
	PlaceAttraction PlaceKind = "attraction"
	PlaceRestaurant PlaceKind = "restaurant"
)

type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
)

// Order returns the sort rank for a time of day: morning < afternoon < evening.
// Unknown values sort after evening so malformed entries stay visible at the end.
func (t TimeOfDay) Order() int {
	switch t {
	case TimeMorning:
		return 0
	case TimeAfternoon:
		return 1
	case TimeEvening:
		return 2
	default:
		return 3
	}
}

// TravelPlanRequest is the immutable input of one generation run.
// Dates are calendar dates in YYYY-MM-DD form, interpreted in UTC.
type TravelPlanRequest struct {
	Destination string  `json:"destination"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	BudgetMin   float64 `json:"budgetMin"`
	BudgetMax   float64 `json:"budgetMax"`
}

// Validate rejects requests the pipeline cannot work with. The HTTP layer is
// expected to have validated already; this is the pipeline's own guard.
func (r TravelPlanRequest) Validate() error {
	if r.Destination == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidRequest)
	}
	start, err := r.Start()
	if err != nil {
		return fmt.Errorf("%w: invalid startDate %q", ErrInvalidRequest, r.StartDate)
	}
	end, err := r.End()
	if err != nil {
		return fmt.Errorf("%w: invalid endDate %q", ErrInvalidRequest, r.EndDate)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: endDate before startDate", ErrInvalidRequest)
	}
	if r.BudgetMin < 0 || r.BudgetMax < r.BudgetMin {
		return fmt.Errorf("%w: invalid budget range", ErrInvalidRequest)
	}
	return nil
}

func (r TravelPlanRequest) Start() (time.Time, error) {
	return time.ParseInLocation(dateLayout, r.StartDate, time.UTC)
}

func (r TravelPlanRequest) End() (time.Time, error) {
	return time.ParseInLocation(dateLayout, r.EndDate, time.UTC)
}

// NumberOfDays is the inclusive day count of the requested range, so a
// request from 2024-06-01 to 2024-06-03 spans 3 days.
func (r TravelPlanRequest) NumberOfDays() (int, error) {
	start, err := r.Start()
	if err != nil {
		return 0, err
	}
	end, err := r.End()
	if err != nil {
		return 0, err
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}

// DateForDayOffset stamps the calendar date for the day at the given zero-based
// offset from the request start. Dates are always derived here, never taken
// from model output.
func (r TravelPlanRequest) DateForDayOffset(offset int) (string, error) {
	start, err := r.Start()
	if err != nil {
		return "", err
	}
	return start.AddDate(0, 0, offset).Format(dateLayout), nil
}

// Fingerprint is the normalized dedup key for concurrent identical requests.
func (r TravelPlanRequest) Fingerprint() string {
	key, _ := json.Marshal(r)
	return string(key)
}

type Accommodation struct {
	Name          string                `json:"name"`
	Category      AccommodationCategory `json:"type"`
	Rating        float64               `json:"rating"`
	PricePerNight float64               `json:"pricePerNight"`
	Description   string                `json:"description"`
	Amenities     []string              `json:"amenities"`
	BookingURL    string                `json:"bookingUrl"`
	Image         string                `json:"image,omitempty"`
}

type Place struct {
	Name        string    `json:"name"`
	Kind        PlaceKind `json:"type"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	TimeOfDay   TimeOfDay `json:"timeOfDay"`
	Duration    string    `json:"duration"`
	Cuisine     string    `json:"cuisine,omitempty"`
	PriceRange  string    `json:"priceRange,omitempty"`
	Image       string    `json:"image,omitempty"`
}

type DayPlan struct {
	Day            int     `json:"day"`
	Date           string  `json:"date"`
	Places         []Place `json:"places"`
	Transportation string  `json:"transportation"`
}

// TripPlan is the finished pipeline output: exactly one accommodation per
// required category and one DayPlan per requested day, numbered 1..N.
type TripPlan struct {
	ID             uuid.UUID       `json:"id"`
	Accommodations []Accommodation `json:"accommodations"`
	Days           []DayPlan       `json:"days"`
}
