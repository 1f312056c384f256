package planner

import (
	"fmt"
	"sort"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// validateAccommodations enforces the structural contract on a generated
// accommodation set. Nothing here is repaired: a violation means the whole
// response was malformed and the caller must regenerate.
func validateAccommodations(accommodations []types.Accommodation) error {
	if len(accommodations) != 4 {
		return fmt.Errorf("%w: got %d", types.ErrInvalidAccommodationCount, len(accommodations))
	}

	categories := make(map[types.AccommodationCategory]bool, len(accommodations))
	names := make(map[string]bool, len(accommodations))
	prices := make(map[float64]bool, len(accommodations))
	for _, a := range accommodations {
		categories[a.Category] = true
		if names[a.Name] {
			return fmt.Errorf("%w: %q", types.ErrDuplicateAccommodationName, a.Name)
		}
		names[a.Name] = true
		if prices[a.PricePerNight] {
			return fmt.Errorf("%w: %.2f", types.ErrDuplicatePrice, a.PricePerNight)
		}
		prices[a.PricePerNight] = true
	}

	for _, required := range types.RequiredAccommodationCategories() {
		if !categories[required] {
			return fmt.Errorf("%w: missing %q", types.ErrMissingCategory, required)
		}
	}

	var luxury, budget *types.Accommodation
	for i := range accommodations {
		switch accommodations[i].Category {
		case types.CategoryLuxury:
			luxury = &accommodations[i]
		case types.CategoryBudgetFriendly:
			budget = &accommodations[i]
		}
	}
	if luxury != nil && budget != nil && luxury.PricePerNight <= budget.PricePerNight {
		return fmt.Errorf("%w: luxury %.2f vs budget %.2f",
			types.ErrPriceOrderingViolation, luxury.PricePerNight, budget.PricePerNight)
	}
	return nil
}

// repairDay enforces the per-day contract, fixing what it mechanically can:
// a day missing a midday restaurant gets its first restaurant retagged to
// afternoon, a day missing an evening restaurant gets its last one retagged
// to evening, and places are re-sorted by time of day (stable, so ties keep
// their arrival order). Too few attractions or restaurants is fatal.
//
// Place names are only unique within the chunk that generated them; two
// chunks can legitimately suggest the same restaurant on different days.
// That is a known limitation of the per-chunk generation contract.
func repairDay(day *types.DayPlan) error {
	var attractions, restaurants []int
	for i, place := range day.Places {
		switch place.Kind {
		case types.PlaceAttraction:
			attractions = append(attractions, i)
		case types.PlaceRestaurant:
			restaurants = append(restaurants, i)
		}
	}

	if len(attractions) < 2 || len(restaurants) < 2 {
		return fmt.Errorf("%w: day %d has %d attractions and %d restaurants",
			types.ErrInsufficientPlaces, day.Day, len(attractions), len(restaurants))
	}

	// Both presence checks look at the tags as generated, before any retag.
	hasMidday := false
	hasEvening := false
	for _, i := range restaurants {
		switch day.Places[i].TimeOfDay {
		case types.TimeMorning, types.TimeAfternoon:
			hasMidday = true
		case types.TimeEvening:
			hasEvening = true
		}
	}
	if !hasMidday {
		day.Places[restaurants[0]].TimeOfDay = types.TimeAfternoon
	}
	if !hasEvening {
		day.Places[restaurants[len(restaurants)-1]].TimeOfDay = types.TimeEvening
	}

	sort.SliceStable(day.Places, func(i, j int) bool {
		return day.Places[i].TimeOfDay.Order() < day.Places[j].TimeOfDay.Order()
	})
	return nil
}
