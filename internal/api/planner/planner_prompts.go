package planner

import "fmt"

func getAccommodationsPrompt(destination string, budgetMin, budgetMax float64) string {
	return fmt.Sprintf(`Suggest exactly 4 DIFFERENT and UNIQUE hotels/places to stay in %s with a budget range of %.0f to %.0f, each with distinct characteristics:
1. A high-end luxury option
2. A mid-range option with excellent reviews
3. A budget-friendly option with good value
4. A unique or boutique option

Each accommodation must have a different name and different price point.

Return ONLY a valid JSON object with NO additional text, following this EXACT structure:
{
  "accommodations": [
    {
      "name": "string",
      "type": "Luxury | Mid-range | Budget-friendly | Unique/Boutique",
      "rating": number,
      "pricePerNight": number,
      "description": "string",
      "amenities": ["string"],
      "bookingUrl": "string"
    }
  ]
}`, destination, budgetMin, budgetMax)
}

func getDayChunkPrompt(destination string, startDay, numDays int) string {
	return fmt.Sprintf(`Create a %d-day itinerary for days %d-%d of a trip to %s.
Each day MUST include EXACTLY:
- 2 attractions/activities (with descriptions, locations, and durations)
- 2 restaurants (MUST BE UNIQUE across all days in this chunk):
  * One for lunch/brunch (timeOfDay should be "afternoon")
  * One for dinner (timeOfDay should be "evening")
- Transportation suggestions

IMPORTANT: Ensure all restaurants and attractions are UNIQUE within this %d-day chunk. Do not repeat any place names.

Return ONLY a valid JSON object with NO additional text, following this EXACT structure:
{
  "days": [
    {
      "day": number,
      "date": "YYYY-MM-DD",
      "places": [
        {
          "name": "string",
          "type": "attraction | restaurant",
          "description": "string",
          "location": "string",
          "timeOfDay": "morning | afternoon | evening",
          "duration": "string",
          "cuisine": "string (only for restaurants)",
          "priceRange": "string (only for restaurants)"
        }
      ],
      "transportation": "string"
    }
  ]
}`, numDays, startDay, startDay+numDays-1, destination, numDays)
}
