package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// cleanResponseText strips the formatting noise models wrap around JSON
// payloads: markdown code fences, smart quotes, and any prose around the
// outermost object.
func cleanResponseText(response string) string {
	response = strings.TrimSpace(response)

	// Remove markdown code block markers
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}

	// Normalize smart quotes to plain quotes
	response = strings.NewReplacer(
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	).Replace(response)

	response = strings.TrimSpace(response)

	// Extract the JSON object from responses that still carry explanatory text
	firstBrace := strings.Index(response, "{")
	lastBrace := strings.LastIndex(response, "}")
	if firstBrace == -1 || lastBrace == -1 || lastBrace <= firstBrace {
		return response
	}
	return response[firstBrace : lastBrace+1]
}

func parseAccommodations(raw string) ([]types.Accommodation, error) {
	var payload struct {
		Accommodations []types.Accommodation `json:"accommodations"`
	}
	if err := json.Unmarshal([]byte(cleanResponseText(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse accommodations JSON: %v", types.ErrGenerationBackend, err)
	}
	return payload.Accommodations, nil
}

func parseDayChunk(raw string) ([]types.DayPlan, error) {
	var payload struct {
		Days []types.DayPlan `json:"days"`
	}
	if err := json.Unmarshal([]byte(cleanResponseText(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse day chunk JSON: %v", types.ErrGenerationBackend, err)
	}
	if len(payload.Days) == 0 {
		return nil, fmt.Errorf("%w: day chunk contained no days", types.ErrGenerationBackend)
	}
	return payload.Days, nil
}
