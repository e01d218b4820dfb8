package activities

import "github.com/actilink/actilink-api/internal/domain"

// ActivityInput carries the user-editable fields of an activity.
type ActivityInput struct {
	Title     string
	Category  string
	Date      string // YYYY-MM-DD
	StartTime string // HH:MM
	EndTime   string // HH:MM
	Location  string
	Latitude  float64
	Longitude float64
}

// MarkersQuery selects markers around a viewer. A nil Viewer falls back to the
// default location and a nil RadiusKm to the default radius.
type MarkersQuery struct {
	Viewer   *domain.GeoPoint
	RadiusKm *float64
	Search   string
}
