// Package mapview projects activities onto map markers around a viewer.
package mapview

import (
	"math"
	"strings"

	"github.com/actilink/actilink-api/internal/domain"
)

const (
	// EarthRadiusMeters is the fixed sphere radius used by Haversine.
	EarthRadiusMeters = 6_371_000.0

	// DefaultThresholdKm is the radius used when the caller gives none.
	DefaultThresholdKm = 10.0
)

// DefaultViewer is used when no viewer location is known.
var DefaultViewer = domain.GeoPoint{Latitude: 48.8584, Longitude: 2.2945}

// ResolveViewer returns p, or DefaultViewer when p is nil.
func ResolveViewer(p *domain.GeoPoint) domain.GeoPoint {
	if p == nil {
		return DefaultViewer
	}
	return *p
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b domain.GeoPoint) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h slightly past 1 near the antipode.
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Project returns one marker per activity within thresholdKm of viewer, in input
// order. A non-empty search further keeps only titles containing it, ignoring case.
// A negative threshold yields no markers.
func Project(activities []domain.Activity, viewer domain.GeoPoint, thresholdKm float64, search string) []domain.Marker {
	out := make([]domain.Marker, 0)
	if thresholdKm < 0 || math.IsNaN(thresholdKm) {
		return out
	}
	limit := thresholdKm * 1000
	q := strings.ToLower(strings.TrimSpace(search))
	for _, a := range activities {
		if Haversine(viewer, a.Position()) > limit {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(a.Title), q) {
			continue
		}
		out = append(out, domain.Marker{
			ActivityID: a.ID,
			Position:   a.Position(),
			Title:      a.Title,
			Snippet:    Snippet(a),
		})
	}
	return out
}

// Snippet renders the marker caption, e.g. "Date: 2025-05-10 • Time: 08h30-10h00".
func Snippet(a domain.Activity) string {
	return "Date: " + a.Date + " • Time: " + clock(a.StartTime) + "-" + clock(a.EndTime)
}

func clock(hhmm string) string {
	return strings.Replace(hhmm, ":", "h", 1)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
