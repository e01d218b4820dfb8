package domain

// GeoPoint is a WGS84 coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// Marker is the map-displayable projection of an activity.
type Marker struct {
	ActivityID ActivityID
	Position   GeoPoint
	Title      string
	Snippet    string
}
