package domain

import "strings"

// Activity is a user-created event with a time, a place and a participant set.
//
// Date is YYYY-MM-DD; StartTime and EndTime are HH:MM (either may be empty).
// Participants is a set: ids are unique and kept in join order.
// Creatorship and participation are independent of each other.
type Activity struct {
	ID        ActivityID
	Title     string
	Category  string
	Date      string
	StartTime string
	EndTime   string
	Location  string
	CreatorID UserID

	Participants []UserID

	Latitude  float64
	Longitude float64
}

// Position returns the activity's coordinates.
func (a Activity) Position() GeoPoint {
	return GeoPoint{Latitude: a.Latitude, Longitude: a.Longitude}
}

// HasParticipant reports whether u is in the participant set.
func (a Activity) HasParticipant(u UserID) bool {
	for _, id := range a.Participants {
		if id == u {
			return true
		}
	}
	return false
}

// Matches is the filtered-view predicate: a case-insensitive substring match of
// the trimmed query against title, location or category. A blank query matches everything.
func (a Activity) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Title), q) ||
		strings.Contains(strings.ToLower(a.Location), q) ||
		strings.Contains(strings.ToLower(a.Category), q)
}

// Clone returns a deep copy.
func (a Activity) Clone() Activity {
	cp := a
	if a.Participants != nil {
		cp.Participants = make([]UserID, len(a.Participants))
		copy(cp.Participants, a.Participants)
	}
	return cp
}

// FilterActivities returns the activities matching query, in input order.
// The result is a fresh slice even when the query is blank.
func FilterActivities(all []Activity, query string) []Activity {
	out := make([]Activity, 0, len(all))
	for _, a := range all {
		if a.Matches(query) {
			out = append(out, a.Clone())
		}
	}
	return out
}
