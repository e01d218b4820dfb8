package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/actilink/actilink-api/internal/app/accounts"
	"github.com/actilink/actilink-api/internal/app/activities"
	"github.com/actilink/actilink-api/internal/app/profiles"
	"github.com/actilink/actilink-api/internal/domain"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Bio      string `json:"bio"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse reports the outcome of register and login. Unsuccessful
// attempts carry Success=false and a user-facing Message.
type AuthResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Code      string     `json:"code,omitempty"`
	UserId    string     `json:"userId,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type Profile struct {
	UserId string `json:"userId"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Bio    string `json:"bio"`
}

type ProfileResponse struct {
	Profile Profile `json:"profile"`
}

type MeResponse struct {
	UserId  string                     `json:"userId"`
	Profile nullable.Nullable[Profile] `json:"profile"`
}

// UpdateProfileRequest is a partial update: omitted fields are left alone,
// null age resets to 0 and null bio clears it.
type UpdateProfileRequest struct {
	Name nullable.Nullable[string] `json:"name,omitempty"`
	Age  nullable.Nullable[int]    `json:"age,omitempty"`
	Bio  nullable.Nullable[string] `json:"bio,omitempty"`
}

// ActivityRequest is the body of POST /activities and PUT /activities/{activityId}.
// Id, CreatorId and Participants are only honoured by PUT.
type ActivityRequest struct {
	Id           string             `json:"id,omitempty"`
	Title        string             `json:"title"`
	Category     string             `json:"category"`
	Date         openapi_types.Date `json:"date"`
	StartTime    string             `json:"startTime"`
	EndTime      string             `json:"endTime"`
	Location     string             `json:"location"`
	CreatorId    string             `json:"creatorId,omitempty"`
	Participants []string           `json:"participants,omitempty"`
	Latitude     float64            `json:"latitude"`
	Longitude    float64            `json:"longitude"`
}

type Activity struct {
	Id           string   `json:"id"`
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Date         string   `json:"date"`
	StartTime    string   `json:"startTime"`
	EndTime      string   `json:"endTime"`
	Location     string   `json:"location"`
	CreatorId    string   `json:"creatorId"`
	Participants []string `json:"participants"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
}

type ActivityResponse struct {
	Activity Activity `json:"activity"`
}

type ActivityListResponse struct {
	Activities []Activity `json:"activities"`
}

type Marker struct {
	ActivityId string  `json:"activityId"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
}

type MarkersResponse struct {
	Markers []Marker `json:"markers"`
}

func authResponseFromResult(res accounts.Result) AuthResponse {
	out := AuthResponse{
		Success: res.Success,
		Message: res.Message,
		Code:    res.Code,
		UserId:  string(res.UserID),
		Token:   res.Token,
	}
	if !res.ExpiresAt.IsZero() {
		exp := res.ExpiresAt.UTC()
		out.ExpiresAt = &exp
	}
	return out
}

func profileFromDomain(p domain.UserProfile) Profile {
	return Profile{
		UserId: string(p.UserID),
		Name:   p.Name,
		Age:    p.Age,
		Bio:    p.Bio,
	}
}

func updateProfileInputFromRequest(b UpdateProfileRequest) profiles.UpdateMyProfileInput {
	return profiles.UpdateMyProfileInput{
		Name: optionalFromNullable(b.Name),
		Age:  optionalFromNullable(b.Age),
		Bio:  optionalFromNullable(b.Bio),
	}
}

func optionalFromNullable[T any](n nullable.Nullable[T]) profiles.Optional[T] {
	if !n.IsSpecified() {
		return profiles.Unspecified[T]()
	}
	if n.IsNull() {
		return profiles.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return profiles.Unspecified[T]()
	}
	return profiles.Some(v)
}

func activityInputFromRequest(b ActivityRequest) activities.ActivityInput {
	return activities.ActivityInput{
		Title:     b.Title,
		Category:  b.Category,
		Date:      dateString(b.Date),
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Location:  b.Location,
		Latitude:  b.Latitude,
		Longitude: b.Longitude,
	}
}

func activityFromRequest(id domain.ActivityID, b ActivityRequest) domain.Activity {
	a := domain.Activity{
		ID:        id,
		Title:     b.Title,
		Category:  b.Category,
		Date:      dateString(b.Date),
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Location:  b.Location,
		CreatorID: domain.UserID(b.CreatorId),
		Latitude:  b.Latitude,
		Longitude: b.Longitude,
	}
	a.Participants = make([]domain.UserID, 0, len(b.Participants))
	for _, p := range b.Participants {
		a.Participants = append(a.Participants, domain.UserID(p))
	}
	return a
}

func activityFromDomain(a domain.Activity) Activity {
	ps := make([]string, 0, len(a.Participants))
	for _, p := range a.Participants {
		ps = append(ps, string(p))
	}
	return Activity{
		Id:           string(a.ID),
		Title:        a.Title,
		Category:     a.Category,
		Date:         a.Date,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Location:     a.Location,
		CreatorId:    string(a.CreatorID),
		Participants: ps,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
	}
}

func activityListFromDomain(as []domain.Activity) ActivityListResponse {
	out := make([]Activity, 0, len(as))
	for _, a := range as {
		out = append(out, activityFromDomain(a))
	}
	return ActivityListResponse{Activities: out}
}

func markerFromDomain(m domain.Marker) Marker {
	return Marker{
		ActivityId: string(m.ActivityID),
		Latitude:   m.Position.Latitude,
		Longitude:  m.Position.Longitude,
		Title:      m.Title,
		Snippet:    m.Snippet,
	}
}

// dateString renders a decoded date as YYYY-MM-DD. An omitted date stays empty.
func dateString(d openapi_types.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(openapi_types.DateFormat)
}
