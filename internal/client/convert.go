package client

import (
	"fmt"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/actilink/actilink-api/internal/adapters/httpapi"
	"github.com/actilink/actilink-api/internal/domain"
)

func activityRequest(a domain.Activity) (httpapi.ActivityRequest, error) {
	req := httpapi.ActivityRequest{
		Id:        string(a.ID),
		Title:     a.Title,
		Category:  a.Category,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Location:  a.Location,
		CreatorId: string(a.CreatorID),
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
	}
	if a.Date != "" {
		d, err := time.Parse(time.DateOnly, a.Date)
		if err != nil {
			return httpapi.ActivityRequest{}, fmt.Errorf("activity %s: date %q is not YYYY-MM-DD", a.ID, a.Date)
		}
		req.Date = openapi_types.Date{Time: d}
	}
	req.Participants = make([]string, 0, len(a.Participants))
	for _, p := range a.Participants {
		req.Participants = append(req.Participants, string(p))
	}
	return req, nil
}

func activityToDomain(a httpapi.Activity) domain.Activity {
	ps := make([]domain.UserID, 0, len(a.Participants))
	for _, p := range a.Participants {
		ps = append(ps, domain.UserID(p))
	}
	return domain.Activity{
		ID:           domain.ActivityID(a.Id),
		Title:        a.Title,
		Category:     a.Category,
		Date:         a.Date,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Location:     a.Location,
		CreatorID:    domain.UserID(a.CreatorId),
		Participants: ps,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
	}
}

func activitiesToDomain(as []httpapi.Activity) []domain.Activity {
	out := make([]domain.Activity, 0, len(as))
	for _, a := range as {
		out = append(out, activityToDomain(a))
	}
	return out
}

func profileToDomain(p httpapi.Profile) domain.UserProfile {
	return domain.UserProfile{
		UserID: domain.UserID(p.UserId),
		Name:   p.Name,
		Age:    p.Age,
		Bio:    p.Bio,
	}
}
