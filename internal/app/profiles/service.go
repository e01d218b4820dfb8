package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/actilink/actilink-api/internal/domain"
	clockport "github.com/actilink/actilink-api/internal/ports/out/clock"
	"github.com/actilink/actilink-api/internal/ports/out/profilerepo"
)

const (
	MaxAge    = 150
	MaxBioLen = 1000
)

type Service struct {
	repo profilerepo.Repository
	clk  clockport.Clock
}

func NewService(repo profilerepo.Repository, clk clockport.Clock) *Service {
	return &Service{repo: repo, clk: clk}
}

func (s *Service) GetProfile(ctx context.Context, userID domain.UserID) (domain.UserProfile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, profilerepo.ErrNotFound) {
			return domain.UserProfile{}, &Error{
				Status:  404,
				Code:    "PROFILE_NOT_FOUND",
				Message: "No profile exists for this user.",
			}
		}
		return domain.UserProfile{}, err
	}
	return p, nil
}

func (s *Service) GetMyProfile(ctx context.Context, caller domain.UserID) (domain.UserProfile, error) {
	if caller == "" {
		return domain.UserProfile{}, errUnauthenticated()
	}
	return s.GetProfile(ctx, caller)
}

// CreateProfile stores the profile written at registration.
func (s *Service) CreateProfile(ctx context.Context, userID domain.UserID, in CreateProfileInput) (domain.UserProfile, error) {
	if userID == "" {
		return domain.UserProfile{}, errUnauthenticated()
	}
	name := domain.NormalizeHumanName(in.Name)
	bio := strings.TrimSpace(in.Bio)
	if details := validate(name, in.Age, bio); len(details) > 0 {
		return domain.UserProfile{}, errValidation(details)
	}

	now := s.clk.Now()
	p := domain.UserProfile{
		UserID:    userID,
		Name:      name,
		Age:       in.Age,
		Bio:       bio,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, profilerepo.ErrAlreadyExists) {
			return domain.UserProfile{}, &Error{
				Status:  409,
				Code:    "PROFILE_ALREADY_EXISTS",
				Message: "A profile already exists for this user.",
			}
		}
		return domain.UserProfile{}, err
	}
	return p, nil
}

func (s *Service) UpdateMyProfile(ctx context.Context, caller domain.UserID, in UpdateMyProfileInput) (domain.UserProfile, error) {
	p, err := s.GetMyProfile(ctx, caller)
	if err != nil {
		return domain.UserProfile{}, err
	}

	if in.Name.IsSpecified() {
		if in.Name.IsNull() {
			return domain.UserProfile{}, errValidation(map[string]any{"name": "cannot be null"})
		}
		p.Name = domain.NormalizeHumanName(in.Name.Value())
	}
	if in.Age.IsSpecified() {
		if in.Age.IsNull() {
			p.Age = 0
		} else {
			p.Age = in.Age.Value()
		}
	}
	if in.Bio.IsSpecified() {
		if in.Bio.IsNull() {
			p.Bio = ""
		} else {
			p.Bio = strings.TrimSpace(in.Bio.Value())
		}
	}
	if details := validate(p.Name, p.Age, p.Bio); len(details) > 0 {
		return domain.UserProfile{}, errValidation(details)
	}

	p.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		return domain.UserProfile{}, err
	}
	return p, nil
}

func validate(name string, age int, bio string) map[string]any {
	details := map[string]any{}
	if name == "" {
		details["name"] = "must be non-empty"
	}
	if age < 0 || age > MaxAge {
		details["age"] = "must be between 0 and 150"
	}
	if len([]rune(bio)) > MaxBioLen {
		details["bio"] = "must be at most 1000 characters"
	}
	return details
}

func errUnauthenticated() *Error {
	return &Error{
		Status:  401,
		Code:    "UNAUTHENTICATED",
		Message: "Authentication is required.",
	}
}

func errValidation(details map[string]any) *Error {
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: "invalid profile",
		Details: details,
	}
}
