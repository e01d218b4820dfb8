package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/actilink/actilink-api/internal/app/profiles"
	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/platform/metrics"
	"github.com/actilink/actilink-api/internal/ports/out/accountrepo"
	clockport "github.com/actilink/actilink-api/internal/ports/out/clock"
)

// TokenIssuer mints session tokens for a user id.
type TokenIssuer interface {
	Issue(sub string) (string, time.Time, error)
}

// ProfileCreator stores the profile written at registration.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, userID domain.UserID, in profiles.CreateProfileInput) (domain.UserProfile, error)
}

type Service struct {
	repo     accountrepo.Repository
	profiles ProfileCreator
	hasher   Hasher
	tokens   TokenIssuer
	clk      clockport.Clock
	log      zerolog.Logger
	validate *validator.Validate

	newUserID func() domain.UserID

	// dummyHash keeps Login timing similar for unknown emails.
	dummyHash string
}

func NewService(repo accountrepo.Repository, profiles ProfileCreator, hasher Hasher, tokens TokenIssuer, clk clockport.Clock, log zerolog.Logger) *Service {
	s := &Service{
		repo:     repo,
		profiles: profiles,
		hasher:   hasher,
		tokens:   tokens,
		clk:      clk,
		log:      log.With().Str("component", "accounts").Logger(),
		validate: validator.New(),
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.NewString())
		},
	}
	if h, err := hasher.Hash("not-a-real-password"); err == nil {
		s.dummyHash = h
	}
	return s
}

// SetNewUserIDForTest overrides id generation.
func (s *Service) SetNewUserIDForTest(fn func() domain.UserID) {
	if fn != nil {
		s.newUserID = fn
	}
}

// Register creates the account and its profile, then signs the user in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Result, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = domain.NormalizeHumanName(in.Name)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := s.validate.Struct(in); err != nil {
		return Result{}, validationError(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Result{}, err
	}
	uid := s.newUserID()
	err = s.repo.Create(ctx, accountrepo.Account{
		UserID:       uid,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.clk.Now(),
	})
	if err != nil {
		if errors.Is(err, accountrepo.ErrEmailTaken) {
			metrics.RecordAuthAttempt("register", false)
			return Result{
				Success: false,
				Code:    CodeEmailTaken,
				Message: "An account already exists for this email address.",
			}, nil
		}
		return Result{}, err
	}

	if _, err := s.profiles.CreateProfile(ctx, uid, profiles.CreateProfileInput{Name: in.Name, Age: in.Age, Bio: in.Bio}); err != nil {
		s.log.Error().Err(err).Str("user_id", string(uid)).Msg("account created without profile")
		return Result{}, err
	}

	metrics.RecordAuthAttempt("register", true)
	return s.signIn(uid, "Registration successful.")
}

// Login verifies credentials. Unknown email and wrong password produce the same message.
func (s *Service) Login(ctx context.Context, in LoginInput) (Result, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return Result{}, validationError(err)
	}

	acc, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, accountrepo.ErrNotFound) {
			return Result{}, err
		}
		if s.dummyHash != "" {
			_ = s.hasher.Compare(s.dummyHash, in.Password)
		}
		return s.invalidCredentials(), nil
	}
	if err := s.hasher.Compare(acc.PasswordHash, in.Password); err != nil {
		return s.invalidCredentials(), nil
	}

	metrics.RecordAuthAttempt("login", true)
	return s.signIn(acc.UserID, "Login successful.")
}

func (s *Service) signIn(uid domain.UserID, msg string) (Result, error) {
	tok, exp, err := s.tokens.Issue(string(uid))
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: msg, UserID: uid, Token: tok, ExpiresAt: exp}, nil
}

func (s *Service) invalidCredentials() Result {
	metrics.RecordAuthAttempt("login", false)
	return Result{
		Success: false,
		Code:    CodeInvalidCredentials,
		Message: "Incorrect email or password.",
	}
}
