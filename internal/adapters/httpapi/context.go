package httpapi

import (
	"context"

	"github.com/actilink/actilink-api/internal/domain"
)

type subjectKey struct{}

func WithSubject(ctx context.Context, userID domain.UserID) context.Context {
	return context.WithValue(ctx, subjectKey{}, userID)
}

func SubjectFromContext(ctx context.Context) (domain.UserID, bool) {
	v, ok := ctx.Value(subjectKey{}).(domain.UserID)
	return v, ok && v != ""
}
