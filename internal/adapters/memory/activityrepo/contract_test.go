package activityrepo

import (
	"testing"

	"github.com/actilink/actilink-api/internal/adapters/contracttest"
	activityrepoport "github.com/actilink/actilink-api/internal/ports/out/activityrepo"
)

func TestActivityRepo_Contract(t *testing.T) {
	contracttest.RunActivityRepo(t, func(t *testing.T) (activityrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
