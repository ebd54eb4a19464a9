package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopma-dev/kopma-api/internal/models"
	"github.com/kopma-dev/kopma-api/internal/repository"
)

type fakeActivityLogRepo struct {
	entries []models.ActivityLog
	fail    bool
}

func (f *fakeActivityLogRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	if f.fail {
		return errors.New("sink unavailable")
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeActivityLogRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

func TestActivityRecordMasksCredentialDetails(t *testing.T) {
	repo := &fakeActivityLogRepo{}
	svc := NewActivityService(repo, testLogger())

	svc.Record(context.Background(), ActivityEntry{
		Actor:       ActivityActor{ID: 1, Name: "Admin", Role: "ADMIN"},
		Action:      models.ActionChangePassword,
		Description: "password rotated",
		Details: map[string]interface{}{
			"new_password": "hunter2",
			"reset_token":  "abc",
			"faculty":      "Economics",
		},
	})

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.Equal(t, "admin", entry.ActorRole)
	require.Equal(t, "***", entry.Details["new_password"])
	require.Equal(t, "***", entry.Details["reset_token"])
	require.Equal(t, "Economics", entry.Details["faculty"])
}

func TestActivityRecordDropsEmptyAction(t *testing.T) {
	repo := &fakeActivityLogRepo{}
	svc := NewActivityService(repo, testLogger())

	svc.Record(context.Background(), ActivityEntry{
		Actor:       ActivityActor{ID: 1},
		Description: "no action named",
	})

	require.Empty(t, repo.entries)
}

func TestActivityRecordSwallowsSinkFailure(t *testing.T) {
	repo := &fakeActivityLogRepo{fail: true}
	svc := NewActivityService(repo, testLogger())

	// Must not panic or surface the error.
	svc.Record(context.Background(), ActivityEntry{
		Actor:  ActivityActor{ID: 1, Role: models.RoleAdmin},
		Action: models.ActionLogin,
	})
	require.Empty(t, repo.entries)
}

func TestActivityRecordDefaultsSystemRole(t *testing.T) {
	repo := &fakeActivityLogRepo{}
	svc := NewActivityService(repo, testLogger())

	svc.Record(context.Background(), ActivityEntry{
		Actor:  ActivityActor{ID: 0},
		Action: models.ActionLogin,
	})

	require.Len(t, repo.entries, 1)
	require.Equal(t, "system", repo.entries[0].ActorRole)
}
