package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/kopma-dev/kopma-api/internal/models"
)

func TestActivityLogRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()

	reviewer := models.User{
		Name:         "Reviewer",
		Email:        "reviewer-logs@example.com",
		PasswordHash: "hash",
		Role:         models.RolePSDA,
		Status:       models.StatusApproved,
	}
	admin := models.User{
		Name:         "Admin",
		Email:        "admin-logs@example.com",
		PasswordHash: "hash",
		Role:         models.RoleAdmin,
		Status:       models.StatusApproved,
	}
	require.NoError(t, db.Create(&reviewer).Error)
	require.NoError(t, db.Create(&admin).Error)

	entries := []models.ActivityLog{
		{
			ActorID:   reviewer.ID,
			ActorRole: models.RolePSDA,
			Action:    models.ActionApproveApplication,
			Details:   datatypes.JSONMap{"application_id": 12},
			CreatedAt: time.Now().Add(-2 * time.Hour),
		},
		{
			ActorID:   reviewer.ID,
			ActorRole: models.RolePSDA,
			Action:    models.ActionRejectApplication,
			CreatedAt: time.Now().Add(-1 * time.Hour),
		},
		{
			ActorID:   admin.ID,
			ActorRole: models.RoleAdmin,
			Action:    models.ActionChangeUserRole,
			CreatedAt: time.Now(),
		},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	all, total, err := repo.List(ctx, ActivityLogFilter{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, models.ActionChangeUserRole, all[0].Action, "expected newest entry first")

	byAction, total, err := repo.List(ctx, ActivityLogFilter{Action: models.ActionApproveApplication, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, reviewer.ID, byAction[0].ActorID)

	staffOnly, total, err := repo.List(ctx, ActivityLogFilter{StaffOnly: true, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	for _, entry := range staffOnly {
		require.Equal(t, reviewer.ID, entry.ActorID)
	}

	actorID := admin.ID
	byActor, total, err := repo.List(ctx, ActivityLogFilter{ActorID: &actorID, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, models.ActionChangeUserRole, byActor[0].Action)
}
