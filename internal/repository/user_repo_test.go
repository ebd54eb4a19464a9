package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kopma-dev/kopma-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ActivityLog{}, &models.Event{}, &models.EventAttendance{}))
	return db
}

func newMember(t *testing.T, db *gorm.DB, studentNumber, email, status string) models.User {
	t.Helper()
	user := models.User{
		StudentNumber: &studentNumber,
		Name:          "Member " + studentNumber,
		Email:         email,
		PasswordHash:  "hash",
		Role:          models.RoleMember,
		Status:        status,
		Faculty:       "Economics",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestUserRepositoryIdentityLookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created := newMember(t, db, "2211001", "ana@example.com", models.StatusPending)

	found, err := repo.FindByStudentNumberAndEmail(ctx, "2211001", "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = repo.FindByStudentNumberAndEmail(ctx, "2211001", "other@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	taken, err := repo.IdentityTaken(ctx, "2211001", "fresh@example.com")
	require.NoError(t, err)
	require.True(t, taken, "student number alone marks the identity as taken")

	taken, err = repo.IdentityTaken(ctx, "9999999", "ana@example.com")
	require.NoError(t, err)
	require.True(t, taken, "email alone marks the identity as taken")

	taken, err = repo.IdentityTaken(ctx, "9999999", "fresh@example.com")
	require.NoError(t, err)
	require.False(t, taken)
}

func TestUserRepositoryMarkReviewedOnlyOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	application := newMember(t, db, "2211002", "budi@example.com", models.StatusPending)
	reviewerID := uint(99)
	now := time.Now()

	updates := map[string]interface{}{
		"status":         models.StatusApproved,
		"approved_by_id": reviewerID,
		"approved_at":    now,
	}

	reviewed, err := repo.MarkReviewed(ctx, application.ID, updates)
	require.NoError(t, err)
	require.True(t, reviewed)

	reviewed, err = repo.MarkReviewed(ctx, application.ID, updates)
	require.NoError(t, err)
	require.False(t, reviewed, "second review of the same application must not apply")

	stored, err := repo.GetByID(ctx, application.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovedByID)
	require.Equal(t, reviewerID, *stored.ApprovedByID)
}

func TestUserRepositoryListApplicationsExcludesStaff(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	newMember(t, db, "2211003", "pending@example.com", models.StatusPending)
	newMember(t, db, "2211004", "approved@example.com", models.StatusApproved)

	staff := models.User{
		Name:         "Reviewer",
		Email:        "reviewer@example.com",
		PasswordHash: "hash",
		Role:         models.RolePSDA,
		Status:       models.StatusApproved,
	}
	require.NoError(t, db.Create(&staff).Error)

	applications, total, err := repo.ListApplications(ctx, ApplicationFilter{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, applications, 2)
	for _, application := range applications {
		require.Equal(t, models.RoleMember, application.Role)
	}

	pending, total, err := repo.ListApplications(ctx, ApplicationFilter{Status: models.StatusPending, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "pending@example.com", pending[0].Email)
}

func TestUserRepositoryResetCredentialLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newMember(t, db, "2211005", "citra@example.com", models.StatusApproved)

	credential := ResetCredential{
		TokenHash: "abc123",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, repo.SetResetCredential(ctx, user.ID, credential))

	found, err := repo.FindByResetTokenHash(ctx, "abc123", time.Now())
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	// An expired credential must not resolve.
	_, err = repo.FindByResetTokenHash(ctx, "abc123", time.Now().Add(11*time.Minute))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Consuming the token stores the new hash and clears the credential in
	// the same write.
	require.NoError(t, repo.ResetPassword(ctx, user.ID, "newhash"))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "newhash", stored.PasswordHash)
	require.Nil(t, stored.ResetTokenHash)
	require.Nil(t, stored.ResetTokenExpiry)

	_, err = repo.FindByResetTokenHash(ctx, "abc123", time.Now())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepositoryCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	newMember(t, db, "2211006", "m1@example.com", models.StatusPending)
	newMember(t, db, "2211007", "m2@example.com", models.StatusApproved)
	newMember(t, db, "2211008", "m3@example.com", models.StatusApproved)

	admin := models.User{
		Name:         "Admin",
		Email:        "admin@example.com",
		PasswordHash: "hash",
		Role:         models.RoleAdmin,
		Status:       models.StatusApproved,
	}
	require.NoError(t, db.Create(&admin).Error)

	byStatus, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), byStatus[models.StatusPending])
	require.Equal(t, int64(2), byStatus[models.StatusApproved], "staff accounts are excluded from member stats")

	byRole, err := repo.CountByRole(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), byRole[models.RoleMember])
	require.Equal(t, int64(1), byRole[models.RoleAdmin])
}
