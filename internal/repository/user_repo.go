package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kopma-dev/kopma-api/internal/models"
)

// UserFilter defines filters for the admin user listing.
type UserFilter struct {
	Role     string
	Page     int
	PageSize int
}

// ApplicationFilter defines filters for listing membership applications.
// Applications are member-role users; staff accounts never appear here.
type ApplicationFilter struct {
	Status   string
	Page     int
	PageSize int
}

// ResetCredential is the narrow reset-token value stored on a user. The
// repository writes it through its own column-level update path so the rest
// of the record is never touched.
type ResetCredential struct {
	TokenHash string
	ExpiresAt time.Time
}

// OneTimeCredential is the transient OTP value stored on a user.
type OneTimeCredential struct {
	CodeHash  string
	ExpiresAt time.Time
}

// UserRepository persists user and membership application records.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (models.User, error)
	FindByStudentNumber(ctx context.Context, studentNumber string) (models.User, error)
	FindByStudentNumberAndEmail(ctx context.Context, studentNumber, email string) (models.User, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (models.User, error)
	IdentityTaken(ctx context.Context, studentNumber, email string) (bool, error)
	EmailTakenByOther(ctx context.Context, email string, userID uint) (bool, error)

	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.User, int64, error)

	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.User, error)
	MarkReviewed(ctx context.Context, id uint, updates map[string]interface{}) (bool, error)

	SetResetCredential(ctx context.Context, id uint, credential ResetCredential) error
	SetOneTimeCredential(ctx context.Context, id uint, credential OneTimeCredential) error
	ClearOneTimeCredential(ctx context.Context, id uint) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	ResetPassword(ctx context.Context, id uint, passwordHash string) error

	CountByStatus(ctx context.Context) (map[string]int64, error)
	CountByFaculty(ctx context.Context) (map[string]int64, error)
	CountByRole(ctx context.Context) (map[string]int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs the user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindByStudentNumber(ctx context.Context, studentNumber string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("student_number = ?", studentNumber).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindByStudentNumberAndEmail(ctx context.Context, studentNumber, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("student_number = ? AND email = ?", studentNumber, email).
		First(&user).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_token_expiry > ?", hash, now).
		First(&user).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) IdentityTaken(ctx context.Context, studentNumber, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("student_number = ? OR email = ?", studentNumber, email).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) EmailTakenByOther(ctx context.Context, email string, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND id <> ?", email, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	return r.paginate(query, filter.Page, filter.PageSize)
}

func (r *userRepository) ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleMember)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return r.paginate(query, filter.Page, filter.PageSize)
}

func (r *userRepository) paginate(query *gorm.DB, page, pageSize int) ([]models.User, int64, error) {
	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	if pageSize > 0 {
		if page <= 0 {
			page = 1
		}
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.User, error) {
	tx := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return models.User{}, tx.Error
	}
	if tx.RowsAffected == 0 {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, id)
}

// MarkReviewed applies the review outcome as a single conditional update
// guarded by the pending status. It reports false when the application was
// already reviewed; concurrent reviewers therefore serialize on the store.
func (r *userRepository) MarkReviewed(ctx context.Context, id uint, updates map[string]interface{}) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *userRepository) SetResetCredential(ctx context.Context, id uint, credential ResetCredential) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"reset_token_hash":   credential.TokenHash,
		"reset_token_expiry": credential.ExpiresAt,
	})
}

func (r *userRepository) SetOneTimeCredential(ctx context.Context, id uint, credential OneTimeCredential) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"one_time_code_hash":   credential.CodeHash,
		"one_time_code_expiry": credential.ExpiresAt,
	})
}

func (r *userRepository) ClearOneTimeCredential(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"one_time_code_hash":   nil,
		"one_time_code_expiry": nil,
	})
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"password_hash": passwordHash,
	})
}

// ResetPassword replaces the password hash and clears the reset token in one
// column update; a consumed token can never outlive the new password.
func (r *userRepository) ResetPassword(ctx context.Context, id uint, passwordHash string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"password_hash":      passwordHash,
		"reset_token_hash":   nil,
		"reset_token_expiry": nil,
	})
}

func (r *userRepository) updateColumns(ctx context.Context, id uint, updates map[string]interface{}) error {
	tx := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countGrouped(ctx, "status", r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleMember))
}

func (r *userRepository) CountByFaculty(ctx context.Context) (map[string]int64, error) {
	return r.countGrouped(ctx, "faculty", r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleMember))
}

func (r *userRepository) CountByRole(ctx context.Context) (map[string]int64, error) {
	return r.countGrouped(ctx, "role", r.db.WithContext(ctx).Model(&models.User{}))
}

func (r *userRepository) countGrouped(ctx context.Context, column string, query *gorm.DB) (map[string]int64, error) {
	type row struct {
		Key   string
		Count int64
	}

	var rows []row
	err := query.Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Key] = r.Count
	}
	return counts, nil
}
