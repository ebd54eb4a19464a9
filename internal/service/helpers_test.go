package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kopma-dev/kopma-api/internal/models"
	"github.com/kopma-dev/kopma-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// fakeUserRepo is an in-memory UserRepository used across the service tests.
type fakeUserRepo struct {
	users     map[uint]*models.User
	nextID    uint
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]*models.User{}}
}

func (f *fakeUserRepo) add(user models.User) models.User {
	f.nextID++
	user.ID = f.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	stored := user
	f.users[user.ID] = &stored
	return user
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	*user = f.add(*user)
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uint) (models.User, error) {
	if user, ok := f.users[id]; ok {
		return *user, nil
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByStudentNumber(ctx context.Context, studentNumber string) (models.User, error) {
	for _, user := range f.users {
		if user.StudentNumber != nil && *user.StudentNumber == studentNumber {
			return *user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByStudentNumberAndEmail(ctx context.Context, studentNumber, email string) (models.User, error) {
	for _, user := range f.users {
		if user.StudentNumber != nil && *user.StudentNumber == studentNumber && user.Email == email {
			return *user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (models.User, error) {
	for _, user := range f.users {
		if user.ResetTokenHash != nil && *user.ResetTokenHash == hash &&
			user.ResetTokenExpiry != nil && user.ResetTokenExpiry.After(now) {
			return *user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) IdentityTaken(ctx context.Context, studentNumber, email string) (bool, error) {
	for _, user := range f.users {
		if user.Email == email {
			return true, nil
		}
		if studentNumber != "" && user.StudentNumber != nil && *user.StudentNumber == studentNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) EmailTakenByOther(ctx context.Context, email string, userID uint) (bool, error) {
	for _, user := range f.users {
		if user.ID != userID && user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]models.User, int64, error) {
	var matched []models.User
	for _, user := range f.users {
		if filter.Role == "" || user.Role == filter.Role {
			matched = append(matched, *user)
		}
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeUserRepo) ListApplications(ctx context.Context, filter repository.ApplicationFilter) ([]models.User, int64, error) {
	var matched []models.User
	for _, user := range f.users {
		if user.Role != models.RoleMember {
			continue
		}
		if filter.Status == "" || user.Status == filter.Status {
			matched = append(matched, *user)
		}
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeUserRepo) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	f.apply(user, updates)
	return *user, nil
}

func (f *fakeUserRepo) MarkReviewed(ctx context.Context, id uint, updates map[string]interface{}) (bool, error) {
	user, ok := f.users[id]
	if !ok || user.Status != models.StatusPending {
		return false, nil
	}
	f.apply(user, updates)
	return true, nil
}

func (f *fakeUserRepo) apply(user *models.User, updates map[string]interface{}) {
	for column, value := range updates {
		switch column {
		case "name":
			user.Name = value.(string)
		case "email":
			user.Email = value.(string)
		case "role":
			user.Role = value.(string)
		case "status":
			user.Status = value.(string)
		case "profile_photo_file":
			user.ProfilePhotoFile = value.(string)
		case "rejection_reason":
			reason := value.(string)
			user.RejectionReason = &reason
		case "approved_by_id":
			id := value.(uint)
			user.ApprovedByID = &id
		case "approved_at":
			at := value.(time.Time)
			user.ApprovedAt = &at
		}
	}
}

func (f *fakeUserRepo) SetResetCredential(ctx context.Context, id uint, credential repository.ResetCredential) error {
	user, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.ResetTokenHash = &credential.TokenHash
	user.ResetTokenExpiry = &credential.ExpiresAt
	return nil
}

func (f *fakeUserRepo) SetOneTimeCredential(ctx context.Context, id uint, credential repository.OneTimeCredential) error {
	user, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.OneTimeCodeHash = &credential.CodeHash
	user.OneTimeCodeExpiry = &credential.ExpiresAt
	return nil
}

func (f *fakeUserRepo) ClearOneTimeCredential(ctx context.Context, id uint) error {
	user, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.OneTimeCodeHash = nil
	user.OneTimeCodeExpiry = nil
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	user, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepo) ResetPassword(ctx context.Context, id uint, passwordHash string) error {
	user, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.PasswordHash = passwordHash
	user.ResetTokenHash = nil
	user.ResetTokenExpiry = nil
	return nil
}

func (f *fakeUserRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, user := range f.users {
		if user.Role == models.RoleMember {
			counts[user.Status]++
		}
	}
	return counts, nil
}

func (f *fakeUserRepo) CountByFaculty(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, user := range f.users {
		if user.Role == models.RoleMember && user.Faculty != "" {
			counts[user.Faculty]++
		}
	}
	return counts, nil
}

func (f *fakeUserRepo) CountByRole(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, user := range f.users {
		counts[user.Role]++
	}
	return counts, nil
}

// fakeNotifier records outbound notifications and can simulate failures.
type fakeNotifier struct {
	sent    []string
	lastArg string
	fail    bool
}

func (f *fakeNotifier) record(kind, arg string) error {
	if f.fail {
		return errSMTPDown
	}
	f.sent = append(f.sent, kind)
	f.lastArg = arg
	return nil
}

var errSMTPDown = &smtpDownError{}

type smtpDownError struct{}

func (*smtpDownError) Error() string { return "smtp unreachable" }

func (f *fakeNotifier) SendRegistrationReceived(to, name string) error {
	return f.record("registration", to)
}

func (f *fakeNotifier) SendApplicationApproved(to, name string) error {
	return f.record("approved", to)
}

func (f *fakeNotifier) SendApplicationRejected(to, name, reason string) error {
	return f.record("rejected", reason)
}

func (f *fakeNotifier) SendPasswordResetLink(to, name, resetURL string) error {
	return f.record("reset", resetURL)
}

func (f *fakeNotifier) SendOneTimeCode(to, name, code string) error {
	return f.record("code", code)
}

func (f *fakeNotifier) sentCount(kind string) int {
	count := 0
	for _, sent := range f.sent {
		if strings.EqualFold(sent, kind) {
			count++
		}
	}
	return count
}

// fakeRecorder captures audit trail entries.
type fakeRecorder struct {
	entries []ActivityEntry
}

func (f *fakeRecorder) Record(ctx context.Context, entry ActivityEntry) {
	f.entries = append(f.entries, entry)
}

func (f *fakeRecorder) byAction(action string) []ActivityEntry {
	var matched []ActivityEntry
	for _, entry := range f.entries {
		if entry.Action == action {
			matched = append(matched, entry)
		}
	}
	return matched
}
