package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/pkg/db/models"
)

// Repository exposes user persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a clone bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// Update applies the given column map to a user.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdatePassword overwrites the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

// MarkEmailVerified stamps email_verified_at.
func (r *Repository) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("email_verified_at", at).Error
}

// SetDisabled flips the user's disabled flag.
func (r *Repository) SetDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("disabled", disabled).Error
}

// Delete removes the user row. Owned rows cascade via FKs.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error
}

// Search matches users by email or name. A "first last" style query is
// split on the first space and matched against the name columns as a pair;
// a query that parses as a UUID falls back to a direct id lookup.
func (r *Repository) Search(ctx context.Context, query string) ([]models.User, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		var rows []models.User
		err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
		return rows, err
	}

	if id, err := uuid.Parse(trimmed); err == nil {
		user, err := r.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, nil
			}
			return nil, err
		}
		return []models.User{*user}, nil
	}

	pattern := "%" + strings.ToLower(trimmed) + "%"
	q := r.db.WithContext(ctx).
		Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", pattern, pattern, pattern)

	if first, rest, found := strings.Cut(trimmed, " "); found {
		firstPattern := "%" + strings.ToLower(first) + "%"
		restPattern := "%" + strings.ToLower(strings.TrimSpace(rest)) + "%"
		q = q.Or("LOWER(first_name) LIKE ? AND LOWER(last_name) LIKE ?", firstPattern, restPattern)
	}

	var rows []models.User
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}
