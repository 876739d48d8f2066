package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/pkg/db/models"
)

// Repository exposes administrator account persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an administrators repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an administrator account.
func (r *Repository) Create(ctx context.Context, admin *models.Administrator) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

// FindByEmail retrieves the administrator matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Administrator, error) {
	var admin models.Administrator
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindByID loads an administrator by UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Administrator, error) {
	var admin models.Administrator
	if err := r.db.WithContext(ctx).First(&admin, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// UpdateLastLogin refreshes the administrator's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Administrator{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}
