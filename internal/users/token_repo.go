package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/pkg/db/models"
)

// TokenRepository stores account token digests for the email verification
// and password reset flows.
type TokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository constructs a token repo bound to the provided GORM DB.
func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// WithTx returns a clone bound to the given transaction.
func (r *TokenRepository) WithTx(tx *gorm.DB) *TokenRepository {
	return &TokenRepository{db: tx}
}

// Create inserts a token record.
func (r *TokenRepository) Create(ctx context.Context, token *models.AccountToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindByDigest loads the token matching the digest and purpose regardless
// of expiry; callers decide what an expired token means.
func (r *TokenRepository) FindByDigest(ctx context.Context, digest, purpose string) (*models.AccountToken, error) {
	var token models.AccountToken
	err := r.db.WithContext(ctx).
		Where("digest = ? AND purpose = ?", digest, purpose).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Consume stamps the token as used.
func (r *TokenRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AccountToken{}).
		Where("id = ?", id).
		Update("consumed_at", at).Error
}

// LatestByUser returns the newest token a user holds for the purpose.
func (r *TokenRepository) LatestByUser(ctx context.Context, userID uuid.UUID, purpose string) (*models.AccountToken, error) {
	var token models.AccountToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Order("created_at DESC").
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteByUser drops every token a user holds for the given purpose.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID, purpose string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Delete(&models.AccountToken{}).Error
}
