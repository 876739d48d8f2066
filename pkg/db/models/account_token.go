package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AccountTokenPurposeVerifyEmail   = "verify_email"
	AccountTokenPurposeResetPassword = "reset_password"
)

// AccountToken stores the digest of a one-time email verification or password
// reset token. Raw tokens are only ever sent to the user.
type AccountToken struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:account_tokens_user_id_idx"`
	Purpose    string     `gorm:"column:purpose;not null"`
	Digest     string     `gorm:"column:digest;not null;uniqueIndex:account_tokens_digest_key"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null"`
	ConsumedAt *time.Time `gorm:"column:consumed_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// Usable reports whether the token can still be redeemed at the given time.
func (t AccountToken) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}
