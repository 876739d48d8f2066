package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/oldphonedeals/backend/pkg/db/models"
)

// UserDTO is the read shape for a shopper account.
type UserDTO struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Disabled      bool       `json:"disabled"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// FromModel converts a user row into its DTO.
func FromModel(u *models.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Disabled:      u.Disabled,
		EmailVerified: u.EmailVerifiedAt != nil,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}
