package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/pkg/config"
	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/db/models"
	"github.com/oldphonedeals/backend/pkg/enums"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/outbox"
	"github.com/oldphonedeals/backend/pkg/security"
)

const minPasswordLength = 8

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RegisterInput is the raw registration payload.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UpdateProfileInput carries a profile edit. The current password gates
// the change.
type UpdateProfileInput struct {
	FirstName       string
	LastName        string
	Email           string
	CurrentPassword string
}

// Service exposes account lifecycle operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (UserDTO, error)
	ConfirmEmail(ctx context.Context, rawToken string) (UserDTO, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	Profile(ctx context.Context, userID uuid.UUID) (UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	UsernameByID(ctx context.Context, userID uuid.UUID) (string, error)
}

// ServiceParams bundles the dependencies for the accounts service.
type ServiceParams struct {
	DB          *db.Client
	Repo        *Repository
	Tokens      *TokenRepository
	Outbox      outboxEmitter
	PasswordCfg config.PasswordConfig
}

type service struct {
	db          *db.Client
	repo        *Repository
	tokens      *TokenRepository
	outbox      outboxEmitter
	passwordCfg config.PasswordConfig
}

// NewService builds the accounts service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		db:          params.DB,
		repo:        params.Repo,
		tokens:      params.Tokens,
		outbox:      params.Outbox,
		passwordCfg: params.PasswordCfg,
	}, nil
}

// Register creates a pending account and queues a verification token. The
// required fields are checked in a fixed order, first failure wins.
func (s *service) Register(ctx context.Context, input RegisterInput) (UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	switch {
	case strings.TrimSpace(input.FirstName) == "":
		return UserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "firstname is required")
	case strings.TrimSpace(input.LastName) == "":
		return UserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "lastname is required")
	case email == "":
		return UserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	case input.Password == "":
		return UserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}
	if len(input.Password) < minPasswordLength {
		return UserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	passwordHash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	rawToken, digest, err := security.GenerateAccountToken()
	if err != nil {
		return UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate token")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.repo.WithTx(tx)
		tokenRepo := s.tokens.WithTx(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
		}

		if err := userRepo.Create(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		if err := tokenRepo.Create(ctx, &models.AccountToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Purpose:   models.AccountTokenPurposeVerifyEmail,
			Digest:    digest,
			ExpiresAt: time.Now().UTC().Add(s.tokenTTL()),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store verification token")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: outbox.UserRegisteredData{
				UserID:            user.ID,
				Email:             user.Email,
				FirstName:         user.FirstName,
				VerificationToken: rawToken,
			},
			Version: 1,
		})
	})
	if err != nil {
		return UserDTO{}, err
	}
	return FromModel(user), nil
}

// ConfirmEmail redeems a verification token. An expired token deletes the
// still-pending account so the email can be reused.
func (s *service) ConfirmEmail(ctx context.Context, rawToken string) (UserDTO, error) {
	if strings.TrimSpace(rawToken) == "" {
		return UserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	digest := security.HashAccountToken(rawToken)

	var confirmed *models.User
	var expired *pkgerrors.Error
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.repo.WithTx(tx)
		tokenRepo := s.tokens.WithTx(tx)

		token, err := tokenRepo.FindByDigest(ctx, digest, models.AccountTokenPurposeVerifyEmail)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "verification token not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load token")
		}

		now := time.Now().UTC()
		if !token.Usable(now) {
			pending, err := userRepo.FindByID(ctx, token.UserID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "verification token expired, please register again")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
			}
			if pending.EmailVerifiedAt != nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "email already verified")
			}
			if err := userRepo.Delete(ctx, token.UserID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove expired registration")
			}
			// commit the delete so the email frees up for re-registration,
			// then surface the expiry to the caller
			expired = pkgerrors.New(pkgerrors.CodeStateConflict, "verification token expired, please register again")
			return nil
		}

		if err := userRepo.MarkEmailVerified(ctx, token.UserID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark verified")
		}
		if err := tokenRepo.Consume(ctx, token.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume token")
		}

		user, err := userRepo.FindByID(ctx, token.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		confirmed = user
		return nil
	})
	if err != nil {
		return UserDTO{}, err
	}
	if expired != nil {
		return UserDTO{}, expired
	}
	return FromModel(confirmed), nil
}

// RequestPasswordReset issues a reset token for the account, replacing any
// earlier outstanding token.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no account with that email")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	rawToken, digest, err := security.GenerateAccountToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate token")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		tokenRepo := s.tokens.WithTx(tx)
		if err := tokenRepo.DeleteByUser(ctx, user.ID, models.AccountTokenPurposeResetPassword); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop old reset tokens")
		}
		if err := tokenRepo.Create(ctx, &models.AccountToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Purpose:   models.AccountTokenPurposeResetPassword,
			Digest:    digest,
			ExpiresAt: time.Now().UTC().Add(s.tokenTTL()),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset token")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: outbox.PasswordResetRequestedData{
				UserID:     user.ID,
				Email:      user.Email,
				ResetToken: rawToken,
			},
			Version: 1,
		})
	})
}

// ResetPassword redeems a reset token and stores the new password hash.
func (s *service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if strings.TrimSpace(rawToken) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	if len(newPassword) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	digest := security.HashAccountToken(rawToken)

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.repo.WithTx(tx)
		tokenRepo := s.tokens.WithTx(tx)

		token, err := tokenRepo.FindByDigest(ctx, digest, models.AccountTokenPurposeResetPassword)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reset token not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load token")
		}

		now := time.Now().UTC()
		if !token.Usable(now) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reset token expired")
		}

		passwordHash, err := security.HashPassword(newPassword, s.passwordCfg)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		if err := userRepo.UpdatePassword(ctx, token.UserID, passwordHash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
		}
		return tokenRepo.Consume(ctx, token.ID, now)
	})
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return UserDTO{}, err
	}
	return FromModel(user), nil
}

// UpdateProfile edits name and email after re-checking the password.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return UserDTO{}, err
	}
	if err := s.verifyPassword(input.CurrentPassword, user.PasswordHash); err != nil {
		return UserDTO{}, err
	}

	updates := map[string]any{}
	if first := strings.TrimSpace(input.FirstName); first != "" {
		updates["first_name"] = first
	}
	if last := strings.TrimSpace(input.LastName); last != "" {
		updates["last_name"] = last
	}
	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" && email != user.Email {
		if _, err := s.repo.FindByEmail(ctx, email); err == nil {
			return UserDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
		}
		updates["email"] = email
	}

	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	updated, err := s.loadUser(ctx, userID)
	if err != nil {
		return UserDTO{}, err
	}
	return FromModel(updated), nil
}

// ChangePassword swaps the password after verifying the current one.
func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if len(next) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.verifyPassword(current, user.PasswordHash); err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(next, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

// UsernameByID resolves a user id to a display name.
func (s *service) UsernameByID(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.FullName(), nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func (s *service) verifyPassword(password, hash string) error {
	valid, err := security.VerifyPassword(password, hash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeForbidden, "current password is incorrect")
	}
	return nil
}

func (s *service) tokenTTL() time.Duration {
	if s.passwordCfg.AccountTokenTTL > 0 {
		return s.passwordCfg.AccountTokenTTL
	}
	return time.Hour
}
