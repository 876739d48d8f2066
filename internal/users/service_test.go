package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oldphonedeals/backend/pkg/config"
	"github.com/oldphonedeals/backend/pkg/db"
	"github.com/oldphonedeals/backend/pkg/db/models"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/outbox"
)

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) lastVerificationToken(t *testing.T) string {
	t.Helper()
	for i := len(s.events) - 1; i >= 0; i-- {
		if data, ok := s.events[i].Data.(outbox.UserRegisteredData); ok {
			return data.VerificationToken
		}
	}
	t.Fatal("no user_registered event emitted")
	return ""
}

func (s *stubOutbox) lastResetToken(t *testing.T) string {
	t.Helper()
	for i := len(s.events) - 1; i >= 0; i-- {
		if data, ok := s.events[i].Data.(outbox.PasswordResetRequestedData); ok {
			return data.ResetToken
		}
	}
	t.Fatal("no password_reset_requested event emitted")
	return ""
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
		AccountTokenTTL:  time.Hour,
	}
}

type testEnv struct {
	svc    Service
	client *db.Client
	outbox *stubOutbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(&models.User{}, &models.AccountToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	emitter := &stubOutbox{}
	svc, err := NewService(ServiceParams{
		DB:          client,
		Repo:        NewRepository(client.DB()),
		Tokens:      NewTokenRepository(client.DB()),
		Outbox:      emitter,
		PasswordCfg: testPasswordConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testEnv{svc: svc, client: client, outbox: emitter}
}

func (e *testEnv) mustRegister(t *testing.T, email string) UserDTO {
	t.Helper()
	dto, err := e.svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return dto
}

func (e *testEnv) mustRegisterVerified(t *testing.T, email string) UserDTO {
	t.Helper()
	e.mustRegister(t, email)
	dto, err := e.svc.ConfirmEmail(context.Background(), e.outbox.lastVerificationToken(t))
	if err != nil {
		t.Fatalf("confirm email: %v", err)
	}
	return dto
}

func TestRegisterValidatesFieldsInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	valid := RegisterInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "longenough"}

	cases := []struct {
		name    string
		mutate  func(in *RegisterInput)
		message string
	}{
		{"missing firstname", func(in *RegisterInput) { in.FirstName = " " }, "firstname is required"},
		{"missing lastname", func(in *RegisterInput) { in.LastName = "" }, "lastname is required"},
		{"missing email", func(in *RegisterInput) { in.Email = "  " }, "email is required"},
		{"missing password", func(in *RegisterInput) { in.Password = "" }, "password is required"},
		{"short password", func(in *RegisterInput) { in.Password = "short" }, "password must be at least 8 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			_, err := env.svc.Register(ctx, input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if typed.Message() != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, typed.Message())
			}
		})
	}
}

func TestRegisterNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dto := env.mustRegister(t, "  Ada@Example.COM ")
	if dto.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", dto.Email)
	}
	if dto.EmailVerified {
		t.Fatal("expected fresh account to be unverified")
	}

	_, err := env.svc.Register(ctx, RegisterInput{
		FirstName: "Other", LastName: "Person", Email: "ada@example.com", Password: "longenough",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestConfirmEmailMarksVerified(t *testing.T) {
	env := newTestEnv(t)

	dto := env.mustRegisterVerified(t, "ada@example.com")
	if !dto.EmailVerified {
		t.Fatal("expected EmailVerified after confirmation")
	}

	// The token is single use, and replaying it must not touch the account.
	_, err := env.svc.ConfirmEmail(context.Background(), env.outbox.lastVerificationToken(t))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected consumed token rejection, got %v", err)
	}
	var count int64
	if err := env.client.DB().Model(&models.User{}).Where("id = ?", dto.ID).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatal("expected verified account to survive a replayed token")
	}
}

func TestConfirmEmailExpiredDeletesPendingAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dto := env.mustRegister(t, "ada@example.com")
	err := env.client.DB().Model(&models.AccountToken{}).
		Where("user_id = ?", dto.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error
	if err != nil {
		t.Fatalf("expire token: %v", err)
	}

	_, err = env.svc.ConfirmEmail(ctx, env.outbox.lastVerificationToken(t))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var count int64
	if err := env.client.DB().Model(&models.User{}).Where("id = ?", dto.ID).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Fatal("expected pending account removed so the email can be reused")
	}
}

func TestConfirmEmailUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ConfirmEmail(context.Background(), "deadbeef")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dto := env.mustRegisterVerified(t, "ada@example.com")

	if err := env.svc.RequestPasswordReset(ctx, "ada@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	// A second request replaces the first token.
	if err := env.svc.RequestPasswordReset(ctx, "ada@example.com"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	var tokenCount int64
	err := env.client.DB().Model(&models.AccountToken{}).
		Where("user_id = ? AND purpose = ?", dto.ID, models.AccountTokenPurposeResetPassword).
		Count(&tokenCount).Error
	if err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	if tokenCount != 1 {
		t.Fatalf("expected one outstanding reset token, got %d", tokenCount)
	}

	if err := env.svc.ResetPassword(ctx, env.outbox.lastResetToken(t), "new-password"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	// The new password now gates profile updates.
	if _, err := env.svc.UpdateProfile(ctx, dto.ID, UpdateProfileInput{
		FirstName:       "Augusta",
		CurrentPassword: "new-password",
	}); err != nil {
		t.Fatalf("update with new password: %v", err)
	}
	_, err = env.svc.UpdateProfile(ctx, dto.ID, UpdateProfileInput{
		FirstName:       "Nope",
		CurrentPassword: "correct-horse",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected old password rejected, got %v", err)
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateProfileChecksEmailUniqueness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustRegisterVerified(t, "taken@example.com")
	dto := env.mustRegisterVerified(t, "ada@example.com")

	_, err := env.svc.UpdateProfile(ctx, dto.ID, UpdateProfileInput{
		Email:           "taken@example.com",
		CurrentPassword: "correct-horse",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dto := env.mustRegisterVerified(t, "ada@example.com")

	err := env.svc.ChangePassword(ctx, dto.ID, "correct-horse", "tiny")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for short password, got %v", err)
	}

	err = env.svc.ChangePassword(ctx, dto.ID, "wrong-password", "replacement1")
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for wrong current password, got %v", err)
	}

	if err := env.svc.ChangePassword(ctx, dto.ID, "correct-horse", "replacement1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if err := env.svc.ChangePassword(ctx, dto.ID, "replacement1", "replacement2"); err != nil {
		t.Fatalf("change with new password: %v", err)
	}
}

func TestUsernameByID(t *testing.T) {
	env := newTestEnv(t)
	dto := env.mustRegisterVerified(t, "ada@example.com")

	name, err := env.svc.UsernameByID(context.Background(), dto.ID)
	if err != nil {
		t.Fatalf("username: %v", err)
	}
	if name != "Ada Lovelace" {
		t.Fatalf("expected full name, got %q", name)
	}

	_, err = env.svc.UsernameByID(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
