package ports

import (
	"context"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Username       string
	Password       string
	Role           domain.Role
	FullName       string
	DOB            string
	Email          string
	ProfilePicture string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Verify(ctx context.Context, email, code string) error
	Login(ctx context.Context, login, password string) (string, *domain.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Me(ctx context.Context, userID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, update domain.ProfileUpdate) (*domain.User, error)
}
