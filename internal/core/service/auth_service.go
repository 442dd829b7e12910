package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/core/ports"
)

const (
	verifyCodeTTL = 24 * time.Hour
	resetCodeTTL  = 15 * time.Minute
)

// AuthService implements registration, account verification, login and
// profile management.
type AuthService struct {
	users     ports.UserRepository
	codes     ports.CodeStore
	mail      ports.MailQueue
	logger    zerolog.Logger
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(
	users ports.UserRepository,
	codes ports.CodeStore,
	mail ports.MailQueue,
	logger zerolog.Logger,
	jwtSecret string,
	tokenTTL time.Duration,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		codes:     codes,
		mail:      mail,
		logger:    logger,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Register creates an unverified Client or Runner account and mails the
// verification code.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if in.Username == "" || in.Password == "" || in.Email == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if in.Role != domain.RoleClient && in.Role != domain.RoleRunner {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:       in.Username,
		FullName:       in.FullName,
		Email:          strings.ToLower(in.Email),
		DOB:            in.DOB,
		ProfilePicture: in.ProfilePicture,
		PasswordHash:   string(hash),
		Role:           in.Role,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	code, err := numericCode(6)
	if err != nil {
		return nil, fmt.Errorf("register: generate code: %w", err)
	}
	if err := s.codes.Save(ctx, ports.PurposeVerifyAccount, created.Email, code, verifyCodeTTL); err != nil {
		return nil, fmt.Errorf("register: save code: %w", err)
	}
	s.mail.Enqueue(domain.Mail{
		To:      created.Email,
		Subject: "Verify your account",
		Body:    fmt.Sprintf("Hello %s,\n\nYour verification code is %s. It expires in 24 hours.\n", created.DisplayName(), code),
	})

	s.logger.Info().Int64("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}

func (s *AuthService) Verify(ctx context.Context, email, code string) error {
	email = strings.ToLower(email)
	ok, err := s.codes.Consume(ctx, ports.PurposeVerifyAccount, email, code)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !ok {
		return domain.ErrInvalidCode
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.users.MarkVerified(ctx, user.ID)
}

// Login accepts either the username or the e-mail address.
func (s *AuthService) Login(ctx context.Context, login, password string) (string, *domain.User, error) {
	if login == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByLogin(ctx, login)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !user.Verified {
		return "", nil, domain.ErrNotVerified
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// ForgotPassword mails a reset code when the address is known. It reports
// success either way so callers cannot probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Error().Err(err).Msg("forgot password: lookup failed")
		}
		return nil
	}

	code, err := numericCode(6)
	if err != nil {
		return fmt.Errorf("forgot password: generate code: %w", err)
	}
	if err := s.codes.Save(ctx, ports.PurposeResetPassword, email, code, resetCodeTTL); err != nil {
		return fmt.Errorf("forgot password: save code: %w", err)
	}
	s.mail.Enqueue(domain.Mail{
		To:      email,
		Subject: "Password reset",
		Body:    fmt.Sprintf("Hello %s,\n\nYour password reset code is %s. It expires in 15 minutes.\n", user.DisplayName(), code),
	})
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if newPassword == "" {
		return domain.ErrInvalidCredentials
	}
	email = strings.ToLower(email)
	ok, err := s.codes.Consume(ctx, ports.PurposeResetPassword, email, code)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if !ok {
		return domain.ErrInvalidCode
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, string(hash))
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, update domain.ProfileUpdate) (*domain.User, error) {
	if update.Empty() {
		return nil, domain.ErrNothingToUpdate
	}
	return s.users.UpdateProfile(ctx, userID, update)
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"id":       user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// numericCode returns n random decimal digits.
func numericCode(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
