package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	dto := userFromDomain(user)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return dto.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.first(ctx, "username = ? OR LOWER(email) = LOWER(?)", login, login)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *UserRepository) first(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var dto UserDTO
	err := r.db.WithContext(ctx).Where(query, args...).First(&dto).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return dto.toDomain(), nil
}

func (r *UserRepository) MarkVerified(ctx context.Context, id int64) error {
	return r.updates(ctx, id, map[string]any{"verified": true})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.updates(ctx, id, map[string]any{"password_hash": hash})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, p domain.ProfileUpdate) (*domain.User, error) {
	fields := map[string]any{}
	if p.FullName != nil {
		fields["full_name"] = *p.FullName
	}
	if p.Username != nil {
		fields["username"] = *p.Username
	}
	if p.DOB != nil {
		fields["dob"] = *p.DOB
	}
	if p.ProfilePicture != nil {
		fields["profile_picture"] = *p.ProfilePicture
	}
	if err := r.updates(ctx, id, fields); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) updates(ctx context.Context, id int64, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&UserDTO{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
