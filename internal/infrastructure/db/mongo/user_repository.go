package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

type UserRepository struct {
	col *mongo.Collection
	seq sequence
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers), seq: newSequence(db, collectionUsers)}
}

type mongoUser struct {
	ID             int64  `bson:"_id"`
	Username       string `bson:"username"`
	FullName       string `bson:"full_name,omitempty"`
	Email          string `bson:"email"`
	DOB            string `bson:"dob,omitempty"`
	ProfilePicture string `bson:"profile_picture,omitempty"`
	PasswordHash   string `bson:"password_hash"`
	Role           string `bson:"role"`
	Verified       bool   `bson:"verified"`
	CreatedAt      int64  `bson:"created_at"`
	UpdatedAt      int64  `bson:"updated_at"`
}

func (mu mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:             mu.ID,
		Username:       mu.Username,
		FullName:       mu.FullName,
		Email:          mu.Email,
		DOB:            mu.DOB,
		ProfilePicture: mu.ProfilePicture,
		PasswordHash:   mu.PasswordHash,
		Role:           domain.Role(mu.Role),
		Verified:       mu.Verified,
		CreatedAt:      unixToTime(mu.CreatedAt),
		UpdatedAt:      unixToTime(mu.UpdatedAt),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.seq.next(ctx)
	if err != nil {
		return nil, err
	}
	doc := mongoUser{
		ID:             id,
		Username:       user.Username,
		FullName:       user.FullName,
		Email:          user.Email,
		DOB:            user.DOB,
		ProfilePicture: user.ProfilePicture,
		PasswordHash:   user.PasswordHash,
		Role:           string(user.Role),
		Verified:       user.Verified,
		CreatedAt:      user.CreatedAt.Unix(),
		UpdatedAt:      user.UpdatedAt.Unix(),
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByLogin matches the username exactly or the e-mail case-insensitively.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": login},
		bson.M{"email": emailPattern(login)},
	}})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": emailPattern(email)})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) MarkVerified(ctx context.Context, id int64) error {
	return r.set(ctx, id, bson.M{"verified": true})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.set(ctx, id, bson.M{"password_hash": hash})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, p domain.ProfileUpdate) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	fields := bson.M{"updated_at": time.Now().UTC().Unix()}
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

	var mu mongoUser
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mu)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, domain.ErrUserNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, domain.ErrUserExists
	case err != nil:
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) set(ctx context.Context, id int64, fields bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	fields["updated_at"] = time.Now().UTC().Unix()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func emailPattern(email string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(email) + "$", "$options": "i"}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
