package domain

import "time"

// Role is the capacity a user acts in.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleClient Role = "Client"
	RoleRunner Role = "Runner"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient || r == RoleRunner
}

// User models an authenticated actor in the system.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	DOB            string    `json:"dob,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	Verified       bool      `json:"verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisplayName falls back to the username when no full name was given.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// ProfileUpdate is a sparse update: only non-nil fields are written.
type ProfileUpdate struct {
	FullName       *string
	Username       *string
	DOB            *string
	ProfilePicture *string
}

// Empty reports whether the update carries no field at all.
func (p ProfileUpdate) Empty() bool {
	return p.FullName == nil && p.Username == nil && p.DOB == nil && p.ProfilePicture == nil
}
