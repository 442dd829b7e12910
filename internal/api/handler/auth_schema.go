package handler

import "github.com/bottlerun/exchange-api/internal/core/domain"

type registerRequest struct {
	Username       string `json:"username"        validate:"required,min=3,max=64"`
	Password       string `json:"password"        validate:"required,min=6"`
	Email          string `json:"email"           validate:"required,email"`
	Role           string `json:"role"            validate:"required,oneof=Client Runner"`
	FullName       string `json:"full_name"       validate:"max=128"`
	DOB            string `json:"dob"`
	ProfilePicture string `json:"profile_picture"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required"`
}

type loginRequest struct {
	// Login is a username or an e-mail address.
	Login    string `json:"login"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Code        string `json:"code"         validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type updateProfileRequest struct {
	FullName       *string `json:"full_name"       validate:"omitempty,max=128"`
	Username       *string `json:"username"        validate:"omitempty,min=3,max=64"`
	DOB            *string `json:"dob"`
	ProfilePicture *string `json:"profile_picture"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}
