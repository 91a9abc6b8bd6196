package domain

import "time"

type User struct {
	UserID       string     `json:"id" dynamodbav:"user_id"`
	Username     string     `json:"username" dynamodbav:"username"`
	Email        string     `json:"email" dynamodbav:"email,omitempty"`
	Phone        *string    `json:"phone" dynamodbav:"phone,omitempty"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash"`
	Role         string     `json:"role" dynamodbav:"role"`
	FirstName    string     `json:"first_name" dynamodbav:"first_name"`
	LastName     string     `json:"last_name" dynamodbav:"last_name"`
	Verified     bool       `json:"verified" dynamodbav:"verified"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty" dynamodbav:"verified_at"`
	IsDemo       bool       `json:"is_demo,omitempty" dynamodbav:"is_demo"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type SignupRequest struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"omitempty,phone"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Role            string `json:"role" validate:"omitempty,oneof=patient driver hospital admin"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

type ForgotPasswordRequest struct {
	Value  string    `json:"value" validate:"required"`
	Method OTPMethod `json:"method" validate:"required"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
