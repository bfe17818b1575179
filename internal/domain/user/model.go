package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/healthcare/healthcare-api/internal/platform/auth"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// User is an account that can authenticate against the API. Users are never
// hard-deleted; IsActive=false disables login.
type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	Email      string    `db:"email" json:"email"`
	Password   string    `db:"password" json:"-"`
	Phone      *string   `db:"phone" json:"phone"`
	Role       string    `db:"role" json:"role"`
	IsActive   bool      `db:"is_active" json:"-"`
	DateJoined time.Time `db:"date_joined" json:"-"`
}

// Identity returns the claims carried in this user's tokens.
func (u *User) Identity() auth.Identity {
	return auth.Identity{UserID: u.ID.String(), Email: u.Email, Role: u.Role}
}

// Public is the registration view of a user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email, Phone: u.Phone, Role: u.Role}
}

type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Phone    *string   `json:"phone"`
	Role     string    `json:"role"`
}

type RegisterRequest struct {
	Username string  `json:"username" validate:"required,max=150,username"`
	Email    string  `json:"email" validate:"required,max=254,email"`
	Password string  `json:"password" validate:"required"`
	Phone    *string `json:"phone" validate:"omitempty,max=15"`
	Role     string  `json:"role" validate:"required,oneof=patient doctor"`
}

// Normalize lowercases the email and treats a blank phone as absent.
func (r *RegisterRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Phone != nil && strings.TrimSpace(*r.Phone) == "" {
		r.Phone = nil
	}
}

type RegisterResponse struct {
	User    PublicUser     `json:"user"`
	Message string         `json:"message"`
	Tokens  auth.TokenPair `json:"tokens"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type LoginResponse struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
	User    LoginUser `json:"user"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}
