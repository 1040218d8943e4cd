package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"
)

// ErrValidation marks malformed client input.
var ErrValidation = errors.New("invalid input")

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthUser is the authenticated caller identity and the public account summary.
type AuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (a Account) Public() AuthUser {
	return AuthUser{ID: a.ID, Username: a.Username, Email: a.Email}
}

type SignupRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Normalize trims surrounding whitespace from username and email.
func (r *SignupRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

func (r SignupRequest) Validate() error {
	if err := ValidateUsername(r.Username); err != nil {
		return err
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return invalid("password is required")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Normalize trims the username the same way SignupRequest does.
func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type TokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        AuthUser `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func ValidateUsername(u string) error {
	if len(u) < 3 {
		return invalid("username must be at least 3 characters")
	}
	if len(u) > 30 {
		return invalid("username too long (max 30)")
	}
	for _, r := range u {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return invalid("username may only contain letters, digits, _ and -")
		}
	}
	return nil
}

func ValidateEmail(e string) error {
	if e == "" {
		return invalid("email is required")
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return invalid("invalid email address")
	}
	return nil
}
