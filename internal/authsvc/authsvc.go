// Package authsvc implements spec §4.7's small autocomplete/session
// surface: place-name autocomplete passthrough and signup/login over the
// Content store with an unsalted SHA-256 password hash. Grounded on
// services/user/internal/service/user.go's Register/Login shape, scaled
// down from full JWT-session user management to the spec's minimal
// mobile+password account model.
package authsvc

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/avishek-m/pricecompare/internal/content"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
)

const usersTable = "users"

// minPasswordLength mirrors the teacher's own account-creation floor.
const minPasswordLength = 8

// Geocoder is the subset of *geocode.Client autocomplete needs.
type Geocoder interface {
	Autocomplete(ctx context.Context, query string) ([]string, error)
}

// User is the record signup/login work with, mapped to and from a
// content.Row by this package — callers outside authsvc never see a Row.
type User struct {
	Name         string `json:"name"`
	Mobile       string `json:"mobile"`
	PasswordHash string `json:"-"`
	IsPremium    bool   `json:"is_premium"`
}

// Service implements autocomplete, signup, and login.
type Service struct {
	geocoder Geocoder
	store    content.Store
	logger   *slog.Logger

	otpSender OTPSender
}

func New(geocoder Geocoder, store content.Store, logger *slog.Logger) *Service {
	return &Service{geocoder: geocoder, store: store, logger: logger}
}

// hashPassword returns the SHA-256 hex digest of password, per spec §4.7
// ("password_hash=SHA-256(password)").
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Autocomplete implements spec §4.7's autocomplete(query) -> list<string>.
func (s *Service) Autocomplete(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return nil, apperrors.InvalidInput("query is required")
	}
	return s.geocoder.Autocomplete(ctx, query)
}

// Signup implements spec §4.7's signup(name, mobile, password), storing
// {name, mobile, password_hash, is_premium=false} via the Content store.
func (s *Service) Signup(ctx context.Context, name, mobile, password string) (*User, error) {
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if mobile == "" {
		return nil, apperrors.InvalidInput("mobile is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	existing, err := s.store.Select(ctx, usersTable, content.Row{"mobile": mobile})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperrors.Conflict("an account with this mobile number already exists")
	}

	row := content.Row{
		"name":          name,
		"mobile":        mobile,
		"password_hash": hashPassword(password),
		"is_premium":    false,
	}
	if _, err := s.store.Insert(ctx, usersTable, row); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user signed up", slog.String("mobile", mobile))
	return &User{Name: name, Mobile: mobile, IsPremium: false}, nil
}

// Login implements spec §4.7's login(mobile, password): look up by
// (mobile, sha256(password)), returning the user record or a not-found
// error.
func (s *Service) Login(ctx context.Context, mobile, password string) (*User, error) {
	if mobile == "" || password == "" {
		return nil, apperrors.InvalidInput("mobile and password are required")
	}

	rows, err := s.store.Select(ctx, usersTable, content.Row{"mobile": mobile})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NotFound("user", mobile)
	}

	row := rows[0]
	storedHash, _ := row["password_hash"].(string)
	given := hashPassword(password)
	if subtle.ConstantTimeCompare([]byte(storedHash), []byte(given)) != 1 {
		return nil, apperrors.NotFound("user", mobile)
	}

	name, _ := row["name"].(string)
	isPremium, _ := row["is_premium"].(bool)
	return &User{Name: name, Mobile: mobile, IsPremium: isPremium}, nil
}
