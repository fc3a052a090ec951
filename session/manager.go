// Package session issues, verifies and rotates the access/refresh token pair
// and keeps the single active refresh token on the user document.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/database"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const MinPasswordLength = 8

// UserStore is the slice of the user repository the manager writes through.
type UserStore interface {
	FindByID(ctx context.Context, id bson.ObjectID) (models.User, error)
	SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error
	SwapRefreshToken(ctx context.Context, id bson.ObjectID, current, next string) error
	ClearRefreshToken(ctx context.Context, id bson.ObjectID) error
	SetPasswordHash(ctx context.Context, id bson.ObjectID, hash string, revokeSession bool) error
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// RevokeOnPasswordChange clears the stored refresh token after a password
	// change so other devices must log in again.
	RevokeOnPasswordChange bool
	Now                    func() time.Time
}

type AccessClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type Manager struct {
	users UserStore
	cfg   Config
	now   func() time.Time
}

func NewManager(users UserStore, cfg Config) *Manager {
	if users == nil {
		panic("session: user store must not be nil")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{users: users, cfg: cfg, now: now}
}

// IssueTokens signs a new pair for userID and stores the refresh token,
// replacing whatever session the user had before.
func (m *Manager) IssueTokens(ctx context.Context, userID bson.ObjectID) (models.SessionTokens, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.SessionTokens{}, apierror.NotFoundError("user not found")
		}
		return models.SessionTokens{}, apierror.InternalError("failed to load user", err)
	}

	tokens, err := m.sign(user)
	if err != nil {
		return models.SessionTokens{}, apierror.InternalError("something went wrong while generating tokens", err)
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.SessionTokens{}, apierror.NotFoundError("user not found")
		}
		return models.SessionTokens{}, apierror.InternalError("failed to store refresh token", err)
	}
	return tokens, nil
}

// Authenticate resolves an access token to the user it was issued for. The
// returned user carries no credentials.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	if accessToken == "" {
		return models.User{}, apierror.UnauthorizedError("unauthorized request", nil)
	}

	claims := &AccessClaims{}
	if err := m.parse(accessToken, claims, m.cfg.AccessSecret); err != nil {
		return models.User{}, apierror.UnauthorizedError("invalid access token", err)
	}

	userID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.User{}, apierror.UnauthorizedError("invalid access token", err)
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.User{}, apierror.UnauthorizedError("invalid access token", err)
		}
		return models.User{}, apierror.InternalError("failed to load user", err)
	}
	return user.Public(), nil
}

// Rotate exchanges the current refresh token for a new pair. A token that
// verifies but is no longer the stored one fails with a stale token error, as
// does losing a concurrent rotation for the same user.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, apierror.UnauthorizedError("unauthorized request", nil)
	}

	claims := &RefreshClaims{}
	if err := m.parse(refreshToken, claims, m.cfg.RefreshSecret); err != nil {
		return models.SessionTokens{}, apierror.UnauthorizedError("invalid refresh token", err)
	}
	userID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.SessionTokens{}, apierror.UnauthorizedError("invalid refresh token", err)
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.SessionTokens{}, apierror.UnauthorizedError("invalid refresh token", err)
		}
		return models.SessionTokens{}, apierror.InternalError("failed to load user", err)
	}

	if subtle.ConstantTimeCompare([]byte(refreshToken), []byte(user.RefreshToken)) != 1 {
		return models.SessionTokens{}, apierror.StaleTokenError("refresh token is expired or used")
	}

	tokens, err := m.sign(user)
	if err != nil {
		return models.SessionTokens{}, apierror.InternalError("something went wrong while generating tokens", err)
	}

	if err := m.users.SwapRefreshToken(ctx, user.ID, refreshToken, tokens.RefreshToken); err != nil {
		if errors.Is(err, database.ErrStaleWrite) {
			return models.SessionTokens{}, apierror.StaleTokenError("refresh token is expired or used")
		}
		return models.SessionTokens{}, apierror.InternalError("failed to store refresh token", err)
	}
	return tokens, nil
}

// Invalidate ends the user's session. It succeeds even when no session exists.
func (m *Manager) Invalidate(ctx context.Context, userID bson.ObjectID) error {
	if err := m.users.ClearRefreshToken(ctx, userID); err != nil {
		return apierror.InternalError("failed to clear session", err)
	}
	return nil
}

func (m *Manager) ChangePassword(ctx context.Context, userID bson.ObjectID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apierror.ValidationError("old and new password are required")
	}
	if len(newPassword) < MinPasswordLength {
		return apierror.ValidationError(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apierror.NotFoundError("user not found")
		}
		return apierror.InternalError("failed to load user", err)
	}
	if err := utils.CheckPassword(user.PasswordHash, oldPassword); err != nil {
		return apierror.ValidationError("invalid old password")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return apierror.InternalError("failed to hash password", err)
	}
	if err := m.users.SetPasswordHash(ctx, user.ID, hash, m.cfg.RevokeOnPasswordChange); err != nil {
		return apierror.InternalError("failed to update password", err)
	}
	return nil
}

func (m *Manager) sign(user models.User) (models.SessionTokens, error) {
	now := m.now().UTC()
	accessExp := now.Add(m.cfg.AccessTTL)
	refreshExp := now.Add(m.cfg.RefreshTTL)

	access := AccessClaims{
		UserID:   user.ID.Hex(),
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString([]byte(m.cfg.AccessSecret))
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := RefreshClaims{
		UserID: user.ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString([]byte(m.cfg.RefreshSecret))
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, secret string) error {
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	return err
}
