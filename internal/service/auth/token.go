package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "dispatch-ops"

// Claims is the access token payload.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 access tokens. Passwords and
// sessions belong to the identity provider in front of this service.
type TokenService struct {
	drivers   DriverGetter
	AccessTTL time.Duration
	secret    string
	now       func() time.Time
	log       logger.Logger
}

func NewTokenService(secret string, drivers DriverGetter, accessTTL time.Duration, log logger.Logger) *TokenService {
	return &TokenService{
		drivers:   drivers,
		AccessTTL: accessTTL,
		secret:    secret,
		now:       time.Now,
		log:       log,
	}
}

// Issue signs a token for identity. A driver token is refused while the
// driver account is disabled.
func (s *TokenService) Issue(ctx context.Context, identity models.Identity) (string, time.Time, error) {
	ctx = wrap.WithAction(ctx, "issue_token")

	if !identity.Role.IsValid() {
		return "", time.Time{}, wrap.Error(ctx, types.Validation("role", fmt.Sprintf("unknown role %q", identity.Role)))
	}

	if identity.Role == types.RoleDriver && s.drivers != nil {
		driver, err := s.drivers.Get(ctx, identity.ID)
		if err != nil {
			return "", time.Time{}, wrap.Error(ctx, err)
		}
		if !driver.IsActive {
			return "", time.Time{}, wrap.Error(ctx, types.ErrAccountDisabled)
		}
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.AccessTTL)

	claims := Claims{
		UserID: identity.ID.String(),
		Role:   identity.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, wrap.Error(ctx, fmt.Errorf("failed to sign token: %w", err))
	}

	s.log.Debug(ctx, "token issued", "user_id", claims.UserID, "role", claims.Role)
	return token, expiresAt, nil
}

// Validate verifies the signature and expiry and returns the caller identity.
func (s *TokenService) Validate(ctx context.Context, token string) (*models.Identity, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, types.ErrInvalidToken
		}
		return []byte(s.secret), nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, wrap.Error(ctx, fmt.Errorf("%w: token expired", types.ErrUnauthenticated))
		}
		return nil, wrap.Error(ctx, types.ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, wrap.Error(ctx, types.ErrInvalidToken)
	}

	role := types.UserRole(claims.Role)
	if !role.IsValid() {
		return nil, wrap.Error(ctx, types.ErrInvalidToken)
	}

	return &models.Identity{ID: userID, Role: role}, nil
}
