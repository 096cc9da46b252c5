package identity

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/caixaops/backend/internal/domain/identity"
	"github.com/caixaops/backend/internal/domain/shared"
	"github.com/caixaops/backend/internal/domain/tenancy"
	"github.com/caixaops/backend/internal/infrastructure/auth"
)

// AuthService handles authentication: credential verification, token
// issuance and revocation. Refresh tokens carry identity only; roles and
// capabilities are re-resolved from the user record on every refresh so a
// role change takes effect at the next token rotation.
type AuthService struct {
	users      identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// LoginRequest carries login credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued tokens and the authenticated user
type LoginResponse struct {
	Tokens *auth.TokenPair `json:"tokens"`
	User   *UserResponse   `json:"user"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Login authenticates a user and issues a token pair. Unknown usernames and
// wrong passwords produce the same error so the response does not reveal
// which usernames exist.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown username", zap.String("username", req.Username))
			return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
		}
		return nil, err
	}
	if !user.Active {
		s.logger.Warn("Login attempt for deactivated account", zap.String("username", req.Username))
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}
	if !user.CheckPassword(req.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("username", req.Username))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	}

	user.RecordLogin(time.Now())
	if err := s.users.Update(ctx, scopeForUser(user), user); err != nil {
		// Token issuance must not fail because of the login stamp
		s.logger.Error("Failed to record login time", zap.Error(err))
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))
	return &LoginResponse{Tokens: tokens, User: toUserResponse(user)}, nil
}

// Refresh rotates a token pair. The presented refresh token is revoked for
// its remaining lifetime so it cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*LoginResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Refresh token is invalid or expired")
	}
	if revoked, err := s.isRevoked(ctx, claims); err != nil {
		return nil, err
	} else if revoked {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Refresh token has been revoked")
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Refresh token is invalid or expired")
	}
	user, err := s.users.FindByID(ctx, tenancy.Unrestricted(), userID)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Refresh token does not match a known user")
	}
	if !user.Active {
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	if err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		s.logger.Error("Failed to revoke rotated refresh token", zap.Error(err))
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Tokens: tokens, User: toUserResponse(user)}, nil
}

// Logout revokes the caller's access token and, when presented, the paired
// refresh token
func (s *AuthService) Logout(ctx context.Context, accessClaims *auth.Claims, refreshToken string) error {
	if err := s.blacklist.Revoke(ctx, accessClaims.ID, accessClaims.GetRemainingTTL()); err != nil {
		return err
	}
	if refreshToken != "" {
		if claims, err := s.jwtService.ValidateRefreshToken(refreshToken); err == nil {
			if err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
				return err
			}
		}
	}
	s.logger.Info("User logged out", zap.String("user_id", accessClaims.UserID))
	return nil
}

// LogoutAll revokes every outstanding token of a user, for example after a
// password change or a suspected credential leak
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.blacklist.RevokeAllForUser(ctx, userID, s.jwtService.GetRefreshTokenExpiration()); err != nil {
		return err
	}
	s.logger.Info("All sessions revoked", zap.String("user_id", userID))
	return nil
}

// CheckRevocation reports whether the presented claims have been revoked,
// either individually by JTI or by a user-wide revocation instant
func (s *AuthService) CheckRevocation(ctx context.Context, claims *auth.Claims) (bool, error) {
	return s.isRevoked(ctx, claims)
}

func (s *AuthService) isRevoked(ctx context.Context, claims *auth.Claims) (bool, error) {
	if revoked, err := s.blacklist.IsRevoked(ctx, claims.ID); err != nil || revoked {
		return revoked, err
	}
	issuedAt := time.Time{}
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	return s.blacklist.IsRevokedForUser(ctx, claims.UserID, issuedAt)
}

func (s *AuthService) issueTokens(user *identity.User) (*auth.TokenPair, error) {
	roles := user.Roles()
	roleStrings := make([]string, len(roles))
	for i, r := range roles {
		roleStrings[i] = string(r)
	}
	tokens, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:       user.ID,
		TenantID:     user.TenantID,
		Username:     user.Username,
		Roles:        roleStrings,
		Capabilities: user.Capabilities().List(),
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}
	return tokens, nil
}

// scopeForUser resolves the scope that owns a user row: the user's tenant,
// or unrestricted for platform operators.
func scopeForUser(user *identity.User) tenancy.AccessScope {
	if user.TenantID == nil {
		return tenancy.Unrestricted()
	}
	return tenancy.ScopedTo(*user.TenantID)
}
