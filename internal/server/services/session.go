package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/manukko/todos/internal/common"
	"github.com/manukko/todos/internal/logging"
	"github.com/manukko/todos/internal/server/auth"
	"github.com/manukko/todos/internal/server/models"
	"github.com/manukko/todos/internal/server/repositories/repomanager"
)

// Sender delivers transactional mail.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Revoker tracks invalidated session token IDs.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenPair is what a successful login hands back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService owns the account and session lifecycle: registration,
// login, token renewal, revocation, email verification and password reset.
type SessionService struct {
	db          *sql.DB
	repos       repomanager.RepositoryManager
	codec       *auth.TokenCodec
	verifyLinks *auth.LinkCodec
	resetLinks  *auth.LinkCodec
	revoked     Revoker
	mailer      Sender
	log         logging.Logger
	accessTTL   time.Duration
	renewalTTL  time.Duration
	baseURL     string
}

type SessionServiceParams struct {
	DB          *sql.DB
	Repos       repomanager.RepositoryManager
	Codec       *auth.TokenCodec
	VerifyLinks *auth.LinkCodec
	ResetLinks  *auth.LinkCodec
	Revoked     Revoker
	Mailer      Sender
	Logger      logging.Logger
	AccessTTL   time.Duration
	RenewalTTL  time.Duration
	BaseURL     string
}

func NewSessionService(p SessionServiceParams) *SessionService {
	return &SessionService{
		db:          p.DB,
		repos:       p.Repos,
		codec:       p.Codec,
		verifyLinks: p.VerifyLinks,
		resetLinks:  p.ResetLinks,
		revoked:     p.Revoked,
		mailer:      p.Mailer,
		log:         p.Logger,
		accessTTL:   p.AccessTTL,
		renewalTTL:  p.RenewalTTL,
		baseURL:     p.BaseURL,
	}
}

// Register creates an unverified account and emails a verification link.
// Mail delivery happens in the background so a slow relay never blocks
// registration.
func (s *SessionService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := CheckUsername(username); err != nil {
		return nil, err
	}
	if err := CheckPassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.repos.Users(s.db).Create(ctx, username, email, hash)
	if err != nil {
		return nil, err
	}

	go s.sendVerificationMail(user)

	return user, nil
}

func (s *SessionService) sendVerificationMail(user *models.User) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	link := fmt.Sprintf("%s/api/v1/verify_email/%s", s.baseURL, s.verifyLinks.Encode(user.Username))
	body := fmt.Sprintf("Hi %s,\n\nfollow this link to verify your account:\n%s\n", user.Username, link)

	if err := s.mailer.Send(ctx, user.Email, "Verify your account", body); err != nil {
		s.log.Error(ctx, "sending verification mail", "username", user.Username, "error", err)
	}
}

// Authenticate checks a username/password pair. Unknown usernames and wrong
// passwords produce the same error so callers cannot probe which accounts
// exist.
func (s *SessionService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repos.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// Login authenticates and issues a fresh access/renewal token pair.
func (s *SessionService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	access, err := s.codec.Issue(user.Username, auth.KindAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	renewal, err := s.codec.Issue(user.Username, auth.KindRenewal, s.renewalTTL)
	if err != nil {
		return nil, fmt.Errorf("issuing renewal token: %w", err)
	}

	s.log.Info(ctx, "user logged in", "username", user.Username)
	return &TokenPair{AccessToken: access, RefreshToken: renewal}, nil
}

// Refresh exchanges a valid renewal token for a new access token. The
// renewal token itself stays valid until it expires.
func (s *SessionService) Refresh(ctx context.Context, renewalToken string) (string, error) {
	claims, err := s.codec.Verify(renewalToken, auth.KindRenewal)
	if err != nil {
		return "", common.ErrorUnauthorized
	}

	access, err := s.codec.Issue(claims.Subject, auth.KindAccess, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("issuing access token: %w", err)
	}
	return access, nil
}

// Logout revokes the presented access token. The denylist entry lives for
// the full access TTL, which always covers the token's remaining lifetime.
func (s *SessionService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.codec.Verify(accessToken, auth.KindAccess)
	if err != nil {
		return common.ErrorUnauthorized
	}

	if err := s.revoked.Revoke(ctx, claims.ID, s.accessTTL); err != nil {
		return err
	}

	s.log.Info(ctx, "user logged out", "username", claims.Subject)
	return nil
}

// ResolveIdentity validates an access token, rejects revoked ones, and
// returns the account it belongs to. All failure modes collapse into
// ErrorUnauthorized.
func (s *SessionService) ResolveIdentity(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.codec.Verify(accessToken, auth.KindAccess)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repos.Users(s.db).GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// VerifyEmail consumes an emailed verification token and marks the account
// verified. Verifying twice is harmless.
func (s *SessionService) VerifyEmail(ctx context.Context, token string) error {
	username, ok := s.verifyLinks.Decode(token)
	if !ok {
		return common.ErrorUnauthorized
	}

	userRepo := s.repos.Users(s.db)
	user, err := userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return err
	}

	if err := userRepo.MarkVerified(ctx, user.ID); err != nil {
		return err
	}

	s.log.Info(ctx, "account verified", "username", username)
	return nil
}

// RequestPasswordReset emails a reset link when the address belongs to an
// account. It reports success either way so the endpoint cannot be used to
// discover registered addresses.
func (s *SessionService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}

	go s.sendResetMail(user)
	return nil
}

func (s *SessionService) sendResetMail(user *models.User) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	link := fmt.Sprintf("%s/api/v1/reset_password/%s", s.baseURL, s.resetLinks.Encode(user.Username))
	body := fmt.Sprintf("Hi %s,\n\nfollow this link to reset your password:\n%s\n\nIf you did not request this, ignore this mail.\n", user.Username, link)

	if err := s.mailer.Send(ctx, user.Email, "Reset your password", body); err != nil {
		s.log.Error(ctx, "sending reset mail", "username", user.Username, "error", err)
	}
}

// ResetPassword consumes an emailed reset token and replaces the account's
// password.
func (s *SessionService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	username, ok := s.resetLinks.Decode(token)
	if !ok {
		return common.ErrorUnauthorized
	}

	if newPassword != confirmPassword {
		return common.ErrorPasswordMismatch
	}
	if err := CheckPassword(newPassword); err != nil {
		return err
	}

	userRepo := s.repos.Users(s.db)
	user, err := userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.log.Info(ctx, "password reset", "username", username)
	return nil
}

// DeleteAccount removes an account after re-checking its password. Item
// rows go with it via the FK cascade.
func (s *SessionService) DeleteAccount(ctx context.Context, user *models.User, password string) error {
	if !auth.CheckPassword(user.PasswordHash, password) {
		return common.ErrorUnauthorized
	}

	if err := s.repos.Users(s.db).Delete(ctx, user.ID); err != nil {
		return err
	}

	s.log.Info(ctx, "account deleted", "username", user.Username)
	return nil
}
