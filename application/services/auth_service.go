package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"evotree-backend/application/ports"
	"evotree-backend/domain/config"
	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/validators"
	"evotree-backend/domain/core/valueobjects"
	"evotree-backend/domain/events"
	"evotree-backend/pkg/auth"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/pkg/observability"

	"go.uber.org/zap"
)

// TokenIssuer issues and validates access tokens
type TokenIssuer interface {
	GenerateToken(userID int64, email, username string) (string, error)
	ValidateToken(token string) (*auth.Claims, error)
	TTL() time.Duration
}

// PasswordHasher hashes and checks passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashed, password string) bool
}

// AuthConfig holds the settings of the account flows
type AuthConfig struct {
	PublicBaseURL string
	EmailTokenTTL time.Duration
}

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	User        *entities.User
}

// AuthService implements registration, verification and login
type AuthService struct {
	userRepo  ports.UserRepository
	tokenRepo ports.EmailTokenRepository
	mailer    ports.Mailer
	tokens    TokenIssuer
	hasher    PasswordHasher
	validator *validators.CredentialsValidator
	effects   sideEffects
	config    AuthConfig
	clock     ports.Clock
	newToken  func() (string, error)
	logger    *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo ports.UserRepository,
	tokenRepo ports.EmailTokenRepository,
	mailer ports.Mailer,
	tokens TokenIssuer,
	hasher PasswordHasher,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	cfg AuthConfig,
	logger *zap.Logger,
) *AuthService {
	if cfg.EmailTokenTTL <= 0 {
		cfg.EmailTokenTTL = config.DefaultDomainConfig().EmailTokenTTL
	}
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		mailer:    mailer,
		tokens:    tokens,
		hasher:    hasher,
		validator: validators.NewCredentialsValidator(config.DefaultDomainConfig()),
		effects: sideEffects{
			publisher: publisher,
			metrics:   metrics,
			logger:    logger,
		},
		config:   cfg,
		clock:    ports.SystemClock{},
		newToken: auth.GenerateEmailToken,
		logger:   logger,
	}
}

// WithClock replaces the time source
func (s *AuthService) WithClock(clock ports.Clock) *AuthService {
	s.clock = clock
	return s
}

// Register creates an unverified account and sends its verification link
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*entities.User, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if _, err := valueobjects.NewEmail(email); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePassword(password); err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, email, username); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to hash password").WithCause(err)
	}

	now := s.clock.Now()
	user, err := entities.NewUser(email, username, hashed, now)
	if err != nil {
		return nil, err
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if pkgerrors.IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.issueEmailToken(ctx, created, now)
	if err != nil {
		return nil, err
	}

	link := s.verificationLink(token.Token())
	if err := s.mailer.SendVerificationEmail(ctx, created.Email(), created.Username(), link); err != nil {
		s.logger.Warn("Failed to send verification email",
			zap.Int64("userID", created.ID().Int64()),
			zap.Error(err),
		)
	}

	s.logger.Info("User registered", zap.Int64("userID", created.ID().Int64()))

	s.effects.count("users_registered")
	s.effects.publish(ctx, events.NewUserRegistered(created, now))

	return created, nil
}

// VerifyEmail consumes a verification token and marks its user verified
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*entities.User, error) {
	stored, err := s.tokenRepo.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewValidationError("invalid verification token").WithCode(pkgerrors.CodeInvalidToken)
		}
		return nil, fmt.Errorf("failed to look up verification token: %w", err)
	}

	now := s.clock.Now()
	if stored.IsUsed() {
		return nil, pkgerrors.NewValidationError("token already used").WithCode(pkgerrors.CodeInvalidToken)
	}
	if stored.IsExpired(now) {
		return nil, pkgerrors.NewValidationError("token expired").WithCode(pkgerrors.CodeInvalidToken)
	}

	if err := s.tokenRepo.MarkAsUsed(ctx, stored.ID()); err != nil {
		return nil, fmt.Errorf("failed to mark token used: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID())
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewValidationError("invalid verification token").WithCode(pkgerrors.CodeInvalidToken)
		}
		return nil, fmt.Errorf("failed to load user %d: %w", stored.UserID(), err)
	}

	if user.IsVerified() {
		return user, nil
	}

	verified, err := s.userRepo.Update(ctx, user.Verified())
	if err != nil {
		return nil, fmt.Errorf("failed to verify user %d: %w", user.ID(), err)
	}

	s.logger.Info("User email verified", zap.Int64("userID", verified.ID().Int64()))
	s.effects.publish(ctx, events.NewUserEmailVerified(verified, now))

	return verified, nil
}

// Login checks credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewUnauthorizedError("Invalid credentials").WithCode(pkgerrors.CodeInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(user.HashedPassword(), password) {
		return nil, pkgerrors.NewUnauthorizedError("Invalid credentials").WithCode(pkgerrors.CodeInvalidCredentials)
	}
	if !user.IsVerified() {
		return nil, pkgerrors.NewUnauthorizedError("Email not verified").WithCode(pkgerrors.CodeEmailNotVerified)
	}

	accessToken, err := s.tokens.GenerateToken(user.ID().Int64(), user.Email(), user.Username())
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to issue access token").WithCause(err)
	}

	s.logger.Info("User logged in", zap.Int64("userID", user.ID().Int64()))

	return &LoginResult{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   s.tokens.TTL(),
		User:        user,
	}, nil
}

// Authenticate resolves a bearer token to a verified user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*entities.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, pkgerrors.NewUnauthorizedError("Could not validate credentials").WithCause(err)
	}

	rawID, err := claims.UserID()
	if err != nil {
		return nil, pkgerrors.NewUnauthorizedError("Could not validate credentials").WithCause(err)
	}

	user, err := s.userRepo.GetByID(ctx, valueobjects.UserID(rawID))
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewUnauthorizedError("Could not validate credentials")
		}
		return nil, fmt.Errorf("failed to load user %d: %w", rawID, err)
	}

	if !user.IsVerified() {
		return nil, pkgerrors.NewForbiddenError("User email not verified").WithCode(pkgerrors.CodeEmailNotVerified)
	}

	return user, nil
}

// PurgeExpiredTokens removes verification tokens past their expiry
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int, error) {
	removed, err := s.tokenRepo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired tokens: %w", err)
	}
	s.logger.Info("Purged expired email tokens", zap.Int("removed", removed))
	return removed, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, email, username string) error {
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return pkgerrors.NewConflictError("Email already registered").WithCode(pkgerrors.CodeEmailTaken)
	} else if !pkgerrors.IsNotFound(err) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return pkgerrors.NewConflictError("Username already taken").WithCode(pkgerrors.CodeUsernameTaken)
	} else if !pkgerrors.IsNotFound(err) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	return nil
}

func (s *AuthService) issueEmailToken(ctx context.Context, user *entities.User, now time.Time) (*entities.EmailToken, error) {
	raw, err := s.newToken()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to generate verification token").WithCause(err)
	}

	token, err := entities.NewEmailToken(user.ID(), raw, now, s.config.EmailTokenTTL)
	if err != nil {
		return nil, err
	}

	stored, err := s.tokenRepo.Create(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to store verification token: %w", err)
	}
	return stored, nil
}

func (s *AuthService) verificationLink(token string) string {
	base := strings.TrimRight(s.config.PublicBaseURL, "/")
	return base + "/verify-email?token=" + url.QueryEscape(token)
}
