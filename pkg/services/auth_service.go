package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"watchlist/pkg/auth"
	"watchlist/pkg/envelope"
	"watchlist/pkg/logger"
	"watchlist/pkg/metrics"
	"watchlist/pkg/models"
	"watchlist/pkg/repository"

	"github.com/sirupsen/logrus"
)

const (
	msgBadCredentials   = "Incorrect username or password"
	msgInvalidToken     = "Could not validate credentials"
	msgUsernameTaken    = "Username already registered"
	msgEmailTaken       = "Email already registered"
	msgSignupSuccessful = "User created successfully"
)

// EventPublisher receives domain events after a mutation succeeds.
type EventPublisher interface {
	Emit(ctx context.Context, action, userID string, data interface{})
}

type AuthService interface {
	Signup(ctx context.Context, req models.SignupRequest) (models.MessageResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (models.TokenResponse, error)
	Authenticate(ctx context.Context, token string) (models.AuthUser, error)
}

type AuthDeps struct {
	Users    repository.UserRepository
	Hasher   *auth.Hasher
	Tokens   *auth.TokenCodec
	TokenTTL time.Duration
	Events   EventPublisher
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger
}

type authService struct {
	AuthDeps

	// verified against when the username is unknown so both login failures cost a bcrypt compare
	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(d AuthDeps) AuthService {
	if d.Events == nil {
		d.Events = nopEvents{}
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	return &authService{AuthDeps: d}
}

func (s *authService) Signup(ctx context.Context, req models.SignupRequest) (models.MessageResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.MessageResponse{}, invalidInput(err)
	}

	taken, err := s.Users.Exists(ctx, req.Username)
	if err != nil {
		return models.MessageResponse{}, internal("check username", err)
	}
	if taken {
		return models.MessageResponse{}, newError(KindConflict, msgUsernameTaken)
	}

	taken, err = s.Users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return models.MessageResponse{}, internal("check email", err)
	}
	if taken {
		return models.MessageResponse{}, newError(KindConflict, msgEmailTaken)
	}

	digest, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return models.MessageResponse{}, internal("hash password", err)
	}

	acc, err := s.Users.Insert(ctx, req.Username, req.Email, digest)
	if err != nil {
		// lost a race with a concurrent signup
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			if dup.Field == "email" {
				return models.MessageResponse{}, newError(KindConflict, msgEmailTaken)
			}
			return models.MessageResponse{}, newError(KindConflict, msgUsernameTaken)
		}
		return models.MessageResponse{}, internal("create user", err)
	}

	s.Metrics.ObserveAuth(metrics.EventSignup)
	s.Events.Emit(ctx, envelope.UserRegistered, acc.ID, acc.Public())
	s.Logger.WithFields(logrus.Fields{
		"user_id":  acc.ID,
		"username": acc.Username,
	}).Info("user registered")

	return models.MessageResponse{Message: msgSignupSuccessful}, nil
}

func (s *authService) Login(ctx context.Context, req models.LoginRequest) (models.TokenResponse, error) {
	req.Normalize()

	acc, err := s.Users.FindByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return models.TokenResponse{}, internal("load user", err)
	}

	if acc == nil {
		s.Hasher.Verify(req.Password, s.dummy())
		return models.TokenResponse{}, s.loginFailed(req.Username)
	}
	if !s.Hasher.Verify(req.Password, acc.PasswordHash) {
		return models.TokenResponse{}, s.loginFailed(req.Username)
	}

	token, err := s.Tokens.Issue(acc.Username, s.TokenTTL)
	if err != nil {
		return models.TokenResponse{}, internal("issue token", err)
	}

	s.Metrics.ObserveAuth(metrics.EventLoginSuccess)
	s.Logger.WithField("username", acc.Username).Info("user logged in")

	return models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        acc.Public(),
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (models.AuthUser, error) {
	if token == "" {
		return models.AuthUser{}, newError(KindUnauthorized, msgInvalidToken)
	}

	username, err := s.Tokens.Validate(token)
	if err != nil {
		s.Logger.WithError(err).Debug("token rejected")
		return models.AuthUser{}, newError(KindUnauthorized, msgInvalidToken)
	}

	acc, err := s.Users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return models.AuthUser{}, newError(KindUnauthorized, msgInvalidToken)
	}
	if err != nil {
		return models.AuthUser{}, internal("load user", err)
	}
	return acc.Public(), nil
}

func (s *authService) loginFailed(username string) error {
	s.Metrics.ObserveAuth(metrics.EventLoginFailure)
	s.Logger.WithField("username", username).Warn("login failed")
	return newError(KindUnauthorized, msgBadCredentials)
}

func (s *authService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.Hasher.Hash("watchlist-dummy-password")
	})
	return s.dummyDigest
}

func invalidInput(err error) *Error {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return &Error{Kind: KindInvalid, Message: ve.Message, Err: err}
	}
	return &Error{Kind: KindInvalid, Message: err.Error(), Err: err}
}

type nopEvents struct{}

func (nopEvents) Emit(context.Context, string, string, interface{}) {}
