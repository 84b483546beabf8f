// Package credential owns user passwords and bearer tokens: it registers users with hashed
// passwords, verifies login credentials and issues and validates signed JWTs.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"minichat/internal/apperr"
	"minichat/internal/storage"
)

// Config defines token parameters parsed from environment variables
type Config struct {
	Secret   string        `env:"JWT_SECRET,required"`
	Issuer   string        `env:"JWT_ISSUER" envDefault:"minichat"`
	Audience string        `env:"JWT_AUDIENCE" envDefault:"minichat-api"`
	TTL      time.Duration `env:"JWT_TTL" envDefault:"60m"`
	// BcryptCost is lowered in tests only
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

// UserStore is the part of the persistence layer holding credentials
type UserStore interface {
	CreateUser(ctx context.Context, email, name, passwordHash string) (storage.User, error)
	UserByEmail(ctx context.Context, email string) (storage.User, error)
}

// Claims identifies the caller a token was issued to
type Claims struct {
	UserID uuid.UUID
	Email  string
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Registration struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required"`
	Password string `validate:"required,min=6,max=72"`
}

type Login struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type Service struct {
	logger   *zap.SugaredLogger
	users    UserStore
	cfg      Config
	validate *validator.Validate
	now      func() time.Time
}

func NewService(logger *zap.SugaredLogger, users UserStore, cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", cfg.TTL)
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return &Service{
		logger:   logger,
		users:    users,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
	}, nil
}

// Register validates r, hashes the password and stores a new user
func (s *Service) Register(ctx context.Context, r Registration) (storage.User, error) {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	if err := s.validate.Struct(r); err != nil {
		return storage.User{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cfg.BcryptCost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hashing password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, r.Email, r.Name, string(hash))
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return storage.User{}, fmt.Errorf("%w: email %s is already registered", apperr.ErrConflict, r.Email)
		}
		return storage.User{}, err
	}

	s.logger.Infof("Registered user %s", u.ID)

	return u, nil
}

// Verify returns the user owning l.Email when l.Password matches.
// Unknown email and wrong password are reported identically.
func (s *Service) Verify(ctx context.Context, l Login) (storage.User, error) {
	l.Email = strings.TrimSpace(l.Email)
	if err := s.validate.Struct(l); err != nil {
		return storage.User{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	u, err := s.users.UserByEmail(ctx, l.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			return storage.User{}, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthenticated)
		}
		return storage.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(l.Password)); err != nil {
		return storage.User{}, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthenticated)
	}

	return u, nil
}

// Issue returns a signed token with u.ID as subject
func (s *Service) Issue(u storage.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}

// Validate checks signature, issuer, audience and expiry of token and returns its claims
func (s *Service) Validate(token string) (Claims, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: invalid token: %v", apperr.ErrUnauthenticated, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return Claims{}, fmt.Errorf("%w: invalid token subject", apperr.ErrUnauthenticated)
	}

	return Claims{UserID: id, Email: claims.Email}, nil
}
