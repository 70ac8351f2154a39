// Package services – AuthService
//
// AuthService owns accounts and login sessions. Passwords are stored as bcrypt
// hashes. A login creates a server-side AuthSession row and returns an HS256
// token whose jti names that row, so logout is a single delete and a token
// outlives neither its row nor the signing secret.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/chatproxy/internal/domain"
	"github.com/tbourn/chatproxy/internal/repo"
)

const (
	maxEmailLen = 100
	maxNameLen  = 100
)

// Identity is the authenticated principal of a request.
type Identity struct {
	User      *domain.User
	SessionID string
}

// AuthService manages credentials and login sessions.
type AuthService struct {
	DB *gorm.DB

	// Secret signs session tokens (HS256).
	Secret []byte
	// TTL is the lifetime of a login session.
	TTL time.Duration
	// BcryptCost is the work factor for new password hashes.
	BcryptCost int

	// Now is a clock seam for tests; nil means time.Now.
	Now func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, secret string, ttl time.Duration, cost int) *AuthService {
	return &AuthService{DB: db, Secret: []byte(secret), TTL: ttl, BcryptCost: cost}
}

// NormalizeEmail trims and case-folds an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// CreateUser registers a new account. The password is hashed before storage.
func (s *AuthService) CreateUser(ctx context.Context, email, password, name string) (*domain.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "CreateUser")
	defer span.End()

	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if !plausibleEmail(email) {
		return nil, ErrInvalidEmail
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return nil, ErrInvalidName
	}

	exists, err := repo.EmailExists(ctx, s.DB, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, err
	}

	u, err := repo.CreateUser(ctx, s.DB, email, string(hash), name)
	if errors.Is(err, repo.ErrDuplicate) {
		// lost a race with a concurrent signup
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user.id", int64(u.ID)))
	return u, nil
}

// VerifyCredentials returns the user whose email and password match.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "VerifyCredentials")
	defer span.End()

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		// Burn the same bcrypt work so response time does not reveal
		// whether the account exists.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetUserByID returns the user or nil when no such user exists.
func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*domain.User, error) {
	u, err := repo.GetUserByID(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// Login verifies credentials and opens a session. It returns the signed token
// to be stored in the session cookie.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	tok, err := s.StartSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

// StartSession opens a login session for userID and returns its signed token.
func (s *AuthService) StartSession(ctx context.Context, userID uint) (string, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "StartSession",
		trace.WithAttributes(attribute.Int64("user.id", int64(userID))),
	)
	defer span.End()

	sess, err := repo.CreateAuthSession(ctx, s.DB, userID, s.TTL)
	if err != nil {
		return "", err
	}
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// CurrentUser resolves a session token to its identity. Any problem with the
// token or its session yields ErrUnauthenticated.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "CurrentUser")
	defer span.End()

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.ID == "" {
		return nil, ErrUnauthenticated
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	sess, err := repo.GetAuthSession(ctx, s.DB, claims.ID, s.now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if uint64(sess.UserID) != uid {
		return nil, ErrUnauthenticated
	}

	u, err := s.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnauthenticated
	}
	span.SetAttributes(attribute.Int64("user.id", int64(u.ID)))
	return &Identity{User: u, SessionID: sess.ID}, nil
}

// Logout revokes a login session. Unknown sessions are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Logout")
	defer span.End()
	return repo.DeleteAuthSession(ctx, s.DB, sessionID)
}

// PurgeExpired deletes expired login sessions.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredSessions(ctx, s.DB, s.now().UTC())
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) cost() int {
	if s.BcryptCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost())
	})
	return s.dummyHash
}

// plausibleEmail accepts local@domain with no whitespace.
func plausibleEmail(email string) bool {
	if len(email) > maxEmailLen || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && at < len(email)-1
}
