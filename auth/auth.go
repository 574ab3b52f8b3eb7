/*
Package auth is the access-control collaborator: it maps a caller to a
username and role so the API can gate operations.

PURPOSE:
  Signup, login, and token verification. Passwords are stored as bcrypt
  hashes in the Users collection; a successful login issues a signed
  HS256 JWT carrying the username and role, which the API layer verifies
  on every request.

TOKENS:
  Claims: sub (username), role, jti (random id), exp. Tokens expire
  after the configured TTL (default 8 hours, the session length of the
  deployments this replaced). There is no refresh or revocation; expiry
  is the only invalidation.

SEE ALSO:
  - api: Bearer-token middleware built on Verify
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/library-engine/library"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 8 * time.Hour

var (
	// ErrInvalidCredentials is returned on login with a wrong username or
	// password. Deliberately does not say which.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTaken is returned on signup with an existing username.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidToken is returned when a token fails verification for any
	// reason (bad signature, expired, malformed claims).
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the verified caller extracted from a token.
type Identity struct {
	Username string
	Role     library.Role
}

// Service performs signup, login and token verification against the
// Users collection.
type Service struct {
	store  library.Store
	secret []byte
	ttl    time.Duration
}

// NewService creates an auth service signing tokens with secret.
func NewService(store library.Store, secret string) *Service {
	return &Service{store: store, secret: []byte(secret), ttl: DefaultTTL}
}

// WithTTL overrides the token lifetime.
func (s *Service) WithTTL(ttl time.Duration) *Service {
	s.ttl = ttl
	return s
}

// =============================================================================
// SIGNUP / LOGIN
// =============================================================================

// SignUp registers a new user. Username, password and a valid role are
// required; the username must be unique.
func (s *Service) SignUp(ctx context.Context, username, password string, role library.Role) (library.User, error) {
	if username == "" {
		return library.User{}, &library.ValidationError{Field: "username"}
	}
	if password == "" {
		return library.User{}, &library.ValidationError{Field: "password"}
	}
	if !role.Valid() {
		return library.User{}, &library.ValidationError{Field: "role", Reason: "must be admin or student"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return library.User{}, fmt.Errorf("hash password: %w", err)
	}

	var user library.User
	err = s.store.Mutate(ctx, func(state *library.State) error {
		if state.FindUser(username) != nil {
			return ErrUsernameTaken
		}
		user = library.User{
			ID:       nextUserID(state.Users),
			Username: username,
			Password: string(hash),
			Role:     role,
		}
		state.Users = append(state.Users, user)
		return nil
	})
	if err != nil {
		return library.User{}, err
	}
	return user, nil
}

// Login verifies the credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, username, password string) (library.User, string, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return library.User{}, "", err
	}

	for _, u := range users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
			return library.User{}, "", ErrInvalidCredentials
		}
		token, err := s.issue(u)
		if err != nil {
			return library.User{}, "", err
		}
		return u, token, nil
	}
	return library.User{}, "", ErrInvalidCredentials
}

// =============================================================================
// TOKENS
// =============================================================================

func (s *Service) issue(u library.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  u.Username,
		"role": string(u.Role),
		"jti":  uuid.NewString(),
		"exp":  time.Now().Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify parses and validates a token string and returns the caller's
// identity.
func (s *Service) Verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	roleStr, _ := claims["role"].(string)
	role := library.Role(roleStr)
	if sub == "" || !role.Valid() {
		return Identity{}, ErrInvalidToken
	}

	return Identity{Username: sub, Role: role}, nil
}

func nextUserID(users []library.User) int {
	max := 0
	for _, u := range users {
		if u.ID > max {
			max = u.ID
		}
	}
	return max + 1
}
