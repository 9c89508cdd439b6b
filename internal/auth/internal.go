package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Headers carried on service-to-service calls. The identity headers are
// informational; only the signed token is trusted.
const (
	HeaderInternalToken = "X-Internal-Token"
	HeaderUserID        = "X-User-Id"
	HeaderUserIsStaff   = "X-User-Is-Staff"
	HeaderUserIsSuper   = "X-User-Is-Super-User"
)

const (
	internalAudience = "internal/properties"
	callerKey        = "auth_caller"
)

// Caller is the identity forwarded by a first stage handler
type Caller struct {
	UserID      string `json:"uid"`
	IsStaff     bool   `json:"staff"`
	IsSuperUser bool   `json:"super"`
	TypeID      string `json:"tid,omitempty"`
}

// Elevated reports whether the caller holds a staff or superuser role
func (c Caller) Elevated() bool {
	return c.IsStaff || c.IsSuperUser
}

// InternalClaims is the payload of the internal service token
type InternalClaims struct {
	Caller
	jwt.RegisteredClaims
}

// InternalSigner issues and checks short lived service tokens
type InternalSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewInternalSigner returns a signer. ttl defaults to one minute.
func NewInternalSigner(secret string, ttl time.Duration) (*InternalSigner, error) {
	if secret == "" {
		return nil, errors.New("internal token secret is required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &InternalSigner{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign issues a token for caller
func (s *InternalSigner) Sign(caller Caller) (string, error) {
	now := s.now()
	claims := InternalClaims{
		Caller: caller,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			Audience:  jwt.ClaimStrings{internalAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Apply sets the token and the identity headers on h
func (s *InternalSigner) Apply(h http.Header, caller Caller) error {
	token, err := s.Sign(caller)
	if err != nil {
		return fmt.Errorf("failed to sign internal token: %w", err)
	}
	h.Set(HeaderInternalToken, token)
	h.Set(HeaderUserID, caller.UserID)
	h.Set(HeaderUserIsStaff, strconv.FormatBool(caller.IsStaff))
	h.Set(HeaderUserIsSuper, strconv.FormatBool(caller.IsSuperUser))
	return nil
}

// Verify parses a service token
func (s *InternalSigner) Verify(token string) (*Caller, error) {
	claims := &InternalClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(internalAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims.Caller, nil
}

// Authenticate checks the token on r and that any identity headers agree
// with it
func (s *InternalSigner) Authenticate(r *http.Request) (*Caller, error) {
	token := r.Header.Get(HeaderInternalToken)
	if token == "" {
		return nil, ErrInvalidToken
	}
	caller, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	if id := r.Header.Get(HeaderUserID); id != "" && id != caller.UserID {
		return nil, fmt.Errorf("%w: %s does not match token", ErrInvalidToken, HeaderUserID)
	}
	if err := matchFlag(r.Header.Get(HeaderUserIsStaff), caller.IsStaff, HeaderUserIsStaff); err != nil {
		return nil, err
	}
	if err := matchFlag(r.Header.Get(HeaderUserIsSuper), caller.IsSuperUser, HeaderUserIsSuper); err != nil {
		return nil, err
	}
	return caller, nil
}

func matchFlag(header string, want bool, name string) error {
	if header == "" {
		return nil
	}
	got, err := strconv.ParseBool(header)
	if err != nil || got != want {
		return fmt.Errorf("%w: %s does not match token", ErrInvalidToken, name)
	}
	return nil
}

// RequireInternal guards internal routes. Failures answer 401 with the
// cookie-clearing header, like a missing session.
func (s *InternalSigner) RequireInternal(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := s.Authenticate(c.Request)
		if err != nil {
			sessions.Unauthorized(c)
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller stored by RequireInternal
func CallerFrom(c *gin.Context) (*Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil, false
	}
	caller, ok := v.(*Caller)
	return caller, ok
}

// CallerFor builds the forwarded identity of a session user
func CallerFor(u *User, typeID string) Caller {
	return Caller{UserID: u.ID, IsStaff: u.IsStaff, IsSuperUser: u.IsSuperUser, TypeID: typeID}
}
