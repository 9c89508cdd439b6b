package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers missing, malformed, expired and forged tokens
var ErrInvalidToken = errors.New("invalid token")

// DefaultCookieName is the session cookie used when none is configured
const DefaultCookieName = "listing-session"

const userKey = "auth_user"

// User is the authenticated account behind a request
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	IsStaff     bool   `json:"isStaff"`
	IsSuperUser bool   `json:"isSuperUser"`
}

// Elevated reports whether the user holds a staff or superuser role
func (u User) Elevated() bool {
	return u.IsStaff || u.IsSuperUser
}

// SessionClaims is the payload of the session cookie
type SessionClaims struct {
	User
	jwt.RegisteredClaims
}

// Sessions issues and verifies session cookies
type Sessions struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

// SessionOptions configures NewSessions
type SessionOptions struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// NewSessions validates opts and returns a Sessions
func NewSessions(opts SessionOptions) (*Sessions, error) {
	if opts.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	s := &Sessions{
		secret:     []byte(opts.Secret),
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		now:        time.Now,
	}
	if s.cookieName == "" {
		s.cookieName = DefaultCookieName
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	return s, nil
}

// CookieName is the name of the session cookie
func (s *Sessions) CookieName() string { return s.cookieName }

// Issue signs a session token for u
func (s *Sessions) Issue(u User) (string, error) {
	now := s.now()
	claims := SessionClaims{
		User: u,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Cookie wraps a signed token in the session cookie
func (s *Sessions) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie instructs the client to drop its session cookie immediately
func (s *Sessions) ExpiredCookie() *http.Cookie {
	c := s.Cookie("")
	c.MaxAge = -1
	return c
}

// Verify parses a session token
func (s *Sessions) Verify(token string) (*User, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || (claims.User.ID == "" && claims.Subject == "") {
		return nil, ErrInvalidToken
	}
	if claims.User.ID == "" {
		claims.User.ID = claims.Subject
	}
	return &claims.User, nil
}

// token reads the session cookie, falling back to a bearer header
func (s *Sessions) token(r *http.Request) string {
	if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Authenticate resolves the request's user without aborting
func (s *Sessions) Authenticate(r *http.Request) (*User, error) {
	token := s.token(r)
	if token == "" {
		return nil, ErrInvalidToken
	}
	return s.Verify(token)
}

// RequireSession aborts with 401 and an expired cookie when the request has
// no valid session
func (s *Sessions) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.Authenticate(c.Request)
		if err != nil {
			s.Unauthorized(c)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireStaff must run after RequireSession
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFrom(c)
		if !ok || !user.Elevated() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Forbidden"})
			return
		}
		c.Next()
	}
}

// Unauthorized writes the 401 response with the cookie-clearing header
func (s *Sessions) Unauthorized(c *gin.Context) {
	http.SetCookie(c.Writer, s.ExpiredCookie())
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
}

// UserFrom returns the user stored by RequireSession
func UserFrom(c *gin.Context) (*User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}
