package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"suivi/internal/domain"
)

var ErrNoSession = errors.New("no authenticated session")

// Provider supplies the viewer of an already-authenticated session.
type Provider interface {
	Viewer() (domain.Viewer, error)
}

// Static is a Provider with a fixed viewer.
type Static domain.Viewer

func (s Static) Viewer() (domain.Viewer, error) {
	if s.ID == "" {
		return domain.Viewer{}, ErrNoSession
	}
	return domain.Viewer(s), nil
}

// Claims is the session token payload shared with the stub backend.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
}

// Session reads the viewer from a session JWT. With a Secret the token is
// verified; without one the claims are trusted as issued to this session.
type Session struct {
	Token  string
	Secret string
}

func (s Session) Viewer() (domain.Viewer, error) {
	claims, err := ParseToken(s.Token, s.Secret)
	if err != nil {
		return domain.Viewer{}, err
	}
	return domain.Viewer{ID: claims.Subject, Role: domain.ParseRole(claims.Role)}, nil
}

// ParseToken extracts session claims from token.
func ParseToken(token, secret string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoSession
	}
	claims := &Claims{}
	if strings.TrimSpace(secret) == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, err
		}
	} else {
		parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		})
		if err != nil {
			return nil, err
		}
		if !parsed.Valid {
			return nil, errors.New("invalid token")
		}
	}
	if claims.Subject == "" {
		return nil, errors.New("subject claim required")
	}
	return claims, nil
}

// IssueToken signs an HS256 session token for subject.
func IssueToken(secret string, subject domain.Subject, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: subject.Role.String(),
		Name: subject.Name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
