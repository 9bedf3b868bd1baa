// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Principal                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// Principal is the authenticated caller, re-read from the users collection on
// every request so a renamed or deleted account takes effect immediately.
type Principal struct {
	ID    primitive.ObjectID
	Email string
	Name  string
}

// PrincipalFetcher resolves a token subject (user id hex) to a Principal.
// It returns nil when the user no longer exists.
type PrincipalFetcher interface {
	FetchPrincipal(ctx context.Context, userID string) *Principal
}

type ctxKey string

const principalKey ctxKey = "principal"

// CurrentPrincipal returns the caller & "found?" flag.
func CurrentPrincipal(r *http.Request) (*Principal, bool) {
	return FromContext(r.Context())
}

// FromContext is CurrentPrincipal for code that only has a context.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// WithPrincipal stores p on the request context. LoadPrincipal uses it;
// handler tests call it directly to skip token handling.
func WithPrincipal(r *http.Request, p *Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey, p))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Tokens                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// ErrInvalidToken covers malformed, expired, or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by planhub bearer tokens. Subject is the user id (hex).
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// TokenManager issues and verifies HS256 bearer tokens and provides the
// request middleware built on them.
type TokenManager struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	fetcher PrincipalFetcher
	logger  *zap.Logger
	now     func() time.Time
}

// NewTokenManager validates the secret and builds a manager. In production
// the secret should be 32+ random bytes.
func NewTokenManager(secret, issuer string, ttl time.Duration, logger *zap.Logger) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide ≥32 random chars")
	}
	if len(secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended",
			zap.Int("length", len(secret)))
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if issuer == "" {
		issuer = "planhub"
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

// SetPrincipalFetcher wires the user lookup. Without one, the principal is
// built from the token claims alone.
func (tm *TokenManager) SetPrincipalFetcher(f PrincipalFetcher) {
	tm.fetcher = f
}

// TTL returns the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration { return tm.ttl }

// Issue signs a token for p.
func (tm *TokenManager) Issue(p Principal) (string, time.Time, error) {
	now := tm.now().UTC()
	exp := now.Add(tm.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tm.issuer,
			Subject:   p.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: p.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies signature, issuer and expiry.
func (tm *TokenManager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := primitive.ObjectIDFromHex(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadPrincipal injects the caller into context when the request carries a
// valid token. Requests without one pass through untouched; RequireSignedIn
// decides whether that is acceptable.
//
// Websocket upgrades cannot set headers from browsers, so for those the
// token may also come from the ?token= query parameter.
func (tm *TokenManager) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := tm.Parse(raw)
		if err != nil {
			tm.logger.Debug("bearer token rejected", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if p := tm.resolve(r.Context(), claims); p != nil {
			r = WithPrincipal(r, p)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects requests without a principal with a JSON 401.
func (tm *TokenManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentPrincipal(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		respond.Error(w, r, tm.logger, apperr.Unauthenticated("Authentication required."))
	})
}

func (tm *TokenManager) resolve(ctx context.Context, c *Claims) *Principal {
	if tm.fetcher == nil {
		id, _ := primitive.ObjectIDFromHex(c.Subject)
		return &Principal{ID: id, Email: c.Email}
	}
	return tm.fetcher.FetchPrincipal(ctx, c.Subject)
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}
