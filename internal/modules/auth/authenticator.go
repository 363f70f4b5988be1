// Package auth validates inbound bearer tokens and resolves the calling
// tenant. A request without a valid tenant claim never reaches any store.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/nexus-cloud/summarizer/internal/config"
	"github.com/nexus-cloud/summarizer/internal/pkg/apperr"
)

// Principal is the request-scoped identity extracted from a validated token.
type Principal struct {
	TenantID string
	Subject  string
	Expiry   time.Time
}

type cachedVerification struct {
	principal Principal
	expires   time.Time
}

// Authenticator validates bearer tokens against the configured identity
// provider parameters. Verification results are memoized briefly, keyed by
// token signature, so bursts from the same caller skip repeated signature
// checks. The cache is best-effort and never a correctness dependency.
type Authenticator struct {
	secret      []byte
	tenantClaim string
	parser      *jwtlib.Parser
	cacheTTL    time.Duration

	mu    sync.Mutex
	cache map[string]cachedVerification
}

// New builds an Authenticator from the identity-provider config.
func New(cfg config.Auth) *Authenticator {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithExpirationRequired(),
	}
	if iss := strings.TrimSpace(cfg.Issuer); iss != "" {
		opts = append(opts, jwtlib.WithIssuer(iss))
	}
	if aud := strings.TrimSpace(cfg.Audience); aud != "" {
		opts = append(opts, jwtlib.WithAudience(aud))
	}

	return &Authenticator{
		secret:      []byte(cfg.JWTSecret),
		tenantClaim: cfg.TenantClaim,
		parser:      jwtlib.NewParser(opts...),
		cacheTTL:    cfg.VerifyCacheTTL(),
		cache:       make(map[string]cachedVerification),
	}
}

// Authenticate validates the raw bearer token and returns the principal.
// Any validation failure, including a missing or malformed tenant claim,
// reports Unauthenticated.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (*Principal, error) {
	_ = ctx // verification is local; kept for interface symmetry with remote issuers

	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "token is required")
	}

	if p, ok := a.cached(token); ok {
		return p, nil
	}

	parsed, err := a.parser.ParseWithClaims(token, jwtlib.MapClaims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, err)
	}

	cl, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid token")
	}

	tenantID, _ := cl[a.tenantClaim].(string)
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "token has no tenant claim")
	}

	subject, _ := cl.GetSubject()
	p := Principal{TenantID: tenantID, Subject: subject}
	if exp, err := cl.GetExpirationTime(); err == nil && exp != nil {
		p.Expiry = exp.Time
	}

	a.remember(token, p)
	return &p, nil
}

// cached returns a memoized verification, keyed by the token signature.
func (a *Authenticator) cached(token string) (*Principal, bool) {
	sig := tokenSignature(token)
	if sig == "" {
		return nil, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.cache[sig]
	if !ok {
		return nil, false
	}
	now := time.Now()
	if now.After(entry.expires) || (!entry.principal.Expiry.IsZero() && now.After(entry.principal.Expiry)) {
		delete(a.cache, sig)
		return nil, false
	}
	p := entry.principal
	return &p, true
}

func (a *Authenticator) remember(token string, p Principal) {
	if a.cacheTTL <= 0 {
		return
	}
	sig := tokenSignature(token)
	if sig == "" {
		return
	}

	expires := time.Now().Add(a.cacheTTL)
	// never hold a verification past the token's own expiry
	if !p.Expiry.IsZero() && p.Expiry.Before(expires) {
		expires = p.Expiry
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.cache) >= 4096 {
		a.cache = make(map[string]cachedVerification)
	}
	a.cache[sig] = cachedVerification{principal: p, expires: expires}
}

func tokenSignature(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[2] == "" {
		return ""
	}
	return parts[2]
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
