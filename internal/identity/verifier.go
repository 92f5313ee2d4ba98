package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
)

// DefaultOrgClaim is the custom claim the identity provider uses for the
// active organization.
const DefaultOrgClaim = "org_id"

// VerifierConfig selects the accepted signing keys and claim checks.
type VerifierConfig struct {
	HS256Secret       string
	RS256PublicKeyPEM string
	Issuer            string
	Audience          string
	OrgClaim          string
	Leeway            time.Duration
}

// Verifier validates bearer tokens and projects their claims into an Identity.
type Verifier struct {
	hmacKey  []byte
	rsaKey   *rsa.PublicKey
	orgClaim string
	parser   *jwt.Parser
}

// NewVerifier builds a verifier. At least one of the HS256 secret or the RS256
// public key must be set.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	v := &Verifier{orgClaim: cfg.OrgClaim}
	if v.orgClaim == "" {
		v.orgClaim = DefaultOrgClaim
	}

	var methods []string
	if cfg.HS256Secret != "" {
		v.hmacKey = []byte(cfg.HS256Secret)
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if strings.TrimSpace(cfg.RS256PublicKeyPEM) != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.RS256PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse rs256 public key: %w", err)
		}
		v.rsaKey = key
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	if len(methods) == 0 {
		return nil, errors.New("identity verifier needs an hs256 secret or an rs256 public key")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.hmacKey == nil {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.hmacKey, nil
	case *jwt.SigningMethodRSA:
		if v.rsaKey == nil {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.rsaKey, nil
	default:
		return nil, jwt.ErrTokenUnverifiable
	}
}

// Resolve verifies tokenString and returns the identity it asserts.
// It never touches a store.
func (v *Verifier) Resolve(tokenString string) (*Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}

	id := &Identity{
		Subject: subject,
		Email:   stringClaim(claims, "email"),
		Name:    stringClaim(claims, "name"),
		OrgID:   stringClaim(claims, v.orgClaim),
		Role:    domain.RoleOrMember(stringClaim(claims, "role")),
		TokenID: stringClaim(claims, "jti"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}
