package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Signer mints HS256 tokens for local development and tests. Production
// tokens come from the identity provider.
type Signer struct {
	key      []byte
	issuer   string
	audience string
	orgClaim string
}

// NewSigner returns a signer matching a verifier built from the same config.
func NewSigner(cfg VerifierConfig) *Signer {
	orgClaim := cfg.OrgClaim
	if orgClaim == "" {
		orgClaim = DefaultOrgClaim
	}
	return &Signer{
		key:      []byte(cfg.HS256Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		orgClaim: orgClaim,
	}
}

// Sign issues a token for id valid for ttl. An empty TokenID gets a fresh one.
func (s *Signer) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	jti := id.TokenID
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := jwt.MapClaims{
		"sub": id.Subject,
		"jti": jti,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	if s.audience != "" {
		claims["aud"] = s.audience
	}
	if id.Email != "" {
		claims["email"] = id.Email
	}
	if id.Name != "" {
		claims["name"] = id.Name
	}
	if id.OrgID != "" {
		claims[s.orgClaim] = id.OrgID
	}
	if id.Role.IsValid() {
		claims["role"] = id.Role.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}
