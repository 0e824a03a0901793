package auth

import (
	"context"
	"crypto"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/keithlinneman/folio/internal/cryptoutil"
	"github.com/keithlinneman/folio/internal/xerrors"
)

// Verifier turns a bearer token into a User.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// KeySource supplies the public key for asymmetric tokens.
// cryptoutil.KMSKeySource implements it.
type KeySource interface {
	PublicKey(ctx context.Context) (crypto.PublicKey, error)
}

// Claims is what the identity provider puts in access tokens. The role
// may sit at the top level or under app_metadata.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	AppMetadata struct {
		Role string `json:"role,omitempty"`
	} `json:"app_metadata"`
}

func (c *Claims) role() string {
	if r := strings.TrimSpace(c.Role); r != "" {
		return r
	}
	if r := strings.TrimSpace(c.AppMetadata.Role); r != "" {
		return r
	}
	return RoleAuthenticated
}

type JWTOptions struct {
	// Exactly one of Secret (HS256) or Keys (ES256/ES384/RS256).
	Secret []byte
	Keys   KeySource

	// Issuer and Audience are checked when non-empty.
	Issuer   string
	Audience string

	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration
}

type JWTVerifier struct {
	opts JWTOptions
}

func NewJWTVerifier(opts JWTOptions) (*JWTVerifier, error) {
	switch {
	case len(opts.Secret) == 0 && opts.Keys == nil:
		return nil, xerrors.New("jwt verifier: Secret or Keys is required")
	case len(opts.Secret) > 0 && opts.Keys != nil:
		return nil, xerrors.New("jwt verifier: Secret and Keys are mutually exclusive")
	}
	if opts.Leeway <= 0 {
		opts.Leeway = 30 * time.Second
	}
	return &JWTVerifier{opts: opts}, nil
}

// Verify checks signature, expiry and the configured issuer/audience.
// Every failure is KindUnauthorized.
func (v *JWTVerifier) Verify(ctx context.Context, raw string) (*User, error) {
	key, alg, err := v.key(ctx)
	if err != nil {
		return nil, xerrors.WrapKind(err, xerrors.KindInternal, "load token key")
	}

	popts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.opts.Leeway),
	}
	if v.opts.Issuer != "" {
		popts = append(popts, jwt.WithIssuer(v.opts.Issuer))
	}
	if v.opts.Audience != "" {
		popts = append(popts, jwt.WithAudience(v.opts.Audience))
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return key, nil }, popts...)
	if err != nil {
		return nil, xerrors.WrapKind(err, xerrors.KindUnauthorized, "invalid or expired token")
	}
	if claims.Subject == "" {
		return nil, xerrors.E(xerrors.KindUnauthorized, "token has no subject")
	}
	return &User{ID: claims.Subject, Email: claims.Email, Role: claims.role()}, nil
}

func (v *JWTVerifier) key(ctx context.Context) (any, string, error) {
	if len(v.opts.Secret) > 0 {
		return v.opts.Secret, jwt.SigningMethodHS256.Alg(), nil
	}
	pub, err := v.opts.Keys.PublicKey(ctx)
	if err != nil {
		return nil, "", err
	}
	alg, err := cryptoutil.SigningAlg(pub)
	if err != nil {
		return nil, "", err
	}
	return pub, alg, nil
}

// HMACIssuer mints HS256 tokens the JWTVerifier accepts. Used for local
// development and by folioctl.
type HMACIssuer struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration

	now func() time.Time
}

func (i HMACIssuer) Mint(u User) (string, error) {
	if len(i.Secret) == 0 {
		return "", xerrors.New("hmac issuer: Secret is required")
	}
	if u.ID == "" {
		return "", xerrors.New("hmac issuer: user id is required")
	}
	now := time.Now
	if i.now != nil {
		now = i.now
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	t := now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    i.Issuer,
			IssuedAt:  jwt.NewNumericDate(t),
			NotBefore: jwt.NewNumericDate(t),
			ExpiresAt: jwt.NewNumericDate(t.Add(ttl)),
		},
		Email: u.Email,
		Role:  u.Role,
	}
	if i.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.Audience}
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Secret)
	if err != nil {
		return "", xerrors.Wrap(err, "sign token")
	}
	return s, nil
}
