package cryptoutil

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/keithlinneman/folio/internal/xerrors"
)

// KMSKeyFetcher is the subset of the KMS API needed to fetch a public key.
type KMSKeyFetcher interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
}

// KMSKeySource exposes the public half of a KMS signing key. Tokens are
// signed elsewhere (with kms:Sign); this process only ever verifies.
type KMSKeySource struct {
	client KMSKeyFetcher
	keyARN string

	mu     sync.RWMutex
	pubKey crypto.PublicKey
}

func NewKMSKeySource(client KMSKeyFetcher, keyARN string) *KMSKeySource {
	return &KMSKeySource{client: client, keyARN: keyARN}
}

// PublicKey fetches and caches the KMS public key.
// First call hits KMS API, subsequent calls return cached key.
func (s *KMSKeySource) PublicKey(ctx context.Context) (crypto.PublicKey, error) {
	s.mu.RLock()
	if s.pubKey != nil {
		defer s.mu.RUnlock()
		return s.pubKey, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pubKey != nil {
		return s.pubKey, nil
	}
	if s.client == nil {
		return nil, xerrors.New("kms client is not configured")
	}

	out, err := s.client.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(s.keyARN),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "kms get public key")
	}
	if out.KeyUsage != kmstypes.KeyUsageTypeSignVerify {
		return nil, xerrors.Newf("kms key %s has KeyUsage=%s, expected SIGN_VERIFY", s.keyARN, out.KeyUsage)
	}

	pub, err := x509.ParsePKIXPublicKey(out.PublicKey)
	if err != nil {
		return nil, xerrors.Wrap(err, "parse kms public key DER")
	}
	if _, err := SigningAlg(pub); err != nil {
		return nil, err
	}

	s.pubKey = pub
	return s.pubKey, nil
}

// SigningAlg maps a public key to the JWS algorithm name that verifies it:
// ES256 for P-256, ES384 for P-384, RS256 for RSA.
func SigningAlg(pub crypto.PublicKey) (string, error) {
	switch k := pub.(type) {
	case *ecdsa.PublicKey:
		switch k.Curve {
		case elliptic.P256():
			return "ES256", nil
		case elliptic.P384():
			return "ES384", nil
		}
		return "", xerrors.Newf("unsupported ECDSA curve: %s", k.Curve.Params().Name)
	case *rsa.PublicKey:
		return "RS256", nil
	default:
		return "", xerrors.Newf("unsupported public key type: %T", pub)
	}
}
