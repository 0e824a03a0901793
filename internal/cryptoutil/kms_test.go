package cryptoutil

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
)

const testKeyARN = "arn:aws:kms:us-east-2:000000000000:key/test-key-id"

type fakeKMS struct {
	der   []byte
	usage kmstypes.KeyUsageType
	err   error
	calls int
}

func (f *fakeKMS) GetPublicKey(_ context.Context, in *kms.GetPublicKeyInput, _ ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &kms.GetPublicKeyOutput{KeyId: in.KeyId, PublicKey: f.der, KeyUsage: f.usage}, nil
}

func mustDER(t *testing.T, pub any) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return der
}

func TestPublicKey_FetchesOnceAndCaches(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeKMS{der: mustDER(t, &key.PublicKey), usage: kmstypes.KeyUsageTypeSignVerify}
	s := NewKMSKeySource(f, testKeyARN)

	for i := 0; i < 3; i++ {
		got, err := s.PublicKey(t.Context())
		if err != nil {
			t.Fatalf("PublicKey: %v", err)
		}
		ec, ok := got.(*ecdsa.PublicKey)
		if !ok || ec.X.Cmp(key.PublicKey.X) != 0 {
			t.Fatal("cached key does not match")
		}
	}
	if f.calls != 1 {
		t.Fatalf("GetPublicKey called %d times, want 1", f.calls)
	}
}

func TestPublicKey_RejectsWrongUsage(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	f := &fakeKMS{der: mustDER(t, &key.PublicKey), usage: kmstypes.KeyUsageTypeEncryptDecrypt}
	if _, err := NewKMSKeySource(f, testKeyARN).PublicKey(t.Context()); err == nil {
		t.Fatal("expected error for ENCRYPT_DECRYPT key")
	}
}

func TestPublicKey_PropagatesAPIError(t *testing.T) {
	f := &fakeKMS{err: errors.New("access denied")}
	s := NewKMSKeySource(f, testKeyARN)
	if _, err := s.PublicKey(t.Context()); err == nil {
		t.Fatal("expected error")
	}
	// failures are not cached
	if _, err := s.PublicKey(t.Context()); err == nil || f.calls != 2 {
		t.Fatalf("calls = %d", f.calls)
	}
}

func TestPublicKey_NilClient_FailsOnCacheMiss(t *testing.T) {
	if _, err := NewKMSKeySource(nil, testKeyARN).PublicKey(t.Context()); err == nil {
		t.Fatal("expected error when client is nil and cache is empty")
	}
}

func TestSigningAlg(t *testing.T) {
	p256, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	p384, _ := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	p521, _ := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	rsaKey, _ := rsa.GenerateKey(rand.Reader, 2048)

	tests := []struct {
		name string
		pub  any
		want string
		err  bool
	}{
		{"p256", &p256.PublicKey, "ES256", false},
		{"p384", &p384.PublicKey, "ES384", false},
		{"p521", &p521.PublicKey, "", true},
		{"rsa", &rsaKey.PublicKey, "RS256", false},
		{"string", "nope", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SigningAlg(tt.pub)
			if (err != nil) != tt.err || got != tt.want {
				t.Fatalf("SigningAlg = %q, %v", got, err)
			}
		})
	}
}
