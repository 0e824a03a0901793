// Package cryptoutil holds key material sources and hashing helpers.
//
// It supports:
//   - fetching and caching a KMS asymmetric public key for local token verification
//   - reading a SecureString secret from SSM Parameter Store
//   - constant-time hash comparison and SHA-256 hex digests
package cryptoutil
