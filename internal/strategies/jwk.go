package strategies

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/systmms/arkit/pkg/strategy"
)

// pssSaltLength is the salt length Arweave uses for RSA-PSS signatures.
const pssSaltLength = 32

// ErrInvalidJWK is wrapped by every JWK parsing failure.
var ErrInvalidJWK = errors.New("invalid jwk")

// JWK is an Arweave wallet key in JSON Web Key form.
type JWK struct {
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
	D   string `json:"d"`
	P   string `json:"p"`
	Q   string `json:"q"`
	DP  string `json:"dp,omitempty"`
	DQ  string `json:"dq,omitempty"`
	QI  string `json:"qi,omitempty"`
}

// ParseJWK decodes and checks an RSA private JWK.
func ParseJWK(data []byte) (*JWK, error) {
	var k JWK
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
	}
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("%w: kty is %q, want RSA", ErrInvalidJWK, k.Kty)
	}
	for name, v := range map[string]string{"n": k.N, "e": k.E, "d": k.D, "p": k.P, "q": k.Q} {
		if v == "" {
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidJWK, name)
		}
		if _, err := decodeB64(v); err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrInvalidJWK, name, err)
		}
	}
	return &k, nil
}

// Owner returns the public modulus, which Arweave uses as the public key.
func (k *JWK) Owner() strategy.PublicKey {
	return strategy.PublicKey(strings.TrimRight(k.N, "="))
}

// Address derives the wallet address from the modulus.
func (k *JWK) Address() (strategy.Address, error) {
	return AddressFromOwner(k.Owner())
}

// PrivateKey builds the RSA key described by the JWK.
func (k *JWK) PrivateKey() (*rsa.PrivateKey, error) {
	ints := make([]*big.Int, 5)
	for i, v := range []string{k.N, k.E, k.D, k.P, k.Q} {
		b, err := decodeB64(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
		}
		ints[i] = new(big.Int).SetBytes(b)
	}
	if !ints[1].IsInt64() || ints[1].Int64() > 1<<31-1 {
		return nil, fmt.Errorf("%w: public exponent too large", ErrInvalidJWK)
	}

	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: ints[0], E: int(ints[1].Int64())},
		D:         ints[2],
		Primes:    []*big.Int{ints[3], ints[4]},
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
	}
	key.Precompute()
	return key, nil
}

// AddressFromOwner derives an address: base64url(SHA-256(n)).
func AddressFromOwner(owner strategy.PublicKey) (strategy.Address, error) {
	n, err := decodeB64(string(owner))
	if err != nil {
		return "", fmt.Errorf("decode owner: %w", err)
	}
	sum := sha256.Sum256(n)
	return strategy.Address(base64.RawURLEncoding.EncodeToString(sum[:])), nil
}

// ValidAddress reports whether s is a well-formed address: 43 base64url
// characters encoding 32 bytes.
func ValidAddress(s string) bool {
	if len(s) != 43 {
		return false
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil && len(b) == 32
}

// SignPSS signs SHA-256(data) with RSA-PSS and a 32 byte salt.
func SignPSS(key *rsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{SaltLength: pssSaltLength})
}

// VerifyPSS checks a signature made by SignPSS against owner.
func VerifyPSS(owner strategy.PublicKey, data, sig []byte) error {
	n, err := decodeB64(string(owner))
	if err != nil {
		return fmt.Errorf("decode owner: %w", err)
	}
	pub := &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: 65537}
	digest := sha256.Sum256(data)
	return rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{SaltLength: pssSaltLength})
}

// decodeB64 accepts padded and unpadded base64url.
func decodeB64(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
