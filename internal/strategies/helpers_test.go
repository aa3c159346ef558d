package strategies_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/systmms/arkit/internal/strategies"
)

var (
	walletKeyOnce sync.Once
	walletKey     *rsa.PrivateKey
	walletKeyErr  error
)

// testWalletKey returns a 2048-bit key shared by the package's tests.
func testWalletKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	walletKeyOnce.Do(func() {
		walletKey, walletKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, walletKeyErr)
	return walletKey
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func testJWK(t *testing.T) strategies.JWK {
	t.Helper()
	key := testWalletKey(t)
	return strategies.JWK{
		Kty: "RSA",
		N:   b64(key.N.Bytes()),
		E:   b64(big.NewInt(int64(key.E)).Bytes()),
		D:   b64(key.D.Bytes()),
		P:   b64(key.Primes[0].Bytes()),
		Q:   b64(key.Primes[1].Bytes()),
		DP:  b64(key.Precomputed.Dp.Bytes()),
		DQ:  b64(key.Precomputed.Dq.Bytes()),
		QI:  b64(key.Precomputed.Qinv.Bytes()),
	}
}

// testJWKBytes returns a fresh copy on every call: sealing wipes its input.
func testJWKBytes(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(testJWK(t))
	require.NoError(t, err)
	return data
}

func writeKeyfile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
