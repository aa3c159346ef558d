package strategies_test

import (
	"crypto/sha256"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/arkit/internal/strategies"
	"github.com/systmms/arkit/pkg/strategy"
)

func TestParseJWK(t *testing.T) {
	t.Parallel()

	valid := testJWK(t)

	tests := []struct {
		name   string
		mutate func(*strategies.JWK)
		raw    string
		errMsg string
	}{
		{name: "valid", mutate: func(*strategies.JWK) {}},
		{name: "padded base64", mutate: func(k *strategies.JWK) { k.E = "AQAB" + "=" }},
		{name: "not json", raw: "not json", errMsg: "invalid jwk"},
		{name: "elliptic curve key", mutate: func(k *strategies.JWK) { k.Kty = "EC" }, errMsg: `kty is "EC"`},
		{name: "public key only", mutate: func(k *strategies.JWK) { k.D = "" }, errMsg: "missing d"},
		{name: "bad base64", mutate: func(k *strategies.JWK) { k.P = "!!not-base64!!" }, errMsg: "field p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := []byte(tt.raw)
			if tt.mutate != nil {
				k := valid
				tt.mutate(&k)
				var err error
				data, err = json.Marshal(k)
				require.NoError(t, err)
			}

			jwk, err := strategies.ParseJWK(data)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, strategies.ErrInvalidJWK)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "RSA", jwk.Kty)
		})
	}
}

func TestJWK_AddressAndOwner(t *testing.T) {
	t.Parallel()

	key := testWalletKey(t)
	jwk := testJWK(t)

	owner := jwk.Owner()
	assert.Equal(t, strategy.PublicKey(b64(key.N.Bytes())), owner)

	addr, err := jwk.Address()
	require.NoError(t, err)
	sum := sha256.Sum256(key.N.Bytes())
	assert.Equal(t, strategy.Address(b64(sum[:])), addr)
	assert.Len(t, string(addr), 43)
	assert.True(t, strategies.ValidAddress(string(addr)))

	fromOwner, err := strategies.AddressFromOwner(owner)
	require.NoError(t, err)
	assert.Equal(t, addr, fromOwner)
}

func TestJWK_PrivateKey(t *testing.T) {
	t.Parallel()

	key := testWalletKey(t)
	jwk := testJWK(t)

	priv, err := jwk.PrivateKey()
	require.NoError(t, err)
	assert.Equal(t, 0, key.N.Cmp(priv.N))
	assert.Equal(t, 0, key.D.Cmp(priv.D))
	assert.Equal(t, key.E, priv.E)

	broken := jwk
	broken.D = broken.P
	_, err = broken.PrivateKey()
	assert.ErrorIs(t, err, strategies.ErrInvalidJWK)
}

func TestSignAndVerifyPSS(t *testing.T) {
	t.Parallel()

	key := testWalletKey(t)
	jwk := testJWK(t)
	owner := jwk.Owner()
	data := []byte("arweave data item")

	sig, err := strategies.SignPSS(key, data)
	require.NoError(t, err)
	assert.Len(t, sig, key.Size())

	require.NoError(t, strategies.VerifyPSS(owner, data, sig))
	assert.Error(t, strategies.VerifyPSS(owner, []byte("tampered"), sig))

	// PSS is randomized: two signatures differ but both verify
	again, err := strategies.SignPSS(key, data)
	require.NoError(t, err)
	assert.NotEqual(t, sig, again)
	assert.NoError(t, strategies.VerifyPSS(owner, data, again))
}

func TestValidAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{"3uH7f9tLmsWZVK4QmzS27oHmGbADOuxw8nhe1Jt9iXE", true},
		{"3uH7f9tLmsWZVK4QmzS27oHmGbADOuxw8nhe1Jt9iX", false},
		{"3uH7f9tLmsWZVK4QmzS27oHmGbADOuxw8nhe1Jt9iXE=", false},
		{"3uH7f9tLmsWZVK4QmzS27oHmGbADOuxw8nhe1Jt9i+E", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, strategies.ValidAddress(tt.address), tt.address)
	}
}
