package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arerrors "github.com/systmms/arkit/internal/errors"
	"github.com/systmms/arkit/pkg/connect"
	"github.com/systmms/arkit/pkg/strategy"
)

func TestConnectCommand_ReadonlySession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envOptions{readonly: watchAddress})

	out, err := env.run(t, NewConnectCommand, nil, "readonly")
	require.NoError(t, err)
	assert.Contains(t, out, "Address: "+watchAddress)
	assert.Contains(t, out, "Session: ")

	t.Run("address", func(t *testing.T) {
		out, err := env.run(t, NewAddressCommand, nil)
		require.NoError(t, err)
		assert.Equal(t, watchAddress+"\n", out)
	})

	t.Run("all addresses", func(t *testing.T) {
		out, err := env.run(t, NewAddressCommand, nil, "--all")
		require.NoError(t, err)
		assert.Equal(t, watchAddress+"\n", out)
	})

	t.Run("permissions are limited to what the wallet can serve", func(t *testing.T) {
		out, err := env.run(t, NewPermissionsCommand, nil)
		require.NoError(t, err)
		assert.Equal(t, "ACCESS_ADDRESS\nACCESS_ALL_ADDRESSES\n", out)
	})

	t.Run("public key is unsupported", func(t *testing.T) {
		_, err := env.run(t, NewPublicKeyCommand, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, strategy.ErrUnsupported)
		assert.Contains(t, err.Error(), "Watch-only")
	})

	t.Run("status", func(t *testing.T) {
		out, err := env.run(t, NewStatusCommand, nil)
		require.NoError(t, err)
		assert.Contains(t, out, "readonly")
		assert.Contains(t, out, "connected")
	})
}

func TestConnectCommand_UnknownStrategy(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envOptions{})

	_, err := env.run(t, NewConnectCommand, nil, "keyfle")
	require.Error(t, err)

	var userErr arerrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.Message, "Unknown wallet strategy 'keyfle'")
	assert.Contains(t, userErr.Suggestion, "Did you mean 'keyfile'?")
	assert.Contains(t, userErr.Suggestion, "keyfile, keychain, readonly")
}

func TestConnectCommand_Unavailable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envOptions{})

	_, err := env.run(t, NewConnectCommand, nil, "readonly")
	require.Error(t, err)
	assert.ErrorIs(t, err, connect.ErrUnavailableProvider)
	assert.Contains(t, err.Error(), "readonly wallet is not available")
}

func TestConnectCommand_FailureExplainsCause(t *testing.T) {
	t.Parallel()

	jwk := testJWK(t)
	jwk.D = "AQAB"
	env := newTestEnv(t, envOptions{keyfile: writeJWK(t, t.TempDir(), jwk)})

	_, err := env.run(t, NewConnectCommand, nil, "keyfile", "--retries", "2")
	require.Error(t, err)

	var userErr arerrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "keyfile wallet error during connect", userErr.Message)
	assert.NotEmpty(t, userErr.Details)
	assert.NotErrorIs(t, err, connect.ErrUnavailableProvider)
}

func TestConnectCommand_NonInteractiveRequiresID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envOptions{})

	_, err := env.run(t, NewConnectCommand, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy id is required")
	assert.Contains(t, err.Error(), "keyfile, keychain, readonly")
}

func TestConnectCommand_InvalidRetries(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envOptions{readonly: watchAddress})

	_, err := env.run(t, NewConnectCommand, nil, "readonly", "--retries", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid retry count")
}

func TestConnectCommand_MissingConfig(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envOptions{})
	env.configPath = filepath.Join(env.dir, "missing.yaml")

	_, err := env.run(t, NewConnectCommand, nil, "readonly")
	require.Error(t, err)

	var cfgErr arerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "configuration file not found", cfgErr.Message)
}

func TestWalletCommands_NoSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envOptions{readonly: watchAddress})

	for name, read := range map[string]func(t *testing.T) error{
		"address": func(t *testing.T) error {
			_, err := env.run(t, NewAddressCommand, nil)
			return err
		},
		"public-key": func(t *testing.T) error {
			_, err := env.run(t, NewPublicKeyCommand, nil)
			return err
		},
		"permissions": func(t *testing.T) error {
			_, err := env.run(t, NewPermissionsCommand, nil)
			return err
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := read(t)
			require.Error(t, err)
			assert.ErrorIs(t, err, connect.ErrNotConnected)
			assert.Contains(t, err.Error(), "arkit connect")
		})
	}
}

func TestDisconnectCommand(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envOptions{readonly: watchAddress})

	out, err := env.run(t, NewDisconnectCommand, nil)
	require.NoError(t, err)
	assert.Equal(t, "No wallet connected\n", out)

	_, err = env.run(t, NewConnectCommand, nil, "readonly")
	require.NoError(t, err)

	out, err = env.run(t, NewDisconnectCommand, nil)
	require.NoError(t, err)
	assert.Equal(t, "Disconnected readonly\n", out)

	_, err = env.run(t, NewAddressCommand, nil)
	assert.ErrorIs(t, err, connect.ErrNotConnected)

	out, err = env.run(t, NewStatusCommand, nil)
	require.NoError(t, err)
	assert.Equal(t, "No wallet connected\n", out)
}
