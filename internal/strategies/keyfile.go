package strategies

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/systmms/arkit/pkg/strategy"
)

// KeyfileID is the id of the keyfile strategy.
const KeyfileID = "keyfile"

// Keyfile connects with an Arweave JWK stored in a file.
type Keyfile struct {
	keyWallet
	path string
}

// NewKeyfile creates a keyfile strategy reading the JWK at path.
func NewKeyfile(path string) *Keyfile {
	return &Keyfile{
		keyWallet: keyWallet{id: KeyfileID, label: filepath.Base(path)},
		path:      path,
	}
}

// Metadata implements strategy.Strategy.
func (k *Keyfile) Metadata() strategy.Metadata {
	return strategy.Metadata{
		ID:          KeyfileID,
		Name:        "Keyfile",
		Description: "Arweave wallet JSON key stored on this machine",
		Theme:       "34, 34, 34",
		URL:         "https://docs.arweave.org/developers/wallets/generating-cold-wallet",
		Logo:        "https://arweave.org/favicon.ico",
	}
}

// Path returns the configured keyfile path.
func (k *Keyfile) Path() string {
	return k.path
}

// IsAvailable reports whether the file exists and holds an RSA JWK. A
// missing file is not an error.
func (k *Keyfile) IsAvailable(ctx context.Context) (bool, error) {
	if k.path == "" {
		return false, nil
	}
	data, err := os.ReadFile(k.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer wipe(data)

	if _, err := ParseJWK(data); err != nil {
		return false, err
	}
	return true, nil
}

// Connect loads the key and grants the requested permissions the key can
// serve.
func (k *Keyfile) Connect(ctx context.Context, permissions strategy.PermissionSet, app strategy.AppInfo, gateway strategy.GatewayConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(k.path)
	if err != nil {
		return &strategy.ConnectionError{StrategyID: KeyfileID, Reason: "cannot read keyfile", Err: err}
	}
	return k.open(data, permissions)
}

// Disconnect destroys the loaded key.
func (k *Keyfile) Disconnect(ctx context.Context) error {
	k.close()
	return nil
}

var (
	_ strategy.Strategy      = (*Keyfile)(nil)
	_ strategy.Signer        = (*Keyfile)(nil)
	_ strategy.AddressLister = (*Keyfile)(nil)
	_ strategy.WalletNamer   = (*Keyfile)(nil)
)
