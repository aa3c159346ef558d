package strategies

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/systmms/arkit/pkg/strategy"
)

// KeychainID is the id of the keychain strategy.
const KeychainID = "keychain"

// KeychainClient abstracts the OS keychain for testing
type KeychainClient interface {
	Get(service, account string) (string, error)
	Set(service, account, secret string) error
	Delete(service, account string) error
}

// osKeychain talks to the macOS Keychain, the Secret Service on Linux or
// the Windows credential store through go-keyring.
type osKeychain struct{}

func (osKeychain) Get(service, account string) (string, error) {
	secret, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrKeychainItemNotFound
	}
	return secret, err
}

func (osKeychain) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

func (osKeychain) Delete(service, account string) error {
	err := keyring.Delete(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrKeychainItemNotFound
	}
	return err
}

// Keychain sentinel errors
var (
	ErrKeychainItemNotFound = errors.New("keychain item not found")
)

// KeychainError wraps OS keychain errors with context
type KeychainError struct {
	Op      string // Operation: "get", "set", "delete"
	Service string
	Account string
	Err     error
}

func (e *KeychainError) Error() string {
	return fmt.Sprintf("keychain %s error for %s/%s: %v", e.Op, e.Service, e.Account, e.Err)
}

func (e *KeychainError) Unwrap() error {
	return e.Err
}

// Keychain connects with an Arweave JWK stored in the OS keychain.
type Keychain struct {
	keyWallet
	service string
	account string
	client  KeychainClient
}

// NewKeychain creates a keychain strategy for the item service/account.
func NewKeychain(service, account string) *Keychain {
	return NewKeychainWithClient(service, account, osKeychain{})
}

// NewKeychainWithClient creates a keychain strategy with a custom client.
func NewKeychainWithClient(service, account string, client KeychainClient) *Keychain {
	return &Keychain{
		keyWallet: keyWallet{id: KeychainID, label: account},
		service:   service,
		account:   account,
		client:    client,
	}
}

// Metadata implements strategy.Strategy.
func (k *Keychain) Metadata() strategy.Metadata {
	return strategy.Metadata{
		ID:          KeychainID,
		Name:        "OS Keychain",
		Description: "Arweave wallet key kept in the system keychain",
		Theme:       "0, 122, 255",
		URL:         "https://github.com/zalando/go-keyring#dependencies",
		Logo:        "https://github.com/favicon.ico",
	}
}

// Item returns the keychain service and account.
func (k *Keychain) Item() (service, account string) {
	return k.service, k.account
}

// IsAvailable reports whether the keychain holds a wallet under the
// configured item.
func (k *Keychain) IsAvailable(ctx context.Context) (bool, error) {
	secret, err := k.client.Get(k.service, k.account)
	if errors.Is(err, ErrKeychainItemNotFound) {
		return false, nil
	}
	if err != nil {
		return false, k.wrap("get", err)
	}
	if _, err := ParseJWK([]byte(secret)); err != nil {
		return false, err
	}
	return true, nil
}

// Connect loads the key from the keychain.
func (k *Keychain) Connect(ctx context.Context, permissions strategy.PermissionSet, app strategy.AppInfo, gateway strategy.GatewayConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	secret, err := k.client.Get(k.service, k.account)
	if err != nil {
		return &strategy.ConnectionError{StrategyID: KeychainID, Reason: "cannot read keychain", Err: k.wrap("get", err)}
	}
	return k.open([]byte(secret), permissions)
}

// Disconnect destroys the loaded key. The keychain item is kept.
func (k *Keychain) Disconnect(ctx context.Context) error {
	k.close()
	return nil
}

// Import stores a JWK in the keychain item and returns its address.
func (k *Keychain) Import(ctx context.Context, data []byte) (strategy.Address, error) {
	jwk, err := ParseJWK(data)
	if err != nil {
		return "", err
	}
	if _, err := jwk.PrivateKey(); err != nil {
		return "", err
	}
	address, err := jwk.Address()
	if err != nil {
		return "", err
	}
	if err := k.client.Set(k.service, k.account, string(data)); err != nil {
		return "", k.wrap("set", err)
	}
	return address, nil
}

// Remove deletes the keychain item.
func (k *Keychain) Remove(ctx context.Context) error {
	if err := k.client.Delete(k.service, k.account); err != nil {
		return k.wrap("delete", err)
	}
	return nil
}

func (k *Keychain) wrap(op string, err error) error {
	return &KeychainError{Op: op, Service: k.service, Account: k.account, Err: err}
}

var (
	_ strategy.Strategy      = (*Keychain)(nil)
	_ strategy.Signer        = (*Keychain)(nil)
	_ strategy.AddressLister = (*Keychain)(nil)
	_ strategy.WalletNamer   = (*Keychain)(nil)
)
