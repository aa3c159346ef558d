package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrSealed is returned by Use after the key has been destroyed.
var ErrSealed = errors.New("key material has been destroyed")

// ErrEmpty is returned by Seal for empty input.
var ErrEmpty = errors.New("no key material to seal")

// Key holds wallet key material encrypted in memory. The plaintext only
// exists inside a locked buffer for the duration of a Use call.
//
// Note: memguard.Enclave has no Destroy method. Destroy drops the enclave
// so it is garbage collected; memguard.Purge at exit wipes everything.
type Key struct {
	mu      sync.RWMutex
	enclave *memguard.Enclave
}

// Seal moves data into an encrypted enclave. memguard wipes data in the
// process, so callers must not reuse it.
func Seal(data []byte) (*Key, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return &Key{enclave: memguard.NewEnclave(data)}, nil
}

// Use decrypts the key into a locked buffer, passes the plaintext to fn and
// destroys the buffer when fn returns. fn must not retain the slice.
//
// Example:
//
//	err := key.Use(func(jwk []byte) error {
//	    return json.Unmarshal(jwk, &parsed)
//	})
func (k *Key) Use(fn func(plaintext []byte) error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.enclave == nil {
		return ErrSealed
	}

	locked, err := k.enclave.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	return fn(locked.Bytes())
}

// Destroyed reports whether Destroy has been called.
func (k *Key) Destroyed() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.enclave == nil
}

// Destroy releases the enclave. It is safe to call more than once.
func (k *Key) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.enclave = nil
}

// Purge wipes all memguard-managed memory. Call it once when the process
// exits.
func Purge() {
	memguard.Purge()
}
