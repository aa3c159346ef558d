// Package secure keeps wallet key material out of plain process memory.
//
// Keys are sealed in a memguard enclave, encrypted with XSalsa20Poly1305
// and mlocked where the platform allows it. The plaintext is only decrypted
// into a guarded buffer for the duration of a single operation:
//
//	key, err := secure.Seal(jwkBytes) // jwkBytes is wiped
//	if err != nil {
//	    return err
//	}
//	defer key.Destroy()
//
//	err = key.Use(func(jwk []byte) error {
//	    // parse and sign; do not keep jwk
//	    return nil
//	})
//
// # Platform Behavior
//
//   - Linux: locking is bounded by RLIMIT_MEMLOCK
//   - macOS: works out of the box
//   - Windows: uses VirtualLock
//
// When locking fails memguard falls back to ordinary memory.
//
// It does NOT protect against attackers with root access to the running
// process or against hardware-level attacks.
package secure
