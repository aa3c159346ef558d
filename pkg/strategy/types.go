package strategy

import (
	"fmt"
	"sort"
	"strings"
)

// Metadata identifies a strategy and describes how to present it.
type Metadata struct {
	// ID is the stable, unique identifier, e.g. "keyfile".
	ID string

	// Name is the display name.
	Name string

	// Description is a one-line display text.
	Description string

	// Theme is an accent colour as "r, g, b". It is opaque to the core.
	Theme string

	// Logo is an opaque resource reference (URL or file path).
	Logo string

	// URL points to install or documentation pages for the provider.
	URL string
}

// Permission is a named capability a session may be granted.
type Permission string

// Permission names understood by Arweave wallets.
const (
	PermissionAccessAddress       Permission = "ACCESS_ADDRESS"
	PermissionAccessAllAddresses  Permission = "ACCESS_ALL_ADDRESSES"
	PermissionAccessPublicKey     Permission = "ACCESS_PUBLIC_KEY"
	PermissionSignTransaction     Permission = "SIGN_TRANSACTION"
	PermissionSignature           Permission = "SIGNATURE"
	PermissionEncrypt             Permission = "ENCRYPT"
	PermissionDecrypt             Permission = "DECRYPT"
	PermissionAccessArweaveConfig Permission = "ACCESS_ARWEAVE_CONFIG"
	PermissionDispatch            Permission = "DISPATCH"
)

var knownPermissions = map[Permission]bool{
	PermissionAccessAddress:       true,
	PermissionAccessAllAddresses:  true,
	PermissionAccessPublicKey:     true,
	PermissionSignTransaction:     true,
	PermissionSignature:           true,
	PermissionEncrypt:             true,
	PermissionDecrypt:             true,
	PermissionAccessArweaveConfig: true,
	PermissionDispatch:            true,
}

// ParsePermission converts a permission name, case-insensitively, into a
// Permission. Unknown names are rejected.
func ParsePermission(name string) (Permission, error) {
	p := Permission(strings.ToUpper(strings.TrimSpace(name)))
	if !knownPermissions[p] {
		return "", fmt.Errorf("unknown permission %q", name)
	}
	return p, nil
}

// AllPermissions returns every known permission in sorted order.
func AllPermissions() PermissionSet {
	perms := make([]Permission, 0, len(knownPermissions))
	for p := range knownPermissions {
		perms = append(perms, p)
	}
	return NewPermissionSet(perms...)
}

// PermissionSet is an immutable, sorted set of permissions.
//
// The zero value is the empty set.
type PermissionSet struct {
	perms []Permission
}

// NewPermissionSet builds a set from perms, dropping duplicates.
func NewPermissionSet(perms ...Permission) PermissionSet {
	seen := make(map[Permission]bool, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return PermissionSet{perms: out}
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	i := sort.Search(len(s.perms), func(i int) bool { return s.perms[i] >= p })
	return i < len(s.perms) && s.perms[i] == p
}

// Contains reports whether every permission of other is in s.
func (s PermissionSet) Contains(other PermissionSet) bool {
	for _, p := range other.perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Intersect returns the permissions present in both sets.
func (s PermissionSet) Intersect(other PermissionSet) PermissionSet {
	var out []Permission
	for _, p := range s.perms {
		if other.Has(p) {
			out = append(out, p)
		}
	}
	return NewPermissionSet(out...)
}

// Len returns the number of permissions.
func (s PermissionSet) Len() int {
	return len(s.perms)
}

// Slice returns a copy of the permissions in sorted order.
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, len(s.perms))
	copy(out, s.perms)
	return out
}

func (s PermissionSet) String() string {
	names := make([]string, len(s.perms))
	for i, p := range s.perms {
		names[i] = string(p)
	}
	return strings.Join(names, ",")
}

// AppInfo describes the host application to the wallet.
type AppInfo struct {
	Name string
	Logo string
}

// GatewayConfig is the Arweave gateway the wallet should use.
type GatewayConfig struct {
	Host     string
	Port     int
	Protocol string
}

// DefaultGateway returns the public arweave.net gateway.
func DefaultGateway() GatewayConfig {
	return GatewayConfig{Host: "arweave.net", Port: 443, Protocol: "https"}
}

// URL renders the gateway as a base URL. Default ports are omitted.
func (g GatewayConfig) URL() string {
	protocol := g.Protocol
	if protocol == "" {
		protocol = "https"
	}
	if g.Port == 0 || (protocol == "https" && g.Port == 443) || (protocol == "http" && g.Port == 80) {
		return fmt.Sprintf("%s://%s", protocol, g.Host)
	}
	return fmt.Sprintf("%s://%s:%d", protocol, g.Host, g.Port)
}

// Address is an Arweave wallet address: the base64url encoded SHA-256 of the
// wallet's RSA modulus.
type Address string

func (a Address) String() string { return string(a) }

// PublicKey is the base64url encoded RSA modulus of a wallet, called the
// "owner" in Arweave transactions.
type PublicKey string

func (k PublicKey) String() string { return string(k) }
