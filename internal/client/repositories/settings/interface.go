// Package settings is a lightweight key-value store for local client state:
// the application-password verifier, the nuke password, the device-local
// sealing key, the last active session marker, and the connection type.
package settings

import "context"

// Well-known keys.
const (
	KeyAppPasswordVerifier = "app_password_verifier"
	KeyAppPasswordSalt     = "app_password_salt"
	KeyNukePassword        = "nuke_password"
	KeyLocalSealKey        = "local_seal_key"
	KeyLastSessionHash     = "last_session_hash"
	KeyConnectionType      = "connection_type"
)

// Repository is a byte-valued key-value store. Get returns (nil, nil) for an
// absent key, so callers can treat a nil value as "unset".
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
