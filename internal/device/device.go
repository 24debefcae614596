package device

import (
	"context"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
	"github.com/ggonzalez94/transfer-cli/internal/keys"
)

// Signer is an attached hardware signing device. Sign blocks until the
// operator confirms or rejects on the device, or the device disconnects;
// there is no local timeout on that wait.
type Signer interface {
	// PublicKey reads the key at the given HD derivation path.
	PublicKey(ctx context.Context, hdPath string) (keys.PublicKey, error)
	// Sign requests a signature over message at the given path.
	Sign(ctx context.Context, hdPath string, message []byte) (keys.Signature, error)
}

// DefaultHDPath is the derivation path offered when none is supplied.
const DefaultHDPath = "44'/397'/0'/0'/1'"

// Open connects to the first attached device. Platform transport packages
// replace this at build time; without one, every attempt reports the device
// as disconnected.
var Open = func(ctx context.Context) (Signer, error) {
	return nil, ErrDisconnected("no hardware device transport is available in this build")
}

// ErrRejected reports that the operator declined the request on the device.
func ErrRejected(message string) error {
	return clierr.New(clierr.CodeDeviceRejected, message)
}

// ErrDisconnected reports that the device is unreachable or went away
// mid-operation.
func ErrDisconnected(message string) error {
	return clierr.New(clierr.CodeDeviceDisconnected, message)
}
