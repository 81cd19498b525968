// Package session resolves who is logged in and fires read receipts for the
// open room.
package session

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/saravenpi/parley/internal/backend"
)

// WhoAmI asks the backend for the identity of the current session.
type WhoAmI func(ctx context.Context) (string, error)

// Resolve returns the identity of the current session. Any failure, and an
// empty identity, is reported as backend.ErrAuthRequired so the caller can
// send the user to the login screen.
func Resolve(ctx context.Context, whoami WhoAmI) (string, error) {
	identity, err := whoami(ctx)
	if err != nil {
		if !errors.Is(err, backend.ErrAuthRequired) {
			jww.WARN.Printf("Session lookup failed: %+v", err)
		}
		return "", errors.Wrap(backend.ErrAuthRequired, err.Error())
	}

	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", errors.Wrap(backend.ErrAuthRequired, "session has no identity")
	}

	jww.INFO.Printf("Session resolved as %s", identity)
	return identity, nil
}
