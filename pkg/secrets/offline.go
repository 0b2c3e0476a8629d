package secrets

import (
	"context"
	"errors"
)

// ErrOffline is returned by the offline source for every fetch.
var ErrOffline = errors.New("parameter store disabled")

type offlineSource struct{}

// Offline returns a Source whose every fetch fails, forcing the resolver to
// use fallback defaults. Used by --offline runs and by rendering tests.
func Offline() Source { return offlineSource{} }

// Fetch implements Source.
func (offlineSource) Fetch(ctx context.Context, paramPath string, decrypt bool) (string, error) {
	return "", ErrOffline
}
