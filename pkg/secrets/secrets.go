// Package secrets resolves named secrets from a remote parameter store,
// substituting per-secret fallback defaults when retrieval fails.
package secrets

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/rs/zerolog"
)

// Origin records where a resolved secret value came from.
type Origin string

const (
	// OriginRemote indicates the value was fetched from the parameter store.
	OriginRemote Origin = "remote"

	// OriginDefault indicates the fallback default was substituted.
	OriginDefault Origin = "default"
)

// Ref names a secret to resolve.
type Ref struct {
	// Name is the secret identifier used as the parameter leaf name and as
	// the lookup key in the resolved set.
	Name string

	// Decrypt requests parameter store decryption on fetch.
	Decrypt bool

	// Fallback is substituted when the remote fetch fails or the parameter
	// does not exist.
	Fallback string

	// AllowEmpty marks a sentinel-empty secret: an empty resolved value is
	// a valid state meaning the consuming service self-generates the value.
	// All other refs must resolve to something non-empty.
	AllowEmpty bool

	// Sensitive marks password-class secrets whose fallback use is worth a
	// run warning when override is required.
	Sensitive bool
}

// Resolved is a secret after resolution.
type Resolved struct {
	// Name is the secret identifier.
	Name string

	// Value is the resolved value. Empty only for AllowEmpty refs.
	Value string

	// Origin records whether the value is remote or the fallback default.
	Origin Origin
}

// Set is a resolved secret collection, keyed by name.
type Set map[string]Resolved

// Value returns the resolved value for name, or the empty string.
func (s Set) Value(name string) string { return s[name].Value }

// DefaultedSensitive lists sensitive secrets that fell back to defaults.
func (s Set) DefaultedSensitive(refs []Ref) []string {
	var names []string
	for _, ref := range refs {
		if !ref.Sensitive {
			continue
		}
		if r, ok := s[ref.Name]; ok && r.Origin == OriginDefault {
			names = append(names, ref.Name)
		}
	}
	return names
}

// Source fetches a single parameter from the remote store.
type Source interface {
	// Fetch returns the parameter value at the given path. Any error,
	// including not-found, makes the resolver fall back to the default.
	Fetch(ctx context.Context, paramPath string, decrypt bool) (string, error)
}

// Resolver resolves a set of refs against a Source.
type Resolver struct {
	source Source
	prefix string

	// maxParallel bounds the concurrent fetches.
	maxParallel int
}

// NewResolver creates a Resolver using the given source and parameter
// namespace prefix (e.g. "/ai-ecosystem").
func NewResolver(source Source, prefix string) *Resolver {
	return &Resolver{source: source, prefix: prefix, maxParallel: 4}
}

// ResolveAll resolves every ref. Refs are independent, so fetches run
// concurrently; failures never propagate as errors, they select the
// fallback (OriginDefault) instead.
func (r *Resolver) ResolveAll(ctx context.Context, refs []Ref) Set {
	logger := zerolog.Ctx(ctx)

	results := make([]Resolved, len(refs))
	work := make(chan int, len(refs))
	for i := range refs {
		work <- i
	}
	close(work)

	workers := r.maxParallel
	if len(refs) < workers {
		workers = len(refs)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				results[i] = r.resolve(ctx, logger, refs[i])
			}
		}()
	}
	wg.Wait()

	set := make(Set, len(results))
	for _, res := range results {
		set[res.Name] = res
	}
	return set
}

func (r *Resolver) resolve(ctx context.Context, logger *zerolog.Logger, ref Ref) Resolved {
	paramPath := path.Join(r.prefix, ref.Name)

	value, err := r.source.Fetch(ctx, paramPath, ref.Decrypt)
	if err == nil && (value != "" || ref.AllowEmpty) {
		logger.Debug().Str("secret", ref.Name).Msg("resolved from parameter store")
		return Resolved{Name: ref.Name, Value: value, Origin: OriginRemote}
	}

	if err != nil {
		logger.Warn().Str("secret", ref.Name).Str("parameter", paramPath).Err(err).
			Msg("parameter fetch failed, using fallback")
	}
	return Resolved{Name: ref.Name, Value: ref.Fallback, Origin: OriginDefault}
}

// Validate checks the ref list for duplicate names and empty fallbacks on
// refs that must materialize a value.
func Validate(refs []Ref) error {
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref.Name == "" {
			return fmt.Errorf("secret ref with empty name")
		}
		if seen[ref.Name] {
			return fmt.Errorf("duplicate secret ref: %s", ref.Name)
		}
		seen[ref.Name] = true
		if !ref.AllowEmpty && ref.Fallback == "" {
			return fmt.Errorf("secret %s has no fallback and does not allow empty", ref.Name)
		}
	}
	return nil
}
