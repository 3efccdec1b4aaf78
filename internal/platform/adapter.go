// Package platform holds the per-platform capability behind the job
// engine: submitting a release for delivery and parsing that platform's
// royalty report into normalized records. One Adapter per platform,
// registered at startup; the engine only ever sees the registry.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hardbanrecords/backoffice/internal/model"
)

var (
	ErrUnknownPlatform   = errors.New("platform: not registered")
	ErrFormatUnsupported = errors.New("platform: report format not supported")
)

// Adapter is the platform-specific capability interface. Submit pushes
// one release to the platform; ParseReport turns that platform's raw
// royalty report into normalized records. Neither retries: error
// classification is the engine's job.
type Adapter interface {
	Name() string
	Submit(ctx context.Context, payload *model.DistributionPayload) (*model.SubmissionResult, error)
	ParseReport(raw []byte) ([]model.NormalizedRecord, error)
	ReportFormat() model.ReportFormat
}

// Registry is a read-only (after startup) set of adapters keyed by
// platform name.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if err := r.register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(a Adapter) error {
	name := strings.ToLower(a.Name())
	if name == "" {
		return errors.New("platform: adapter with empty name")
	}
	if _, dup := r.adapters[name]; dup {
		return fmt.Errorf("platform: duplicate adapter %q", name)
	}
	r.adapters[name] = a
	return nil
}

// Get returns the adapter for the given platform name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}
	return a, nil
}

// Has reports whether a platform is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[strings.ToLower(name)]
	return ok
}

// Names returns all registered platform names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
