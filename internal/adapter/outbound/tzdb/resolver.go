package tzdb

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/i2y/mcptime/internal/domain"
)

// Resolver resolves IANA timezone names to locations using the Go timezone
// database. Loaded locations are memoised; the default zone is fixed at
// construction.
type Resolver struct {
	mu          sync.RWMutex
	locations   map[string]*time.Location
	defaultName string
	defaultLoc  *time.Location
	logger      *slog.Logger
}

// NewResolver creates a Resolver whose default zone is override when set,
// otherwise the host's local zone.
func NewResolver(override string, logger *slog.Logger) (*Resolver, error) {
	r := &Resolver{
		locations: make(map[string]*time.Location),
		logger:    logger.With("component", "tzdb_resolver"),
	}

	name := override
	source := "override"
	if name == "" {
		name = LocalZoneName()
		source = "host"
	}

	loc, err := r.load(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default timezone: %w", err)
	}
	r.defaultName = name
	r.defaultLoc = loc
	r.logger.Info("Default timezone resolved", slog.String("timezone", name), slog.String("source", source))
	return r, nil
}

// Resolve returns the location for name. An empty name yields the default zone.
func (r *Resolver) Resolve(name string) (*time.Location, error) {
	if name == "" {
		return r.defaultLoc, nil
	}
	return r.load(name)
}

// DefaultName returns the IANA name of the default zone.
func (r *Resolver) DefaultName() string {
	return r.defaultName
}

func (r *Resolver) load(name string) (*time.Location, error) {
	r.mu.RLock()
	loc, ok := r.locations[name]
	r.mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		r.logger.Debug("Timezone lookup failed", slog.String("timezone", name), slog.Any("error", err))
		return nil, &domain.TimezoneError{Name: name, Err: err}
	}
	// "Local" is host-dependent and never a valid IANA answer for callers.
	if loc == time.Local {
		return nil, &domain.TimezoneError{Name: name}
	}

	r.mu.Lock()
	r.locations[name] = loc
	r.mu.Unlock()
	return loc, nil
}
