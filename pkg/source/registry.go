package source

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) core.Source)
	aliases    = make(map[string]string)
)

// RegisterAlias lets users spell a source type another way, e.g.
// "postgresql" for "postgres".
func RegisterAlias(alias, name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	aliases[strings.ToLower(alias)] = name
}

// Resolve normalizes a configured source type: case and surrounding space
// are ignored and aliases map to their source.
func Resolve(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	defer registryMu.RUnlock()
	if target, ok := aliases[name]; ok {
		return target
	}
	return name
}

// Register adds a source factory to the registry.
// Called by source implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) core.Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a source factory by name.
func Get(name string) (func(*slog.Logger) core.Source, bool) {
	name = Resolve(name)
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates a source instance based on config type.
// The logger parameter is passed to the source constructor (nil uses discard logger).
func New(cfg core.SourceConfig, logger *slog.Logger) (core.Source, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("source type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, NewUnknownSourceError(cfg.Type)
	}
	return factory(logger), nil
}

// List returns all registered source names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a source type is registered.
func IsRegistered(name string) bool {
	name = Resolve(name)
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownSourceError is returned when an unknown source type is requested.
type UnknownSourceError struct {
	Type      string
	Available []string
	// Suggestion is a registered source the type looks like, if any.
	Suggestion string
}

// NewUnknownSourceError builds the error for typ against the current registry.
func NewUnknownSourceError(typ string) *UnknownSourceError {
	available := List()
	return &UnknownSourceError{
		Type:       typ,
		Available:  available,
		Suggestion: suggest(Resolve(typ), available),
	}
}

// suggest returns the registered name sharing the longest prefix with typ,
// if at least three characters match.
func suggest(typ string, available []string) string {
	best, bestLen := "", 2
	for _, name := range available {
		n := 0
		for n < len(name) && n < len(typ) && name[n] == typ[n] {
			n++
		}
		if n > bestLen {
			best, bestLen = name, n
		}
	}
	return best
}

func (e *UnknownSourceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unknown source type %q", e.Type)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", e.Suggestion)
	}
	fmt.Fprintf(&b, "\nAvailable sources: %v", e.Available)
	b.WriteString("\nHint: set source.type in mortwatch.yaml, MORTWATCH_SOURCE__TYPE or --source-type")
	return b.String()
}
