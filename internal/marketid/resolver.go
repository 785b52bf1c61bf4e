package marketid

import (
	"strings"
	"sync"
)

// predictionVenues require an explicit mapping: their native identifiers
// cannot be derived from the signal market id by convention.
var predictionVenues = map[string]struct{}{
	"kalshi":     {},
	"polymarket": {},
}

// Resolver maps abstract signal market references to venue-native trading
// symbols. The explicit mapping table is replaceable wholesale via
// LoadMappings and read-only during lookups.
type Resolver struct {
	mu       sync.RWMutex
	mappings map[string]string
}

// NewResolver creates a resolver with an empty mapping table.
func NewResolver() *Resolver {
	return &Resolver{mappings: make(map[string]string)}
}

// LoadMappings replaces the entire explicit table atomically. No partial
// merge; supports config hot-reload.
func (r *Resolver) LoadMappings(mappings map[string]string) {
	table := make(map[string]string, len(mappings))
	for k, v := range mappings {
		table[k] = v
	}

	r.mu.Lock()
	r.mappings = table
	r.mu.Unlock()
}

// Resolve maps a signal market id to a venue-native symbol.
// Priority order:
//  1. explicit mapping for the exact input string
//  2. parse as venue:symbol; fail without a ':' or with an empty half
//  3. prediction venues never fall back to convention
//  4. crypto pair convention: strip '/' from the symbol; otherwise the
//     input is already native
func (r *Resolver) Resolve(signalMarketID string) (string, bool) {
	r.mu.RLock()
	mapped, ok := r.mappings[signalMarketID]
	r.mu.RUnlock()
	if ok {
		return mapped, true
	}

	venue, symbol, found := strings.Cut(signalMarketID, ":")
	if !found || venue == "" || symbol == "" {
		return "", false
	}

	if _, guarded := predictionVenues[strings.ToLower(venue)]; guarded {
		return "", false
	}

	if strings.Contains(symbol, "/") {
		return venue + ":" + strings.ReplaceAll(symbol, "/", ""), true
	}

	return signalMarketID, true
}
