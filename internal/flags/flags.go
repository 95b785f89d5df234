// Package flags evaluates feature flags from static configuration.
// A flag is on for a caller when it is enabled and either lists the caller's
// user id or the caller's bucket falls inside the rollout percentage.
package flags

import (
	"fmt"
	"hash/fnv"
	"slices"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
)

// Flag is the rollout definition of one feature.
type Flag struct {
	Enabled        bool     `yaml:"enabled"`
	RolloutPercent int      `yaml:"rollout_percent"`
	AllowUsers     []string `yaml:"allow_users"`
}

// Validate checks the rollout range.
func (f Flag) Validate() error {
	if f.RolloutPercent < 0 || f.RolloutPercent > 100 {
		return fmt.Errorf("rollout_percent must be in [0, 100], got %d", f.RolloutPercent)
	}
	return nil
}

// Static evaluates flags from a fixed set. Unknown flags are off.
type Static struct {
	flags map[string]Flag
}

// NewStatic validates and stores flags.
func NewStatic(flags map[string]Flag) (*Static, error) {
	for name, f := range flags {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("flag %q: %w", name, err)
		}
	}
	return &Static{flags: flags}, nil
}

// IsEnabled reports whether name is on for caller. Bucketing keys on the
// user id, or the IP for anonymous callers, so a caller sees a stable answer.
func (s *Static) IsEnabled(name string, caller domain.Caller) bool {
	f, ok := s.flags[name]
	if !ok || !f.Enabled {
		return false
	}
	if caller.UserID != "" && slices.Contains(f.AllowUsers, caller.UserID) {
		return true
	}
	switch f.RolloutPercent {
	case 0:
		return false
	case 100:
		return true
	}

	key := caller.UserID
	if key == "" {
		key = caller.IP
	}
	if key == "" {
		return false
	}
	return bucket(name, key) < uint32(f.RolloutPercent)
}

// bucket maps (flag, key) to [0, 100).
func bucket(name, key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key))
	return h.Sum32() % 100
}
