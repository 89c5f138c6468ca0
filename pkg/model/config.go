package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
)

// Configuration is an immutable build configuration: a named set of
// string options. Identity is the checksum of the option map, so two
// configurations with equal options are the same configuration
// regardless of how they were built. A nil *Configuration means the
// absent configuration used by configuration-agnostic target kinds.
type Configuration struct {
	name     string
	checksum string
	options  map[string]string
}

// NewConfiguration builds a configuration from a display name and an
// option map. The option map is copied; later mutation of the argument
// has no effect.
func NewConfiguration(name string, options map[string]string) *Configuration {
	opts := make(map[string]string, len(options))
	for k, v := range options {
		opts[k] = v
	}
	return &Configuration{
		name:     name,
		checksum: checksumOptions(opts),
		options:  opts,
	}
}

// Name returns the configuration's display name.
func (c *Configuration) Name() string {
	if c == nil {
		return "none"
	}
	return c.name
}

// Checksum returns the stable identity of the configuration. The
// absent configuration has an empty checksum.
func (c *Configuration) Checksum() string {
	if c == nil {
		return ""
	}
	return c.checksum
}

// Option returns the value of a single option and whether it is set.
func (c *Configuration) Option(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.options[key]
	return v, ok
}

// Options returns a copy of the option map.
func (c *Configuration) Options() map[string]string {
	if c == nil {
		return nil
	}
	out := make(map[string]string, len(c.options))
	for k, v := range c.options {
		out[k] = v
	}
	return out
}

// String returns "name@checksum-prefix" for diagnostics.
func (c *Configuration) String() string {
	if c == nil {
		return "none"
	}
	sum := c.checksum
	if len(sum) > 8 {
		sum = sum[:8]
	}
	return fmt.Sprintf("%s@%s", c.name, sum)
}

func checksumOptions(options map[string]string) string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(options[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigurationRegistry interns configurations by checksum so that node
// keys can embed a compact identity and functions can map it back to
// the full configuration. The registry is an explicit handle owned by
// whoever drives the evaluation; there is no ambient global table.
type ConfigurationRegistry struct {
	mu         sync.RWMutex
	byChecksum map[string]*Configuration
}

// NewConfigurationRegistry creates an empty registry.
func NewConfigurationRegistry() *ConfigurationRegistry {
	return &ConfigurationRegistry{
		byChecksum: make(map[string]*Configuration),
	}
}

// Intern records a configuration and returns the canonical instance
// for its checksum. Interning nil returns nil.
func (r *ConfigurationRegistry) Intern(c *Configuration) *Configuration {
	if c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byChecksum[c.checksum]; ok {
		return existing
	}
	r.byChecksum[c.checksum] = c
	return c
}

// Lookup returns the interned configuration for a checksum. The empty
// checksum resolves to the absent configuration (nil, true).
func (r *ConfigurationRegistry) Lookup(checksum string) (*Configuration, bool) {
	if checksum == "" {
		return nil, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byChecksum[checksum]
	return c, ok
}
