// Package featureflags evaluates runtime switches configured through FEATURE_FLAGS.
//
// The setting is a comma-separated list of name=value pairs:
//
//	FEATURE_FLAGS="admin_self_toggle=off,new_feed=25%"
//
// A value is on/true/1, off/false/0, or N% for a rollout that is stable per user.
package featureflags

import (
	"errors"
	"fmt"
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
)

// AdminSelfToggle lets an admin change their own admin flag.
const AdminSelfToggle = "admin_self_toggle"

// Known lists the flags the application reads. They appear in every
// snapshot, defaulting to off when unconfigured.
var Known = map[string]string{
	AdminSelfToggle: "admins may flip their own is_admin flag",
}

type rule struct {
	raw     string
	percent int // 0..100; on is 100, off is 0
}

// Manager holds parsed flag rules. A nil Manager reports every flag off.
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw and skips malformed entries.
func NewManager(raw string) *Manager {
	m, _ := parse(raw)
	return m
}

// Parse is NewManager that reports every malformed entry.
func Parse(raw string) (*Manager, error) {
	return parse(raw)
}

func parse(raw string) (*Manager, error) {
	m := &Manager{rules: make(map[string]rule)}
	var errs []error

	for _, pair := range strings.Split(raw, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			errs = append(errs, fmt.Errorf("feature flag %q: expected name=value", strings.TrimSpace(pair)))
			continue
		}
		pct, err := parseValue(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("feature flag %q: %w", name, err))
			continue
		}
		m.rules[name] = rule{raw: value, percent: pct}
	}

	return m, errors.Join(errs...)
}

func parseValue(value string) (int, error) {
	switch value {
	case "on", "true", "1":
		return 100, nil
	case "off", "false", "0":
		return 0, nil
	}
	digits, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0, fmt.Errorf("unsupported value %q", value)
	}
	pct, err := strconv.Atoi(digits)
	if err != nil || pct < 0 || pct > 100 {
		return 0, fmt.Errorf("rollout %q must be between 0%% and 100%%", value)
	}
	return pct, nil
}

// Enabled reports whether name is on for userID. Partial rollouts never
// include the anonymous user (ID 0).
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == 0:
		return false
	}
	return bucket(name, userID) < r.percent
}

// Raw returns the configured values keyed by flag name.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

// Snapshot evaluates every configured and known flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(Known))
	for name := range maps.Keys(Known) {
		out[name] = m.Enabled(name, userID)
	}
	if m == nil {
		return out
	}
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
