// Package featureflags evaluates the board feature switches configured through FEATURE_FLAGS.
package featureflags

import (
	"hash/fnv"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Flag names one switchable board feature.
type Flag string

const (
	CardMirrors  Flag = "card_mirrors"
	TrelloImport Flag = "trello_import"
	GlobalSearch Flag = "global_search"
	LabelCache   Flag = "label_cache"
)

// defaults hold the state of each board feature when FEATURE_FLAGS does not mention it.
var defaults = map[Flag]bool{
	CardMirrors:  true,
	TrelloImport: true,
	GlobalSearch: true,
	LabelCache:   true,
}

// Known lists the board features in a stable order.
func Known() []Flag {
	return slices.Sorted(maps.Keys(defaults))
}

// rule is one parsed FEATURE_FLAGS entry: fully on, fully off, or a percent of users.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, percent: 100}, true
	case "off", "false", "0":
		return rule{raw: value, percent: 0}, true
	}
	pct, ok := strings.CutSuffix(value, "%")
	if !ok {
		return rule{}, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return rule{}, false
	}
	return rule{raw: value, percent: min(max(n, 0), 100)}, true
}

// Manager answers flag checks for a parsed FEATURE_FLAGS value such as
// "card_mirrors=on,trello_import=25%,global_search=off". A nil Manager reports defaults.
type Manager struct {
	rules map[Flag]rule
}

// NewManager parses raw. Malformed entries are ignored.
func NewManager(raw string) *Manager {
	rules := make(map[Flag]rule)
	for _, entry := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		flag := Flag(clean(name))
		r, ok := parseRule(clean(value))
		if flag == "" || !ok {
			continue
		}
		rules[flag] = r
	}
	return &Manager{rules: rules}
}

// On reports whether flag is enabled for userID. Percentage rollouts bucket users
// deterministically and never include the anonymous user 0.
func (m *Manager) On(flag Flag, userID uint) bool {
	var r rule
	ok := false
	if m != nil {
		r, ok = m.rules[flag]
	}
	if !ok {
		return defaults[flag]
	}
	switch r.percent {
	case 0:
		return false
	case 100:
		return true
	}
	return userID != 0 && bucket(flag, userID) < r.percent
}

// Configured returns the FEATURE_FLAGS entries as written.
func (m *Manager) Configured() map[Flag]string {
	out := make(map[Flag]string)
	if m == nil {
		return out
	}
	for flag, r := range m.rules {
		out[flag] = r.raw
	}
	return out
}

// Evaluate resolves every known and configured flag for userID.
func (m *Manager) Evaluate(userID uint) map[Flag]bool {
	out := make(map[Flag]bool, len(defaults))
	for flag := range defaults {
		out[flag] = m.On(flag, userID)
	}
	for flag := range m.Configured() {
		out[flag] = m.On(flag, userID)
	}
	return out
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(flag Flag, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(string(flag) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
