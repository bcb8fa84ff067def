package assets

import (
	"strings"

	"jellymigrate/internal/config"
)

// Systems and categories of the translation table.
const (
	SystemPlex     = "plex"
	SystemJellyfin = "jellyfin"

	CategoryAppData = "app_data"
	CategoryMedia   = "media"
)

type tableKey struct {
	system   string
	category string
}

type rule struct {
	app  string
	host string
}

// Translator maps paths between what a server sees and what the host sees.
// Rules are tried in configuration order.
type Translator struct {
	rules map[tableKey][]rule
}

// NewTranslator builds a Translator from configuration entries.
func NewTranslator(entries []config.Translation) *Translator {
	t := &Translator{rules: make(map[tableKey][]rule)}
	for _, e := range entries {
		if e.App == "" {
			continue
		}
		key := tableKey{system: e.System, category: e.Category}
		t.rules[key] = append(t.rules[key], rule{app: e.App, host: e.Host})
	}
	return t
}

// ToHost rewrites an application path into a host path. The first rule whose
// app prefix occurs in path wins and only its first occurrence is replaced.
// Without a matching rule the path is returned unchanged.
func (t *Translator) ToHost(system, category, path string) string {
	if t == nil {
		return path
	}
	for _, r := range t.rules[tableKey{system: system, category: category}] {
		if strings.Contains(path, r.app) {
			return strings.Replace(path, r.app, r.host, 1)
		}
	}
	return path
}

// ToApp is the reverse of ToHost.
func (t *Translator) ToApp(system, category, path string) string {
	if t == nil {
		return path
	}
	for _, r := range t.rules[tableKey{system: system, category: category}] {
		if r.host != "" && strings.Contains(path, r.host) {
			return strings.Replace(path, r.host, r.app, 1)
		}
	}
	return path
}
