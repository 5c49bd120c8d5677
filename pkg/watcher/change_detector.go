package watcher

import (
	"path/filepath"
	"strings"
)

// Reload describes what the browser needs to do after assets changed
type Reload struct {
	StylesOnly bool     // Stylesheets can be swapped without losing page state
	Paths      []string // Changed files relative to the assets directory
}

// Classify maps an asset file name to its change type. Editor swap files and other
// unrelated files are not relevant.
func Classify(name string) (ChangeType, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return 0, false
	}

	switch strings.ToLower(filepath.Ext(base)) {
	case ".css":
		return ChangeTypeStyle, true
	case ".js", ".mjs", ".map":
		return ChangeTypeScript, true
	case ".html", ".htm", ".svg", ".png", ".ico", ".json":
		return ChangeTypePage, true
	default:
		return 0, false
	}
}

// PlanReload determines how open pages should refresh for a batch of changes
func PlanReload(event ChangeEvent, root string) Reload {
	paths := make([]string, 0, len(event.Paths))
	for _, p := range event.Paths {
		if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = filepath.ToSlash(rel)
		}
		paths = append(paths, p)
	}

	return Reload{
		StylesOnly: event.Type == ChangeTypeStyle,
		Paths:      paths,
	}
}
