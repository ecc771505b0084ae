package server

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
)

// ParseTemplates parses every page and partial under templates/ in fsys.
func ParseTemplates(fsys fs.FS) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"dict": dict,
	}).ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// dict builds a map from alternating keys and values so partials can take
// more than one argument.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}
