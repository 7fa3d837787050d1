// Package dashboard renders Grafana dashboards for the GreptimeDB tables the
// simulator writes.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Tables names the GreptimeDB tables the dashboards query.
type Tables struct {
	Entity string
	Effect string
}

// Render parses the dashboard templates and writes rendered dashboards to
// outDir. Templates read the datasource uid through the env function.
func Render(outDir string, tables Tables) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	t, err := template.New("dashboards").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, tpl := range t.Templates() {
		if !strings.HasSuffix(tpl.Name(), ".tmpl") {
			continue
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(tpl.Name(), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := tpl.Execute(f, tables); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
