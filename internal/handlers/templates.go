package handlers

import (
	"html/template"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

const layoutFile = "layout.html"

// TemplateCache holds parsed templates
type TemplateCache struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
	funcs template.FuncMap
}

func NewTemplateCache() *TemplateCache {
	tc := &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: make(template.FuncMap),
	}
	for name, fn := range TemplateFuncs() {
		tc.funcs[name] = fn
	}
	return tc
}

func (tc *TemplateCache) AddFunc(name string, fn any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.funcs[name] = fn
}

// Load parses every page in dir together with the shared layout and the
// partials (files starting with "_").
func (tc *TemplateCache) Load(dir string) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return err
	}
	partials, err := filepath.Glob(filepath.Join(dir, "_*.html"))
	if err != nil {
		return err
	}
	layout := filepath.Join(dir, layoutFile)

	for _, file := range files {
		name := filepath.Base(file)
		if name == layoutFile || strings.HasPrefix(name, "_") {
			continue
		}
		set := append([]string{layout}, partials...)
		set = append(set, file)
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFiles(set...)
		if err != nil {
			slog.Error("Failed to parse template", "file", file, "error", err)
			return err
		}
		tc.cache[name] = tmpl
		slog.Debug("Cached template", "name", name)
	}
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}
