// Package view renders the HTML templates with a small cached template set.
// Templates live under templates/ next to the binary; tests and JSON clients
// never go through here.
package view

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sofratec/erp-app/internal/format"
	"github.com/sofratec/erp-app/internal/i18n"
	"github.com/sofratec/erp-app/internal/middleware"
)

var (
	baseDir  string
	once     sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}
)

func detectBase() {
	candidates := []string{"templates", "../templates", "../../templates"}
	for _, c := range candidates {
		if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

// Funcs returns the template func map: translation, prefs and formatting.
func Funcs(r *http.Request) template.FuncMap {
	lang := middleware.LangFrom(r)
	theme := middleware.ThemeFrom(r)
	return template.FuncMap{
		"t":     func(code string) string { return i18n.T(lang, code) },
		"lang":  func() string { return lang },
		"theme": func() string { return theme },
		"year":  func() int { return time.Now().Year() },
		"money": func(v float64, devise string) string { return format.Money(lang, v, devise) },
		"qty":   func(v float64) string { return format.Quantity(lang, v) },
		"pct":   func(v float64) string { return format.Percent(lang, v) },
		"date":     func(v any) string { return format.Date(lang, derefTime(v)) },
		"datelong": func(v any) string { return format.DateLong(lang, derefTime(v)) },
		"asset":    versionedAsset,
	}
}

// versionedAsset appends a content hash for cache busting. Missing files keep
// the bare path so a broken manifest never breaks the page.
func versionedAsset(rel string) string {
	b, err := os.ReadFile(filepath.Join("static", rel))
	if err != nil {
		return "/static/" + rel
	}
	h := sha1.Sum(b)
	return fmt.Sprintf("/static/%s?v=%x", rel, h[:8])
}

// Some DTO dates are *time.Time; templates hand them to date/datelong as-is.
func derefTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	}
	return time.Time{}
}

// Render writes the named template with the base layout. The func map closes
// over the request's language and theme, so the cache is keyed by all three;
// a cached set is never mutated after parse. Set DEV=1 to re-parse on every
// request.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	once.Do(detectBase)
	dev := os.Getenv("DEV") == "1"
	key := name + "|" + middleware.LangFrom(r) + "|" + middleware.ThemeFrom(r)

	var tpl *template.Template
	if !dev {
		tplCache.RLock()
		tpl = tplCache.m[key]
		tplCache.RUnlock()
	}
	if tpl == nil {
		var err error
		tpl, err = template.New("layout.html").Funcs(Funcs(r)).ParseFiles(
			filepath.Join(baseDir, "layout.html"),
			filepath.Join(baseDir, name),
		)
		if err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		if !dev {
			tplCache.Lock()
			tplCache.m[key] = tpl
			tplCache.Unlock()
		}
	}

	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Flash"]; !ok {
		if msg := middleware.PopFlash(w, r); msg != "" {
			data["Flash"] = msg
		}
	}

	// Render to a buffer first so template errors do not leak half a page.
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}
