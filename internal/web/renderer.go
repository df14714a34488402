// Package web renders the storefront HTML pages: the tenant intake form,
// the themed tenant dashboard and the unknown tenant page.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

// Page template names.
const (
	PageIndex     = "index.html"
	PageDashboard = "dashboard.html"
	PageNotFound  = "not_found.html"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders the embedded page templates. It implements echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded templates. Every page is parsed together
// with the shared layout so pages can use the same block names.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageIndex, PageDashboard, PageNotFound} {
		t, err := template.New(page).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render executes the named page with data.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, name, data)
}
