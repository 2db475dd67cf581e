package webapp

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/medicus-hms/medicus/internal/hospital"

	log "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTitles = map[string]string{
	"index.html":     "Home",
	"register.html":  "Register",
	"login.html":     "Login",
	"dashboard.html": "Dashboard",
}

type templateData struct {
	Title    string
	Flash    string
	Username string
	Overview *hospital.Overview
}

// parseTemplates parses each page together with the shared layout, keyed by
// the page file name.
func parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)
	for page := range pageTitles {
		tmpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}
	return templates, nil
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, page string, data templateData) {
	tmpl, ok := h.templates[page]
	if !ok {
		log.Errorf("render page: unknown template %s", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data.Title = pageTitles[page]
	data.Flash = popFlash(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Errorf("execute template %s: %s", page, err)
	}
}

// StaticHandler serves the embedded /static assets.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// embed guarantees the directory exists
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
