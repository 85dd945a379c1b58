package server

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"chatterbox/internal/session"
)

//go:embed web
var webFS embed.FS

// pageData is the payload every page template receives.
type pageData struct {
	Username string
	Flashes  []session.Flash
}

func parseTemplates() *template.Template {
	return template.Must(template.ParseFS(webFS, "web/*.html"))
}

func staticHandler() http.Handler {
	staticFS, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
}

// render writes a page, draining pending flashes into it.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	data.Flashes = s.sessions.PopFlashes(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render template", "template", name, "err", err)
	}
}
