package httpapi

import (
	"embed"
	"net/http"
)

//go:embed web
var pagesFS embed.FS

func (s *Server) servePage(w http.ResponseWriter, name string) {
	b, err := pagesFS.ReadFile("web/" + name)
	if err != nil {
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}
