package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetLabQR(w http.ResponseWriter, r *http.Request) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	if s.qr == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("qr codes are not configured"), ErrCodeQRNotFound))
		return
	}

	path := s.qr.Path(code)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("qr code not found"), ErrCodeQRNotFound))
			return
		}
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

// staticFileServer serves stored media without directory listings.
func staticFileServer(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
