package server

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/chris-regnier/diaryweb/internal/media"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, media.ErrInvalidName)
		return
	}
	s.serveBlob(w, r, name)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err == nil {
		err = media.ValidateName(name)
	}
	if err != nil {
		s.writeError(w, r, media.ErrInvalidName)
		return
	}
	s.serveBlob(w, r, media.ThumbnailName(name))
}

func (s *Server) serveBlob(w http.ResponseWriter, r *http.Request, name string) {
	rc, info, err := s.blobs.Open(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")

	// Local files support range requests, which video and audio players use.
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, info.ModTime, rs)
		return
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Warnw("streaming media", "name", name, "error", err)
	}
}
