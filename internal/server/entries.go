package server

import (
	"bytes"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/media"
	"github.com/chris-regnier/diaryweb/internal/storage"
	"github.com/go-chi/chi/v5"
)

// multipart parts above this size spill to temp files.
const maxFormMemory = 32 << 20

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.store.List(opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []entry.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func parseListOptions(r *http.Request) (storage.ListOptions, error) {
	q := r.URL.Query()
	opts := storage.ListOptions{Query: strings.TrimSpace(q.Get("q"))}
	if v := q.Get("date"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, time.Local)
		if err != nil {
			return opts, badRequest("invalid date %q (expected YYYY-MM-DD)", v)
		}
		opts.Date = &d
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &opts.Limit}, {"offset", &opts.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, badRequest("invalid %s %q", p.name, v)
		}
		*p.dst = n
	}
	return opts, nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cleanupForm(r)

	content := r.PostFormValue("content")
	if entry.ValidateContent(content) != nil {
		s.writeError(w, r, badRequest("content is required"))
		return
	}
	e, err := entry.New(r.PostFormValue("topic"), content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, err := s.saveUploads(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for kind, name := range saved {
		e.SetMediaPath(kind, name)
	}

	if err := s.store.Create(e); err != nil {
		s.removeBlobs(r, values(saved)...)
		s.writeError(w, r, err)
		return
	}
	s.log.Debugw("entry created", "id", e.ID, "media", len(saved))
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.parseForm(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cleanupForm(r)

	content := r.PostFormValue("content")
	if entry.ValidateContent(content) != nil {
		s.writeError(w, r, badRequest("content is required"))
		return
	}

	current, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	params := storage.UpdateParams{Content: content}
	if vals, ok := r.PostForm["topic"]; ok && len(vals) > 0 {
		topic := vals[0]
		params.Topic = &topic
	}

	saved, err := s.saveUploads(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for kind, name := range saved {
		params.SetMediaPath(kind, name)
	}

	updated, err := s.store.Update(id, params)
	if err != nil {
		s.removeBlobs(r, values(saved)...)
		s.writeError(w, r, err)
		return
	}

	var replaced []string
	for kind := range saved {
		if old := current.MediaPath(kind); old != "" && old != updated.MediaPath(kind) {
			replaced = append(replaced, old)
		}
	}
	s.removeBlobs(r, replaced...)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(id); err != nil {
		s.writeError(w, r, err)
		return
	}

	var blobs []string
	for _, kind := range entry.MediaKinds {
		if p := current.MediaPath(kind); p != "" {
			blobs = append(blobs, p)
		}
	}
	s.removeBlobs(r, blobs...)
	w.WriteHeader(http.StatusNoContent)
}

// parseForm accepts multipart and urlencoded bodies, bounded by the upload
// limit.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("invalid form body: %v", err)
	}
	return nil
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// uploadedFile returns the non-empty file part for kind, if any.
func uploadedFile(r *http.Request, kind entry.MediaKind) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[string(kind)]
	if len(files) == 0 || files[0].Size == 0 {
		return nil
	}
	return files[0]
}

// saveUploads stores every supplied attachment. On failure the blobs already
// written are removed again.
func (s *Server) saveUploads(r *http.Request) (map[entry.MediaKind]string, error) {
	saved := make(map[entry.MediaKind]string)
	for _, kind := range entry.MediaKinds {
		fh := uploadedFile(r, kind)
		if fh == nil {
			continue
		}
		name, err := s.saveUpload(r, kind, fh)
		if err != nil {
			s.removeBlobs(r, values(saved)...)
			return nil, err
		}
		saved[kind] = name
	}
	return saved, nil
}

func (s *Server) saveUpload(r *http.Request, kind entry.MediaKind, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", badRequest("reading %s upload: %v", kind, err)
	}
	defer f.Close()

	name := media.NewName(fh.Filename)
	if err := s.blobs.Save(r.Context(), name, f, fh.Size); err != nil {
		return "", err
	}
	s.countUpload(string(kind))

	if kind == entry.Image && s.cfg.Thumbnails {
		s.saveThumbnail(r, name, fh)
	}
	return name, nil
}

// saveThumbnail is best-effort: uploads that fail to decode as images are
// kept without one.
func (s *Server) saveThumbnail(r *http.Request, name string, fh *multipart.FileHeader) {
	f, err := fh.Open()
	if err != nil {
		return
	}
	defer f.Close()

	thumb, err := media.Thumbnail(f)
	if err != nil {
		s.log.Warnw("thumbnail skipped", "name", name, "error", err)
		return
	}
	if err := s.blobs.Save(r.Context(), media.ThumbnailName(name), bytes.NewReader(thumb), int64(len(thumb))); err != nil {
		s.log.Warnw("saving thumbnail", "name", name, "error", err)
	}
}

// removeBlobs deletes attachments and their thumbnails, logging failures.
func (s *Server) removeBlobs(r *http.Request, names ...string) {
	for _, name := range names {
		for _, n := range []string{name, media.ThumbnailName(name)} {
			if err := s.blobs.Delete(r.Context(), n); err != nil && !errors.Is(err, media.ErrNotFound) {
				s.log.Warnw("removing media", "name", n, "error", err)
			}
		}
	}
}

func values(m map[entry.MediaKind]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
