// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Route handlers and wire formats

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/importer"
	"github.com/sony-level/wsimport/internal/provenance"
)

type branchesRequest struct {
	URL string `json:"url"`
}

type branchesResponse struct {
	Branches []string `json:"branches"`
	URL      string   `json:"url"`
}

type cloneRequest struct {
	URL     string `json:"url"`
	Branch  string `json:"branch"`
	Shallow *bool  `json:"shallow"`
}

// EntryJSON renders a SourceEntry. Unknown url and branch are null.
type EntryJSON struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Branch     *string `json:"branch"`
	URL        *string `json:"url"`
	SizeHuman  string  `json:"size_human,omitempty"`
	Path       string  `json:"path"`
	Provenance string  `json:"provenance"`
}

// UploadJSON renders an ImportResult
type UploadJSON struct {
	Success   bool   `json:"success"`
	RoutedTo  string `json:"routed_to"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
	HadVCS    bool   `json:"had_vcs,omitempty"`
}

// ContextFileJSON renders a ContextFile
type ContextFileJSON struct {
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
}

type checkJSON struct {
	Ready   bool              `json:"ready"`
	Missing []string          `json:"missing"`
	Found   map[string]string `json:"found"`
}

// NewContextFileJSON converts a context file to its wire form
func NewContextFileJSON(f importer.ContextFile) ContextFileJSON {
	return ContextFileJSON{Filename: f.Name, Path: f.Path, Size: f.Size, SizeHuman: f.SizeHuman}
}

type errorJSON struct {
	Detail string `json:"detail"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewEntryJSON converts an entry to its wire form
func NewEntryJSON(e importer.SourceEntry) EntryJSON {
	return EntryJSON{
		Name:       e.Name,
		Type:       e.Kind,
		Branch:     nullable(e.Branch),
		URL:        nullable(e.URL),
		SizeHuman:  e.SizeHuman,
		Path:       e.Path,
		Provenance: provenance.Source(e.Provenance),
	}
}

// NewUploadJSON converts an upload result to its wire form
func NewUploadJSON(r *importer.ImportResult) UploadJSON {
	return UploadJSON{
		Success:   true,
		RoutedTo:  r.RoutedTo,
		Name:      r.Name,
		Type:      r.Kind,
		Path:      r.Path,
		Size:      r.Size,
		SizeHuman: r.SizeHuman,
		HadVCS:    r.HadVCS,
	}
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	var req branchesRequest
	if !s.decode(w, r, &req) {
		return
	}
	branches, err := s.engine.DetectBranches(r.Context(), r.PathValue("id"), req.URL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, branchesResponse{Branches: branches, URL: req.URL})
}

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if !s.decode(w, r, &req) {
		return
	}
	shallow := true
	if req.Shallow != nil {
		shallow = *req.Shallow
	}

	entry, err := s.engine.Clone(r.Context(), r.PathValue("id"), importer.CloneRequest{
		URL:     req.URL,
		Branch:  req.Branch,
		Shallow: shallow,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewEntryJSON(*entry))
}

func (s *Server) handleUploadArchive(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	res, err := s.engine.UploadArchive(r.Context(), r.PathValue("id"), filename, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewUploadJSON(res))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.List(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]EntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewEntryJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Delete(r.Context(), r.PathValue("id"), r.PathValue("name")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadContext(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	res, err := s.engine.UploadContext(r.Context(), r.PathValue("id"), filename, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewUploadJSON(res))
}

func (s *Server) handleListContext(w http.ResponseWriter, r *http.Request) {
	files, err := s.engine.ListContext(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]ContextFileJSON, 0, len(files))
	for _, f := range files {
		out = append(out, NewContextFileJSON(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteContext(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteContext(r.Context(), r.PathValue("id"), r.PathValue("filename")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Check(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := checkJSON{
		Ready:   len(s.engine.Checker().MissingRequired(summary)) == 0,
		Missing: summary.MissingTools,
		Found:   map[string]string{},
	}
	for _, res := range summary.Results {
		if res.Found {
			out.Found[res.Name] = res.Path
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// decode reads a small JSON body. It writes the error response itself.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Detail: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// readUpload extracts the multipart "file" field
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	limit := s.maxUpload + multipartOverhead
	if r.ContentLength > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorJSON{Detail: "upload exceeds the size limit"})
		return "", nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorJSON{Detail: "upload exceeds the size limit"})
			return "", nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorJSON{Detail: "multipart field 'file' is required"})
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Detail: "failed to read upload: " + err.Error()})
		return "", nil, false
	}
	return hdr.Filename, data, true
}

// statusFor maps error kinds onto HTTP statuses
func statusFor(kind importer.Kind) int {
	switch kind {
	case importer.InvalidInput:
		return http.StatusBadRequest
	case importer.Conflict:
		return http.StatusConflict
	case importer.NotFound:
		return http.StatusNotFound
	case importer.Timeout:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := importer.KindOf(err)
	status := statusFor(kind)

	log := s.logger.Info
	if status >= http.StatusInternalServerError {
		log = s.logger.Error
	}
	log("operation failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)
	writeJSON(w, status, errorJSON{Detail: importer.Detail(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
