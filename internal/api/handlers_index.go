package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/dgallion1/coursealign/internal/parser"
	"github.com/dgallion1/coursealign/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleIndexTextbook(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	code := r.FormValue("course_code")
	if code == "" {
		jsonError(w, "course_code is required", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.Courses.Get(code); err != nil {
		writeError(w, s.log, err)
		return
	}

	file, header, err := r.FormFile("textbook_pdf")
	if err != nil {
		jsonError(w, "textbook_pdf is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsTextbookExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported textbook type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := readUpload(file, s.cfg.MaxUploadBytes)
	if err != nil {
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	job := pipeline.NewJob(code, filename, data)
	if err := s.svc.Jobs.Submit(job); err != nil {
		writeError(w, s.log, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.ID,
		"course_code": job.CourseCode,
		"status":      pipeline.StatusQueued,
		"poll_url":    fmt.Sprintf("/index-textbook/%s/status", job.ID),
	})
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.svc.Jobs.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// readUpload reads at most limit bytes and fails if the file is larger.
func readUpload(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds max size (%d bytes)", limit)
	}
	return data, nil
}
