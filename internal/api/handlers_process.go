package api

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/coursealign/internal/parser"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// handleProcess turns an uploaded slide deck into a study guide DOCX.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	if format := r.FormValue("output_format"); format != "" && format != "docx" {
		jsonError(w, "only 'docx' output format is currently supported", http.StatusBadRequest)
		return
	}

	code := r.FormValue("course_code")
	if code == "" {
		jsonError(w, "course_code is required", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.Courses.Get(code); err != nil {
		writeError(w, s.log, err)
		return
	}
	if !s.svc.Indexes.Exists(code) {
		jsonError(w, fmt.Sprintf("course %s has not been indexed yet; index the textbook first", code), http.StatusNotFound)
		return
	}

	file, header, err := r.FormFile("slides_file")
	if err != nil {
		jsonError(w, "slides_file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSlideExtension(filename) {
		jsonError(w, "slides file must be a PPTX or PDF file", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("slides_filename"))
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	data, err := readUpload(file, s.cfg.MaxUploadBytes)
	if err != nil {
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	log := s.log.With("course_code", code, "slides", filename)
	deck, err := parser.ExtractDeck(bytes.NewReader(data), filename, parser.Options{FallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		writeError(w, log, err)
		return
	}
	if len(deck.Slides) == 0 {
		jsonError(w, "no slides found in "+filename, http.StatusBadRequest)
		return
	}

	out, err := s.svc.Guides.Generate(r.Context(), code, name, deck, s.cfg.DefaultTopK)
	if err != nil {
		writeError(w, log, err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": "Study Context Guide - " + sanitizeFilename(name) + ".docx",
	})
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
