package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dgallion1/coursealign/internal/document"
)

type retrieveRequest struct {
	CourseCode string `json:"course_code"`
	Query      string `json:"query"`
	TopK       *int   `json:"top_k"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.CourseCode == "" {
		jsonError(w, "course_code is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.Courses.Get(req.CourseCode); err != nil {
		writeError(w, s.log, err)
		return
	}

	topK := s.cfg.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	chunks, err := s.svc.Retriever.Retrieve(r.Context(), req.CourseCode, req.Query, topK)
	if err != nil {
		writeError(w, s.log.With("course_code", req.CourseCode), err)
		return
	}
	if chunks == nil {
		chunks = []document.RetrievedChunk{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"course_code": req.CourseCode,
		"chunks":      chunks,
	})
}
