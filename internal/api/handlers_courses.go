package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/coursealign/internal/catalog"
)

type courseInfo struct {
	CourseCode string       `json:"course_code"`
	Name       string       `json:"name"`
	Indexed    bool         `json:"indexed"`
	LastRun    *catalog.Run `json:"last_run,omitempty"`
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	courses := s.svc.Courses.List()
	out := make([]courseInfo, 0, len(courses))
	for _, c := range courses {
		info := courseInfo{
			CourseCode: c.Code,
			Name:       c.Name,
			Indexed:    s.svc.Indexes.Exists(c.Code),
		}
		if s.svc.Runs != nil {
			run, err := s.svc.Runs.LatestRun(r.Context(), c.Code)
			switch {
			case err == nil:
				info.LastRun = &run
			case !errors.Is(err, catalog.ErrNoRuns):
				s.log.Warn("failed to read last index run", "course_code", c.Code, "error", err)
			}
		}
		out = append(out, info)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"courses": out,
		"total":   len(out),
	})
}
