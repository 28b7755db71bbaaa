package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrUnknownCourse means a course code is not configured in courses.json.
var ErrUnknownCourse = errors.New("course not configured")

// Course is one entry of courses.json.
type Course struct {
	Code      string `json:"-"`
	Name      string `json:"name"`
	IndexPath string `json:"index_path"`
}

// Courses maps course codes to their configuration. It implements the
// index store's directory resolver.
type Courses struct {
	byCode map[string]Course
}

// LoadCourses reads a courses.json object keyed by course code:
//
//	{"BIO101": {"name": "Intro Biology", "index_path": "indexes/BIO101"}}
//
// A relative index_path is resolved against the file's directory. A missing
// index_path defaults to indexes/<code>.
func LoadCourses(path string) (*Courses, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read courses file: %w", err)
	}
	var raw map[string]Course
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse courses file %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("courses file %s defines no courses", path)
	}

	base := filepath.Dir(path)
	byCode := make(map[string]Course, len(raw))
	seen := make(map[string]string, len(raw))
	for code, c := range raw {
		if code == "" {
			return nil, fmt.Errorf("courses file %s: empty course code", path)
		}
		c.Code = code
		if c.Name == "" {
			c.Name = code
		}
		if c.IndexPath == "" {
			c.IndexPath = filepath.Join("indexes", code)
		}
		if !filepath.IsAbs(c.IndexPath) {
			c.IndexPath = filepath.Join(base, c.IndexPath)
		}
		c.IndexPath = filepath.Clean(c.IndexPath)
		if other, dup := seen[c.IndexPath]; dup {
			return nil, fmt.Errorf("courses %s and %s share index_path %s", other, code, c.IndexPath)
		}
		seen[c.IndexPath] = code
		byCode[code] = c
	}
	return &Courses{byCode: byCode}, nil
}

// Get returns the course or ErrUnknownCourse.
func (c *Courses) Get(code string) (Course, error) {
	course, ok := c.byCode[code]
	if !ok {
		return Course{}, fmt.Errorf("%w: %s", ErrUnknownCourse, code)
	}
	return course, nil
}

func (c *Courses) IndexDir(code string) (string, error) {
	course, err := c.Get(code)
	if err != nil {
		return "", err
	}
	return course.IndexPath, nil
}

// List returns all courses sorted by code.
func (c *Courses) List() []Course {
	out := make([]Course, 0, len(c.byCode))
	for _, course := range c.byCode {
		out = append(out, course)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (c *Courses) Len() int { return len(c.byCode) }
