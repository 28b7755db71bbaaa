// Package indexstore persists one vector index and its chunk list per course.
//
// Each course directory holds immutable version directories and a CURRENT
// file naming the active one:
//
//	<index_path>/CURRENT
//	<index_path>/v-<unixnano>/index.vec
//	<index_path>/v-<unixnano>/chunks.jsonl
//
// A save writes a complete new version and then renames CURRENT into place,
// so a concurrent Load sees either the old pair or the new pair.
package indexstore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/coursealign/internal/document"
	"github.com/dgallion1/coursealign/internal/vectorindex"
)

const (
	currentFile   = "CURRENT"
	indexFile     = "index.vec"
	chunksFile    = "chunks.jsonl"
	versionPrefix = "v-"
	tmpPrefix     = ".tmp-"
)

// DirResolver maps a course code to its index directory.
type DirResolver interface {
	IndexDir(course string) (string, error)
}

// CourseIndex is a loaded index with its chunks. Index ordinal i is Chunks[i].
type CourseIndex struct {
	Course  string
	Version string
	Index   vectorindex.Index
	Chunks  []document.Chunk
}

// Store reads and writes course indexes on the local filesystem.
type Store struct {
	resolver DirResolver
	log      *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(resolver DirResolver, log *slog.Logger) *Store {
	return &Store{
		resolver: resolver,
		log:      log,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Store) courseLock(course string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[course]
	if !ok {
		l = &sync.Mutex{}
		s.locks[course] = l
	}
	return l
}

// Save writes idx and chunks as a new version of the course index and makes
// it current. It returns the new version name.
func (s *Store) Save(ctx context.Context, course string, idx vectorindex.Index, chunks []document.Chunk) (string, error) {
	if err := checkAlignment(idx.Len(), chunks); err != nil {
		return "", &CorruptIndexError{Course: course, Err: err}
	}
	dir, err := s.resolver.IndexDir(course)
	if err != nil {
		return "", fmt.Errorf("resolve index dir: %w", err)
	}

	lock := s.courseLock(course)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.MkdirTemp(dir, tmpPrefix)
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	published := false
	defer func() {
		if !published {
			os.RemoveAll(tmp)
		}
	}()

	if err := writeFileSync(filepath.Join(tmp, indexFile), func(w io.Writer) error {
		return vectorindex.Write(w, idx)
	}); err != nil {
		return "", fmt.Errorf("write index: %w", err)
	}
	if err := writeFileSync(filepath.Join(tmp, chunksFile), func(w io.Writer) error {
		return writeChunks(w, chunks)
	}); err != nil {
		return "", fmt.Errorf("write chunks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	previous, _ := readCurrent(dir)
	version := s.nextVersion(previous)
	versionDir := filepath.Join(dir, version)
	if err := os.Rename(tmp, versionDir); err != nil {
		return "", fmt.Errorf("publish version: %w", err)
	}
	published = true

	if err := ctx.Err(); err != nil {
		os.RemoveAll(versionDir)
		return "", err
	}
	if err := writeCurrent(dir, version); err != nil {
		os.RemoveAll(versionDir)
		return "", fmt.Errorf("swap current version: %w", err)
	}

	s.prune(dir, version, previous)
	s.log.Info("index saved", "course_code", course, "version", version, "chunks", len(chunks), "dim", idx.Dim())
	return version, nil
}

// Load reads the current version of the course index. If a concurrent save
// replaces the version mid-read, the read starts over on the new version.
func (s *Store) Load(ctx context.Context, course string) (*CourseIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.resolver.IndexDir(course)
	if err != nil {
		return nil, &IndexNotFoundError{Course: course, Err: err}
	}

	var lastErr error
	for range maxLoadAttempts {
		version, err := readCurrent(dir)
		if err != nil {
			return nil, &IndexNotFoundError{Course: course, Err: err}
		}
		ci, err := s.loadVersion(course, dir, version)
		if err == nil {
			return ci, nil
		}
		lastErr = err
		if now, cerr := readCurrent(dir); cerr != nil || now == version {
			break
		}
		s.log.Debug("index version changed during load, retrying", "course_code", course, "version", version)
	}
	return nil, lastErr
}

const maxLoadAttempts = 3

func (s *Store) loadVersion(course, dir, version string) (*CourseIndex, error) {
	versionDir := filepath.Join(dir, version)

	f, err := os.Open(filepath.Join(versionDir, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &IndexNotFoundError{Course: course, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	idx, err := vectorindex.Read(f)
	f.Close()
	if err != nil {
		if errors.Is(err, vectorindex.ErrCorrupt) {
			return nil, &CorruptIndexError{Course: course, Version: version, Err: err}
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	chunks, err := readChunks(filepath.Join(versionDir, chunksFile))
	if err != nil {
		return nil, &CorruptIndexError{Course: course, Version: version, Err: err}
	}
	if err := checkAlignment(idx.Len(), chunks); err != nil {
		return nil, &CorruptIndexError{Course: course, Version: version, Err: err}
	}

	return &CourseIndex{Course: course, Version: version, Index: idx, Chunks: chunks}, nil
}

// Exists reports whether the course has a current index file. It never fails;
// unconfigured courses report false.
func (s *Store) Exists(course string) bool {
	dir, err := s.resolver.IndexDir(course)
	if err != nil {
		return false
	}
	version, err := readCurrent(dir)
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, version, indexFile))
	return err == nil && info.Mode().IsRegular()
}

// Version returns the name of the course's current index version.
func (s *Store) Version(course string) (string, error) {
	dir, err := s.resolver.IndexDir(course)
	if err != nil {
		return "", &IndexNotFoundError{Course: course, Err: err}
	}
	version, err := readCurrent(dir)
	if err != nil {
		return "", &IndexNotFoundError{Course: course, Err: err}
	}
	return version, nil
}

// nextVersion names versions by save time, bumped past the previous name so
// versions stay ordered even if the clock steps back.
func (s *Store) nextVersion(previous string) string {
	n := s.now().UnixNano()
	if prev, ok := parseVersion(previous); ok && n <= prev {
		n = prev + 1
	}
	return fmt.Sprintf("%s%020d", versionPrefix, n)
}

func parseVersion(name string) (int64, bool) {
	if !strings.HasPrefix(name, versionPrefix) {
		return 0, false
	}
	var n int64
	if _, err := fmt.Sscanf(strings.TrimPrefix(name, versionPrefix), "%d", &n); err != nil {
		return 0, false
	}
	return n, true
}

// prune removes versions other than the current and previous one, plus any
// staging directories left by interrupted saves. Failures are logged only.
func (s *Store) prune(dir, current, previous string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Warn("list index versions", "dir", dir, "error", err)
		return
	}
	var stale []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || name == current || name == previous {
			continue
		}
		if strings.HasPrefix(name, versionPrefix) || strings.HasPrefix(name, tmpPrefix) {
			stale = append(stale, name)
		}
	}
	sort.Strings(stale)
	for _, name := range stale {
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			s.log.Warn("remove stale index version", "dir", dir, "version", name, "error", err)
		}
	}
}

func checkAlignment(n int, chunks []document.Chunk) error {
	if len(chunks) != n {
		return fmt.Errorf("index holds %d vectors but there are %d chunks", n, len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkID != i {
			return fmt.Errorf("chunk at position %d has chunk_id %d", i, c.ChunkID)
		}
	}
	return nil
}

func readCurrent(dir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, currentFile))
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(string(b))
	if !strings.HasPrefix(version, versionPrefix) || strings.ContainsAny(version, `/\`) {
		return "", fmt.Errorf("invalid %s contents %q", currentFile, version)
	}
	return version, nil
}

// writeCurrent replaces CURRENT atomically via rename.
func writeCurrent(dir, version string) error {
	tmp := filepath.Join(dir, currentFile+".tmp")
	if err := writeFileSync(tmp, func(w io.Writer) error {
		_, err := io.WriteString(w, version+"\n")
		return err
	}); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(dir, currentFile)); err != nil {
		os.Remove(tmp)
		return err
	}
	syncDir(dir)
	return nil
}

func writeFileSync(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// syncDir flushes directory entries so a rename survives a crash. Not every
// platform supports it; errors are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}

func writeChunks(w io.Writer, chunks []document.Chunk) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func readChunks(path string) ([]document.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chunks []document.Chunk
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var c document.Chunk
		err := dec.Decode(&c)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode chunk %d: %w", len(chunks), err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
