package indexstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/coursealign/internal/document"
	"github.com/dgallion1/coursealign/internal/vectorindex"
)

var errUnknownCourse = errors.New("unknown course")

type dirs map[string]string

func (d dirs) IndexDir(course string) (string, error) {
	dir, ok := d[course]
	if !ok {
		return "", errUnknownCourse
	}
	return dir, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "bio101")
	return New(dirs{"BIO101": dir}, testLogger()), dir
}

// fixture builds n chunks tagged with gen and vectors {gen, i}.
func fixture(t *testing.T, gen, n int) (vectorindex.Index, []document.Chunk) {
	t.Helper()
	vecs := make([][]float32, n)
	chunks := make([]document.Chunk, n)
	for i := range n {
		vecs[i] = []float32{float32(gen), float32(i)}
		chunks[i] = document.Chunk{
			ChunkID:    i,
			Text:       fmt.Sprintf("gen-%d chunk-%d", gen, i),
			PageStart:  i + 1,
			PageEnd:    i + 2,
			WordCount:  2,
			CourseCode: "BIO101",
		}
	}
	idx, err := vectorindex.Build(vectorindex.KindFlat, vecs)
	require.NoError(t, err)
	return idx, chunks
}

func versionDirs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	idx, chunks := fixture(t, 1, 5)

	version, err := s.Save(ctx, "BIO101", idx, chunks)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(version, "v-"))

	got, err := s.Version("BIO101")
	require.NoError(t, err)
	assert.Equal(t, version, got)
	assert.True(t, s.Exists("BIO101"))

	ci, err := s.Load(ctx, "BIO101")
	require.NoError(t, err)
	assert.Equal(t, "BIO101", ci.Course)
	assert.Equal(t, version, ci.Version)
	assert.Equal(t, chunks, ci.Chunks)
	assert.Equal(t, 5, ci.Index.Len())

	hits, err := ci.Index.Search([]float32{1, 3}, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, hits[0].Ordinal)
	assert.Equal(t, "gen-1 chunk-3", ci.Chunks[hits[0].Ordinal].Text)
}

func TestStore_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "BIO101")
	assert.ErrorIs(t, err, ErrIndexNotFound)
	var nf *IndexNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "BIO101", nf.Course)

	_, err = s.Load(ctx, "CHEM200")
	assert.ErrorIs(t, err, ErrIndexNotFound)
	assert.ErrorIs(t, err, errUnknownCourse)

	assert.False(t, s.Exists("BIO101"))
	assert.False(t, s.Exists("CHEM200"))

	_, err = s.Version("CHEM200")
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestStore_SaveRejectsMisalignedInput(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()
	idx, chunks := fixture(t, 1, 3)

	_, err := s.Save(ctx, "BIO101", idx, chunks[:2])
	var corrupt *CorruptIndexError
	assert.ErrorAs(t, err, &corrupt)

	swapped := append([]document.Chunk(nil), chunks...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	_, err = s.Save(ctx, "BIO101", idx, swapped)
	assert.ErrorAs(t, err, &corrupt)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestStore_SaveReplacesAndPrunes(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	var versions []string
	for gen := 1; gen <= 4; gen++ {
		idx, chunks := fixture(t, gen, gen+1)
		v, err := s.Save(ctx, "BIO101", idx, chunks)
		require.NoError(t, err)
		versions = append(versions, v)
	}

	ci, err := s.Load(ctx, "BIO101")
	require.NoError(t, err)
	assert.Equal(t, versions[3], ci.Version)
	assert.Len(t, ci.Chunks, 5)
	assert.Equal(t, "gen-4 chunk-0", ci.Chunks[0].Text)

	// Only the current and previous versions survive.
	assert.ElementsMatch(t, versions[2:], versionDirs(t, dir))
}

func TestStore_VersionsIncreaseWhenClockStalls(t *testing.T) {
	s, _ := newTestStore(t)
	fixed := time.Unix(1700000000, 0)
	s.now = func() time.Time { return fixed }

	idx, chunks := fixture(t, 1, 2)
	v1, err := s.Save(context.Background(), "BIO101", idx, chunks)
	require.NoError(t, err)
	v2, err := s.Save(context.Background(), "BIO101", idx, chunks)
	require.NoError(t, err)
	assert.Less(t, v1, v2)
}

func TestStore_CancelledSaveLeavesPreviousVersion(t *testing.T) {
	s, dir := newTestStore(t)
	idx, chunks := fixture(t, 1, 2)
	v1, err := s.Save(context.Background(), "BIO101", idx, chunks)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idx2, chunks2 := fixture(t, 2, 3)
	_, err = s.Save(ctx, "BIO101", idx2, chunks2)
	assert.ErrorIs(t, err, context.Canceled)

	current, err := s.Version("BIO101")
	require.NoError(t, err)
	assert.Equal(t, v1, current)
	assert.Equal(t, []string{v1}, versionDirs(t, dir))
}

func TestStore_LoadDetectsCorruption(t *testing.T) {
	ctx := context.Background()

	t.Run("truncated chunks", func(t *testing.T) {
		s, dir := newTestStore(t)
		idx, chunks := fixture(t, 1, 4)
		v, err := s.Save(ctx, "BIO101", idx, chunks)
		require.NoError(t, err)

		path := filepath.Join(dir, v, chunksFile)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.SplitAfter(string(data), "\n")
		require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines[:2], "")), 0o644))

		_, err = s.Load(ctx, "BIO101")
		var corrupt *CorruptIndexError
		require.ErrorAs(t, err, &corrupt)
		assert.Equal(t, v, corrupt.Version)
		assert.True(t, s.Exists("BIO101"))
	})

	t.Run("garbled index", func(t *testing.T) {
		s, dir := newTestStore(t)
		idx, chunks := fixture(t, 1, 4)
		v, err := s.Save(ctx, "BIO101", idx, chunks)
		require.NoError(t, err)

		path := filepath.Join(dir, v, indexFile)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		data[len(data)-6] ^= 0xff
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err = s.Load(ctx, "BIO101")
		var corrupt *CorruptIndexError
		require.ErrorAs(t, err, &corrupt)
		assert.ErrorIs(t, err, vectorindex.ErrCorrupt)
	})

	t.Run("reordered chunk ids", func(t *testing.T) {
		s, dir := newTestStore(t)
		idx, chunks := fixture(t, 1, 3)
		v, err := s.Save(ctx, "BIO101", idx, chunks)
		require.NoError(t, err)

		path := filepath.Join(dir, v, chunksFile)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.SplitAfter(string(data), "\n")
		lines[0], lines[1] = lines[1], lines[0]
		require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "")), 0o644))

		_, err = s.Load(ctx, "BIO101")
		var corrupt *CorruptIndexError
		assert.ErrorAs(t, err, &corrupt)
	})

	t.Run("missing index file", func(t *testing.T) {
		s, dir := newTestStore(t)
		idx, chunks := fixture(t, 1, 3)
		v, err := s.Save(ctx, "BIO101", idx, chunks)
		require.NoError(t, err)
		require.NoError(t, os.Remove(filepath.Join(dir, v, indexFile)))

		_, err = s.Load(ctx, "BIO101")
		assert.ErrorIs(t, err, ErrIndexNotFound)
		assert.False(t, s.Exists("BIO101"))
	})
}

func TestStore_ConcurrentLoadsNeverMixVersions(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	idx, chunks := fixture(t, 1, 3)
	_, err := s.Save(ctx, "BIO101", idx, chunks)
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for gen := 2; gen <= 15; gen++ {
			idx, chunks := fixture(t, gen, 2+gen%4)
			if _, err := s.Save(ctx, "BIO101", idx, chunks); err != nil {
				t.Errorf("save gen %d: %v", gen, err)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				ci, err := s.Load(ctx, "BIO101")
				if err != nil {
					t.Errorf("load: %v", err)
					return
				}
				var gen int
				fmt.Sscanf(ci.Chunks[0].Text, "gen-%d", &gen)
				hits, err := ci.Index.Search([]float32{float32(gen), 0}, 1)
				if err != nil || hits[0].Distance != 0 {
					t.Errorf("version %s: chunks from gen %d do not match vectors (%v, %v)", ci.Version, gen, hits, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestStore_SavesForOneCourseAreSerialized(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for gen := 1; gen <= 6; gen++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, chunks := fixture(t, gen, gen)
			_, err := s.Save(ctx, "BIO101", idx, chunks)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ci, err := s.Load(ctx, "BIO101")
	require.NoError(t, err)
	assert.Equal(t, ci.Index.Len(), len(ci.Chunks))
	assert.LessOrEqual(t, len(versionDirs(t, dir)), 2)
}
