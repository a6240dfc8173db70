// Package structure loads and caches the parsed content trees this engine
// reads. Trees are produced by the upstream authoring pipeline as JSON
// artifacts, already access-filtered and annotated with linearity flags and
// slot indices; this package never computes access levels.
package structure

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lessonforge/progress-engine/internal/domain/shared"
)

// Source produces raw structure artifacts. Implementations wrap wherever
// the content pipeline publishes to (filesystem, object store, ...).
type Source interface {
	// LoadSubject returns the raw JSON artifact for a subject.
	// A missing subject is the typed structure-not-found error.
	LoadSubject(ctx context.Context, subjectID string) ([]byte, error)

	// Subjects lists the subject ids the source currently carries.
	Subjects(ctx context.Context) ([]string, error)
}

// FileSource reads structure artifacts from a directory of
// <subjectID>.json files. This matches the pipeline's publish layout.
type FileSource struct {
	dir string
}

// NewFileSource creates a FileSource over the given directory.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// LoadSubject returns the raw artifact for a subject.
func (s *FileSource) LoadSubject(_ context.Context, subjectID string) ([]byte, error) {
	if subjectID == "" || strings.ContainsAny(subjectID, "/\\") {
		return nil, shared.ErrStructureNotFound
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, subjectID+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, shared.ErrStructureNotFound
		}
		return nil, shared.WrapError("content", "LoadStructure", shared.ErrContentIntegrity,
			"failed to read structure artifact", err)
	}
	return raw, nil
}

// Subjects lists the subject ids present in the artifact directory.
func (s *FileSource) Subjects(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, shared.WrapError("content", "ListSubjects", shared.ErrContentIntegrity,
			"failed to list structure artifacts", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	return ids, nil
}
