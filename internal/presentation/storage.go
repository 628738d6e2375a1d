package presentation

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

// Storage reads the dataset the browse API serves
type Storage interface {
	Pages() ([]dataset.Page, error)
	Pairs() ([]dataset.TrainingPair, error)
	Reviewed() (accepted, rejected []dataset.ReviewedPair, err error)
}

// FileStorage reads dataset files from disk, reloading a file only when
// its modification time changes. Missing files read as empty.
type FileStorage struct {
	pagesPath string
	pairsPath string
	reviewDir string

	mu    sync.Mutex
	cache map[string]cachedFile
}

type cachedFile struct {
	modTime time.Time
	value   interface{}
}

// NewFileStorage creates storage over the cleaned pages file, the pairs
// file and the review directory
func NewFileStorage(pagesPath, pairsPath, reviewDir string) *FileStorage {
	return &FileStorage{
		pagesPath: pagesPath,
		pairsPath: pairsPath,
		reviewDir: reviewDir,
		cache:     make(map[string]cachedFile),
	}
}

// Pages implements Storage
func (s *FileStorage) Pages() ([]dataset.Page, error) {
	v, err := s.load(s.pagesPath, func(path string) (interface{}, error) {
		return dataset.LoadPages(path)
	})
	if err != nil || v == nil {
		return nil, err
	}
	return v.([]dataset.Page), nil
}

// Pairs implements Storage
func (s *FileStorage) Pairs() ([]dataset.TrainingPair, error) {
	v, err := s.load(s.pairsPath, func(path string) (interface{}, error) {
		return dataset.LoadPairs(path)
	})
	if err != nil || v == nil {
		return nil, err
	}
	return v.([]dataset.TrainingPair), nil
}

// Reviewed implements Storage
func (s *FileStorage) Reviewed() ([]dataset.ReviewedPair, []dataset.ReviewedPair, error) {
	read := func(path string) (interface{}, error) {
		return dataset.LoadReviewed(path)
	}
	accepted, err := s.load(filepath.Join(s.reviewDir, dataset.AcceptedFile), read)
	if err != nil {
		return nil, nil, err
	}
	rejected, err := s.load(filepath.Join(s.reviewDir, dataset.RejectedFile), read)
	if err != nil {
		return nil, nil, err
	}

	var a, r []dataset.ReviewedPair
	if accepted != nil {
		a = accepted.([]dataset.ReviewedPair)
	}
	if rejected != nil {
		r = rejected.([]dataset.ReviewedPair)
	}
	return a, r, nil
}

func (s *FileStorage) load(path string, read func(string) (interface{}, error)) (interface{}, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[path]; ok && c.modTime.Equal(info.ModTime()) {
		return c.value, nil
	}

	v, err := read(path)
	if err != nil {
		return nil, err
	}
	s.cache[path] = cachedFile{modTime: info.ModTime(), value: v}
	return v, nil
}
