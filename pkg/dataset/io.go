package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default file locations, relative to the working directory
const (
	RawPagesFile     = "data/raw/ff6_wiki_raw.json"
	CleanedPagesFile = "data/cleaned/ff6_wiki_cleaned.json"
	TrainingFile     = "data/training/ff6_training_pairs.jsonl"
	ReviewDir        = "data/review"
	AcceptedFile     = "accepted.json"
	RejectedFile     = "rejected.json"
)

// LoadPages reads a JSON array of pages and validates each one
func LoadPages(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}

	var pages []Page
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("failed to decode pages from %s: %w", path, err)
	}
	for i := range pages {
		if err := pages[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid page %d in %s: %w", i, path, err)
		}
	}
	return pages, nil
}

// SavePages writes pages as an indented JSON array, creating parent directories
func SavePages(path string, pages []Page) error {
	if pages == nil {
		pages = []Page{}
	}
	return writeJSON(path, pages)
}

// LoadPairs reads a JSONL file of training pairs. Blank lines are ignored.
func LoadPairs(path string) ([]TrainingPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pairs: %w", err)
	}
	defer f.Close()

	var pairs []TrainingPair
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var pair TrainingPair
		if err := json.Unmarshal([]byte(line), &pair); err != nil {
			return nil, fmt.Errorf("%s:%d: invalid pair: %w", path, lineNo, err)
		}
		pairs = append(pairs, pair)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pairs: %w", err)
	}
	return pairs, nil
}

// SavePairs overwrites path with one JSON object per line
func SavePairs(path string, pairs []TrainingPair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create pairs file: %w", err)
	}
	if err := writePairs(f, pairs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// AppendPairs appends pairs to an existing JSONL file, creating it if needed
func AppendPairs(path string, pairs []TrainingPair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open pairs file: %w", err)
	}
	if err := writePairs(f, pairs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveReviewed writes reviewed pairs as an indented JSON array
func SaveReviewed(path string, pairs []ReviewedPair) error {
	if pairs == nil {
		pairs = []ReviewedPair{}
	}
	return writeJSON(path, pairs)
}

// SaveAccepted writes the plain pairs of an accepted bucket, without the
// reject_reason field
func SaveAccepted(path string, pairs []ReviewedPair) error {
	plain := make([]TrainingPair, len(pairs))
	for i, p := range pairs {
		plain[i] = p.TrainingPair
	}
	return writeJSON(path, plain)
}

// LoadReviewed reads a review bucket written by SaveReviewed
func LoadReviewed(path string) ([]ReviewedPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read review file: %w", err)
	}
	var pairs []ReviewedPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("failed to decode review file %s: %w", path, err)
	}
	return pairs, nil
}

func writePairs(f *os.File, pairs []TrainingPair) error {
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, pair := range pairs {
		if err := enc.Encode(pair); err != nil {
			return fmt.Errorf("failed to encode pair: %w", err)
		}
	}
	return w.Flush()
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
