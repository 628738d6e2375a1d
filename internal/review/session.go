package review

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

const (
	// DefaultSampleSize is the number of pairs drawn for one review session
	DefaultSampleSize = 200
	// DefaultTruncateLength is the longest answer shown in full
	DefaultTruncateLength = 500
	truncatedMarker       = "... [truncated]"
)

// Config configures a review session
type Config struct {
	SampleSize     int    `json:"sample_size"`
	TruncateLength int    `json:"truncate_length"`
	OutputDir      string `json:"output_dir"`
	Seed           int64  `json:"seed"` // 0 seeds from the clock
	Plain          bool   `json:"plain"`
}

// DefaultConfig returns the standard review settings
func DefaultConfig() *Config {
	return &Config{
		SampleSize:     DefaultSampleSize,
		TruncateLength: DefaultTruncateLength,
		OutputDir:      dataset.ReviewDir,
	}
}

// ErrInvalidChoice is returned for an unknown review command
var ErrInvalidChoice = errors.New("invalid choice, try again")

// ErrSessionDone is returned when a decision is made after the last pair
var ErrSessionDone = errors.New("review session is finished")

// Command is a reviewer decision
type Command string

const (
	CommandAccept Command = "a"
	CommandReject Command = "r"
	CommandEdit   Command = "e"
	CommandSkip   Command = "s"
	CommandQuit   Command = "q"
)

// ParseCommand maps reviewer input to a command, ignoring case and spaces
func ParseCommand(input string) (Command, error) {
	switch c := Command(strings.ToLower(strings.TrimSpace(input))); c {
	case CommandAccept, CommandReject, CommandEdit, CommandSkip, CommandQuit:
		return c, nil
	default:
		return "", ErrInvalidChoice
	}
}

// Sample returns min(n, len(pairs)) distinct pairs in random order
func Sample(pairs []dataset.TrainingPair, n int, rng *rand.Rand) []dataset.TrainingPair {
	if n > len(pairs) {
		n = len(pairs)
	}
	out := make([]dataset.TrainingPair, n)
	for i, idx := range rng.Perm(len(pairs))[:n] {
		out[i] = pairs[idx]
	}
	return out
}

// Truncate shortens text longer than limit runes and marks the cut
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "\n" + truncatedMarker
}

// Summary reports the outcome of a session
type Summary struct {
	Accepted         int      `json:"accepted"`
	Edited           int      `json:"edited"`
	Rejected         int      `json:"rejected"`
	Skipped          int      `json:"skipped"`
	Reviewed         int      `json:"reviewed"`
	Total            int      `json:"total"`
	AcceptRate       float64  `json:"accept_rate"`
	HasAcceptRate    bool     `json:"has_accept_rate"`
	RejectionReasons []string `json:"rejection_reasons,omitempty"`
}

// Session walks a sample of pairs and records one decision per pair
type Session struct {
	sample   []dataset.TrainingPair
	pos      int
	quit     bool
	accepted []dataset.TrainingPair
	edited   []dataset.TrainingPair
	rejected []dataset.ReviewedPair
	skipped  int
	truncate int
}

// NewSession samples up to sampleSize pairs for review
func NewSession(pairs []dataset.TrainingPair, sampleSize int, rng *rand.Rand) *Session {
	return &Session{
		sample:   Sample(pairs, sampleSize, rng),
		truncate: DefaultTruncateLength,
	}
}

// NewSessionFromConfig builds a session from review settings. A nil rng is
// seeded from config.Seed, or the clock when that is 0.
func NewSessionFromConfig(pairs []dataset.TrainingPair, config *Config, rng *rand.Rand) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	if rng == nil {
		seed := config.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	s := NewSession(pairs, config.SampleSize, rng)
	if config.TruncateLength > 0 {
		s.truncate = config.TruncateLength
	}
	return s
}

// Preview returns text as it should be displayed to the reviewer
func (s *Session) Preview(text string) string {
	return Truncate(text, s.truncate)
}

// Done reports whether the session has no more pairs to show
func (s *Session) Done() bool {
	return s.quit || s.pos >= len(s.sample)
}

// Current returns the pair under review
func (s *Session) Current() (dataset.TrainingPair, bool) {
	if s.Done() {
		return dataset.TrainingPair{}, false
	}
	return s.sample[s.pos], true
}

// Position returns the 1-based index of the current pair and the sample size
func (s *Session) Position() (int, int) {
	return s.pos + 1, len(s.sample)
}

// Accept keeps the current pair unchanged
func (s *Session) Accept() error {
	pair, ok := s.Current()
	if !ok {
		return ErrSessionDone
	}
	s.accepted = append(s.accepted, pair)
	s.pos++
	return nil
}

// Reject drops the current pair, recording an optional reason
func (s *Session) Reject(reason string) error {
	pair, ok := s.Current()
	if !ok {
		return ErrSessionDone
	}
	s.rejected = append(s.rejected, dataset.ReviewedPair{
		TrainingPair: pair,
		RejectReason: strings.TrimSpace(reason),
	})
	s.pos++
	return nil
}

// Edit replaces the answer of the current pair. An empty answer keeps the
// original; the pair still counts as edited.
func (s *Session) Edit(answer string) error {
	pair, ok := s.Current()
	if !ok {
		return ErrSessionDone
	}
	if a := strings.TrimSpace(answer); a != "" {
		pair.Output = a
	}
	s.edited = append(s.edited, pair)
	s.pos++
	return nil
}

// Skip moves on without recording the pair
func (s *Session) Skip() error {
	if s.Done() {
		return ErrSessionDone
	}
	s.skipped++
	s.pos++
	return nil
}

// Quit ends the session early
func (s *Session) Quit() {
	s.quit = true
}

// Accepted returns accepted pairs followed by edited ones
func (s *Session) Accepted() []dataset.ReviewedPair {
	out := make([]dataset.ReviewedPair, 0, len(s.accepted)+len(s.edited))
	for _, p := range s.accepted {
		out = append(out, dataset.ReviewedPair{TrainingPair: p})
	}
	for _, p := range s.edited {
		out = append(out, dataset.ReviewedPair{TrainingPair: p})
	}
	return out
}

// Rejected returns rejected pairs with their reasons
func (s *Session) Rejected() []dataset.ReviewedPair {
	out := make([]dataset.ReviewedPair, len(s.rejected))
	copy(out, s.rejected)
	return out
}

// Summary computes counts and the accept rate
func (s *Session) Summary() Summary {
	sum := Summary{
		Accepted: len(s.accepted),
		Edited:   len(s.edited),
		Rejected: len(s.rejected),
		Skipped:  s.skipped,
		Reviewed: s.pos,
		Total:    len(s.sample),
	}
	if judged := sum.Accepted + sum.Rejected; judged > 0 {
		sum.HasAcceptRate = true
		sum.AcceptRate = float64(sum.Accepted) / float64(judged) * 100
	}
	for _, r := range s.rejected {
		if r.RejectReason != "" {
			sum.RejectionReasons = append(sum.RejectionReasons, r.RejectReason)
		}
	}
	return sum
}

// Save writes accepted.json and rejected.json into dir. Skipped pairs are
// not persisted.
func (s *Session) Save(dir string) error {
	if err := dataset.SaveAccepted(filepath.Join(dir, dataset.AcceptedFile), s.Accepted()); err != nil {
		return fmt.Errorf("failed to save accepted pairs: %w", err)
	}
	if err := dataset.SaveReviewed(filepath.Join(dir, dataset.RejectedFile), s.Rejected()); err != nil {
		return fmt.Errorf("failed to save rejected pairs: %w", err)
	}
	return nil
}

// FormatSummary renders a summary as plain text
func FormatSummary(sum Summary, dir string) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&sb, "%s\nREVIEW SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(&sb, "Accepted: %d\n", sum.Accepted)
	fmt.Fprintf(&sb, "Edited:   %d\n", sum.Edited)
	fmt.Fprintf(&sb, "Rejected: %d\n", sum.Rejected)
	fmt.Fprintf(&sb, "Skipped:  %d\n", sum.Skipped)
	if sum.HasAcceptRate {
		fmt.Fprintf(&sb, "Accept rate: %.1f%%\n", sum.AcceptRate)
	}
	if len(sum.RejectionReasons) > 0 {
		sb.WriteString("\nRejection reasons:\n")
		for _, r := range sum.RejectionReasons {
			fmt.Fprintf(&sb, "  - %s\n", r)
		}
	}
	if dir != "" {
		fmt.Fprintf(&sb, "\nResults saved to %s\n", dir)
	}
	return sb.String()
}
