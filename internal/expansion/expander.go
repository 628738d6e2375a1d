package expansion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
	"github.com/Caia-Tech/ff6-dataset/pkg/ratelimit"
)

// ErrMalformedResponse is returned when a completion is not a JSON array of
// question/answer objects
var ErrMalformedResponse = errors.New("malformed model response")

// Config configures the expander and its model client
type Config struct {
	APIKey              string        `json:"-"`
	BaseURL             string        `json:"base_url,omitempty"`
	Model               string        `json:"model"`
	MaxTokens           int64         `json:"max_tokens"`
	RequestTimeout      time.Duration `json:"request_timeout"`
	RequestDelay        time.Duration `json:"request_delay"`
	MinContentLength    int           `json:"min_content_length"`
	ExcerptLength       int           `json:"excerpt_length"`
	ExampleInstructions int           `json:"example_instructions"`
	QuestionsPerSection int           `json:"questions_per_section"`
	GameName            string        `json:"game_name"`
}

// DefaultConfig returns the standard expansion settings
func DefaultConfig() *Config {
	return &Config{
		Model:               "claude-haiku-4-5-20251001",
		MaxTokens:           600,
		RequestTimeout:      60 * time.Second,
		RequestDelay:        500 * time.Millisecond,
		MinContentLength:    50,
		ExcerptLength:       800,
		ExampleInstructions: 5,
		QuestionsPerSection: 3,
		GameName:            "Final Fantasy VI",
	}
}

// GeneratedQA is one item of the model's JSON array
type GeneratedQA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ExpansionStats summarises an expansion run
type ExpansionStats struct {
	TotalSections int           `json:"total_sections"`
	Processed     int           `json:"processed"`
	Skipped       int           `json:"skipped"`
	RequestErrors int           `json:"request_errors"`
	ParseErrors   int           `json:"parse_errors"`
	NewPairs      int           `json:"new_pairs"`
	Duplicates    int           `json:"duplicates"`
	Incomplete    int           `json:"incomplete"`
	PromptTokens  int           `json:"prompt_tokens"`
	InputTokens   int64         `json:"input_tokens"`
	OutputTokens  int64         `json:"output_tokens"`
	ExistingPairs int           `json:"existing_pairs"`
	Duration      time.Duration `json:"duration"`
}

// Expander asks a model for extra question/answer pairs per section
type Expander struct {
	config    *Config
	completer Completer
	limiter   *ratelimit.Limiter
	tokens    TokenCounter
	logger    zerolog.Logger
}

// NewExpander creates an expander. A nil limiter paces requests at
// config.RequestDelay; a nil counter falls back to ApproxCounter.
func NewExpander(config *Config, completer Completer, limiter *ratelimit.Limiter, tokens TokenCounter) *Expander {
	if config == nil {
		config = DefaultConfig()
	}
	if limiter == nil {
		limiter = ratelimit.NewLimiterWithIntervals(map[string]time.Duration{
			ratelimit.SourceAnthropic: config.RequestDelay,
		})
	}
	if tokens == nil {
		tokens = ApproxCounter{}
	}
	return &Expander{
		config:    config,
		completer: completer,
		limiter:   limiter,
		tokens:    tokens,
		logger:    logging.GetLogger("expander"),
	}
}

// DisplayTitle turns a wiki title into the name used in prompts
func (e *Expander) DisplayTitle(title string) string {
	t := strings.ReplaceAll(title, "_", " ")
	t = strings.TrimSpace(strings.ReplaceAll(t, "("+e.config.GameName+")", ""))
	return t
}

// BuildPrompt renders the request for a single section
func (e *Expander) BuildPrompt(title, heading, content string, examples []string) string {
	excerpt := content
	if utf8.RuneCountInString(excerpt) > e.config.ExcerptLength {
		excerpt = string([]rune(excerpt)[:e.config.ExcerptLength])
	}

	quoted := make([]string, len(examples))
	for i, ex := range examples {
		quoted[i] = fmt.Sprintf("%q", ex)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are helping build a question/answer training dataset for a %s game guide AI.\n\n", e.config.GameName)
	fmt.Fprintf(&sb, "Given this content about %q (section: %q):\n\n", title, heading)
	sb.WriteString(excerpt)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Generate %d natural questions a player might ask about this, along with their answers based only on the content above.\n", e.config.QuestionsPerSection)
	sb.WriteString("Format your response as JSON array like this:\n[\n")
	for i := 0; i < e.config.QuestionsPerSection; i++ {
		sb.WriteString(`  {"question": "...", "answer": "..."}`)
		if i < e.config.QuestionsPerSection-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("]\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Questions should be natural things a player would ask\n")
	sb.WriteString("- Answers should be based only on the provided content\n")
	fmt.Fprintf(&sb, "- Do not repeat these existing questions: [%s]\n", strings.Join(quoted, ", "))
	sb.WriteString("- Return ONLY the JSON array, no other text")
	return sb.String()
}

// ParseResponse strips code fences and decodes the JSON array
func ParseResponse(text string) ([]GeneratedQA, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	if !strings.HasPrefix(cleaned, "[") {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedResponse)
	}

	var items []GeneratedQA
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return items, nil
}

// ExpandSection requests pairs for one section and filters them against
// seen. Accepted instructions are added to seen.
func (e *Expander) ExpandSection(ctx context.Context, title string, section dataset.Section, seen *dataset.InstructionSet, stats *ExpansionStats) ([]dataset.TrainingPair, error) {
	prompt := e.BuildPrompt(title, section.Heading, section.Content, seen.First(e.config.ExampleInstructions))
	stats.PromptTokens += e.tokens.Count(prompt)

	if err := e.limiter.WaitForSource(ctx, ratelimit.SourceAnthropic); err != nil {
		return nil, err
	}

	text, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		e.limiter.RecordError(ratelimit.SourceAnthropic)
		stats.RequestErrors++
		return nil, err
	}
	if reporter, ok := e.completer.(UsageReporter); ok {
		usage := reporter.LastUsage()
		stats.InputTokens += usage.InputTokens
		stats.OutputTokens += usage.OutputTokens
	}

	items, err := ParseResponse(text)
	if err != nil {
		stats.ParseErrors++
		return nil, err
	}

	var pairs []dataset.TrainingPair
	for _, item := range items {
		q := strings.TrimSpace(item.Question)
		a := strings.TrimSpace(item.Answer)
		if q == "" || a == "" {
			stats.Incomplete++
			continue
		}
		if !seen.Add(q) {
			stats.Duplicates++
			continue
		}
		pairs = append(pairs, dataset.NewTrainingPair(q, a))
	}
	return pairs, nil
}

// Run expands every eligible section of pages, handing each section's new
// pairs to sink. Failed sections are logged and skipped.
func (e *Expander) Run(ctx context.Context, pages []dataset.Page, seen *dataset.InstructionSet, sink func([]dataset.TrainingPair) error) (*ExpansionStats, error) {
	start := time.Now()
	stats := &ExpansionStats{ExistingPairs: seen.Len()}
	for _, page := range pages {
		stats.TotalSections += len(page.Sections)
	}

	for _, page := range pages {
		title := e.DisplayTitle(page.Title)
		for _, section := range page.Sections {
			if err := ctx.Err(); err != nil {
				stats.Duration = time.Since(start)
				return stats, err
			}
			if utf8.RuneCountInString(section.Content) < e.config.MinContentLength {
				stats.Skipped++
				continue
			}

			stats.Processed++
			e.logger.Info().
				Str("progress", fmt.Sprintf("%d/%d", stats.Processed, stats.TotalSections)).
				Str("title", title).
				Str("heading", section.Heading).
				Msg("Expanding section")

			pairs, err := e.ExpandSection(ctx, title, section, seen, stats)
			if err != nil {
				if ctx.Err() != nil {
					stats.Duration = time.Since(start)
					return stats, ctx.Err()
				}
				e.logger.Warn().Err(err).
					Str("title", title).
					Str("heading", section.Heading).
					Msg("Section expansion failed, skipping")
				continue
			}
			if len(pairs) == 0 {
				continue
			}
			if err := sink(pairs); err != nil {
				stats.Duration = time.Since(start)
				return stats, fmt.Errorf("failed to write pairs: %w", err)
			}
			stats.NewPairs += len(pairs)
		}
	}

	stats.Duration = time.Since(start)
	e.logger.Info().
		Int("new_pairs", stats.NewPairs).
		Int("prompt_tokens", stats.PromptTokens).
		Int64("input_tokens", stats.InputTokens).
		Int64("output_tokens", stats.OutputTokens).
		Dur("duration", stats.Duration).
		Msg("Expansion complete")
	return stats, nil
}

// ExpandFile reads cleaned pages and appends new pairs to the JSONL at
// pairsPath. A missing pairs file starts from an empty set.
func (e *Expander) ExpandFile(ctx context.Context, cleanedPath, pairsPath string) (*ExpansionStats, error) {
	pages, err := dataset.LoadPages(cleanedPath)
	if err != nil {
		return nil, err
	}

	existing, err := dataset.LoadPairs(pairsPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	seen := dataset.NewInstructionSet(existing)
	return e.Run(ctx, pages, seen, func(pairs []dataset.TrainingPair) error {
		return dataset.AppendPairs(pairsPath, pairs)
	})
}
