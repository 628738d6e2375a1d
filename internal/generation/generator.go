package generation

import (
	"math/rand"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
)

// Config configures pair generation
type Config struct {
	GameName           string `json:"game_name"`
	MinContentLength   int    `json:"min_content_length"`
	Seed               int64  `json:"seed"` // 0 seeds from the clock
	DedupeInstructions bool   `json:"dedupe_instructions"`
}

// DefaultConfig returns the standard generation settings
func DefaultConfig() *Config {
	return &Config{
		GameName:           "Final Fantasy VI",
		MinContentLength:   30,
		DedupeInstructions: true,
	}
}

// GenerationStats summarises a Generate call
type GenerationStats struct {
	Pages            int            `json:"pages"`
	SectionsUsed     int            `json:"sections_used"`
	SectionsTooShort int            `json:"sections_too_short"`
	Pairs            int            `json:"pairs"`
	Duplicates       int            `json:"duplicates"`
	ByRule           map[string]int `json:"by_rule"`
	Duration         time.Duration  `json:"duration"`
}

// Generator turns cleaned sections into template-driven training pairs
type Generator struct {
	config *Config
	rng    *rand.Rand
	suffix *regexp.Regexp
	logger zerolog.Logger
}

// NewGenerator creates a generator. A nil rng is built from config.Seed.
func NewGenerator(config *Config, rng *rand.Rand) *Generator {
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

	game := regexp.QuoteMeta(config.GameName)
	suffix := regexp.MustCompile(`\s*\((?:` + game + `(?: command| summon)?|summon|command)\)\s*$`)

	return &Generator{
		config: config,
		rng:    rng,
		suffix: suffix,
		logger: logging.GetLogger("generator"),
	}
}

// DisplayTitle converts a wiki title into the name used in questions:
// underscores become spaces and disambiguation suffixes are removed.
func (g *Generator) DisplayTitle(title string) string {
	t := strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
	t = g.suffix.ReplaceAllString(t, "")
	t = strings.TrimSpace(strings.TrimPrefix(t, g.config.GameName))
	t = strings.Join(strings.Fields(t), " ")
	if t == "" {
		return g.config.GameName
	}
	return t
}

// VersionQualifier returns the " (applies to: ...)" suffix for a section,
// or "" when it applies to every release
func VersionQualifier(section dataset.Section) string {
	if section.AllVersions() {
		return ""
	}
	names := make([]string, len(section.Versions))
	for i, v := range section.Versions {
		names[i] = v.DisplayName()
	}
	return " (applies to: " + strings.Join(names, ", ") + ")"
}

// PairsForSection instantiates the templates matching the section heading.
// It applies no length threshold.
func (g *Generator) PairsForSection(displayTitle string, section dataset.Section) []dataset.TrainingPair {
	rule := MatchRule(section.Heading)
	output := section.Content + VersionQualifier(section)

	r := strings.NewReplacer(
		phTitle, displayTitle,
		phHeadingLC, strings.ToLower(strings.TrimSpace(section.Heading)),
		phHeading, section.Heading,
		phGame, g.config.GameName,
	)

	pairs := make([]dataset.TrainingPair, 0, len(rule.Templates))
	for _, tmpl := range rule.Templates {
		pairs = append(pairs, dataset.NewTrainingPair(r.Replace(tmpl), output))
	}
	return pairs
}

// PairsForPage generates pairs for every section long enough to be useful
func (g *Generator) PairsForPage(page dataset.Page) []dataset.TrainingPair {
	pairs, _ := g.pairsForPage(page, &GenerationStats{ByRule: map[string]int{}})
	return pairs
}

func (g *Generator) pairsForPage(page dataset.Page, stats *GenerationStats) ([]dataset.TrainingPair, int) {
	title := g.DisplayTitle(page.Title)

	var pairs []dataset.TrainingPair
	used := 0
	for _, section := range page.Sections {
		if utf8.RuneCountInString(section.Content) < g.config.MinContentLength {
			stats.SectionsTooShort++
			continue
		}
		sectionPairs := g.PairsForSection(title, section)
		stats.ByRule[MatchRule(section.Heading).Key] += len(sectionPairs)
		pairs = append(pairs, sectionPairs...)
		used++
	}
	stats.SectionsUsed += used
	return pairs, used
}

// Generate builds pairs for all pages, drops repeated instructions when
// configured to, and shuffles the result
func (g *Generator) Generate(pages []dataset.Page) ([]dataset.TrainingPair, *GenerationStats) {
	start := time.Now()
	stats := &GenerationStats{
		Pages:  len(pages),
		ByRule: make(map[string]int),
	}

	seen := dataset.NewInstructionSet(nil)
	all := make([]dataset.TrainingPair, 0, len(pages)*8)

	for _, page := range pages {
		pairs, used := g.pairsForPage(page, stats)
		added := 0
		for _, pair := range pairs {
			if g.config.DedupeInstructions && !seen.Add(pair.Instruction) {
				stats.Duplicates++
				continue
			}
			all = append(all, pair)
			added++
		}
		g.logger.Debug().
			Str("title", page.Title).
			Int("sections", used).
			Int("pairs", added).
			Msg("Generated pairs for page")
	}

	g.rng.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})

	stats.Pairs = len(all)
	stats.Duration = time.Since(start)
	return all, stats
}
