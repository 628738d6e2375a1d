package generation

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

func newSeededGenerator(seed int64) *Generator {
	return NewGenerator(DefaultConfig(), rand.New(rand.NewSource(seed)))
}

func TestGenerator_DisplayTitle(t *testing.T) {
	g := newSeededGenerator(1)

	tests := []struct {
		raw      string
		expected string
	}{
		{"Mog_(Final_Fantasy_VI)", "Mog"},
		{"Terra_Branford", "Terra Branford"},
		{"Rage_(Final_Fantasy_VI_command)", "Rage"},
		{"Ragnarok_(Final_Fantasy_VI_summon)", "Ragnarok"},
		{"Crusader_(summon)", "Crusader"},
		{"Tools_(command)", "Tools"},
		{"Final_Fantasy_VI_weapons", "weapons"},
		{"Final_Fantasy_VI_battle_system", "battle system"},
		{"Final_Fantasy_VI", "Final Fantasy VI"},
		{"Kefka's_Tower", "Kefka's Tower"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, g.DisplayTitle(tt.raw))
		})
	}
}

func TestVersionQualifier(t *testing.T) {
	tests := []struct {
		name     string
		versions []dataset.VersionTag
		expected string
	}{
		{"all versions", []dataset.VersionTag{dataset.VersionAll}, ""},
		{"no tags", nil, ""},
		{"snes only", []dataset.VersionTag{dataset.VersionSNES}, " (applies to: SNES)"},
		{
			"several",
			[]dataset.VersionTag{dataset.VersionGBA, dataset.VersionIOS, dataset.VersionPixelRemaster},
			" (applies to: GBA, iOS/Android, Pixel Remaster)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VersionQualifier(dataset.Section{Versions: tt.versions}))
		})
	}
}

func TestGenerator_IntroductionTemplates(t *testing.T) {
	g := newSeededGenerator(1)
	section := dataset.Section{
		Heading:  "Introduction",
		Content:  "X is a moogle.",
		Versions: []dataset.VersionTag{dataset.VersionAll},
	}

	pairs := g.PairsForSection("Mog", section)
	require.Len(t, pairs, 3)

	introTemplates := map[string]bool{
		"Who is Mog?":                                     true,
		"Tell me about Mog in Final Fantasy VI.":          true,
		"Give me an overview of Mog in Final Fantasy VI.": true,
	}
	seen := map[string]bool{}
	for _, p := range pairs {
		assert.Equal(t, "X is a moogle.", p.Output)
		assert.Empty(t, p.Input)
		assert.True(t, introTemplates[p.Instruction], "unexpected instruction %q", p.Instruction)
		assert.False(t, seen[p.Instruction], "duplicate instruction %q", p.Instruction)
		seen[p.Instruction] = true
	}
}

func TestGenerator_VersionSuffixOnEveryPair(t *testing.T) {
	g := newSeededGenerator(1)
	section := dataset.Section{
		Heading:  "Gameplay",
		Content:  "Mog learns dances by visiting new terrain types.",
		Versions: []dataset.VersionTag{dataset.VersionSNES},
	}

	pairs := g.PairsForSection("Mog", section)
	require.NotEmpty(t, pairs)
	for _, p := range pairs {
		assert.True(t, strings.HasSuffix(p.Output, " (applies to: SNES)"), p.Output)
	}
}

func TestGenerator_Dispatch(t *testing.T) {
	g := newSeededGenerator(1)

	tests := []struct {
		heading  string
		count    int
		contains string
	}{
		{"Gameplay", 3, "How does Locke work in Final Fantasy VI?"},
		{"MECHANICS", 3, "Explain the Locke system in Final Fantasy VI."},
		{"History", 3, "What happens to Locke in Final Fantasy VI?"},
		{"Synopsis", 3, "What is the background of Locke in Final Fantasy VI?"},
		{"Characteristics", 3, "Describe Locke's appearance and personality in Final Fantasy VI."},
		{"Profile", 2, "Describe Locke in Final Fantasy VI."},
		{"Layout", 2, "Describe the layout of Locke in Final Fantasy VI."},
		{"Territories", 2, "Where is Locke located in Final Fantasy VI?"},
		{"Obtained", 3, "How do I obtain Locke in Final Fantasy VI?"},
		{"Maps", 1, "What does the map of Locke look like in Final Fantasy VI?"},
		{"Use", 2, "What is Locke used for in Final Fantasy VI?"},
		{"List of Relics", 2, "Can you list all list of relics in Final Fantasy VI?"},
		{"Localization", 2, "How did Locke change between versions of Final Fantasy VI?"},
		{"Behind the scenes", 1, "What are some behind the scenes facts about Locke in Final Fantasy VI?"},
		{"Musical themes", 2, "What is the musical theme for Locke in Final Fantasy VI?"},
		{"Etymology and symbolism", 1, "What is the origin of the name Locke in Final Fantasy VI?"},
		{"Other appearances", 1, "Does Locke appear in other Final Fantasy games?"},
		{"Merchandise", 1, "Has Locke from Final Fantasy VI appeared in other media or merchandise?"},
		{"Creation and Development", 1, "Tell me about the Creation and Development of Locke in Final Fantasy VI."},
	}

	for _, tt := range tests {
		t.Run(tt.heading, func(t *testing.T) {
			section := dataset.Section{
				Heading:  tt.heading,
				Content:  "Locke Cole is a treasure hunter with the Returners.",
				Versions: []dataset.VersionTag{dataset.VersionAll},
			}
			pairs := g.PairsForSection("Locke", section)
			require.Len(t, pairs, tt.count)

			instructions := make([]string, len(pairs))
			for i, p := range pairs {
				instructions[i] = p.Instruction
			}
			assert.Contains(t, instructions, tt.contains)
		})
	}
}

func TestMatchRule_TableOrder(t *testing.T) {
	assert.Equal(t, "default", MatchRule("Trivia").Key)
	assert.Equal(t, "list", MatchRule("list of espers").Key)
	assert.Equal(t, "introduction", MatchRule("  Introduction ").Key)

	for _, rule := range dispatchTable {
		assert.NotEmpty(t, rule.Templates, rule.Key)
		for _, tmpl := range rule.Templates {
			assert.True(t, strings.Contains(tmpl, phTitle) || strings.Contains(tmpl, phHeadingLC), tmpl)
		}
	}
}

func TestGenerator_PairsForPageThreshold(t *testing.T) {
	g := newSeededGenerator(1)
	page := dataset.Page{
		Title: "Gau",
		Sections: []dataset.Section{
			{Heading: "Introduction", Content: strings.Repeat("a", 29), Versions: []dataset.VersionTag{dataset.VersionAll}},
			{Heading: "Gameplay", Content: strings.Repeat("b", 30), Versions: []dataset.VersionTag{dataset.VersionAll}},
		},
	}

	pairs := g.PairsForPage(page)
	require.Len(t, pairs, 3)
	assert.Equal(t, "How does Gau work in Final Fantasy VI?", pairs[0].Instruction)
}

func TestGenerator_GenerateFromCleanedFile(t *testing.T) {
	// two pages, one with only short sections
	pages := []dataset.Page{
		{
			Title: "Stub_(Final_Fantasy_VI)",
			URL:   "https://finalfantasy.fandom.com/wiki/Stub_(Final_Fantasy_VI)",
			Sections: []dataset.Section{
				{Heading: "Introduction", Content: "A short stub line.", Versions: []dataset.VersionTag{dataset.VersionAll}},
				{Heading: "Gameplay", Content: "Too short to use.", Versions: []dataset.VersionTag{dataset.VersionAll}},
			},
		},
		{
			Title: "Celes_Chere",
			URL:   "https://finalfantasy.fandom.com/wiki/Celes_Chere",
			Sections: []dataset.Section{
				{Heading: "Introduction", Content: "Celes Chere is a former general of the Empire.", Versions: []dataset.VersionTag{dataset.VersionAll}},
				{Heading: "Gameplay", Content: "Celes can absorb magic with her Runic ability.", Versions: []dataset.VersionTag{dataset.VersionGBA}},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "cleaned.json")
	require.NoError(t, dataset.SavePages(path, pages))
	loaded, err := dataset.LoadPages(path)
	require.NoError(t, err)

	g := newSeededGenerator(42)
	pairs, stats := g.Generate(loaded)

	for _, p := range pairs {
		assert.NotContains(t, p.Instruction, "Stub")
		assert.Contains(t, p.Instruction, "Celes Chere")
	}
	assert.Len(t, pairs, 6)
	assert.Equal(t, 2, stats.SectionsTooShort)
	assert.Equal(t, 2, stats.SectionsUsed)
	assert.Equal(t, 3, stats.ByRule["introduction"])
	assert.Equal(t, 3, stats.ByRule["gameplay"])

	out := filepath.Join(t.TempDir(), "training", "pairs.jsonl")
	require.NoError(t, dataset.SavePairs(out, pairs))
	_, err = os.Stat(out)
	require.NoError(t, err)
}

func TestGenerator_ShuffleSeeded(t *testing.T) {
	pages := []dataset.Page{{
		Title: "Shadow_(Final_Fantasy_VI)",
		Sections: []dataset.Section{
			{Heading: "Introduction", Content: "Shadow is a ninja assassin for hire.", Versions: []dataset.VersionTag{dataset.VersionAll}},
			{Heading: "Story", Content: "Shadow leaves the party when his contract ends.", Versions: []dataset.VersionTag{dataset.VersionAll}},
			{Heading: "Gameplay", Content: "Shadow throws weapons with the Throw command.", Versions: []dataset.VersionTag{dataset.VersionAll}},
		},
	}}

	first, _ := newSeededGenerator(7).Generate(pages)
	second, _ := newSeededGenerator(7).Generate(pages)
	assert.Equal(t, first, second, "same seed gives the same order")
	assert.Len(t, first, 9)
}

func TestGenerator_Dedupe(t *testing.T) {
	section := dataset.Section{Heading: "Introduction", Content: "Vector is the imperial capital city.", Versions: []dataset.VersionTag{dataset.VersionAll}}
	pages := []dataset.Page{
		{Title: "Vector", Sections: []dataset.Section{section}},
		{Title: "Vector_(Final_Fantasy_VI)", Sections: []dataset.Section{section}},
	}

	pairs, stats := newSeededGenerator(1).Generate(pages)
	assert.Len(t, pairs, 3)
	assert.Equal(t, 3, stats.Duplicates)

	config := DefaultConfig()
	config.DedupeInstructions = false
	pairs, _ = NewGenerator(config, rand.New(rand.NewSource(1))).Generate(pages)
	assert.Len(t, pairs, 6)
}
