package generation

import "strings"

// Placeholders understood by question templates
const (
	phTitle     = "{title}"
	phHeading   = "{heading}"
	phHeadingLC = "{heading_lc}"
	phGame      = "{game}"
)

// TemplateRule maps section headings to question templates
type TemplateRule struct {
	Key       string   // identifies the rule in stats
	Headings  []string // exact lowercased headings
	Prefix    string   // alternatively, a lowercased heading prefix
	Templates []string
}

// Matches reports whether the rule applies to a lowercased heading
func (r TemplateRule) Matches(heading string) bool {
	if r.Prefix != "" && strings.HasPrefix(heading, r.Prefix) {
		return true
	}
	for _, h := range r.Headings {
		if h == heading {
			return true
		}
	}
	return false
}

// fallbackRule is used when no entry of the dispatch table matches
var fallbackRule = TemplateRule{
	Key:       "default",
	Templates: []string{"Tell me about the {heading} of {title} in {game}."},
}

// dispatchTable is checked in order; the first matching rule wins
var dispatchTable = []TemplateRule{
	{
		Key:      "introduction",
		Headings: []string{"introduction"},
		Templates: []string{
			"Who is {title}?",
			"Tell me about {title} in {game}.",
			"Give me an overview of {title} in {game}.",
		},
	},
	{
		Key:      "gameplay",
		Headings: []string{"gameplay"},
		Templates: []string{
			"How does {title} work in {game}?",
			"What are {title}'s gameplay mechanics in {game}?",
			"Is {title} useful in {game}?",
		},
	},
	{
		Key:      "mechanics",
		Headings: []string{"mechanics"},
		Templates: []string{
			"How does the {title} mechanic work in {game}?",
			"Explain the {title} system in {game}.",
			"What are the rules for {title} in {game}?",
		},
	},
	{
		Key:      "story",
		Headings: []string{"story", "history", "synopsis"},
		Templates: []string{
			"What is the story of {title} in {game}?",
			"What happens to {title} in {game}?",
			"What is the background of {title} in {game}?",
		},
	},
	{
		Key:      "characteristics",
		Headings: []string{"characteristics"},
		Templates: []string{
			"What are the characteristics and personality of {title} in {game}?",
			"Describe {title}'s appearance and personality in {game}.",
			"What does {title} look like in {game}?",
		},
	},
	{
		Key:      "profile",
		Headings: []string{"profile"},
		Templates: []string{
			"What is the profile of {title} in {game}?",
			"Describe {title} in {game}.",
		},
	},
	{
		Key:      "layout",
		Headings: []string{"layout"},
		Templates: []string{
			"What does {title} look like in {game}?",
			"Describe the layout of {title} in {game}.",
		},
	},
	{
		Key:      "locations",
		Headings: []string{"locations", "territories"},
		Templates: []string{
			"What locations are in {title} in {game}?",
			"Where is {title} located in {game}?",
		},
	},
	{
		Key:      "obtained",
		Headings: []string{"obtained"},
		Templates: []string{
			"How do I get {title} in {game}?",
			"Where can I find {title} in {game}?",
			"How do I obtain {title} in {game}?",
		},
	},
	{
		Key:       "maps",
		Headings:  []string{"maps"},
		Templates: []string{"What does the map of {title} look like in {game}?"},
	},
	{
		Key:      "use",
		Headings: []string{"use"},
		Templates: []string{
			"How do I use {title} in {game}?",
			"What is {title} used for in {game}?",
		},
	},
	{
		Key:    "list",
		Prefix: "list of",
		Templates: []string{
			"What are the {heading_lc} in {game}?",
			"Can you list all {heading_lc} in {game}?",
		},
	},
	{
		Key:      "releases",
		Headings: []string{"releases", "development", "localization"},
		Templates: []string{
			"What are the different versions of {title} in {game}?",
			"How did {title} change between versions of {game}?",
		},
	},
	{
		Key:       "behind_the_scenes",
		Headings:  []string{"behind the scenes"},
		Templates: []string{"What are some behind the scenes facts about {title} in {game}?"},
	},
	{
		Key:      "musical_themes",
		Headings: []string{"musical themes"},
		Templates: []string{
			"What music plays in {title} in {game}?",
			"What is the musical theme for {title} in {game}?",
		},
	},
	{
		Key:       "etymology",
		Headings:  []string{"etymology", "etymology and symbolism"},
		Templates: []string{"What is the origin of the name {title} in {game}?"},
	},
	{
		Key:       "other_appearances",
		Headings:  []string{"other appearances"},
		Templates: []string{"Does {title} appear in other Final Fantasy games?"},
	},
	{
		Key:       "other_media",
		Headings:  []string{"other media", "merchandise"},
		Templates: []string{"Has {title} from {game} appeared in other media or merchandise?"},
	},
}

// MatchRule returns the template rule for a heading, falling back to the
// generic rule when nothing in the table matches
func MatchRule(heading string) TemplateRule {
	h := strings.ToLower(strings.TrimSpace(heading))
	for _, rule := range dispatchTable {
		if rule.Matches(h) {
			return rule
		}
	}
	return fallbackRule
}
