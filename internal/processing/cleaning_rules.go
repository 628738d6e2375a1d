package processing

import (
	"regexp"
	"strings"
)

// DefaultTemplatePasses bounds how deeply nested templates are removed.
// Deeper nesting leaves residue; this is an accepted approximation.
const DefaultTemplatePasses = 5

// substitution is one regexp replacement. When fn is set it is used
// instead of the literal replacement.
type substitution struct {
	re   *regexp.Regexp
	repl string
	fn   func(match []string) string
}

func (s substitution) apply(content string) string {
	if s.fn == nil {
		return s.re.ReplaceAllString(content, s.repl)
	}
	return s.re.ReplaceAllStringFunc(content, func(m string) string {
		return s.fn(s.re.FindStringSubmatch(m))
	})
}

// RegexRule applies a fixed sequence of substitutions
type RegexRule struct {
	name        string
	description string
	steps       []substitution
}

func (r *RegexRule) Name() string        { return r.name }
func (r *RegexRule) Description() string { return r.description }

func (r *RegexRule) Apply(content string) string {
	for _, step := range r.steps {
		content = step.apply(content)
	}
	return content
}

// TemplateRemovalRule strips innermost {{...}} blocks, one layer per pass
type TemplateRemovalRule struct {
	Passes int
}

var templateRegex = regexp.MustCompile(`\{\{[^{}]*\}\}`)

func (r *TemplateRemovalRule) Name() string { return "template_removal" }

func (r *TemplateRemovalRule) Description() string {
	return "Removes template and infobox blocks with a bounded number of passes"
}

func (r *TemplateRemovalRule) Apply(content string) string {
	for i := 0; i < r.Passes; i++ {
		next := templateRegex.ReplaceAllString(content, "")
		if next == content {
			break
		}
		content = next
	}
	return content
}

// TagRemovalRule strips remaining tags. Entities are left encoded so that
// escaped brackets in prose never turn into tags.
type TagRemovalRule struct{}

var tagRegex = regexp.MustCompile(`<[^>]+>`)

func (r *TagRemovalRule) Name() string { return "tag_removal" }

func (r *TagRemovalRule) Description() string {
	return "Removes all remaining tags"
}

func (r *TagRemovalRule) Apply(content string) string {
	return tagRegex.ReplaceAllString(content, "")
}

// categoryLink matches piped targets whose pipe text is a sort key
var categoryLink = regexp.MustCompile(`^Category:`)

// namespacedLink matches plain link targets left for the boilerplate rule
var namespacedLink = regexp.MustCompile(`^(?:Category:|[a-z\-]+:)`)

// DefaultRules returns the cleaning pipeline in order
func DefaultRules(templatePasses int) []CleaningRule {
	if templatePasses < 1 {
		templatePasses = DefaultTemplatePasses
	}

	return []CleaningRule{
		&RegexRule{
			name:        "reference_removal",
			description: "Removes reference tags and gallery blocks with their contents",
			steps: []substitution{
				{re: regexp.MustCompile(`(?i)<ref[^>]*/>`)},
				{re: regexp.MustCompile(`(?is)<ref(?:\s[^>]*)?>.*?</ref>`)},
				{re: regexp.MustCompile(`(?is)<gallery[^>]*>.*?</gallery>`)},
			},
		},
		&TagRemovalRule{},
		&TemplateRemovalRule{Passes: templatePasses},
		&RegexRule{
			name:        "file_link_removal",
			description: "Removes file and image links",
			steps: []substitution{
				{re: regexp.MustCompile(`\[\[(?:File|Image):[^\]]*\]\]`)},
			},
		},
		&RegexRule{
			name:        "internal_link_rewrite",
			description: "Rewrites piped links to their display text and plain links to their target",
			steps: []substitution{
				{
					re: regexp.MustCompile(`\[\[([^\]|]*)\|([^\]]*)\]\]`),
					fn: func(m []string) string {
						if categoryLink.MatchString(m[1]) {
							return m[0]
						}
						return m[2]
					},
				},
				{
					re: regexp.MustCompile(`\[\[([^\]]*)\]\]`),
					fn: func(m []string) string {
						if namespacedLink.MatchString(m[1]) {
							return m[0]
						}
						return m[1]
					},
				},
			},
		},
		&RegexRule{
			name:        "external_link_rewrite",
			description: "Rewrites external links to their display text or removes them",
			steps: []substitution{
				{re: regexp.MustCompile(`\[https?://[^\s\]]+\s([^\]]+)\]`), repl: "$1"},
				{re: regexp.MustCompile(`\[https?://[^\]]+\]`)},
			},
		},
		&RegexRule{
			name:        "table_removal",
			description: "Removes table blocks, row and cell lines",
			steps: []substitution{
				{re: regexp.MustCompile(`(?s)\{\|.*?\|\}`)},
				{re: regexp.MustCompile(`(?m)^\s*[|!].*$`)},
				{re: regexp.MustCompile(`\|-`)},
			},
		},
		&RegexRule{
			name:        "formatting_removal",
			description: "Removes bold and italic quotes and heading markers",
			steps: []substitution{
				{re: regexp.MustCompile(`'{2,3}`)},
				{re: regexp.MustCompile(`={2,6}[^=]+=+`)},
			},
		},
		&RegexRule{
			name:        "boilerplate_removal",
			description: "Removes category and interlanguage links and navigation templates",
			steps: []substitution{
				{re: regexp.MustCompile(`\[\[Category:[^\]]*\]\]`)},
				{re: regexp.MustCompile(`\[\[[a-z\-]+:[^\]]*\]\]`)},
				{re: regexp.MustCompile(`(?i)\{\{navbox[^}]*\}\}`)},
				{re: regexp.MustCompile(`(?i)\{\{citations\}\}`)},
				{re: regexp.MustCompile(`(?i)\{\{spoiler[^}]*\}\}`)},
				{re: regexp.MustCompile(`(?i)\{\{endspoiler\}\}`)},
				{re: regexp.MustCompile(`(?i)\{\{quote\|[^}]*\}\}`)},
				{re: regexp.MustCompile(`(?i)\{\{see\|[^}]*\}\}`)},
				{re: regexp.MustCompile(`(?i)\{\{main\|[^}]*\}\}`)},
			},
		},
		&RegexRule{
			name:        "artifact_removal",
			description: "Removes table row markers, caption tails and image filenames left by scraping",
			steps: []substitution{
				{re: regexp.MustCompile(`\[TABLE ROW:[^\]]*\]`)},
				{re: regexp.MustCompile(`(?m)^\s*\.\]\]\s*`)},
				{re: regexp.MustCompile(`\.\]\]`)},
				{re: regexp.MustCompile(`\S+\.(?:png|gif|jpg)\|[^\n]+`)},
			},
		},
		&RegexRule{
			name:        "bullet_normalization",
			description: "Normalizes asterisk bullets to a dash prefix",
			steps: []substitution{
				{re: regexp.MustCompile(`(?m)^\s*\*+\s*`), repl: "- "},
			},
		},
		&RegexRule{
			name:        "whitespace_collapse",
			description: "Collapses blank line runs and repeated spaces",
			steps: []substitution{
				{re: regexp.MustCompile(`\n{3,}`), repl: "\n\n"},
				{re: regexp.MustCompile(` {2,}`), repl: " "},
			},
		},
		&trimRule{},
	}
}

type trimRule struct{}

func (r *trimRule) Name() string                { return "trim" }
func (r *trimRule) Description() string         { return "Trims surrounding whitespace" }
func (r *trimRule) Apply(content string) string { return strings.TrimSpace(content) }
