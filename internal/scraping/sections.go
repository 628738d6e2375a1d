package scraping

import (
	"strings"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

// IntroductionHeading names the text that precedes the first heading
const IntroductionHeading = "Introduction"

// SplitSections cuts raw page markup into level-two sections. Deeper
// headings stay inside their parent's content. Blank sections are omitted
// and every kept section is tagged with the versions it mentions.
func SplitSections(markup string) []dataset.Section {
	var sections []dataset.Section

	heading := IntroductionHeading
	var lines []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(lines, "\n"))
		if content != "" {
			sections = append(sections, dataset.Section{
				Heading:  heading,
				Content:  content,
				Versions: DetectVersions(content),
			})
		}
		lines = lines[:0]
	}

	for _, line := range strings.Split(markup, "\n") {
		if isSectionHeading(line) {
			flush()
			if h := strings.TrimSpace(strings.ReplaceAll(line, "=", "")); h != "" {
				heading = h
			}
			continue
		}
		lines = append(lines, line)
	}
	flush()

	return sections
}

func isSectionHeading(line string) bool {
	return strings.HasPrefix(line, "==") && !strings.HasPrefix(line, "===")
}
