package dataset

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// VersionTag names a game release a piece of wiki content applies to.
// Tags are inferred from keywords and are not authoritative.
type VersionTag string

const (
	VersionSNES          VersionTag = "snes"
	VersionPS1           VersionTag = "ps1"
	VersionGBA           VersionTag = "gba"
	VersionIOS           VersionTag = "ios"
	VersionSteam         VersionTag = "steam"
	VersionPixelRemaster VersionTag = "pixel_remaster"
	VersionAll           VersionTag = "all_versions"
)

// ReleaseVersions lists the concrete release tags in display order.
var ReleaseVersions = []VersionTag{
	VersionSNES,
	VersionPS1,
	VersionGBA,
	VersionIOS,
	VersionSteam,
	VersionPixelRemaster,
}

var versionNames = map[VersionTag]string{
	VersionSNES:          "SNES",
	VersionPS1:           "PlayStation",
	VersionGBA:           "GBA",
	VersionIOS:           "iOS/Android",
	VersionSteam:         "Steam",
	VersionPixelRemaster: "Pixel Remaster",
	VersionAll:           "All versions",
}

// DisplayName returns the human-readable release name
func (v VersionTag) DisplayName() string {
	if name, ok := versionNames[v]; ok {
		return name
	}
	return string(v)
}

// Valid reports whether v is one of the known tags
func (v VersionTag) Valid() bool {
	_, ok := versionNames[v]
	return ok
}

// Page is one scraped wiki article
type Page struct {
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Sections []Section `json:"sections"`
}

// Section is a heading-delimited block of a page
type Section struct {
	Heading  string       `json:"heading"`
	Content  string       `json:"content"`
	Versions []VersionTag `json:"versions"`
}

// AllVersions reports whether the section carries the all-versions sentinel.
// A section with no tags at all is treated the same way.
func (s Section) AllVersions() bool {
	if len(s.Versions) == 0 {
		return true
	}
	for _, v := range s.Versions {
		if v == VersionAll {
			return true
		}
	}
	return false
}

// HeadingKey is the lowercased, trimmed heading used for lookups
func (s Section) HeadingKey() string {
	return strings.ToLower(strings.TrimSpace(s.Heading))
}

// TotalContentLength returns the length in characters of all section
// contents joined by single spaces
func (p *Page) TotalContentLength() int {
	if len(p.Sections) == 0 {
		return 0
	}
	total := len(p.Sections) - 1
	for _, s := range p.Sections {
		total += utf8.RuneCountInString(s.Content)
	}
	return total
}

// Validate checks that the page has the fields every stage relies on
func (p *Page) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("page title cannot be empty")
	}
	for i, s := range p.Sections {
		if s.Heading == "" {
			return fmt.Errorf("section %d of %q has no heading", i, p.Title)
		}
		for _, v := range s.Versions {
			if !v.Valid() {
				return fmt.Errorf("section %q of %q has unknown version tag %q", s.Heading, p.Title, v)
			}
		}
	}
	return nil
}

// TrainingPair is one instruction/answer record. Input is always empty.
type TrainingPair struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// NewTrainingPair builds a pair with an empty input field
func NewTrainingPair(instruction, output string) TrainingPair {
	return TrainingPair{Instruction: instruction, Input: "", Output: output}
}

// ReviewedPair is a pair that went through manual review
type ReviewedPair struct {
	TrainingPair
	RejectReason string `json:"reject_reason"`
}
