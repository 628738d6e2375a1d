package scraping

import (
	"strings"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

// versionKeywords maps each release to the phrases that suggest it.
// Matching is a plain substring test on lowercased text.
var versionKeywords = map[dataset.VersionTag][]string{
	dataset.VersionSNES:          {"snes", "super nintendo", "ff3", "woolsey", "original version"},
	dataset.VersionPS1:           {"ps1", "playstation", "psx"},
	dataset.VersionGBA:           {"gba", "game boy advance", "advance version"},
	dataset.VersionIOS:           {"ios", "android", "mobile version"},
	dataset.VersionSteam:         {"steam", "pc version", "old steam"},
	dataset.VersionPixelRemaster: {"pixel remaster", "pr version", "2022"},
}

// DetectVersions returns the releases mentioned in text, in release order,
// or the all-versions sentinel when nothing matches.
func DetectVersions(text string) []dataset.VersionTag {
	lower := strings.ToLower(text)

	var found []dataset.VersionTag
	for _, tag := range dataset.ReleaseVersions {
		for _, kw := range versionKeywords[tag] {
			if strings.Contains(lower, kw) {
				found = append(found, tag)
				break
			}
		}
	}

	if len(found) == 0 {
		return []dataset.VersionTag{dataset.VersionAll}
	}
	return found
}
