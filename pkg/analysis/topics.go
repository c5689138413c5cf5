package analysis

import (
	"regexp"
	"strings"

	"github.com/darkroomhq/darkroom/pkg/types"
)

var (
	capitalizedPhrase = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3})\b`)
	historicalPattern = regexp.MustCompile(`\b([A-Z][a-z]+)\s+(War|Movement|Revolution|Act|Treaty|Convention)\b`)
	leadingYear       = regexp.MustCompile(`^\d{4}`)
)

// skipTopics are common phrases too broad to make useful lookups.
var skipTopics = map[string]struct{}{
	"United States": {}, "United Kingdom": {}, "New York": {}, "Los Angeles": {},
	"World War": {}, "World War I": {}, "World War II": {},
}

var topicKeywords = []string{
	"war", "movement", "revolution", "period", "era", "decade", "navy", "army",
	"military", "regiment", "battalion", "act", "law", "treaty", "convention",
	"organization", "society", "association", "union", "dynasty", "empire",
	"kingdom", "republic",
}

// ExtractTopics pulls up to five encyclopedia-lookup candidates out of
// the metadata narrative: capitalized multi-word phrases and phrases
// matching historical-event patterns.
func ExtractTopics(metadata types.Metadata) []string {
	fields := []string{
		metadata.Notes,
		metadata.HistoricalContext,
		metadata.SocioeconomicInference,
		metadata.LifestyleInsights,
		metadata.ClothingAnalysis.Styles,
		metadata.ClothingAnalysis.Materials,
		metadata.ClothingAnalysis.Significance,
	}
	combined := strings.Join(fields, " ")

	var topics []string
	seen := map[string]struct{}{}

	add := func(topic string) bool {
		if _, ok := seen[topic]; ok {
			return len(topics) < 5
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
		return len(topics) < 5
	}

	for _, match := range capitalizedPhrase.FindAllString(combined, -1) {
		if _, skip := skipTopics[match]; skip || leadingYear.MatchString(match) {
			continue
		}
		lower := strings.ToLower(match)
		keyword := false
		for _, kw := range topicKeywords {
			if strings.Contains(lower, kw) {
				keyword = true
				break
			}
		}
		if keyword || len(strings.Fields(match)) >= 2 {
			if !add(match) {
				return topics
			}
		}
	}

	for _, match := range historicalPattern.FindAllStringSubmatch(combined, -1) {
		if !add(match[1] + " " + match[2]) {
			return topics
		}
	}

	return topics
}
