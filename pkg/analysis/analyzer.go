// Package analysis drives the photo analysis step: it prompts a vision
// model for the photograph's bounding box and historical metadata, and
// enriches the result with encyclopedia context.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/darkroomhq/darkroom/pkg/client"
	"github.com/darkroomhq/darkroom/pkg/types"
	"github.com/darkroomhq/darkroom/pkg/wikipedia"
)

// defaultEra seeds encyclopedia lookups before the model has estimated
// a year for the photo.
const defaultEra = "mid-20th century"

// Analyzer analyzes uploaded scans with a vision model.
type Analyzer struct {
	vision client.VisionClient
	wiki   *wikipedia.Client
}

// NewAnalyzer creates an Analyzer. The wikipedia client may be nil to
// disable context enrichment.
func NewAnalyzer(vision client.VisionClient, wiki *wikipedia.Client) *Analyzer {
	return &Analyzer{vision: vision, wiki: wiki}
}

// AnalyzePhoto analyzes an uploaded scan of width x height pixels and
// returns the raw model response text together with parsed metadata.
// The bounding box inside BoxText is left for the normalizer to
// interpret; analysis never guesses coordinates on the model's behalf.
func (a *Analyzer) AnalyzePhoto(ctx context.Context, imageData []byte, mimeType string, width, height int, opts types.ProcessOptions) (*types.AnalysisResult, error) {
	var wikiContext string
	var links []types.WikipediaLink

	if a.wiki != nil && opts.Location != "" {
		wikiContext, links = a.fetchLocationContext(ctx, opts.Location)
	}

	prompt := buildPrompt(width, height, opts.Location, opts.UserContext, wikiContext)

	raw, err := a.vision.Analyze(ctx, prompt, imageData, mimeType)
	if err != nil {
		return nil, fmt.Errorf("vision analysis failed: %w", err)
	}

	metadata, err := parseMetadata(raw)
	if err != nil {
		return nil, err
	}

	if opts.UserContext != "" && metadata.Notes != "" {
		metadata.Notes += " User context: " + opts.UserContext
	}

	switch {
	case len(links) > 0:
		metadata.WikipediaLinks = links
	case a.wiki != nil:
		// No location given: derive topics from what the model inferred.
		metadata.WikipediaLinks = a.fetchTopicLinks(ctx, metadata)
	}

	return &types.AnalysisResult{
		BoxText:  raw,
		Metadata: metadata,
	}, nil
}

// AnalyzeVideo analyzes uploaded historical footage. Videos carry no
// bounding box, so only metadata is returned; the caller skips the
// crop and restoration stages.
func (a *Analyzer) AnalyzeVideo(ctx context.Context, videoData []byte, mimeType string, opts types.ProcessOptions) (types.Metadata, error) {
	var wikiContext string
	var links []types.WikipediaLink

	if a.wiki != nil && opts.Location != "" {
		wikiContext, links = a.fetchLocationContext(ctx, opts.Location)
	}

	prompt := buildVideoPrompt(opts.Location, opts.UserContext, wikiContext)

	raw, err := a.vision.Analyze(ctx, prompt, videoData, mimeType)
	if err != nil {
		return types.Metadata{}, fmt.Errorf("vision analysis failed: %w", err)
	}

	metadata, err := parseMetadata(raw)
	if err != nil {
		return types.Metadata{}, err
	}

	if opts.UserContext != "" && metadata.Notes != "" {
		metadata.Notes += " User context: " + opts.UserContext
	}
	if len(links) > 0 {
		metadata.WikipediaLinks = links
	}

	return metadata, nil
}

// fetchLocationContext gathers encyclopedia context for a location.
// Lookup failures degrade to an empty context; they never fail the run.
func (a *Analyzer) fetchLocationContext(ctx context.Context, location string) (string, []types.WikipediaLink) {
	topics, err := a.wiki.RelatedPages(ctx, location, defaultEra)
	if err != nil {
		log.Printf("wikipedia related-page search failed: %v", err)
	}

	bundle, err := a.wiki.FetchMultiple(ctx, location, defaultEra, topics)
	if err != nil {
		log.Printf("wikipedia fetch failed: %v", err)
		return "", nil
	}
	return bundle.CombinedText, bundle.RelatedPages
}

// fetchTopicLinks resolves auto-extracted metadata topics to pages.
func (a *Analyzer) fetchTopicLinks(ctx context.Context, metadata types.Metadata) []types.WikipediaLink {
	var links []types.WikipediaLink
	for _, topic := range ExtractTopics(metadata) {
		if len(links) == 3 {
			break
		}
		page, err := a.wiki.PageSummary(ctx, topic)
		if err != nil {
			continue
		}
		links = append(links, types.WikipediaLink{Title: page.Title, URL: page.URL, Type: "topic"})
	}
	return links
}

// modelResponse is the JSON contract the analysis prompt asks for. The
// bounding box is deliberately not decoded here.
type modelResponse struct {
	Metadata rawMetadata `json:"metadata"`
}

// rawMetadata tolerates the loose shapes models produce, notably
// clothing_analysis arriving as a plain string instead of an object.
type rawMetadata struct {
	EstimatedYear          string          `json:"estimated_year"`
	Year                   string          `json:"year"`
	Decade                 string          `json:"decade"`
	EstimatedPeriod        string          `json:"estimated_period"`
	HistoricalContext      string          `json:"historical_context"`
	ClothingAnalysis       json.RawMessage `json:"clothing_analysis"`
	SocioeconomicInference string          `json:"socioeconomic_inference"`
	LifestyleInsights      string          `json:"lifestyle_insights"`
	Notes                  string          `json:"notes"`
}

// parseMetadata extracts metadata from the model response text,
// tolerating markdown fences around the JSON body.
func parseMetadata(raw string) (types.Metadata, error) {
	var resp modelResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		return types.Metadata{}, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	m := resp.Metadata
	metadata := types.Metadata{
		EstimatedYear:          m.EstimatedYear,
		EstimatedPeriod:        m.EstimatedPeriod,
		HistoricalContext:      m.HistoricalContext,
		SocioeconomicInference: m.SocioeconomicInference,
		LifestyleInsights:      m.LifestyleInsights,
		Notes:                  m.Notes,
	}

	// Older prompt revisions used "year" or "decade".
	if metadata.EstimatedYear == "" {
		metadata.EstimatedYear = m.Year
	}
	if metadata.EstimatedYear == "" {
		metadata.EstimatedYear = m.Decade
	}
	if metadata.EstimatedYear == "" {
		metadata.EstimatedYear = "Unknown"
	}

	if len(m.ClothingAnalysis) > 0 {
		var clothing types.ClothingAnalysis
		if err := json.Unmarshal(m.ClothingAnalysis, &clothing); err == nil {
			metadata.ClothingAnalysis = clothing
		} else {
			var s string
			if err := json.Unmarshal(m.ClothingAnalysis, &s); err == nil {
				metadata.ClothingAnalysis = types.ClothingAnalysis{Styles: s}
			}
		}
	}

	return metadata, nil
}

// stripFences removes markdown code fences and surrounding prose,
// keeping the outermost JSON object.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
