package types

// ClothingAnalysis describes the clothing visible in a photograph.
type ClothingAnalysis struct {
	Styles       string `json:"styles"`
	Materials    string `json:"materials"`
	Quality      string `json:"quality"`
	Significance string `json:"significance"`
}

// WikipediaLink points at an encyclopedia page related to a photo.
// Type is "location" or "topic".
type WikipediaLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Metadata contains the historical metadata inferred for a photograph.
type Metadata struct {
	EstimatedYear          string           `json:"estimated_year"`
	EstimatedPeriod        string           `json:"estimated_period,omitempty"`
	HistoricalContext      string           `json:"historical_context,omitempty"`
	ClothingAnalysis       ClothingAnalysis `json:"clothing_analysis,omitempty"`
	SocioeconomicInference string           `json:"socioeconomic_inference,omitempty"`
	LifestyleInsights      string           `json:"lifestyle_insights,omitempty"`
	Notes                  string           `json:"notes,omitempty"`
	WikipediaLinks         []WikipediaLink  `json:"wikipedia_links,omitempty"`
}

// AnalysisResult is the outcome of analyzing an uploaded scan.
// BoxText is the raw bounding-box JSON text from the model, kept
// unparsed so the normalizer owns all interpretation of it.
type AnalysisResult struct {
	BoxText  string   `json:"-"`
	Metadata Metadata `json:"metadata"`
}

// ProcessOptions carries the optional form inputs for a restoration run.
type ProcessOptions struct {
	Location    string
	UserContext string
	Colorize    bool
}
