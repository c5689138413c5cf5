package analysis

import "fmt"

// buildPrompt assembles the analysis prompt. The model must return the
// photograph's bounding box in pixel coordinates plus historical
// metadata, as a single JSON object.
func buildPrompt(width, height int, location, userContext, wikipediaContext string) string {
	historicalSection := ""
	if wikipediaContext != "" {
		historicalSection = fmt.Sprintf(`

HISTORICAL CONTEXT (for reference):
%s

Use this historical context to inform your analysis of the photo, especially regarding the era, location, and cultural context.
`, wikipediaContext)
	}

	locationTask := ""
	locationLine := ""
	if location != "" {
		locationTask = fmt.Sprintf("6. How location (%s) relates to the photo\n", location)
		locationLine = "Location: " + location + "\n"
	}

	contextLine := ""
	if userContext != "" {
		contextLine = "User context: " + userContext + "\n"
	}

	return fmt.Sprintf(`Analyze this image containing an old physical photograph.

BOUNDING BOX DETECTION:
Detect the complete rectangular boundaries of the physical photograph (all four edges: top, bottom, left, right).
- Include: photo paper edges, corners, white borders
- Exclude: cloth/fabric, table surfaces, shadows, background objects
- Capture the ENTIRE photo from edge to edge

ANALYSIS TASKS:
1. Bounding box coordinates (x, y, width, height) in pixels relative to %dx%d
2. Estimated year (single year or narrow range)
3. Clothing analysis: styles, materials, quality, significance
4. Socioeconomic inference from visual cues
5. Lifestyle insights
%s%s%s%s
Respond with ONLY valid JSON:
{
    "bounding_box": {"x": <int>, "y": <int>, "width": <int>, "height": <int>},
    "metadata": {
        "estimated_year": "<year or range>",
        "historical_context": "<narrative context - NO URLs>",
        "clothing_analysis": {
            "styles": "<description>",
            "materials": "<materials>",
            "quality": "<assessment>",
            "significance": "<what clothing tells us>"
        },
        "socioeconomic_inference": "<economic status inference>",
        "lifestyle_insights": "<lifestyle analysis>",
        "notes": "<detailed narrative combining visual + historical analysis>"
    }
}

Coordinates: x=left edge, y=top edge, width=left-to-right distance, height=top-to-bottom distance.
`, width, height, locationTask, historicalSection, locationLine, contextLine)
}

// buildVideoPrompt assembles the prompt for historical footage. Videos
// have no bounding box; the model returns metadata only.
func buildVideoPrompt(location, userContext, wikipediaContext string) string {
	historicalSection := ""
	if wikipediaContext != "" {
		historicalSection = fmt.Sprintf(`

HISTORICAL CONTEXT:
%s
`, wikipediaContext)
	}

	locationTask := ""
	locationLine := ""
	if location != "" {
		locationTask = fmt.Sprintf("7. How location (%s) relates to what we see\n", location)
		locationLine = "Location: " + location + "\n"
	}

	contextLine := ""
	if userContext != "" {
		contextLine = "User context: " + userContext + "\n"
	}

	return fmt.Sprintf(`Analyze this historical video/film footage.

ANALYSIS TASKS:
1. Estimated year/era (single year or narrow range)
2. Historical context about the location and era
3. Clothing/styles visible in the video
4. Socioeconomic inference from visual cues
5. Lifestyle insights
6. Notable events, activities, or cultural elements
%s%s%s%s
Respond with ONLY valid JSON:
{
    "metadata": {
        "estimated_year": "<year or range>",
        "historical_context": "<narrative context - NO URLs>",
        "clothing_analysis": {
            "styles": "<description>",
            "materials": "<materials>",
            "quality": "<assessment>",
            "significance": "<what clothing tells us>"
        },
        "socioeconomic_inference": "<economic status inference>",
        "lifestyle_insights": "<lifestyle analysis>",
        "notes": "<detailed narrative combining visual + historical analysis>"
    }
}
`, locationTask, historicalSection, locationLine, contextLine)
}
