// Package boundingbox converts bounding boxes reported by vision models
// into canonical pixel-space rectangles.
//
// Models answer in several dialects: coordinates may be normalized [0,1]
// fractions or absolute pixels, the four values may be (x,y,width,height),
// (x0,y0,x1,y1) or (left,top,right,bottom), the object may sit under a
// "bounding_box" wrapper, and the JSON is often wrapped in markdown code
// fences with explanatory prose around it. Normalize accepts all of that
// and produces a single clamped, non-degenerate pixel rectangle, or a
// typed error. It never guesses a fallback rectangle: a bad model answer
// must surface to the caller, not turn into a silent garbage crop.
package boundingbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
)

var (
	// ErrParse indicates the response text is not valid JSON after
	// fence-stripping.
	ErrParse = errors.New("bounding box response is not valid JSON")

	// ErrSchema indicates no recognized coordinate field convention
	// was found in the parsed document.
	ErrSchema = errors.New("no recognized bounding box fields")

	// ErrDegenerateBox indicates the clamped rectangle has zero or
	// negative width or height.
	ErrDegenerateBox = errors.New("degenerate bounding box")
)

// Rect is the canonical pixel-space rectangle: absolute integer corners,
// clamped to image bounds, with Left < Right and Top < Bottom.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the rectangle width in pixels.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the rectangle height in pixels.
func (r Rect) Height() int { return r.Bottom - r.Top }

// ImageRect converts the rectangle to a stdlib image.Rectangle.
func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// Normalize parses a raw model response and returns the canonical
// rectangle in pixel space for an imageWidth x imageHeight source.
//
// The result is a pure function of its inputs: the same text and
// dimensions always yield the same rectangle or the same error.
func Normalize(rawText string, imageWidth, imageHeight int) (Rect, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return Rect{}, fmt.Errorf("invalid image dimensions %dx%d", imageWidth, imageHeight)
	}

	doc, err := parseDocument(rawText)
	if err != nil {
		return Rect{}, err
	}

	quad, ok := locateBox(doc)
	if !ok {
		return Rect{}, fmt.Errorf("%w in model response", ErrSchema)
	}

	left, top, right, bottom := quad.corners()
	if isNormalized(quad.values()) {
		left *= float64(imageWidth)
		right *= float64(imageWidth)
		top *= float64(imageHeight)
		bottom *= float64(imageHeight)
	}

	rect := Rect{
		Left:   int(math.Round(left)),
		Top:    int(math.Round(top)),
		Right:  int(math.Round(right)),
		Bottom: int(math.Round(bottom)),
	}

	// Clamp to image bounds.
	rect.Left = max(0, rect.Left)
	rect.Top = max(0, rect.Top)
	rect.Right = min(imageWidth, rect.Right)
	rect.Bottom = min(imageHeight, rect.Bottom)

	if rect.Right <= rect.Left || rect.Bottom <= rect.Top {
		return Rect{}, fmt.Errorf("%w: (%d,%d)-(%d,%d) after clamping to %dx%d",
			ErrDegenerateBox, rect.Left, rect.Top, rect.Right, rect.Bottom, imageWidth, imageHeight)
	}

	return rect, nil
}

// parseDocument strips markdown fences and surrounding prose, then
// parses the remaining text as a JSON object.
func parseDocument(raw string) (map[string]any, error) {
	raw = stripFences(raw)

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return doc, nil
}

// stripFences removes triple-backtick fences (with optional language tag,
// with or without trailing newline) and keeps only the outermost {...}
// so prose around the JSON body is dropped.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		} else {
			raw = strings.TrimPrefix(raw, "```")
			raw = strings.TrimPrefix(raw, "json")
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
