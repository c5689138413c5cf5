package restoration

import (
	"fmt"
	"unicode/utf8"

	"github.com/darkroomhq/darkroom/pkg/types"
)

func restorationPrompt(metadata types.Metadata, colorize bool) string {
	colorizeInstruction := "Keep the original color scheme."
	if colorize {
		colorizeInstruction = "Colorize this black and white photograph with historically accurate colors."
	}

	contextLine := ""
	if metadata.Notes != "" {
		contextLine = "Context: " + metadata.Notes
	}

	return fmt.Sprintf(`Restore and enhance this vintage photograph from %s (%s).

%s

RESTORATION:
- Remove scratches, dust, damage, fading, discoloration
- Enhance clarity, sharpness, and missing details
- Maintain historical authenticity

EXTENSION (CONSERVATIVE):
- Only extend elements already partially visible
- Continue visible patterns/textures/structures
- Keep historically accurate for %s

CRITICAL - PRESERVE BACKGROUNDS:
- Keep white/blank/empty backgrounds exactly as they appear
- Do NOT add new objects or scenes to empty areas
- Preserve original composition, poses, expressions

%s

Output: Complete restored version with damage repaired. Extend only partially visible elements. Preserve white/blank backgrounds.
`, metadata.EstimatedYear, metadata.EstimatedPeriod, colorizeInstruction, metadata.EstimatedPeriod, contextLine)
}

func animationPrompt(metadata types.Metadata) string {
	// Cap at runes, not bytes, so multi-byte notes stay valid UTF-8.
	notes := metadata.Notes
	if utf8.RuneCountInString(notes) > 200 {
		notes = string([]rune(notes)[:200])
	}
	contextLine := ""
	if notes != "" {
		contextLine = "Context: " + notes
	}

	return fmt.Sprintf(`Bring this historical photograph from %s (%s) to life as a short cinematic video.

ANIMATION REQUIREMENTS:
- Animate the PEOPLE and SUBJECTS in the scene - they should move naturally
- Subtle, realistic motion: gentle breathing, slight head movements, natural gestures
- People should appear alive and present, not frozen
- If there are multiple people, show natural interaction between them
- Animate any visible elements: clothing movement, hair swaying, natural body language

CAMERA:
- Very subtle camera movement only - the focus should be on the subjects moving
- Avoid excessive zooming or panning
- Keep the composition similar to the original photograph

STYLE:
- Cinematic, respectful, historically accurate
- Preserve the original mood and atmosphere
- Period-appropriate movement and behavior
- Natural lighting and shadows that move subtly

%s

IMPORTANT: The people in the photograph must move and come to life. Do not just zoom or pan the camera - animate the subjects themselves.
`, metadata.EstimatedYear, metadata.EstimatedPeriod, contextLine)
}
