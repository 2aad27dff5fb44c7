package tryon

import (
	"fmt"
	"strings"

	"tryon/internal/domain"
)

// DefaultGarmentDescription fills in when the user supplies none.
const DefaultGarmentDescription = "A cool outfit"

// garmentHints maps a garment category to the phrase appended to the
// description so the model knows the intended cut and length.
var garmentHints = map[domain.GarmentType]string{
	domain.GarmentLongDress:  "long dress (full length)",
	domain.GarmentShortDress: "short dress (above the knees)",
	domain.GarmentLongSkirt:  "long skirt (ankle length)",
	domain.GarmentShortSkirt: "short skirt (above the knees)",
	domain.GarmentShirt:      "top",
	domain.GarmentPants:      "pants",
	domain.GarmentJacket:     "jacket or coat",
}

const identityLock = "Preserve the original person's face and identity with 100% accuracy, " +
	"perform the swap only on the garment regions. The face, eyes, nose, lips, and hair " +
	"are reference-locked. They must be a 1:1 match with the input photo."

const makeoverDirective = " IMPORTANT: The user wants a complete makeover. REMOVE any existing " +
	"pants, trousers, or bottom garments the person is wearing and show bare legs if the new " +
	"garment is a dress or skirt. CHANGE the shoes to be fashionable and matching the new outfit."

// PromptInput carries the user-controlled pieces of the prompt.
type PromptInput struct {
	Description string
	Garment     domain.GarmentType
	Makeover    bool
}

// GarmentDescription combines the free-text description with the category
// hint phrase.
func GarmentDescription(in PromptInput) string {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = DefaultGarmentDescription
	}
	if hint := garmentHints[in.Garment]; hint != "" {
		return fmt.Sprintf("%s. The garment is a %s", desc, hint)
	}
	return desc
}

// BasePrompt renders the single-image prompt.
func BasePrompt(in PromptInput) string {
	prompt := fmt.Sprintf("A photo of a person wearing %s. The person is wearing the garment "+
		"shown in the second image. High quality, realistic. MANDATORY: Preserve the person's "+
		"identity, facial features, and hairstyle from the first image EXACTLY. Do not alter "+
		"the face, skin tone, or hair. Only modify the clothing area.", GarmentDescription(in))
	if in.Makeover {
		prompt += makeoverDirective
	}
	return prompt
}

// ViewPrompts renders the three multi-view prompt variants in the semantic
// order front, side, full.
func ViewPrompts(in PromptInput) [3]string {
	desc := GarmentDescription(in)
	return [3]string{
		"Upper body shot, framing the subject from the top of the head down to the hips. " +
			"Ensure the full torso and the garment are visible. The frame should cut off at " +
			"the hip line or upper thighs. High quality, realistic. " + identityLock,
		fmt.Sprintf("Side profile view of a person wearing %s. The person is wearing the "+
			"garment shown in the second image. High quality, realistic. %s", desc, identityLock),
		fmt.Sprintf("Full body, head-to-toe shot of a person wearing %s. The full body must "+
			"be visible from head to feet, including legs and shoes, not cropped. The person "+
			"is wearing the garment shown in the second image. High quality, realistic. %s",
			desc, identityLock),
	}
}

// EnsureDataURI normalizes an image reference for the generation payload.
// Remote URLs and existing data URIs pass through; bare base64 gets the PNG
// data-URI prefix.
func EnsureDataURI(img string) string {
	img = strings.TrimSpace(img)
	if img == "" {
		return img
	}
	if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") || strings.HasPrefix(img, "data:") {
		return img
	}
	return "data:image/png;base64," + img
}
