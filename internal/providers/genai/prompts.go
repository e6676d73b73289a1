package genai

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"xstream/internal/controls"
	"xstream/internal/domain"
)

const (
	faceSwapInstruction = "Replace the face of the person in the first image with the face from the second image. " +
		"Keep the body, pose, hair, clothing, lighting and background of the first image unchanged. " +
		"Match skin tone and lighting so the result looks like a single photograph."

	clothingSwapInstruction = "Dress the person in the first image in the garment shown in the second image. " +
		"Keep the person's face, pose, body shape and the background unchanged. " +
		"The garment must fit naturally, with realistic folds, shadows and lighting."

	removeBackgroundInstruction = "Remove the background from this image. Keep only the main subject with clean, " +
		"precise edges and return it on a fully transparent background."

	compositeImageInstruction = "Place the subject from the first image onto the background shown in the second image. " +
		"Match the perspective, scale, lighting and shadows so the subject looks naturally part of the scene."

	compositePromptInstruction = "Place the subject from this image onto a new background: %s. " +
		"Match the perspective, scale, lighting and shadows so the subject looks naturally part of the scene."

	assistantSystemPrompt = "You are a creative assistant for visual artists. Describe the generated image, " +
		"suggest how it could be developed further, and keep the answer concise and practical."

	lyricsSystemPrompt = "You are a songwriter. Write short, evocative song lyrics with a title, " +
		"two verses and a chorus. Return only the lyrics."

	draftSystemPrompt = "You turn rough ideas into a single detailed prompt for an image generation model. " +
		"Describe subject, composition, setting, colours and details. Return only the prompt text, without quotes or commentary."
)

// ImagePrompt folds the creative controls into the user's prompt.
func ImagePrompt(prompt string, c controls.Controls) string {
	prompt = strings.TrimSpace(prompt)
	descriptors := c.Descriptors()
	if len(descriptors) == 0 {
		return prompt
	}
	return prompt + ". " + strings.Join(descriptors, ", ") + "."
}

// AssistantTextRequest asks for the conversational answer about a freshly
// generated image.
func AssistantTextRequest(idea string, img *domain.ImageFile, locale string) TextRequest {
	prompt := fmt.Sprintf("The image was generated from this idea: %q. Describe it and suggest next steps.", strings.TrimSpace(idea))
	return TextRequest{System: assistantSystemPrompt, Prompt: withLanguage(prompt, locale), Image: img}
}

// LyricsTextRequest asks for song lyrics in the selected genre.
func LyricsTextRequest(idea string, c controls.Controls, locale string) TextRequest {
	prompt := fmt.Sprintf("Write song lyrics inspired by: %q.", strings.TrimSpace(idea))
	if c.HasGenre() {
		prompt += fmt.Sprintf(" The genre is %s.", c.Genre)
	}
	if c.Mood != "" && c.Mood != controls.DefaultCatalog().Default(controls.FieldMood) {
		prompt += fmt.Sprintf(" The mood is %s.", strings.ToLower(c.Mood))
	}
	return TextRequest{System: lyricsSystemPrompt, Prompt: withLanguage(prompt, locale)}
}

// IsLyrics reports whether req was built by LyricsTextRequest.
func (r TextRequest) IsLyrics() bool {
	return r.System == lyricsSystemPrompt
}

func draftUserPrompt(req DraftRequest) string {
	text := fmt.Sprintf("Idea: %s", strings.TrimSpace(req.Idea))
	if descriptors := req.Controls.Descriptors(); len(descriptors) > 0 {
		text += "\nStyle: " + strings.Join(descriptors, ", ")
	}
	return withLanguage(text, req.Locale)
}

// withLanguage asks for an answer in the locale's language. English and
// unparsable locales leave the prompt untouched.
func withLanguage(prompt, locale string) string {
	name := LanguageName(locale)
	if name == "" || name == "English" {
		return prompt
	}
	return prompt + " Answer in " + name + "."
}

// LanguageName returns the English name of the locale's base language.
func LanguageName(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return display.English.Languages().Name(language.Make(base.String()))
}
