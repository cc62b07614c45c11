// Package prompt renders the instruction text fed to models, either
// from a remote prompt configuration service or from built-in
// templates.
package prompt

import (
	"context"
	"fmt"
	"strings"
	"text/template"
)

// Renderer produces the prompt for a pipeline step. The vars map is the
// template substitution context (input content, material, questions and
// so on, keyed by snake_case names).
type Renderer interface {
	Render(ctx context.Context, userID, stepName string, vars map[string]any) (string, error)
}

// StaticRenderer renders prompts from in-process text templates. It
// backs dev runs and tests, and serves as the fallback-free default
// when no prompt service is configured.
type StaticRenderer struct {
	templates map[string]*template.Template
}

// NewStaticRenderer parses the given step templates. Use
// DefaultTemplates for the built-in set.
func NewStaticRenderer(sources map[string]string) (*StaticRenderer, error) {
	parsed := make(map[string]*template.Template, len(sources))
	for step, src := range sources {
		tpl, err := template.New(step).Option("missingkey=zero").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("prompt: parse template %q: %w", step, err)
		}
		parsed[step] = tpl
	}
	return &StaticRenderer{templates: parsed}, nil
}

// Render implements Renderer.
func (r *StaticRenderer) Render(ctx context.Context, userID, stepName string, vars map[string]any) (string, error) {
	tpl, ok := r.templates[stepName]
	if !ok {
		return "", fmt.Errorf("prompt: no template for step %q", stepName)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("prompt: render %q: %w", stepName, err)
	}
	return b.String(), nil
}

// DefaultTemplates returns the built-in prompt set covering every
// pipeline step that talks to a model.
func DefaultTemplates() map[string]string {
	return map[string]string{
		"generating_content": `You are an experienced tutor preparing study material.

Write a thorough, well-structured study document in markdown on the topic below. Cover the core concepts, give concrete examples, and keep the tone clear and practical.

Topic:
{{.input_content}}`,

		"recognition_handwritten": `Transcribe the handwritten notes in the attached images into clean markdown text. Preserve the structure (headings, lists, formulas) as faithfully as possible. Output only the transcription.`,

		"synthesis_material": `Merge the generated study material with the student's own notes into a single coherent document. Keep all substantive content from both sources, remove duplication, and preserve markdown structure.

Generated material:
{{.generated_material}}

Student notes:
{{.recognized_notes}}`,

		"edit_material": `You are editing a study document on the student's request. Follow the editing conversation and respond with exactly the JSON object the latest instruction asks for, nothing else. When extracting text to replace, quote the document verbatim.

Document:
{{.synthesized_material}}`,

		"generating_questions": `Based on the study material below, write assessment questions that check understanding of its key points. Output one question per line, no numbering.

Material:
{{.synthesized_material}}`,

		"answer_question": `Answer the following assessment question using the study material as the source of truth. Be complete but concise.

Material:
{{.synthesized_material}}

Question:
{{.question}}`,
	}
}
