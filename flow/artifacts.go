package flow

import (
	"strings"

	"github.com/studyflow/studyflow/flow/artifact"
)

// Pipeline step names. They double as checkpoint cursors and
// artifact-rule keys.
const (
	StepInputProcessing     = "input_processing"
	StepGeneratingContent   = "generating_content"
	StepRecognition         = "recognition_handwritten"
	StepSynthesis           = "synthesis_material"
	StepEditMaterial        = "edit_material"
	StepGeneratingQuestions = "generating_questions"
	StepAnswerQuestion      = "answer_question"
)

// LastAction tags.
const (
	ActionEdit      = "edit"
	ActionMessage   = "message"
	ActionComplete  = "complete"
	ActionSkipHITL  = "skip_hitl"
	ActionEditError = "edit_error"
)

// DefaultArtifactRules binds the pipeline steps to the documents they
// publish. Edited material overwrites the synthesized-material artifact
// under the same kind, so its link is re-announced after each applied
// edit.
func DefaultArtifactRules() []artifact.Rule[ThreadState] {
	return []artifact.Rule[ThreadState]{
		{
			Step: StepGeneratingContent,
			When: func(s ThreadState) bool { return s.GeneratedMaterial != "" },
			Render: func(s ThreadState) artifact.Doc {
				return artifact.Doc{
					Kind:    "generated_material",
					Label:   "📚 Generated material",
					File:    "generated_material.md",
					Content: s.GeneratedMaterial,
				}
			},
		},
		{
			Step: StepRecognition,
			When: func(s ThreadState) bool { return s.RecognizedNotes != "" },
			Render: func(s ThreadState) artifact.Doc {
				return artifact.Doc{
					Kind:    "recognized_notes",
					Label:   "📝 Recognized notes",
					File:    "recognized_notes.md",
					Content: s.RecognizedNotes,
				}
			},
		},
		{
			Step: StepSynthesis,
			When: func(s ThreadState) bool { return s.SynthesizedMaterial != "" },
			Render: func(s ThreadState) artifact.Doc {
				return artifact.Doc{
					Kind:    "synthesized_material",
					Label:   "🔄 Concatenation",
					File:    "synthesized_material.md",
					Content: s.SynthesizedMaterial,
				}
			},
		},
		{
			Step: StepEditMaterial,
			When: func(s ThreadState) bool { return s.LastAction == ActionEdit && s.SynthesizedMaterial != "" },
			Render: func(s ThreadState) artifact.Doc {
				return artifact.Doc{
					Kind:    "synthesized_material",
					Label:   "✏️ Edited material",
					File:    "synthesized_material.md",
					Content: s.SynthesizedMaterial,
				}
			},
		},
		{
			Step: StepGeneratingQuestions,
			When: func(s ThreadState) bool { return len(s.Questions) > 0 },
			Render: func(s ThreadState) artifact.Doc {
				return artifact.Doc{
					Kind:    "questions",
					Label:   "❓ Assessment questions",
					File:    "questions.md",
					Content: strings.Join(s.Questions, "\n"),
				}
			},
		},
		{
			Step: StepAnswerQuestion,
			When: func(s ThreadState) bool { return len(s.QuestionsAndAnswers) > 0 },
			Render: func(s ThreadState) artifact.Doc {
				return artifact.Doc{
					Kind:    "questions_and_answers",
					Label:   "✅ Questions with answers",
					File:    "questions_and_answers.md",
					Content: strings.Join(s.QuestionsAndAnswers, "\n\n"),
				}
			},
		},
	}
}
