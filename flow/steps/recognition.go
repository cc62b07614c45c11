package steps

import (
	"context"
	"os"
	"strings"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/emit"
)

// minNotesLength is the shortest typed-notes text treated as real
// notes. Anything shorter (including "skip") skips the synthesis stage.
const minNotesLength = 50

// reasoningMarker separates a vision model's scratch reasoning from the
// transcription it settles on.
const reasoningMarker = "[END OF REASONING]"

const notesRequest = "📸 To improve material quality, you can add notes from classes.\n\n" +
	"Action options:\n" +
	"• Send photos of notes or paste text (at least 50 characters)\n" +
	"• Materials accepted in any format (excluded .webp)\n" +
	"• Write 'skip' to continue without notes"

// RecognitionStep turns the student's class notes into text. With
// images attached it transcribes them; without, it asks the student
// once for photos or typed notes. Recognition failures are never fatal:
// the pipeline continues with the generated material alone.
type RecognitionStep struct {
	deps *Deps
}

// Name implements flow.Step.
func (s *RecognitionStep) Name() string { return flow.StepRecognition }

// Run implements flow.Step.
func (s *RecognitionStep) Run(ctx context.Context, tc *flow.ThreadContext) (flow.StepResult, error) {
	state := tc.State

	if tc.Resume != nil {
		return s.handleNotes(tc, state)
	}

	if len(state.ImagePaths) > 0 {
		text := s.recognize(ctx, tc.ThreadID, state.ImagePaths)
		if text == "" {
			return skipSynthesis(state), nil
		}
		state.RecognizedNotes = text
		return flow.StepResult{State: state, Route: flow.Goto(flow.StepSynthesis)}, nil
	}

	return flow.StepResult{State: state, Suspend: flow.NewSuspension(notesRequest)}, nil
}

// handleNotes processes the student's reply to the notes request. Fresh
// image attachments restart recognition; typed text under the length
// floor counts as a skip.
func (s *RecognitionStep) handleNotes(tc *flow.ThreadContext, state flow.ThreadState) (flow.StepResult, error) {
	if len(tc.Resume.ImagePaths) > 0 {
		state.ImagePaths = validImages(tc.Resume.ImagePaths)
		if len(state.ImagePaths) > 0 {
			return flow.StepResult{State: state, Route: flow.Goto(flow.StepRecognition)}, nil
		}
	}

	text := strings.TrimSpace(tc.Resume.Feedback)
	if len([]rune(text)) < minNotesLength {
		return skipSynthesis(state), nil
	}
	state.RecognizedNotes = text
	return flow.StepResult{State: state, Route: flow.Goto(flow.StepSynthesis)}, nil
}

// recognize transcribes the note images. Returns "" on any failure.
func (s *RecognitionStep) recognize(ctx context.Context, threadID string, paths []string) string {
	if s.deps.Vision == nil {
		return ""
	}

	var images [][]byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			s.deps.emitter().Emit(emit.Event{
				ThreadID: threadID,
				StepID:   flow.StepRecognition,
				Msg:      "image_load_failed",
				Meta:     map[string]interface{}{"path": p, "error": err.Error()},
			})
			continue
		}
		images = append(images, data)
	}
	if len(images) == 0 {
		return ""
	}

	prompt, err := s.deps.renderPrompt(ctx, threadID, flow.StepRecognition, nil)
	if err != nil {
		s.emitFailure(threadID, err)
		return ""
	}

	out, err := flow.Retry(ctx, s.deps.retryPolicy(), "vision model", func(ctx context.Context) (string, error) {
		res, err := s.deps.Vision.RecognizeImages(ctx, prompt, images)
		return res.Text, err
	})
	if err != nil {
		s.emitFailure(threadID, err)
		return ""
	}

	text := stripReasoning(strings.TrimSpace(out))
	if text == "" {
		return ""
	}
	return s.deps.sanitize(ctx, threadID, text)
}

func (s *RecognitionStep) emitFailure(threadID string, err error) {
	s.deps.emitter().Emit(emit.Event{
		ThreadID: threadID,
		StepID:   flow.StepRecognition,
		Msg:      "recognition_failed",
		Meta:     map[string]interface{}{"error": err.Error()},
	})
}

// skipSynthesis routes past synthesis and editing setup with the
// generated material standing in for the synthesized document.
func skipSynthesis(state flow.ThreadState) flow.StepResult {
	state.RecognizedNotes = ""
	state.SynthesizedMaterial = state.GeneratedMaterial
	return flow.StepResult{State: state, Route: flow.Goto(flow.StepGeneratingQuestions)}
}

// stripReasoning drops everything up to the reasoning marker. An empty
// remainder falls back to the full text.
func stripReasoning(text string) string {
	_, after, found := strings.Cut(text, reasoningMarker)
	if !found {
		return text
	}
	if trimmed := strings.TrimSpace(after); trimmed != "" {
		return trimmed
	}
	return text
}
