// Package flow implements the resumable workflow engine driving the
// educational-content pipeline: a trampoline executor over step
// handlers with durable checkpoint/suspend/resume semantics, fan-out
// merging, HITL gating, and artifact dispatch.
package flow

// ThreadState is the accumulated state of one workflow thread. It is
// the unit of checkpointing: the whole struct is snapshotted at every
// step boundary.
type ThreadState struct {
	// InputContent is the topic or material request that started the run.
	InputContent string `json:"input_content"`

	// DisplayName is a short human-readable name derived from the input.
	DisplayName string `json:"display_name,omitempty"`

	// ImagePaths are user-supplied handwritten-note images awaiting
	// recognition.
	ImagePaths []string `json:"image_paths,omitempty"`

	GeneratedMaterial   string `json:"generated_material,omitempty"`
	RecognizedNotes     string `json:"recognized_notes,omitempty"`
	SynthesizedMaterial string `json:"synthesized_material,omitempty"`

	Questions []string `json:"questions,omitempty"`

	// QuestionsAndAnswers is append-only: fan-out children contribute
	// entries in completion order.
	QuestionsAndAnswers []string `json:"questions_and_answers,omitempty"`

	// FeedbackMessages is the feedback-pattern conversation history for
	// whichever step currently owns the cursor. Cleared on approval.
	FeedbackMessages []StateMessage `json:"feedback_messages,omitempty"`

	// EditCount counts successfully applied document edits. Monotonic.
	EditCount int `json:"edit_count"`

	NeedsUserInput bool   `json:"needs_user_input"`
	AgentMessage   string `json:"agent_message,omitempty"`

	// LastAction tags the most recent step effect:
	// edit | message | complete | skip_hitl | edit_error.
	LastAction string `json:"last_action,omitempty"`
}

// StateMessage is a role-tagged message in the feedback history.
type StateMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Clone returns a deep copy. Steps receive a copy so partial work on a
// failing step never leaks into the checkpointed state.
func (s ThreadState) Clone() ThreadState {
	out := s
	out.ImagePaths = cloneStrings(s.ImagePaths)
	out.Questions = cloneStrings(s.Questions)
	out.QuestionsAndAnswers = cloneStrings(s.QuestionsAndAnswers)
	if s.FeedbackMessages != nil {
		out.FeedbackMessages = make([]StateMessage, len(s.FeedbackMessages))
		copy(out.FeedbackMessages, s.FeedbackMessages)
	}
	return out
}

// AppendFeedback returns the state with a message appended to the
// feedback history.
func (s *ThreadState) AppendFeedback(role, content string) {
	s.FeedbackMessages = append(s.FeedbackMessages, StateMessage{Role: role, Content: content})
}

// ClearFeedback drops the feedback history, marking the owning step's
// conversation as approved.
func (s *ThreadState) ClearFeedback() {
	s.FeedbackMessages = nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
