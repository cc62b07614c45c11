package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/emit"
	"github.com/studyflow/studyflow/flow/model"
)

// displayNameWords is the fallback title length when the model cannot
// produce one.
const displayNameWords = 5

// imageExts are the note-photo formats accepted for recognition.
// WebP is rejected because the vision adapters do not take it.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".pdf":  true,
}

// InputStep screens the incoming topic, derives a short session title,
// and drops image paths that do not point at a readable supported file.
type InputStep struct {
	deps *Deps
}

// Name implements flow.Step.
func (s *InputStep) Name() string { return flow.StepInputProcessing }

// Run implements flow.Step.
func (s *InputStep) Run(ctx context.Context, tc *flow.ThreadContext) (flow.StepResult, error) {
	state := tc.State
	state.InputContent = s.deps.sanitize(ctx, tc.ThreadID, state.InputContent)
	state.DisplayName = s.displayName(ctx, tc.ThreadID, state.InputContent)
	state.ImagePaths = validImages(state.ImagePaths)

	return flow.StepResult{State: state, Route: flow.Goto(flow.StepGeneratingContent)}, nil
}

// displayName asks the model for a short title. A model failure is not
// worth failing the run over: fall back to the leading words of the
// question.
func (s *InputStep) displayName(ctx context.Context, threadID, input string) string {
	prompt := fmt.Sprintf(`Create a brief title (3-5 words) for the following exam question:
%q

Requirements:
- Maximum 5 words
- Reflects the essence of the question
- No special characters or punctuation
- On the same language as the question

Answer only the name, without explanations.`, input)

	out, err := s.deps.Chat.Chat(ctx, []model.Message{model.User(prompt)})
	if err == nil {
		if name := strings.TrimSpace(out.Text); name != "" {
			return name
		}
	}
	s.deps.emitter().Emit(emit.Event{
		ThreadID: threadID,
		StepID:   flow.StepInputProcessing,
		Msg:      "display_name_fallback",
		Meta:     map[string]interface{}{"error": fmt.Sprint(err)},
	})

	words := strings.Fields(input)
	if len(words) > displayNameWords {
		return strings.Join(words[:displayNameWords], " ") + "..."
	}
	return strings.Join(words, " ")
}

func validImages(paths []string) []string {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if !imageExts[strings.ToLower(filepath.Ext(p))] {
			continue
		}
		out = append(out, p)
	}
	return out
}
