package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/model"
)

func TestInputStep(t *testing.T) {
	ctx := context.Background()

	t.Run("titles the session from the model", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: "  Goroutine Scheduling Basics  "},
		}}
		step := &InputStep{deps: newDeps(t, mock)}

		tc := &flow.ThreadContext{
			ThreadID: "t1",
			State:    flow.ThreadState{InputContent: "How does the Go scheduler distribute goroutines?"},
		}
		res, err := step.Run(ctx, tc)
		if err != nil {
			t.Fatal(err)
		}
		if res.State.DisplayName != "Goroutine Scheduling Basics" {
			t.Errorf("display name = %q", res.State.DisplayName)
		}
		if res.Route.To != flow.StepGeneratingContent {
			t.Errorf("route = %q", res.Route.To)
		}
	})

	t.Run("falls back to leading words on model failure", func(t *testing.T) {
		mock := &model.MockChatModel{Err: errors.New("provider down")}
		step := &InputStep{deps: newDeps(t, mock)}

		tc := &flow.ThreadContext{
			ThreadID: "t1",
			State:    flow.ThreadState{InputContent: "Explain how the garbage collector handles large heap allocations"},
		}
		res, err := step.Run(ctx, tc)
		if err != nil {
			t.Fatal(err)
		}
		if res.State.DisplayName != "Explain how the garbage collector..." {
			t.Errorf("display name = %q", res.State.DisplayName)
		}
	})

	t.Run("short questions keep all words in the fallback", func(t *testing.T) {
		mock := &model.MockChatModel{Err: errors.New("provider down")}
		step := &InputStep{deps: newDeps(t, mock)}

		tc := &flow.ThreadContext{
			ThreadID: "t1",
			State:    flow.ThreadState{InputContent: "What is a mutex?"},
		}
		res, err := step.Run(ctx, tc)
		if err != nil {
			t.Fatal(err)
		}
		if res.State.DisplayName != "What is a mutex?" {
			t.Errorf("display name = %q", res.State.DisplayName)
		}
	})

	t.Run("drops missing and unsupported images", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "Title"}}}
		step := &InputStep{deps: newDeps(t, mock)}

		good := writeImage(t, "page.png")
		webp := writeImage(t, "page.webp")
		tc := &flow.ThreadContext{
			ThreadID: "t1",
			State: flow.ThreadState{
				InputContent: "topic",
				ImagePaths:   []string{good, webp, "/does/not/exist.jpg"},
			},
		}
		res, err := step.Run(ctx, tc)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.State.ImagePaths) != 1 || res.State.ImagePaths[0] != good {
			t.Errorf("image paths = %v", res.State.ImagePaths)
		}
	})
}

func TestContentStep(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the generated material", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: "# Goroutines\n\nLightweight threads."},
		}}
		step := &ContentStep{deps: newDeps(t, mock)}

		tc := &flow.ThreadContext{
			ThreadID: "t1",
			State:    flow.ThreadState{InputContent: "goroutines"},
		}
		res, err := step.Run(ctx, tc)
		if err != nil {
			t.Fatal(err)
		}
		if res.State.GeneratedMaterial != "# Goroutines\n\nLightweight threads." {
			t.Errorf("material = %q", res.State.GeneratedMaterial)
		}
		if res.Route.To != flow.StepRecognition {
			t.Errorf("route = %q", res.Route.To)
		}
	})

	t.Run("model failure fails the step", func(t *testing.T) {
		mock := &model.MockChatModel{Err: errors.New("provider down")}
		step := &ContentStep{deps: newDeps(t, mock)}

		_, err := step.Run(ctx, &flow.ThreadContext{ThreadID: "t1"})
		var svcErr *flow.ServiceError
		if !errors.As(err, &svcErr) {
			t.Fatalf("got %v, want ServiceError", err)
		}
	})
}
