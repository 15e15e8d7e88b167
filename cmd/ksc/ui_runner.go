package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ksc/internal/buildpipeline"
	"ksc/internal/ui"
)

type buildOutcome struct {
	result   buildpipeline.BuildResult
	err      error
	panicked any
}

// runBuildWithUI runs Build in the background while a progress view
// consumes its events. A panic in the build is re-raised here.
func runBuildWithUI(ctx context.Context, title string, files []string, req *buildpipeline.BuildRequest) (buildpipeline.BuildResult, error) {
	if req == nil {
		return buildpipeline.BuildResult{}, fmt.Errorf("missing build request")
	}
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				outcomeCh <- buildOutcome{panicked: r}
			}
		}()
		reqCopy := *req
		reqCopy.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := buildpipeline.Build(ctx, &reqCopy)
		outcomeCh <- buildOutcome{result: res, err: err}
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if outcome.panicked != nil {
		panic(outcome.panicked)
	}
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
