package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"trans/internal/driver"
	"trans/internal/tir"
	"trans/internal/ui"
)

type lowerOutcome struct {
	result *driver.Result
	err    error
}

// runLowerWithUI lowers crate in the background while a Bubble Tea program
// renders the progress events.
func runLowerWithUI(ctx context.Context, crate *tir.Crate, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan lowerOutcome, 1)

	roots := crate.Roots()
	names := make([]string, len(roots))
	for i, def := range roots {
		names[i] = def.Name
	}

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.Lower(ctx, crate, optsCopy)
		outcomeCh <- lowerOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("lowering "+crate.Name, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the UI may quit early on ctrl+c; keep draining so workers never block
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
