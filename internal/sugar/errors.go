package sugar

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ErrorModel is a model that can end with an error of its own.
type ErrorModel interface {
	tea.Model
	GetError() error
}

func RunProgramWithErrors(model ErrorModel, opts ...tea.ProgramOption) (resultModel tea.Model, err error) {
	resultModel, teaErr := tea.NewProgram(model, opts...).Run()
	if errorModel, ok := resultModel.(ErrorModel); ok {
		err = errorModel.GetError()
	}

	// Bubble Tea errors override model errors
	if teaErr != nil {
		err = teaErr
	}

	return
}
