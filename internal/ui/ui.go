package ui

import (
	"fmt"

	"github.com/pterm/pterm"
)

// Quiet disables spinners, for verbose runs where log lines would tear them.
var Quiet bool

func StepSpinner[T any](title string, fn func() (T, error)) (T, error) {
	if Quiet {
		return fn()
	}

	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(false).Start(title)
	res, err := fn()
	if err != nil {
		spinner.Fail(fmt.Sprintf("%s: %v", title, err))
		return res, err
	}
	spinner.Success(title)
	return res, nil
}

func Success(format string, args ...interface{}) {
	pterm.Success.Println(fmt.Sprintf(format, args...))
}

func Warning(format string, args ...interface{}) {
	pterm.Warning.Println(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	pterm.Error.Println(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	pterm.Info.Println(fmt.Sprintf(format, args...))
}

// Table prints rows under a header row.
func Table(header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
