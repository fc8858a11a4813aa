package main

import (
	"fmt"
	"io"
	"log/slog"

	"vybe/interpreter-go/pkg/runtime"
)

// renderEffects writes console-visible side effects to w. UI effects have
// no terminal rendering and are logged at debug level.
func renderEffects(w io.Writer, logger *slog.Logger, effects []runtime.SideEffect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case runtime.ConsoleOutput:
			io.WriteString(w, e.Text)
		case runtime.MsgBox:
			fmt.Fprintf(w, "[MsgBox] %s\n", e.Text)
		case runtime.ConsoleClear:
			io.WriteString(w, "\x1b[H\x1b[2J")
		default:
			logger.Debug("side effect", "type", fmt.Sprintf("%T", effect), "effect", fmt.Sprintf("%+v", effect))
		}
	}
}
