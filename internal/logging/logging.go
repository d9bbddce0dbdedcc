// Package logging provides the leveled logger every other package writes
// through: the VM's debug sink and PRINT's destination (the runner hands
// its logger to every VM it builds). Colorized with fatih/color, gated on a
// real terminal via mattn/go-isatty so piped/redirected output stays
// plain text.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Level orders the four severities from least to most urgent.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

// Logger writes leveled lines to an underlying writer, colorizing the
// level tag only when that writer is a real terminal. Satisfies
// vm.Logger's Debugf method so it can be passed straight into
// vm.Options.
type Logger struct {
	w        io.Writer
	min      Level
	colorize bool
}

// New builds a Logger writing to w at minimum severity min. Color is
// enabled only when w is an *os.File pointing at a terminal.
func New(w io.Writer, min Level) *Logger {
	colorize := false
	if f, ok := w.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Logger{w: w, min: min, colorize: colorize}
}

// Default returns a Logger at LevelInfo writing to stdout, the
// interpreter facade's out-of-the-box choice.
func Default() *Logger {
	return New(os.Stdout, LevelInfo)
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.min {
		return
	}
	tag := level.String()
	if l.colorize {
		tag = levelColor[level].Sprint(tag)
	}
	fmt.Fprintf(l.w, "[%s] %s\n", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args...) }
