package logging

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// TagField is the entry field the console formatter renders inside the brackets.
const TagField = "tag"

// TagFormatter renders entries as "[TAG] message". Entries without a tag use
// the upper-cased level name.
type TagFormatter struct{}

func (f *TagFormatter) Format(e *logrus.Entry) ([]byte, error) {
	tag, _ := e.Data[TagField].(string)
	if tag == "" {
		tag = strings.ToUpper(e.Level.String())
	}

	var b *bytes.Buffer
	if e.Buffer != nil {
		b = e.Buffer
	} else {
		b = &bytes.Buffer{}
	}
	fmt.Fprintf(b, "[%s] %s\n", tag, e.Message)
	return b.Bytes(), nil
}

// NewConsole returns the logger scenario sessions print through.
func NewConsole(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&TagFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// New returns the operational logger used by the runtime and commands.
func New(out io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return l, nil
}

// Discard returns a logger that drops everything. Handy for tests and the TUI.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
