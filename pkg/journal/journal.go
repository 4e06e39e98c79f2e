// Package journal writes the human-readable training log: timestamped
// progress lines, generated text samples and separators.
package journal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// SeparatorWidth is the number of dashes in a separator line
const SeparatorWidth = 55

// lineFormatter renders entries as "[H:mm:ss] message"
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	ts := e.Time
	return fmt.Appendf(nil, "[%d:%02d:%02d] %s\n", ts.Hour(), ts.Minute(), ts.Second(), e.Message), nil
}

// Journal is a buffered training log
type Journal struct {
	out   *bufio.Writer
	file  *os.File
	log   *logrus.Logger
	clock func() time.Time
}

// New creates a journal writing to w
func New(w io.Writer) *Journal {
	out := bufio.NewWriter(w)

	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(lineFormatter{})
	log.SetLevel(logrus.InfoLevel)

	return &Journal{
		out:   out,
		log:   log,
		clock: time.Now,
	}
}

// Open creates or appends to the journal file at path
func Open(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	j := New(f)
	j.file = f
	return j, nil
}

// SetClock replaces the time source used for line timestamps
func (j *Journal) SetClock(clock func() time.Time) {
	j.clock = clock
}

// Printf writes one timestamped line
func (j *Journal) Printf(format string, args ...any) {
	j.log.WithTime(j.clock()).Infof(format, args...)
}

// Write writes raw text without a timestamp
func (j *Journal) Write(s string) error {
	_, err := j.out.WriteString(s)
	return err
}

// Line writes raw text followed by a newline
func (j *Journal) Line(s string) error {
	return j.Write(s + "\n")
}

// Separator writes a line of dashes
func (j *Journal) Separator() error {
	return j.Line(strings.Repeat("-", SeparatorWidth))
}

// Flush pushes buffered output to the underlying writer and, for files,
// to stable storage.
func (j *Journal) Flush() error {
	if err := j.out.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	if j.file != nil {
		if err := j.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync journal: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the journal file
func (j *Journal) Close() error {
	if err := j.Flush(); err != nil {
		return err
	}
	if j.file != nil {
		return j.file.Close()
	}
	return nil
}

// GroupThousands formats n with comma thousands separators
func GroupThousands(n int) string {
	return humanize.Comma(int64(n))
}
