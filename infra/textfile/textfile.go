// Package textfile reads and writes the line-oriented text formats used for
// road networks, fleets and incident lists.
//
// Every format ignores blank lines and lines starting with '#'. Loaders skip
// malformed lines and count them in a LoadReport instead of failing.
package textfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kilianp07/erdispatch/core/logger"
)

// ErrNilTarget is returned when a loader is given nothing to load into.
var ErrNilTarget = errors.New("textfile: nil target")

const savedBy = "# Saved by erdispatch"

// LoadReport summarizes a load.
type LoadReport struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// Option configures loaders.
type Option func(*options)

type options struct {
	log logger.Logger
}

// WithLogger sets the logger used to warn about skipped lines.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: logger.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// eachLine calls fn with the line number and trimmed content of every
// significant line of r.
func eachLine(r io.Reader, fn func(n int, line string)) error {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fn(n, line)
	}
	return sc.Err()
}

func (o options) skip(rep *LoadReport, kind string, n int, reason error) {
	rep.Skipped++
	o.log.Warnf("%s line %d skipped: %v", kind, n, reason)
}

// loadFile opens path and hands it to load.
func loadFile(path string, load func(io.Reader) (LoadReport, error)) (LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadReport{}, fmt.Errorf("textfile: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	rep, err := load(f)
	if err != nil {
		return rep, fmt.Errorf("textfile: read %s: %w", path, err)
	}
	return rep, nil
}

// saveFile writes through save into a temporary file next to path and
// renames it into place.
func saveFile(path string, save func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("textfile: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := save(w); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("textfile: write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("textfile: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("textfile: close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("textfile: rename %s: %w", path, err)
	}
	return nil
}

func header(w io.Writer, format string) error {
	_, err := fmt.Fprintf(w, "# %s\n%s\n", format, savedBy)
	return err
}

func appendFile(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("textfile: open %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	err = write(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("textfile: append %s: %w", path, err)
	}
	return nil
}
