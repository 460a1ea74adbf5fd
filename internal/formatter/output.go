package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/desertthunder/spotdump/internal/shared"
)

// Stdout is the output path meaning standard output.
const Stdout = "-"

// Output is a checked dump destination.
type Output struct {
	path   string
	stdout io.Writer
}

// PrepareOutput validates a destination before any work is done. An empty path or "-" selects stdout,
// which cannot be combined with overwrite. A file destination needs an existing parent directory and,
// if the file already exists, overwrite.
func PrepareOutput(path string, overwrite bool, stdout io.Writer) (*Output, error) {
	if path == "" || path == Stdout {
		if overwrite {
			return nil, fmt.Errorf("%w: cannot overwrite stdout", shared.ErrInvalidOutput)
		}
		if stdout == nil {
			stdout = os.Stdout
		}
		return &Output{stdout: stdout}, nil
	}

	info, err := os.Stat(filepath.Dir(path))
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s cannot be created", shared.ErrInvalidOutput, path)
	}

	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidOutput, path)
		}
		if !overwrite {
			return nil, fmt.Errorf("%w: %s (use --overwrite)", shared.ErrOutputExists, path)
		}
	}

	return &Output{path: path}, nil
}

// IsStdout reports whether the destination is standard output.
func (o *Output) IsStdout() bool {
	return o.path == ""
}

// String names the destination for messages.
func (o *Output) String() string {
	if o.IsStdout() {
		return "stdout"
	}
	return o.path
}

// Write stores data at the destination, replacing any existing file.
func (o *Output) Write(data []byte) error {
	if o.IsStdout() {
		if _, err := o.stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write stdout: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(o.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", o.path, err)
	}
	return nil
}
