// Package sink writes the accumulated flag records to the configured
// outputs: a JSON report artifact and, optionally, the reports table.
package sink

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/neighborly/moderation/internal/domain"
)

const reportFileMode = 0o644

// FileSink serializes the full flag sequence to a single JSON artifact at
// end of run. There is no incremental write; a failed write is fatal for
// the run.
type FileSink struct {
	path string
}

// NewFileSink creates a file sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the output path.
func (s *FileSink) Path() string {
	return s.path
}

// Write serializes the flags as an indented JSON array. An empty run
// produces an empty array, never an empty file.
func (s *FileSink) Write(flags []domain.FlagRecord) error {
	if flags == nil {
		flags = []domain.FlagRecord{}
	}

	data, err := json.MarshalIndent(flags, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}

	if err := os.WriteFile(s.path, data, reportFileMode); err != nil {
		return fmt.Errorf("write report %s: %w", s.path, err)
	}
	return nil
}
