package summarize

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Diagnostics persists raw model output and failure details for articles
// that exhaust their retry budget, so malformed responses can be inspected
// after the fact. Writes are best effort: a failed dump is logged and
// never fails the pipeline.
type Diagnostics struct {
	dir    string
	logger *zerolog.Logger
}

func NewDiagnostics(dir string, logger *zerolog.Logger) *Diagnostics {
	return &Diagnostics{dir: dir, logger: logger}
}

// WriteRaw dumps the last raw model response for an item and stage.
func (d *Diagnostics) WriteRaw(itemID, stage, finishReason, text string) {
	if d == nil || d.dir == "" {
		return
	}

	body := fmt.Sprintf("finish_reason=%s\n\n%s", finishReason, text)
	d.write(fmt.Sprintf("%s_%s_raw.txt", itemID, stage), body)
}

// WriteException dumps the error that aborted a model call.
func (d *Diagnostics) WriteException(itemID, stage string, err error) {
	if d == nil || d.dir == "" {
		return
	}

	body := fmt.Sprintf("error_type=%s\n\n%v", errorKind(err), err)
	d.write(fmt.Sprintf("%s_%s_exception.txt", itemID, stage), body)
}

func (d *Diagnostics) write(name, body string) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.logger.Warn().Err(err).Str("dir", d.dir).Msg("cannot create diagnostics dir")
		return
	}

	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		d.logger.Warn().Err(err).Str("path", path).Msg("cannot write diagnostics file")
	}
}
