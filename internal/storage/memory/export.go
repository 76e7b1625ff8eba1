// internal/storage/memory/export.go
package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	v1 "github.com/resonance-tools/combatmeter/internal/storage/memory/export/v1"
)

// exportJSON writes the statistics report, gzipped if configured. Callers
// hold mu.
func (b *Backend) exportJSON() error {
	now := b.now()
	report := v1.Build(b.snapshotLocked(), b.startedAt, now)

	timestamp := b.startedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("combat_%s.json.gz", timestamp)
	} else {
		filename = fmt.Sprintf("combat_%s.json", timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeReport(outputPath, report, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func writeReport(path string, report v1.Report, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}

	return json.NewEncoder(w).Encode(report)
}
