package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/webaudit/scanner/internal/helper"
	"github.com/webaudit/scanner/internal/model"
)

type fileReport struct {
	Target    string                                `json:"target"`
	Generated string                                `json:"generated"`
	Results   model.Parts                           `json:"results"`
	Findings  map[model.FindingKind][]model.Finding `json:"findings"`
}

// Path derives the report filename for a target under the output dir.
func Path(outputDir, target string, generated time.Time) string {
	name := fmt.Sprintf("report_%s_%s.json", helper.SanitizeFilename(target), generated.UTC().Format("20060102T150405Z"))
	return filepath.Join(outputDir, name)
}

// Write serializes the report parts to its file. Phase 2 calls this
// again with the same path to rewrite the merged report.
func Write(path, target string, generated time.Time, parts model.Parts) error {
	helper.EnsureDir(filepath.Dir(path))

	data, err := json.MarshalIndent(fileReport{
		Target:    target,
		Generated: generated.UTC().Format("20060102T150405Z"),
		Results:   parts,
		Findings:  model.GroupFindings(parts),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
