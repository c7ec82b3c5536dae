package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/domino14/epdbench/engine"
	"github.com/domino14/epdbench/worker"
)

// RunRecord is a machine readable account of one run.
type RunRecord struct {
	Engine    string           `yaml:"engine"`
	Suite     string           `yaml:"suite"`
	MoveTime  float64          `yaml:"movetime"`
	Workers   int              `yaml:"workers"`
	Options   []string         `yaml:"options,omitempty"`
	Started   time.Time        `yaml:"started"`
	Elapsed   time.Duration    `yaml:"elapsed"`
	Positions int              `yaml:"positions"`
	Analyzed  int              `yaml:"analyzed"`
	Solved    int              `yaml:"solved"`
	Warnings  int              `yaml:"warnings"`
	Suites    []string         `yaml:"suites"`
	Overall   LeaderboardEntry `yaml:"overall"`
	Chunks    []ChunkRecord    `yaml:"chunks"`
}

// ChunkRecord is a worker.ChunkReport with its error flattened for YAML.
type ChunkRecord struct {
	worker.ChunkReport `yaml:",inline"`
	Error              string `yaml:"error,omitempty"`
}

// ChunkRecords converts dispatcher reports for a RunRecord.
func ChunkRecords(reports []worker.ChunkReport) []ChunkRecord {
	out := make([]ChunkRecord, len(reports))
	for i, r := range reports {
		out[i] = ChunkRecord{ChunkReport: r}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

// RecordPath is where the run record of engineName is written.
func RecordPath(dir, engineName string) string {
	return filepath.Join(dir, engine.SafeName(engineName)+"_run.yaml")
}

func WriteRunRecord(path string, rec *RunRecord) error {
	bts, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling run record: %w", err)
	}
	return os.WriteFile(path, bts, 0o644)
}

func ReadRunRecord(path string) (*RunRecord, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec := &RunRecord{}
	if err := yaml.Unmarshal(bts, rec); err != nil {
		return nil, fmt.Errorf("parsing run record %s: %w", path, err)
	}
	return rec, nil
}
