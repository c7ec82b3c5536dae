package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// TranscriptPath is where the protocol transcript of a worker is written.
func TranscriptPath(dir, engineName string, workerID int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_analysis_worker_%d.txt", SafeName(engineName), workerID))
}

// TranscriptGlob matches the transcripts of every worker.
func TranscriptGlob(dir, engineName string) string {
	return filepath.Join(dir, SafeName(engineName)+"_analysis_worker_*.txt")
}

// openTranscript creates a worker's transcript file and a logger writing
// into it. Transcript lines carry no level so the global level never
// filters them.
func openTranscript(path string, workerID int) (*os.File, zerolog.Logger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	out := zerolog.ConsoleWriter{
		Out:          zerolog.SyncWriter(f),
		NoColor:      true,
		TimeFormat:   "2006-01-02 15:04:05.000",
		PartsExclude: []string{zerolog.LevelFieldName},
	}
	zl := zerolog.New(out).With().
		Timestamp().
		Int("pid", os.Getpid()).
		Int("worker", workerID).
		Logger()
	return f, zl, nil
}
