package worker

import "time"

// ChunkSizes splits n positions over w workers. The first n%w workers get
// one position more than the rest. There are always w entries, some of them
// possibly zero.
func ChunkSizes(n, w int) []int {
	if w < 1 {
		w = 1
	}
	if n < 0 {
		n = 0
	}
	base, rem := n/w, n%w
	sizes := make([]int, w)
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}

// Chunks cuts fens into contiguous slices following ChunkSizes.
func Chunks(fens []string, w int) [][]string {
	sizes := ChunkSizes(len(fens), w)
	chunks := make([][]string, len(sizes))
	start := 0
	for i, sz := range sizes {
		chunks[i] = fens[start : start+sz : start+sz]
		start += sz
	}
	return chunks
}

// ChunkReport describes what one worker did with its chunk.
type ChunkReport struct {
	Worker int `yaml:"worker"`
	// Positions assigned to the worker.
	Size int `yaml:"size"`
	// Positions that got an answer, possibly no move.
	Evaluated int `yaml:"evaluated"`
	// Err is why the worker stopped early, if it did.
	Err     error         `yaml:"-"`
	Elapsed time.Duration `yaml:"elapsed"`

	MeanSearch  time.Duration `yaml:"mean_search"`
	StdevSearch time.Duration `yaml:"stdev_search"`
}

// Complete reports whether every assigned position was evaluated.
func (r ChunkReport) Complete() bool {
	return r.Err == nil && r.Evaluated == r.Size
}
