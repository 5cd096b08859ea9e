// Package chunk provides the pure document splitting functions shared by the
// chain and tree protocols. Offsets are rune-based.
package chunk

import (
	"fmt"

	"github.com/kailas-cloud/protobench/internal/domain"
)

// SplitSequential cuts text into overlapping windows of chunkSize runes.
// Each window after the first starts overlap runes before the previous window's
// end; the last window may be shorter. Splitting stops once a window reaches
// the end of the text, so empty input yields no chunks and text no longer than
// chunkSize yields exactly one.
func SplitSequential(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk_size must be positive", domain.ErrInvalidConfig)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative", domain.ErrInvalidConfig)
	}
	if chunkSize <= overlap {
		// The window would never advance.
		return nil, fmt.Errorf("%w: chunk_size %d must exceed overlap %d",
			domain.ErrInvalidConfig, chunkSize, overlap)
	}

	runes := []rune(text)
	step := chunkSize - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			// A later window would only repeat the tail of this one.
			break
		}
	}
	return chunks, nil
}

// SplitBranches cuts text into at most branchFactor contiguous, non-overlapping
// segments of ceil(len/branchFactor) runes each. Very short texts produce fewer
// segments than requested.
func SplitBranches(text string, branchFactor int) ([]string, error) {
	if branchFactor < 1 {
		return nil, fmt.Errorf("%w: branch_factor must be at least 1", domain.ErrInvalidConfig)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	size := (len(runes) + branchFactor - 1) / branchFactor

	branches := make([]string, 0, branchFactor)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		branches = append(branches, string(runes[start:end]))
	}
	return branches, nil
}
