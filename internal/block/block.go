package block

import (
	"fmt"

	"github.com/feral-file/gmx-exporter/internal/domain"
)

// Range is an inclusive block interval [Start, End]
type Range struct {
	Start uint64
	End   uint64
}

// String renders the range for logs and errors
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// Len returns the number of blocks covered by the range
func (r Range) Len() uint64 {
	return r.End - r.Start + 1
}

// Partition splits [start, end] into contiguous, non-overlapping ranges.
// Each range spans at most limit blocks past its start (End-Start <= limit) and the
// next range begins right after the previous End. The last range may be shorter.
func Partition(start, end, limit uint64) ([]Range, error) {
	if limit == 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidRange)
	}
	if start > end {
		return nil, fmt.Errorf("%w: start %d is after end %d", domain.ErrInvalidRange, start, end)
	}

	ranges := make([]Range, 0, (end-start)/limit+1)
	current := start
	for {
		rangeEnd := end
		if end-current > limit {
			rangeEnd = current + limit
		}
		ranges = append(ranges, Range{Start: current, End: rangeEnd})

		if rangeEnd == end {
			break
		}
		current = rangeEnd + 1
	}

	return ranges, nil
}

// Bisect splits a range into two halves. It returns false for a single-block range.
func Bisect(r Range) (Range, Range, bool) {
	if r.Start >= r.End {
		return r, Range{}, false
	}
	mid := r.Start + (r.End-r.Start)/2
	return Range{Start: r.Start, End: mid}, Range{Start: mid + 1, End: r.End}, true
}
