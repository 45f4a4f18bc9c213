package chunk

import "github.com/pkg/errors"

// Range is one byte-range chunk of the source file.
type Range struct {
	Index     int
	StartByte int64
	EndByte   int64
}

func (r Range) Size() int64 {
	return r.EndByte - r.StartByte
}

// ErrInvalidSize is returned when the planner is handed a non-positive size.
var ErrInvalidSize = errors.New("chunk: size must be positive")

// Plan computes contiguous, non-overlapping byte ranges covering exactly
// [0, sizeBytes). Chunks are evenly sized (ceil(size/count)) rather than
// front-loaded at maxChunkBytes, so no chunk is dramatically smaller than
// its siblings.
//
// Byte-range planning is format-unaware: it is only safe for containers
// whose frames resynchronize at arbitrary offsets (see format.ByteSplittable).
func Plan(sizeBytes, maxChunkBytes int64) ([]Range, error) {
	if sizeBytes <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "got %d bytes", sizeBytes)
	}
	if maxChunkBytes <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "got max chunk %d bytes", maxChunkBytes)
	}

	count := ceilDiv(sizeBytes, maxChunkBytes)
	chunkSize := ceilDiv(sizeBytes, count)

	ranges := make([]Range, 0, count)
	for i := int64(0); i < count; i++ {
		start := i * chunkSize
		if start >= sizeBytes {
			break
		}
		end := start + chunkSize
		if end > sizeBytes {
			end = sizeBytes
		}
		ranges = append(ranges, Range{Index: int(i), StartByte: start, EndByte: end})
	}
	return ranges, nil
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
