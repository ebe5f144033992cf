// Package score propagates manual solution-fit labels to unlabeled
// companies by 1-nearest-neighbor over text embeddings. Embeddings are
// L2-normalized at write time, so the dot product ranks neighbors the
// same way cosine similarity would.
package score

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseVector decodes an embedding column value. pgvector renders as
// the text form "[0.1,0.2,...]"; drivers may also hand back native
// float slices. A nil value stays nil without error.
func ParseVector(v any) ([]float32, error) {
	switch vec := v.(type) {
	case nil:
		return nil, nil
	case []float32:
		return vec, nil
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out, nil
	case []any:
		out := make([]float32, len(vec))
		for i, e := range vec {
			f, ok := e.(float64)
			if !ok {
				return nil, eris.Errorf("score: vector element %d is %T", i, e)
			}
			out[i] = float32(f)
		}
		return out, nil
	case string:
		s := strings.TrimSpace(vec)
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		if s == "" {
			return nil, nil
		}
		parts := strings.Split(s, ",")
		out := make([]float32, len(parts))
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
			if err != nil {
				return nil, eris.Wrapf(err, "score: parse vector element %d", i)
			}
			out[i] = float32(f)
		}
		return out, nil
	default:
		return nil, eris.Errorf("score: unsupported vector type %T", v)
	}
}

// FormatVector renders a vector in the pgvector text form that
// ParseVector reads back.
func FormatVector(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// Dot is the inner product of two vectors. Length mismatches score the
// overlapping prefix only.
func Dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Nearest returns the index of the reference vector with the highest
// dot product against target, the first one on ties. Returns -1 for an
// empty pool.
func Nearest(target []float32, refs [][]float32) int {
	best, bestSim := -1, 0.0
	for i, ref := range refs {
		sim := Dot(target, ref)
		if best < 0 || sim > bestSim {
			best, bestSim = i, sim
		}
	}
	return best
}
