package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/registry"
)

const hashDimensions = 512

func init() {
	registry.RegisterEmbedder("hash", func(registry.Options) (core.Embedder, error) {
		return NewHashEngine(hashDimensions), nil
	})
}

// HashEngine is a local bag-of-words embedder using signed feature hashing.
// It needs no network and gives stable vectors across runs, which makes it
// the default for a fresh install.
type HashEngine struct {
	dims int
}

// NewHashEngine returns a hashing embedder producing dims-sized vectors.
func NewHashEngine(dims int) *HashEngine {
	if dims <= 0 {
		dims = hashDimensions
	}
	return &HashEngine{dims: dims}
}

// Embed returns the L2-normalised hashed term-frequency vector of text.
func (e *HashEngine) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dims)
	for _, tok := range Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dims))
		// high bit picks the sign so collisions tend to cancel
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dims)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (e *HashEngine) Name() string    { return "hash" }
func (e *HashEngine) Dimensions() int { return e.dims }

// Tokenize lowercases text and splits it into letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
