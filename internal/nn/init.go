package nn

import (
	"math"

	"github.com/born-ml/typednet/internal/tensor"
)

// Source is the randomness provider layers draw their initial weights from.
//
// *math/rand.Rand satisfies it. Layers consume values in construction
// order, so two networks built from identically seeded sources get
// identical weights. A nil Source leaves weights at zero.
type Source interface {
	Float64() float64
}

// Xavier (Glorot) initialization for weights.
//
// Fills dst with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// This initialization helps maintain variance of activations across layers.
func Xavier[T tensor.Float](dst []T, fanIn, fanOut int, src Source) {
	if src == nil {
		return
	}
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range dst {
		dst[i] = T((src.Float64()*2.0 - 1.0) * bound)
	}
}
