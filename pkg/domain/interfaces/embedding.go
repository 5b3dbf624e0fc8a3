package interfaces

import "context"

// Embedder maps text to a fixed-dimension numeric vector. The live variant
// calls an external embedding API; the deterministic stub derives a vector
// from a hash of the text so the rest of the system behaves identically
// without credentials.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed length of generated vectors
	Dimension() int
}
