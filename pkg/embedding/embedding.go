package embedding

import "context"

// Encoder turns text into a fixed-length vector. Implementations must be
// safe for concurrent use.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}
