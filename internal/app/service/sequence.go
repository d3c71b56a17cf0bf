package service

import (
	"context"
	"fmt"
	"time"
)

const (
	sequenceLicense = "license"
	sequencePayment = "payment" // PAY-/ORD- share one counter
)

// SequenceGenerator issues monotonically increasing numbers per (name, year).
// Implemented by repository.SequenceRepository and redis.SequenceGenerator.
type SequenceGenerator interface {
	Next(ctx context.Context, name string, year int) (int64, error)
}

// timeNow is swapped in tests that need deterministic timestamps.
var timeNow = time.Now

func formatSequenceID(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
}
