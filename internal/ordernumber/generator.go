// Package ordernumber issues human-readable order identifiers.
//
// Numbers for new orders come from a store-side atomic sequence, so two
// concurrent creates can never be handed the same value and deletions never
// cause reuse. Duplicated orders get the original number with a -COPY suffix,
// escalating to -COPY2, -COPY3, ... until an unoccupied number is found.
package ordernumber

import (
	"context"
	"fmt"
)

// Source is the store capability the generator needs. Implementations are
// expected to be transaction-scoped where the caller requires generated
// numbers to observe uncommitted inserts (batch duplication).
type Source interface {
	// NextSequence atomically increments and returns the order number sequence.
	NextSequence(ctx context.Context) (int64, error)
	// NumberExists reports whether an order with the given number exists.
	NumberExists(ctx context.Context, number string) (bool, error)
}

// maxSuffix bounds the collision ladder; hitting it means the store contains
// thousands of copies of one order and something else is wrong.
const maxSuffix = 10000

// Next returns a fresh order number of the form #ORD{seq}.
func Next(ctx context.Context, src Source) (string, error) {
	seq, err := src.NextSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("next order sequence: %w", err)
	}
	return Format(seq), nil
}

// Format renders a sequence value as a display number.
func Format(seq int64) string {
	return fmt.Sprintf("#ORD%d", seq)
}

// Duplicate returns an unoccupied number for a copy of the order identified
// by original. The first candidate is {original}-COPY; on collision the
// suffix escalates to -COPY2, -COPY3, and so on, each candidate re-checked
// against the source.
func Duplicate(ctx context.Context, src Source, original string) (string, error) {
	candidate := original + "-COPY"
	for k := 2; ; k++ {
		taken, err := src.NumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check number %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		if k > maxSuffix {
			return "", fmt.Errorf("no free duplicate number for %q", original)
		}
		candidate = fmt.Sprintf("%s-COPY%d", original, k)
	}
}
