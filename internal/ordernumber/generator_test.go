package ordernumber

import (
	"context"
	"errors"
	"testing"
)

type mockSource struct {
	NextSequenceFunc func(ctx context.Context) (int64, error)
	NumberExistsFunc func(ctx context.Context, number string) (bool, error)
}

func (m *mockSource) NextSequence(ctx context.Context) (int64, error) {
	if m.NextSequenceFunc != nil {
		return m.NextSequenceFunc(ctx)
	}
	return 0, nil
}

func (m *mockSource) NumberExists(ctx context.Context, number string) (bool, error) {
	if m.NumberExistsFunc != nil {
		return m.NumberExistsFunc(ctx, number)
	}
	return false, nil
}

func TestNext(t *testing.T) {
	ctx := context.Background()

	t.Run("formats sequence value", func(t *testing.T) {
		src := &mockSource{
			NextSequenceFunc: func(ctx context.Context) (int64, error) { return 1001, nil },
		}
		got, err := Next(ctx, src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "#ORD1001" {
			t.Fatalf("expected #ORD1001, got %s", got)
		}
	})

	t.Run("propagates sequence error", func(t *testing.T) {
		boom := errors.New("sequence unavailable")
		src := &mockSource{
			NextSequenceFunc: func(ctx context.Context) (int64, error) { return 0, boom },
		}
		if _, err := Next(ctx, src); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped sequence error, got %v", err)
		}
	})
}

func TestDuplicate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		occupied map[string]bool
		original string
		want     string
	}{
		{
			name:     "unsuffixed copy when free",
			occupied: map[string]bool{},
			original: "#ORD1001",
			want:     "#ORD1001-COPY",
		},
		{
			name:     "second copy gets COPY2",
			occupied: map[string]bool{"#ORD1001-COPY": true},
			original: "#ORD1001",
			want:     "#ORD1001-COPY2",
		},
		{
			name: "suffix keeps escalating, never falls back",
			occupied: map[string]bool{
				"#ORD1001-COPY":  true,
				"#ORD1001-COPY2": true,
				"#ORD1001-COPY3": true,
			},
			original: "#ORD1001",
			want:     "#ORD1001-COPY4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{
				NumberExistsFunc: func(ctx context.Context, number string) (bool, error) {
					return tt.occupied[number], nil
				},
			}
			got, err := Duplicate(ctx, src, tt.original)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("propagates lookup error", func(t *testing.T) {
		boom := errors.New("store down")
		src := &mockSource{
			NumberExistsFunc: func(ctx context.Context, number string) (bool, error) {
				return false, boom
			},
		}
		if _, err := Duplicate(ctx, src, "#ORD1"); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped lookup error, got %v", err)
		}
	})
}

func TestDuplicateSequence(t *testing.T) {
	// Duplicating the same order repeatedly walks -COPY, -COPY2, -COPY3.
	ctx := context.Background()
	occupied := map[string]bool{}
	src := &mockSource{
		NumberExistsFunc: func(ctx context.Context, number string) (bool, error) {
			return occupied[number], nil
		},
	}

	want := []string{"#ORD42-COPY", "#ORD42-COPY2", "#ORD42-COPY3"}
	for i, expected := range want {
		got, err := Duplicate(ctx, src, "#ORD42")
		if err != nil {
			t.Fatalf("duplicate %d: unexpected error: %v", i, err)
		}
		if got != expected {
			t.Fatalf("duplicate %d: expected %s, got %s", i, expected, got)
		}
		occupied[got] = true
	}
}
