package shortener_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errStoreDown = errors.New("store down")

// sequenceSource returns the given codes in order, repeating the last one.
type sequenceSource struct {
	codes []string
	calls int
}

func (s *sequenceSource) Next() string {
	i := min(s.calls, len(s.codes)-1)
	s.calls++

	return s.codes[i]
}

func seed(t *testing.T, repo *store.MemoryStore, codes ...string) {
	t.Helper()

	for _, code := range codes {
		require.NoError(t, repo.Save(context.Background(), &shortener.Mapping{
			Code:        shortener.Code(code),
			OriginalURL: "https://example.com/" + code,
			CreatedAt:   time.Now(),
		}))
	}
}

func TestNewCodeSource(t *testing.T) {
	next, err := shortener.NewCodeSource(shortener.DefaultCodeLength)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		code := next()

		assert.Len(t, code, 7)

		for _, r := range code {
			assert.True(t, strings.ContainsRune(shortener.Alphabet, r), "unexpected symbol %q in %q", r, code)
		}
	}
}

func TestGenerator_Generate(t *testing.T) {
	t.Run("returns first free candidate", func(t *testing.T) {
		repo := store.NewMemoryStore()
		seed(t, repo, "taken01", "taken02")
		src := &sequenceSource{codes: []string{"taken01", "taken02", "free001"}}
		gen := shortener.NewGenerator(repo, src.Next, 10, zap.NewNop())

		code, err := gen.Generate(context.Background())

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("free001"), code)
		assert.Equal(t, 3, src.calls)
	})

	t.Run("fails after exactly max attempts", func(t *testing.T) {
		repo := store.NewMemoryStore()
		seed(t, repo, "taken01")
		src := &sequenceSource{codes: []string{"taken01"}}
		gen := shortener.NewGenerator(repo, src.Next, 10, zap.NewNop())

		code, err := gen.Generate(context.Background())

		assert.Empty(t, code)
		require.ErrorIs(t, err, shortener.ErrExhaustedAttempts)
		assert.Equal(t, 10, src.calls)
	})

	t.Run("within a budget reports candidates drawn", func(t *testing.T) {
		repo := store.NewMemoryStore()
		seed(t, repo, "taken01")
		src := &sequenceSource{codes: []string{"taken01", "free001"}}
		gen := shortener.NewGenerator(repo, src.Next, 10, zap.NewNop())

		code, used, err := gen.GenerateWithin(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, shortener.Code("free001"), code)
		assert.Equal(t, 2, used)

		src = &sequenceSource{codes: []string{"taken01"}}
		gen = shortener.NewGenerator(repo, src.Next, 10, zap.NewNop())

		_, used, err = gen.GenerateWithin(context.Background(), 3)
		require.ErrorIs(t, err, shortener.ErrExhaustedAttempts)
		assert.Equal(t, 3, used)
		assert.Equal(t, 3, src.calls)
	})

	t.Run("propagates store errors", func(t *testing.T) {
		repo := &flakyRepo{MemoryStore: store.NewMemoryStore(), existsErr: errStoreDown}
		src := &sequenceSource{codes: []string{"abc1234"}}
		gen := shortener.NewGenerator(repo, src.Next, 10, zap.NewNop())

		_, err := gen.Generate(context.Background())

		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("non-positive attempts fall back to default", func(t *testing.T) {
		gen := shortener.NewGenerator(store.NewMemoryStore(), (&sequenceSource{codes: []string{"x"}}).Next, 0, zap.NewNop())

		assert.Equal(t, shortener.DefaultMaxAttempts, gen.MaxAttempts())
	})
}

func TestGenerator_ValidateCustomCode(t *testing.T) {
	repo := store.NewMemoryStore()
	seed(t, repo, "taken")
	gen := shortener.NewGenerator(repo, (&sequenceSource{codes: []string{"x"}}).Next, 10, zap.NewNop())

	t.Run("accepts free code", func(t *testing.T) {
		code, err := gen.ValidateCustomCode(context.Background(), "  promo-2024 ")

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("promo-2024"), code)
	})

	t.Run("rejects assigned code", func(t *testing.T) {
		_, err := gen.ValidateCustomCode(context.Background(), "taken")

		assert.ErrorIs(t, err, shortener.ErrCodeInUse)
	})

	t.Run("rejects malformed code before checking the store", func(t *testing.T) {
		_, err := gen.ValidateCustomCode(context.Background(), "a b")

		assert.ErrorIs(t, err, shortener.ErrInvalidCustomCode)
	})
}
