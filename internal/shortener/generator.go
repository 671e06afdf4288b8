package shortener

import (
	"context"
	"fmt"

	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"
)

const (
	// Alphabet is the symbol set for generated codes.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	DefaultCodeLength  = 7
	DefaultMaxAttempts = 10
)

// CodeSource produces a random candidate code.
type CodeSource func() string

// NewCodeSource returns a crypto/rand backed source drawing length symbols
// uniformly from Alphabet.
func NewCodeSource(length int) (CodeSource, error) {
	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, fmt.Errorf("create code source: %w", err)
	}

	return gen, nil
}

// Generator allocates short codes that are free in the repository at call time.
type Generator struct {
	store       Repository
	next        CodeSource
	maxAttempts int
	logger      *zap.Logger
}

// NewGenerator creates a generator that tries at most maxAttempts candidates.
func NewGenerator(store Repository, source CodeSource, maxAttempts int, logger *zap.Logger) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Generator{
		store:       store,
		next:        source,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Generate returns a random code not yet present in the repository.
func (g *Generator) Generate(ctx context.Context) (Code, error) {
	code, _, err := g.GenerateWithin(ctx, g.maxAttempts)

	return code, err
}

// GenerateWithin is Generate limited to budget candidates. It also reports
// how many candidates it drew, so callers can share one budget across
// several calls.
func (g *Generator) GenerateWithin(ctx context.Context, budget int) (Code, int, error) {
	for attempt := 1; attempt <= budget; attempt++ {
		code := Code(g.next())

		exists, err := g.store.ExistsByShortCode(ctx, code)
		if err != nil {
			return "", attempt, err
		}

		if !exists {
			return code, attempt, nil
		}

		g.logger.Debug("generated code collided", zap.String("code", string(code)))
	}

	g.logger.Error("failed to generate unique short code",
		zap.Int("attempts", budget),
	)

	return "", budget, fmt.Errorf("%w after %d attempts", ErrExhaustedAttempts, budget)
}

// ValidateCustomCode checks a user supplied code and verifies it is unassigned.
func (g *Generator) ValidateCustomCode(ctx context.Context, raw string) (Code, error) {
	code, err := ValidateCustomCode(raw)
	if err != nil {
		return "", err
	}

	exists, err := g.store.ExistsByShortCode(ctx, code)
	if err != nil {
		return "", err
	}

	if exists {
		return "", fmt.Errorf("%w: %q", ErrCodeInUse, code)
	}

	return code, nil
}

// MaxAttempts reports the attempt budget.
func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}
