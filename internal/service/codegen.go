package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/repair-service/internal/repository"
)

// codeSource reports the greatest code already issued under a prefix.
type codeSource interface {
	MaxCode(ctx context.Context, prefix string) (string, error)
}

// CodeGenerator issues PREFIX-YEAR-NNNNNN codes from per-year counter rows.
// Next must run inside the transaction that inserts the coded row, so a
// rollback also rolls back the increment.
type CodeGenerator struct {
	prefix string
	width  int
	now    func() time.Time
}

// NewCodeGenerator builds a generator for one entity kind.
func NewCodeGenerator(prefix string, width int) *CodeGenerator {
	return &CodeGenerator{prefix: strings.ToUpper(prefix), width: width, now: time.Now}
}

// Next reserves the next code. Existing codes act as a floor so counters
// seeded after data import never reissue a code.
func (g *CodeGenerator) Next(ctx context.Context, sequences repository.SequenceRepository, existing codeSource) (string, error) {
	period := g.now().UTC().Year()
	scope := fmt.Sprintf("%s-%d", g.prefix, period)

	max, err := existing.MaxCode(ctx, scope+"-")
	if err != nil {
		return "", err
	}
	value, err := sequences.Next(ctx, scope, codeSuffix(max, scope+"-"))
	if err != nil {
		return "", err
	}
	return FormatCode(g.prefix, period, g.width, value), nil
}

// FormatCode renders a code with a zero-padded counter.
func FormatCode(prefix string, period, width int, value int64) string {
	return fmt.Sprintf("%s-%d-%0*d", prefix, period, width, value)
}

func codeSuffix(code, prefix string) int64 {
	if code == "" || !strings.HasPrefix(code, prefix) {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(code, prefix), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
