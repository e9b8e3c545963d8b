package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/repair-service/internal/repository/memory"
)

type fixedMax string

func (f fixedMax) MaxCode(context.Context, string) (string, error) { return string(f), nil }

func TestFormatCode(t *testing.T) {
	if got := FormatCode("TCK", 2026, 6, 42); got != "TCK-2026-000042" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := FormatCode("RMA", 2026, 5, 123456); got != "RMA-2026-123456" {
		t.Fatalf("overflowing counters must widen, got %q", got)
	}
}

func TestCodeGeneratorUsesExistingCodesAsFloor(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	gen := NewCodeGenerator("tck", 6)
	gen.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	code, err := gen.Next(ctx, repos.Sequences, fixedMax("TCK-2026-000041"))
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if code != "TCK-2026-000042" {
		t.Fatalf("expected TCK-2026-000042, got %s", code)
	}
	code, _ = gen.Next(ctx, repos.Sequences, fixedMax(""))
	if code != "TCK-2026-000043" {
		t.Fatalf("expected TCK-2026-000043, got %s", code)
	}

	gen.now = func() time.Time { return time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC) }
	code, _ = gen.Next(ctx, repos.Sequences, fixedMax(""))
	if code != "TCK-2027-000001" {
		t.Fatalf("expected counter reset for new year, got %s", code)
	}
}

func TestCodeSuffixIgnoresForeignCodes(t *testing.T) {
	if n := codeSuffix("RMA-2026-00009", "TCK-2026-"); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	if n := codeSuffix("TCK-2026-000007", "TCK-2026-"); n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
}
