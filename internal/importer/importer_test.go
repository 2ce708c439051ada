package importer

import (
	"context"
	"testing"

	"github.com/kshao/chatvault/internal/config"
	"github.com/kshao/chatvault/internal/sanitize"
	"github.com/kshao/chatvault/internal/validate"
)

func newTestRegistry(limits config.Limits) *Registry {
	san := sanitize.New(limits.MaxRenderLength)
	val := validate.New(limits)
	return NewRegistry(limits, san, val)
}

func parseAs(t *testing.T, f Format, content string) *Result {
	t.Helper()
	reg := newTestRegistry(config.DefaultLimits())
	par := reg.parserFor(f)
	if par == nil {
		t.Fatalf("no parser for format %q", f)
	}
	if err := par.Validate(content); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	res, err := par.Parse(context.Background(), content)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	return res
}
