// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for the container readiness check

package importer_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sony-level/wsimport/internal/importer"
	"github.com/sony-level/wsimport/internal/workspace"
)

func TestCheck(t *testing.T) {
	engine, box := newEngine(t)
	box.SetTool("unzip", false)
	ctx := context.Background()

	// warm the cache with a stale answer
	if !engine.Checker().Has(ctx, testContainer, "git") {
		t.Fatal("git should be available")
	}
	box.SetTool("git", false)

	summary, err := engine.Check(ctx, "a1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if diff := cmp.Diff([]string{"git", "timeout", "unzip"}, summary.MissingTools); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"git"}, engine.Checker().MissingRequired(summary)); diff != "" {
		t.Errorf("required mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckStoppedContainer(t *testing.T) {
	engine, _ := newEngine(t, func(c *importer.Config) {
		c.Resolver = workspace.Static{Ref: workspace.Ref{Container: "gone", Root: testRoot}}
	})

	_, err := engine.Check(context.Background(), "a1")
	wantKind(t, err, importer.NotFound)
}
