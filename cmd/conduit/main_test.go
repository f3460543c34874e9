package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/driftworks/conduit/pkg/pipeline"
	"github.com/driftworks/conduit/pkg/pipeline/nodes"
)

// ─── TestInitLogger ───────────────────────────────────────────────────────────

func TestInitLogger_ValidLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "DEBUG", "INFO"} {
		if err := initLogger(lvl, "text"); err != nil {
			t.Errorf("initLogger(%q, text): unexpected error: %v", lvl, err)
		}
	}
}

func TestInitLogger_ValidFormats(t *testing.T) {
	for _, fmt := range []string{"text", "json", "TEXT", "JSON"} {
		if err := initLogger("info", fmt); err != nil {
			t.Errorf("initLogger(info, %q): unexpected error: %v", fmt, err)
		}
	}
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	if err := initLogger("verbose", "text"); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestInitLogger_InvalidFormat(t *testing.T) {
	if err := initLogger("info", "xml"); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

// ─── TestLoadPipeline ─────────────────────────────────────────────────────────

func buildSamplePipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	p := pipeline.New("sample")
	src := nodes.NewSequence([]any{1, 2, 3, 4})
	agg, err := nodes.NewAggregate("sum")
	if err != nil {
		t.Fatalf("NewAggregate: %v", err)
	}
	p.AddNode(src)
	p.AddNode(agg)
	if _, err := p.Connect(src.ID(), "output", agg.ID(), "data"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return p
}

func TestLoadPipeline_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.json")
	if err := pipeline.SaveFile(buildSamplePipeline(t), path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	p, err := loadPipeline(path, "")
	if err != nil {
		t.Fatalf("loadPipeline: %v", err)
	}
	if p.NodeCount() != 2 {
		t.Errorf("nodes = %d, want 2", p.NodeCount())
	}
}

func TestLoadPipeline_DOT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.dot")
	src := pipeline.ExportDOT(buildSamplePipeline(t))
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p, err := loadPipeline(path, "")
	if err != nil {
		t.Fatalf("loadPipeline: %v", err)
	}
	if len(p.Connections()) != 1 {
		t.Errorf("connections = %d, want 1", len(p.Connections()))
	}
}

func TestLoadPipeline_WithCustomDefs(t *testing.T) {
	dir := t.TempDir()
	defsPath := filepath.Join(dir, "defs.json")
	defs := `[{
		"tag": "doubler",
		"inputs": [{"name": "x", "type": "number"}],
		"outputs": [{"name": "y", "type": "number"}],
		"logic": "y = x * 2"
	}]`
	if err := os.WriteFile(defsPath, []byte(defs), 0o644); err != nil {
		t.Fatalf("write defs: %v", err)
	}

	doc := `{
		"name": "custom",
		"nodes": [
			{"id": "v", "type": "value", "data": 21},
			{"id": "d", "type": "doubler"}
		],
		"connections": [
			{"source_node": "v", "source_port": "output", "target_node": "d", "target_port": "x"}
		]
	}`
	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write pipeline: %v", err)
	}

	p, err := loadPipeline(path, defsPath)
	if err != nil {
		t.Fatalf("loadPipeline: %v", err)
	}
	eng, err := pipeline.NewEngine(p)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	report, err := eng.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := report.Results["d"].Outputs["y"]; got != float64(42) {
		t.Errorf("y = %v, want 42", got)
	}
}

// ─── TestRender ───────────────────────────────────────────────────────────────

func TestRenderText_ListsNodesAndConnections(t *testing.T) {
	p := buildSamplePipeline(t)
	out := renderText(p)
	if !strings.Contains(out, "2 nodes, 1 connections") {
		t.Errorf("summary line missing:\n%s", out)
	}
	if !strings.Contains(out, "values") || !strings.Contains(out, "aggregate") {
		t.Errorf("node types missing:\n%s", out)
	}
	if !strings.Contains(out, ".output") {
		t.Errorf("connection endpoints missing:\n%s", out)
	}
}

func TestRenderReport_ShowsStatusAndTotals(t *testing.T) {
	p := buildSamplePipeline(t)
	eng, err := pipeline.NewEngine(p)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	report, err := eng.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := renderReport(p, report)
	if !strings.Contains(out, "succeeded") {
		t.Errorf("statuses missing:\n%s", out)
	}
	if !strings.Contains(out, "2 succeeded, 0 failed, 0 skipped") {
		t.Errorf("totals missing:\n%s", out)
	}
	if !strings.Contains(out, "result=10") {
		t.Errorf("aggregate output missing:\n%s", out)
	}
}
