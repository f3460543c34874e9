package pipeline_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/driftworks/conduit/pkg/pipeline"
	"github.com/driftworks/conduit/pkg/pipeline/nodes"
)

// ─── Connection tests ─────────────────────────────────────────────────────────

func TestConnect_Valid(t *testing.T) {
	p := pipeline.New("test")
	v := nodes.NewValue(1)
	m, _ := nodes.NewMath("add")
	p.AddNode(v)
	p.AddNode(m)

	connID, err := p.Connect(v.ID(), "output", m.ID(), "a")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if connID == "" {
		t.Error("expected non-empty connection id")
	}
	if len(p.Connections()) != 1 {
		t.Errorf("connections = %d, want 1", len(p.Connections()))
	}
}

func TestConnect_UnknownNode(t *testing.T) {
	p := pipeline.New("test")
	v := nodes.NewValue(1)
	p.AddNode(v)

	_, err := p.Connect(v.ID(), "output", "nope", "a")
	var connErr *pipeline.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if !strings.Contains(connErr.Reason, "target node not found") {
		t.Errorf("reason = %q, want target node not found", connErr.Reason)
	}
}

func TestConnect_UnknownPort(t *testing.T) {
	p := pipeline.New("test")
	v := nodes.NewValue(1)
	m, _ := nodes.NewMath("add")
	p.AddNode(v)
	p.AddNode(m)

	_, err := p.Connect(v.ID(), "nope", m.ID(), "a")
	var connErr *pipeline.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if !strings.Contains(connErr.Reason, "source port not found") {
		t.Errorf("reason = %q, want source port not found", connErr.Reason)
	}
}

func TestConnect_WrongDirection(t *testing.T) {
	p := pipeline.New("test")
	v := nodes.NewValue(1)
	m, _ := nodes.NewMath("add")
	p.AddNode(v)
	p.AddNode(m)

	// Using an input port as the source.
	_, err := p.Connect(m.ID(), "a", v.ID(), "input")
	var connErr *pipeline.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if !strings.Contains(connErr.Reason, "is an input, not an output") {
		t.Errorf("reason = %q, want input-as-source complaint", connErr.Reason)
	}

	// Using an output port as the target.
	_, err = p.Connect(v.ID(), "output", m.ID(), "result")
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if !strings.Contains(connErr.Reason, "is an output, not an input") {
		t.Errorf("reason = %q, want output-as-target complaint", connErr.Reason)
	}
}

func TestConnect_SingleWriterPerInput(t *testing.T) {
	p := pipeline.New("test")
	v1 := nodes.NewValue(1)
	v2 := nodes.NewValue(2)
	m, _ := nodes.NewMath("add")
	p.AddNode(v1)
	p.AddNode(v2)
	p.AddNode(m)

	if _, err := p.Connect(v1.ID(), "output", m.ID(), "a"); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	_, err := p.Connect(v2.ID(), "output", m.ID(), "a")
	var connErr *pipeline.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if !strings.Contains(connErr.Reason, "already connected") {
		t.Errorf("reason = %q, want already connected", connErr.Reason)
	}
	// The rejected edge must not have been recorded.
	if len(p.Connections()) != 1 {
		t.Errorf("connections = %d, want 1", len(p.Connections()))
	}
}

func TestConnect_IncompatibleTypes(t *testing.T) {
	p := pipeline.New("test")
	s := nodes.NewSequence([]any{1, 2})
	m, _ := nodes.NewMath("add")
	p.AddNode(s)
	p.AddNode(m)

	_, err := p.Connect(s.ID(), "output", m.ID(), "a")
	var connErr *pipeline.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if !strings.Contains(connErr.Reason, "incompatible port types") {
		t.Errorf("reason = %q, want incompatible port types", connErr.Reason)
	}
}

func TestConnect_AnyMatchesAnything(t *testing.T) {
	p := pipeline.New("test")
	v := nodes.NewValue(1) // output type any
	m, _ := nodes.NewMath("add")
	p.AddNode(v)
	p.AddNode(m)

	if _, err := p.Connect(v.ID(), "output", m.ID(), "a"); err != nil {
		t.Errorf("any -> number should connect: %v", err)
	}
}

func TestDisconnect(t *testing.T) {
	p := pipeline.New("test")
	v := nodes.NewValue(1)
	m, _ := nodes.NewMath("add")
	p.AddNode(v)
	p.AddNode(m)
	connID, _ := p.Connect(v.ID(), "output", m.ID(), "a")

	if !p.Disconnect(connID) {
		t.Fatal("Disconnect returned false for existing connection")
	}
	if p.Disconnect(connID) {
		t.Error("Disconnect returned true for removed connection")
	}
	if len(p.Connections()) != 0 {
		t.Errorf("connections = %d, want 0", len(p.Connections()))
	}
}

func TestRemoveNode_CascadesConnections(t *testing.T) {
	p := pipeline.New("test")
	v1 := nodes.NewValue(1)
	v2 := nodes.NewValue(2)
	m, _ := nodes.NewMath("add")
	p.AddNode(v1)
	p.AddNode(v2)
	p.AddNode(m)
	p.Connect(v1.ID(), "output", m.ID(), "a")
	p.Connect(v2.ID(), "output", m.ID(), "b")

	if !p.RemoveNode(m.ID()) {
		t.Fatal("RemoveNode returned false")
	}
	if p.NodeCount() != 2 {
		t.Errorf("nodes = %d, want 2", p.NodeCount())
	}
	if len(p.Connections()) != 0 {
		t.Errorf("connections = %d, want 0 after cascade", len(p.Connections()))
	}
	// The surviving input port is free again.
	m2, _ := nodes.NewMath("add")
	p.AddNode(m2)
	if _, err := p.Connect(v1.ID(), "output", m2.ID(), "a"); err != nil {
		t.Errorf("reconnect after cascade: %v", err)
	}
}

// ─── Validation tests ─────────────────────────────────────────────────────────

func TestValidate_CleanPipeline(t *testing.T) {
	p := pipeline.New("test")
	v := nodes.NewValue(1)
	m, _ := nodes.NewMath("add")
	p.AddNode(v)
	p.AddNode(m)
	p.Connect(v.ID(), "output", m.ID(), "a")

	if issues := pipeline.Validate(p); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
	if err := pipeline.ValidateErr(p); err != nil {
		t.Errorf("ValidateErr: %v", err)
	}
}

func TestValidate_ReportsCycle(t *testing.T) {
	p := pipeline.New("test")
	a := nodes.NewValue(1)
	b := nodes.NewValue(2)
	c := nodes.NewValue(3)
	p.AddNode(a)
	p.AddNode(b)
	p.AddNode(c)
	p.Connect(a.ID(), "output", b.ID(), "input")
	p.Connect(b.ID(), "output", c.ID(), "input")
	p.Connect(c.ID(), "output", a.ID(), "input")

	issues := pipeline.Validate(p)
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1: %v", len(issues), issues)
	}
	msg := issues[0].Message
	if !strings.Contains(msg, "cycle") {
		t.Errorf("message = %q, want cycle", msg)
	}
	// All three participants named.
	for _, n := range []pipeline.Node{a, b, c} {
		if !strings.Contains(msg, n.ID()) {
			t.Errorf("cycle message %q does not name node %s", msg, n.ID())
		}
	}
}

func TestValidateErr_CombinesIssues(t *testing.T) {
	p := pipeline.New("test")
	x := nodes.NewValue(1)
	y := nodes.NewValue(2)
	p.AddNode(x)
	p.AddNode(y)
	p.Connect(x.ID(), "output", y.ID(), "input")
	p.Connect(y.ID(), "output", x.ID(), "input")

	err := pipeline.ValidateErr(p)
	if err == nil {
		t.Fatal("expected validation error for cycle")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("error = %q, want combined validation message", err)
	}
}

// ─── Scheduling tests ─────────────────────────────────────────────────────────

func TestSchedule_TopologicalOrder(t *testing.T) {
	p := pipeline.New("test")
	src := nodes.NewSequence([]any{1, 2, 3, 4})
	tr, _ := nodes.NewTransform("square")
	agg, _ := nodes.NewAggregate("sum")
	p.AddNode(agg) // insertion order deliberately reversed
	p.AddNode(tr)
	p.AddNode(src)
	p.Connect(src.ID(), "output", tr.ID(), "data")
	p.Connect(tr.ID(), "transformed_data", agg.ID(), "data")

	order, err := pipeline.Schedule(p)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	want := []string{src.ID(), tr.ID(), agg.ID()}
	if len(order) != len(want) {
		t.Fatalf("order length = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestSchedule_InsertionOrderTieBreak(t *testing.T) {
	p := pipeline.New("test")
	var ids []string
	for i := 0; i < 5; i++ {
		n := nodes.NewValue(i)
		p.AddNode(n)
		ids = append(ids, n.ID())
	}

	order, err := pipeline.Schedule(p)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	for i := range ids {
		if order[i] != ids[i] {
			t.Errorf("order[%d] = %s, want insertion order %s", i, order[i], ids[i])
		}
	}
}

func TestSchedule_Deterministic(t *testing.T) {
	p := pipeline.New("test")
	src := nodes.NewSequence([]any{1, 2})
	sp := nodes.NewSplit()
	t1, _ := nodes.NewTransform("square")
	t2, _ := nodes.NewTransform("abs")
	j := nodes.NewJoin()
	p.AddNode(src)
	p.AddNode(sp)
	p.AddNode(t1)
	p.AddNode(t2)
	p.AddNode(j)
	p.Connect(src.ID(), "output", sp.ID(), "data")
	p.Connect(sp.ID(), "data1", t1.ID(), "data")
	p.Connect(sp.ID(), "data2", t2.ID(), "data")
	p.Connect(t1.ID(), "transformed_data", j.ID(), "data1")
	p.Connect(t2.ID(), "transformed_data", j.ID(), "data2")

	first, err := pipeline.Schedule(p)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	for run := 0; run < 10; run++ {
		again, err := pipeline.Schedule(p)
		if err != nil {
			t.Fatalf("Schedule run %d: %v", run, err)
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d: order[%d] = %s, want %s", run, i, again[i], first[i])
			}
		}
	}
}

func TestSchedule_CycleError(t *testing.T) {
	p := pipeline.New("test")
	a := nodes.NewValue(1)
	b := nodes.NewValue(2)
	p.AddNode(a)
	p.AddNode(b)
	p.Connect(a.ID(), "output", b.ID(), "input")
	p.Connect(b.ID(), "output", a.ID(), "input")

	_, err := pipeline.Schedule(p)
	var cycleErr *pipeline.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if len(cycleErr.NodeIDs) != 2 {
		t.Errorf("cycle members = %d, want 2", len(cycleErr.NodeIDs))
	}
}

// ─── Serialization tests ──────────────────────────────────────────────────────

func TestSerialize_RoundTrip(t *testing.T) {
	p := pipeline.New("demo")
	src := nodes.NewSequence([]any{1, 2, 3, 4})
	src.SetName("Input Data")
	src.SetPosition(10, 20)
	tr, _ := nodes.NewTransform("square")
	tr.SetPosition(200, 20)
	agg, _ := nodes.NewAggregate("sum")
	p.AddNode(src)
	p.AddNode(tr)
	p.AddNode(agg)
	p.Connect(src.ID(), "output", tr.ID(), "data")
	p.Connect(tr.ID(), "transformed_data", agg.ID(), "data")

	data, err := pipeline.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	loaded, err := pipeline.Unmarshal(data, nodes.Default())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if loaded.Name != "demo" {
		t.Errorf("name = %q, want demo", loaded.Name)
	}
	if loaded.NodeCount() != 3 {
		t.Fatalf("nodes = %d, want 3", loaded.NodeCount())
	}
	if len(loaded.Connections()) != 2 {
		t.Fatalf("connections = %d, want 2", len(loaded.Connections()))
	}

	// Identity, naming, and placement survive.
	n, ok := loaded.Node(src.ID())
	if !ok {
		t.Fatalf("source node %s missing after round trip", src.ID())
	}
	if n.Name() != "Input Data" {
		t.Errorf("name = %q, want Input Data", n.Name())
	}
	if x, y := n.Position(); x != 10 || y != 20 {
		t.Errorf("position = (%g, %g), want (10, 20)", x, y)
	}
	if n.Type() != nodes.TypeSequence {
		t.Errorf("type = %s, want %s", n.Type(), nodes.TypeSequence)
	}

	// Connection ids and endpoints survive in order.
	origConns := p.Connections()
	loadedConns := loaded.Connections()
	for i := range origConns {
		if loadedConns[i].ID != origConns[i].ID {
			t.Errorf("conn[%d] id = %s, want %s", i, loadedConns[i].ID, origConns[i].ID)
		}
		if loadedConns[i].SourceNode != origConns[i].SourceNode ||
			loadedConns[i].TargetPort != origConns[i].TargetPort {
			t.Errorf("conn[%d] endpoints changed", i)
		}
	}
}

func TestSerialize_InvalidEdgeFailsLoad(t *testing.T) {
	doc := `{
		"name": "bad",
		"nodes": [
			{"id": "n1", "type": "value", "data": 1},
			{"id": "n2", "type": "value", "data": 2}
		],
		"connections": [
			{"id": "c1", "source_node": "n1", "source_port": "nope", "target_node": "n2", "target_port": "input"}
		]
	}`
	_, err := pipeline.Unmarshal([]byte(doc), nodes.Default())
	if err == nil {
		t.Fatal("expected load failure for invalid edge")
	}
	if !strings.Contains(err.Error(), "replay connection") {
		t.Errorf("error = %q, want replay connection context", err)
	}
}

func TestSerialize_UnknownTypeFailsLoad(t *testing.T) {
	doc := `{"name": "bad", "nodes": [{"id": "n1", "type": "flux.capacitor"}]}`
	_, err := pipeline.Unmarshal([]byte(doc), nodes.Default())
	var cfgErr *pipeline.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}

// ─── DOT tests ────────────────────────────────────────────────────────────────

func TestDOT_RoundTrip(t *testing.T) {
	p := pipeline.New("dotdemo")
	v1 := nodes.NewValue(3)
	v2 := nodes.NewValue(4)
	m, _ := nodes.NewMath("add")
	p.AddNode(v1)
	p.AddNode(v2)
	p.AddNode(m)
	p.Connect(v1.ID(), "output", m.ID(), "a")
	p.Connect(v2.ID(), "output", m.ID(), "b")

	src := pipeline.ExportDOT(p)
	if !strings.Contains(src, "digraph") {
		t.Fatalf("export missing digraph header:\n%s", src)
	}

	loaded, err := pipeline.ImportDOT(src, nodes.Default())
	if err != nil {
		t.Fatalf("ImportDOT: %v", err)
	}
	if loaded.NodeCount() != 3 {
		t.Errorf("nodes = %d, want 3", loaded.NodeCount())
	}
	if len(loaded.Connections()) != 2 {
		t.Errorf("connections = %d, want 2", len(loaded.Connections()))
	}

	n, ok := loaded.Node(m.ID())
	if !ok {
		t.Fatalf("math node missing after round trip")
	}
	if op, _ := n.Config()["op"].(string); op != "add" {
		t.Errorf("op = %q, want add", op)
	}
}

func TestDOT_MissingTypeAttr(t *testing.T) {
	src := `digraph g { n1 [label="Orphan"] }`
	_, err := pipeline.ImportDOT(src, nodes.Default())
	if err == nil || !strings.Contains(err.Error(), "missing type") {
		t.Errorf("expected missing type error, got %v", err)
	}
}
