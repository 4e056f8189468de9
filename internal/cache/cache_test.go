package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hdl-tools/vracer/internal/ir"
)

func sampleDesign() *ir.Design {
	return &ir.Design{Modules: []*ir.Module{
		{
			Name:       "m",
			Parameters: map[string]string{},
			Nets:       map[string]ir.NetDecl{"a": {Name: "a", Width: 1, Kind: ir.Wire}},
			Processes: []*ir.Process{
				{Kind: ir.Initial, Label: "c_initial_0", TriggerSet: []ir.Trigger{{Kind: ir.NoneInitial}},
					AnchorPoints: []ir.Anchor{{ID: 0, Label: "c_initial_0@none"}}},
			},
		},
	}}
}

func TestCachePutThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	if err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	design := sampleDesign()
	hash := HashBytes([]byte("module m; endmodule"))
	if err := c.Put("m.v", hash, design); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get("m.v", hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got.Modules) != 1 || got.Modules[0].Name != "m" {
		t.Errorf("round-tripped design = %+v", got)
	}
}

func TestCacheMissOnContentHashChange(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	_ = c.Load()

	hash1 := HashBytes([]byte("module m; endmodule"))
	hash2 := HashBytes([]byte("module m; reg a; endmodule"))
	_ = c.Put("m.v", hash1, sampleDesign())

	_, ok, err := c.Get("m.v", hash2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected a cache miss after content hash changes")
	}
}

func TestCacheMissOnVersionBump(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	_ = c.Load()

	hash := HashBytes([]byte("module m; endmodule"))
	_ = c.Put("m.v", hash, sampleDesign())

	c.mu.Lock()
	e := c.idx.Entries["m.v"]
	e.ParserVersion = "stale"
	c.idx.Entries["m.v"] = e
	c.mu.Unlock()

	_, ok, err := c.Get("m.v", hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected a cache miss after a parser version bump")
	}
}

func TestCacheSaveAndLoadPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	hash := HashBytes([]byte("module m; endmodule"))

	first := New(dir)
	_ = first.Load()
	_ = first.Put("m.v", hash, sampleDesign())
	if err := first.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := New(dir)
	if err := second.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, ok, err := second.Get("m.v", hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Error("expected the second instance to see the persisted entry")
	}
}

func TestHashFileMatchesHashBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.v")
	data := []byte("module m; endmodule")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fromFile, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	fromBytes := HashBytes(data)
	if fromFile != fromBytes {
		t.Errorf("HashFile = %s, HashBytes = %s", fromFile, fromBytes)
	}
}
