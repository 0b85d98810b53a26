package matrix

import (
	"reflect"
	"testing"
)

func TestExpand_CartesianProduct(t *testing.T) {
	// --- Arrange ---
	dims := []Dimension{
		{Name: "os", Values: []string{"linux", "macos", "windows"}},
		{Name: "engine", Values: []string{"wasm3", "wasmtime"}},
	}

	// --- Act ---
	cells := Expand(dims)

	// --- Assert ---
	if len(cells) != 6 {
		t.Fatalf("expected 6 cells, got %d", len(cells))
	}

	wantOrder := []string{
		"linux-wasm3", "linux-wasmtime",
		"macos-wasm3", "macos-wasmtime",
		"windows-wasm3", "windows-wasmtime",
	}
	var gotOrder []string
	seen := make(map[string]bool)
	for _, cell := range cells {
		id := cell.ID()
		if seen[id] {
			t.Errorf("duplicate cell %q in expansion", id)
		}
		seen[id] = true
		gotOrder = append(gotOrder, id)
	}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Errorf("expansion order mismatch:\n got  %v\n want %v", gotOrder, wantOrder)
	}
}

func TestExpand_IsDeterministic(t *testing.T) {
	dims := []Dimension{
		{Name: "os", Values: []string{"linux", "windows"}},
		{Name: "engine", Values: []string{"wasm3", "wasmtime"}},
		{Name: "variant", Values: []string{"a", "b", "c"}},
	}

	first := Expand(dims)
	second := Expand(dims)

	if len(first) != 2*2*3 {
		t.Fatalf("expected %d cells, got %d", 2*2*3, len(first))
	}
	for i := range first {
		if first[i].ID() != second[i].ID() {
			t.Fatalf("expansion not deterministic at index %d: %q vs %q", i, first[i].ID(), second[i].ID())
		}
	}
}

func TestExpand_SingleDimension(t *testing.T) {
	cells := Expand([]Dimension{{Name: "os", Values: []string{"linux", "macos", "windows"}}})

	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}
	if _, ok := cells[0].Value("engine"); ok {
		t.Error("cell should not have an engine dimension")
	}
	if os, _ := cells[0].Value("os"); os != "linux" {
		t.Errorf("expected first cell os=linux, got %q", os)
	}
}

func TestExpand_EmptyInputs(t *testing.T) {
	if cells := Expand(nil); cells != nil {
		t.Errorf("expected no cells for nil dimensions, got %d", len(cells))
	}
	cells := Expand([]Dimension{
		{Name: "os", Values: []string{"linux"}},
		{Name: "engine", Values: nil},
	})
	if len(cells) != 0 {
		t.Errorf("expected empty product when one dimension is empty, got %d cells", len(cells))
	}
}
