package protocol

import "testing"

func TestCompletionItemKind(t *testing.T) {
	kinds := map[CompletionItemKind]int{
		CompletionItemKindFunction:      3,
		CompletionItemKindField:         5,
		CompletionItemKindClass:         7,
		CompletionItemKindInterface:     8,
		CompletionItemKindProperty:      10,
		CompletionItemKindValue:         12,
		CompletionItemKindEnum:          13,
		CompletionItemKindFile:          17,
		CompletionItemKindReference:     18,
		CompletionItemKindConstant:      21,
		CompletionItemKindStruct:        22,
		CompletionItemKindTypeParameter: 25,
	}

	for kind, want := range kinds {
		if int(kind) != want {
			t.Errorf("Kind mismatch: got %d, want %d", kind, want)
		}
	}
}

func TestPosition(t *testing.T) {
	pos := Position{Line: 1, Character: 5}
	if pos.Line != 1 {
		t.Errorf("Line mismatch: got %d, want %d", pos.Line, 1)
	}
	if pos.Character != 5 {
		t.Errorf("Character mismatch: got %d, want %d", pos.Character, 5)
	}
}

func TestPositionBefore(t *testing.T) {
	tests := []struct {
		a, b Position
		want bool
	}{
		{Position{0, 1}, Position{0, 2}, true},
		{Position{0, 2}, Position{0, 2}, false},
		{Position{1, 0}, Position{0, 9}, false},
		{Position{0, 9}, Position{1, 0}, true},
	}
	for _, tt := range tests {
		if got := tt.a.Before(tt.b); got != tt.want {
			t.Errorf("%v.Before(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRange(t *testing.T) {
	r := NewRange(0, 0, 1, 5)

	if r.Start.Line != 0 {
		t.Errorf("Start line mismatch: got %d, want %d", r.Start.Line, 0)
	}
	if r.End.Character != 5 {
		t.Errorf("End character mismatch: got %d, want %d", r.End.Character, 5)
	}
	if !r.ContainsLine(1) || r.ContainsLine(2) {
		t.Errorf("ContainsLine mismatch for %v", r)
	}
}

func TestCompletionListLabels(t *testing.T) {
	var empty *CompletionList
	if empty.Labels() != nil {
		t.Error("nil list should have nil labels")
	}

	list := &CompletionList{Items: []CompletionItem{{Label: "model"}, {Label: "enum"}}}
	got := list.Labels()
	if len(got) != 2 || got[0] != "model" || got[1] != "enum" {
		t.Errorf("Labels() = %v", got)
	}
}
