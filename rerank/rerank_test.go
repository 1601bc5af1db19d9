package rerank

import (
	"context"
	"reflect"
	"testing"

	"github.com/gyeol/moltmatch/core"
)

func scored(id string, score float64) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	return it
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestSortNode(t *testing.T) {
	in := []*core.Item{
		scored("c", 50),
		nil,
		scored("b", 80),
		scored("a", 50),
		scored("d", 80),
	}
	out, err := (&SortNode{}).Process(context.Background(), nil, in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []string{"b", "d", "a", "c"}
	if got := ids(out); !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %v, want %v", got, want)
	}
}

func TestSortNode_Deterministic(t *testing.T) {
	a := []*core.Item{scored("x", 1), scored("y", 1), scored("z", 1)}
	b := []*core.Item{scored("z", 1), scored("x", 1), scored("y", 1)}
	outA, _ := (&SortNode{}).Process(context.Background(), nil, a)
	outB, _ := (&SortNode{}).Process(context.Background(), nil, b)
	if !reflect.DeepEqual(ids(outA), ids(outB)) {
		t.Errorf("order depends on input order: %v vs %v", ids(outA), ids(outB))
	}
}

func TestTopNNode(t *testing.T) {
	items := []*core.Item{scored("a", 3), scored("b", 2), scored("c", 1)}
	tests := []struct {
		n    int
		want []string
	}{
		{0, []string{"a", "b", "c"}},
		{-1, []string{"a", "b", "c"}},
		{2, []string{"a", "b"}},
		{3, []string{"a", "b", "c"}},
		{10, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		out, err := (&TopNNode{N: tt.n}).Process(context.Background(), nil, items)
		if err != nil {
			t.Fatalf("N=%d: Process() error = %v", tt.n, err)
		}
		if got := ids(out); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("N=%d: Process() = %v, want %v", tt.n, got, tt.want)
		}
	}
}
