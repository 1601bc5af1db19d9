package rank

import (
	"context"
	"testing"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/scorer"
)

func TestCompatibilityNode(t *testing.T) {
	me := core.NewTasteVector("me", map[string]float64{"tech": 90, "humor": 10})
	same := core.NewItemFromVector(core.NewTasteVector("same", map[string]float64{"tech": 90, "humor": 10}))
	far := core.NewItemFromVector(core.NewTasteVector("far", map[string]float64{"tech": 0, "humor": 90}))

	node := &CompatibilityNode{}
	out, err := node.Process(context.Background(), &core.MatchContext{AgentID: "me", Vector: me}, []*core.Item{far, same})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 2 || out[0].ID != "far" {
		t.Fatalf("Process() must keep input order, got %v", out)
	}
	if same.Score != scorer.MaxScore {
		t.Errorf("identical candidate score = %v, want %v", same.Score, scorer.MaxScore)
	}
	if !(same.Score > far.Score) {
		t.Errorf("same (%v) should outscore far (%v)", same.Score, far.Score)
	}
	if lbl := same.Labels["match_metric"]; lbl.Value != scorer.MetricRatio {
		t.Errorf("match_metric label = %+v", lbl)
	}
}

func TestCompatibilityNode_RequiresRequesterVector(t *testing.T) {
	node := &CompatibilityNode{}
	_, err := node.Process(context.Background(), &core.MatchContext{AgentID: "me"}, nil)
	if !core.IsNoProfileSignal(err) {
		t.Errorf("Process() error = %v, want NO_PROFILE_SIGNAL", err)
	}
}

func TestCompatibilityNode_CustomScorer(t *testing.T) {
	constant := scorer.Func(func(a, b *core.TasteVector) float64 { return 42 })
	it := core.NewItem("x")
	me := core.NewTasteVector("me", nil)
	if _, err := (&CompatibilityNode{Scorer: constant}).Process(context.Background(), &core.MatchContext{Vector: me}, []*core.Item{it}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if it.Score != 42 {
		t.Errorf("Score = %v, want 42", it.Score)
	}
}
