package scorer

import (
	"math"
	"testing"

	"github.com/gyeol/moltmatch/core"
)

func vec(id string, dims map[string]float64) *core.TasteVector {
	return core.NewTasteVector(id, dims)
}

func allScorers(t *testing.T) []Scorer {
	t.Helper()
	out := make([]Scorer, 0, 2)
	for _, m := range []string{MetricRatio, MetricCosine} {
		s, err := New(m)
		if err != nil {
			t.Fatalf("New(%q) error = %v", m, err)
		}
		out = append(out, s)
	}
	return out
}

var pairs = []struct {
	name string
	a, b map[string]float64
}{
	{"identical", map[string]float64{"tech": 90, "humor": 10}, map[string]float64{"tech": 90, "humor": 10}},
	{"zero candidate", map[string]float64{"tech": 90, "humor": 10}, map[string]float64{"tech": 0, "humor": 0}},
	{"orthogonal", map[string]float64{"tech": 90, "humor": 0}, map[string]float64{"tech": 0, "humor": 90}},
	{"disjoint", map[string]float64{"tech": 90}, map[string]float64{"music": 40}},
	{"partial overlap", map[string]float64{"tech": 70, "art": 30, "games": 5}, map[string]float64{"tech": 65, "music": 80}},
	{"negative values", map[string]float64{"calm": -40, "energy": 20}, map[string]float64{"calm": 35, "energy": 25}},
	{"huge magnitudes", map[string]float64{"x": 1e300, "y": -1e300}, map[string]float64{"x": 5e299, "y": 1e300}},
	{"tiny magnitudes", map[string]float64{"x": 1e-300}, map[string]float64{"x": 3e-300}},
	{"both empty", map[string]float64{}, map[string]float64{}},
	{"one empty", map[string]float64{"tech": 1}, nil},
}

func TestScore_Symmetry(t *testing.T) {
	for _, s := range allScorers(t) {
		for _, p := range pairs {
			t.Run(s.Name()+"/"+p.name, func(t *testing.T) {
				ab := s.Score(vec("a", p.a), vec("b", p.b))
				ba := s.Score(vec("b", p.b), vec("a", p.a))
				if ab != ba {
					t.Errorf("Score(a,b) = %v, Score(b,a) = %v", ab, ba)
				}
			})
		}
	}
}

func TestScore_FiniteAndBounded(t *testing.T) {
	for _, s := range allScorers(t) {
		for _, p := range pairs {
			t.Run(s.Name()+"/"+p.name, func(t *testing.T) {
				got := s.Score(vec("a", p.a), vec("b", p.b))
				if math.IsNaN(got) || math.IsInf(got, 0) {
					t.Fatalf("score is not finite: %v", got)
				}
				if got < MinScore || got > MaxScore {
					t.Errorf("score %v out of [%v, %v]", got, MinScore, MaxScore)
				}
			})
		}
	}
}

func TestScore_NilVectors(t *testing.T) {
	for _, s := range allScorers(t) {
		if got := s.Score(nil, nil); got != MinScore {
			t.Errorf("%s: Score(nil, nil) = %v, want %v", s.Name(), got, MinScore)
		}
		if got := s.Score(vec("a", map[string]float64{"tech": 1}), nil); got != MinScore {
			t.Errorf("%s: Score(v, nil) = %v, want %v", s.Name(), got, MinScore)
		}
	}
}

func TestScore_SelfSimilarityIsMaximal(t *testing.T) {
	others := []map[string]float64{
		{"tech": 90, "humor": 10},
		{"tech": 80, "humor": 20},
		{"tech": 900, "humor": 100},
		{"tech": 1, "humor": 0},
		{"tech": 90},
		{"tech": 90, "humor": 10, "music": 50},
		{"music": 50},
	}
	self := map[string]float64{"tech": 90, "humor": 10}

	for _, s := range allScorers(t) {
		max := s.Score(vec("v", self), vec("v", self))
		if max != MaxScore {
			t.Errorf("%s: Score(v,v) = %v, want %v", s.Name(), max, MaxScore)
		}
		for _, o := range others {
			if got := s.Score(vec("v", self), vec("w", o)); got > max {
				t.Errorf("%s: Score(v, %v) = %v exceeds self score %v", s.Name(), o, got, max)
			}
		}
	}
}

func TestRatio_IdenticalAboveZeroVector(t *testing.T) {
	s := Default()
	requester := vec("me", map[string]float64{"tech": 90, "humor": 10})
	same := vec("same", map[string]float64{"tech": 90, "humor": 10})
	zero := vec("zero", map[string]float64{"tech": 0, "humor": 0})

	sameScore := s.Score(requester, same)
	zeroScore := s.Score(requester, zero)

	if sameScore != MaxScore {
		t.Errorf("identical candidate score = %v, want %v", sameScore, MaxScore)
	}
	if zeroScore > 5 {
		t.Errorf("zero candidate score = %v, want near %v", zeroScore, MinScore)
	}
	if !(sameScore > zeroScore) {
		t.Errorf("identical (%v) should rank above zero (%v)", sameScore, zeroScore)
	}
}

func TestRatio_OrthogonalNearMinimum(t *testing.T) {
	s := Default()
	got := s.Score(
		vec("a", map[string]float64{"tech": 90, "humor": 0}),
		vec("b", map[string]float64{"tech": 0, "humor": 90}),
	)
	if got > 5 {
		t.Errorf("orthogonal score = %v, want near %v", got, MinScore)
	}
}

func TestRatio_DisjointIsFiniteMinimum(t *testing.T) {
	s := Default()
	got := s.Score(
		vec("a", map[string]float64{"tech": 90}),
		vec("b", map[string]float64{"music": 90}),
	)
	if got != MinScore {
		t.Errorf("disjoint score = %v, want %v", got, MinScore)
	}
}

func TestRatio_MissingDimensionDegradesGracefully(t *testing.T) {
	s := Default()
	base := map[string]float64{"tech": 80, "humor": 40}
	withExtra := map[string]float64{"tech": 80, "humor": 40, "music": 70}

	full := s.Score(vec("a", base), vec("b", base))
	partial := s.Score(vec("a", base), vec("b", withExtra))

	if !(partial < full) {
		t.Errorf("one-sided dimension should lower the score: partial=%v full=%v", partial, full)
	}
	if partial < full/2 {
		t.Errorf("one-sided dimension collapsed the score: partial=%v full=%v", partial, full)
	}

	// 单侧维度视为无信号，而不是 0：缺失与显式 0 的结果应当不同
	explicitZero := map[string]float64{"tech": 80, "humor": 40, "music": 0}
	zeroScore := s.Score(vec("a", explicitZero), vec("b", withExtra))
	if zeroScore == partial {
		t.Errorf("missing dimension scored like an explicit zero: %v", zeroScore)
	}
}

func TestRatio_StableUnderSmallPerturbation(t *testing.T) {
	s := Default()
	requester := vec("me", map[string]float64{"tech": 60, "humor": 30, "art": 10})
	for v := 0.0; v <= 100; v++ {
		a := s.Score(requester, vec("c", map[string]float64{"tech": v, "humor": 30, "art": 10}))
		b := s.Score(requester, vec("c", map[string]float64{"tech": v + 1, "humor": 30, "art": 10}))
		if d := math.Abs(a - b); d > 5 {
			t.Fatalf("1-unit change at tech=%v moved score by %v (%v -> %v)", v, d, a, b)
		}
	}
}

func TestRatio_CloserScoresHigher(t *testing.T) {
	s := Default()
	requester := vec("me", map[string]float64{"tech": 80, "humor": 20})
	near := s.Score(requester, vec("near", map[string]float64{"tech": 75, "humor": 25}))
	far := s.Score(requester, vec("far", map[string]float64{"tech": 20, "humor": 80}))
	if !(near > far) {
		t.Errorf("near (%v) should score above far (%v)", near, far)
	}
}

func TestRatio_Weights(t *testing.T) {
	w := &Weights{ByPrefix: map[string]float64{"interests.": 4}}
	weighted, err := New(MetricRatio, WithWeights(w))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	requester := vec("me", map[string]float64{"interests.tech": 90, "topics.news": 10})
	interestMatch := vec("a", map[string]float64{"interests.tech": 90, "topics.news": 90})
	topicMatch := vec("b", map[string]float64{"interests.tech": 10, "topics.news": 10})

	if !(weighted.Score(requester, interestMatch) > weighted.Score(requester, topicMatch)) {
		t.Errorf("heavier interests weight should favour the interest match")
	}
}

func TestScore_HugeWeightsStayFinite(t *testing.T) {
	weights := []*Weights{
		{Default: 1e308},
		{Default: 1, ByPrefix: map[string]float64{"interests.": 1e308}},
		{ByDimension: map[string]float64{"x": 1e308, "y": 1e308}},
	}
	self := map[string]float64{"x": 50, "y": 60, "interests.tech": 30}
	other := map[string]float64{"x": 10, "y": 90, "interests.tech": 80}

	for _, metric := range []string{MetricRatio, MetricCosine} {
		for _, w := range weights {
			s, err := New(metric, WithWeights(w))
			if err != nil {
				t.Fatalf("New(%q) error = %v", metric, err)
			}
			max := s.Score(vec("v", self), vec("v", self))
			if math.Abs(max-MaxScore) > 1e-9 {
				t.Errorf("%s %+v: Score(v,v) = %v, want %v", metric, w, max, MaxScore)
			}
			got := s.Score(vec("v", self), vec("w", other))
			if math.IsNaN(got) || got <= MinScore || got >= max {
				t.Errorf("%s %+v: Score(v,w) = %v, want within (%v, %v)", metric, w, got, MinScore, max)
			}
		}
	}
}

func TestCosine_DirectionOnly(t *testing.T) {
	s, _ := New(MetricCosine)
	a := vec("a", map[string]float64{"tech": 90, "humor": 10})
	b := vec("b", map[string]float64{"tech": 9, "humor": 1})
	if got := s.Score(a, b); math.Abs(got-MaxScore) > 1e-9 {
		t.Errorf("parallel vectors score = %v, want %v", got, MaxScore)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		opts   []Option
		check  func(error) bool
	}{
		{"unknown metric", "jaccard", nil, core.IsNotSupported},
		{"zero smoothing", MetricRatio, []Option{WithSmoothing(0)}, core.IsInvalidInput},
		{"negative penalty", MetricRatio, []Option{WithPartialPenalty(-1)}, core.IsInvalidInput},
		{"negative weight", MetricRatio, []Option{WithWeights(&Weights{ByDimension: map[string]float64{"x": -1}})}, core.IsInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.metric, tt.opts...)
			if err == nil || !tt.check(err) {
				t.Errorf("New() error = %v", err)
			}
		})
	}
}

func TestWeights_For(t *testing.T) {
	w := &Weights{
		Default:     2,
		ByPrefix:    map[string]float64{"interests.": 3, "interests.music.": 5},
		ByDimension: map[string]float64{"interests.tech": 7},
	}
	tests := map[string]float64{
		"interests.tech":       7,
		"interests.music.jazz": 5,
		"interests.art":        3,
		"topics.news":          2,
	}
	for dim, want := range tests {
		if got := w.For(dim); got != want {
			t.Errorf("For(%q) = %v, want %v", dim, got, want)
		}
	}
	var nilW *Weights
	if got := nilW.For("x"); got != 1 {
		t.Errorf("nil Weights For() = %v, want 1", got)
	}
}
