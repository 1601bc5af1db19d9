package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/store"
)

func newAdapter(t *testing.T) *StoreAdapter {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	return NewStoreAdapter(s)
}

func TestStoreAdapter_GetExclusionSet(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	if err := a.Block(ctx, "me", "x"); err != nil {
		t.Fatalf("Block() error = %v", err)
	}
	if err := a.Block(ctx, "y", "me"); err != nil {
		t.Fatalf("Block() error = %v", err)
	}
	if err := a.CreateMatch(ctx, core.MatchRecord{Agent1ID: "me", Agent2ID: "m", CompatibilityScore: 80, Status: core.MatchStatusMatched}); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}
	if err := a.CreateMatch(ctx, core.MatchRecord{Agent1ID: "p", Agent2ID: "me", CompatibilityScore: 40, Status: core.MatchStatusPending}); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}

	set, err := a.GetExclusionSet(ctx, "me")
	if err != nil {
		t.Fatalf("GetExclusionSet() error = %v", err)
	}
	for _, id := range []string{"me", "x", "y", "m"} {
		if !set.Contains(id) {
			t.Errorf("exclusion set missing %q: %v", id, set.IDs())
		}
	}
	if set.Contains("p") {
		t.Errorf("pending partner should not be excluded: %v", set.IDs())
	}

	a.Bidirectional = false
	set, err = a.GetExclusionSet(ctx, "me")
	if err != nil {
		t.Fatalf("GetExclusionSet() error = %v", err)
	}
	if set.Contains("y") {
		t.Errorf("one-directional blocks should not exclude blockers: %v", set.IDs())
	}
}

func TestStoreAdapter_BlockRemovesMatchAndUnblock(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	if err := a.CreateMatch(ctx, core.MatchRecord{Agent1ID: "me", Agent2ID: "x", Status: core.MatchStatusChatting}); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}
	if err := a.Block(ctx, "me", "x"); err != nil {
		t.Fatalf("Block() error = %v", err)
	}
	if busy, _ := a.HasActiveMatch(ctx, "x"); busy {
		t.Error("block should remove the match on both sides")
	}
	if err := a.Unblock(ctx, "me", "x"); err != nil {
		t.Fatalf("Unblock() error = %v", err)
	}
	set, err := a.GetExclusionSet(ctx, "me")
	if err != nil {
		t.Fatalf("GetExclusionSet() error = %v", err)
	}
	if set.Contains("x") {
		t.Errorf("unblocked agent still excluded: %v", set.IDs())
	}
	if err := a.Block(ctx, "me", "me"); !core.IsInvalidInput(err) {
		t.Errorf("Block(self) error = %v, want INVALID_INPUT", err)
	}
}

func TestStoreAdapter_HasActiveMatch(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	busy, err := a.HasActiveMatch(ctx, "me")
	if err != nil || busy {
		t.Fatalf("HasActiveMatch() = %v, %v; want false, nil", busy, err)
	}
	if err := a.CreateMatch(ctx, core.MatchRecord{Agent1ID: "me", Agent2ID: "x", Status: core.MatchStatusEnded}); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}
	if busy, _ := a.HasActiveMatch(ctx, "me"); busy {
		t.Error("ended match should not count as active")
	}
	if err := a.CreateMatch(ctx, core.MatchRecord{Agent1ID: "x", Agent2ID: "me", Status: core.MatchStatusPending}); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}
	if busy, _ := a.HasActiveMatch(ctx, "me"); !busy {
		t.Error("pending match should count as active")
	}
}

type failingStore struct {
	core.Store
	err error
}

func (s *failingStore) Get(context.Context, string) ([]byte, error) { return nil, s.err }

func TestStoreAdapter_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	a := NewStoreAdapter(&failingStore{err: boom})
	if _, err := a.GetExclusionSet(context.Background(), "me"); !errors.Is(err, boom) {
		t.Errorf("GetExclusionSet() error = %v, want %v", err, boom)
	}
}
