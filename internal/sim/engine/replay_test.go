package engine

import "testing"

func TestReplayGuard_Admit(t *testing.T) {
	g := NewReplayGuard()

	if !g.Admit("P1", 1) {
		t.Fatal("first seq refused")
	}
	if g.Admit("P1", 1) {
		t.Fatal("duplicate seq admitted")
	}
	if !g.Admit("P1", 5) {
		t.Fatal("gap refused; seq only needs to be strictly greater")
	}
	if g.Admit("P1", 4) {
		t.Fatal("stale seq admitted")
	}
	// Other players have independent watermarks.
	if !g.Admit("P2", 1) {
		t.Fatal("P2 first seq refused")
	}
}

func TestReplayGuard_FirstSeqZero(t *testing.T) {
	g := NewReplayGuard()
	// seq 0 is admissible only as a player's first envelope.
	if !g.Admit("P1", 0) {
		t.Fatal("first envelope refused")
	}
	if g.Admit("P1", 0) {
		t.Fatal("second seq 0 admitted")
	}
}

func TestReplayGuard_Restore(t *testing.T) {
	g := NewReplayGuard()
	g.Restore("P1", 10)
	if g.Admit("P1", 10) {
		t.Fatal("restored watermark did not block replay")
	}
	if !g.Admit("P1", 11) {
		t.Fatal("seq above restored watermark refused")
	}

	// Restore never lowers.
	g.Restore("P1", 5)
	if got, _ := g.Watermark("P1"); got != 11 {
		t.Fatalf("watermark = %d, want 11", got)
	}
}

func TestReplayGuard_Forget(t *testing.T) {
	g := NewReplayGuard()
	g.Admit("P1", 9)
	g.Forget("P1")
	if _, ok := g.Watermark("P1"); ok {
		t.Fatal("watermark survived Forget")
	}
	if !g.Admit("P1", 1) {
		t.Fatal("fresh session refused after Forget")
	}
}
