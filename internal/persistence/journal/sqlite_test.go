package journal

import (
	"context"
	"path/filepath"
	"testing"

	"gridquest.gg/internal/sim/engine"
)

func TestJournal_WatermarksSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	recs := []engine.CommandRecord{
		{AtMs: 1000, Player: "P1", Seq: 1, Kind: "make", Status: "matched"},
		{AtMs: 1001, Player: "P1", Seq: 2, Kind: "trade", Status: "accepted", Txid: "t-1"},
		{AtMs: 1002, Player: "P1", Seq: 3, Kind: "accept", Status: "rejected", Reason: "expired", Txid: "t-1"},
		{AtMs: 1003, Player: "P2", Seq: 5, Kind: "rep", Status: "matched"},
	}
	for _, rec := range recs {
		if err := j.WriteStatus(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	// Close drains the queue before committing.
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()

	marks, err := j.Watermarks(context.Background())
	if err != nil {
		t.Fatalf("watermarks: %v", err)
	}
	if marks["P1"] != 3 {
		t.Fatalf("P1 = %d, want 3", marks["P1"])
	}
	if marks["P2"] != 5 {
		t.Fatalf("P2 = %d, want 5", marks["P2"])
	}
}

func TestJournal_WatermarkNeverLowers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = j.WriteStatus(engine.CommandRecord{AtMs: 1, Player: "P1", Seq: 9, Status: "matched"})
	_ = j.WriteStatus(engine.CommandRecord{AtMs: 2, Player: "P1", Seq: 4, Status: "matched"})
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	marks, err := j.Watermarks(context.Background())
	if err != nil {
		t.Fatalf("watermarks: %v", err)
	}
	if marks["P1"] != 9 {
		t.Fatalf("P1 = %d, want 9", marks["P1"])
	}
}

func TestJournal_WriteAfterCloseIsNoop(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := j.WriteStatus(engine.CommandRecord{Player: "P1", Seq: 1, Status: "matched"}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
}
