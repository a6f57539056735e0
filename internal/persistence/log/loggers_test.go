package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"gridquest.gg/internal/sim/engine"
)

func TestCommandLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewCommandLogger(dir)

	recs := []engine.CommandRecord{
		{AtMs: 1000, Player: "P1", Seq: 1, Kind: "make", Status: "matched"},
		{AtMs: 1001, Player: "P1", Seq: 2, Kind: "accept", Status: "rejected", Reason: "expired", Txid: "t-3"},
	}
	for _, rec := range recs {
		if err := l.WriteStatus(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "commands", "commands-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("log files = %v (err %v)", files, err)
	}

	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []engine.CommandRecord
	sc := bufio.NewScanner(dec.IOReadCloser())
	for sc.Scan() {
		var rec engine.CommandRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, rec)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != len(recs) {
		t.Fatalf("records = %d, want %d", len(got), len(recs))
	}
	if got[1].Reason != "expired" || got[1].Txid != "t-3" {
		t.Fatalf("record = %+v", got[1])
	}
}
