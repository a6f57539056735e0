package engine

import "testing"

func TestLedger_ReserveDerivesAvailability(t *testing.T) {
	l := NewLedger()
	l.Grant("A", map[string]int{"wood": 5})

	if !l.Reserve("t-1", "A", map[string]int{"wood": 3}) {
		t.Fatal("reserve refused")
	}
	// Totals are untouched while the reservation is pending.
	if got := l.Total("A", "wood"); got != 5 {
		t.Fatalf("total = %d, want 5", got)
	}
	if got := l.Available("A", "wood"); got != 2 {
		t.Fatalf("available = %d, want 2", got)
	}
	if l.Reserve("t-2", "A", map[string]int{"wood": 3}) {
		t.Fatal("over-reserve allowed")
	}

	l.Release("t-1")
	if got := l.Available("A", "wood"); got != 5 {
		t.Fatalf("available after release = %d, want 5", got)
	}
	// Idempotent.
	l.Release("t-1")
}

func TestLedger_ReserveAllOrNothing(t *testing.T) {
	l := NewLedger()
	l.Grant("A", map[string]int{"wood": 5, "rock": 1})

	if l.Reserve("t-1", "A", map[string]int{"wood": 2, "rock": 2}) {
		t.Fatal("partial reserve allowed")
	}
	if got := l.Available("A", "wood"); got != 5 {
		t.Fatalf("failed reserve changed availability: wood = %d", got)
	}
	if l.Reserve("t-1", "A", nil) {
		t.Fatal("empty reserve allowed")
	}

	if !l.Reserve("t-1", "A", map[string]int{"wood": 1}) {
		t.Fatal("reserve refused")
	}
	if l.Reserve("t-1", "A", map[string]int{"rock": 1}) {
		t.Fatal("duplicate txid allowed")
	}
}

func TestLedger_Consume(t *testing.T) {
	l := NewLedger()
	l.Grant("A", map[string]int{"wood": 5})
	if !l.Reserve("t-1", "A", map[string]int{"wood": 3}) {
		t.Fatal("reserve refused")
	}

	if err := l.Consume("t-1", "B"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got := l.Total("A", "wood"); got != 2 {
		t.Fatalf("A total = %d, want 2", got)
	}
	if got := l.Total("B", "wood"); got != 3 {
		t.Fatalf("B total = %d, want 3", got)
	}
	if err := l.Consume("t-1", "B"); err == nil {
		t.Fatal("double consume succeeded")
	}
}

func TestLedger_MoveAvailableRespectsReservations(t *testing.T) {
	l := NewLedger()
	l.Grant("A", map[string]int{"wood": 5})
	if !l.Reserve("t-1", "A", map[string]int{"wood": 4}) {
		t.Fatal("reserve refused")
	}

	if err := l.MoveAvailable("A", "B", map[string]int{"wood": 2}); err == nil {
		t.Fatal("move dipped into reserved items")
	}
	if err := l.MoveAvailable("A", "B", map[string]int{"wood": 1}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := l.Total("B", "wood"); got != 1 {
		t.Fatalf("B total = %d, want 1", got)
	}
}

func TestLedger_ApplyFailsClosed(t *testing.T) {
	l := NewLedger()
	l.Grant("A", map[string]int{"wood": 2})

	if err := l.Apply("A", map[string]int{"wood": -3, "rope": 1}); err == nil {
		t.Fatal("apply overdrew")
	}
	if got := l.Total("A", "rope"); got != 0 {
		t.Fatalf("failed apply left rope = %d", got)
	}

	if err := l.Apply("A", map[string]int{"wood": -2, "rope": 1}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := l.Total("A", "wood"); got != 0 {
		t.Fatalf("wood = %d, want 0", got)
	}
	if got := l.Total("A", "rope"); got != 1 {
		t.Fatalf("rope = %d, want 1", got)
	}
}
