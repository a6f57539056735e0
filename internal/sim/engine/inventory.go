package engine

import "fmt"

// Reservation holds items subtracted from an owner's available (not total)
// inventory while its offer is pending. Exactly one reservation per txid.
type Reservation struct {
	Txid  string
	Owner string
	Items map[string]int
}

// Ledger is the per-shard item ledger: owner totals plus the reservations
// backing pending offers. Availability is derived, never stored, so totals
// stay invariant between the reserve and the commit/release of an offer.
//
// Not safe for concurrent use; owned by the shard loop.
type Ledger struct {
	totals   map[string]map[string]int
	reserved map[string]Reservation
}

func NewLedger() *Ledger {
	return &Ledger{
		totals:   map[string]map[string]int{},
		reserved: map[string]Reservation{},
	}
}

func (l *Ledger) invOf(owner string) map[string]int {
	inv := l.totals[owner]
	if inv == nil {
		inv = map[string]int{}
		l.totals[owner] = inv
	}
	return inv
}

// Grant credits items to an owner's totals (starter kits, admin top-ups).
func (l *Ledger) Grant(owner string, items map[string]int) {
	inv := l.invOf(owner)
	for item, n := range items {
		if n > 0 {
			inv[item] += n
		}
	}
}

func (l *Ledger) Total(owner, item string) int {
	return l.totals[owner][item]
}

// Available is the owner's total minus every active reservation they hold.
func (l *Ledger) Available(owner, item string) int {
	n := l.totals[owner][item]
	for _, r := range l.reserved {
		if r.Owner == owner {
			n -= r.Items[item]
		}
	}
	return n
}

func (l *Ledger) HasAvailable(owner string, need map[string]int) bool {
	for item, n := range need {
		if n < 0 || l.Available(owner, item) < n {
			return false
		}
	}
	return true
}

// Reserve is all-or-nothing: either every quantity in items is available and
// the whole set is reserved under txid, or nothing changes.
func (l *Ledger) Reserve(txid, owner string, items map[string]int) bool {
	if _, exists := l.reserved[txid]; exists {
		return false
	}
	if len(items) == 0 || !l.HasAvailable(owner, items) {
		return false
	}
	cp := make(map[string]int, len(items))
	for item, n := range items {
		cp[item] = n
	}
	l.reserved[txid] = Reservation{Txid: txid, Owner: owner, Items: cp}
	return true
}

// Release returns a reservation to its owner's available pool. Releasing an
// unknown or already-released txid is a no-op, which tolerates the
// lazy-expiry versus explicit-cancel race.
func (l *Ledger) Release(txid string) {
	delete(l.reserved, txid)
}

func (l *Ledger) ReservedBy(txid string) (Reservation, bool) {
	r, ok := l.reserved[txid]
	return r, ok
}

// Consume finalizes a reservation by moving the reserved items from the
// owner's totals to grantTo. Availability was checked at reserve time; this
// still fails closed if the owner's totals no longer back the reservation.
func (l *Ledger) Consume(txid, grantTo string) error {
	r, ok := l.reserved[txid]
	if !ok {
		return fmt.Errorf("consume %s: no reservation", txid)
	}
	src := l.invOf(r.Owner)
	for item, n := range r.Items {
		if src[item] < n {
			return fmt.Errorf("consume %s: %s holds %d %s, reservation needs %d",
				txid, r.Owner, src[item], item, n)
		}
	}
	delete(l.reserved, txid)
	dst := l.invOf(grantTo)
	for item, n := range r.Items {
		src[item] -= n
		if src[item] == 0 {
			delete(src, item)
		}
		dst[item] += n
	}
	return nil
}

// MoveAvailable transfers unreserved items between owners, all-or-nothing.
func (l *Ledger) MoveAvailable(from, to string, items map[string]int) error {
	if !l.HasAvailable(from, items) {
		return fmt.Errorf("move %s -> %s: insufficient available items", from, to)
	}
	src := l.invOf(from)
	dst := l.invOf(to)
	for item, n := range items {
		src[item] -= n
		if src[item] == 0 {
			delete(src, item)
		}
		dst[item] += n
	}
	return nil
}

// Apply adjusts an owner's totals by signed deltas (crafting), failing closed
// if any net subtraction would take availability below zero.
func (l *Ledger) Apply(owner string, delta map[string]int) error {
	for item, n := range delta {
		if n < 0 && l.Available(owner, item) < -n {
			return fmt.Errorf("apply %s: insufficient %s", owner, item)
		}
	}
	inv := l.invOf(owner)
	for item, n := range delta {
		inv[item] += n
		if inv[item] == 0 {
			delete(inv, item)
		}
	}
	return nil
}

// Snapshot copies an owner's totals for reporting.
func (l *Ledger) Snapshot(owner string) map[string]int {
	out := map[string]int{}
	for item, n := range l.totals[owner] {
		out[item] = n
	}
	return out
}
