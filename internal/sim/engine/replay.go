package engine

// ReplayGuard filters stale or duplicate command envelopes. It keeps one
// watermark per player: the highest sequence number admitted so far. An
// envelope is admitted iff its seq is strictly greater than the watermark;
// everything else is a transport-layer discard, not a rejected command.
//
// Not safe for concurrent use; owned by the shard loop.
type ReplayGuard struct {
	watermarks map[string]uint64
}

func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{watermarks: map[string]uint64{}}
}

// Admit reports whether seq advances the player's watermark, updating it on
// admission. The first-ever envelope from a player is always admitted.
func (g *ReplayGuard) Admit(playerID string, seq uint64) bool {
	last, seen := g.watermarks[playerID]
	if seen && seq <= last {
		return false
	}
	g.watermarks[playerID] = seq
	return true
}

func (g *ReplayGuard) Watermark(playerID string) (uint64, bool) {
	seq, ok := g.watermarks[playerID]
	return seq, ok
}

// Restore seeds a watermark from the journal at startup. It never lowers an
// existing watermark.
func (g *ReplayGuard) Restore(playerID string, seq uint64) {
	if last, ok := g.watermarks[playerID]; ok && last >= seq {
		return
	}
	g.watermarks[playerID] = seq
}

// Forget drops a player's watermark when their session ends, so the guard
// holds one integer per live player rather than growing without bound.
func (g *ReplayGuard) Forget(playerID string) {
	delete(g.watermarks, playerID)
}
