package engine

import (
	"math"
	"sync"
)

// PositionOracle supplies live entity coordinates for range checks. The
// engine only reads positions; implementations must be safe for concurrent
// use or externally synchronized.
type PositionOracle interface {
	// Distance returns the distance between two entities and whether both
	// positions are known.
	Distance(a, b string) (float64, bool)
}

// Positions is a mutex-guarded PositionOracle fed by the transport layer's
// pos messages.
type Positions struct {
	mu   sync.RWMutex
	byID map[string]vec2
}

type vec2 struct {
	x, y float64
}

func NewPositions() *Positions {
	return &Positions{byID: map[string]vec2{}}
}

func (p *Positions) Set(id string, x, y float64) {
	p.mu.Lock()
	p.byID[id] = vec2{x: x, y: y}
	p.mu.Unlock()
}

func (p *Positions) Remove(id string) {
	p.mu.Lock()
	delete(p.byID, id)
	p.mu.Unlock()
}

func (p *Positions) Distance(a, b string) (float64, bool) {
	p.mu.RLock()
	pa, okA := p.byID[a]
	pb, okB := p.byID[b]
	p.mu.RUnlock()
	if !okA || !okB {
		return 0, false
	}
	return math.Hypot(pa.x-pb.x, pa.y-pb.y), true
}
