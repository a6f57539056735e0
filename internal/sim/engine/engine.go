package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gridquest.gg/internal/protocol"
	"gridquest.gg/internal/sim/rules"
)

type Config struct {
	ShardID         string
	ProximityR      float64
	OfferTTLMs      int64
	DefenseWindowMs int64

	// Windowed cap on offer creation per player; OfferRateMax <= 0 disables.
	OfferRateWindowMs int64
	OfferRateMax      int

	// Items granted to a player on join.
	StarterItems map[string]int
}

// CommandRecord is the journal row for one processed command.
type CommandRecord struct {
	AtMs   int64  `json:"at_ms"`
	Player string `json:"player"`
	Seq    uint64 `json:"seq"`
	Kind   string `json:"kind,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Txid   string `json:"txid,omitempty"`
}

// StatusLogger receives one record per processed command. Implemented in
// internal/persistence/*; may be nil.
type StatusLogger interface {
	WriteStatus(rec CommandRecord) error
}

// Envelope is one inbound command submission.
type Envelope struct {
	PlayerID string
	Seq      uint64
	Cmd      protocol.CmdReq
	Resp     chan Resolution
}

// Resolution carries the outcome back to the transport. Dropped means the
// replay guard discarded the envelope and no cmd_status must be emitted.
type Resolution struct {
	Status  protocol.CmdStatus
	Dropped bool
}

type JoinRequest struct {
	Name string
	Resp chan JoinResponse
}

type JoinResponse struct {
	PlayerID string
}

const defaultHP = 20

// Engine is the single-writer authority for one shard. All mutable state
// (offer ledger, reservations, inventory, defense windows, watermarks) is
// accessed only from the Run loop goroutine; handlers are synchronous,
// bounded-time computations over in-memory state with an injected clock.
type Engine struct {
	cfg    Config
	rules  *rules.Catalog
	oracle PositionOracle

	guard   *ReplayGuard
	ledger  *Ledger
	offers  map[string]*Offer
	defense map[string]defenseWindow
	health  map[string]int
	rep     map[string]int
	skills  map[string]map[string]int

	offerRate map[string]*rateWindow

	nextTxNum     uint64
	nextPlayerNum uint64

	inbox chan Envelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	nowFn  func() int64
	logger StatusLogger
}

func New(cfg Config, cat *rules.Catalog, oracle PositionOracle) *Engine {
	if cfg.ProximityR <= 0 {
		cfg.ProximityR = 220.0
	}
	if cfg.OfferTTLMs <= 0 {
		cfg.OfferTTLMs = 5000
	}
	if cfg.DefenseWindowMs <= 0 {
		cfg.DefenseWindowMs = 1000
	}
	return &Engine{
		cfg:       cfg,
		rules:     cat,
		oracle:    oracle,
		guard:     NewReplayGuard(),
		ledger:    NewLedger(),
		offers:    map[string]*Offer{},
		defense:   map[string]defenseWindow{},
		health:    map[string]int{},
		rep:       map[string]int{},
		skills:    map[string]map[string]int{},
		offerRate: map[string]*rateWindow{},
		inbox:     make(chan Envelope, 1024),
		join:      make(chan JoinRequest, 64),
		leave:     make(chan string, 64),
		stop:      make(chan struct{}),
		nowFn:     func() int64 { return time.Now().UnixMilli() },
	}
}

func (e *Engine) SetStatusLogger(l StatusLogger) { e.logger = l }

// SetClock replaces the wall clock; call before Run.
func (e *Engine) SetClock(fn func() int64) {
	if fn != nil {
		e.nowFn = fn
	}
}

// RestoreWatermarks seeds replay watermarks from the journal; call before Run.
func (e *Engine) RestoreWatermarks(marks map[string]uint64) {
	for pid, seq := range marks {
		e.guard.Restore(pid, seq)
	}
}

func (e *Engine) Inbox() chan<- Envelope   { return e.inbox }
func (e *Engine) Join() chan<- JoinRequest { return e.join }
func (e *Engine) Leave() chan<- string     { return e.leave }

func (e *Engine) Stop() { close(e.stop) }

func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case req := <-e.join:
			e.handleJoin(req)
		case pid := <-e.leave:
			e.handleLeave(pid)
		case env := <-e.inbox:
			e.handleEnvelope(env, e.nowFn())
		}
	}
}

func (e *Engine) handleJoin(req JoinRequest) {
	e.nextPlayerNum++
	pid := fmt.Sprintf("P%d", e.nextPlayerNum)
	e.ledger.Grant(pid, e.cfg.StarterItems)
	e.health[pid] = defaultHP
	if req.Resp != nil {
		select {
		case req.Resp <- JoinResponse{PlayerID: pid}:
		default:
		}
	}
}

func (e *Engine) handleLeave(pid string) {
	e.guard.Forget(pid)
	delete(e.offerRate, pid)
}

func (e *Engine) handleEnvelope(env Envelope, now int64) {
	res := Resolution{Dropped: true}
	if e.guard.Admit(env.PlayerID, env.Seq) {
		st := e.process(env.PlayerID, env.Cmd, now)
		e.record(env, st, now)
		res = Resolution{Status: st}
	}
	if env.Resp != nil {
		select {
		case env.Resp <- res:
		default:
		}
	}
}

// process routes one admitted command to its handler. Handlers are
// all-or-nothing: validation happens before any mutation, and a panic is
// converted to error/exception so a single bad command cannot take down
// shard processing.
func (e *Engine) process(pid string, cmd protocol.CmdReq, now int64) (st protocol.CmdStatus) {
	kind := strings.ToLower(cmd.Kind)
	defer func() {
		if r := recover(); r != nil {
			st = errStatus(pid, kind, protocol.ReasonException)
		}
	}()

	e.sweepExpired(now)

	switch kind {
	case "make":
		return e.doMake(pid, cmd)
	case "rep":
		return e.doRep(pid, cmd)
	case "trade":
		return e.doTrade(pid, cmd, now)
	case "accept":
		return e.doAccept(pid, cmd, now)
	case "cancel":
		return e.doCancel(pid, cmd, now)
	case "attack":
		return e.doAttack(pid, cmd, now)
	case "counter":
		return e.doCounter(pid, cmd, now)
	case "learn":
		return e.doLearnTeach(pid, cmd, false, now)
	case "teach":
		return e.doLearnTeach(pid, cmd, true, now)
	default:
		return errStatus(pid, "", protocol.ReasonUnknownKind)
	}
}

func (e *Engine) record(env Envelope, st protocol.CmdStatus, now int64) {
	if e.logger == nil {
		return
	}
	_ = e.logger.WriteStatus(CommandRecord{
		AtMs:   now,
		Player: env.PlayerID,
		Seq:    env.Seq,
		Kind:   st.Kind,
		Status: st.Status,
		Reason: st.Reason,
		Txid:   st.Txid,
	})
}

func (e *Engine) newTxid() string {
	e.nextTxNum++
	return fmt.Sprintf("t-%x", e.nextTxNum)
}

func (e *Engine) healthOf(pid string) int {
	hp, ok := e.health[pid]
	if !ok {
		hp = defaultHP
		e.health[pid] = hp
	}
	return hp
}

// requireInRange checks proximity via the position oracle, failing closed
// when the oracle is missing or either position is unknown.
func (e *Engine) requireInRange(from, kind, txid, a, b string) (protocol.CmdStatus, bool) {
	if e.oracle == nil {
		return errStatusTx(from, kind, protocol.ReasonPositionUnavailable, txid), false
	}
	d, ok := e.oracle.Distance(a, b)
	if !ok || d > e.cfg.ProximityR {
		return rejectTx(from, kind, protocol.ReasonNotInRange, txid), false
	}
	return protocol.CmdStatus{}, true
}

type rateWindow struct {
	start int64
	count int
}

func (e *Engine) offerRateAllow(pid string, now int64) bool {
	if e.cfg.OfferRateMax <= 0 {
		return true
	}
	w := e.offerRate[pid]
	if w == nil || now-w.start >= e.cfg.OfferRateWindowMs {
		e.offerRate[pid] = &rateWindow{start: now, count: 1}
		return true
	}
	if w.count >= e.cfg.OfferRateMax {
		return false
	}
	w.count++
	return true
}

// Result shaping.

func errStatus(from, kind, reason string) protocol.CmdStatus {
	return protocol.CmdStatus{
		Type:   protocol.TypeCmdStatus,
		Status: protocol.StatusError,
		Kind:   kind,
		From:   from,
		Reason: reason,
	}
}

func errStatusTx(from, kind, reason, txid string) protocol.CmdStatus {
	st := errStatus(from, kind, reason)
	st.Txid = txid
	return st
}

func reject(from, kind, reason string) protocol.CmdStatus {
	return protocol.CmdStatus{
		Type:   protocol.TypeCmdStatus,
		Status: protocol.StatusRejected,
		Kind:   kind,
		From:   from,
		Reason: reason,
	}
}

func rejectTx(from, kind, reason, txid string) protocol.CmdStatus {
	st := reject(from, kind, reason)
	st.Txid = txid
	return st
}

func rejectItem(from, kind, reason, item string) protocol.CmdStatus {
	st := reject(from, kind, reason)
	st.Item = item
	return st
}

func matched(from, kind string) protocol.CmdStatus {
	return protocol.CmdStatus{
		Type:   protocol.TypeCmdStatus,
		Status: protocol.StatusMatched,
		Kind:   kind,
		From:   from,
	}
}

func accepted(from, kind string) protocol.CmdStatus {
	return protocol.CmdStatus{
		Type:   protocol.TypeCmdStatus,
		Status: protocol.StatusAccepted,
		Kind:   kind,
		From:   from,
	}
}

// cleanItems validates an item->quantity map: non-empty, every quantity
// strictly positive. Returns a defensive copy.
func cleanItems(m map[string]int) (map[string]int, bool) {
	if len(m) == 0 {
		return nil, false
	}
	cp := make(map[string]int, len(m))
	for item, n := range m {
		if item == "" || n <= 0 {
			return nil, false
		}
		cp[item] = n
	}
	return cp, true
}
