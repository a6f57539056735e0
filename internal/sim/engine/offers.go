package engine

import (
	"gridquest.gg/internal/protocol"
)

type OfferKind string

const (
	OfferTrade OfferKind = "trade"
	OfferLearn OfferKind = "learn"
	OfferTeach OfferKind = "teach"
)

type OfferState string

const (
	OfferPending   OfferState = "pending"
	OfferAccepted  OfferState = "accepted"
	OfferCancelled OfferState = "cancelled"
	OfferExpired   OfferState = "expired"
)

// Offer is one in-flight two-phase exchange. A txid is unique for the
// lifetime of the ledger; an offer transitions Pending to exactly one
// terminal state and is immutable afterwards. Terminal offers are retained
// so a late Accept/Cancel against their txid rejects instead of re-minting.
type Offer struct {
	Txid         string
	Kind         OfferKind
	Proposer     string
	Counterparty string

	// trade
	Give map[string]int
	Want map[string]int

	// learn / teach
	Power protocol.PowerSpec
	Pay   map[string]int

	State     OfferState
	CreatedAt int64
	ExpiresAt int64
}

func (o *Offer) ExpiredBy(now int64) bool {
	return now >= o.ExpiresAt
}

// Learner is the paying party of a learn/teach offer: the proposer of a
// learn, the counterparty of a teach.
func (o *Offer) Learner() string {
	if o.Kind == OfferTeach {
		return o.Counterparty
	}
	return o.Proposer
}

func (o *Offer) TeacherID() string {
	if o.Kind == OfferTeach {
		return o.Proposer
	}
	return o.Counterparty
}

// sweepExpired flips untouched expired offers to Expired and releases their
// reservations. Opportunistic hygiene only: correctness relies on the lazy
// expiry check at every lookup.
func (e *Engine) sweepExpired(now int64) {
	for _, off := range e.offers {
		if off.State == OfferPending && off.ExpiredBy(now) {
			off.State = OfferExpired
			e.ledger.Release(off.Txid)
		}
	}
}

// touchOffer applies lazy expiry, then reports the rejection reason when the
// offer is terminal.
func (e *Engine) touchOffer(off *Offer, now int64) (string, bool) {
	if off.State == OfferPending && off.ExpiredBy(now) {
		off.State = OfferExpired
		e.ledger.Release(off.Txid)
	}
	switch off.State {
	case OfferPending:
		return "", false
	case OfferAccepted:
		return protocol.ReasonAlreadyAccepted, true
	case OfferCancelled:
		return protocol.ReasonCancelled, true
	default:
		return protocol.ReasonExpired, true
	}
}

// Trade offer: proposer's give items are reserved until acceptance.
func (e *Engine) doTrade(pid string, cmd protocol.CmdReq, now int64) protocol.CmdStatus {
	give, okGive := cleanItems(cmd.Give)
	want, okWant := cleanItems(cmd.Want)
	if cmd.To == "" || !okGive || !okWant {
		return errStatus(pid, "trade", protocol.ReasonBadTrade)
	}
	if !e.offerRateAllow(pid, now) {
		return reject(pid, "trade", protocol.ReasonRateLimited)
	}
	if !e.ledger.HasAvailable(pid, give) {
		return reject(pid, "trade", protocol.ReasonInsufficientInventory)
	}

	txid := e.newTxid()
	if !e.ledger.Reserve(txid, pid, give) {
		return reject(pid, "trade", protocol.ReasonReserveFailed)
	}
	e.offers[txid] = &Offer{
		Txid:         txid,
		Kind:         OfferTrade,
		Proposer:     pid,
		Counterparty: cmd.To,
		Give:         give,
		Want:         want,
		State:        OfferPending,
		CreatedAt:    now,
		ExpiresAt:    now + e.cfg.OfferTTLMs,
	}

	st := accepted(pid, "trade")
	st.Txid = txid
	st.To = cmd.To
	st.Give = give
	st.Want = want
	return st
}

// Learn/teach offer: the learner always pays, so the learner's pay items are
// reserved at create no matter which side proposed.
func (e *Engine) doLearnTeach(pid string, cmd protocol.CmdReq, teach bool, now int64) protocol.CmdStatus {
	kind := "learn"
	offerKind := OfferLearn
	if teach {
		kind = "teach"
		offerKind = OfferTeach
	}
	pay, okPay := cleanItems(cmd.Pay)
	if cmd.To == "" || cmd.Power == nil || cmd.Power.Type == "" || !okPay {
		return errStatus(pid, kind, protocol.ReasonBadLearnTeach)
	}
	if !e.offerRateAllow(pid, now) {
		return reject(pid, kind, protocol.ReasonRateLimited)
	}

	payer := pid
	if teach {
		payer = cmd.To
	}
	if !e.ledger.HasAvailable(payer, pay) {
		return reject(pid, kind, protocol.ReasonInsufficientInventory)
	}

	txid := e.newTxid()
	if !e.ledger.Reserve(txid, payer, pay) {
		return reject(pid, kind, protocol.ReasonReserveFailed)
	}
	e.offers[txid] = &Offer{
		Txid:         txid,
		Kind:         offerKind,
		Proposer:     pid,
		Counterparty: cmd.To,
		Power:        *cmd.Power,
		Pay:          pay,
		State:        OfferPending,
		CreatedAt:    now,
		ExpiresAt:    now + e.cfg.OfferTTLMs,
	}

	st := accepted(pid, kind)
	st.Txid = txid
	st.To = cmd.To
	st.Power = cmd.Power
	st.Pay = pay
	return st
}

func (e *Engine) doAccept(pid string, cmd protocol.CmdReq, now int64) protocol.CmdStatus {
	if cmd.Txid == "" {
		return errStatus(pid, "accept", protocol.ReasonBadAccept)
	}
	off := e.offers[cmd.Txid]
	if off == nil {
		return errStatusTx(pid, "accept", protocol.ReasonUnknownTxid, cmd.Txid)
	}
	if reason, terminal := e.touchOffer(off, now); terminal {
		return rejectTx(pid, string(off.Kind), reason, off.Txid)
	}
	switch off.Kind {
	case OfferTrade:
		return e.commitTrade(off, pid)
	case OfferLearn, OfferTeach:
		return e.commitLearnTeach(off, pid)
	default:
		return errStatusTx(pid, "accept", protocol.ReasonBadOfferType, off.Txid)
	}
}

func (e *Engine) doCancel(pid string, cmd protocol.CmdReq, now int64) protocol.CmdStatus {
	if cmd.Txid == "" {
		return errStatus(pid, "cancel", protocol.ReasonBadCancel)
	}
	off := e.offers[cmd.Txid]
	if off == nil {
		return errStatusTx(pid, "cancel", protocol.ReasonUnknownTxid, cmd.Txid)
	}
	if off.Proposer != pid {
		return rejectTx(pid, "cancel", protocol.ReasonNotOwner, off.Txid)
	}
	if reason, terminal := e.touchOffer(off, now); terminal {
		return rejectTx(pid, "cancel", reason, off.Txid)
	}
	e.ledger.Release(off.Txid)
	off.State = OfferCancelled

	st := matched(pid, "cancel")
	st.Txid = off.Txid
	return st
}

func (e *Engine) commitTrade(off *Offer, acceptor string) protocol.CmdStatus {
	if acceptor != off.Counterparty {
		return rejectTx(acceptor, "trade", protocol.ReasonNotCounterparty, off.Txid)
	}
	if st, ok := e.requireInRange(acceptor, "trade", off.Txid, off.Proposer, off.Counterparty); !ok {
		return st
	}
	if !e.ledger.HasAvailable(acceptor, off.Want) {
		// Offer stays pending: retryable until it expires.
		return rejectTx(acceptor, "trade", protocol.ReasonInsufficientInventory, off.Txid)
	}
	if _, ok := e.ledger.ReservedBy(off.Txid); !ok {
		return errStatusTx(acceptor, "trade", protocol.ReasonException, off.Txid)
	}
	if err := e.ledger.MoveAvailable(acceptor, off.Proposer, off.Want); err != nil {
		return errStatusTx(acceptor, "trade", protocol.ReasonException, off.Txid)
	}
	if err := e.ledger.Consume(off.Txid, acceptor); err != nil {
		return errStatusTx(acceptor, "trade", protocol.ReasonException, off.Txid)
	}
	off.State = OfferAccepted

	eff := &protocol.Effects{Inventory: map[string]map[string]int{
		off.Proposer:     {},
		off.Counterparty: {},
	}}
	for item, n := range off.Give {
		eff.Inventory[off.Proposer][item] -= n
		eff.Inventory[off.Counterparty][item] += n
	}
	for item, n := range off.Want {
		eff.Inventory[off.Counterparty][item] -= n
		eff.Inventory[off.Proposer][item] += n
	}

	st := matched(acceptor, "trade")
	st.Txid = off.Txid
	st.Effects = eff
	return st
}

func (e *Engine) commitLearnTeach(off *Offer, acceptor string) protocol.CmdStatus {
	learner := off.Learner()
	teacher := off.TeacherID()
	if acceptor != learner && acceptor != teacher {
		return rejectTx(acceptor, string(off.Kind), protocol.ReasonNotCounterparty, off.Txid)
	}
	if st, ok := e.requireInRange(acceptor, string(off.Kind), off.Txid, learner, teacher); !ok {
		return st
	}

	// Payer always reserved at create; payee always receives.
	res, ok := e.ledger.ReservedBy(off.Txid)
	if !ok {
		return errStatusTx(acceptor, string(off.Kind), protocol.ReasonException, off.Txid)
	}
	payee := teacher
	if res.Owner == teacher {
		payee = learner
	}
	if err := e.ledger.Consume(off.Txid, payee); err != nil {
		return errStatusTx(acceptor, string(off.Kind), protocol.ReasonException, off.Txid)
	}
	off.State = OfferAccepted

	mastery := off.Power.Mastery
	if mastery <= 0 {
		mastery = 1
	}
	sk := e.skills[learner]
	if sk == nil {
		sk = map[string]int{}
		e.skills[learner] = sk
	}
	sk[off.Power.Type] = mastery

	eff := &protocol.Effects{
		Skills: map[string]map[string]int{
			learner: {off.Power.Type: mastery},
		},
		Inventory: map[string]map[string]int{
			res.Owner: {},
			payee:     {},
		},
	}
	for item, n := range off.Pay {
		eff.Inventory[res.Owner][item] -= n
		eff.Inventory[payee][item] += n
	}

	st := matched(acceptor, string(off.Kind))
	st.Txid = off.Txid
	st.Effects = eff
	return st
}
