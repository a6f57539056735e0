package engine

import (
	"testing"

	"gridquest.gg/internal/protocol"
)

func TestAttack_UnarmedTargetTakesItemDamage(t *testing.T) {
	e := newTestEngine(t)

	st := e.process("A", protocol.CmdReq{Kind: "attack", Target: "B", With: "knife"}, 1000)
	if st.Status != protocol.StatusMatched {
		t.Fatalf("attack: %s/%s", st.Status, st.Reason)
	}
	// knife is damage 4; no "none" column in the slash row, so mult 1.0.
	if e.health["B"] != defaultHP-4 {
		t.Fatalf("hp = %d, want %d", e.health["B"], defaultHP-4)
	}
	cb := st.Effects.Combat
	if cb == nil || cb.Attack != "slash" || cb.Defense != "none" || cb.Damage != 4 {
		t.Fatalf("breakdown = %+v", cb)
	}
	if st.Effects.Health["B"] != -4 {
		t.Fatalf("health effect = %d, want -4", st.Effects.Health["B"])
	}
}

func TestAttack_OppositionMultiplier(t *testing.T) {
	e := newTestEngine(t)

	if st := e.process("B", protocol.CmdReq{Kind: "counter", Target: "A", With: "plate_iron"}, 1000); st.Status != protocol.StatusAccepted {
		t.Fatalf("counter: %s/%s", st.Status, st.Reason)
	}

	// slash vs tough is 1.1: round(4 * 1.1) = 4.
	st := e.process("A", protocol.CmdReq{Kind: "attack", Target: "B", With: "knife"}, 1500)
	if st.Effects.Combat.Mult != 1.1 || st.Effects.Combat.Damage != 4 {
		t.Fatalf("breakdown = %+v", st.Effects.Combat)
	}

	// blunt vs tough is 1.25: round(3 * 1.25) = 4. Defense window still open.
	if st := e.process("B", protocol.CmdReq{Kind: "counter", Target: "A", With: "plate_iron"}, 1500); st.Status != protocol.StatusAccepted {
		t.Fatalf("re-counter: %s", st.Status)
	}
	st = e.process("A", protocol.CmdReq{Kind: "attack", Target: "B", With: "club"}, 1600)
	if st.Effects.Combat.Damage != 4 {
		t.Fatalf("club vs tough damage = %d, want 4", st.Effects.Combat.Damage)
	}

	// chop vs brace is 1.2: round(5 * 1.2) = 6.
	if st := e.process("B", protocol.CmdReq{Kind: "counter", Target: "A", With: "shield_wood"}, 1700); st.Status != protocol.StatusAccepted {
		t.Fatalf("shield counter: %s", st.Status)
	}
	st = e.process("A", protocol.CmdReq{Kind: "attack", Target: "B", With: "axe"}, 1800)
	if st.Effects.Combat.Defense != "brace" || st.Effects.Combat.Damage != 6 {
		t.Fatalf("breakdown = %+v", st.Effects.Combat)
	}
}

func TestCounter_WindowExpires(t *testing.T) {
	e := newTestEngine(t)

	if st := e.process("B", protocol.CmdReq{Kind: "counter", Target: "A", With: "plate_iron"}, 1000); st.Status != protocol.StatusAccepted {
		t.Fatalf("counter: %s", st.Status)
	}

	// At exactly window end the defense is gone.
	st := e.process("A", protocol.CmdReq{Kind: "attack", Target: "B", With: "knife"}, 1000+e.cfg.DefenseWindowMs)
	if st.Effects.Combat.Defense != "none" {
		t.Fatalf("defense = %s, want none after window", st.Effects.Combat.Defense)
	}
}

func TestAttack_RangeAndWeaponGates(t *testing.T) {
	e := newTestEngine(t)

	st := e.process("A", protocol.CmdReq{Kind: "attack", Target: "C", With: "knife"}, 1000)
	if st.Status != protocol.StatusRejected || st.Reason != protocol.ReasonNotInRange {
		t.Fatalf("far target: %s/%s", st.Status, st.Reason)
	}

	st = e.process("A", protocol.CmdReq{Kind: "attack", Target: "B", With: "plate_iron"}, 1000)
	if st.Status != protocol.StatusRejected || st.Reason != protocol.ReasonInvalidWeapon {
		t.Fatalf("armor as weapon: %s/%s", st.Status, st.Reason)
	}
	if e.health["B"] != defaultHP {
		t.Fatal("rejected attack changed health")
	}

	st = e.process("A", protocol.CmdReq{Kind: "attack", Target: "B"}, 1000)
	if st.Status != protocol.StatusError || st.Reason != protocol.ReasonBadAttack {
		t.Fatalf("missing weapon: %s/%s", st.Status, st.Reason)
	}
}

func TestCounter_InvalidDefense(t *testing.T) {
	e := newTestEngine(t)
	st := e.process("B", protocol.CmdReq{Kind: "counter", Target: "A", With: "knife"}, 1000)
	if st.Status != protocol.StatusRejected || st.Reason != protocol.ReasonInvalidDefense {
		t.Fatalf("got %s/%s, want rejected/invalid_defense", st.Status, st.Reason)
	}
	if _, armed := e.defense["B"]; armed {
		t.Fatal("invalid counter armed a window")
	}
}
