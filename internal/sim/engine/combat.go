package engine

import (
	"math"

	"gridquest.gg/internal/protocol"
	"gridquest.gg/internal/sim/rules"
)

// defenseWindow is a short-lived armed defense. At most one per owner; a new
// counter overwrites the old one. A window past its deadline is treated as
// absent without active cleanup.
type defenseWindow struct {
	Item  string
	Tag   string
	Until int64
}

// activeDefenseItem returns the armed defense item for pid, dropping an
// expired window at read time.
func (e *Engine) activeDefenseItem(pid string, now int64) string {
	w, ok := e.defense[pid]
	if !ok {
		return ""
	}
	if now >= w.Until {
		delete(e.defense, pid)
		return ""
	}
	return w.Item
}

func (e *Engine) doAttack(pid string, cmd protocol.CmdReq, now int64) protocol.CmdStatus {
	if cmd.Target == "" || cmd.With == "" {
		return errStatus(pid, "attack", protocol.ReasonBadAttack)
	}
	if e.rules == nil {
		return errStatus(pid, "attack", protocol.ReasonRulesUnavailable)
	}
	if st, ok := e.requireInRange(pid, "attack", "", pid, cmd.Target); !ok {
		return st
	}

	atkTag, hasAtk := e.rules.AttackTag(cmd.With)
	if e.rules.Combat.Requires.AttackPower && !hasAtk {
		return reject(pid, "attack", protocol.ReasonInvalidWeapon)
	}

	dfnTag := e.rules.DefenseTag(e.activeDefenseItem(cmd.Target, now))

	effAtk := atkTag
	if !hasAtk {
		effAtk = rules.DefenseNone
	}
	base := e.rules.BaseDamage(cmd.With)
	mult := e.rules.OppositionMult(effAtk, dfnTag)
	raw := base * mult
	damage := int(math.Round(raw))
	if damage < 0 {
		damage = 0
	}
	e.health[cmd.Target] = e.healthOf(cmd.Target) - damage

	st := matched(pid, "attack")
	st.Target = cmd.Target
	st.With = cmd.With
	st.Effects = &protocol.Effects{
		Health: map[string]int{cmd.Target: -damage},
		Combat: &protocol.CombatBreakdown{
			Weapon:  cmd.With,
			Attack:  effAtk,
			Defense: dfnTag,
			Mult:    mult,
			Raw:     raw,
			Damage:  damage,
		},
	}
	return st
}

// doCounter arms the caller's defense window. The target field is accepted
// for protocol symmetry but does not affect arming.
func (e *Engine) doCounter(pid string, cmd protocol.CmdReq, now int64) protocol.CmdStatus {
	if cmd.Target == "" || cmd.With == "" {
		return errStatus(pid, "counter", protocol.ReasonBadCounter)
	}
	if e.rules == nil {
		return errStatus(pid, "counter", protocol.ReasonRulesUnavailable)
	}

	dfnTag := e.rules.DefenseTag(cmd.With)
	if e.rules.Combat.Requires.DefensePower && dfnTag == rules.DefenseNone {
		return reject(pid, "counter", protocol.ReasonInvalidDefense)
	}

	e.defense[pid] = defenseWindow{
		Item:  cmd.With,
		Tag:   dfnTag,
		Until: now + e.cfg.DefenseWindowMs,
	}

	st := accepted(pid, "counter")
	st.Target = cmd.Target
	st.With = cmd.With
	return st
}
