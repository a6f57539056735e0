package engine

import (
	"sort"

	"gridquest.gg/internal/protocol"
)

// doMake crafts the requested outputs from the recipe table. All outputs are
// validated and the total input need aggregated before anything mutates, so
// a multi-output make is all-or-nothing.
func (e *Engine) doMake(pid string, cmd protocol.CmdReq) protocol.CmdStatus {
	if len(cmd.Items) == 0 {
		return errStatus(pid, "make", protocol.ReasonBadMake)
	}
	if e.rules == nil {
		return errStatus(pid, "make", protocol.ReasonRulesUnavailable)
	}

	outputs := make([]string, 0, len(cmd.Items))
	for out := range cmd.Items {
		outputs = append(outputs, out)
	}
	sort.Strings(outputs)

	need := map[string]int{}
	produce := map[string]int{}
	for _, out := range outputs {
		q := cmd.Items[out]
		if q <= 0 {
			st := errStatus(pid, "make", protocol.ReasonBadQty)
			st.Item = out
			return st
		}
		recipe, ok := e.rules.Recipe(out)
		if !ok {
			return rejectItem(pid, "make", protocol.ReasonUnknownRecipe, out)
		}
		for item, n := range recipe.Inputs {
			need[item] += n * q
		}
		produce[out] += q
	}

	if !e.ledger.HasAvailable(pid, need) {
		return reject(pid, "make", protocol.ReasonInsufficientInputs)
	}

	delta := map[string]int{}
	for item, n := range need {
		delta[item] -= n
	}
	for item, n := range produce {
		delta[item] += n
	}
	if err := e.ledger.Apply(pid, delta); err != nil {
		return errStatus(pid, "make", protocol.ReasonException)
	}

	eff := map[string]int{}
	for item, n := range delta {
		if n != 0 {
			eff[item] = n
		}
	}
	st := matched(pid, "make")
	st.Effects = &protocol.Effects{Inventory: map[string]map[string]int{pid: eff}}
	return st
}

// doRep applies a reputation delta. Unbounded here; clamping and rate policy
// belong to the rule catalog layer.
func (e *Engine) doRep(pid string, cmd protocol.CmdReq) protocol.CmdStatus {
	if cmd.Target == "" || cmd.Delta == nil {
		return errStatus(pid, "rep", protocol.ReasonBadRep)
	}
	e.rep[cmd.Target] += *cmd.Delta

	st := matched(pid, "rep")
	st.Target = cmd.Target
	st.Delta = cmd.Delta
	return st
}
