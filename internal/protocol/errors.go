package protocol

// Reason codes for rejected/error cmd_status replies.
const (
	// Malformed input: the caller must fix and resend; no state changed.
	ReasonUnknownKind   = "unknown_kind"
	ReasonBadMake       = "bad_make"
	ReasonBadQty        = "bad_qty"
	ReasonBadRep        = "bad_rep"
	ReasonBadTrade      = "bad_trade"
	ReasonBadAccept     = "bad_accept"
	ReasonBadCancel     = "bad_cancel"
	ReasonBadAttack     = "bad_attack"
	ReasonBadCounter    = "bad_counter"
	ReasonBadLearnTeach = "bad_learn_teach"

	// Rule violations: well-formed but unsatisfiable; no state changed
	// except lazy-expiry side effects.
	ReasonUnknownRecipe         = "unknown_recipe"
	ReasonInsufficientInputs    = "insufficient_inputs"
	ReasonInsufficientInventory = "insufficient_inventory"
	ReasonReserveFailed         = "reserve_failed"
	ReasonNotInRange            = "not_in_range"
	ReasonNotOwner              = "not_owner"
	ReasonNotCounterparty       = "not_counterparty"
	ReasonExpired               = "expired"
	ReasonCancelled             = "cancelled"
	ReasonAlreadyAccepted       = "already_accepted"
	ReasonInvalidWeapon         = "invalid_weapon"
	ReasonInvalidDefense        = "invalid_defense"
	ReasonRateLimited           = "rate_limited"

	// Lookup and internal faults, caught at the router boundary.
	ReasonUnknownTxid         = "unknown_txid"
	ReasonBadOfferType        = "bad_offer_type"
	ReasonException           = "exception"
	ReasonRulesUnavailable    = "rules_unavailable"
	ReasonPositionUnavailable = "position_unavailable"
)

var knownReasons = map[string]struct{}{
	ReasonUnknownKind:           {},
	ReasonBadMake:               {},
	ReasonBadQty:                {},
	ReasonBadRep:                {},
	ReasonBadTrade:              {},
	ReasonBadAccept:             {},
	ReasonBadCancel:             {},
	ReasonBadAttack:             {},
	ReasonBadCounter:            {},
	ReasonBadLearnTeach:         {},
	ReasonUnknownRecipe:         {},
	ReasonInsufficientInputs:    {},
	ReasonInsufficientInventory: {},
	ReasonReserveFailed:         {},
	ReasonNotInRange:            {},
	ReasonNotOwner:              {},
	ReasonNotCounterparty:       {},
	ReasonExpired:               {},
	ReasonCancelled:             {},
	ReasonAlreadyAccepted:       {},
	ReasonInvalidWeapon:         {},
	ReasonInvalidDefense:        {},
	ReasonRateLimited:           {},
	ReasonUnknownTxid:           {},
	ReasonBadOfferType:          {},
	ReasonException:             {},
	ReasonRulesUnavailable:      {},
	ReasonPositionUnavailable:   {},
}

func IsKnownReason(reason string) bool {
	if reason == "" {
		return true
	}
	_, ok := knownReasons[reason]
	return ok
}
