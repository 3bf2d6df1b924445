package model

import (
	"errors"
	"fmt"
)

// CallDecision is the state of a player's call option.
// The zero value is treated as undecided.
type CallDecision string

const (
	CallUndecided CallDecision = "undecided"
	CallDeclined  CallDecision = "declined"
	CallUsed      CallDecision = "used"
)

var ErrCallOptionDecided = errors.New("model: call option already decided")

// CallOption is Undecided, Declined, or Used(asset). A decision is final:
// Use and Decline fail once the option has left the undecided state.
type CallOption struct {
	Decision CallDecision `json:"decision"`
	Asset    Asset        `json:"asset,omitempty"`
}

// UndecidedCall is the initial state for every player.
func UndecidedCall() CallOption {
	return CallOption{Decision: CallUndecided}
}

// IsUndecided reports whether the player has not yet chosen.
func (c CallOption) IsUndecided() bool {
	return c.Decision == "" || c.Decision == CallUndecided
}

// UsedAsset returns the redirect asset when the option was exercised.
func (c CallOption) UsedAsset() (Asset, bool) {
	if c.Decision != CallUsed || c.Asset == "" {
		return "", false
	}
	return c.Asset, true
}

// Use exercises the option, redirecting investments onto asset.
func (c CallOption) Use(asset Asset) (CallOption, error) {
	if !c.IsUndecided() {
		return c, ErrCallOptionDecided
	}
	if !asset.Valid() {
		return c, fmt.Errorf("%w: %q", ErrUnknownAsset, asset)
	}
	return CallOption{Decision: CallUsed, Asset: asset}, nil
}

// Decline gives up the option.
func (c CallOption) Decline() (CallOption, error) {
	if !c.IsUndecided() {
		return c, ErrCallOptionDecided
	}
	return CallOption{Decision: CallDeclined}, nil
}
