package lobby

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sipmarket/market-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var defaults = model.GameRules{
	Rounds:           10,
	InvestMultiplier: d(2),
	ShortMultiplier:  d(2),
	CallPercent:      50,
	PutPercent:       50,
	CallBaseAmount:   d(7),
	PutBaseAmount:    d(7),
}

func TestNewCode(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 100; i++ {
		code := NewCode(r)
		if _, err := ParseCode(code); err != nil {
			t.Fatalf("generated code %q does not parse: %v", code, err)
		}
	}
}

func TestParseCode_Normalizes(t *testing.T) {
	c, err := ParseCode("  k7qx2m ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != "K7QX2M" {
		t.Errorf("expected K7QX2M, got %s", c)
	}
}

func TestParseCode_Invalid(t *testing.T) {
	tests := []string{
		"",
		"ABC",
		"ABCDEFG",
		"ABC-12",
		"ÄBC123",
	}
	for _, code := range tests {
		_, err := ParseCode(code)
		if !errors.Is(err, ErrInvalidCode) {
			t.Errorf("expected ErrInvalidCode for %q, got %v", code, err)
		}
	}
}

func TestResolveRules_Defaults(t *testing.T) {
	r, err := ResolveRules(RulesRequest{}, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Rounds != 10 || !r.CallBaseAmount.Equal(d(7)) {
		t.Errorf("expected defaults, got %+v", r)
	}
}

func TestResolveRules_Overrides(t *testing.T) {
	rounds := 20
	call := 0.0
	mult := d(3)
	r, err := ResolveRules(RulesRequest{Rounds: &rounds, CallPercent: &call, ShortMultiplier: &mult}, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Rounds != 20 {
		t.Errorf("expected rounds=20, got %d", r.Rounds)
	}
	if r.CallPercent != 0 {
		t.Errorf("expected call percent 0, got %v", r.CallPercent)
	}
	if !r.ShortMultiplier.Equal(d(3)) {
		t.Errorf("expected short multiplier 3, got %s", r.ShortMultiplier)
	}
}

func TestResolveRules_Invalid(t *testing.T) {
	zero := 0
	neg := d(-1)
	over := 150.0
	tests := []RulesRequest{
		{Rounds: &zero},
		{InvestMultiplier: &neg},
		{PutPercent: &over},
		{CallBaseAmount: &neg},
	}
	for i, req := range tests {
		if _, err := ResolveRules(req, defaults); !errors.Is(err, ErrInvalidRules) {
			t.Errorf("case %d: expected ErrInvalidRules, got %v", i, err)
		}
	}
}

func TestParseBet_Invest(t *testing.T) {
	bet, err := ParseBet("ABC123", BetRequest{PlayerID: "p1", Asset: "Gold", Type: "INVEST", Amount: d(4)}, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bet.Asset != model.AssetGold || bet.Type != model.BetInvest || !bet.Amount.Equal(d(4)) {
		t.Errorf("unexpected bet %+v", bet)
	}
	if bet.GameID != "ABC123" {
		t.Errorf("expected game id ABC123, got %s", bet.GameID)
	}
}

func TestParseBet_OptionsUseBaseAmount(t *testing.T) {
	call, err := ParseBet("ABC123", BetRequest{PlayerID: "p1", Asset: "crypto", Type: "call", Amount: d(99)}, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !call.Amount.Equal(d(7)) {
		t.Errorf("expected call amount 7, got %s", call.Amount)
	}

	put, err := ParseBet("ABC123", BetRequest{PlayerID: "p1", Type: "put", PutOptionPlayer: " p2 "}, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if put.Asset != "" || put.PutOptionPlayer != "p2" || !put.Amount.Equal(d(7)) {
		t.Errorf("unexpected put %+v", put)
	}
}

func TestParseBet_Invalid(t *testing.T) {
	tests := []struct {
		req  BetRequest
		want error
	}{
		{BetRequest{Type: "hodl", Asset: "gold", Amount: d(1)}, ErrInvalidBetType},
		{BetRequest{Type: "invest", Amount: d(1)}, ErrMissingAsset},
		{BetRequest{Type: "short", Asset: "oil", Amount: d(1)}, model.ErrUnknownAsset},
		{BetRequest{Type: "invest", Asset: "gold", Amount: d(0)}, ErrInvalidAmount},
		{BetRequest{Type: "invest", Asset: "gold", Amount: d(2.5)}, ErrInvalidAmount},
	}
	for _, tt := range tests {
		_, err := ParseBet("ABC123", tt.req, defaults)
		if !errors.Is(err, tt.want) {
			t.Errorf("%+v: expected %v, got %v", tt.req, tt.want, err)
		}
	}
}
