package models

import (
	"testing"
	"time"
)

func TestTradeFactValidate(t *testing.T) {
	valid := TradeFact{
		Wallet:      "0xabc",
		MarketID:    "12345",
		Outcome:     UnresolvedOutcome,
		VolumeUSD:   100,
		Price:       0,
		Timestamp:   time.Now(),
		BlockNumber: 1,
		TxHash:      "0xdead",
		Role:        RoleMaker,
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid trade failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*TradeFact)
	}{
		{"empty wallet", func(f *TradeFact) { f.Wallet = "" }},
		{"empty market", func(f *TradeFact) { f.MarketID = "" }},
		{"empty outcome", func(f *TradeFact) { f.Outcome = "" }},
		{"negative volume", func(f *TradeFact) { f.VolumeUSD = -1 }},
		{"price above 1", func(f *TradeFact) { f.Price = 1.5 }},
		{"bad role", func(f *TradeFact) { f.Role = "arbiter" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			if err := f.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestSignalIdentity(t *testing.T) {
	at := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	cluster := &Cluster{
		MarketID: "777",
		Outcome:  "YES",
		Members:  []Position{{Wallet: "a"}, {Wallet: "b"}, {Wallet: "c"}},
	}

	sig := Signal{Kind: SignalCluster, Cluster: cluster, DetectedAt: at}
	if got, want := sig.Identity(), "777_YES_3"; got != want {
		t.Errorf("cluster identity = %q, want %q", got, want)
	}

	// Same cluster shape yields the same identity regardless of detection time.
	later := sig
	later.DetectedAt = at.Add(time.Hour)
	if sig.Identity() != later.Identity() {
		t.Error("cluster identity should not depend on detection time")
	}

	whale := Signal{
		Kind:       SignalWhale,
		Position:   &Position{Wallet: "0xa", MarketID: "111", Outcome: "Yes"},
		DetectedAt: at,
	}
	if got, want := whale.Identity(), "whale_0xa_111_Yes_2025-11-03T12:00:00Z"; got != want {
		t.Errorf("whale identity = %q, want %q", got, want)
	}

	sync := Signal{Kind: SignalSynchronized, Cluster: cluster, DetectedAt: at}
	if got, want := sync.Identity(), "synchronized_777_YES_2025-11-03T12:00:00Z"; got != want {
		t.Errorf("synchronized identity = %q, want %q", got, want)
	}
}

func TestSignalIdentityDistinctSubjectsSameInstant(t *testing.T) {
	at := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)

	// Two whales surfacing in the same detection pass share DetectedAt but
	// must never share an identity.
	a := Signal{Kind: SignalWhale, Position: &Position{Wallet: "0xa", MarketID: "111", Outcome: "Yes"}, DetectedAt: at}
	b := Signal{Kind: SignalWhale, Position: &Position{Wallet: "0xb", MarketID: "222", Outcome: "No"}, DetectedAt: at}
	if a.Identity() == b.Identity() {
		t.Errorf("distinct whale signals collide on identity %q", a.Identity())
	}

	c1 := Signal{Kind: SignalSynchronized, Cluster: &Cluster{MarketID: "111", Outcome: "Yes"}, DetectedAt: at}
	c2 := Signal{Kind: SignalSynchronized, Cluster: &Cluster{MarketID: "222", Outcome: "Yes"}, DetectedAt: at}
	if c1.Identity() == c2.Identity() {
		t.Errorf("distinct synchronized signals collide on identity %q", c1.Identity())
	}
}

func TestAssetInfoResolved(t *testing.T) {
	if (AssetInfo{}).Resolved() {
		t.Error("zero AssetInfo should not be resolved")
	}
	if !(AssetInfo{Question: "Will X happen?"}).Resolved() {
		t.Error("AssetInfo with question should be resolved")
	}
}
