package model

import "testing"

func TestMergeEscalates(t *testing.T) {
	safe := SafeResult()
	susp := MatchResult{Verdict: Suspicious, Category: CategoryJailbreak, Reason: "persona override"}
	mal := MatchResult{Verdict: Malicious, Category: CategoryCommandInjection, PatternID: "ci.rm-rf"}

	merged := safe.Merge(susp)
	if merged.Verdict != Suspicious || merged.Category != CategoryJailbreak {
		t.Fatalf("expected suspicious/jailbreak, got %s/%s", merged.Verdict, merged.Category)
	}

	merged = merged.Merge(mal)
	if merged.Verdict != Malicious || merged.PatternID != "ci.rm-rf" {
		t.Fatalf("expected malicious ci.rm-rf, got %s/%s", merged.Verdict, merged.PatternID)
	}
}

func TestMergeNeverDowngrades(t *testing.T) {
	mal := MatchResult{Verdict: Malicious, Category: CategoryPolicyOverride}

	// A later Safe stage must not lower the verdict.
	merged := mal.Merge(SafeResult())
	if merged.Verdict != Malicious {
		t.Fatalf("verdict downgraded to %s", merged.Verdict)
	}
	if merged.Category != CategoryPolicyOverride {
		t.Fatalf("category lost: %s", merged.Category)
	}

	merged = mal.Merge(MatchResult{Verdict: Suspicious, Category: CategoryJudgeBypass})
	if merged.Verdict != Malicious {
		t.Fatalf("verdict downgraded to %s", merged.Verdict)
	}
}

func TestThreatLevelMax(t *testing.T) {
	cases := []struct {
		a, b, want ThreatLevel
	}{
		{Safe, Safe, Safe},
		{Safe, Suspicious, Suspicious},
		{Suspicious, Malicious, Malicious},
		{Malicious, Safe, Malicious},
	}
	for _, c := range cases {
		if got := c.a.Max(c.b); got != c.want {
			t.Errorf("%s.Max(%s) = %s, want %s", c.a, c.b, got, c.want)
		}
	}
}

func TestTierRankOrdering(t *testing.T) {
	if !(TierRank[TierLow] < TierRank[TierMedium] && TierRank[TierMedium] < TierRank[TierHigh]) {
		t.Fatal("tier ranks are not strictly increasing")
	}
}
