package domain

import "testing"

func TestParseStrategyAcceptsNamesAndMenuNumbers(t *testing.T) {
	cases := map[string]Strategy{
		"1":           StrategyFanout,
		"FANOUT":      StrategyFanout,
		"2":           StrategyRankFusion,
		"rank-fusion": StrategyRankFusion,
		" rrf ":       StrategyRankFusion,
		"3":           StrategyDecomposition,
		"4":           StrategyHyDE,
		"HyDE":        StrategyHyDE,
	}
	for raw, want := range cases {
		got, err := ParseStrategy(raw)
		if err != nil {
			t.Fatalf("ParseStrategy(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseStrategy(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestParseStrategyRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "5", "bm25"} {
		if _, err := ParseStrategy(raw); !IsKind(err, ErrInvalidInput) {
			t.Fatalf("ParseStrategy(%q): expected ErrInvalidInput, got %v", raw, err)
		}
	}
}

func TestRequiresPhrasings(t *testing.T) {
	if !StrategyFanout.RequiresPhrasings() || !StrategyRankFusion.RequiresPhrasings() {
		t.Fatalf("fanout and rank fusion need phrasings")
	}
	if StrategyDecomposition.RequiresPhrasings() || StrategyHyDE.RequiresPhrasings() {
		t.Fatalf("decomposition and hyde derive their own search keys")
	}
}
