package synth

import "github.com/codeready-toolchain/tarsy/pkg/tokencount"

// truncateToBudget binary-searches the shortest rune prefix of s whose
// token count is <= budget, per spec.md §4.4 step 3. If even an empty
// string cannot fit (budget <= 0), it returns "".
func truncateToBudget(counter *tokencount.Counter, s string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if counter.Count(s) <= budget {
		return s
	}

	runes := []rune(s)
	lo, hi := 0, len(runes)
	// Invariant: runes[:lo] fits the budget; runes[:hi] does not (or hi == len(runes)).
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if counter.Count(string(runes[:mid])) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}
