package workitem

// Category weights in tenths. They must sum to 10.
const (
	weightGov        = 2
	weightImpact     = 3
	weightCost       = 3
	weightEffort     = 1
	weightComplexity = 1

	weightTotal = weightGov + weightImpact + weightCost + weightEffort + weightComplexity
)

// MaxScore and MinScore bound every business value score.
const (
	MaxScore = 100
	MinScore = 0
)

// ComputeScore returns the 0-100 business value for a selection.
//
// Lower codes mean higher priority, so they yield a higher score. Effort is
// inverted: a high-effort item contributes less to the weighted sum. An
// incomplete selection scores 0.
func ComputeScore(sel CategorySelection) int {
	if !sel.Complete() {
		return 0
	}
	effortScore := 4 - sel.EffortCategory
	// Weighted sum scaled by ten; 10 for the top selection.
	sum := sel.GovType*weightGov +
		sel.Impact*weightImpact +
		sel.CostSavings*weightCost +
		effortScore*weightEffort +
		sel.Complexity*weightComplexity

	// 100 - ((sum/10 - 1) / 4) * 100, doubled so the half step stays integral,
	// then rounded half up.
	score := (2*MaxScore - 5*(sum-weightTotal) + 1) / 2
	return min(max(score, MinScore), MaxScore)
}

// Score is ComputeScore over the five raw codes, 0 meaning absent.
func Score(govType, impact, costSavings, effortCategory, complexity int) int {
	return ComputeScore(CategorySelection{
		GovType:        govType,
		Impact:         impact,
		CostSavings:    costSavings,
		EffortCategory: effortCategory,
		Complexity:     complexity,
	})
}
