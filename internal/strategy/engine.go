package strategy

import (
	"fmt"
	"strings"

	"TradeSentry/internal/model"
)

// Evaluate maps the live bar and its indicator set to a rule verdict. Pure
// function of its inputs: the same bar and indicators always yield the same
// bias and rationale.
//
// Policy:
//   - bullish when MA5 > MA20 and close > MA20 and close >= open
//   - bearish when MA5 < MA20 and close < MA20 and close <= open
//   - neutral otherwise, and always when an average is unavailable
func Evaluate(ind model.IndicatorSet, live model.Bar) model.Verdict {
	if !ind.MA5Valid || !ind.MA20Valid {
		missing := "MA20"
		if !ind.MA5Valid {
			missing = "MA5"
		}
		return model.Verdict{
			Bias:      model.BiasNeutral,
			Rationale: fmt.Sprintf("insufficient history: %s unavailable", missing),
		}
	}

	var reasons []string
	if ind.MA5 > ind.MA20 {
		reasons = append(reasons, "MA5 above MA20")
	} else if ind.MA5 < ind.MA20 {
		reasons = append(reasons, "MA5 below MA20")
	} else {
		reasons = append(reasons, "MA5 equals MA20")
	}
	if live.Close > ind.MA20 {
		reasons = append(reasons, "price above MA20")
	} else if live.Close < ind.MA20 {
		reasons = append(reasons, "price below MA20")
	}
	if live.Close > live.Open {
		reasons = append(reasons, "trading above today's open")
	} else if live.Close < live.Open {
		reasons = append(reasons, "trading below today's open")
	}

	bias := model.BiasNeutral
	switch {
	case ind.MA5 > ind.MA20 && live.Close > ind.MA20 && live.Close >= live.Open:
		bias = model.BiasBullish
	case ind.MA5 < ind.MA20 && live.Close < ind.MA20 && live.Close <= live.Open:
		bias = model.BiasBearish
	}

	return model.Verdict{
		Bias:      bias,
		Rationale: strings.Join(reasons, "; "),
	}
}
