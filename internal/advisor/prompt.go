package advisor

import (
	"fmt"
	"strings"

	"TradeSentry/internal/model"
)

// Caps keep the prompt payload bounded regardless of how much history the
// store holds.
const (
	promptHistoryBars = 20
	promptMinuteBars  = 30
)

// Input is everything the fusion layer knows about one instrument this
// cycle.
type Input struct {
	Code       string
	Live       model.Bar
	History    []model.Bar
	Trajectory []model.Bar
	Indicators model.IndicatorSet
	Position   model.Position
	Verdict    model.Verdict
}

// BuildPrompt renders the market context the advisory service reasons over:
// daily history, intraday trajectory, the live snapshot, the rule verdict,
// and the position context, followed by the exact reply grammar.
func BuildPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze instrument %s and recommend a trading action.\n\n", in.Code)

	b.WriteString("## Daily history (oldest first)\n")
	b.WriteString("date | close | change%\n")
	b.WriteString("--- | --- | ---\n")
	hist := in.History
	if len(hist) > promptHistoryBars {
		hist = hist[len(hist)-promptHistoryBars:]
	}
	for _, bar := range hist {
		fmt.Fprintf(&b, "%s | %.4f | %+.2f\n", bar.TradeDate, bar.Close, bar.PctChange)
	}

	traj := in.Trajectory
	if len(traj) > promptMinuteBars {
		traj = traj[len(traj)-promptMinuteBars:]
	}
	if len(traj) > 0 {
		b.WriteString("\n## Intraday trajectory (minute snapshots, oldest first)\n")
		b.WriteString("time | price | volume\n")
		b.WriteString("--- | --- | ---\n")
		for _, bar := range traj {
			fmt.Fprintf(&b, "%s | %.4f | %.0f\n", bar.BarTime.In(model.Beijing).Format("15:04"), bar.Close, bar.Volume)
		}
	}

	b.WriteString("\n## Live snapshot\n")
	fmt.Fprintf(&b, "- date: %s\n", in.Live.TradeDate)
	fmt.Fprintf(&b, "- open/current/high/low: %.4f / %.4f / %.4f / %.4f\n",
		in.Live.Open, in.Live.Close, in.Live.High, in.Live.Low)
	fmt.Fprintf(&b, "- volume/amount: %.0f / %.0f\n", in.Live.Volume, in.Live.Amount)
	fmt.Fprintf(&b, "- change vs prev close: %+.2f%%\n", in.Live.PctChange)
	if in.Indicators.MA5Valid {
		fmt.Fprintf(&b, "- MA5: %.4f\n", in.Indicators.MA5)
	}
	if in.Indicators.MA20Valid {
		fmt.Fprintf(&b, "- MA20: %.4f\n", in.Indicators.MA20)
	}

	fmt.Fprintf(&b, "\n## Rule strategy verdict\n- bias: %s\n- rationale: %s\n", in.Verdict.Bias, in.Verdict.Rationale)

	if in.Position.HasCost() || in.Position.Ratio > 0 {
		b.WriteString("\n## Current position\n")
		if in.Position.HasCost() {
			fmt.Fprintf(&b, "- cost basis: %.4f (unrealized return %+.2f%%)\n",
				in.Position.Cost, in.Position.UnrealizedReturn(in.Live.Close))
		}
		fmt.Fprintf(&b, "- position ratio: %.1f%%\n", in.Position.Ratio*100)
	}

	b.WriteString(`
## Reply format (follow exactly)
Action: [BUY/SELL/HOLD]
Reason: [up to 3 concise reasons]
Price: [suggested execution price or N/A]
Size: [fraction of capital to act with, e.g. 0.2, or N/A]
StopLoss: [price or N/A]
Target: [price or N/A]
`)
	return b.String()
}
