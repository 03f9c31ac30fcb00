package notifier

import (
	"fmt"
	"strings"
	"time"

	"TradeSentry/internal/model"
)

// FormatDecision renders a fused decision as the operator-facing alert.
func FormatDecision(d model.Decision, at time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s\n", at.In(model.Beijing).Format("2006-01-02 15:04:05"), d.Code)
	label := "rule + advisory"
	if d.Degraded {
		label = "rule only (advisory degraded)"
	}
	fmt.Fprintf(&b, "signal=%s (%s) @ %.4f\n", d.Action, label, d.Price)

	if d.SizeFraction > 0 {
		fmt.Fprintf(&b, "size=%.0f%%\n", d.SizeFraction*100)
	}
	if d.StopLoss > 0 || d.Target > 0 {
		fmt.Fprintf(&b, "stop=%s | target=%s\n", formatPrice(d.StopLoss), formatPrice(d.Target))
	}
	if d.Disagreement {
		b.WriteString("⚠️ rule and advisory disagree, decide carefully\n")
	}
	fmt.Fprintf(&b, "reason: %s", d.Rationale)
	return b.String()
}

// FormatError renders a per-instrument failure for the error channel.
func FormatError(code, stage string, err error, at time.Time) string {
	return fmt.Sprintf("[%s] %s %s failed: %v", at.In(model.Beijing).Format("2006-01-02 15:04:05"), code, stage, err)
}

func formatPrice(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.4f", v)
}
