package advisor

import (
	"context"
	"fmt"
	"log"

	"TradeSentry/internal/model"
)

// Fusion reconciles the rule verdict with the advisory reply into one
// decision. The advisory token wins when parseable; the rule verdict is the
// deterministic fallback for every failure mode, so Decide never errors and
// never returns a half-built decision.
type Fusion struct {
	Service Service // nil disables the advisory call entirely
}

func NewFusion(svc Service) *Fusion {
	return &Fusion{Service: svc}
}

// Decide produces the cycle's fused decision for one instrument.
func (f *Fusion) Decide(ctx context.Context, in Input) model.Decision {
	d := model.NewHoldDecision(in.Code, in.Live.Close)
	d.Action = model.MapBias(in.Verdict.Bias)
	d.Rationale = "rule: " + in.Verdict.Rationale

	if f.Service == nil {
		return d
	}

	text, err := f.Service.Advise(ctx, BuildPrompt(in))
	if err != nil {
		log.Printf("[WARN] advisory %s failed, degrading to rule verdict: %v", in.Code, err)
		d.Degraded = true
		d.Rationale += fmt.Sprintf("; advisory unavailable (%v), rule verdict only", err)
		return d
	}

	reply := ParseReply(text)
	if !reply.HasAction {
		d.Rationale += "; advisory reply had no recognizable action token, using rule verdict"
		return d
	}

	ruleAction := d.Action
	d.Action = reply.Action
	if reply.Reason != "" {
		d.Rationale += "; advisory: " + reply.Reason
	}
	if reply.Price > 0 {
		d.Price = reply.Price
	}
	if reply.SizeFraction > 0 {
		d.SizeFraction = reply.SizeFraction
	}
	if reply.StopLoss > 0 {
		d.StopLoss = reply.StopLoss
	}
	if reply.Target > 0 {
		d.Target = reply.Target
	}

	if reply.Action != ruleAction {
		d.Disagreement = true
		d.Rationale += fmt.Sprintf("; advisory %s disagrees with rule %s (%s)", reply.Action, ruleAction, in.Verdict.Bias)
	}
	return d
}
