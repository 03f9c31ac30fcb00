package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"TradeSentry/internal/advisor"
	"TradeSentry/internal/collector"
	"TradeSentry/internal/config"
	"TradeSentry/internal/indicator"
	"TradeSentry/internal/model"
	"TradeSentry/internal/notifier"
	"TradeSentry/internal/store"
	"TradeSentry/internal/strategy"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the sampling cycle: every interval it walks the
// instrument list sequentially and runs the full pipeline per instrument.
// Per-instrument failures are contained at that boundary; nothing aborts
// the batch or the loop.
type Scheduler struct {
	Cron      *cron.Cron
	Ingestor  *collector.Ingestor
	Engine    *indicator.Engine
	Fusion    *advisor.Fusion
	Gate      *notifier.Gate
	Sender    notifier.Sender // nil when alerts are disabled
	Store     store.Store
	Ctx       context.Context
	Positions map[string]model.Position

	codes         []string
	allDay        bool
	alertErrors   bool
	backfillLimit int
	review        bool
}

// NewScheduler wires the pipeline together.
func NewScheduler(ctx context.Context, cfg *config.Config, ing *collector.Ingestor, eng *indicator.Engine, fus *advisor.Fusion, gate *notifier.Gate, sender notifier.Sender, st store.Store) *Scheduler {
	positions := make(map[string]model.Position, len(cfg.Instruments))
	codes := make([]string, 0, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		codes = append(codes, inst.Code)
		positions[inst.Code] = model.Position{Cost: inst.Cost, Ratio: inst.Ratio}
	}
	return &Scheduler{
		Cron:          cron.New(cron.WithSeconds()),
		Ingestor:      ing,
		Engine:        eng,
		Fusion:        fus,
		Gate:          gate,
		Sender:        sender,
		Store:         st,
		Ctx:           ctx,
		Positions:     positions,
		codes:         codes,
		allDay:        cfg.Poll.AllDay,
		alertErrors:   cfg.Alerts.AlertErrors,
		backfillLimit: cfg.Backfill.Limit,
		review:        cfg.Backfill.Review,
	}
}

// Register adds the poll cycle and the daily backfill job.
func (s *Scheduler) Register(pollEvery time.Duration, backfillCron string) error {
	if _, err := s.Cron.AddFunc(fmt.Sprintf("@every %s", pollEvery), s.pollCycle); err != nil {
		return fmt.Errorf("register poll cycle: %w", err)
	}
	if _, err := s.Cron.AddFunc(backfillCron, s.backfillTask); err != nil {
		return fmt.Errorf("register backfill task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and blocks until any in-flight cycle has
// drained. Shutdown takes effect at a cycle or instrument boundary, never
// mid-instrument.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunBackfillNow executes the backfill immediately (startup seeding).
func (s *Scheduler) RunBackfillNow() {
	s.backfillTask()
}

// pollCycle runs one sampling cycle. Shutdown takes effect here, at the
// cycle boundary or between instruments, never mid-instrument.
func (s *Scheduler) pollCycle() {
	if s.Ctx.Err() != nil {
		return
	}
	if !s.allDay && !InSession(time.Now()) {
		return
	}

	for _, code := range s.codes {
		if s.Ctx.Err() != nil {
			log.Println("[INFO] shutdown requested, abandoning remaining instruments")
			return
		}
		if err := s.ProcessInstrument(s.Ctx, code); err != nil {
			log.Printf("[ERROR] %s cycle: %v", code, err)
			if s.alertErrors && s.Sender != nil {
				// Error alerts are fire-and-forget, never retried.
				if sendErr := s.Sender.Send(s.Ctx, notifier.FormatError(code, "cycle", err, time.Now())); sendErr != nil {
					log.Printf("[WARN] error alert for %s failed: %v", code, sendErr)
				}
			}
		}
	}
}

// ProcessInstrument runs the strict pipeline for one instrument:
// ingest -> indicators -> rule verdict -> advisory fusion -> gate.
func (s *Scheduler) ProcessInstrument(ctx context.Context, code string) error {
	live, err := s.Ingestor.IngestCycle(ctx, code)
	if err != nil {
		var pe *store.PersistError
		if !errors.As(err, &pe) {
			return fmt.Errorf("ingest: %w", err)
		}
		// Store write failed but the fetch succeeded; the cycle continues
		// on the fetched bar so "today" still has a value.
		log.Printf("[WARN] %s persist failed, continuing with fetched bar: %v", code, err)
	}

	ind, history, err := s.Engine.Compute(ctx, code, live)
	if err != nil {
		return fmt.Errorf("indicators: %w", err)
	}

	verdict := strategy.Evaluate(ind, live)

	trajectory, err := s.Store.QueryMinuteTrajectory(ctx, code, live.TradeDate)
	if err != nil {
		log.Printf("[WARN] %s trajectory query failed, advisory context will omit it: %v", code, err)
		trajectory = nil
	}

	decision := s.Fusion.Decide(ctx, advisor.Input{
		Code:       code,
		Live:       live,
		History:    history,
		Trajectory: trajectory,
		Indicators: ind,
		Position:   s.Positions[code],
		Verdict:    verdict,
	})

	if !s.Gate.ShouldEmit(code, decision) {
		return nil
	}

	msg := notifier.FormatDecision(decision, time.Now())
	log.Printf("[INFO] emit %s: %s %s", code, decision.Action, verdict.Bias)
	if s.Sender != nil {
		if err := s.Sender.SendWithRetry(ctx, msg, 3); err != nil {
			// The gate entry stays: it prevents re-emission, it does not
			// guarantee delivery.
			log.Printf("[ERROR] %s alert delivery failed: %v", code, err)
		}
	}
	return nil
}

// backfillTask refreshes the daily history for every instrument, then
// optionally pushes the after-close review over the settled bars.
func (s *Scheduler) backfillTask() {
	log.Println("[INFO] running daily history backfill")
	for _, code := range s.codes {
		if s.Ctx.Err() != nil {
			return
		}
		n, err := s.Ingestor.Backfill(s.Ctx, code, s.backfillLimit)
		if err != nil {
			log.Printf("[ERROR] backfill %s: %v", code, err)
			continue
		}
		log.Printf("[INFO] backfill %s: %d daily bars", code, n)
		if s.review {
			if err := s.AftermarketReview(s.Ctx, code); err != nil {
				log.Printf("[ERROR] aftermarket review %s: %v", code, err)
			}
		}
	}
}

// AftermarketReview runs the fusion pipeline over the settled daily close
// and pushes the result as a post-close report. The gate is bypassed: a
// review is a report, not a signal transition.
func (s *Scheduler) AftermarketReview(ctx context.Context, code string) error {
	history, err := s.Store.QueryHistory(ctx, code, 1)
	if err != nil {
		return fmt.Errorf("load settled bar: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("no daily history for %s", code)
	}
	settled := history[len(history)-1]

	ind, history, err := s.Engine.Compute(ctx, code, settled)
	if err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	verdict := strategy.Evaluate(ind, settled)

	trajectory, err := s.Store.QueryMinuteTrajectory(ctx, code, settled.TradeDate)
	if err != nil {
		log.Printf("[WARN] %s trajectory query failed, review will omit it: %v", code, err)
		trajectory = nil
	}

	decision := s.Fusion.Decide(ctx, advisor.Input{
		Code:       code,
		Live:       settled,
		History:    history,
		Trajectory: trajectory,
		Indicators: ind,
		Position:   s.Positions[code],
		Verdict:    verdict,
	})

	msg := "aftermarket review\n" + notifier.FormatDecision(decision, time.Now())
	log.Printf("[INFO] aftermarket review %s: %s %s", code, decision.Action, verdict.Bias)
	if s.Sender != nil {
		if err := s.Sender.SendWithRetry(ctx, msg, 3); err != nil {
			return fmt.Errorf("deliver review: %w", err)
		}
	}
	return nil
}
