package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"mpola/internal/domain"
	"mpola/internal/models"
	"mpola/internal/repository"
	"mpola/internal/service"

	"github.com/google/uuid"
)

// defaultSenderName labels automated disbursements on the provider side.
const defaultSenderName = "Mpola Scheduler"

// Scheduler periodically scans active funded schedules and initiates due
// installments. Only one sweep runs at a time; a trigger while a sweep is in
// flight is rejected rather than queued.
type Scheduler struct {
	schedules   *repository.ScheduleRepository
	receivers   *repository.ReceiverRepository
	txns        *repository.TransactionRepository
	payouts     *service.PayoutService
	scheduleSvc *service.ScheduleService
	interval    time.Duration

	mu      sync.Mutex
	running bool
	lastRun *RunSummary
}

func New(
	schedules *repository.ScheduleRepository,
	receivers *repository.ReceiverRepository,
	txns *repository.TransactionRepository,
	payouts *service.PayoutService,
	scheduleSvc *service.ScheduleService,
	interval time.Duration,
) *Scheduler {
	return &Scheduler{
		schedules:   schedules,
		receivers:   receivers,
		txns:        txns,
		payouts:     payouts,
		scheduleSvc: scheduleSvc,
		interval:    interval,
	}
}

var ErrAlreadyRunning = errors.New("scheduler run already in progress")

// RunSummary reports what one sweep did.
type RunSummary struct {
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	SchedulesScanned int       `json:"schedules_scanned"`
	SchedulesDue     int       `json:"schedules_due"`
	Initiated        int       `json:"initiated"`
	Skipped          int       `json:"skipped"`
	Failed           int       `json:"failed"`
	Errors           []string  `json:"errors,omitempty"`
}

// Start runs sweeps at the configured interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("[Scheduler] started, sweeping every %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Scheduler] stopped")
			return
		case <-ticker.C:
			if _, err := s.ProcessDueSchedules(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
				log.Printf("[Scheduler] sweep failed: %v", err)
			}
		}
	}
}

// ProcessDueSchedules sweeps all active funded schedules once.
func (s *Scheduler) ProcessDueSchedules(ctx context.Context) (*RunSummary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	summary := &RunSummary{StartedAt: time.Now()}
	defer func() {
		summary.FinishedAt = time.Now()
		s.mu.Lock()
		s.running = false
		s.lastRun = summary
		s.mu.Unlock()
	}()

	list, err := s.schedules.ListActiveFunded()
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return summary, err
	}
	summary.SchedulesScanned = len(list)

	for i := range list {
		sched := &list[i]
		due, err := s.scheduleSvc.IsPaymentDue(sched)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("schedule %s: %v", sched.ID, err))
			continue
		}
		if !due {
			continue
		}
		summary.SchedulesDue++
		s.processSchedule(ctx, sched, summary)
	}

	log.Printf("[Scheduler] sweep done: %d scanned, %d due, %d initiated, %d skipped, %d failed",
		summary.SchedulesScanned, summary.SchedulesDue, summary.Initiated, summary.Skipped, summary.Failed)
	return summary, nil
}

// processSchedule attempts the next installment for every receiver of one due
// schedule. Policy refusals are skips, provider faults are failures; neither
// stops the sweep.
func (s *Scheduler) processSchedule(ctx context.Context, sched *models.PaymentSchedule, summary *RunSummary) {
	receivers, err := s.receivers.ListBySchedule(sched.ID)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("schedule %s: %v", sched.ID, err))
		return
	}
	for i := range receivers {
		recv := &receivers[i]
		_, err := s.payouts.InitiatePayout(ctx, recv.ID, defaultSenderName)
		switch {
		case err == nil:
			summary.Initiated++
		case isPolicyRefusal(err):
			summary.Skipped++
		default:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("receiver %d: %v", recv.ID, err))
			log.Printf("[Scheduler] payout to receiver %d failed: %v", recv.ID, err)
		}
	}
}

func isPolicyRefusal(err error) bool {
	var policyErr *service.PolicyError
	return errors.As(err, &policyErr)
}

// Status reports whether a sweep is running and the last completed summary.
func (s *Scheduler) Status() (bool, *RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.lastRun
}

// ScheduleStatus is the per-schedule view in the scheduled-payments report.
type ScheduleStatus struct {
	ScheduleID      uuid.UUID  `json:"schedule_id"`
	Title           string     `json:"title"`
	Due             bool       `json:"due"`
	NextPaymentDate *time.Time `json:"next_payment_date"`
	Pending         int64      `json:"pending_transactions"`
	Processing      int64      `json:"processing_transactions"`
	Successful      int64      `json:"successful_transactions"`
	Failed          int64      `json:"failed_transactions"`
}

// Report breaks down every eligible schedule by due state and transaction
// counts, without initiating anything.
func (s *Scheduler) Report() ([]ScheduleStatus, error) {
	list, err := s.schedules.ListActiveFunded()
	if err != nil {
		return nil, err
	}
	out := make([]ScheduleStatus, 0, len(list))
	for i := range list {
		sched := &list[i]
		due, err := s.scheduleSvc.IsPaymentDue(sched)
		if err != nil {
			return nil, err
		}
		status := ScheduleStatus{
			ScheduleID:      sched.ID,
			Title:           sched.Title,
			Due:             due,
			NextPaymentDate: sched.NextPaymentDate,
		}
		counts := map[string]*int64{
			domain.TxnStatusPending:    &status.Pending,
			domain.TxnStatusProcessing: &status.Processing,
			domain.TxnStatusSuccess:    &status.Successful,
			domain.TxnStatusFailed:     &status.Failed,
		}
		for st, dst := range counts {
			n, err := s.txns.CountBySchedule(sched.ID, st)
			if err != nil {
				return nil, err
			}
			*dst = n
		}
		out = append(out, status)
	}
	return out, nil
}
