package ledger

import (
	"context"
	"fmt"
	"log"

	"ballotbox/internal/config"
	"ballotbox/internal/repository"

	"github.com/robfig/cron/v3"
)

// reconcileBatchSize caps how many unconfirmed votes each run inspects
const reconcileBatchSize = 100

// Reconciler periodically re-checks votes whose ledger receipt was never
// confirmed. It only ever upgrades a vote to confirmed; the local votes
// table stays the source of truth and is never rolled back here.
type Reconciler struct {
	config *config.LedgerConfig
	client Client
	votes  repository.VoteRepository
	cron   *cron.Cron
}

// NewReconciler creates a reconciliation job over the given ledger client
func NewReconciler(config *config.LedgerConfig, client Client, votes repository.VoteRepository) *Reconciler {
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))

	return &Reconciler{
		config: config,
		client: client,
		votes:  votes,
		cron:   c,
	}
}

// Run performs a single reconciliation pass
func (r *Reconciler) Run(ctx context.Context) error {
	votes, err := r.votes.ListUnconfirmed(ctx, reconcileBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list unconfirmed votes: %w", err)
	}
	if len(votes) == 0 {
		return nil
	}

	log.Printf("Reconciling %d unconfirmed ledger receipts", len(votes))

	var confirmed, failed int
	for _, vote := range votes {
		if vote.LedgerHash == nil || *vote.LedgerHash == "" {
			// Committed locally but the submit response was lost before the
			// hash could be stored. Resubmission would double-record the
			// vote on the ledger, so flag it for manual review instead.
			log.Printf("Vote %s has no ledger hash, manual review required", vote.ID)
			continue
		}

		ok, err := r.client.Verify(ctx, *vote.LedgerHash)
		if err != nil {
			failed++
			log.Printf("Failed to verify ledger transaction %s: %v", *vote.LedgerHash, err)
			continue
		}
		if !ok {
			continue
		}

		if err := r.votes.MarkConfirmed(ctx, vote.ID, *vote.LedgerHash); err != nil {
			failed++
			log.Printf("Failed to mark vote %s confirmed: %v", vote.ID, err)
			continue
		}
		confirmed++
	}

	log.Printf("Ledger reconciliation finished: %d confirmed, %d failed", confirmed, failed)
	return nil
}

// Start schedules reconciliation runs and blocks until ctx is cancelled
func (r *Reconciler) Start(ctx context.Context) error {
	if !r.config.ReconcileEnabled {
		log.Println("Ledger reconciliation is disabled, skipping scheduler")
		<-ctx.Done()
		return nil
	}

	if r.config.ReconcileSchedule == "" {
		return fmt.Errorf("ledger reconciliation has no schedule configured")
	}

	_, err := r.cron.AddFunc(r.config.ReconcileSchedule, func() {
		if err := r.Run(ctx); err != nil {
			log.Printf("Error running ledger reconciliation: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule ledger reconciliation: %w", err)
	}

	r.cron.Start()
	log.Printf("Scheduled ledger reconciliation with schedule %s", r.config.ReconcileSchedule)

	<-ctx.Done()
	log.Println("Stopping ledger reconciliation scheduler...")
	r.cron.Stop()

	return nil
}
