package worker

import (
	"context"
	"encoding/json"
	"time"

	"ratedesk/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SheetsClient is the slice of the Google Sheets service the worker
// needs.
type SheetsClient interface {
	AppendRateChanges(ctx context.Context, entries []models.AuditEntry) error
}

// AuditSource is the slice of the audit database the worker drains.
type AuditSource interface {
	PendingSync(ctx context.Context, limit int) ([]models.AuditEntry, error)
	MarkSynced(ctx context.Context, ids []string) error
	MarkSyncError(ctx context.Context, id, errMsg string, final bool) error
}

// SyncWorker mirrors successful save attempts from the audit database
// into the rate-changes spreadsheet. The database drives everything;
// redis only collects entries that exhausted their retries, for manual
// inspection.
type SyncWorker struct {
	audit         AuditSource
	sheets        SheetsClient
	redis         *redis.Client
	retryPolicy   RetryPolicy
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        zerolog.Logger

	attempts map[string]int
}

func NewSyncWorker(audit AuditSource, sheets SheetsClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SyncWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "sync_worker").Logger()
	}

	return &SyncWorker{
		audit:         audit,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry,
		deadLetterKey: "ratedesk:sheets:deadletter",
		pollInterval:  5 * time.Second,
		batchSize:     20,
		logger:        base,
		attempts:      make(map[string]int),
	}
}

// SetPollInterval overrides the poll cadence; zero keeps the default.
func (w *SyncWorker) SetPollInterval(d time.Duration) {
	if d > 0 {
		w.pollInterval = d
	}
}

// SetBatchSize overrides the batch size; zero keeps the default.
func (w *SyncWorker) SetBatchSize(n int) {
	if n > 0 {
		w.batchSize = n
	}
}

// Start runs the poll loop until the context is cancelled.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sync worker started")
	defer w.logger.Info().Msg("sync worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.logger.Error().Err(err).Msg("sync pass failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce drains one batch of pending entries. Exposed for the main
// loop and for tests.
func (w *SyncWorker) RunOnce(ctx context.Context) error {
	entries, err := w.audit.PendingSync(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	if err := w.sheets.AppendRateChanges(ctx, entries); err != nil {
		w.handleFailure(ctx, entries, err)
		return nil
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
		delete(w.attempts, e.ID)
	}

	if err := w.audit.MarkSynced(ctx, ids); err != nil {
		// The rows landed in the sheet; on the next pass they will be
		// appended again as duplicates, which beats losing them.
		return err
	}

	w.logger.Info().Int("count", len(ids)).Msg("entries synced to sheet")
	return nil
}

func (w *SyncWorker) handleFailure(ctx context.Context, entries []models.AuditEntry, cause error) {
	for _, e := range entries {
		w.attempts[e.ID]++
		attempt := w.attempts[e.ID]

		if w.retryPolicy.Exhausted(attempt) {
			w.logger.Error().Err(cause).Str("entry_id", e.ID).Int("attempts", attempt).Msg("entry exhausted retries")
			if err := w.audit.MarkSyncError(ctx, e.ID, cause.Error(), true); err != nil {
				w.logger.Error().Err(err).Str("entry_id", e.ID).Msg("mark failed")
			}
			w.pushDeadLetter(ctx, e)
			delete(w.attempts, e.ID)
			continue
		}

		if err := w.audit.MarkSyncError(ctx, e.ID, cause.Error(), false); err != nil {
			w.logger.Error().Err(err).Str("entry_id", e.ID).Msg("mark retry")
		}
	}

	delay := w.retryPolicy.NextDelay(w.maxAttempt(entries))
	w.logger.Warn().Err(cause).Dur("backoff", delay).Int("count", len(entries)).Msg("sheet append failed, backing off")

	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

func (w *SyncWorker) maxAttempt(entries []models.AuditEntry) int {
	max := 1
	for _, e := range entries {
		if w.attempts[e.ID] > max {
			max = w.attempts[e.ID]
		}
	}
	return max
}

func (w *SyncWorker) pushDeadLetter(ctx context.Context, entry models.AuditEntry) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		w.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("deadletter push")
	}
}
