package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ratedesk/internal/config"
	"ratedesk/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "audit.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testEntry(kind string) *models.AuditEntry {
	return &models.AuditEntry{
		ID:          uuid.NewString(),
		Operator:    "op-1",
		RoomID:      12,
		BoardTypeID: 3,
		StartDate:   "2024-07-10",
		EndDate:     "2024-07-12",
		Kind:        kind,
		Price:       1500000,
		ExtraPrice:  200000,
		Stock:       4,
		CreatedAt:   time.Now(),
	}
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "dir", "audit.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestRecordAndRecent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := testEntry(models.AuditKindSingle)
	first.CreatedAt = time.Now().Add(-time.Minute)
	require.NoError(t, db.Record(ctx, first))

	second := testEntry(models.AuditKindRange)
	require.NoError(t, db.Record(ctx, second))

	entries, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.Equal(t, int64(1500000), entries[0].Price)
	assert.Equal(t, "2024-07-10", entries[0].StartDate)
	assert.True(t, entries[0].Succeeded())
}

func TestRecordFailedSave(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry := testEntry(models.AuditKindSingle)
	entry.PriceError = "backend 500"
	require.NoError(t, db.Record(ctx, entry))

	entries, err := db.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "backend 500", entries[0].PriceError)
	assert.Empty(t, entries[0].StockError)
	assert.False(t, entries[0].Succeeded())
}

func TestPendingSyncSkipsFailures(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ok := testEntry(models.AuditKindSingle)
	require.NoError(t, db.Record(ctx, ok))

	failed := testEntry(models.AuditKindSingle)
	failed.StockError = "timeout"
	require.NoError(t, db.Record(ctx, failed))

	pending, err := db.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ok.ID, pending[0].ID)
}

func TestMarkSynced(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := testEntry(models.AuditKindSingle)
	b := testEntry(models.AuditKindPaste)
	require.NoError(t, db.Record(ctx, a))
	require.NoError(t, db.Record(ctx, b))

	require.NoError(t, db.MarkSynced(ctx, []string{a.ID, b.ID}))

	pending, err := db.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Synced entries still show up in the audit view.
	entries, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, db.MarkSynced(ctx, nil))
}

func TestMarkSyncError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry := testEntry(models.AuditKindSingle)
	require.NoError(t, db.Record(ctx, entry))

	// Retryable failure stays in the pending pool.
	require.NoError(t, db.MarkSyncError(ctx, entry.ID, "sheet quota", false))
	pending, err := db.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// Final failure leaves it.
	require.NoError(t, db.MarkSyncError(ctx, entry.ID, "sheet quota", true))
	pending, err = db.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPendingSyncLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := testEntry(models.AuditKindSingle)
		e.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, db.Record(ctx, e))
	}

	pending, err := db.PendingSync(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestBackupService(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	logger := zerolog.Nop()
	src, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	require.NoError(t, src.Record(context.Background(), testEntry(models.AuditKindSingle)))
	require.NoError(t, src.Close())

	backupDir := t.TempDir()
	svc := NewBackupService(dbPath, config.BackupConfig{Enabled: true, StoragePath: backupDir}, &logger)

	require.NoError(t, svc.PerformBackup())

	files, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Name(), "audit_")
}
