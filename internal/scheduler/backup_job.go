package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/reliability"
)

const backupTimeout = 15 * time.Minute

// BackupJob uploads the nightly database backup
type BackupJob struct {
	backups *reliability.BackupService
	log     zerolog.Logger
}

// NewBackupJob creates the backup job
func NewBackupJob(backups *reliability.BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups: backups,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Name implements Job
func (j *BackupJob) Name() string { return "ledger_backup" }

// Run implements Job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()
	return j.backups.CreateAndUpload(ctx)
}
