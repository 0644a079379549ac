package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/database"
)

// walWarnFrames is the WAL size above which a database gets a forced
// checkpoint. The ledger runs with synchronous=FULL, so a long WAL
// there means readers are paying for every verdict write.
const walWarnFrames = 1000

// MaintenanceJob checkpoints the write-ahead logs of all databases.
// Checkpoints are passive first; a database whose WAL has grown past
// walWarnFrames gets a truncating checkpoint to reclaim the file.
type MaintenanceJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

func NewMaintenanceJob(databases map[string]*database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "db_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "db_maintenance"
}

// Run executes the maintenance pass over every open database
func (j *MaintenanceJob) Run() error {
	for name, db := range j.databases {
		if db == nil {
			continue
		}

		var busy, walFrames, checkpointed int
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &walFrames, &checkpointed)
		if err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("Failed to checkpoint WAL")
			continue
		}

		if walFrames > walWarnFrames {
			j.log.Warn().
				Str("database", name).
				Int("wal_frames", walFrames).
				Int("checkpointed", checkpointed).
				Msg("WAL is large, forcing truncating checkpoint")
			if err := db.WALCheckpoint("TRUNCATE"); err != nil {
				j.log.Warn().Err(err).Str("database", name).Msg("Truncating checkpoint failed")
			}
			continue
		}

		j.log.Debug().
			Str("database", name).
			Int("wal_frames", walFrames).
			Msg("WAL checkpoint OK")
	}

	return nil
}
