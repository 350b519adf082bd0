package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const archiveRetentionDays = 30

// ArchiveJob archives the results database on a schedule
type ArchiveJob struct {
	service *ArchiveService
	dbPaths []string
	log     zerolog.Logger
}

// NewArchiveJob creates an archive job for the given database files
func NewArchiveJob(service *ArchiveService, dbPaths []string, log zerolog.Logger) *ArchiveJob {
	return &ArchiveJob{
		service: service,
		dbPaths: dbPaths,
		log:     log.With().Str("job", "archive").Logger(),
	}
}

// Name returns the job name
func (j *ArchiveJob) Name() string {
	return "archive"
}

// Run creates and uploads an archive, then rotates old ones
func (j *ArchiveJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.service.CreateAndUpload(ctx, j.dbPaths); err != nil {
		return err
	}
	if err := j.service.RotateOldArchives(ctx, archiveRetentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Archive rotation failed")
	}
	return nil
}
