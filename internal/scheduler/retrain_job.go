package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/eshopdash/forecaster/internal/modules/training"
)

// RetrainJob triggers a scheduled training run. A run already in progress is
// left alone; the next scheduled slot tries again.
type RetrainJob struct {
	orchestrator *training.Orchestrator
	log          zerolog.Logger
}

// NewRetrainJob creates a retrain job
func NewRetrainJob(orchestrator *training.Orchestrator, log zerolog.Logger) *RetrainJob {
	return &RetrainJob{
		orchestrator: orchestrator,
		log:          log.With().Str("job", "retrain").Logger(),
	}
}

// Name returns the job name
func (j *RetrainJob) Name() string {
	return "retrain"
}

// Run starts a training run with the configured default lookback
func (j *RetrainJob) Run() error {
	if !j.orchestrator.Start(0) {
		j.log.Info().Msg("Skipping scheduled retrain, a run is already in progress")
	}
	return nil
}
