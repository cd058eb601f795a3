package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/modules/linking"
)

// LinkCleanupJob prunes expired Telegram linking codes.
type LinkCleanupJob struct {
	linkService *linking.Service
	log         zerolog.Logger
}

// NewLinkCleanupJob creates a new LinkCleanupJob
func NewLinkCleanupJob(linkService *linking.Service, log zerolog.Logger) *LinkCleanupJob {
	return &LinkCleanupJob{
		linkService: linkService,
		log:         log.With().Str("job", "link_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *LinkCleanupJob) Name() string {
	return "link_cleanup"
}

// Run executes the link code cleanup job
func (j *LinkCleanupJob) Run() error {
	removed, err := j.linkService.PruneExpired()
	if err != nil {
		return err
	}

	if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Expired link codes removed")
	}

	return nil
}
