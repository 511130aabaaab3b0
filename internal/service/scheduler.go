package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/config"
	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/internal/platform"
)

// CampaignStore is the slice of the store the campaign scheduler uses.
// Both operations are conditional updates, so repeating a tick with no
// time passing produces no further transitions.
type CampaignStore interface {
	ActivateDueCampaigns(ctx context.Context, now time.Time) ([]models.Campaign, error)
	CompleteDueCampaigns(ctx context.Context, now time.Time) ([]models.Campaign, error)
}

// CampaignScheduler flips campaign lifecycle state as activation windows
// open and close. Local state is authoritative; mirroring a transition to
// the ads platform is best effort and never blocks the local flip.
type CampaignScheduler struct {
	config   *config.CampaignsConfig
	logger   *zap.Logger
	store    CampaignStore
	resolver CredentialSource
	mirror   platform.CampaignMirror
	ticker   *time.Ticker
	stopCh   chan struct{}
}

func NewCampaignScheduler(cfg *config.CampaignsConfig, logger *zap.Logger, store CampaignStore, resolver CredentialSource, mirror platform.CampaignMirror) *CampaignScheduler {
	return &CampaignScheduler{
		config:   cfg,
		logger:   logger,
		store:    store,
		resolver: resolver,
		mirror:   mirror,
		stopCh:   make(chan struct{}),
	}
}

func (s *CampaignScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Campaign scheduler is disabled")
		return nil
	}

	interval, err := time.ParseDuration(s.config.PollInterval)
	if err != nil {
		s.logger.Error("Invalid poll interval", zap.String("interval", s.config.PollInterval), zap.Error(err))
		return err
	}

	s.logger.Info("Starting campaign scheduler", zap.String("poll_interval", s.config.PollInterval))

	s.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.runTick(ctx)
			case <-s.stopCh:
				s.logger.Info("Campaign scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Campaign scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *CampaignScheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Campaign scheduler shutdown completed")
}

func (s *CampaignScheduler) runTick(ctx context.Context) {
	start := time.Now()
	activated, completed := s.Tick(ctx, start)
	s.logger.Info("Campaign tick completed",
		zap.Int("activated", activated),
		zap.Int("completed", completed),
		zap.Duration("duration", time.Since(start)))
}

// Tick runs both window queries and returns how many campaigns moved.
func (s *CampaignScheduler) Tick(ctx context.Context, now time.Time) (int, int) {
	activated, err := s.store.ActivateDueCampaigns(ctx, now)
	if err != nil {
		s.logger.Error("Failed to activate due campaigns", zap.Error(err))
	}
	for i := range activated {
		s.logger.Info("Campaign activated",
			zap.Uint("campaign_id", activated[i].ID),
			zap.Time("start_time", activated[i].StartTime))
		s.mirrorStatus(ctx, &activated[i], models.CampaignStatusActive)
	}

	completed, err := s.store.CompleteDueCampaigns(ctx, now)
	if err != nil {
		s.logger.Error("Failed to complete due campaigns", zap.Error(err))
	}
	for i := range completed {
		s.logger.Info("Campaign completed",
			zap.Uint("campaign_id", completed[i].ID),
			zap.Time("end_time", completed[i].EndTime))
		s.mirrorStatus(ctx, &completed[i], models.CampaignStatusPaused)
	}

	return len(activated), len(completed)
}

// mirrorStatus pushes the new status to the external platform when the
// campaign is linked to one. Failures are logged and swallowed.
func (s *CampaignScheduler) mirrorStatus(ctx context.Context, campaign *models.Campaign, status string) {
	if campaign.ExternalCampaignID == "" || s.mirror == nil {
		return
	}

	cred, err := s.resolver.Resolve(ctx, campaign.OwnerID)
	if err != nil {
		s.logger.Warn("Skipping campaign status mirror, no usable credential",
			zap.Uint("campaign_id", campaign.ID),
			zap.Error(err))
		return
	}

	if err := s.mirror.MirrorCampaignStatus(ctx, campaign.ExternalCampaignID, cred, status); err != nil {
		s.logger.Warn("Failed to mirror campaign status",
			zap.Uint("campaign_id", campaign.ID),
			zap.String("status", status),
			zap.Error(err))
	}
}
