package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beaconhq/beacon/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Store is the single database client constructed at startup and handed to
// every scheduler component. All claim operations are single conditional
// updates so a concurrent tick (same or different process) cannot claim the
// same row twice.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ActiveCredential returns the single active credential row for an owner.
func (s *Store) ActiveCredential(ctx context.Context, ownerID uint) (*models.Credential, error) {
	var cred models.Credential
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &cred, nil
}

// ClaimDuePosts atomically flips due pending posts to processing and
// returns the claimed rows.
func (s *Store) ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]models.ScheduledPost, error) {
	var posts []models.ScheduledPost
	due := s.db.Model(&models.ScheduledPost{}).
		Select("id").
		Where("status = ? AND scheduled_time <= ?", models.StatusPending, now).
		Order("scheduled_time ASC").
		Limit(limit)

	err := s.db.WithContext(ctx).
		Model(&posts).
		Clauses(clause.Returning{}).
		Where("id IN (?) AND status = ?", due, models.StatusPending).
		Update("status", models.StatusProcessing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to claim due posts: %w", err)
	}
	return posts, nil
}

// ClaimDueArticles is ClaimDuePosts for the long-form queue.
func (s *Store) ClaimDueArticles(ctx context.Context, now time.Time, limit int) ([]models.Article, error) {
	var articles []models.Article
	due := s.db.Model(&models.Article{}).
		Select("id").
		Where("status = ? AND scheduled_time <= ?", models.StatusPending, now).
		Order("scheduled_time ASC").
		Limit(limit)

	err := s.db.WithContext(ctx).
		Model(&articles).
		Clauses(clause.Returning{}).
		Where("id IN (?) AND status = ?", due, models.StatusPending).
		Update("status", models.StatusProcessing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to claim due articles: %w", err)
	}
	return articles, nil
}

func (s *Store) MarkPostPublished(ctx context.Context, id uint, platformPostID string, publishedAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.ScheduledPost{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           models.StatusPublished,
			"platform_post_id": platformPostID,
			"published_at":     publishedAt,
			"error_message":    "",
		}).Error
}

func (s *Store) MarkPostFailed(ctx context.Context, id uint, message string) error {
	return s.db.WithContext(ctx).
		Model(&models.ScheduledPost{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": message,
		}).Error
}

func (s *Store) MarkArticlePublished(ctx context.Context, id uint, platformPostID string, publishedAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Article{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           models.StatusPublished,
			"platform_post_id": platformPostID,
			"published_at":     publishedAt,
			"error_message":    "",
		}).Error
}

func (s *Store) MarkArticleFailed(ctx context.Context, id uint, message string) error {
	return s.db.WithContext(ctx).
		Model(&models.Article{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": message,
		}).Error
}

// ActivateDueCampaigns flips PAUSED campaigns whose window has opened to
// ACTIVE and returns the transitioned rows. Running it again with no time
// passing matches nothing, so the tick is idempotent.
func (s *Store) ActivateDueCampaigns(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := s.db.WithContext(ctx).
		Model(&campaigns).
		Clauses(clause.Returning{}).
		Where("status = ? AND start_time <= ? AND end_time > ?", models.CampaignStatusPaused, now, now).
		Update("status", models.CampaignStatusActive).Error
	if err != nil {
		return nil, fmt.Errorf("failed to activate campaigns: %w", err)
	}
	return campaigns, nil
}

// CompleteDueCampaigns flips ACTIVE campaigns whose window has closed to
// COMPLETED and returns the transitioned rows.
func (s *Store) CompleteDueCampaigns(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := s.db.WithContext(ctx).
		Model(&campaigns).
		Clauses(clause.Returning{}).
		Where("status = ? AND end_time <= ?", models.CampaignStatusActive, now).
		Update("status", models.CampaignStatusCompleted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to complete campaigns: %w", err)
	}
	return campaigns, nil
}

func (s *Store) CreateBroadcast(ctx context.Context, broadcast *models.Broadcast) error {
	if err := s.db.WithContext(ctx).Create(broadcast).Error; err != nil {
		return fmt.Errorf("failed to create broadcast: %w", err)
	}
	return nil
}

// FinalizeBroadcast writes the terminal counters and status once fan-out
// has exhausted the recipient list.
func (s *Store) FinalizeBroadcast(ctx context.Context, id uint, status string, successful, failed int) error {
	return s.db.WithContext(ctx).
		Model(&models.Broadcast{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           status,
			"successful_sends": successful,
			"failed_sends":     failed,
		}).Error
}

func (s *Store) BroadcastByPublicID(ctx context.Context, publicID string) (*models.Broadcast, error) {
	var broadcast models.Broadcast
	err := s.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&broadcast).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load broadcast: %w", err)
	}
	return &broadcast, nil
}
