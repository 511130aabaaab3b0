package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/config"
	"github.com/beaconhq/beacon/internal/credentials"
	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/internal/platform"
)

// PublishStore is the slice of the store the publish worker uses. Claims
// are atomic: a row returned here belongs to this tick alone.
type PublishStore interface {
	ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]models.ScheduledPost, error)
	ClaimDueArticles(ctx context.Context, now time.Time, limit int) ([]models.Article, error)
	MarkPostPublished(ctx context.Context, id uint, platformPostID string, publishedAt time.Time) error
	MarkPostFailed(ctx context.Context, id uint, message string) error
	MarkArticlePublished(ctx context.Context, id uint, platformPostID string, publishedAt time.Time) error
	MarkArticleFailed(ctx context.Context, id uint, message string) error
}

// CredentialSource resolves a plaintext platform token for an owner.
type CredentialSource interface {
	Resolve(ctx context.Context, ownerID uint) (*credentials.Credential, error)
}

// Publisher drains the two due-item queues on a fixed interval. Every due
// item leaves pending in one tick: published on success, failed on any
// credential or platform error. Failures are terminal; nothing re-queues.
type Publisher struct {
	config   *config.PublisherConfig
	logger   *zap.Logger
	store    PublishStore
	resolver CredentialSource
	posts    platform.PostAdapter
	ticker   *time.Ticker
	stopCh   chan struct{}
}

func NewPublisher(cfg *config.PublisherConfig, logger *zap.Logger, store PublishStore, resolver CredentialSource, posts platform.PostAdapter) *Publisher {
	return &Publisher{
		config:   cfg,
		logger:   logger,
		store:    store,
		resolver: resolver,
		posts:    posts,
		stopCh:   make(chan struct{}),
	}
}

func (p *Publisher) Start(ctx context.Context) error {
	if !p.config.Enabled {
		p.logger.Info("Publish worker is disabled")
		return nil
	}

	interval, err := time.ParseDuration(p.config.PollInterval)
	if err != nil {
		p.logger.Error("Invalid poll interval", zap.String("interval", p.config.PollInterval), zap.Error(err))
		return err
	}

	p.logger.Info("Starting publish worker", zap.String("poll_interval", p.config.PollInterval))

	p.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-p.ticker.C:
				p.runTick(ctx)
			case <-p.stopCh:
				p.logger.Info("Publish worker stopped")
				return
			case <-ctx.Done():
				p.logger.Info("Publish worker context cancelled")
				return
			}
		}
	}()

	return nil
}

func (p *Publisher) Stop() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
	close(p.stopCh)
	p.logger.Info("Publish worker shutdown completed")
}

func (p *Publisher) runTick(ctx context.Context) {
	start := time.Now()
	posts, articles := p.Tick(ctx, start)
	p.logger.Info("Publish tick completed",
		zap.Int("posts", posts),
		zap.Int("articles", articles),
		zap.Duration("duration", time.Since(start)))
}

// Tick claims and processes one batch from each queue, returning how many
// items each queue yielded. The batch is processed to completion before the
// next tick fires; one item's failure never aborts the rest of the batch.
func (p *Publisher) Tick(ctx context.Context, now time.Time) (int, int) {
	posts, err := p.store.ClaimDuePosts(ctx, now, p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to claim due posts", zap.Error(err))
	}
	for i := range posts {
		p.processPost(ctx, &posts[i])
	}

	articles, err := p.store.ClaimDueArticles(ctx, now, p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to claim due articles", zap.Error(err))
	}
	for i := range articles {
		p.processArticle(ctx, &articles[i])
	}

	return len(posts), len(articles)
}

func (p *Publisher) processPost(ctx context.Context, post *models.ScheduledPost) {
	receipt, err := p.publish(ctx, post.OwnerID, post.PageID, platform.PostContent{
		Body:      post.Body,
		Link:      post.Link,
		MediaURLs: post.MediaURLs,
	})
	if err != nil {
		p.logger.Warn("Scheduled post failed",
			zap.Uint("post_id", post.ID),
			zap.Error(err))
		if err := p.store.MarkPostFailed(ctx, post.ID, err.Error()); err != nil {
			p.logger.Error("Failed to record post failure", zap.Uint("post_id", post.ID), zap.Error(err))
		}
		return
	}

	if err := p.store.MarkPostPublished(ctx, post.ID, receipt.PostID, time.Now()); err != nil {
		p.logger.Error("Failed to record published post", zap.Uint("post_id", post.ID), zap.Error(err))
		return
	}

	p.logger.Info("Scheduled post published",
		zap.Uint("post_id", post.ID),
		zap.String("platform_post_id", receipt.PostID))
}

func (p *Publisher) processArticle(ctx context.Context, article *models.Article) {
	receipt, err := p.publish(ctx, article.OwnerID, article.PageID, platform.PostContent{
		Body:      article.Body,
		Link:      article.Link,
		MediaURLs: article.MediaURLs,
	})
	if err != nil {
		p.logger.Warn("Scheduled article failed",
			zap.Uint("article_id", article.ID),
			zap.Error(err))
		if err := p.store.MarkArticleFailed(ctx, article.ID, err.Error()); err != nil {
			p.logger.Error("Failed to record article failure", zap.Uint("article_id", article.ID), zap.Error(err))
		}
		return
	}

	if err := p.store.MarkArticlePublished(ctx, article.ID, receipt.PostID, time.Now()); err != nil {
		p.logger.Error("Failed to record published article", zap.Uint("article_id", article.ID), zap.Error(err))
		return
	}

	p.logger.Info("Scheduled article published",
		zap.Uint("article_id", article.ID),
		zap.String("platform_post_id", receipt.PostID))
}

func (p *Publisher) publish(ctx context.Context, ownerID uint, pageID string, content platform.PostContent) (*platform.PostReceipt, error) {
	cred, err := p.resolver.Resolve(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return p.posts.PublishPost(ctx, pageID, cred, content)
}
