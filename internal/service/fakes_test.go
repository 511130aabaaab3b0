package service

import (
	"context"
	"sync"
	"time"

	"github.com/beaconhq/beacon/internal/credentials"
	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/internal/platform"
)

type fakeResolver struct {
	cred *credentials.Credential
	err  error
}

func (f *fakeResolver) Resolve(ctx context.Context, ownerID uint) (*credentials.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.cred != nil {
		return f.cred, nil
	}
	return &credentials.Credential{
		OwnerID:       ownerID,
		Token:         "token",
		PhoneNumberID: "123456",
	}, nil
}

// fakePublishStore hands out each pending item exactly once, the way the
// database claim does.
type fakePublishStore struct {
	mu       sync.Mutex
	posts    []models.ScheduledPost
	articles []models.Article

	published map[uint]string
	failed    map[uint]string

	publishedArticles map[uint]string
	failedArticles    map[uint]string
}

func newFakePublishStore() *fakePublishStore {
	return &fakePublishStore{
		published:         make(map[uint]string),
		failed:            make(map[uint]string),
		publishedArticles: make(map[uint]string),
		failedArticles:    make(map[uint]string),
	}
}

func (f *fakePublishStore) ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]models.ScheduledPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var claimed []models.ScheduledPost
	for i := range f.posts {
		if len(claimed) == limit {
			break
		}
		if f.posts[i].Status == models.StatusPending && !f.posts[i].ScheduledTime.After(now) {
			f.posts[i].Status = models.StatusProcessing
			claimed = append(claimed, f.posts[i])
		}
	}
	return claimed, nil
}

func (f *fakePublishStore) ClaimDueArticles(ctx context.Context, now time.Time, limit int) ([]models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var claimed []models.Article
	for i := range f.articles {
		if len(claimed) == limit {
			break
		}
		if f.articles[i].Status == models.StatusPending && !f.articles[i].ScheduledTime.After(now) {
			f.articles[i].Status = models.StatusProcessing
			claimed = append(claimed, f.articles[i])
		}
	}
	return claimed, nil
}

func (f *fakePublishStore) MarkPostPublished(ctx context.Context, id uint, platformPostID string, publishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[id] = platformPostID
	f.setPostStatus(id, models.StatusPublished)
	return nil
}

func (f *fakePublishStore) MarkPostFailed(ctx context.Context, id uint, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = message
	f.setPostStatus(id, models.StatusFailed)
	return nil
}

func (f *fakePublishStore) MarkArticlePublished(ctx context.Context, id uint, platformPostID string, publishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishedArticles[id] = platformPostID
	f.setArticleStatus(id, models.StatusPublished)
	return nil
}

func (f *fakePublishStore) MarkArticleFailed(ctx context.Context, id uint, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedArticles[id] = message
	f.setArticleStatus(id, models.StatusFailed)
	return nil
}

func (f *fakePublishStore) setPostStatus(id uint, status string) {
	for i := range f.posts {
		if f.posts[i].ID == id {
			f.posts[i].Status = status
		}
	}
}

func (f *fakePublishStore) setArticleStatus(id uint, status string) {
	for i := range f.articles {
		if f.articles[i].ID == id {
			f.articles[i].Status = status
		}
	}
}

type fakePostAdapter struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]error
}

func (f *fakePostAdapter) PublishPost(ctx context.Context, pageID string, cred *credentials.Credential, content platform.PostContent) (*platform.PostReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pageID)
	if err, ok := f.failFor[pageID]; ok {
		return nil, err
	}
	return &platform.PostReceipt{PostID: "post_" + pageID}, nil
}

type fakeCampaignStore struct {
	mu        sync.Mutex
	campaigns []models.Campaign
}

func (f *fakeCampaignStore) ActivateDueCampaigns(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var moved []models.Campaign
	for i := range f.campaigns {
		c := &f.campaigns[i]
		if c.Status == models.CampaignStatusPaused && !c.StartTime.After(now) && c.EndTime.After(now) {
			c.Status = models.CampaignStatusActive
			moved = append(moved, *c)
		}
	}
	return moved, nil
}

func (f *fakeCampaignStore) CompleteDueCampaigns(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var moved []models.Campaign
	for i := range f.campaigns {
		c := &f.campaigns[i]
		if c.Status == models.CampaignStatusActive && !c.EndTime.After(now) {
			c.Status = models.CampaignStatusCompleted
			moved = append(moved, *c)
		}
	}
	return moved, nil
}

func (f *fakeCampaignStore) status(id uint) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.campaigns {
		if f.campaigns[i].ID == id {
			return f.campaigns[i].Status
		}
	}
	return ""
}

type finalized struct {
	status     string
	successful int
	failed     int
}

type fakeBroadcastStore struct {
	mu        sync.Mutex
	created   []*models.Broadcast
	finalized map[uint]finalized
}

func newFakeBroadcastStore() *fakeBroadcastStore {
	return &fakeBroadcastStore{finalized: make(map[uint]finalized)}
}

func (f *fakeBroadcastStore) CreateBroadcast(ctx context.Context, broadcast *models.Broadcast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	broadcast.ID = uint(len(f.created) + 1)
	f.created = append(f.created, broadcast)
	return nil
}

func (f *fakeBroadcastStore) FinalizeBroadcast(ctx context.Context, id uint, status string, successful, failed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized[id] = finalized{status: status, successful: successful, failed: failed}
	return nil
}

func (f *fakeBroadcastStore) result(id uint) (finalized, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.finalized[id]
	return r, ok
}

type fakeMessageAdapter struct {
	mu       sync.Mutex
	sent     []string
	payloads []platform.MessagePayload
	failFor  map[string]error
}

func (f *fakeMessageAdapter) SendMessage(ctx context.Context, recipient string, cred *credentials.Credential, payload platform.MessagePayload) (*platform.MessageReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	if err, ok := f.failFor[recipient]; ok {
		return nil, err
	}
	f.sent = append(f.sent, recipient)
	return &platform.MessageReceipt{MessageID: "wamid." + recipient}, nil
}
