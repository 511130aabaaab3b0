package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/credentials"
	"github.com/beaconhq/beacon/internal/platform"
)

type feedRequest struct {
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

type photoRequest struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type publishResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// PublishPost publishes to the page feed, or as a photo post when exactly
// one media attachment is present. Multi-media posts fail fast; dropping
// attachments silently is worse than refusing the job.
func (c *Client) PublishPost(ctx context.Context, pageID string, cred *credentials.Credential, content platform.PostContent) (*platform.PostReceipt, error) {
	if len(content.MediaURLs) > 1 {
		return nil, platform.ErrMultiMediaUnsupported
	}

	var resp publishResponse

	if len(content.MediaURLs) == 1 {
		req := photoRequest{
			URL:     content.MediaURLs[0],
			Caption: content.Body,
		}
		if err := c.postJSON(ctx, fmt.Sprintf("%s/photos", pageID), cred.Token, req, &resp); err != nil {
			return nil, err
		}
	} else {
		req := feedRequest{
			Message: content.Body,
			Link:    content.Link,
		}
		if err := c.postJSON(ctx, fmt.Sprintf("%s/feed", pageID), cred.Token, req, &resp); err != nil {
			return nil, err
		}
	}

	postID := resp.PostID
	if postID == "" {
		postID = resp.ID
	}

	c.logger.Debug("Post published",
		zap.String("page_id", pageID),
		zap.String("post_id", postID))

	return &platform.PostReceipt{PostID: postID}, nil
}

type statusRequest struct {
	Status string `json:"status"`
}

// MirrorCampaignStatus pushes a campaign status change to the ads surface.
func (c *Client) MirrorCampaignStatus(ctx context.Context, externalCampaignID string, cred *credentials.Credential, status string) error {
	return c.postJSON(ctx, externalCampaignID, cred.Token, statusRequest{Status: status}, nil)
}
