package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/beaconhq/beacon/internal/credentials"
)

// ErrMultiMediaUnsupported is returned when a post carries more than one
// media attachment. The platform client only supports single-media posts;
// failing fast here is required so media is never silently dropped.
var ErrMultiMediaUnsupported = errors.New("posts with multiple media attachments are not supported")

// PlatformError carries the provider's error code and message for a failed
// outbound call. The adapters make one call per operation and never retry.
type PlatformError struct {
	Code       int
	Type       string
	Message    string
	HTTPStatus int
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform error %d (%s): %s", e.Code, e.Type, e.Message)
}

// PostContent is the body of a social post or article publish call.
type PostContent struct {
	Body      string
	Link      string
	MediaURLs []string
}

type PostReceipt struct {
	PostID string
}

type MessageReceipt struct {
	MessageID string
}

// PayloadKind discriminates the message payload variants.
type PayloadKind string

const (
	PayloadTemplate PayloadKind = "template"
	PayloadMedia    PayloadKind = "media"
	PayloadText     PayloadKind = "text"
)

type TemplateMessage struct {
	Name      string
	Language  string
	Variables []string
}

type MediaMessage struct {
	URL     string
	Kind    string
	Caption string
}

type TextMessage struct {
	Body string
}

// MessagePayload is a tagged variant: exactly the field matching Kind is
// populated. Construct it once per broadcast with NewMessagePayload so the
// adapter never infers intent from which fields happen to be non-empty.
type MessagePayload struct {
	Kind     PayloadKind
	Template *TemplateMessage
	Media    *MediaMessage
	Text     *TextMessage
}

// NewMessagePayload selects the variant from the supplied inputs, with
// template taking precedence over media over text.
func NewMessagePayload(template *TemplateMessage, media *MediaMessage, body string) (MessagePayload, error) {
	switch {
	case template != nil && template.Name != "":
		return MessagePayload{Kind: PayloadTemplate, Template: template}, nil
	case media != nil && media.URL != "":
		return MessagePayload{Kind: PayloadMedia, Media: media}, nil
	case body != "":
		return MessagePayload{Kind: PayloadText, Text: &TextMessage{Body: body}}, nil
	default:
		return MessagePayload{}, errors.New("message payload requires a template, media URL or text body")
	}
}

// PostAdapter publishes a social post or article to a platform page.
type PostAdapter interface {
	PublishPost(ctx context.Context, pageID string, cred *credentials.Credential, content PostContent) (*PostReceipt, error)
}

// MessageAdapter delivers one message to one recipient.
type MessageAdapter interface {
	SendMessage(ctx context.Context, recipient string, cred *credentials.Credential, payload MessagePayload) (*MessageReceipt, error)
}

// CampaignMirror pushes a local campaign status to the ads platform.
// Callers treat failures as best effort; local state stays authoritative.
type CampaignMirror interface {
	MirrorCampaignStatus(ctx context.Context, externalCampaignID string, cred *credentials.Credential, status string) error
}
