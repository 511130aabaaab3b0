package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/credentials"
	"github.com/beaconhq/beacon/internal/platform"
)

type messageRequest struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Template         *templateBody `json:"template,omitempty"`
	Text             *textBody     `json:"text,omitempty"`
	Image            *mediaBody    `json:"image,omitempty"`
	Video            *mediaBody    `json:"video,omitempty"`
	Document         *mediaBody    `json:"document,omitempty"`
}

type templateBody struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type mediaBody struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type messageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendMessage delivers one message to one recipient through the messaging
// channel attached to the credential. The payload is a tagged variant, so
// exactly one request shape is built per call.
func (c *Client) SendMessage(ctx context.Context, recipient string, cred *credentials.Credential, payload platform.MessagePayload) (*platform.MessageReceipt, error) {
	req := messageRequest{
		MessagingProduct: "whatsapp",
		To:               recipient,
	}

	switch payload.Kind {
	case platform.PayloadTemplate:
		req.Type = "template"
		body := &templateBody{
			Name:     payload.Template.Name,
			Language: templateLanguage{Code: payload.Template.Language},
		}
		if len(payload.Template.Variables) > 0 {
			params := make([]templateParameter, len(payload.Template.Variables))
			for i, v := range payload.Template.Variables {
				params[i] = templateParameter{Type: "text", Text: v}
			}
			body.Components = []templateComponent{{Type: "body", Parameters: params}}
		}
		req.Template = body
	case platform.PayloadMedia:
		media := &mediaBody{
			Link:    payload.Media.URL,
			Caption: payload.Media.Caption,
		}
		switch payload.Media.Kind {
		case "video":
			req.Type = "video"
			req.Video = media
		case "document":
			req.Type = "document"
			req.Document = media
		default:
			req.Type = "image"
			req.Image = media
		}
	case platform.PayloadText:
		req.Type = "text"
		req.Text = &textBody{Body: payload.Text.Body}
	default:
		return nil, fmt.Errorf("unknown payload kind %q", payload.Kind)
	}

	var resp messageResponse
	if err := c.postJSON(ctx, fmt.Sprintf("%s/messages", cred.PhoneNumberID), cred.Token, req, &resp); err != nil {
		return nil, err
	}

	var messageID string
	if len(resp.Messages) > 0 {
		messageID = resp.Messages[0].ID
	}

	c.logger.Debug("Message sent",
		zap.String("recipient", recipient),
		zap.String("message_id", messageID))

	return &platform.MessageReceipt{MessageID: messageID}, nil
}
