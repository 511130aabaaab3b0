package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/credentials"
	"github.com/beaconhq/beacon/internal/platform"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "v19.0", 5*time.Second, zap.NewNop()), server
}

func testCredential() *credentials.Credential {
	return &credentials.Credential{
		OwnerID:       7,
		Token:         "test-token",
		PhoneNumberID: "10987654",
	}
}

func TestPublishPost(t *testing.T) {
	t.Run("text post goes to the page feed", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)

		var gotPath, gotAuth string
		var gotBody map[string]string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			json.NewDecoder(r.Body).Decode(&gotBody)
			json.NewEncoder(w).Encode(map[string]string{"id": "page_post_1"})
		}))

		receipt, err := client.PublishPost(context.Background(), "page-1", testCredential(), platform.PostContent{
			Body: "hello",
			Link: "https://example.com",
		})
		require.NoError(err)

		assert.Equal("/v19.0/page-1/feed", gotPath)
		assert.Equal("Bearer test-token", gotAuth)
		assert.Equal("hello", gotBody["message"])
		assert.Equal("https://example.com", gotBody["link"])
		assert.Equal("page_post_1", receipt.PostID)
	})

	t.Run("single media post goes to photos", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)

		var gotPath string
		var gotBody map[string]string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			json.NewDecoder(r.Body).Decode(&gotBody)
			json.NewEncoder(w).Encode(map[string]string{"id": "photo_1", "post_id": "page_post_2"})
		}))

		receipt, err := client.PublishPost(context.Background(), "page-1", testCredential(), platform.PostContent{
			Body:      "caption",
			MediaURLs: []string{"https://example.com/a.png"},
		})
		require.NoError(err)

		assert.Equal("/v19.0/page-1/photos", gotPath)
		assert.Equal("https://example.com/a.png", gotBody["url"])
		assert.Equal("caption", gotBody["caption"])
		assert.Equal("page_post_2", receipt.PostID)
	})

	t.Run("multiple media fails fast without a call", func(t *testing.T) {
		assert := assert.New(t)

		called := false
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		_, err := client.PublishPost(context.Background(), "page-1", testCredential(), platform.PostContent{
			MediaURLs: []string{"https://example.com/a.png", "https://example.com/b.png"},
		})

		assert.ErrorIs(err, platform.ErrMultiMediaUnsupported)
		assert.False(called)
	})

	t.Run("provider error is surfaced with code and message", func(t *testing.T) {
		assert := assert.New(t)

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{
					"message": "(#4) Application request limit reached",
					"type":    "OAuthException",
					"code":    4,
				},
			})
		}))

		_, err := client.PublishPost(context.Background(), "page-1", testCredential(), platform.PostContent{Body: "hello"})

		var platformErr *platform.PlatformError
		assert.True(errors.As(err, &platformErr))
		assert.Equal(4, platformErr.Code)
		assert.Contains(platformErr.Message, "request limit")
		assert.Equal(http.StatusBadRequest, platformErr.HTTPStatus)
	})
}

func TestSendMessage(t *testing.T) {
	t.Run("text message", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)

		var gotPath string
		var gotBody map[string]interface{}
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			json.NewDecoder(r.Body).Decode(&gotBody)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"messages": []map[string]string{{"id": "wamid.abc"}},
			})
		}))

		payload, err := platform.NewMessagePayload(nil, nil, "hello there")
		require.NoError(err)

		receipt, err := client.SendMessage(context.Background(), "+254712345678", testCredential(), payload)
		require.NoError(err)

		assert.Equal("/v19.0/10987654/messages", gotPath)
		assert.Equal("whatsapp", gotBody["messaging_product"])
		assert.Equal("+254712345678", gotBody["to"])
		assert.Equal("text", gotBody["type"])
		assert.Equal("wamid.abc", receipt.MessageID)
	})

	t.Run("template message carries variables", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)

		var gotBody struct {
			Type     string `json:"type"`
			Template struct {
				Name     string `json:"name"`
				Language struct {
					Code string `json:"code"`
				} `json:"language"`
				Components []struct {
					Type       string `json:"type"`
					Parameters []struct {
						Type string `json:"type"`
						Text string `json:"text"`
					} `json:"parameters"`
				} `json:"components"`
			} `json:"template"`
		}
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&gotBody)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"messages": []map[string]string{{"id": "wamid.tpl"}},
			})
		}))

		payload, err := platform.NewMessagePayload(&platform.TemplateMessage{
			Name:      "order_update",
			Language:  "en_US",
			Variables: []string{"Jane", "42"},
		}, nil, "")
		require.NoError(err)

		_, err = client.SendMessage(context.Background(), "+254712345678", testCredential(), payload)
		require.NoError(err)

		assert.Equal("template", gotBody.Type)
		assert.Equal("order_update", gotBody.Template.Name)
		assert.Equal("en_US", gotBody.Template.Language.Code)
		require.Len(gotBody.Template.Components, 1)
		require.Len(gotBody.Template.Components[0].Parameters, 2)
		assert.Equal("Jane", gotBody.Template.Components[0].Parameters[0].Text)
	})

	t.Run("media kinds map to their request field", func(t *testing.T) {
		for _, tc := range []struct {
			kind string
			want string
		}{
			{kind: "image", want: "image"},
			{kind: "video", want: "video"},
			{kind: "document", want: "document"},
		} {
			t.Run(tc.kind, func(t *testing.T) {
				assert := assert.New(t)
				require := require.New(t)

				var gotBody map[string]interface{}
				client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					json.NewDecoder(r.Body).Decode(&gotBody)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"messages": []map[string]string{{"id": "wamid.media"}},
					})
				}))

				payload, err := platform.NewMessagePayload(nil, &platform.MediaMessage{
					URL:  "https://example.com/f",
					Kind: tc.kind,
				}, "")
				require.NoError(err)

				_, err = client.SendMessage(context.Background(), "+254712345678", testCredential(), payload)
				require.NoError(err)

				assert.Equal(tc.want, gotBody["type"])
				assert.NotNil(gotBody[tc.want])
			})
		}
	})

	t.Run("transport failure is not a platform error", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)

		client := NewClient("http://127.0.0.1:1", "v19.0", 100*time.Millisecond, zap.NewNop())

		payload, err := platform.NewMessagePayload(nil, nil, "hello")
		require.NoError(err)

		_, err = client.SendMessage(context.Background(), "+254712345678", testCredential(), payload)

		var platformErr *platform.PlatformError
		assert.Error(err)
		assert.False(errors.As(err, &platformErr))
	})
}

func TestMirrorCampaignStatus(t *testing.T) {
	assert := assert.New(t)

	var gotPath string
	var gotBody map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))

	err := client.MirrorCampaignStatus(context.Background(), "ext-42", testCredential(), "ACTIVE")

	assert.NoError(err)
	assert.Equal("/v19.0/ext-42", gotPath)
	assert.Equal("ACTIVE", gotBody["status"])
}
