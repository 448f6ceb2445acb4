package supervisionclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
	"github.com/zapsales/supervision-api/internal/domain/triage"
	"github.com/zapsales/supervision-api/internal/infrastructure/cache"
	"github.com/zapsales/supervision-api/internal/utils/platformerrors"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultCountsTTL = 15 * time.Second
	DefaultDetailTTL = 30 * time.Second
)

// Client reads the supervision API through a cache that live updates invalidate.
type Client struct {
	http      *resty.Client
	cache     cache.Cache
	countsTTL time.Duration
	detailTTL time.Duration
	log       zerolog.Logger
}

type Option func(*Client)

// WithTTL overrides how long counts and details stay cached.
func WithTTL(counts, detail time.Duration) Option {
	return func(c *Client) {
		c.countsTTL = counts
		c.detailTTL = detail
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// New returns a client for baseURL. A nil cache disables caching.
func New(baseURL string, store cache.Cache, log zerolog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("supervision api url is required")
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("User-Agent", "supervise/1.0").
			SetTimeout(DefaultTimeout),
		cache:     store,
		countsTTL: DefaultCountsTTL,
		detailTTL: DefaultDetailTTL,
		log:       log.With().Str("client", "supervision-api").Logger(),
	}
	c.http.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		c.log.Debug().
			Int("status", r.StatusCode()).
			Str("method", r.Request.Method).
			Str("url", r.Request.URL).
			Dur("latency", r.Time()).
			Msg("HTTP client request")
		return nil
	})
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Cache is the store live updates should invalidate.
func (c *Client) Cache() cache.Cache {
	return c.cache
}

// TabCounts returns the counts for instanceID; "" means every instance.
func (c *Client) TabCounts(ctx context.Context, instanceID string) (*triage.TabCounts, error) {
	return cache.ReadThrough(ctx, c.cache, liveupdate.TabCountsKey(instanceID), c.countsTTL,
		func(ctx context.Context) (*triage.TabCounts, error) {
			var counts triage.TabCounts
			req := c.http.R().SetContext(ctx).SetResult(&counts)
			if instanceID != "" {
				req.SetQueryParam("instance_id", instanceID)
			}
			resp, err := req.Get("/v1/conversations/tab-counts")
			if err := checkResponse(resp, err, "tab counts"); err != nil {
				return nil, err
			}
			return &counts, nil
		})
}

// Detail returns one conversation; conversation.ErrNotFound when absent.
func (c *Client) Detail(ctx context.Context, conversationID string) (*triage.Detail, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, errors.New("conversation id is required")
	}
	return cache.ReadThrough(ctx, c.cache, liveupdate.DetailKey(conversationID), c.detailTTL,
		func(ctx context.Context) (*triage.Detail, error) {
			var detail triage.Detail
			resp, err := c.http.R().
				SetContext(ctx).
				SetResult(&detail).
				Get("/v1/conversations/" + url.PathEscape(conversationID))
			if err := checkResponse(resp, err, "conversation detail"); err != nil {
				return nil, err
			}
			return &detail, nil
		})
}

// PublishEvent posts a live event for a conversation.
func (c *Client) PublishEvent(ctx context.Context, conversationID string, event liveupdate.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post("/v1/conversations/" + url.PathEscape(conversationID) + "/events")
	return checkResponse(resp, err, "publish event")
}

func checkResponse(resp *resty.Response, err error, what string) error {
	if err != nil {
		return fmt.Errorf("%s request failed: %w", what, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return conversation.ErrNotFound
	}
	if resp.IsError() {
		var body platformerrors.HTTPErrorResponse
		if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr == nil && body.Error != nil && body.Error.Message != "" {
			return fmt.Errorf("%s error (%d): %s", what, resp.StatusCode(), body.Error.Message)
		}
		return fmt.Errorf("%s error (%d): %s", what, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}
