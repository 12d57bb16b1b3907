package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/swapstay/swapsync/internal/models"
	apperrors "github.com/swapstay/swapsync/pkg/errors"
)

// NotificationPage is one page of the server-side notification history.
type NotificationPage struct {
	Items      []models.Notification `json:"items"`
	NextCursor string                `json:"next_cursor"`
	HasMore    bool                  `json:"has_more"`
}

// Client is the boundary to the marketplace REST backend. The sync core only
// depends on this interface; transport details (HTTP, GraphQL) stay behind it.
type Client interface {
	FetchProposal(ctx context.Context, id string) (*models.ProposalState, error)
	FetchCompletion(ctx context.Context, swapID string) (*models.CompletionStatus, error)
	FetchNotificationPage(ctx context.Context, cursor string, limit int) (*NotificationPage, error)
	PollEvents(ctx context.Context, since time.Time) ([]models.StreamEvent, error)
}

// HTTPClient implements Client against the marketplace JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a marketplace API client.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchProposal returns the authoritative state of a swap proposal.
func (c *HTTPClient) FetchProposal(ctx context.Context, id string) (*models.ProposalState, error) {
	var proposal models.ProposalState
	if err := c.get(ctx, "/api/proposals/"+url.PathEscape(id), &proposal); err != nil {
		return nil, fmt.Errorf("backend.FetchProposal: %w", err)
	}
	return &proposal, nil
}

// FetchCompletion returns the authoritative completion status of a swap.
func (c *HTTPClient) FetchCompletion(ctx context.Context, swapID string) (*models.CompletionStatus, error) {
	var completion models.CompletionStatus
	if err := c.get(ctx, "/api/swaps/"+url.PathEscape(swapID)+"/completion", &completion); err != nil {
		return nil, fmt.Errorf("backend.FetchCompletion: %w", err)
	}
	return &completion, nil
}

// FetchNotificationPage returns one page of notification history.
func (c *HTTPClient) FetchNotificationPage(ctx context.Context, cursor string, limit int) (*NotificationPage, error) {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var page NotificationPage
	if err := c.get(ctx, "/api/notifications?"+params.Encode(), &page); err != nil {
		return nil, fmt.Errorf("backend.FetchNotificationPage: %w", err)
	}
	return &page, nil
}

// PollEvents returns events that occurred after the supplied cursor time.
// Used by the connection manager's fallback polling mode.
func (c *HTTPClient) PollEvents(ctx context.Context, since time.Time) ([]models.StreamEvent, error) {
	params := url.Values{}
	if !since.IsZero() {
		params.Set("since", since.UTC().Format(time.RFC3339Nano))
	}

	var payload struct {
		Events []models.StreamEvent `json:"events"`
	}
	if err := c.get(ctx, "/api/events?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("backend.PollEvents: %w", err)
	}
	return payload.Events, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.ErrFetchFailed.WithInternal(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.ErrFetchFailed.WithInternal(
			fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.ErrFetchFailed.WithInternal(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
