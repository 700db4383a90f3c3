// Package members is the HTTP client for the external user and membership
// service. Both resolvers are optional collaborators of the scheduler:
// when no client is configured, requesters fall back to the lowest waitlist
// tier and user existence is not checked.
package members

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type memberRecord struct {
	MemberID int64 `json:"member_id"`
	VIP      bool  `json:"vip"`
}

// Exists reports whether the user service knows the requester.
func (c *Client) Exists(ctx context.Context, userID int64) (bool, error) {
	status, err := c.get(ctx, fmt.Sprintf("%s/internal/users/%d", c.baseURL, userID), nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("user lookup: unexpected status %d", status)
	}
}

// MemberIDFor maps a requester to a membership id; ok is false when the
// requester is not a member.
func (c *Client) MemberIDFor(ctx context.Context, userID int64) (int64, bool, error) {
	var record memberRecord
	status, err := c.get(ctx, fmt.Sprintf("%s/internal/members/by-user/%d", c.baseURL, userID), &record)
	if err != nil {
		return 0, false, err
	}
	switch status {
	case http.StatusOK:
		return record.MemberID, true, nil
	case http.StatusNotFound:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("member lookup: unexpected status %d", status)
	}
}

// IsMember reports whether the requester holds a membership.
func (c *Client) IsMember(ctx context.Context, userID int64) (bool, error) {
	_, ok, err := c.MemberIDFor(ctx, userID)
	return ok, err
}

// VIPStatus reports the member's VIP flag.
func (c *Client) VIPStatus(ctx context.Context, memberID int64) (bool, error) {
	var record memberRecord
	status, err := c.get(ctx, fmt.Sprintf("%s/internal/members/%d", c.baseURL, memberID), &record)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return record.VIP, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("vip lookup: unexpected status %d", status)
	}
}

// get issues the request and decodes a 200 body into dst when dst is
// non-nil. Non-2xx statuses are returned to the caller to interpret.
func (c *Client) get(ctx context.Context, url string, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && dst != nil {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
		}
		if err := json.Unmarshal(body, dst); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
