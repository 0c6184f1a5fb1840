package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

// APIClient talks to the hub's REST surface for the flows that don't ride the
// socket: backfilling the record list and the delete-on-read cleanup.
type APIClient struct {
	base  string
	token string
	http  *http.Client
}

func NewAPIClient(base, token string) *APIClient {
	return &APIClient{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *APIClient) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}

func (c *APIClient) List(ctx context.Context, userID string) ([]models.Notification, error) {
	u := fmt.Sprintf("%s/api/notifications?userId=%s", c.base, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var notifs []models.Notification
	if err := json.NewDecoder(resp.Body).Decode(&notifs); err != nil {
		return nil, fmt.Errorf("Decoding notification list: %w", err)
	}
	return notifs, nil
}

func (c *APIClient) Delete(ctx context.Context, userID, id string) error {
	u := fmt.Sprintf("%s/api/notifications/%s?userId=%s", c.base, url.PathEscape(id), url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
