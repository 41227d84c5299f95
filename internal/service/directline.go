package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/set-night/shopassist/internal/config"
	"github.com/set-night/shopassist/internal/domain"
)

// Transport is the subset of the Direct Line protocol the session manager needs.
type Transport interface {
	FetchToken(ctx context.Context) (string, error)
	CreateConversation(ctx context.Context, token string) (string, error)
	PostActivity(ctx context.Context, token, conversationID string, activity domain.Activity) error
	GetActivities(ctx context.Context, token, conversationID, watermark string) (*ActivitySet, error)
}

type ActivitySet struct {
	Activities []domain.Activity `json:"activities"`
	Watermark  string            `json:"watermark"`
}

type DirectLineClient struct {
	baseURL    string
	tokenURL   string
	httpClient *http.Client
}

func NewDirectLineClient(baseURL, tokenURL string) *DirectLineClient {
	return &DirectLineClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokenURL:   tokenURL,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
	}
}

func (c *DirectLineClient) FetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	var result struct {
		Token string `json:"token"`
	}
	if err := c.do(req, &result); err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("fetch token: empty token in response")
	}
	return result.Token, nil
}

func (c *DirectLineClient) CreateConversation(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/conversations", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var result struct {
		ConversationID string `json:"conversationId"`
	}
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	if result.ConversationID == "" {
		return "", fmt.Errorf("empty conversationId in response")
	}
	return result.ConversationID, nil
}

func (c *DirectLineClient) PostActivity(ctx context.Context, token, conversationID string, activity domain.Activity) error {
	payload, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.activitiesURL(conversationID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return c.do(req, nil)
}

func (c *DirectLineClient) GetActivities(ctx context.Context, token, conversationID, watermark string) (*ActivitySet, error) {
	u := c.activitiesURL(conversationID)
	if watermark != "" {
		u += "?watermark=" + url.QueryEscape(watermark)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var set ActivitySet
	if err := c.do(req, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *DirectLineClient) activitiesURL(conversationID string) string {
	return c.baseURL + "/conversations/" + url.PathEscape(conversationID) + "/activities"
}

// do sends req, fails on non-2xx with status and body, and decodes into out when non-nil.
func (c *DirectLineClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("directline api error: %s body=%s", resp.Status, strings.TrimSpace(string(body)))
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
