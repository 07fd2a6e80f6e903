package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is a non-success HTTP response from the CI feed
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response: %d %s", e.Code, e.Body)
}

// Client talks to the GitHub Actions REST API
type Client struct {
	http  *http.Client
	token string
}

// NewClient creates an API client authenticating with token
func NewClient(token string) *Client {
	return &Client{
		http:  &http.Client{},
		token: token,
	}
}

// AuthHeader returns the Authorization header value used for API calls.
// The same header is needed by the remote host to download artifacts.
func (c *Client) AuthHeader() string {
	return "token " + c.token
}

// Runs fetches one page of workflow runs from url and returns the runs
// together with the URL of the next page, if any
func (c *Client) Runs(ctx context.Context, url string) ([]Run, string, error) {
	var page struct {
		WorkflowRuns []Run `json:"workflow_runs"`
	}

	next, err := c.getJSON(ctx, url, &page)
	if err != nil {
		return nil, "", err
	}

	return page.WorkflowRuns, next, nil
}

// Artifacts fetches the artifact listing of a run
func (c *Client) Artifacts(ctx context.Context, url string) ([]Artifact, error) {
	var listing struct {
		Artifacts []Artifact `json:"artifacts"`
	}

	if _, err := c.getJSON(ctx, url, &listing); err != nil {
		return nil, err
	}

	return listing.Artifacts, nil
}

// getJSON performs an authenticated GET, decodes the body into v and
// returns the rel="next" pagination link, if present
func (c *Client) getJSON(ctx context.Context, url string, v any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", c.AuthHeader())
	req.Header.Set("Accept", "application/vnd.github+json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<22)) // 4 MB limit
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return "", &StatusError{Code: res.StatusCode, Body: truncate(string(body), 200)}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return nextLink(res.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" URL from an RFC 5988 Link header
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}

		url := strings.Trim(strings.TrimSpace(section[0]), "<>")
		for _, param := range section[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return url
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
