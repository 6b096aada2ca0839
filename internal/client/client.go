// Package client talks to the mediation HTTP API on behalf of a terminal user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mindful-resolve/internal/viewstate"
)

// APIError is a non-2xx answer that maps to no viewstate sentinel.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sessionView struct {
	SessionCode  string `json:"session_code"`
	Partner1Name string `json:"partner1_name"`
	HasPartner2  bool   `json:"has_partner2"`
	Solution     string `json:"solution"`
}

type sessionTokenResponse struct {
	Session sessionView `json:"session"`
	Token   string      `json:"token"`
}

func (c *Client) CheckJoin(ctx context.Context, code string) (string, error) {
	var out struct {
		Partner1Name string `json:"partner1_name"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/sessions/join", "", map[string]string{"session_code": code}, &out, viewstate.ErrAlreadyComplete)
	if err != nil {
		return "", err
	}
	return out.Partner1Name, nil
}

func (c *Client) CreateSession(ctx context.Context, code, name, perspective string) (string, string, error) {
	var out sessionTokenResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/sessions", "", map[string]string{
		"session_code": code,
		"partner_name": name,
		"perspective":  perspective,
	}, &out, viewstate.ErrCodeTaken)
	if err != nil {
		return "", "", err
	}
	return out.Session.SessionCode, out.Token, nil
}

func (c *Client) SubmitPartner2(ctx context.Context, code, name, perspective string) (string, error) {
	var out sessionTokenResponse
	path := "/api/v1/sessions/" + url.PathEscape(code) + "/partner2"
	err := c.do(ctx, http.MethodPost, path, "", map[string]string{
		"partner_name": name,
		"perspective":  perspective,
	}, &out, viewstate.ErrAlreadyComplete)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) FetchSession(ctx context.Context, code, token string) (viewstate.Snapshot, error) {
	var out sessionView
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(code), token, nil, &out, nil); err != nil {
		return viewstate.Snapshot{}, err
	}
	return viewstate.Snapshot{
		Code:         out.SessionCode,
		Partner1Name: out.Partner1Name,
		HasPartner2:  out.HasPartner2,
		Solution:     out.Solution,
	}, nil
}

func (c *Client) RequestSolution(ctx context.Context, code, token string) (string, error) {
	var out struct {
		Solution string `json:"solution"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/solutions", token, map[string]string{"sessionCode": code}, &out, viewstate.ErrInProgress)
	if err != nil {
		return "", err
	}
	return out.Solution, nil
}

// do sends one JSON request. A 404 becomes viewstate.ErrNotFound and a 409
// becomes conflictErr when that is set.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}, conflictErr error) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request failed: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", viewstate.ErrNotFound, apiErr.Error)
		case resp.StatusCode == http.StatusConflict && conflictErr != nil:
			return fmt.Errorf("%w: %s", conflictErr, apiErr.Error)
		default:
			return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response failed: %w", err)
	}
	return nil
}
