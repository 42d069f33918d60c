// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package companion talks to the retrieval-augmented companion backend:
// it issues the chat request, classifies the response as streaming or JSON
// fallback, and decodes the SSE answer stream frame by frame.
package companion

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/companion-tui/internal/model"
)

// visitorHeader carries the anonymous rate-limit correlation id.
const visitorHeader = "X-Visitor-Id"

// PERFORMANCE: Shared streaming client with connection pooling. No overall
// timeout: an answer stream stays open as long as the server keeps
// generating, and cancellation comes from the request context.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 0,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// statusClient serves the small side endpoints where a hung request should
// fail fast rather than stall startup.
var statusClient = &http.Client{
	Timeout: 10 * time.Second,
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is the companion backend API client.
type Client struct {
	mu        sync.RWMutex
	baseURL   string
	visitorID string
	language  string
}

// NewClient creates a client for the given backend. language is validated
// through NormalizeLanguage.
func NewClient(baseURL, visitorID, language string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		visitorID: visitorID,
		language:  NormalizeLanguage(language),
	}
}

// SetLanguage switches the active language for subsequent requests.
func (c *Client) SetLanguage(language string) {
	c.mu.Lock()
	c.language = NormalizeLanguage(language)
	c.mu.Unlock()
}

// Language returns the active language tag.
func (c *Client) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// =============================================================================
// ERRORS
// =============================================================================

// APIError is a non-2xx backend response. Message carries the server's
// user-visible error text when the body provided one.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("companion API error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("companion API error (%d)", e.Status)
}

// decodeAPIError builds an APIError from a non-2xx response body.
func decodeAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &APIError{Status: status, Message: payload.Message}
	}
	return &APIError{Status: status}
}

// =============================================================================
// CHAT REQUEST
// =============================================================================

// chatRequest is the POST /companion body.
type chatRequest struct {
	Message  string                 `json:"message"`
	History  []model.HistoryMessage `json:"history"`
	Language string                 `json:"language"`
}

// Fallback is the non-streaming JSON response shape. It folds into the
// same accumulator as a stream, in one step.
type Fallback struct {
	Content   string            `json:"content"`
	Sources   []model.Source    `json:"sources,omitempty"`
	Remaining *int              `json:"remaining,omitempty"`
	Debug     []model.DebugStep `json:"debug,omitempty"`
	FollowUps []string          `json:"follow_ups,omitempty"`
}

// Response is a classified answer to Send. Exactly one of Body (streaming)
// or Fallback (JSON) is set. The caller owns Body and must close it.
type Response struct {
	Streaming bool
	Body      io.ReadCloser
	Fallback  *Fallback
}

// Send posts the user message with its trimmed history tail. The response
// is either an SSE stream or a complete JSON fallback; non-2xx statuses
// come back as *APIError.
func (c *Client) Send(ctx context.Context, message string, history []model.HistoryMessage) (*Response, error) {
	c.mu.RLock()
	baseURL, visitorID, language := c.baseURL, c.visitorID, c.language
	c.mu.RUnlock()

	if history == nil {
		history = []model.HistoryMessage{}
	}
	bodyBytes, err := json.Marshal(chatRequest{
		Message:  message,
		History:  history,
		Language: language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/companion", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(visitorHeader, visitorID)

	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "text/event-stream") {
		return &Response{Streaming: true, Body: resp.Body}, nil
	}

	defer resp.Body.Close()
	var fb Fallback
	if err := json.NewDecoder(resp.Body).Decode(&fb); err != nil {
		return nil, fmt.Errorf("failed to decode fallback response: %w", err)
	}
	return &Response{Fallback: &fb}, nil
}

// =============================================================================
// SIDE ENDPOINTS
// =============================================================================

// StatusInfo is the rate-limit status reported by the backend.
type StatusInfo struct {
	Remaining     int  `json:"remaining"`
	Limit         int  `json:"limit"`
	Authenticated bool `json:"authenticated"`
}

// Status fetches the current rate-limit counter. Used once at session
// start to prime the UI; the stream keeps it current afterwards.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	c.mu.RLock()
	baseURL, visitorID := c.baseURL, c.visitorID
	c.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/companion/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(visitorHeader, visitorID)

	resp, err := statusClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var info StatusInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &info, nil
}

// Suggestions fetches starter questions for the empty-conversation view.
func (c *Client) Suggestions(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	baseURL, language := c.baseURL, c.language
	c.mu.RUnlock()

	url := baseURL + "/assistant/suggestions?language=" + language
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := statusClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suggestions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var payload struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	return payload.Suggestions, nil
}
