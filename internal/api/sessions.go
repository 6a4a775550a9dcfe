package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	apierrors "github.com/diogo/agentdeck/internal/errors"
	"github.com/diogo/agentdeck/internal/models"
)

// Sessions lists the backend's chat sessions, newest first.
func (c *Client) Sessions(ctx context.Context) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	if err := c.getJSON(ctx, models.EndpointSessions, &sessions); err != nil {
		return nil, err
	}

	// Backend order is insertion order; the sidebar wants newest first.
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID > sessions[j].ID
	})
	return sessions, nil
}

// Messages fetches the stored transcript of one session.
func (c *Client) Messages(ctx context.Context, sessionID string) ([]models.Message, error) {
	endpoint := models.EndpointMessages + "?session_id=" + url.QueryEscape(sessionID)
	var messages []models.Message
	if err := c.getJSON(ctx, endpoint, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Files lists the files the backend holds for one session.
func (c *Client) Files(ctx context.Context, sessionID string) ([]models.SessionFile, error) {
	endpoint := models.EndpointFiles + "?session_id=" + url.QueryEscape(sessionID)
	var files []models.SessionFile
	if err := c.getJSON(ctx, endpoint, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// DeleteSession removes a session by id.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	endpoint := models.EndpointDeleteSession + "?session_id=" + url.QueryEscape(sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierrors.NewTransportError("DELETE "+endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(resp, models.EndpointDeleteSession)
	}
	return nil
}

// LatestSessionID returns the highest session id the backend knows, or 0
// when no sessions exist.
func (c *Client) LatestSessionID(ctx context.Context) (int, error) {
	sessions, err := c.Sessions(ctx)
	if err != nil {
		return 0, err
	}

	latest := 0
	for _, s := range sessions {
		if s.ID > latest {
			latest = s.ID
		}
	}
	return latest, nil
}

// NextSessionID picks the id for a fresh chat. The backend does not hand out
// session ids, so the client has to derive one; the increment lives here and
// nowhere else. This races with concurrent session creation; ideally the
// backend would allocate the id on first submit.
func (c *Client) NextSessionID(ctx context.Context) (string, error) {
	latest, err := c.LatestSessionID(ctx)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(latest + 1), nil
}

// healthResponse is the backend health check reply.
type healthResponse struct {
	Status string `json:"status"`
}

// Health probes the backend. A reachable backend reporting anything other
// than "ok" counts as unavailable.
func (c *Client) Health(ctx context.Context) error {
	var health healthResponse
	if err := c.getJSON(ctx, models.EndpointHealth, &health); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrBackendUnavailable, err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("%w: status %q", apierrors.ErrBackendUnavailable, health.Status)
	}
	return nil
}
