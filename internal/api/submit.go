package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	apierrors "github.com/diogo/agentdeck/internal/errors"
	"github.com/diogo/agentdeck/internal/models"
)

// MaxAttachmentSize caps a single attached file (20MB).
const MaxAttachmentSize = 20 * 1024 * 1024

// Attachment is one file included with a submission. The original filename
// is preserved on the wire.
type Attachment struct {
	Name   string
	Reader io.Reader
}

// AttachmentFromFile stages a file from disk as an attachment.
func AttachmentFromFile(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > MaxAttachmentSize {
		return nil, fmt.Errorf("file size exceeds maximum %d bytes", MaxAttachmentSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return &Attachment{
		Name:   filepath.Base(path),
		Reader: bytes.NewReader(data),
	}, nil
}

// submitPayload is the JSON body used when no attachments are present.
type submitPayload struct {
	Input     string `json:"input"`
	SessionID string `json:"session_id"`
}

// Submit posts one user turn to the agent endpoint and returns the streaming
// response body. Without attachments the body is JSON; with attachments it
// is multipart form data with an `input` field, a `session_id` field and one
// `files` part per attachment. The caller owns the returned body.
func (c *Client) Submit(ctx context.Context, input, sessionID string, files []*Attachment) (io.ReadCloser, error) {
	var body io.Reader
	var contentType string

	if len(files) == 0 {
		payload, err := json.Marshal(submitPayload{Input: input, SessionID: sessionID})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	} else {
		var err error
		body, contentType, err = buildMultipartBody(input, sessionID, files)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+models.EndpointAgent, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, apierrors.NewTransportError("submit", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.errorFromResponse(resp, models.EndpointAgent)
	}

	return resp.Body, nil
}

// buildMultipartBody encodes the turn as multipart form data.
func buildMultipartBody(input, sessionID string, files []*Attachment) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("input", input); err != nil {
		return nil, "", fmt.Errorf("failed to write input field: %w", err)
	}
	if err := writer.WriteField("session_id", sessionID); err != nil {
		return nil, "", fmt.Errorf("failed to write session_id field: %w", err)
	}

	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", fmt.Errorf("failed to write file data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
