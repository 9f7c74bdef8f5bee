// Package client talks to the settings API over HTTP and WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"path"
	"strings"
	"time"

	"product-studio/internal/shared/logger"
	"product-studio/internal/shared/utils"
	"product-studio/internal/studio/shell"

	"github.com/gofiber/fiber/v2"
)

// DefaultTimeout bounds every request; uploads of large models need the headroom
const DefaultTimeout = 2 * time.Minute

// SessionIDHeader carries the studio session id taken from the request context
const SessionIDHeader = "X-Studio-Session"

// ErrRelativeBaseURL is returned for base URLs that only make sense inside a browser
var ErrRelativeBaseURL = errors.New("base URL must be absolute")

// APIError is a non-2xx response from the settings API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// ServerMessage returns the server's error text
func (e *APIError) ServerMessage() string {
	return e.Message
}

// Client is the settings API client. It implements shell.Backend.
type Client struct {
	baseURL string
	timeout time.Duration
	log     logger.Logger
}

var _ shell.Backend = (*Client)(nil)

// New creates a client for the API rooted at baseURL, e.g. http://localhost:5000/api
func New(baseURL string, log logger.Logger) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("%w: %q", ErrRelativeBaseURL, baseURL)
	}
	return &Client{
		baseURL: baseURL,
		timeout: DefaultTimeout,
		log:     log.WithComponent("studio-client"),
	}, nil
}

// WithTimeout returns a copy of the client using timeout for every request
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	cp := *c
	cp.timeout = timeout
	return &cp
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload posts a model file as multipart field "model" and returns its data URI
func (c *Client) Upload(ctx context.Context, fileName, mimeType string, data []byte) (string, error) {
	if mimeType == "" {
		mimeType = MimeTypeFor(fileName)
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="model"; filename=%q`, path.Base(fileName)))
	h.Set(fiber.HeaderContentType, mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	agent := fiber.Post(c.baseURL + "/upload").
		ContentType(w.FormDataContentType()).
		Body(body.Bytes())

	var resp uploadResponse
	if err := c.do(ctx, agent, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", errors.New("upload response carried no url")
	}
	c.log.Debugf("Uploaded %s (%d bytes)", fileName, len(data))
	return resp.URL, nil
}

// Save posts the settings as a new snapshot
func (c *Client) Save(ctx context.Context, settings shell.SettingsPayload) error {
	agent := fiber.Post(c.baseURL + "/settings").JSON(settings)
	return c.do(ctx, agent, nil)
}

// Latest fetches the most recent snapshot; nil means nothing has been saved
func (c *Client) Latest(ctx context.Context) (*shell.SettingsPayload, error) {
	var raw map[string]json.RawMessage
	if err := c.do(ctx, fiber.Get(c.baseURL+"/settings"), &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var payload shell.SettingsPayload
	for field, target := range map[string]interface{}{
		"modelUrl":        &payload.ModelURL,
		"backgroundColor": &payload.BackgroundColor,
		"isWireframe":     &payload.IsWireframe,
	} {
		if v, ok := raw[field]; ok {
			if err := json.Unmarshal(v, target); err != nil {
				return nil, fmt.Errorf("decode %s: %w", field, err)
			}
		}
	}
	return &payload, nil
}

// do sends the request and decodes a 2xx JSON body into out when out is non-nil
func (c *Client) do(ctx context.Context, agent *fiber.Agent, out interface{}) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	agent.Timeout(timeout)
	if sessionID, err := utils.GetSessionIDFromContext(ctx); err == nil {
		agent.Set(SessionIDHeader, sessionID)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request failed: %w", errs[0])
	}

	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return &APIError{Status: status, Message: errorMessage(status, body)}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage prefers the server's "error" field, then "message", then the raw body
func errorMessage(status int, body []byte) string {
	var payload struct {
		Error   interface{} `json:"error"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Error.(string); ok && s != "" {
			return s
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

// MimeTypeFor guesses a model MIME type from the file extension
func MimeTypeFor(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".glb":
		return "model/gltf-binary"
	case ".gltf":
		return "model/gltf+json"
	case ".obj":
		return "model/obj"
	case ".stl":
		return "model/stl"
	}
	return "application/octet-stream"
}
