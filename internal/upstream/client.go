// Package upstream implements the HTTP client for the submissions API
// that the console fronts. All calls take a context and are attempted
// exactly once; retry policy belongs to the caller, not this package.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"creatordesk/internal/model"
)

// ErrUnauthorized is returned when the API rejects the bearer token.
var ErrUnauthorized = errors.New("upstream: token rejected")

// APIError is a non-2xx response from the API with a decoded message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("upstream: unexpected status %d", e.StatusCode)
}

// Client talks to the submissions API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at baseURL.
// baseURL must not have a trailing slash.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Credentials are the register/login request payload.
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UploadRequest describes a submission to pass through to the API.
type UploadRequest struct {
	Platform string
	Handle   string
	Files    []UploadFile
}

// UploadFile is a single image part of an upload.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	return c.postJSON(ctx, "/api/users/register", "", creds, nil)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.postJSON(ctx, "/api/users/login", "", creds, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "login response missing token"}
	}
	return out.Token, nil
}

// ListUsers fetches all users with their social handles and images.
func (c *Client) ListUsers(ctx context.Context, token string) ([]model.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/users", token, nil, "")
	if err != nil {
		return nil, err
	}

	var users []model.User
	if err := c.do(req, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user and all their submissions.
func (c *Client) DeleteUser(ctx context.Context, token, userID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/users/"+userID, token, nil, "")
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// DeleteSocialHandle removes one platform's handle from a user.
func (c *Client) DeleteSocialHandle(ctx context.Context, token, userID, platform string) error {
	body := map[string]string{"platform": platform}
	return c.deleteJSON(ctx, "/api/users/"+userID+"/social-handles", token, body)
}

// DeleteImage removes one image from a user by its path.
func (c *Client) DeleteImage(ctx context.Context, token, userID, imagePath string) error {
	body := map[string]string{"imagePath": imagePath}
	return c.deleteJSON(ctx, "/api/users/"+userID+"/images", token, body)
}

// Upload submits a platform handle plus images as multipart form data.
// The request body is streamed through a pipe so large uploads are not
// buffered twice.
func (c *Client) Upload(ctx context.Context, token string, up UploadRequest) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(mw, up)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/users/upload", token, pr, mw.FormDataContentType())
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func writeUploadForm(mw *multipart.Writer, up UploadRequest) error {
	if err := mw.WriteField("platform", up.Platform); err != nil {
		return err
	}
	if err := mw.WriteField("handle", up.Handle); err != nil {
		return err
	}
	for _, f := range up.Files {
		part, err := mw.CreateFormFile("images", f.Name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return err
		}
	}
	return nil
}

// postJSON sends a JSON POST and optionally decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path, token string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("upstream: encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, token, bytes.NewReader(data), "application/json")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// deleteJSON sends a DELETE with a JSON body.
func (c *Client) deleteJSON(ctx context.Context, path, token string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("upstream: encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodDelete, path, token, bytes.NewReader(data), "application/json")
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes the request and decodes a successful JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: decodeErrorMessage(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("upstream: decode response: %w", err)
		}
	}
	return nil
}

// decodeErrorMessage pulls a human readable message out of an error
// response body. The API uses both "error" and "message" fields.
func decodeErrorMessage(r io.Reader) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
