package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const userAgent = "reelvault/0.1.0"

// Client calls the Telegram Bot API.
type Client struct {
	token          string
	baseURL        string
	requestTimeout time.Duration
	httpClient     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRequestTimeout bounds every call except long polls, which add their poll
// timeout on top.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.requestTimeout = timeout
		}
	}
}

// New creates a Bot API client.
func New(token, baseURL string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram bot token required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("telegram base url required")
	}
	client := &Client{
		token:          token,
		baseURL:        strings.TrimRight(baseURL, "/"),
		requestTimeout: 15 * time.Second,
		httpClient:     &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// GetMe returns the bot identity; useful as a credentials check.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, "getMe", struct{}{}, &user, c.requestTimeout); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetChat returns chat metadata; it fails when the bot cannot see the chat.
func (c *Client) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	var chat Chat
	if err := c.call(ctx, "getChat", getChatRequest{ChatID: chatID}, &chat, c.requestTimeout); err != nil {
		return nil, err
	}
	return &chat, nil
}

// CopyMessage duplicates a message into toChatID and returns the new message id.
func (c *Client) CopyMessage(ctx context.Context, toChatID, fromChatID, msgID int64, caption string) (int64, error) {
	var out messageID
	req := copyMessageRequest{ChatID: toChatID, FromChatID: fromChatID, MessageID: msgID, Caption: caption}
	if err := c.call(ctx, "copyMessage", req, &out, c.requestTimeout); err != nil {
		return 0, err
	}
	return out.MessageID, nil
}

// SendVideo posts a video by file_id into chatID.
func (c *Client) SendVideo(ctx context.Context, chatID int64, fileID, caption string) (*Message, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, errors.New("file id must not be empty")
	}
	var msg Message
	req := sendVideoRequest{ChatID: chatID, Video: fileID, Caption: caption}
	if err := c.call(ctx, "sendVideo", req, &msg, c.requestTimeout); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetFile resolves a file_id into downloadable file metadata.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, errors.New("file id must not be empty")
	}
	var file File
	if err := c.call(ctx, "getFile", getFileRequest{FileID: fileID}, &file, c.requestTimeout); err != nil {
		return nil, err
	}
	return &file, nil
}

// GetUpdates long polls for updates after offset. allowed narrows the update
// types Telegram delivers.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration, allowed []string) ([]Update, error) {
	seconds := int(timeout / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	var updates []Update
	req := getUpdatesRequest{Offset: offset, Timeout: seconds, AllowedUpdates: allowed}
	if err := c.call(ctx, "getUpdates", req, &updates, c.requestTimeout+timeout); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, params any, out any, timeout time.Duration) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	endpoint := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("telegram %s (latency=%v): %w", method, latency, redact(err, c.token))
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode telegram %s response (status=%d latency=%v): %w", method, resp.StatusCode, latency, err)
	}
	if !env.OK {
		apiErr := &APIError{Method: method, Code: env.ErrorCode, Description: env.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if env.Parameters != nil {
			apiErr.RetryAfter = env.Parameters.RetryAfter
		}
		return apiErr
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode telegram %s result: %w", method, err)
	}
	return nil
}

// redact strips the bot token from transport errors, which embed the request URL.
func redact(err error, token string) error {
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(msg, token, "<token>"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
