// Package chatclient is a small HTTP client for the lobby chat API. It covers
// the message and channel endpoints and can follow a channel either over the
// server-sent event stream or, when streaming is unavailable, by polling.
package chatclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPollInterval = 3 * time.Second
	headerUserID        = "x-user-id"
	headerUserName      = "x-user-name"
)

// Message is the wire representation of a chat message.
type Message struct {
	ID                string                 `json:"id"`
	ChannelID         string                 `json:"channelId"`
	ChannelType       string                 `json:"channelType"`
	SenderID          string                 `json:"senderId"`
	SenderDisplayName string                 `json:"senderDisplayName,omitempty"`
	Body              string                 `json:"body"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// Channel describes a channel the caller can read.
type Channel struct {
	ChannelID   string                 `json:"channelId"`
	ChannelType string                 `json:"channelType"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// SendOptions describes an outgoing message. ChannelType selects the
// addressing mode; Scope, ParticipantIDs and GameID qualify it.
type SendOptions struct {
	ChannelType       string                 `json:"channelType"`
	Body              string                 `json:"body"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	SenderDisplayName string                 `json:"senderDisplayName,omitempty"`
	Scope             string                 `json:"scope,omitempty"`
	ParticipantIDs    []string               `json:"participantIds,omitempty"`
	GameID            string                 `json:"gameId,omitempty"`
}

// Query addresses a channel for history fetches.
type Query struct {
	ChannelID      string
	ChannelType    string
	Scope          string
	ParticipantIDs []string
	GameID         string
	Limit          int
}

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat api: %s (status %d)", e.Message, e.Status)
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	UserID       string
	UserName     string
	HTTPClient   *http.Client
	PollInterval time.Duration
}

// Client talks to the lobby chat API on behalf of a single user.
type Client struct {
	baseURL      string
	userID       string
	userName     string
	http         *http.Client
	stream       *http.Client
	pollInterval time.Duration
}

// New creates a client. Options.BaseURL and Options.UserID are required.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if opts.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	// The stream connection stays open indefinitely, so it must not share
	// the request client's timeout.
	streamClient := &http.Client{Transport: httpClient.Transport}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		userID:       opts.UserID,
		userName:     opts.UserName,
		http:         httpClient,
		stream:       streamClient,
		pollInterval: pollInterval,
	}, nil
}

// FetchMessages returns recent history for the addressed channel in ascending
// chronological order.
func (c *Client) FetchMessages(ctx context.Context, query Query) ([]Message, error) {
	values := url.Values{}
	if query.ChannelID != "" {
		values.Set("channelId", query.ChannelID)
	}
	if query.ChannelType != "" {
		values.Set("channelType", query.ChannelType)
	}
	if query.Scope != "" {
		values.Set("scope", query.Scope)
	}
	if len(query.ParticipantIDs) > 0 {
		values.Set("participantIds", strings.Join(query.ParticipantIDs, ","))
	}
	if query.GameID != "" {
		values.Set("gameId", query.GameID)
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}

	var payload struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/messages?"+values.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Messages, nil
}

// FetchMessagesByID returns recent history for a canonical channel id.
func (c *Client) FetchMessagesByID(ctx context.Context, channelID string, limit int) ([]Message, error) {
	return c.FetchMessages(ctx, Query{ChannelID: channelID, Limit: limit})
}

// ListChannels returns the channels visible to this user.
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	var payload struct {
		Channels []Channel `json:"channels"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/channels", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Channels, nil
}

// SendMessage posts a message and returns the stored record.
func (c *Client) SendMessage(ctx context.Context, opts SendOptions) (Message, error) {
	var payload struct {
		Message Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat/messages", opts, &payload); err != nil {
		return Message{}, err
	}
	return payload.Message, nil
}

// Subscribe follows a channel and invokes handler for each new message. It
// prefers the event stream and falls back to polling when the stream cannot
// be established or ends before ctx is cancelled. Polling never replays
// channel history: only messages newer than the subscription baseline are
// delivered. Subscribe blocks until ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, channelID string, handler func(Message)) error {
	if channelID == "" {
		return fmt.Errorf("channel id is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	seen := make(map[string]struct{})
	var lastSeen time.Time

	deliver := func(message Message) {
		if message.ID != "" {
			if _, dup := seen[message.ID]; dup {
				return
			}
			seen[message.ID] = struct{}{}
		}
		if message.CreatedAt.After(lastSeen) {
			lastSeen = message.CreatedAt
		}
		handler(message)
	}

	// A stream that cannot connect or that ends before ctx is cancelled is a
	// push failure either way; polling takes over from there.
	_ = c.streamChannel(ctx, channelID, deliver)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return c.pollChannel(ctx, channelID, &lastSeen, seen, handler)
}

func (c *Client) streamChannel(ctx context.Context, channelID string, deliver func(Message)) error {
	values := url.Values{}
	values.Set("channelId", channelID)
	values.Set("userId", c.userID)
	if c.userName != "" {
		values.Set("userName", c.userName)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chat/stream?"+values.Encode(), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.readError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var message Message
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &message); err != nil {
			continue
		}
		deliver(message)
	}
	return scanner.Err()
}

func (c *Client) pollChannel(ctx context.Context, channelID string, lastSeen *time.Time, seen map[string]struct{}, handler func(Message)) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	// Without a baseline the first fetch is channel history, not news: it is
	// recorded and swallowed, and only strictly newer messages are emitted
	// afterwards. Messages seen on the stream before it died already form a
	// baseline.
	baseline := !lastSeen.IsZero() || len(seen) > 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			messages, err := c.FetchMessagesByID(ctx, channelID, 50)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			if !baseline {
				for _, message := range messages {
					seen[message.ID] = struct{}{}
					if message.CreatedAt.After(*lastSeen) {
						*lastSeen = message.CreatedAt
					}
				}
				baseline = true
				continue
			}
			for _, message := range messages {
				if _, dup := seen[message.ID]; dup {
					continue
				}
				if !lastSeen.IsZero() && !message.CreatedAt.After(*lastSeen) {
					continue
				}
				seen[message.ID] = struct{}{}
				if message.CreatedAt.After(*lastSeen) {
					*lastSeen = message.CreatedAt
				}
				handler(message)
			}
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.readError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set(headerUserID, c.userID)
	if c.userName != "" {
		req.Header.Set(headerUserName, c.userName)
	}
}

func (c *Client) readError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var payload struct {
		Message string `json:"message"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}
