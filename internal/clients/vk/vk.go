// Package vk is the VK community bot gateway: long poll for inbound
// messages, messages.send for replies and users.get for display names.
package vk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"hangman_bot/internal/config"
	"hangman_bot/internal/models"

	"github.com/google/uuid"
)

const eventMessageNew = "message_new"

var (
	ErrStatus    = errors.New("unexpected response status")
	ErrEmptyUser = errors.New("user not found")
)

// APIError is an error object returned by a VK API method.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

type Client struct {
	http    *http.Client
	apiURL  string
	token   string
	version string
	groupID int64
	wait    time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	server string
	key    string
	ts     string

	names sync.Map
}

func New(cfg config.Bot, log *slog.Logger) *Client {
	apiURL := cfg.APIURL
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Wait + 10*time.Second},
		apiURL:  apiURL,
		token:   cfg.Token,
		version: cfg.APIVersion,
		groupID: cfg.GroupID,
		wait:    cfg.Wait,
		log:     log,
	}
}

type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

type longPollServer struct {
	Key    string     `json:"key"`
	Server string     `json:"server"`
	TS     pollCursor `json:"ts"`
}

// pollCursor accepts ts both as a JSON string and as a number.
type pollCursor string

func (p *pollCursor) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = ""
		return nil
	}
	*p = pollCursor(strings.Trim(string(b), `"`))
	return nil
}

type pollResponse struct {
	TS      pollCursor `json:"ts"`
	Failed  int        `json:"failed"`
	Updates []update   `json:"updates"`
}

type update struct {
	Type   string `json:"type"`
	Object struct {
		Message struct {
			FromID int64  `json:"from_id"`
			PeerID int64  `json:"peer_id"`
			Text   string `json:"text"`
		} `json:"message"`
	} `json:"object"`
}

type user struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Connect fetches the long poll server, key and starting cursor.
func (c *Client) Connect(ctx context.Context) error {
	const op = "vk.Connect"

	params := url.Values{"group_id": {strconv.FormatInt(c.groupID, 10)}}

	var lp longPollServer
	if err := c.call(ctx, "groups.getLongPollServer", params, &lp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	c.server, c.key, c.ts = lp.Server, lp.Key, string(lp.TS)
	c.mu.Unlock()

	c.log.Info("long poll server received", slog.String("server", lp.Server))

	return nil
}

// Receive waits for the next batch of new messages. An empty batch is
// returned when the wait elapses or the long poll session had to be renewed.
func (c *Client) Receive(ctx context.Context) ([]models.InboundMessage, error) {
	const op = "vk.Receive"

	c.mu.Lock()
	server, key, ts := c.server, c.key, c.ts
	c.mu.Unlock()

	if server == "" {
		if err := c.Connect(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, nil
	}

	query := url.Values{
		"act":  {"a_check"},
		"key":  {key},
		"ts":   {ts},
		"wait": {strconv.Itoa(int(c.wait.Seconds()))},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var resp pollResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch resp.Failed {
	case 0:
	case 1:
		// history is lost, continue from the cursor the server gave
		c.setCursor(string(resp.TS))
		return nil, nil
	default:
		c.log.Warn("long poll session expired", slog.Int("failed", resp.Failed))
		if err := c.Connect(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, nil
	}

	c.setCursor(string(resp.TS))

	messages := make([]models.InboundMessage, 0, len(resp.Updates))
	for _, u := range resp.Updates {
		if u.Type != eventMessageNew {
			continue
		}
		m := u.Object.Message
		messages = append(messages, models.InboundMessage{
			ChannelID: m.PeerID,
			SenderID:  m.FromID,
			Text:      m.Text,
		})
	}

	return messages, nil
}

func (c *Client) Send(ctx context.Context, channelID int64, text string) error {
	const op = "vk.Send"

	params := url.Values{
		"peer_id":   {strconv.FormatInt(channelID, 10)},
		"message":   {text},
		"random_id": {strconv.FormatInt(randomID(), 10)},
	}

	if err := c.call(ctx, "messages.send", params, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DisplayName returns "First Last" for a VK user. Names are cached for the
// life of the client.
func (c *Client) DisplayName(ctx context.Context, userID int64) (string, error) {
	const op = "vk.DisplayName"

	if name, ok := c.names.Load(userID); ok {
		return name.(string), nil
	}

	params := url.Values{
		"user_ids":  {strconv.FormatInt(userID, 10)},
		"name_case": {"nom"},
	}

	var users []user
	if err := c.call(ctx, "users.get", params, &users); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(users) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyUser)
	}

	name := strings.TrimSpace(users[0].FirstName + " " + users[0].LastName)
	c.names.Store(userID, name)

	return name, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("access_token", c.token)
	params.Set("v", c.version)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+method, bytes.NewBufferString(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var env envelope
	if err := c.do(req, &env); err != nil {
		return err
	}
	if env.Error != nil {
		return env.Error
	}
	if out == nil {
		return nil
	}

	return json.Unmarshal(env.Response, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setCursor(ts string) {
	if ts == "" {
		return
	}
	c.mu.Lock()
	c.ts = ts
	c.mu.Unlock()
}

// randomID is the per-message deduplication id messages.send expects.
func randomID() int64 {
	return int64(uuid.New().ID() & 0x7fffffff)
}
