package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultAPIURL = "https://api.telegram.org"

// ParseModeHTML enables HTML entities in message text.
const ParseModeHTML = "HTML"

var ErrAPI = errors.New("telegram api error")

// Client calls the Telegram Bot API. Deadlines come from the request context.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a bot client. An empty baseURL means DefaultAPIURL.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts a text message. parseMode may be empty for plain text.
func (c *Client) SendMessage(ctx context.Context, chatID, text, parseMode string) error {
	form := url.Values{
		"chat_id": {chatID},
		"text":    {text},
	}
	if parseMode != "" {
		form.Set("parse_mode", parseMode)
	}

	return c.call(ctx, "sendMessage", form)
}

// SendPhoto asks Telegram to fetch and post the image at photoURL.
func (c *Client) SendPhoto(ctx context.Context, chatID, photoURL string) error {
	return c.call(ctx, "sendPhoto", url.Values{
		"chat_id": {chatID},
		"photo":   {photoURL},
	})
}

func (c *Client) call(ctx context.Context, method string, form url.Values) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram %s: failed to build request", method)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the endpoint, which contains the bot token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}

		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram %s: failed to read response: %w", method, err)
	}

	var parsed apiResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !parsed.OK {
		return fmt.Errorf("%w: %s returned %d: %s", ErrAPI, method, resp.StatusCode, parsed.Description)
	}

	return nil
}
