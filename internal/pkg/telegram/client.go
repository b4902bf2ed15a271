package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gitwatch-app/gitwatch/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// Client talks to the Telegram Bot API. It implements the dispatcher's
// Sender interface.
type Client struct {
	Token      string
	APIBaseURL string

	HTTPClient *http.Client
}

// APIError is a non-ok response from the Bot API. ErrorCode 403 means the
// chat blocked the bot; 429 means the bot is being throttled.
type APIError struct {
	ErrorCode   int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.ErrorCode, e.Description)
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// NewClientFromEnv builds a client from TELEGRAM_BOT_TOKEN.
func NewClientFromEnv() *Client {
	return &Client{
		Token:      strings.TrimSpace(env.GetEnv("TELEGRAM_BOT_TOKEN", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("TELEGRAM_API_BASE_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SendMessage delivers a text message to a chat. parseMode may be empty
// for plain text.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not configured")
	}

	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(chatID, 10))
	form.Set("text", text)
	if parseMode != "" {
		form.Set("parse_mode", parseMode)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(c.APIBaseURL, "/"), c.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if !decoded.OK {
		return &APIError{ErrorCode: decoded.ErrorCode, Description: decoded.Description}
	}
	return nil
}
