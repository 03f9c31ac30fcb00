package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Sender delivers a preformatted alert out-of-band. No reply contract
// beyond delivery acknowledgment.
type Sender interface {
	Send(ctx context.Context, text string) error
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// SendError marks a failed alert delivery. The decision was still computed
// correctly; the caller logs and moves on.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return fmt.Sprintf("send alert: %v", e.Err) }
func (e *SendError) Unwrap() error { return e.Err }

// LarkNotifier posts text messages to a Lark (Feishu) webhook bot.
type LarkNotifier struct {
	WebhookURL string
	Prefix     string
	Client     *http.Client
}

// NewLarkNotifier creates a notifier with optional proxy support.
func NewLarkNotifier(webhookURL, prefix, proxyURL string) *LarkNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &LarkNotifier{
		WebhookURL: webhookURL,
		Prefix:     prefix,
		Client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
}

type larkResponse struct {
	StatusCode int    `json:"StatusCode"`
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
}

// Send posts one text message to the webhook.
func (l *LarkNotifier) Send(ctx context.Context, text string) error {
	if l.Prefix != "" {
		text = l.Prefix + "\n" + text
	}
	payload := map[string]any{
		"msg_type": "text",
		"content":  map[string]string{"text": text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &SendError{Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return &SendError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.Client.Do(req)
	if err != nil {
		return &SendError{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &SendError{Err: fmt.Errorf("webhook status %d, body: %s", resp.StatusCode, string(respBody))}
	}
	var parsed larkResponse
	if err := json.Unmarshal(respBody, &parsed); err == nil {
		if parsed.StatusCode != 0 || parsed.Code != 0 {
			return &SendError{Err: fmt.Errorf("webhook rejected message: %s", string(respBody))}
		}
	}
	return nil
}

// SendWithRetry sends with exponential backoff.
func (l *LarkNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := l.Send(ctx, text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] lark send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return &SendError{Err: ctx.Err()}
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return &SendError{Err: fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)}
}
