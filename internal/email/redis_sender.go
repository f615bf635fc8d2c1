package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"biztech/api/internal/config"
)

// RedisSender implements the Sender interface by storing emails in Redis.
// End-to-end tests read the captured messages back instead of polling a
// mailbox.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// CapturedEmailKey returns the Redis key a captured email for the given
// recipient is stored under.
func CapturedEmailKey(to string) string {
	return "test:email:" + strings.ToLower(to)
}

// Send stores a JSON representation of the email in Redis instead of sending it.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	emailData := map[string]interface{}{
		"to":      strings.Join(to, ", "),
		"from":    s.cfg.SmtpFromAddress,
		"subject": subject,
		"body":    string(rawMessage),
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("failed to marshal captured email: %w", err)
	}

	if err := s.client.Set(ctx, CapturedEmailKey(primaryTo), payload, 10*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to store captured email in Redis: %w", err)
	}
	return nil
}
