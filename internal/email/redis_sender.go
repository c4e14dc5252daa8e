package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const capturedTTL = 5 * time.Minute

// RedisSender stores each message in Redis under mockemail:{recipient} so
// end-to-end tests can read what would have been sent.
type RedisSender struct {
	client *redis.Client
}

func NewRedisSender(client *redis.Client) Sender {
	return &RedisSender{client: client}
}

// CapturedKey is where the last message to recipient is stored.
func CapturedKey(recipient string) string {
	return "mockemail:" + strings.ToLower(recipient)
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	data, err := json.Marshal(map[string]string{
		"to":      strings.Join(to, ", "),
		"subject": subject,
		"body":    string(rawMessage),
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}
	for _, recipient := range to {
		if err := s.client.Set(ctx, CapturedKey(recipient), data, capturedTTL).Err(); err != nil {
			return fmt.Errorf("failed to store email for %s: %w", recipient, err)
		}
	}
	return nil
}
