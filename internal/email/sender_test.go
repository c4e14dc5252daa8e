package email

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishabhv97/kiwisqft/internal/config"
)

type failingSender struct{}

func (failingSender) Send(context.Context, []string, string, []byte) error {
	return errors.New("relay down")
}

func TestBuildMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := string(BuildMessage("noreply@kiwisqft.example.com", "seller@example.com", "New lead", "Hello", at))
	assert.Contains(t, msg, "To: seller@example.com\r\n")
	assert.Contains(t, msg, "Subject: New lead\r\n")
	assert.Contains(t, msg, "Date: Wed, 01 May 2024 12:00:00 +0000\r\n")
	assert.Contains(t, msg, "\r\n\r\nHello\r\n")
}

func TestNewSender_FileCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail", "out.log")
	s, err := NewSender(&config.Config{EmailLogFile: path}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), []string{"a@example.com"}, "Hi", []byte("body\r\n")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Subject: Hi")
	assert.Contains(t, string(data), "body")
}

func TestCompositeEmailSender_JoinsErrors(t *testing.T) {
	cs := NewCompositeEmailSender(&LoggingSender{}, failingSender{}, nil)
	err := cs.Send(context.Background(), []string{"a@example.com"}, "Hi", nil)
	assert.ErrorContains(t, err, "relay down")

	assert.Error(t, NewCompositeEmailSender().Send(context.Background(), nil, "", nil))
}

func TestRedisSender(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisSender(rdb)
	require.NoError(t, s.Send(context.Background(), []string{"Seller@Example.com"}, "New lead", []byte("raw")))

	raw, err := mr.Get(CapturedKey("seller@example.com"))
	require.NoError(t, err)
	var stored map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "New lead", stored["subject"])
	assert.Equal(t, "raw", stored["body"])
}
