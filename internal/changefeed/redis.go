package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const changeField = "change"

// RedisFeed stores changes in a capped Redis stream. Readers use plain XREAD
// so every connected client sees every change.
type RedisFeed struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisFeed(client *redis.Client, stream string, maxLen int64) *RedisFeed {
	return &RedisFeed{client: client, stream: stream, maxLen: maxLen}
}

func (f *RedisFeed) Publish(ctx context.Context, change Change) error {
	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshaling change: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: f.stream,
		Values: map[string]any{changeField: body},
	}
	if f.maxLen > 0 {
		args.MaxLen = f.maxLen
		args.Approx = true
	}

	id, err := f.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("xadd change (stream=%s): %w", f.stream, err)
	}

	slog.DebugContext(ctx, "change published",
		"stream_id", id,
		"session_id", change.SessionID,
		"to", change.To)
	return nil
}

func (f *RedisFeed) Read(ctx context.Context, lastID string, block time.Duration) ([]Entry, error) {
	if lastID == "" {
		lastID = "$"
	}

	streams, err := f.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{f.stream, lastID},
		Block:   block,
		Count:   100,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("xread changes: %w", err)
	}

	var entries []Entry
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			change, err := decode(msg)
			if err != nil {
				slog.WarnContext(ctx, "skipping malformed change", "stream_id", msg.ID, "error", err)
				continue
			}
			entries = append(entries, Entry{ID: msg.ID, Change: change})
		}
	}
	return entries, nil
}

func decode(msg redis.XMessage) (Change, error) {
	raw, ok := msg.Values[changeField]
	if !ok {
		return Change{}, fmt.Errorf("missing %s", changeField)
	}
	var change Change
	if err := json.Unmarshal([]byte(fmt.Sprint(raw)), &change); err != nil {
		return Change{}, fmt.Errorf("parsing %s: %w", changeField, err)
	}
	return change, nil
}
