package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	auditKey     = "audit:log"
	auditMaxSize = 1000
)

// AuditLog represents one recorded administrative action.
type AuditLog struct {
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// AuditLogger records administrative mutations into a capped Redis list.
type AuditLogger struct {
	client *redis.Client
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(client *redis.Client) *AuditLogger {
	return &AuditLogger{client: client}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.client == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" {
		return errors.New("audit log requires action/entity")
	}
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	data, err := json.Marshal(log)
	if err != nil {
		return err
	}
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, auditKey, data)
	pipe.LTrim(ctx, auditKey, 0, auditMaxSize-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n most recent entries, newest first.
func (l *AuditLogger) Recent(ctx context.Context, n int64) ([]AuditLog, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("audit logger not initialised")
	}
	rows, err := l.client.LRange(ctx, auditKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	logs := make([]AuditLog, 0, len(rows))
	for _, row := range rows {
		var entry AuditLog
		if err := json.Unmarshal([]byte(row), &entry); err != nil {
			continue
		}
		logs = append(logs, entry)
	}
	return logs, nil
}
