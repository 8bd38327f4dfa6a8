// Package store is the persistence adapter: a dumb string key/value store
// with prefix scans. The engine owns the key shapes defined here.
package store

import (
	"context"
	"errors"
)

// ErrMissing is returned by Get when the key does not exist.
var ErrMissing = errors.New("store: key not found")

// KV is the persistence contract. No transactions and no schema; the one
// conditional primitive is CompareAndSet, used for self-claims.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// ScanPrefix returns the values of every key starting with prefix,
	// in no particular order.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)
	// MultiGet returns one entry per key, nil where the key is missing.
	MultiGet(ctx context.Context, keys []string) ([]*string, error)
	// CompareAndSet writes value only if the current value equals
	// expected. It reports whether the write happened.
	CompareAndSet(ctx context.Context, key, expected, value string) (bool, error)
}

const (
	issuePrefix        = "issue:"
	reporterPrefix     = "user_issue:"
	notificationPrefix = "notification:"
)

func IssueKey(id string) string {
	return issuePrefix + id
}

// IssuePrefix matches every primary issue record.
func IssuePrefix() string {
	return issuePrefix
}

// ReporterIndexKey is the secondary index entry; its value is the issue id.
func ReporterIndexKey(reporterID, issueID string) string {
	return reporterPrefix + reporterID + ":" + issueID
}

func ReporterIndexPrefix(reporterID string) string {
	return reporterPrefix + reporterID + ":"
}

func NotificationKey(recipientID, id string) string {
	return notificationPrefix + recipientID + ":" + id
}

func NotificationPrefix(recipientID string) string {
	return notificationPrefix + recipientID + ":"
}
