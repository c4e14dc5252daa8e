package db

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a write attempt. It must choose a fresh id on every call.
type Operation func() error

// Retryable decides whether a failed attempt may be repeated.
type Retryable func(err error) bool

const DefaultMaxRetries = 3

// Try runs op, retrying id collisions and transient network failures.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, func(err error) bool {
		return IsMongoDuplicateKeyError(err) || IsTransient(err)
	})
}

// WithRetries runs op up to maxRetries+1 times, backing off a little more
// after each retryable failure. Non-retryable errors return immediately.
func WithRetries(op Operation, maxRetries int, retryable Retryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			return err
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// IsTransient reports network errors and timeouts that are worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var le mongo.LabeledError
	return errors.As(err, &le) && le.HasErrorLabel("RetryableWriteError")
}
