package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// IdempotencyRecord stores the outcome of the first successful command under
// a caller-supplied key. Records are never mutated.
type IdempotencyRecord struct {
	IdempotencyKey  string    `json:"idempotency_key"`
	RequestHash     string    `json:"request_hash"`
	ResponsePayload []byte    `json:"response_payload"`
	StatusCode      int       `json:"status_code"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewIdempotencyRecord fingerprints the request payload and captures the
// response to replay on retries.
func NewIdempotencyRecord(key, requestPayload string, responsePayload []byte, statusCode int, now time.Time) *IdempotencyRecord {
	return &IdempotencyRecord{
		IdempotencyKey:  key,
		RequestHash:     HashPayload(requestPayload),
		ResponsePayload: responsePayload,
		StatusCode:      statusCode,
		CreatedAt:       now,
	}
}

// HashPayload returns the hex SHA-256 of a request payload.
func HashPayload(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
