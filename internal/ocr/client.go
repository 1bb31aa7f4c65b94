package ocr

import (
	"context"
)

// OperationState mirrors the analyze operation lifecycle of the
// document intelligence service.
type OperationState string

const (
	StateNotStarted OperationState = "notStarted"
	StateRunning    OperationState = "running"
	StateSucceeded  OperationState = "succeeded"
	StateFailed     OperationState = "failed"
)

// OperationHandle identifies a submitted analyze operation.
type OperationHandle struct {
	URL string
}

// Result is one poll of an analyze operation. Text is only populated
// when State is succeeded.
type Result struct {
	State OperationState
	Text  string
	Error string
}

// Client submits scanned documents for text recognition and polls the
// resulting long-running operation.
type Client interface {
	Submit(ctx context.Context, content []byte, mimeType string) (OperationHandle, error)
	Poll(ctx context.Context, op OperationHandle) (Result, error)
}
