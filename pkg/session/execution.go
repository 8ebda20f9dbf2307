package session

import (
	"sync"

	"github.com/go-go-golems/microsurgery-gpt/pkg/conversation"
	"github.com/google/uuid"
)

// ExecutionHandle represents a single in-flight send.
type ExecutionHandle struct {
	SessionID  string
	ExchangeID string

	// Input is the user message recorded for this send, nil for blank input.
	Input *conversation.Message

	done chan struct{}

	mu  sync.Mutex
	out *conversation.Message
	err error
}

func newExecutionHandle(sessionID string, input *conversation.Message) *ExecutionHandle {
	return &ExecutionHandle{
		SessionID:  sessionID,
		ExchangeID: uuid.NewString(),
		Input:      input,
		done:       make(chan struct{}),
	}
}

func (h *ExecutionHandle) setResult(out *conversation.Message, err error) {
	h.mu.Lock()
	h.out = out
	h.err = err
	close(h.done)
	h.mu.Unlock()
}

// Wait blocks until the send completes and returns the appended reply.
func (h *ExecutionHandle) Wait() (*conversation.Message, error) {
	if h == nil {
		return nil, ErrExecutionHandleNil
	}
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.out, h.err
}

// Done is closed once the send has completed.
func (h *ExecutionHandle) Done() <-chan struct{} {
	return h.done
}

func (h *ExecutionHandle) IsRunning() bool {
	if h == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}
