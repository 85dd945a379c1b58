// Package engine turns one user message into a streamed model reply.
// Thread history lives in an in-memory checkpoint map keyed by thread ID
// and survives for the process lifetime only; chat is ephemeral by design.
package engine

import (
	"context"
	"errors"
	"sync"

	"chatterbox/pkg/ai"
	"chatterbox/pkg/domain"
)

// DefaultSystemPrompt is the fixed instruction prepended to every prompt.
const DefaultSystemPrompt = "You are a helpful assistant. Kindly help the user."

// ErrEmptyMessage rejects blank input before any model call is made.
var ErrEmptyMessage = errors.New("engine: message must not be empty")

// Engine is the single-step conversation workflow: append the user
// message, invoke the model with [system, ...history], append the reply.
type Engine struct {
	streamer     ai.ChatStreamer
	systemPrompt string

	mu      sync.Mutex
	threads map[string][]domain.ChatMessage
}

// New constructs an Engine. An empty systemPrompt falls back to
// DefaultSystemPrompt.
func New(streamer ai.ChatStreamer, systemPrompt string) *Engine {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Engine{
		streamer:     streamer,
		systemPrompt: systemPrompt,
		threads:      make(map[string][]domain.ChatMessage),
	}
}

// Stream runs one chat turn for threadID, forwarding reply fragments to
// emit as they arrive. A model failure is recovered locally: the error is
// emitted as an in-band "Error: ..." message and recorded on the thread,
// and Stream returns nil. Only client cancellation propagates as an error.
func (e *Engine) Stream(ctx context.Context, threadID, userMessage string, emit func(string) error) error {
	if userMessage == "" {
		return ErrEmptyMessage
	}

	prompt := e.appendAndSnapshot(threadID, domain.HumanMessage(userMessage))

	reply, err := e.streamer.StreamChat(ctx, prompt, emit)
	if err != nil {
		if ctx.Err() != nil {
			// Client went away mid-stream; abandon the turn.
			return ctx.Err()
		}
		errMsg := "Error: " + err.Error()
		if emit != nil {
			_ = emit(errMsg)
		}
		e.append(threadID, domain.SystemMessage(errMsg))
		return nil
	}

	e.append(threadID, domain.AssistantMessage(reply))
	return nil
}

// History returns a copy of the thread's accumulated messages.
func (e *Engine) History(threadID string) []domain.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	history := e.threads[threadID]
	out := make([]domain.ChatMessage, len(history))
	copy(out, history)
	return out
}

// appendAndSnapshot records msg on the thread and returns the full prompt
// for the model: the fixed system instruction followed by the history.
func (e *Engine) appendAndSnapshot(threadID string, msg domain.ChatMessage) []domain.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.threads[threadID] = append(e.threads[threadID], msg)
	history := e.threads[threadID]
	prompt := make([]domain.ChatMessage, 0, len(history)+1)
	prompt = append(prompt, domain.SystemMessage(e.systemPrompt))
	prompt = append(prompt, history...)
	return prompt
}

func (e *Engine) append(threadID string, msg domain.ChatMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.threads[threadID] = append(e.threads[threadID], msg)
}
