package ai

import (
	"context"

	"chatterbox/pkg/domain"
)

// ChatStreamer produces a model reply for an ordered message history.
// Implementations call onDelta for each text fragment as it arrives and
// return the full accumulated reply. Returning an error from onDelta
// aborts the stream.
type ChatStreamer interface {
	StreamChat(ctx context.Context, messages []domain.ChatMessage, onDelta func(delta string) error) (string, error)
}
