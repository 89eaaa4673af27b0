package service

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/playhall/lobby-chat-api/internal/dto"
	"github.com/playhall/lobby-chat-api/internal/observability"
)

// streamHub tracks the stream subscribers of each channel and fans messages
// out to them. Slow subscribers drop messages instead of blocking senders.
type streamHub struct {
	mu       sync.RWMutex
	channels map[string]map[chan dto.ChatMessageResponse]struct{}
	log      zerolog.Logger
}

func newStreamHub(logger zerolog.Logger) *streamHub {
	return &streamHub{
		channels: make(map[string]map[chan dto.ChatMessageResponse]struct{}),
		log:      logger.With().Str("component", "stream_hub").Logger(),
	}
}

// subscribe registers a buffered subscription for channelID. The returned
// cancel function removes the subscription and closes its channel; it is safe
// to call more than once.
func (h *streamHub) subscribe(channelID string) (chan dto.ChatMessageResponse, func()) {
	subscription := make(chan dto.ChatMessageResponse, streamBufferSize)

	h.mu.Lock()
	if _, exists := h.channels[channelID]; !exists {
		h.channels[channelID] = make(map[chan dto.ChatMessageResponse]struct{})
	}
	h.channels[channelID][subscription] = struct{}{}
	h.mu.Unlock()

	observability.StreamSubscribers().Inc()
	h.log.Debug().Str("channel_id", channelID).Msg("stream subscriber registered")

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if subscribers, ok := h.channels[channelID]; ok {
				delete(subscribers, subscription)
				if len(subscribers) == 0 {
					delete(h.channels, channelID)
				}
			}
			close(subscription)
			h.mu.Unlock()

			observability.StreamSubscribers().Dec()
			h.log.Debug().Str("channel_id", channelID).Msg("stream subscriber removed")
		})
	}

	return subscription, cancel
}

func (h *streamHub) broadcast(channelID string, message dto.ChatMessageResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for subscription := range h.channels[channelID] {
		select {
		case subscription <- message:
		default:
			h.log.Warn().Str("channel_id", channelID).Msg("dropping chat message for slow stream subscriber")
		}
	}
}
