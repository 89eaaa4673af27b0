package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/playhall/lobby-chat-api/internal/channel"
	"github.com/playhall/lobby-chat-api/internal/dto"
	"github.com/playhall/lobby-chat-api/internal/models"
	"github.com/playhall/lobby-chat-api/internal/observability"
	"github.com/playhall/lobby-chat-api/internal/repository"
)

const (
	maxHistoryLimit  = 200
	lastMessageTTL   = 30 * time.Minute
	streamBufferSize = 32
)

// Request-shaped failures the handler maps to 400 responses.
var (
	ErrAccessDenied         = errors.New("you do not have access to this channel")
	ErrChannelRequired      = errors.New("channelType or channelId is required")
	ErrGameIDRequired       = errors.New("gameId is required for game channels")
	ErrParticipantsRequired = errors.New("participantIds is required for direct channels")
	ErrDirectParticipants   = errors.New("direct messages require exactly two distinct participants including the sender")
	ErrEmptyBody            = errors.New("message body is empty after sanitization")
)

// IsBadRequest reports whether err is a caller mistake rather than an
// upstream failure.
func IsBadRequest(err error) bool {
	for _, target := range []error{
		ErrAccessDenied,
		ErrChannelRequired,
		ErrGameIDRequired,
		ErrParticipantsRequired,
		ErrDirectParticipants,
		ErrEmptyBody,
		channel.ErrInvalidDescriptor,
		channel.ErrInvalidChannelID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Identity is the authenticated caller attached to each request.
type Identity struct {
	ID   string
	Name string
}

// ChatService resolves channel descriptors, persists messages and fans them
// out to stream subscribers.
type ChatService interface {
	Send(ctx context.Context, sender Identity, req dto.SendMessageRequest) (dto.ChatMessageResponse, error)
	History(ctx context.Context, caller Identity, query dto.MessagesQuery) ([]dto.ChatMessageResponse, error)
	Channels(ctx context.Context, caller Identity) ([]dto.ChannelSummary, error)
	Subscribe(channelID string) (<-chan dto.ChatMessageResponse, func())
	Start(ctx context.Context)
}

type chatService struct {
	repo         repository.MessageRepository
	redis        *redis.Client
	redisChannel string
	cachePrefix  string
	nats         *nats.Conn
	natsSubject  string
	defaultLimit int
	logger       zerolog.Logger
	tracer       trace.Tracer
	sanitizer    *bluemonday.Policy
	hub          *streamHub
	nodeID       string
}

// streamEvent is the envelope published between nodes so every instance can
// deliver messages to its local stream subscribers.
type streamEvent struct {
	Source  string                  `json:"source"`
	Message dto.ChatMessageResponse `json:"message"`
	SentAt  time.Time               `json:"sentAt"`
}

// NewChatService creates the chat service. redisClient and natsConn may be
// nil; fanout and caching degrade to single-node behaviour.
func NewChatService(repo repository.MessageRepository, redisClient *redis.Client, natsConn *nats.Conn, channelBase string, defaultLimit int, logger zerolog.Logger) ChatService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	if defaultLimit <= 0 {
		defaultLimit = 50
	}

	redisChannel := ""
	cachePrefix := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":chat:events"
		cachePrefix = channelBase + ":chat:last"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".chat.events"
	}

	return &chatService{
		repo:         repo,
		redis:        redisClient,
		redisChannel: redisChannel,
		cachePrefix:  cachePrefix,
		nats:         natsConn,
		natsSubject:  natsSubject,
		defaultLimit: defaultLimit,
		logger:       logger.With().Str("component", "chat_service").Logger(),
		tracer:       otel.Tracer("github.com/playhall/lobby-chat-api/internal/service/chat"),
		sanitizer:    sanitizer,
		hub:          newStreamHub(logger),
		nodeID:       uuid.NewString(),
	}
}

func (s *chatService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *chatService) Send(ctx context.Context, sender Identity, req dto.SendMessageRequest) (dto.ChatMessageResponse, error) {
	descriptor, err := s.buildDescriptor(sender.ID, req)
	if err != nil {
		return dto.ChatMessageResponse{}, err
	}

	channelID, err := channel.Resolve(descriptor)
	if err != nil {
		return dto.ChatMessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(req.Body))
	if clean == "" {
		return dto.ChatMessageResponse{}, ErrEmptyBody
	}

	// Channel-derived metadata sits under caller metadata; the caller wins
	// on key collisions.
	metadata := channel.Metadata(descriptor)
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	displayName := req.SenderDisplayName
	if displayName == "" {
		displayName = sender.Name
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.String("chat.channel_id", channelID),
		attribute.String("chat.channel_type", string(descriptor.Type)),
		attribute.String("chat.sender_id", sender.ID),
	))
	defer span.End()

	message := models.ChatMessage{
		ChannelID:         channelID,
		ChannelType:       string(descriptor.Type),
		SenderID:          sender.ID,
		SenderDisplayName: displayName,
		Body:              clean,
		Metadata:          datatypes.JSONMap(metadata),
	}

	if err := s.repo.Save(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.ChatMessageResponse{}, err
	}

	response := dto.NewChatMessageResponse(message)
	s.cacheLastMessage(spanCtx, response)
	s.hub.broadcast(channelID, response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Str("channel_id", channelID).Msg("failed to publish chat event")
	}

	observability.MessagesSent().WithLabelValues(string(descriptor.Type)).Inc()

	return response, nil
}

func (s *chatService) History(ctx context.Context, caller Identity, query dto.MessagesQuery) ([]dto.ChatMessageResponse, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	channelID := strings.TrimSpace(query.ChannelID)
	if channelID != "" {
		parsed, err := channel.Parse(channelID)
		if err != nil {
			return nil, err
		}
		if !channel.Accessible(parsed, caller.ID) {
			return nil, ErrAccessDenied
		}

		messages, err := s.repo.RecentByChannel(ctx, parsed.ChannelID, limit)
		if err != nil {
			return nil, err
		}
		return dto.NewChatMessageResponseSlice(messages), nil
	}

	if query.ChannelType == "" {
		return nil, ErrChannelRequired
	}

	descriptor, err := s.buildDescriptor(caller.ID, dto.SendMessageRequest{
		ChannelType:    query.ChannelType,
		Scope:          query.Scope,
		ParticipantIDs: query.ParticipantIDs,
		GameID:         query.GameID,
	})
	if err != nil {
		return nil, err
	}

	resolved, err := channel.Resolve(descriptor)
	if err != nil {
		return nil, err
	}

	messages, err := s.repo.RecentByChannel(ctx, resolved, limit)
	if err != nil {
		return nil, err
	}
	return dto.NewChatMessageResponseSlice(messages), nil
}

func (s *chatService) Channels(ctx context.Context, caller Identity) ([]dto.ChannelSummary, error) {
	channelIDs, err := s.repo.ListChannelIDs(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.ChannelSummary, 0, len(channelIDs))
	for _, channelID := range channelIDs {
		parsed, err := channel.Parse(channelID)
		if err != nil {
			s.logger.Warn().Err(err).Str("channel_id", channelID).Msg("skipping invalid channel id")
			continue
		}
		if !channel.Accessible(parsed, caller.ID) {
			continue
		}

		summaries = append(summaries, dto.ChannelSummary{
			ChannelID:   channelID,
			ChannelType: string(parsed.Type),
			Metadata:    channel.Metadata(parsed.Descriptor()),
		})
	}

	return summaries, nil
}

// Subscribe registers a stream subscription for channelID. A new subscriber
// is primed with the cached last message when one exists; the replay keeps
// its original id and createdAt, so clients that track either will not
// surface it as new.
func (s *chatService) Subscribe(channelID string) (<-chan dto.ChatMessageResponse, func()) {
	subscription, cancel := s.hub.subscribe(channelID)

	if last := s.fetchLastMessage(context.Background(), channelID); last != nil {
		select {
		case subscription <- *last:
		default:
		}
	}

	return subscription, cancel
}

func (s *chatService) buildDescriptor(senderID string, req dto.SendMessageRequest) (channel.Descriptor, error) {
	switch channel.Type(req.ChannelType) {
	case channel.TypeGlobal:
		return channel.Global(req.Scope), nil
	case channel.TypeDirect:
		if len(req.ParticipantIDs) == 0 {
			return channel.Descriptor{}, ErrParticipantsRequired
		}
		first, second, err := participantsTuple(senderID, req.ParticipantIDs)
		if err != nil {
			return channel.Descriptor{}, err
		}
		return channel.Direct(first, second), nil
	case channel.TypeGame:
		if strings.TrimSpace(req.GameID) == "" {
			return channel.Descriptor{}, ErrGameIDRequired
		}
		return channel.Game(req.GameID), nil
	default:
		return channel.Descriptor{}, fmt.Errorf("%w: unsupported channel type %q", channel.ErrInvalidDescriptor, req.ChannelType)
	}
}

// participantsTuple folds the sender into the supplied participant ids and
// requires the result to be exactly two distinct identities.
func participantsTuple(senderID string, participants []string) (string, string, error) {
	seen := map[string]struct{}{senderID: {}}
	ordered := []string{senderID}
	for _, participant := range participants {
		participant = strings.TrimSpace(participant)
		if participant == "" {
			continue
		}
		if _, ok := seen[participant]; ok {
			continue
		}
		seen[participant] = struct{}{}
		ordered = append(ordered, participant)
	}

	if len(ordered) != 2 {
		return "", "", ErrDirectParticipants
	}
	return ordered[0], ordered[1], nil
}

func (s *chatService) cacheLastMessage(ctx context.Context, message dto.ChatMessageResponse) {
	if s.redis == nil || s.cachePrefix == "" {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal chat message for cache")
		return
	}

	key := fmt.Sprintf("%s:%s", s.cachePrefix, message.ChannelID)
	if err := s.redis.Set(ctx, key, payload, lastMessageTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache chat message")
	}
}

func (s *chatService) fetchLastMessage(ctx context.Context, channelID string) *dto.ChatMessageResponse {
	if s.redis == nil || s.cachePrefix == "" {
		return nil
	}

	key := fmt.Sprintf("%s:%s", s.cachePrefix, channelID)
	result, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var message dto.ChatMessageResponse
	if err := json.Unmarshal([]byte(result), &message); err != nil {
		s.logger.Warn().Err(err).Msg("failed to unmarshal cached chat message")
		return nil
	}

	return &message
}

func (s *chatService) publish(ctx context.Context, message dto.ChatMessageResponse) error {
	event := streamEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *chatService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *chatService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "lobby-chat", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (s *chatService) handleEvent(data []byte) {
	var event streamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.hub.broadcast(event.Message.ChannelID, event.Message)
}
