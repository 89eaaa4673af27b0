// Package channel canonicalises chat channel descriptors into string
// identifiers of the form <type>:<key> and back.
package channel

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultGlobalScope is used when a global descriptor carries no scope.
const DefaultGlobalScope = "default"

const (
	prefixDelimiter      = ":"
	participantDelimiter = "--"
)

// Type enumerates the supported channel kinds.
type Type string

const (
	TypeGlobal Type = "global"
	TypeDirect Type = "direct"
	TypeGame   Type = "game"
)

var (
	// ErrInvalidDescriptor indicates a descriptor that cannot be canonicalised.
	ErrInvalidDescriptor = errors.New("invalid channel descriptor")
	// ErrInvalidChannelID indicates a channel id that cannot be parsed.
	ErrInvalidChannelID = errors.New("invalid channel id")
)

// Descriptor is the caller-supplied specification of a channel before
// canonicalisation. Exactly the fields for its Type are meaningful.
type Descriptor struct {
	Type           Type
	Scope          string
	ParticipantIDs [2]string
	GameID         string
}

// Global builds a global channel descriptor. An empty scope resolves to the
// default scope.
func Global(scope string) Descriptor {
	return Descriptor{Type: TypeGlobal, Scope: scope}
}

// Direct builds a direct channel descriptor between two participants.
func Direct(a, b string) Descriptor {
	first, second := SortParticipants(a, b)
	return Descriptor{Type: TypeDirect, ParticipantIDs: [2]string{first, second}}
}

// Game builds a game channel descriptor.
func Game(gameID string) Descriptor {
	return Descriptor{Type: TypeGame, GameID: gameID}
}

// SortParticipants orders two participant ids lexicographically so direct
// channel ids are independent of argument order.
func SortParticipants(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Resolve maps a descriptor to its canonical channel id. The mapping is
// deterministic and, for direct channels, order-independent over participants.
func Resolve(d Descriptor) (string, error) {
	key, err := resolveKey(d)
	if err != nil {
		return "", err
	}
	return string(d.Type) + prefixDelimiter + key, nil
}

func resolveKey(d Descriptor) (string, error) {
	switch d.Type {
	case TypeGlobal:
		scope := strings.TrimSpace(d.Scope)
		if scope == "" {
			scope = DefaultGlobalScope
		}
		return strings.ToLower(scope), nil
	case TypeDirect:
		first := strings.TrimSpace(d.ParticipantIDs[0])
		second := strings.TrimSpace(d.ParticipantIDs[1])
		if first == "" || second == "" || first == second {
			return "", fmt.Errorf("%w: direct channels require two distinct participants", ErrInvalidDescriptor)
		}
		first, second = SortParticipants(first, second)
		return first + participantDelimiter + second, nil
	case TypeGame:
		gameID := strings.TrimSpace(d.GameID)
		if gameID == "" {
			return "", fmt.Errorf("%w: game channels require a game id", ErrInvalidDescriptor)
		}
		return gameID, nil
	default:
		return "", fmt.Errorf("%w: unsupported channel type %q", ErrInvalidDescriptor, d.Type)
	}
}

// Metadata derives the channel-level metadata attached to every message
// stored in the channel.
func Metadata(d Descriptor) map[string]interface{} {
	switch d.Type {
	case TypeGlobal:
		scope := strings.TrimSpace(d.Scope)
		if scope == "" {
			scope = DefaultGlobalScope
		}
		return map[string]interface{}{"scope": scope}
	case TypeDirect:
		first, second := SortParticipants(d.ParticipantIDs[0], d.ParticipantIDs[1])
		return map[string]interface{}{"participantIds": []string{first, second}}
	case TypeGame:
		return map[string]interface{}{"gameId": strings.TrimSpace(d.GameID)}
	default:
		return map[string]interface{}{}
	}
}

// Parsed is the result of decomposing a canonical channel id.
type Parsed struct {
	ChannelID      string
	Type           Type
	Scope          string
	ParticipantIDs [2]string
	GameID         string
}

// Parse is the inverse of Resolve. It accepts any id Resolve can produce and
// rejects ids with an unknown prefix or a malformed key.
func Parse(channelID string) (Parsed, error) {
	idx := strings.Index(channelID, prefixDelimiter)
	if idx <= 0 {
		return Parsed{}, fmt.Errorf("%w: %q", ErrInvalidChannelID, channelID)
	}

	channelType := Type(channelID[:idx])
	key := channelID[idx+1:]

	switch channelType {
	case TypeGlobal:
		scope := strings.TrimSpace(key)
		if scope == "" {
			scope = DefaultGlobalScope
		}
		return Parsed{ChannelID: channelID, Type: TypeGlobal, Scope: strings.ToLower(scope)}, nil
	case TypeDirect:
		parts := strings.Split(key, participantDelimiter)
		if len(parts) != 2 {
			return Parsed{}, fmt.Errorf("%w: direct key %q", ErrInvalidChannelID, key)
		}
		first := strings.TrimSpace(parts[0])
		second := strings.TrimSpace(parts[1])
		if first == "" || second == "" {
			return Parsed{}, fmt.Errorf("%w: direct key %q", ErrInvalidChannelID, key)
		}
		first, second = SortParticipants(first, second)
		return Parsed{ChannelID: channelID, Type: TypeDirect, ParticipantIDs: [2]string{first, second}}, nil
	case TypeGame:
		gameID := strings.TrimSpace(key)
		if gameID == "" {
			return Parsed{}, fmt.Errorf("%w: game key %q", ErrInvalidChannelID, key)
		}
		return Parsed{ChannelID: channelID, Type: TypeGame, GameID: gameID}, nil
	default:
		return Parsed{}, fmt.Errorf("%w: unsupported channel type %q", ErrInvalidChannelID, channelType)
	}
}

// Descriptor reconstructs the descriptor equivalent to the parsed channel.
func (p Parsed) Descriptor() Descriptor {
	switch p.Type {
	case TypeGlobal:
		return Global(p.Scope)
	case TypeDirect:
		return Direct(p.ParticipantIDs[0], p.ParticipantIDs[1])
	case TypeGame:
		return Game(p.GameID)
	default:
		return Descriptor{Type: p.Type}
	}
}

// Accessible reports whether the given user may read the channel. Global and
// game channels are open; direct channels are restricted to participants.
func Accessible(p Parsed, userID string) bool {
	if p.Type != TypeDirect {
		return true
	}
	return p.ParticipantIDs[0] == userID || p.ParticipantIDs[1] == userID
}
