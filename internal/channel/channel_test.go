package channel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/playhall/lobby-chat-api/internal/channel"
)

func TestResolveGlobalDefaultsAndNormalises(t *testing.T) {
	id, err := channel.Resolve(channel.Global(""))
	require.NoError(t, err)
	require.Equal(t, "global:default", id)

	id, err = channel.Resolve(channel.Global("  Lobby  "))
	require.NoError(t, err)
	require.Equal(t, "global:lobby", id)
}

func TestResolveDirectIsOrderIndependent(t *testing.T) {
	first, err := channel.Resolve(channel.Direct("alice", "bob"))
	require.NoError(t, err)
	second, err := channel.Resolve(channel.Direct("bob", "alice"))
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, "direct:alice--bob", first)
}

func TestResolveRejectsInvalidDescriptors(t *testing.T) {
	cases := []struct {
		name       string
		descriptor channel.Descriptor
	}{
		{name: "direct with blank participant", descriptor: channel.Direct("alice", "  ")},
		{name: "direct with same participant", descriptor: channel.Direct("alice", "alice")},
		{name: "game without id", descriptor: channel.Game("   ")},
		{name: "unknown type", descriptor: channel.Descriptor{Type: channel.Type("party")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := channel.Resolve(tc.descriptor)
			require.ErrorIs(t, err, channel.ErrInvalidDescriptor)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	descriptors := []channel.Descriptor{
		channel.Global(""),
		channel.Global("arcade"),
		channel.Direct("user-1", "user-2"),
		channel.Direct("zed", "amy"),
		channel.Game("pacman"),
	}

	for _, descriptor := range descriptors {
		id, err := channel.Resolve(descriptor)
		require.NoError(t, err)

		parsed, err := channel.Parse(id)
		require.NoError(t, err)
		require.Equal(t, id, parsed.ChannelID)

		again, err := channel.Resolve(parsed.Descriptor())
		require.NoError(t, err)
		require.Equal(t, id, again, "round trip must be stable")
	}
}

func TestParseRejectsMalformedIDs(t *testing.T) {
	for _, id := range []string{
		"",
		"global",
		":default",
		"direct:alice",
		"direct:alice--",
		"direct:alice--bob--carol",
		"game:   ",
		"party:zone",
	} {
		_, err := channel.Parse(id)
		require.ErrorIs(t, err, channel.ErrInvalidChannelID, "id %q should not parse", id)
	}
}

func TestParseGlobalWithEmptyKeyUsesDefaultScope(t *testing.T) {
	parsed, err := channel.Parse("global:")
	require.NoError(t, err)
	require.Equal(t, channel.TypeGlobal, parsed.Type)
	require.Equal(t, channel.DefaultGlobalScope, parsed.Scope)
}

func TestMetadata(t *testing.T) {
	require.Equal(t, map[string]interface{}{"scope": "default"}, channel.Metadata(channel.Global("")))
	require.Equal(t, map[string]interface{}{"gameId": "pacman"}, channel.Metadata(channel.Game(" pacman ")))
	require.Equal(t,
		map[string]interface{}{"participantIds": []string{"alice", "bob"}},
		channel.Metadata(channel.Direct("bob", "alice")))
}

func TestAccessible(t *testing.T) {
	global, err := channel.Parse("global:default")
	require.NoError(t, err)
	require.True(t, channel.Accessible(global, "anyone"))

	game, err := channel.Parse("game:pacman")
	require.NoError(t, err)
	require.True(t, channel.Accessible(game, "anyone"))

	direct, err := channel.Parse("direct:alice--bob")
	require.NoError(t, err)
	require.True(t, channel.Accessible(direct, "alice"))
	require.True(t, channel.Accessible(direct, "bob"))
	require.False(t, channel.Accessible(direct, "carol"))
}
