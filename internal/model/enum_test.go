package model

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStatusTokens(t *testing.T) {
	tests := []struct {
		token  string
		status UserStatus
	}{
		{"online", StatusOnline},
		{"idle", StatusIdle},
		{"dnd", StatusDND},
		{"offline", StatusOffline},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseUserStatus(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.status, got)
			assert.Equal(t, tt.token, got.String())

			v, err := got.Value()
			require.NoError(t, err)
			assert.Equal(t, tt.token, v)
		})
	}

	_, err := ParseUserStatus("Online")
	assert.Error(t, err, "tokens are case-sensitive")
}

func TestChannelKindTokens(t *testing.T) {
	for token, kind := range map[string]ChannelKind{
		"text":         ChannelText,
		"voice":        ChannelVoice,
		"announcement": ChannelAnnouncement,
	} {
		got, err := ParseChannelKind(token)
		require.NoError(t, err)
		assert.Equal(t, kind, got)

		var scanned ChannelKind
		require.NoError(t, scanned.Scan([]byte(token)))
		assert.Equal(t, kind, scanned)
	}

	_, err := ParseChannelKind("category")
	assert.Error(t, err)
}

func TestAttachmentKindTokens(t *testing.T) {
	for token, kind := range map[string]AttachmentKind{
		"image": AttachmentImage,
		"video": AttachmentVideo,
		"file":  AttachmentFile,
	} {
		var got AttachmentKind
		require.NoError(t, got.UnmarshalText([]byte(token)))
		assert.Equal(t, kind, got)

		b, err := got.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, token, string(b))
	}
}

func TestZeroEnumDoesNotPersist(t *testing.T) {
	var k ChannelKind
	_, err := k.Value()
	assert.Error(t, err)

	_, err = k.MarshalText()
	assert.Error(t, err)
}

// For any token, parse then format returns the token, and any string that
// parses is one of the table tokens.
func TestEnumRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	tokens := []string{"online", "idle", "dnd", "offline"}

	properties.Property("known tokens round trip", prop.ForAll(
		func(i int) bool {
			s, err := ParseUserStatus(tokens[i])
			return err == nil && s.String() == tokens[i]
		},
		gen.IntRange(0, len(tokens)-1),
	))

	properties.Property("arbitrary strings either parse to themselves or fail", prop.ForAll(
		func(s string) bool {
			k, err := ParseChannelKind(s)
			if err != nil {
				return true
			}
			return k.String() == s
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
