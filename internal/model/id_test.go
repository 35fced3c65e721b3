package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()

	assert.False(t, a.IsNil())
	assert.NotEqual(t, a, b)
	// v7 identifiers carry a millisecond timestamp prefix
	assert.LessOrEqual(t, a.Compare(b), 0)
}

func TestParseID(t *testing.T) {
	t.Run("round trips through the hyphenated form", func(t *testing.T) {
		id := NewID()
		parsed, err := ParseID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
		assert.Len(t, id.String(), 36)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := ParseID("not-an-id")
		assert.Error(t, err)
	})
}

func TestIDScan(t *testing.T) {
	id := NewID()

	tests := []struct {
		name string
		src  any
	}{
		{name: "raw bytes", src: id.Bytes()},
		{name: "text bytes", src: []byte(id.String())},
		{name: "string", src: id.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ID
			require.NoError(t, got.Scan(tt.src))
			assert.Equal(t, id, got)
		})
	}

	t.Run("value is sixteen bytes", func(t *testing.T) {
		v, err := id.Value()
		require.NoError(t, err)
		assert.Len(t, v, 16)
	})

	t.Run("unsupported type", func(t *testing.T) {
		var got ID
		assert.Error(t, got.Scan(42))
	})
}

func TestNullID(t *testing.T) {
	t.Run("null scans to invalid", func(t *testing.T) {
		n := Some(NewID())
		require.NoError(t, n.Scan(nil))
		assert.False(t, n.Valid)

		v, err := n.Value()
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("json", func(t *testing.T) {
		id := NewID()
		b, err := json.Marshal(struct {
			Set   NullID `json:"set"`
			Unset NullID `json:"unset"`
		}{Set: Some(id)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"set":"`+id.String()+`","unset":null}`, string(b))

		var back NullID
		require.NoError(t, json.Unmarshal([]byte(`"`+id.String()+`"`), &back))
		assert.Equal(t, Some(id), back)
	})
}

func TestIDJSON(t *testing.T) {
	id := NewID()
	b, err := json.Marshal(map[string]ID{"id": id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(b))
}
