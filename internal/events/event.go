// Package events carries notifications about committed state changes to the
// external dispatch collaborator. Events are encoded as protobuf Structs so
// consumers need no generated schema.
package events

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Gopher0727/occult/internal/model"
)

type Type string

const (
	MessageCreated  Type = "message.created"
	MessageEdited   Type = "message.edited"
	MessageDeleted  Type = "message.deleted"
	MessagePinned   Type = "message.pinned"
	MessageUnpinned Type = "message.unpinned"
	ReactionAdded   Type = "reaction.added"
	ReactionRemoved Type = "reaction.removed"
	InviteRedeemed  Type = "invite.redeemed"
	MemberLeft      Type = "member.left"
)

// Event describes one committed change. Zero IDs are omitted on the wire.
type Event struct {
	Type      Type
	ServerID  model.ID
	ChannelID model.ID
	MessageID model.ID
	UserID    model.ID
	At        time.Time
	Attrs     map[string]any
}

// Key picks the partition key: events of one channel stay ordered, and
// server-level events fall back to the server.
func (e *Event) Key() []byte {
	if !e.ChannelID.IsNil() {
		return e.ChannelID.Bytes()
	}
	if !e.ServerID.IsNil() {
		return e.ServerID.Bytes()
	}
	return nil
}

// Encode renders e as a serialized google.protobuf.Struct.
func Encode(e *Event) ([]byte, error) {
	fields := map[string]any{
		"type": string(e.Type),
		"at":   e.At.UTC().Format(time.RFC3339Nano),
	}
	putID(fields, "server_id", e.ServerID)
	putID(fields, "channel_id", e.ChannelID)
	putID(fields, "message_id", e.MessageID)
	putID(fields, "user_id", e.UserID)
	if len(e.Attrs) > 0 {
		fields["attrs"] = e.Attrs
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s event: %w", e.Type, err)
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}
	return data, nil
}

// Decode is the inverse of Encode. Numeric attributes come back as float64.
func Decode(data []byte) (*Event, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	fields := s.AsMap()

	e := &Event{}
	if v, ok := fields["type"].(string); ok {
		e.Type = Type(v)
	}
	if v, ok := fields["at"].(string); ok {
		at, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("invalid event time %q: %w", v, err)
		}
		e.At = at
	}
	for key, dst := range map[string]*model.ID{
		"server_id":  &e.ServerID,
		"channel_id": &e.ChannelID,
		"message_id": &e.MessageID,
		"user_id":    &e.UserID,
	} {
		v, ok := fields[key].(string)
		if !ok {
			continue
		}
		id, err := model.ParseID(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = id
	}
	if attrs, ok := fields["attrs"].(map[string]any); ok {
		e.Attrs = attrs
	}
	return e, nil
}

func putID(fields map[string]any, key string, id model.ID) {
	if !id.IsNil() {
		fields[key] = id.String()
	}
}
