package model

import (
	"database/sql/driver"
	"fmt"
)

// enumTable is the single mapping between a closed enum and its wire form.
type enumTable[T ~uint8] struct {
	name   string
	tokens map[T]string
	values map[string]T
}

func newEnumTable[T ~uint8](name string, tokens map[T]string) enumTable[T] {
	values := make(map[string]T, len(tokens))
	for v, tok := range tokens {
		values[tok] = v
	}
	return enumTable[T]{name: name, tokens: tokens, values: values}
}

func (t enumTable[T]) format(v T) string {
	if tok, ok := t.tokens[v]; ok {
		return tok
	}
	return fmt.Sprintf("%s(%d)", t.name, uint8(v))
}

func (t enumTable[T]) parse(s string) (T, error) {
	if v, ok := t.values[s]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("invalid %s %q", t.name, s)
}

func (t enumTable[T]) value(v T) (driver.Value, error) {
	tok, ok := t.tokens[v]
	if !ok {
		return nil, fmt.Errorf("invalid %s %d", t.name, uint8(v))
	}
	return tok, nil
}

func (t enumTable[T]) scan(src any) (T, error) {
	switch s := src.(type) {
	case string:
		return t.parse(s)
	case []byte:
		return t.parse(string(s))
	default:
		return 0, fmt.Errorf("cannot scan %T into %s", src, t.name)
	}
}

// UserStatus is a user's presence.
type UserStatus uint8

const (
	StatusOffline UserStatus = iota + 1
	StatusOnline
	StatusIdle
	StatusDND
)

var userStatuses = newEnumTable("user status", map[UserStatus]string{
	StatusOnline:  "online",
	StatusIdle:    "idle",
	StatusDND:     "dnd",
	StatusOffline: "offline",
})

func ParseUserStatus(s string) (UserStatus, error) {
	return userStatuses.parse(s)
}

func (s UserStatus) String() string {
	return userStatuses.format(s)
}

func (s UserStatus) MarshalText() ([]byte, error) {
	return marshalToken(userStatuses, s)
}

func (s *UserStatus) UnmarshalText(b []byte) error {
	return unmarshalToken(userStatuses, s, b)
}

// Value implements driver.Valuer.
func (s UserStatus) Value() (driver.Value, error) {
	return userStatuses.value(s)
}

// Scan implements sql.Scanner.
func (s *UserStatus) Scan(src any) error {
	v, err := userStatuses.scan(src)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (UserStatus) GormDataType() string {
	return "varchar(16)"
}

// ChannelKind is the type of a channel.
type ChannelKind uint8

const (
	ChannelText ChannelKind = iota + 1
	ChannelVoice
	ChannelAnnouncement
)

var channelKinds = newEnumTable("channel kind", map[ChannelKind]string{
	ChannelText:         "text",
	ChannelVoice:        "voice",
	ChannelAnnouncement: "announcement",
})

func ParseChannelKind(s string) (ChannelKind, error) {
	return channelKinds.parse(s)
}

func (k ChannelKind) String() string {
	return channelKinds.format(k)
}

func (k ChannelKind) MarshalText() ([]byte, error) {
	return marshalToken(channelKinds, k)
}

func (k *ChannelKind) UnmarshalText(b []byte) error {
	return unmarshalToken(channelKinds, k, b)
}

// Value implements driver.Valuer.
func (k ChannelKind) Value() (driver.Value, error) {
	return channelKinds.value(k)
}

// Scan implements sql.Scanner.
func (k *ChannelKind) Scan(src any) error {
	v, err := channelKinds.scan(src)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (ChannelKind) GormDataType() string {
	return "varchar(16)"
}

// AttachmentKind is the media class of an attachment.
type AttachmentKind uint8

const (
	AttachmentImage AttachmentKind = iota + 1
	AttachmentVideo
	AttachmentFile
)

var attachmentKinds = newEnumTable("attachment kind", map[AttachmentKind]string{
	AttachmentImage: "image",
	AttachmentVideo: "video",
	AttachmentFile:  "file",
})

func ParseAttachmentKind(s string) (AttachmentKind, error) {
	return attachmentKinds.parse(s)
}

func (k AttachmentKind) String() string {
	return attachmentKinds.format(k)
}

func (k AttachmentKind) MarshalText() ([]byte, error) {
	return marshalToken(attachmentKinds, k)
}

func (k *AttachmentKind) UnmarshalText(b []byte) error {
	return unmarshalToken(attachmentKinds, k, b)
}

// Value implements driver.Valuer.
func (k AttachmentKind) Value() (driver.Value, error) {
	return attachmentKinds.value(k)
}

// Scan implements sql.Scanner.
func (k *AttachmentKind) Scan(src any) error {
	v, err := attachmentKinds.scan(src)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (AttachmentKind) GormDataType() string {
	return "varchar(16)"
}

func marshalToken[T ~uint8](t enumTable[T], v T) ([]byte, error) {
	tok, ok := t.tokens[v]
	if !ok {
		return nil, fmt.Errorf("invalid %s %d", t.name, uint8(v))
	}
	return []byte(tok), nil
}

func unmarshalToken[T ~uint8](t enumTable[T], dst *T, b []byte) error {
	v, err := t.parse(string(b))
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
