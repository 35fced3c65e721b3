package service

import (
	"encoding/base64"
	"strconv"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/model"
)

const (
	cursorFieldMillis protowire.Number = 1
	cursorFieldID     protowire.Number = 2
)

var (
	ErrInvalidCursor = apperr.New(apperr.KindValidation, "malformed cursor")
	ErrBothCursors   = apperr.New(apperr.KindValidation, "before and after are mutually exclusive")
	ErrInvalidLimit  = apperr.New(apperr.KindValidation, "limit must be a positive integer")
)

// Cursor is a position in channel order, rendered as an opaque string.
type Cursor struct {
	At time.Time
	ID model.ID
}

// OriginCursor sorts before every message; paging after it starts at the
// oldest message of a channel.
var OriginCursor = Cursor{At: time.UnixMilli(0).UTC()}

func cursorOf(m *model.Message) Cursor {
	return Cursor{At: m.CreatedAt, ID: m.ID}
}

func (c Cursor) isOrigin() bool {
	return c.ID.IsNil() && c.At.UnixMilli() == 0
}

func (c Cursor) key() *model.OrderKey {
	if c.isOrigin() {
		return nil
	}
	return &model.OrderKey{CreatedAt: c.At, ID: c.ID}
}

// String encodes the cursor as base64url over two protobuf fields: the
// creation time in Unix milliseconds and the 16 identifier bytes.
func (c Cursor) String() string {
	b := protowire.AppendTag(nil, cursorFieldMillis, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.At.UnixMilli()))
	b = protowire.AppendTag(b, cursorFieldID, protowire.BytesType)
	b = protowire.AppendBytes(b, c.ID.Bytes())
	return base64.RawURLEncoding.EncodeToString(b)
}

func (c Cursor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCursor decodes a cursor produced by String.
func ParseCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) == 0 {
		return Cursor{}, ErrInvalidCursor
	}

	var (
		c              Cursor
		haveAt, haveID bool
	)
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return Cursor{}, ErrInvalidCursor
		}
		raw = raw[n:]
		switch {
		case num == cursorFieldMillis && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return Cursor{}, ErrInvalidCursor
			}
			c.At = time.UnixMilli(int64(v)).UTC()
			haveAt = true
			raw = raw[n:]
		case num == cursorFieldID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return Cursor{}, ErrInvalidCursor
			}
			id, err := model.IDFromBytes(v)
			if err != nil {
				return Cursor{}, ErrInvalidCursor
			}
			c.ID = id
			haveID = true
			raw = raw[n:]
		default:
			return Cursor{}, ErrInvalidCursor
		}
	}
	if !haveAt || !haveID {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}

// PageQuery selects one page. At most one of Before and After is set; a nil
// Limit means the configured default.
type PageQuery struct {
	Before *Cursor
	After  *Cursor
	Limit  *int
}

// Page is a slice of channel history ordered newest first. Before is the
// cursor of the oldest message in the page and After of the newest; both are
// empty for an empty page. HasMore reports whether more messages lie further
// in the paging direction.
type Page struct {
	Messages []*model.Message `json:"messages"`
	Before   string           `json:"before,omitempty"`
	After    string           `json:"after,omitempty"`
	HasMore  bool             `json:"has_more"`
}

// ParsePageQuery validates raw boundary parameters. Clamping to the maximum
// happens in Paginate.
func ParsePageQuery(before, after, limit string) (PageQuery, error) {
	var q PageQuery
	if before != "" && after != "" {
		return q, ErrBothCursors
	}
	if before != "" {
		c, err := ParseCursor(before)
		if err != nil {
			return q, err
		}
		q.Before = &c
	}
	if after != "" {
		c, err := ParseCursor(after)
		if err != nil {
			return q, err
		}
		q.After = &c
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return q, ErrInvalidLimit
		}
		q.Limit = &n
	}
	return q, nil
}
