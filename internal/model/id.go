package model

import (
	"bytes"
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ID is a 128-bit identifier. New values are UUIDv7 so they sort roughly by
// creation time. It is stored as 16 raw bytes and rendered as hyphenated hex.
type ID uuid.UUID

// Nil is the zero identifier.
var Nil ID

// NewID returns a fresh time-ordered identifier.
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the system random source does.
		return ID(uuid.New())
	}
	return ID(id)
}

// ParseID parses the hyphenated hex form.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return ID(u), nil
}

// MustParseID is ParseID for constants in tests and fixtures.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IDFromBytes builds an ID from its 16-byte form.
func IDFromBytes(b []byte) (ID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return Nil, err
	}
	return ID(u), nil
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

func (id ID) IsNil() bool {
	return id == Nil
}

// Bytes returns the 16-byte storage form.
func (id ID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

// Compare orders identifiers by their byte representation.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	return id.Bytes(), nil
}

// Scan implements sql.Scanner. Both the raw and the textual form are accepted.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*id = Nil
		return nil
	case []byte:
		if len(v) == 16 {
			parsed, err := IDFromBytes(v)
			if err != nil {
				return err
			}
			*id = parsed
			return nil
		}
		return id.UnmarshalText(v)
	case string:
		return id.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into model.ID", src)
	}
}

// GormDataType implements schema.GormDataTypeInterface.
func (ID) GormDataType() string {
	return "bytes"
}

// GormDBDataType picks the binary column type for each dialect.
func (ID) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "BINARY(16)"
	case "postgres":
		return "BYTEA"
	default:
		return "BLOB"
	}
}

// NullID is an optional identifier.
type NullID struct {
	ID    ID
	Valid bool
}

// Some wraps id as a present optional value.
func Some(id ID) NullID {
	return NullID{ID: id, Valid: true}
}

func (n NullID) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.ID.Value()
}

func (n *NullID) Scan(src any) error {
	if src == nil {
		*n = NullID{}
		return nil
	}
	if err := n.ID.Scan(src); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n NullID) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(`"` + n.ID.String() + `"`), nil
}

func (n *NullID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullID{}
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid id %s", b)
	}
	if err := n.ID.UnmarshalText(b[1 : len(b)-1]); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (NullID) GormDataType() string {
	return "bytes"
}

func (NullID) GormDBDataType(db *gorm.DB, f *schema.Field) string {
	return ID{}.GormDBDataType(db, f)
}
