package model

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// InviteCodeLength is the fixed length of every invite code.
const InviteCodeLength = 8

// InviteCode is a case-sensitive alphanumeric code.
type InviteCode string

func (InviteCode) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "VARCHAR(8) CHARACTER SET ascii COLLATE ascii_bin"
	case "postgres":
		return "VARCHAR(8)"
	default:
		return "TEXT"
	}
}

// Valid reports whether c has the fixed length and alphabet.
func (c InviteCode) Valid() bool {
	if len(c) != InviteCodeLength {
		return false
	}
	for i := 0; i < len(c); i++ {
		ch := c[i]
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9') {
			return false
		}
	}
	return true
}

// Invite grants membership in a server. A nil MaxUses or ExpiresAt means
// unbounded. Uses only grows, and never exceeds MaxUses when set.
type Invite struct {
	Code      InviteCode `gorm:"primaryKey" json:"code"`
	ServerID  ID         `gorm:"index;not null" json:"server_id"`
	InviterID ID         `gorm:"not null" json:"inviter_id"`
	MaxUses   *int       `json:"max_uses,omitempty"`
	Uses      int        `gorm:"not null;default:0" json:"uses"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Invite) TableName() string {
	return "invites"
}

// InviteState is the logical lifecycle state of an invite.
type InviteState uint8

const (
	InviteActive InviteState = iota + 1
	InviteExhausted
	InviteExpired
)

var inviteStates = newEnumTable("invite state", map[InviteState]string{
	InviteActive:    "active",
	InviteExhausted: "exhausted",
	InviteExpired:   "expired",
})

func (s InviteState) String() string {
	return inviteStates.format(s)
}

func (s InviteState) MarshalText() ([]byte, error) {
	return marshalToken(inviteStates, s)
}

// State evaluates the invite at now. Expiry wins over exhaustion.
func (i *Invite) State(now time.Time) InviteState {
	if i.ExpiresAt != nil && !now.Before(*i.ExpiresAt) {
		return InviteExpired
	}
	if i.MaxUses != nil && i.Uses >= *i.MaxUses {
		return InviteExhausted
	}
	return InviteActive
}
