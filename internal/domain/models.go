// Package domain defines the persistence models for users, their login
// sessions, and chat messages. These types are mapped with GORM and form the
// core data layer of the chat proxy.
package domain

import (
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	// RoleHuman marks a message typed by the user.
	RoleHuman Role = "human"
	// RoleAI marks a reply produced by the language model.
	RoleAI Role = "ai"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleHuman || r == RoleAI
}

// MaxSessionIDLen caps the caller-supplied conversation key.
const MaxSessionIDLen = 50

// User is an account that can log in and own chat history.
//
// Fields:
//   - ID: autoincrement primary key.
//   - Email: unique login name, stored case-folded and trimmed.
//   - PasswordHash: bcrypt hash; the plaintext password is never stored.
//   - Name: display name (may be empty).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID           uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Email        string    `json:"email"      gorm:"type:varchar(100);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"column:password_hash;type:varchar(255);not null"`
	Name         string    `json:"name"       gorm:"type:varchar(100)"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// ChatMessage is one turn half (human prompt or model reply) of a conversation.
//
// Messages are grouped by the caller-supplied SessionID and ordered by
// Timestamp, which the repository assigns at insert time. UserID is nullable
// so that rows can outlive (or predate) an owning account.
type ChatMessage struct {
	ID        uint      `json:"id"        gorm:"primaryKey;autoIncrement"`
	UserID    *uint     `json:"-"         gorm:"index:idx_user_session_ts,priority:1"`
	SessionID string    `json:"session_id" gorm:"type:varchar(50);not null;index:idx_user_session_ts,priority:2;index:idx_session"`
	Role      Role      `json:"role"      gorm:"type:varchar(10);not null;check:chk_chat_messages_role,role IN ('human','ai')"`
	Content   string    `json:"content"   gorm:"type:text;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:idx_user_session_ts,priority:3"`

	// User is the owning account. Deleting a user orphans its messages.
	User *User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// AuthSession is the server-side half of a login. The signed session cookie
// carries its ID; deleting the row logs the browser out.
type AuthSession struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    uint      `json:"user_id"    gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AuthSession.
func (AuthSession) TableName() string { return "auth_sessions" }

// Expired reports whether the session is no longer valid at now.
func (s AuthSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
