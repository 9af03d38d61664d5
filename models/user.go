package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a forum account. Passwords are stored as bcrypt hashes only.
// IsBanned=false always implies BannedUntil=nil.
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Username       string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email          string         `gorm:"size:255" json:"-"`
	PasswordHash   string         `gorm:"size:255" json:"-"`
	Role           Role           `gorm:"size:32;not null;default:'member'" json:"role"`
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`
	IsBanned       bool           `gorm:"not null;default:false;index" json:"is_banned"`
	BannedUntil    *time.Time     `json:"banned_until"`
	IsPermanentBan bool           `gorm:"not null;default:false" json:"is_permanent_ban"`
	BanReason      string         `gorm:"size:512" json:"ban_reason,omitempty"`
	Signature      string         `gorm:"size:255" json:"signature"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps and the default role are set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleMember
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// BanActive reports whether a ban is in force at now. A temporary ban whose
// BannedUntil has passed is no longer active even before it is cleared.
func (u *User) BanActive(now time.Time) bool {
	if u == nil || !u.IsBanned {
		return false
	}
	if u.IsPermanentBan || u.BannedUntil == nil {
		return true
	}
	return now.Before(*u.BannedUntil)
}

// BanColumns returns the ban fields as a column map so that gorm persists
// cleared values instead of skipping them as zero.
func (u *User) BanColumns() map[string]interface{} {
	return map[string]interface{}{
		"is_banned":        u.IsBanned,
		"banned_until":     u.BannedUntil,
		"is_permanent_ban": u.IsPermanentBan,
		"ban_reason":       u.BanReason,
	}
}
