package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrAuditImmutable is returned when something tries to update a stored audit entry.
var ErrAuditImmutable = errors.New("audit entries are immutable")

// BanAction distinguishes ban and unban records.
type BanAction string

const (
	BanActionBan   BanAction = "ban"
	BanActionUnban BanAction = "unban"
)

// BanRecord is the audit trail of a ban or unban. IssuedByID is 0 for
// bans lifted automatically on expiry. BatchID groups records of one bulk
// request.
type BanRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	IssuedByID   uint       `gorm:"index" json:"issued_by_id"`
	Action       BanAction  `gorm:"size:16;not null" json:"action"`
	Reason       string     `gorm:"size:512" json:"reason"`
	DurationDays int        `json:"duration_days"`
	Permanent    bool       `json:"permanent"`
	BannedUntil  *time.Time `json:"banned_until"`
	BatchID      string     `gorm:"size:36;index" json:"batch_id,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

func (*BanRecord) BeforeUpdate(tx *gorm.DB) error { return ErrAuditImmutable }

// RoleChange records a single role transition of a user.
type RoleChange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   uint      `gorm:"index;not null" json:"actor_id"`
	TargetID  uint      `gorm:"index;not null" json:"target_id"`
	OldRole   Role      `gorm:"size:32;not null" json:"old_role"`
	NewRole   Role      `gorm:"size:32;not null" json:"new_role"`
	Reason    string    `gorm:"size:512" json:"reason"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (*RoleChange) BeforeUpdate(tx *gorm.DB) error { return ErrAuditImmutable }

// Verdict is a moderation decision applied to content.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictReject  Verdict = "reject"
	VerdictDelete  Verdict = "delete"
	VerdictClose   Verdict = "close"
)

// ParseVerdict validates a verdict name.
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(s) {
	case VerdictApprove, VerdictReject, VerdictDelete, VerdictClose:
		return Verdict(s), true
	}
	return "", false
}

// ModerationLog attributes a content verdict to the moderator who issued it.
// BatchID groups entries produced by one bulk request.
type ModerationLog struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	ActorID    uint        `gorm:"index;not null" json:"actor_id"`
	TargetKind ContentKind `gorm:"size:16;not null;index:idx_modlog_target" json:"target_kind"`
	TargetID   uint        `gorm:"not null;index:idx_modlog_target" json:"target_id"`
	Verdict    Verdict     `gorm:"size:16;not null" json:"verdict"`
	Reason     string      `gorm:"size:512" json:"reason"`
	BatchID    string      `gorm:"size:36;index" json:"batch_id,omitempty"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
}

func (*ModerationLog) BeforeUpdate(tx *gorm.DB) error { return ErrAuditImmutable }
