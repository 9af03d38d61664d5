package models

// Role is the forum-wide role carried by every actor.
type Role string

const (
	RoleGuest        Role = "guest"
	RoleMember       Role = "member"
	RoleExpert       Role = "expert"
	RoleLegalAdvisor Role = "legalAdvisor"
	RoleModerator    Role = "moderator"
	RoleAdmin        Role = "admin"
)

var allRoles = []Role{RoleGuest, RoleMember, RoleExpert, RoleLegalAdvisor, RoleModerator, RoleAdmin}

// AllRoles lists every role, lowest privilege first.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole returns the Role matching s exactly.
func ParseRole(s string) (Role, bool) {
	for _, r := range allRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// IsCredentialed reports whether answers by this role unlock discussion.
func (r Role) IsCredentialed() bool {
	return r == RoleExpert || r == RoleLegalAdvisor
}

// CanModerate reports whether the role carries moderation rights.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

// CanAnswer reports whether the role may post answers at all.
func (r Role) CanAnswer() bool {
	return r == RoleExpert || r == RoleLegalAdvisor || r == RoleAdmin
}

// Category groups questions by the kind of specialist expected to answer.
type Category string

const (
	CategoryExpert Category = "expertCategory"
	CategoryLegal  Category = "legalCategory"
)

// ParseCategory validates a category name; empty input maps to the expert category.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case "":
		return CategoryExpert, true
	case CategoryExpert, CategoryLegal:
		return Category(s), true
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority validates a priority name; empty input maps to normal.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case "":
		return PriorityNormal, true
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return Priority(s), true
	}
	return "", false
}

type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
	QuestionClosed   QuestionStatus = "closed"
)

type AnswerStatus string

const (
	AnswerPending  AnswerStatus = "pending"
	AnswerApproved AnswerStatus = "approved"
	AnswerRejected AnswerStatus = "rejected"
)

// ContentKind names the target of a capability check or an audit entry.
type ContentKind string

const (
	KindQuestion ContentKind = "question"
	KindAnswer   ContentKind = "answer"
	KindComment  ContentKind = "comment"
	KindUser     ContentKind = "user"
)
