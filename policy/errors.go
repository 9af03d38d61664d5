// Package policy holds the forum's content lifecycle and access-control rules:
// capability resolution, status transitions, the comment gate and moderation
// verdicts. Everything here is pure; callers load snapshots, ask for a
// decision, and persist the result themselves.
package policy

import (
	"errors"
	"fmt"
)

// Kind classifies why an action was refused.
type Kind string

const (
	KindForbidden              Kind = "forbidden"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindStaleConflict          Kind = "stale_conflict"
	KindPolicyGateClosed       Kind = "policy_gate_closed"
	KindInvalidInput           Kind = "invalid_input"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrStaleConflict          = errors.New("stale conflict")
	ErrPolicyGateClosed       = errors.New("policy gate closed")
	ErrInvalidInput           = errors.New("invalid input")
)

// Machine-readable reason codes carried by decisions and errors.
const (
	ReasonNotAuthenticated     = "not_authenticated"
	ReasonInactive             = "actor_inactive"
	ReasonBanned               = "actor_banned"
	ReasonRoleNotAllowed       = "role_not_allowed"
	ReasonAlreadyAnswered      = "already_answered"
	ReasonNotAuthor            = "not_author"
	ReasonEditWindowExpired    = "edit_window_expired"
	ReasonDeleteWindowExpired  = "delete_window_expired"
	ReasonQuestionHasAnswers   = "question_has_answers"
	ReasonAnswerWasApproved    = "answer_was_approved"
	ReasonAnswerNotApproved    = "answer_not_approved"
	ReasonAlreadyBest          = "already_best"
	ReasonBestAnswerExists     = "best_answer_exists"
	ReasonQuestionClosed       = "question_closed"
	ReasonNotApplicable        = "not_applicable"
	ReasonModeratorOnly        = "moderator_only"
	ReasonAdminOnly            = "admin_only"
	ReasonSelfTarget           = "self_target"
	ReasonNotBanned            = "not_banned"
	ReasonInvalidBanDuration   = "invalid_ban_duration"
	ReasonUnknownRole          = "unknown_role"
	ReasonRoleNotAssignable    = "role_not_assignable"
	ReasonRoleUnchanged        = "role_unchanged"
	ReasonUnknownVerdict       = "unknown_verdict"
	ReasonTransitionNotAllowed = "transition_not_allowed"
	ReasonReplyDepthExceeded   = "reply_depth_exceeded"
	ReasonParentMismatch       = "parent_mismatch"
	ReasonNotFound             = "not_found"
	ReasonStaleSnapshot        = "stale_snapshot"
	ReasonNoExpertAnswers      = "no_expert_answers"
)

var reasonMessages = map[string]string{
	ReasonNotAuthenticated:     "sign in to perform this action",
	ReasonInactive:             "account is not active",
	ReasonBanned:               "account is banned",
	ReasonRoleNotAllowed:       "your role cannot perform this action",
	ReasonAlreadyAnswered:      "you have already answered this question",
	ReasonNotAuthor:            "only the author can perform this action",
	ReasonEditWindowExpired:    "the edit window has expired",
	ReasonDeleteWindowExpired:  "the delete window has expired",
	ReasonQuestionHasAnswers:   "questions with answers cannot be deleted",
	ReasonAnswerWasApproved:    "approved answers cannot be deleted by their author",
	ReasonAnswerNotApproved:    "only approved answers can be accepted",
	ReasonAlreadyBest:          "answer is already the best answer",
	ReasonBestAnswerExists:     "another answer has already been accepted",
	ReasonQuestionClosed:       "question is closed",
	ReasonNotApplicable:        "action does not apply to this content",
	ReasonModeratorOnly:        "moderator rights required",
	ReasonAdminOnly:            "admin rights required",
	ReasonSelfTarget:           "you cannot perform this action on yourself",
	ReasonNotBanned:            "user is not banned",
	ReasonInvalidBanDuration:   "ban duration must be positive unless permanent",
	ReasonUnknownRole:          "unknown role",
	ReasonRoleNotAssignable:    "role cannot be assigned",
	ReasonRoleUnchanged:        "user already has this role",
	ReasonUnknownVerdict:       "unknown moderation verdict",
	ReasonTransitionNotAllowed: "status transition not allowed",
	ReasonReplyDepthExceeded:   "replies to replies are not allowed",
	ReasonParentMismatch:       "parent comment belongs to another question",
	ReasonNotFound:             "content not found",
	ReasonStaleSnapshot:        "content changed since it was loaded, reload and retry",
	ReasonNoExpertAnswers:      "discussion opens after an expert answer is approved",
}

// Error is a typed refusal. It unwraps to the sentinel matching its Kind so
// callers can use errors.Is(err, ErrForbidden).
type Error struct {
	Kind    Kind
	Reason  string
	Message string
}

func newError(kind Kind, reason string) *Error {
	msg, ok := reasonMessages[reason]
	if !ok {
		msg = reason
	}
	return &Error{Kind: kind, Reason: reason, Message: msg}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindForbidden:
		return ErrForbidden
	case KindInvalidStateTransition:
		return ErrInvalidStateTransition
	case KindStaleConflict:
		return ErrStaleConflict
	case KindPolicyGateClosed:
		return ErrPolicyGateClosed
	case KindInvalidInput:
		return ErrInvalidInput
	}
	return nil
}

// AsError extracts a policy error from err.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the kind of a policy error, or "" for anything else.
func KindOf(err error) Kind {
	if pe, ok := AsError(err); ok {
		return pe.Kind
	}
	return ""
}

// Decision is the outcome of a single capability check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Kind    Kind   `json:"kind,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision { return Decision{Allowed: true} }

func deny(kind Kind, reason string) Decision {
	return Decision{Kind: kind, Reason: reason}
}

// Err converts a denied decision into a typed error; allowed decisions yield nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return newError(d.Kind, d.Reason)
}
