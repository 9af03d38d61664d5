package policy

import "github.com/cppla/expertqa/models"

// GateReason explains the state of the comment gate.
type GateReason string

const (
	GateNotAuthenticated GateReason = "not_authenticated"
	GateNoExpertAnswers  GateReason = "no_expert_answers"
	GateOpen             GateReason = "none"
)

// GateResult tells the caller whether to show the discussion area and whether
// the actor may post in it.
type GateResult struct {
	Show       bool       `json:"show"`
	CanComment bool       `json:"can_comment"`
	Reason     GateReason `json:"reason"`
}

// Gate decides whether discussion on q is unlocked for actor. Reasons are
// checked in priority order: missing actor first, then the absence of an
// approved answer from an expert or legal advisor. Answers must have Author
// loaded for their role to count.
func Gate(actor *models.User, q *models.Question, answers []models.Answer) GateResult {
	if actor == nil || actor.Role == models.RoleGuest || actor.Role == "" {
		return GateResult{Show: true, CanComment: false, Reason: GateNotAuthenticated}
	}
	if !HasExpertAnswer(q, answers) {
		return GateResult{Show: true, CanComment: false, Reason: GateNoExpertAnswers}
	}
	return GateResult{Show: true, CanComment: true, Reason: GateOpen}
}

// HasExpertAnswer reports whether any approved answer on q was written by a
// credentialed author.
func HasExpertAnswer(q *models.Question, answers []models.Answer) bool {
	for i := range answers {
		a := &answers[i]
		if q != nil && a.QuestionID != q.ID {
			continue
		}
		if a.Status == models.AnswerApproved && a.Author.Role.IsCredentialed() {
			return true
		}
	}
	return false
}

// ValidateReply checks that a new comment replying to parent stays within a
// single level of nesting on the same question. A nil parent is a top-level
// comment and always valid.
func ValidateReply(q *models.Question, parent *models.Comment) error {
	if parent == nil {
		return nil
	}
	if q != nil && parent.QuestionID != q.ID {
		return newError(KindInvalidInput, ReasonParentMismatch)
	}
	if parent.ParentID != nil {
		return newError(KindInvalidStateTransition, ReasonReplyDepthExceeded)
	}
	return nil
}
