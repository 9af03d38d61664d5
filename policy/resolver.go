package policy

import (
	"time"

	"github.com/cppla/expertqa/models"
)

const (
	DefaultEditWindow           = 24 * time.Hour
	DefaultQuestionDeleteWindow = time.Hour
)

// Resolver computes capability sets. Now is injectable so windows can be
// tested at exact offsets.
type Resolver struct {
	EditWindow           time.Duration
	QuestionDeleteWindow time.Duration
	Now                  func() time.Time
}

// NewResolver returns a Resolver with the default windows and the wall clock.
func NewResolver() *Resolver {
	return &Resolver{
		EditWindow:           DefaultEditWindow,
		QuestionDeleteWindow: DefaultQuestionDeleteWindow,
		Now:                  time.Now,
	}
}

func (r *Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Target is the content a capability set is computed for. Question is always
// set; Answer or Comment is set according to Kind.
type Target struct {
	Kind     models.ContentKind
	Question *models.Question
	Answer   *models.Answer
	Comment  *models.Comment
}

func QuestionTarget(q *models.Question) Target {
	return Target{Kind: models.KindQuestion, Question: q}
}

func AnswerTarget(q *models.Question, a *models.Answer) Target {
	return Target{Kind: models.KindAnswer, Question: q, Answer: a}
}

func CommentTarget(q *models.Question, c *models.Comment) Target {
	return Target{Kind: models.KindComment, Question: q, Comment: c}
}

// ID returns the identifier of the targeted content.
func (t Target) ID() uint {
	switch t.Kind {
	case models.KindAnswer:
		return t.Answer.ID
	case models.KindComment:
		return t.Comment.ID
	}
	return t.Question.ID
}

func (t Target) authorID() uint {
	switch t.Kind {
	case models.KindAnswer:
		return t.Answer.AuthorID
	case models.KindComment:
		return t.Comment.AuthorID
	}
	return t.Question.AuthorID
}

func (t Target) createdAt() time.Time {
	switch t.Kind {
	case models.KindAnswer:
		return t.Answer.CreatedAt
	case models.KindComment:
		return t.Comment.CreatedAt
	}
	return t.Question.CreatedAt
}

// CapabilitySet lists what an actor may do with a piece of content right now.
type CapabilitySet struct {
	CanAnswer       Decision   `json:"can_answer"`
	CanAcceptAnswer Decision   `json:"can_accept_answer"`
	CanEdit         Decision   `json:"can_edit"`
	CanDelete       Decision   `json:"can_delete"`
	CanModerate     Decision   `json:"can_moderate"`
	CanComment      Decision   `json:"can_comment"`
	CommentGate     GateResult `json:"comment_gate"`
}

// Resolve computes every capability of actor on target. siblings are the
// answers attached to target.Question. A nil actor is an anonymous visitor.
func (r *Resolver) Resolve(actor *models.User, target Target, siblings []models.Answer) CapabilitySet {
	set := CapabilitySet{
		CanAnswer:   r.CanAnswer(actor, target.Question, siblings),
		CanEdit:     r.CanEdit(actor, target),
		CanDelete:   r.CanDelete(actor, target, siblings),
		CanModerate: r.CanModerate(actor),
		CanComment:  r.CanComment(actor, target.Question, siblings),
		CommentGate: Gate(actor, target.Question, siblings),
	}
	if target.Kind == models.KindAnswer {
		set.CanAcceptAnswer = r.CanAcceptAnswer(actor, target.Question, target.Answer, siblings)
	} else {
		set.CanAcceptAnswer = deny(KindInvalidInput, ReasonNotApplicable)
	}
	// the gate flag also reflects the actor's standing
	set.CommentGate.CanComment = set.CanComment.Allowed
	return set
}

// standing refuses actors that may not mutate anything: anonymous visitors,
// deactivated accounts and accounts under an active ban.
func (r *Resolver) standing(actor *models.User) Decision {
	if actor == nil || actor.Role == models.RoleGuest || actor.Role == "" {
		return deny(KindForbidden, ReasonNotAuthenticated)
	}
	if !actor.IsActive {
		return deny(KindForbidden, ReasonInactive)
	}
	if actor.BanActive(r.now()) {
		return deny(KindForbidden, ReasonBanned)
	}
	return allow()
}

// CanReact reports whether actor may leave lightweight reactions such as likes.
func (r *Resolver) CanReact(actor *models.User) Decision {
	return r.standing(actor)
}

// CanAnswer applies the one-answer-per-expert rule. The check is advisory;
// the store enforces the same rule with a unique index.
func (r *Resolver) CanAnswer(actor *models.User, q *models.Question, siblings []models.Answer) Decision {
	if d := r.standing(actor); !d.Allowed {
		return d
	}
	if !actor.Role.CanAnswer() {
		return deny(KindForbidden, ReasonRoleNotAllowed)
	}
	if q.Status == models.QuestionClosed {
		return deny(KindInvalidStateTransition, ReasonQuestionClosed)
	}
	for i := range siblings {
		if siblings[i].AuthorID == actor.ID {
			return deny(KindPolicyGateClosed, ReasonAlreadyAnswered)
		}
	}
	return allow()
}

// CanAcceptAnswer reports whether actor may mark a as the best answer of q.
func (r *Resolver) CanAcceptAnswer(actor *models.User, q *models.Question, a *models.Answer, siblings []models.Answer) Decision {
	if d := r.standing(actor); !d.Allowed {
		return d
	}
	if a == nil || a.QuestionID != q.ID {
		return deny(KindInvalidInput, ReasonNotFound)
	}
	if actor.ID != q.AuthorID && actor.Role != models.RoleAdmin {
		return deny(KindForbidden, ReasonNotAuthor)
	}
	if q.Status == models.QuestionClosed {
		return deny(KindInvalidStateTransition, ReasonQuestionClosed)
	}
	if a.Status != models.AnswerApproved {
		return deny(KindInvalidStateTransition, ReasonAnswerNotApproved)
	}
	if a.IsBest {
		return deny(KindInvalidStateTransition, ReasonAlreadyBest)
	}
	for i := range siblings {
		if siblings[i].ID != a.ID && siblings[i].IsBest {
			return deny(KindStaleConflict, ReasonBestAnswerExists)
		}
	}
	return allow()
}

// CanEdit lets authors edit within EditWindow and moderators at any time.
func (r *Resolver) CanEdit(actor *models.User, target Target) Decision {
	if d := r.standing(actor); !d.Allowed {
		return d
	}
	if actor.Role.CanModerate() {
		return allow()
	}
	if target.authorID() != actor.ID {
		return deny(KindForbidden, ReasonNotAuthor)
	}
	if r.now().Sub(target.createdAt()) > r.EditWindow {
		return deny(KindForbidden, ReasonEditWindowExpired)
	}
	return allow()
}

// CanDelete applies the per-kind self-service delete rules. Moderators may
// always delete.
func (r *Resolver) CanDelete(actor *models.User, target Target, siblings []models.Answer) Decision {
	if d := r.standing(actor); !d.Allowed {
		return d
	}
	if actor.Role.CanModerate() {
		return allow()
	}
	if target.authorID() != actor.ID {
		return deny(KindForbidden, ReasonNotAuthor)
	}
	switch target.Kind {
	case models.KindQuestion:
		// any attached answer, even pending, locks the question
		if len(siblings) > 0 {
			return deny(KindInvalidStateTransition, ReasonQuestionHasAnswers)
		}
		if r.now().Sub(target.Question.CreatedAt) > r.QuestionDeleteWindow {
			return deny(KindForbidden, ReasonDeleteWindowExpired)
		}
	case models.KindAnswer:
		if target.Answer.WasApproved || target.Answer.Status == models.AnswerApproved {
			return deny(KindInvalidStateTransition, ReasonAnswerWasApproved)
		}
	}
	return allow()
}

func (r *Resolver) CanModerate(actor *models.User) Decision {
	if d := r.standing(actor); !d.Allowed {
		return d
	}
	if !actor.Role.CanModerate() {
		return deny(KindForbidden, ReasonModeratorOnly)
	}
	return allow()
}

// CanComment consults the comment gate first so the gate's reason wins, then
// refuses actors without standing.
func (r *Resolver) CanComment(actor *models.User, q *models.Question, answers []models.Answer) Decision {
	g := Gate(actor, q, answers)
	switch g.Reason {
	case GateNotAuthenticated:
		return deny(KindForbidden, ReasonNotAuthenticated)
	case GateNoExpertAnswers:
		return deny(KindPolicyGateClosed, ReasonNoExpertAnswers)
	}
	return r.standing(actor)
}
