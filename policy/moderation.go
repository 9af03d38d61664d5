package policy

import (
	"strings"
	"time"

	"github.com/cppla/expertqa/models"
)

// Coordinator applies moderation verdicts to loaded snapshots and produces the
// audit entries that make each change attributable. It never persists
// anything itself.
type Coordinator struct {
	Resolver *Resolver
}

func NewCoordinator(r *Resolver) *Coordinator {
	return &Coordinator{Resolver: r}
}

func (c *Coordinator) now() time.Time { return c.Resolver.now() }

// BanOptions describes a ban. Permanence is an explicit flag; a temporary ban
// needs a positive DurationDays.
type BanOptions struct {
	Reason       string
	DurationDays int
	Permanent    bool
}

func (c *Coordinator) requireAdmin(actor *models.User) error {
	if d := c.Resolver.standing(actor); !d.Allowed {
		return d.Err()
	}
	if actor.Role != models.RoleAdmin {
		return newError(KindForbidden, ReasonAdminOnly)
	}
	return nil
}

// BanUser bans target on behalf of an admin actor.
func (c *Coordinator) BanUser(actor, target *models.User, opts BanOptions) (*models.BanRecord, error) {
	if err := c.requireAdmin(actor); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, newError(KindInvalidInput, ReasonNotFound)
	}
	if target.ID == actor.ID {
		return nil, newError(KindForbidden, ReasonSelfTarget)
	}
	if !opts.Permanent && opts.DurationDays <= 0 {
		return nil, newError(KindInvalidInput, ReasonInvalidBanDuration)
	}

	now := c.now()
	reason := strings.TrimSpace(opts.Reason)
	target.IsBanned = true
	target.BanReason = reason
	if opts.Permanent {
		target.IsPermanentBan = true
		target.BannedUntil = nil
		opts.DurationDays = 0
	} else {
		until := now.Add(time.Duration(opts.DurationDays) * 24 * time.Hour)
		target.IsPermanentBan = false
		target.BannedUntil = &until
	}

	return &models.BanRecord{
		UserID:       target.ID,
		IssuedByID:   actor.ID,
		Action:       models.BanActionBan,
		Reason:       reason,
		DurationDays: opts.DurationDays,
		Permanent:    opts.Permanent,
		BannedUntil:  copyTime(target.BannedUntil),
		CreatedAt:    now,
	}, nil
}

// UnbanUser lifts a ban on behalf of an admin actor.
func (c *Coordinator) UnbanUser(actor, target *models.User, reason string) (*models.BanRecord, error) {
	if err := c.requireAdmin(actor); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, newError(KindInvalidInput, ReasonNotFound)
	}
	if !target.IsBanned {
		return nil, newError(KindInvalidStateTransition, ReasonNotBanned)
	}
	clearBan(target)
	return &models.BanRecord{
		UserID:     target.ID,
		IssuedByID: actor.ID,
		Action:     models.BanActionUnban,
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  c.now(),
	}, nil
}

// ExpireBan clears a temporary ban whose end has passed at now and returns the
// unban record attributed to the system. It returns nil when nothing changed.
func ExpireBan(u *models.User, now time.Time) *models.BanRecord {
	if u == nil || !u.IsBanned || u.IsPermanentBan || u.BannedUntil == nil {
		return nil
	}
	if now.Before(*u.BannedUntil) {
		return nil
	}
	clearBan(u)
	return &models.BanRecord{
		UserID:    u.ID,
		Action:    models.BanActionUnban,
		Reason:    "ban expired",
		CreatedAt: now,
	}
}

func clearBan(u *models.User) {
	u.IsBanned = false
	u.BannedUntil = nil
	u.IsPermanentBan = false
	u.BanReason = ""
}

// ChangeRole assigns newRole to target and returns the role-change entry.
func (c *Coordinator) ChangeRole(actor, target *models.User, newRole models.Role, reason string) (*models.RoleChange, error) {
	if err := c.requireAdmin(actor); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, newError(KindInvalidInput, ReasonNotFound)
	}
	if target.ID == actor.ID {
		return nil, newError(KindForbidden, ReasonSelfTarget)
	}
	if _, ok := models.ParseRole(string(newRole)); !ok {
		return nil, newError(KindInvalidInput, ReasonUnknownRole)
	}
	if newRole == models.RoleGuest {
		return nil, newError(KindInvalidInput, ReasonRoleNotAssignable)
	}
	if target.Role == newRole {
		return nil, newError(KindInvalidStateTransition, ReasonRoleUnchanged)
	}

	old := target.Role
	target.Role = newRole
	return &models.RoleChange{
		ActorID:   actor.ID,
		TargetID:  target.ID,
		OldRole:   old,
		NewRole:   newRole,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: c.now(),
	}, nil
}

// ModerateAnswer approves or rejects one answer of q. Rejecting the best
// answer clears it and sends an answered question back to pending.
func (c *Coordinator) ModerateAnswer(actor *models.User, q *models.Question, answers []models.Answer, answerID uint, verdict models.Verdict, reason string) (*models.ModerationLog, error) {
	if d := c.Resolver.CanModerate(actor); !d.Allowed {
		return nil, d.Err()
	}
	idx := indexOfAnswer(answers, answerID)
	if idx < 0 {
		return nil, newError(KindInvalidInput, ReasonNotFound)
	}

	var to models.AnswerStatus
	switch verdict {
	case models.VerdictApprove:
		to = models.AnswerApproved
	case models.VerdictReject:
		to = models.AnswerRejected
	default:
		return nil, newError(KindInvalidInput, ReasonUnknownVerdict)
	}

	a := &answers[idx]
	wasBest := a.IsBest
	if err := TransitionAnswer(a, to); err != nil {
		return nil, err
	}
	if wasBest && to == models.AnswerRejected && q.Status == models.QuestionAnswered {
		if err := TransitionQuestion(q, models.QuestionPending); err != nil {
			return nil, err
		}
	}
	return c.logEntry(actor, models.KindAnswer, a.ID, verdict, reason), nil
}

// CloseQuestion closes q. Closed questions accept no further transitions.
func (c *Coordinator) CloseQuestion(actor *models.User, q *models.Question, reason string) (*models.ModerationLog, error) {
	if d := c.Resolver.CanModerate(actor); !d.Allowed {
		return nil, d.Err()
	}
	if err := TransitionQuestion(q, models.QuestionClosed); err != nil {
		return nil, err
	}
	return c.logEntry(actor, models.KindQuestion, q.ID, models.VerdictClose, reason), nil
}

// AuthorizeDelete checks the delete rules for target. Deletes issued under
// moderation rights return a log entry; self-service deletes return nil.
func (c *Coordinator) AuthorizeDelete(actor *models.User, target Target, siblings []models.Answer, reason string) (*models.ModerationLog, error) {
	if d := c.Resolver.CanDelete(actor, target, siblings); !d.Allowed {
		return nil, d.Err()
	}
	if !actor.Role.CanModerate() {
		return nil, nil
	}
	return c.logEntry(actor, target.Kind, target.ID(), models.VerdictDelete, reason), nil
}

// DeleteAnswer authorizes removing answers[answerID] from q. Deleting the
// best answer sends an answered question back to pending. q is updated in
// place; the caller removes the answer row and persists q.Status.
func (c *Coordinator) DeleteAnswer(actor *models.User, q *models.Question, answers []models.Answer, answerID uint, reason string) (*models.ModerationLog, error) {
	idx := indexOfAnswer(answers, answerID)
	if idx < 0 {
		return nil, newError(KindInvalidInput, ReasonNotFound)
	}
	a := &answers[idx]
	entry, err := c.AuthorizeDelete(actor, AnswerTarget(q, a), answers, reason)
	if err != nil {
		return nil, err
	}
	if a.IsBest {
		a.IsBest = false
		if q.Status == models.QuestionAnswered {
			if err := TransitionQuestion(q, models.QuestionPending); err != nil {
				return nil, err
			}
		}
	}
	return entry, nil
}

func (c *Coordinator) logEntry(actor *models.User, kind models.ContentKind, id uint, verdict models.Verdict, reason string) *models.ModerationLog {
	return &models.ModerationLog{
		ActorID:    actor.ID,
		TargetKind: kind,
		TargetID:   id,
		Verdict:    verdict,
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  c.now(),
	}
}

// ItemResult is the outcome of one member of a bulk action.
type ItemResult struct {
	ID      uint   `json:"id"`
	OK      bool   `json:"ok"`
	Kind    Kind   `json:"kind,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// BulkReport lists per-item results. Partial success is normal.
type BulkReport struct {
	Items     []ItemResult `json:"items"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// Bulk runs apply for every id independently and records each outcome. A
// failing item never stops the rest; failed items must be re-issued by the
// caller.
func Bulk(ids []uint, apply func(id uint) error) BulkReport {
	report := BulkReport{Items: make([]ItemResult, 0, len(ids))}
	for _, id := range ids {
		res := ItemResult{ID: id, OK: true}
		if err := apply(id); err != nil {
			res.OK = false
			if pe, ok := AsError(err); ok {
				res.Kind, res.Reason, res.Message = pe.Kind, pe.Reason, pe.Message
			} else {
				res.Reason = "internal_error"
				res.Message = err.Error()
			}
		}
		if res.OK {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Items = append(report.Items, res)
	}
	return report
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
