package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/expertqa/models"
)

func TestBanUserDuration(t *testing.T) {
	admin := newUser(1, models.RoleAdmin)
	target := newUser(2, models.RoleMember)
	target.CreatedAt = t0
	c := NewCoordinator(resolverAt(t0))

	rec, err := c.BanUser(admin, target, BanOptions{Reason: "spam", DurationDays: 7})
	require.NoError(t, err)

	assert.True(t, target.IsBanned)
	assert.False(t, target.IsPermanentBan)
	require.NotNil(t, target.BannedUntil)
	assert.Equal(t, t0.Add(7*24*time.Hour), *target.BannedUntil)
	assert.Equal(t, "spam", target.BanReason)

	assert.Equal(t, models.BanActionBan, rec.Action)
	assert.Equal(t, admin.ID, rec.IssuedByID)
	assert.Equal(t, target.ID, rec.UserID)
	assert.Equal(t, 7, rec.DurationDays)
	assert.Equal(t, t0, rec.CreatedAt)
	require.NotNil(t, rec.BannedUntil)
	assert.Equal(t, *target.BannedUntil, *rec.BannedUntil)
}

func TestBanUserPermanent(t *testing.T) {
	admin := newUser(1, models.RoleAdmin)
	target := newUser(2, models.RoleExpert)
	c := NewCoordinator(resolverAt(t0))

	rec, err := c.BanUser(admin, target, BanOptions{Reason: "abuse", Permanent: true, DurationDays: 3})
	require.NoError(t, err)
	assert.True(t, target.IsBanned)
	assert.True(t, target.IsPermanentBan)
	assert.Nil(t, target.BannedUntil)
	assert.True(t, rec.Permanent)
	assert.Zero(t, rec.DurationDays)
	assert.True(t, target.BanActive(t0.Add(10*365*24*time.Hour)))
}

func TestBanUserRefusals(t *testing.T) {
	admin := newUser(1, models.RoleAdmin)
	c := NewCoordinator(resolverAt(t0))

	_, err := c.BanUser(admin, admin, BanOptions{DurationDays: 1})
	assert.ErrorIs(t, err, ErrForbidden)

	target := newUser(2, models.RoleMember)
	_, err = c.BanUser(newUser(3, models.RoleModerator), target, BanOptions{DurationDays: 1})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.False(t, target.IsBanned)

	// zero days is not shorthand for permanent
	_, err = c.BanUser(admin, target, BanOptions{DurationDays: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, target.IsBanned)
	assert.Nil(t, target.BannedUntil)
}

func TestUnbanUser(t *testing.T) {
	admin := newUser(1, models.RoleAdmin)
	target := newUser(2, models.RoleMember)
	c := NewCoordinator(resolverAt(t0))

	_, err := c.UnbanUser(admin, target, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = c.BanUser(admin, target, BanOptions{Reason: "spam", DurationDays: 2})
	require.NoError(t, err)

	rec, err := c.UnbanUser(admin, target, "appeal accepted")
	require.NoError(t, err)
	assert.False(t, target.IsBanned)
	assert.Nil(t, target.BannedUntil)
	assert.Empty(t, target.BanReason)
	assert.Equal(t, models.BanActionUnban, rec.Action)
	assert.Equal(t, "appeal accepted", rec.Reason)
}

func TestExpireBan(t *testing.T) {
	admin := newUser(1, models.RoleAdmin)
	target := newUser(2, models.RoleMember)
	c := NewCoordinator(resolverAt(t0))
	_, err := c.BanUser(admin, target, BanOptions{DurationDays: 1})
	require.NoError(t, err)

	assert.Nil(t, ExpireBan(target, t0.Add(23*time.Hour)))
	assert.True(t, target.IsBanned)

	rec := ExpireBan(target, t0.Add(24*time.Hour))
	require.NotNil(t, rec)
	assert.Zero(t, rec.IssuedByID)
	assert.False(t, target.IsBanned)
	assert.Nil(t, target.BannedUntil)

	perm := newUser(3, models.RoleMember)
	_, err = c.BanUser(admin, perm, BanOptions{Permanent: true})
	require.NoError(t, err)
	assert.Nil(t, ExpireBan(perm, t0.Add(1000*24*time.Hour)))
}

func TestChangeRoleAudit(t *testing.T) {
	admin := newUser(1, models.RoleAdmin)
	target := newUser(2, models.RoleMember)
	c := NewCoordinator(resolverAt(t0))

	entry, err := c.ChangeRole(admin, target, models.RoleExpert, "verified license")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.RoleMember, entry.OldRole)
	assert.Equal(t, models.RoleExpert, entry.NewRole)
	assert.Equal(t, admin.ID, entry.ActorID)
	assert.Equal(t, target.ID, entry.TargetID)
	assert.Equal(t, "verified license", entry.Reason)
	assert.Equal(t, t0, entry.CreatedAt)
	assert.Equal(t, models.RoleExpert, target.Role)

	entry, err = c.ChangeRole(admin, target, models.RoleExpert, "again")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Nil(t, entry)
}

func TestChangeRoleRefusals(t *testing.T) {
	admin := newUser(1, models.RoleAdmin)
	c := NewCoordinator(resolverAt(t0))

	entry, err := c.ChangeRole(admin, admin, models.RoleMember, "")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, entry)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	target := newUser(2, models.RoleMember)
	_, err = c.ChangeRole(newUser(3, models.RoleModerator), target, models.RoleExpert, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = c.ChangeRole(admin, target, models.Role("wizard"), "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.ChangeRole(admin, target, models.RoleGuest, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, models.RoleMember, target.Role)
}

func TestRejectBestAnswerRevertsQuestion(t *testing.T) {
	admin := newUser(1, models.RoleAdmin)
	q := newQuestion(10, newUser(2, models.RoleMember), t0)
	answers := []models.Answer{newAnswer(100, q, newUser(3, models.RoleExpert), models.AnswerApproved)}
	answers[0].IsBest = true
	q.Status = models.QuestionAnswered
	c := NewCoordinator(resolverAt(t0))

	entry, err := c.ModerateAnswer(admin, q, answers, 100, models.VerdictReject, "plagiarised")
	require.NoError(t, err)

	assert.Equal(t, models.AnswerRejected, answers[0].Status)
	assert.False(t, answers[0].IsBest)
	assert.Equal(t, models.QuestionPending, q.Status)
	assert.Equal(t, models.KindAnswer, entry.TargetKind)
	assert.Equal(t, uint(100), entry.TargetID)
	assert.Equal(t, models.VerdictReject, entry.Verdict)
}

func TestDeleteBestAnswerRevertsQuestion(t *testing.T) {
	mod := newUser(1, models.RoleModerator)
	q := newQuestion(10, newUser(2, models.RoleMember), t0)
	answers := []models.Answer{
		newAnswer(100, q, newUser(3, models.RoleExpert), models.AnswerApproved),
		newAnswer(101, q, newUser(4, models.RoleExpert), models.AnswerApproved),
	}
	require.NoError(t, AcceptAnswer(q, answers, 100))
	c := NewCoordinator(resolverAt(t0.Add(48 * time.Hour)))

	entry, err := c.DeleteAnswer(mod, q, answers, 100, "off topic")
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, models.QuestionPending, q.Status)
	assert.False(t, answers[0].IsBest)
	assert.Equal(t, models.VerdictDelete, entry.Verdict)
	assert.Equal(t, uint(100), entry.TargetID)

	// deleting a non-best answer leaves the question answered
	require.NoError(t, AcceptAnswer(q, answers, 101))
	answers = answers[1:]
	other := newAnswer(102, q, newUser(5, models.RoleExpert), models.AnswerPending)
	answers = append(answers, other)
	_, err = c.DeleteAnswer(mod, q, answers, 102, "")
	require.NoError(t, err)
	assert.Equal(t, models.QuestionAnswered, q.Status)
}

func TestDeleteAnswerRefusals(t *testing.T) {
	author := newUser(3, models.RoleExpert)
	q := newQuestion(10, newUser(2, models.RoleMember), t0)
	answers := []models.Answer{newAnswer(100, q, author, models.AnswerApproved)}
	require.NoError(t, AcceptAnswer(q, answers, 100))
	c := NewCoordinator(resolverAt(t0))

	_, err := c.DeleteAnswer(author, q, answers, 100, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Equal(t, models.QuestionAnswered, q.Status)
	assert.True(t, answers[0].IsBest)

	_, err = c.DeleteAnswer(newUser(1, models.RoleAdmin), q, answers, 999, "")
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestModerateAnswerOnClosedQuestionKeepsClosed(t *testing.T) {
	mod := newUser(1, models.RoleModerator)
	q := newQuestion(10, newUser(2, models.RoleMember), t0)
	answers := []models.Answer{newAnswer(100, q, newUser(3, models.RoleExpert), models.AnswerApproved)}
	answers[0].IsBest = true
	q.Status = models.QuestionClosed

	_, err := NewCoordinator(resolverAt(t0)).ModerateAnswer(mod, q, answers, 100, models.VerdictReject, "")
	require.NoError(t, err)
	assert.Equal(t, models.QuestionClosed, q.Status)
	assert.False(t, answers[0].IsBest)
}

func TestModerateAnswerRefusals(t *testing.T) {
	q := newQuestion(10, newUser(2, models.RoleMember), t0)
	answers := []models.Answer{newAnswer(100, q, newUser(3, models.RoleExpert), models.AnswerPending)}
	c := NewCoordinator(resolverAt(t0))
	mod := newUser(1, models.RoleModerator)

	_, err := c.ModerateAnswer(newUser(4, models.RoleExpert), q, answers, 100, models.VerdictApprove, "")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, models.AnswerPending, answers[0].Status)

	_, err = c.ModerateAnswer(mod, q, answers, 100, models.VerdictClose, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.ModerateAnswer(mod, q, answers, 999, models.VerdictApprove, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.ModerateAnswer(mod, q, answers, 100, models.VerdictApprove, "")
	require.NoError(t, err)
	_, err = c.ModerateAnswer(mod, q, answers, 100, models.VerdictApprove, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestCloseQuestionIsTerminal(t *testing.T) {
	mod := newUser(1, models.RoleModerator)
	q := newQuestion(10, newUser(2, models.RoleMember), t0)
	c := NewCoordinator(resolverAt(t0))

	entry, err := c.CloseQuestion(mod, q, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, models.QuestionClosed, q.Status)
	assert.Equal(t, models.VerdictClose, entry.Verdict)

	_, err = c.CloseQuestion(mod, q, "again")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = c.CloseQuestion(&q.Author, q, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeDelete(t *testing.T) {
	author := newUser(2, models.RoleMember)
	q := newQuestion(10, author, t0)
	c := NewCoordinator(resolverAt(t0.Add(10 * time.Minute)))

	entry, err := c.AuthorizeDelete(author, QuestionTarget(q), nil, "")
	require.NoError(t, err)
	assert.Nil(t, entry)

	mod := newUser(1, models.RoleModerator)
	siblings := []models.Answer{newAnswer(100, q, newUser(3, models.RoleExpert), models.AnswerPending)}
	entry, err = c.AuthorizeDelete(mod, QuestionTarget(q), siblings, "off topic")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.VerdictDelete, entry.Verdict)
	assert.Equal(t, q.ID, entry.TargetID)

	_, err = c.AuthorizeDelete(author, QuestionTarget(q), siblings, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestBulkReportsEachItem(t *testing.T) {
	admin := newUser(1, models.RoleAdmin)
	q := newQuestion(10, newUser(2, models.RoleMember), t0)
	answers := []models.Answer{
		newAnswer(100, q, newUser(3, models.RoleExpert), models.AnswerPending),
		newAnswer(101, q, newUser(4, models.RoleExpert), models.AnswerApproved),
		newAnswer(102, q, newUser(5, models.RoleExpert), models.AnswerPending),
	}
	c := NewCoordinator(resolverAt(t0))

	report := Bulk([]uint{100, 101, 404, 102}, func(id uint) error {
		_, err := c.ModerateAnswer(admin, q, answers, id, models.VerdictApprove, "")
		return err
	})

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Items, 4)
	assert.True(t, report.Items[0].OK)
	assert.Equal(t, KindInvalidStateTransition, report.Items[1].Kind)
	assert.Equal(t, ReasonNotFound, report.Items[2].Reason)
	assert.True(t, report.Items[3].OK)
	assert.Equal(t, models.AnswerApproved, answers[2].Status)
}

func TestBulkForeignErrors(t *testing.T) {
	report := Bulk([]uint{1}, func(uint) error { return errors.New("db down") })
	require.Len(t, report.Items, 1)
	assert.False(t, report.Items[0].OK)
	assert.Equal(t, Kind(""), report.Items[0].Kind)
	assert.Equal(t, "internal_error", report.Items[0].Reason)
}
