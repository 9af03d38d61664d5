package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/policy"
)

type acceptData struct {
	Kind     policy.Kind     `json:"kind"`
	Reason   string          `json:"reason"`
	Question models.Question `json:"question"`
	Answers  []models.Answer `json:"answers"`
}

func acceptAs(t *testing.T, ctrl *AnswerController, userID, answerID uint) (int, apiResponse) {
	return serve(t, ctrl.AcceptAnswer, http.MethodPost, "/answers/:id/accept",
		fmt.Sprintf("/answers/%d/accept", answerID), userID, nil)
}

func TestAcceptAnswerMarksBest(t *testing.T) {
	db := newTestDB(t)
	asker := seedUser(t, db, "asker", models.RoleMember)
	expert := seedUser(t, db, "expert", models.RoleExpert)
	q := seedQuestion(t, db, asker, models.QuestionPending)
	answer := seedAnswer(t, db, q, expert, models.AnswerApproved, false)

	status, resp := acceptAs(t, NewAnswerController(db), asker.ID, answer.ID)
	require.Equal(t, http.StatusOK, status, resp.Message)

	var data acceptData
	decodeData(t, resp, &data)
	assert.Equal(t, models.QuestionAnswered, data.Question.Status)
	require.Len(t, data.Answers, 1)
	assert.True(t, data.Answers[0].IsBest)

	var stored models.Answer
	require.NoError(t, db.First(&stored, answer.ID).Error)
	assert.True(t, stored.IsBest)
	var storedQ models.Question
	require.NoError(t, db.First(&storedQ, q.ID).Error)
	assert.Equal(t, models.QuestionAnswered, storedQ.Status)
}

func TestAcceptAnswerConflictsWithExistingBest(t *testing.T) {
	db := newTestDB(t)
	asker := seedUser(t, db, "asker", models.RoleMember)
	first := seedUser(t, db, "first", models.RoleExpert)
	second := seedUser(t, db, "second", models.RoleLegalAdvisor)
	q := seedQuestion(t, db, asker, models.QuestionAnswered)
	best := seedAnswer(t, db, q, first, models.AnswerApproved, true)
	other := seedAnswer(t, db, q, second, models.AnswerApproved, false)

	status, resp := acceptAs(t, NewAnswerController(db), asker.ID, other.ID)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, codeStaleConflict, resp.Code)

	var data acceptData
	decodeData(t, resp, &data)
	assert.Equal(t, policy.KindStaleConflict, data.Kind)
	assert.Equal(t, policy.ReasonBestAnswerExists, data.Reason)
	assert.Equal(t, models.QuestionAnswered, data.Question.Status)
	assert.Len(t, data.Answers, 2)

	var stored models.Answer
	require.NoError(t, db.First(&stored, best.ID).Error)
	assert.True(t, stored.IsBest)
	var otherStored models.Answer
	require.NoError(t, db.First(&otherStored, other.ID).Error)
	assert.False(t, otherStored.IsBest)
}

func TestAcceptPendingAnswerIsRefused(t *testing.T) {
	db := newTestDB(t)
	asker := seedUser(t, db, "asker", models.RoleMember)
	expert := seedUser(t, db, "expert", models.RoleExpert)
	q := seedQuestion(t, db, asker, models.QuestionPending)
	answer := seedAnswer(t, db, q, expert, models.AnswerPending, false)

	status, resp := acceptAs(t, NewAnswerController(db), asker.ID, answer.ID)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, codeInvalidState, resp.Code)

	var data acceptData
	decodeData(t, resp, &data)
	assert.Equal(t, policy.KindInvalidStateTransition, data.Kind)
	assert.Equal(t, policy.ReasonAnswerNotApproved, data.Reason)

	var storedQ models.Question
	require.NoError(t, db.First(&storedQ, q.ID).Error)
	assert.Equal(t, models.QuestionPending, storedQ.Status)
}

func TestAcceptAnswerByStrangerIsForbidden(t *testing.T) {
	db := newTestDB(t)
	asker := seedUser(t, db, "asker", models.RoleMember)
	expert := seedUser(t, db, "expert", models.RoleExpert)
	stranger := seedUser(t, db, "stranger", models.RoleMember)
	q := seedQuestion(t, db, asker, models.QuestionPending)
	answer := seedAnswer(t, db, q, expert, models.AnswerApproved, false)

	status, resp := acceptAs(t, NewAnswerController(db), stranger.ID, answer.ID)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, codeForbidden, resp.Code)
}

func TestDeleteBestAnswerRevertsStoredQuestion(t *testing.T) {
	db := newTestDB(t)
	asker := seedUser(t, db, "asker", models.RoleMember)
	expert := seedUser(t, db, "expert", models.RoleExpert)
	mod := seedUser(t, db, "mod", models.RoleModerator)
	q := seedQuestion(t, db, asker, models.QuestionAnswered)
	best := seedAnswer(t, db, q, expert, models.AnswerApproved, true)

	ctrl := NewAnswerController(db)
	status, resp := serve(t, ctrl.DeleteAnswer, http.MethodDelete, "/answers/:id",
		fmt.Sprintf("/answers/%d", best.ID), mod.ID, map[string]string{"reason": "duplicate"})
	require.Equal(t, http.StatusOK, status, resp.Message)

	var storedQ models.Question
	require.NoError(t, db.First(&storedQ, q.ID).Error)
	assert.Equal(t, models.QuestionPending, storedQ.Status)

	var remaining int64
	require.NoError(t, db.Model(&models.Answer{}).Where("id = ?", best.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	var entry models.ModerationLog
	require.NoError(t, db.Where("target_kind = ? AND target_id = ?", models.KindAnswer, best.ID).First(&entry).Error)
	assert.Equal(t, models.VerdictDelete, entry.Verdict)
	assert.Equal(t, mod.ID, entry.ActorID)
}
