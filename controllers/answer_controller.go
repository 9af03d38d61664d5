package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/policy"
	"github.com/cppla/expertqa/utils"
)

// AnswerController manages specialist answers, acceptance and moderation.
type AnswerController struct {
	db     *gorm.DB
	policy *policy.Coordinator
}

// NewAnswerController creates a new AnswerController instance.
func NewAnswerController(db *gorm.DB) *AnswerController {
	return &AnswerController{db: db, policy: newCoordinator()}
}

// questionIDOf resolves the question an answer belongs to.
func questionIDOf(db *gorm.DB, answerID uint) (uint, error) {
	var a models.Answer
	if err := db.Select("id", "question_id").First(&a, answerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errNotFound()
		}
		return 0, err
	}
	return a.QuestionID, nil
}

func findAnswer(answers []models.Answer, id uint) *models.Answer {
	for i := range answers {
		if answers[i].ID == id {
			return &answers[i]
		}
	}
	return nil
}

// CreateAnswer posts an answer awaiting moderation.
func (a *AnswerController) CreateAnswer(ctx *gin.Context) {
	questionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	body := utils.Sanitize(req.Body)
	if body == "" {
		utils.Error(ctx, http.StatusBadRequest, 40031, "body cannot be empty")
		return
	}
	actor, err := loadActor(ctx, a.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	snap, err := loadThread(a.db, questionID, false)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if d := a.policy.Resolver.CanAnswer(actor, &snap.Question, snap.Answers); !d.Allowed {
		respondPolicyError(ctx, d.Err())
		return
	}

	answer := models.Answer{
		QuestionID: questionID,
		AuthorID:   actor.ID,
		Body:       body,
		Status:     models.AnswerPending,
	}
	if err := a.db.Omit("Author").Create(&answer).Error; err != nil {
		// the unique index is the authority when two requests race past the check
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondPolicyError(ctx, policy.Decision{Kind: policy.KindPolicyGateClosed, Reason: policy.ReasonAlreadyAnswered}.Err())
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create answer")
		return
	}
	answer.Author = *actor

	invalidateQuestionCaches()
	utils.Success(ctx, gin.H{"answer": answer})
}

// UpdateAnswer edits an answer body within the edit window.
func (a *AnswerController) UpdateAnswer(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid request payload")
		return
	}
	body := utils.Sanitize(req.Body)
	if body == "" {
		utils.Error(ctx, http.StatusBadRequest, 40031, "body cannot be empty")
		return
	}
	actor, err := loadActor(ctx, a.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	questionID, err := questionIDOf(a.db, id)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	snap, err := loadThread(a.db, questionID, false)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	answer := findAnswer(snap.Answers, id)
	if answer == nil {
		respondPolicyError(ctx, errNotFound())
		return
	}
	if d := a.policy.Resolver.CanEdit(actor, policy.AnswerTarget(&snap.Question, answer)); !d.Allowed {
		respondPolicyError(ctx, d.Err())
		return
	}

	if err := a.db.Model(&models.Answer{}).Where("id = ?", id).Update("body", body).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update answer")
		return
	}
	answer.Body = body
	utils.Success(ctx, gin.H{"answer": answer})
}

// DeleteAnswer removes an answer. Deleting the best answer sends an answered
// question back to pending.
func (a *AnswerController) DeleteAnswer(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = ctx.ShouldBindJSON(&req)

	actor, err := loadActor(ctx, a.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if err := a.deleteAnswer(actor, id, utils.SanitizePlain(req.Reason), ""); err != nil {
		respondPolicyError(ctx, err)
		return
	}
	invalidateQuestionCaches()
	utils.Success(ctx, gin.H{"id": id})
}

func (a *AnswerController) deleteAnswer(actor *models.User, id uint, reason, batchID string) error {
	questionID, err := questionIDOf(a.db, id)
	if err != nil {
		return err
	}
	return a.db.Transaction(func(tx *gorm.DB) error {
		snap, err := loadThread(tx, questionID, true)
		if err != nil {
			return err
		}
		before := snap.Question.Status
		entry, err := a.policy.DeleteAnswer(actor, &snap.Question, snap.Answers, id, reason)
		if err != nil {
			return err
		}
		if snap.Question.Status != before {
			if err := tx.Model(&models.Question{}).Where("id = ?", questionID).Update("status", snap.Question.Status).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Answer{}, id).Error; err != nil {
			return err
		}
		if entry != nil {
			entry.BatchID = batchID
			return tx.Create(entry).Error
		}
		return nil
	})
}

// AcceptAnswer marks an approved answer as best. The change is computed
// optimistically on the snapshot the caller saw, then re-applied under a row
// lock; if another write landed in between the request fails with 409 and
// the current thread state so the client can reload.
func (a *AnswerController) AcceptAnswer(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	actor, err := loadActor(ctx, a.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	questionID, err := questionIDOf(a.db, id)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	seen, err := loadThread(a.db, questionID, false)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if d := a.policy.Resolver.CanAcceptAnswer(actor, &seen.Question, findAnswer(seen.Answers, id), seen.Answers); !d.Allowed {
		respondAcceptError(ctx, d.Err(), actor, seen)
		return
	}
	pending, err := policy.ApplyOptimistic(seen, func(s *policy.ThreadSnapshot) error {
		return policy.AcceptAnswer(&s.Question, s.Answers, id)
	})
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	var confirmed policy.ThreadSnapshot
	err = a.db.Transaction(func(tx *gorm.DB) error {
		current, err := loadThread(tx, questionID, true)
		if err != nil {
			return err
		}
		confirmed = current.Clone()
		if d := a.policy.Resolver.CanAcceptAnswer(actor, &current.Question, findAnswer(current.Answers, id), current.Answers); !d.Allowed {
			return d.Err()
		}
		if err := policy.AcceptAnswer(&current.Question, current.Answers, id); err != nil {
			return err
		}
		if _, err := pending.Reconcile(current); err != nil {
			return err
		}
		if err := persistThread(tx, current); err != nil {
			return err
		}
		confirmed = current
		return nil
	})
	if err != nil {
		respondAcceptError(ctx, err, actor, confirmed)
		return
	}

	utils.L().Info("answer accepted",
		zap.Uint("question_id", questionID),
		zap.Uint("answer_id", id),
		zap.Uint("actor_id", actor.ID),
	)
	invalidateQuestionCaches()
	utils.Success(ctx, gin.H{
		"question": confirmed.Question,
		"answers":  visibleAnswers(actor, confirmed.Answers),
	})
}

// respondAcceptError answers a refused accept. Stale conflicts carry the
// thread as it currently stands so the client can reload.
func respondAcceptError(ctx *gin.Context, err error, actor *models.User, current policy.ThreadSnapshot) {
	pe, ok := policy.AsError(err)
	if !ok || pe.Kind != policy.KindStaleConflict {
		respondPolicyError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusConflict, codeStaleConflict, pe.Message, gin.H{
		"kind":     pe.Kind,
		"reason":   pe.Reason,
		"question": current.Question,
		"answers":  visibleAnswers(actor, current.Answers),
	})
}

// ModerateAnswer approves or rejects a single answer.
func (a *AnswerController) ModerateAnswer(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Verdict string `json:"verdict" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid request payload")
		return
	}
	actor, err := loadActor(ctx, a.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	snap, err := a.moderateAnswer(actor, id, models.Verdict(req.Verdict), utils.SanitizePlain(req.Reason), "")
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	invalidateQuestionCaches()
	utils.Success(ctx, gin.H{
		"question": snap.Question,
		"answer":   findAnswer(snap.Answers, id),
	})
}

// moderateAnswer applies one verdict inside its own transaction so bulk
// callers get independent per-item outcomes.
func (a *AnswerController) moderateAnswer(actor *models.User, id uint, verdict models.Verdict, reason, batchID string) (policy.ThreadSnapshot, error) {
	var snap policy.ThreadSnapshot
	questionID, err := questionIDOf(a.db, id)
	if err != nil {
		return snap, err
	}
	err = a.db.Transaction(func(tx *gorm.DB) error {
		current, err := loadThread(tx, questionID, true)
		if err != nil {
			return err
		}
		entry, err := a.policy.ModerateAnswer(actor, &current.Question, current.Answers, id, verdict, reason)
		if err != nil {
			return err
		}
		if err := persistThread(tx, current); err != nil {
			return err
		}
		entry.BatchID = batchID
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		snap = current
		return nil
	})
	if err == nil {
		utils.L().Info("answer moderated",
			zap.Uint("answer_id", id),
			zap.Uint("actor_id", actor.ID),
			zap.String("verdict", string(verdict)),
			zap.String("batch_id", batchID),
		)
	}
	return snap, err
}
