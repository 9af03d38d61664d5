package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/policy"
	"github.com/cppla/expertqa/utils"
)

// QuestionController manages questions and their lifecycle.
type QuestionController struct {
	db     *gorm.DB
	policy *policy.Coordinator
}

// NewQuestionController creates a new QuestionController instance.
func NewQuestionController(db *gorm.DB) *QuestionController {
	return &QuestionController{db: db, policy: newCoordinator()}
}

type questionFilters struct {
	Status   models.QuestionStatus
	Category models.Category
	Priority models.Priority
	AuthorID uint
}

func (f questionFilters) cacheKey(page, pageSize int) string {
	return fmt.Sprintf("%sstatus=%s:cat=%s:prio=%s:author=%d:page=%d:size=%d",
		questionListCachePrefix, f.Status, f.Category, f.Priority, f.AuthorID, page, pageSize)
}

// parseQuestionFilters validates list filters. Empty values mean no filter.
func parseQuestionFilters(ctx *gin.Context) (questionFilters, error) {
	var f questionFilters
	switch s := models.QuestionStatus(strings.TrimSpace(ctx.Query("status"))); s {
	case "", models.QuestionPending, models.QuestionAnswered, models.QuestionClosed:
		f.Status = s
	default:
		return f, fmt.Errorf("unknown status %q", s)
	}
	if c := strings.TrimSpace(ctx.Query("category")); c != "" {
		cat, ok := models.ParseCategory(c)
		if !ok {
			return f, fmt.Errorf("unknown category %q", c)
		}
		f.Category = cat
	}
	if p := strings.TrimSpace(ctx.Query("priority")); p != "" {
		prio, ok := models.ParsePriority(p)
		if !ok {
			return f, fmt.Errorf("unknown priority %q", p)
		}
		f.Priority = prio
	}
	if a := strings.TrimSpace(ctx.Query("author_id")); a != "" {
		var id uint
		if _, err := fmt.Sscanf(a, "%d", &id); err != nil || id == 0 {
			return f, fmt.Errorf("invalid author_id %q", a)
		}
		f.AuthorID = id
	}
	return f, nil
}

// ListQuestions returns paginated questions, newest first.
func (q *QuestionController) ListQuestions(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	filters, err := parseQuestionFilters(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, err.Error())
		return
	}

	cacheKey := filters.cacheKey(page, pageSize)
	var cached gin.H
	if utils.CacheGetJSON(cacheKey, &cached) {
		utils.Success(ctx, cached)
		return
	}

	query := q.db.Model(&models.Question{})
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.Priority != "" {
		query = query.Where("priority = ?", filters.Priority)
	}
	if filters.AuthorID != 0 {
		query = query.Where("author_id = ?", filters.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count questions")
		return
	}

	var questions []models.Question
	if err := query.Preload("Author").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&questions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list questions")
		return
	}

	payload := paginated(questions, page, pageSize, total)
	utils.CacheSetJSON(cacheKey, payload, 5*time.Minute)
	utils.Success(ctx, payload)
}

// GetQuestion returns a question with its visible answers, comments and the
// caller's capabilities on it.
func (q *QuestionController) GetQuestion(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	actor, err := loadActor(ctx, q.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	snap, err := loadThread(q.db, id, false)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	var comments []models.Comment
	if err := q.db.Preload("Author").
		Where("question_id = ?", id).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		utils.L().Warn("load comments failed", zap.Uint("question_id", id), zap.Error(err))
	}

	resolver := q.policy.Resolver
	answers := visibleAnswers(actor, snap.Answers)
	answerCaps := make(map[uint]policy.CapabilitySet, len(answers))
	for i := range answers {
		answerCaps[answers[i].ID] = resolver.Resolve(actor, policy.AnswerTarget(&snap.Question, &answers[i]), snap.Answers)
	}

	caps := resolver.Resolve(actor, policy.QuestionTarget(&snap.Question), snap.Answers)
	utils.Success(ctx, gin.H{
		"question":            snap.Question,
		"answers":             answers,
		"comments":            comments,
		"capabilities":        caps,
		"answer_capabilities": answerCaps,
		"comment_gate":        caps.CommentGate,
	})
}

type questionRequest struct {
	Title    string `json:"title" binding:"required,max=255"`
	Body     string `json:"body" binding:"required"`
	Category string `json:"category"`
	Priority string `json:"priority"`
}

// CreateQuestion lets any member in good standing ask a question.
func (q *QuestionController) CreateQuestion(ctx *gin.Context) {
	var req questionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	actor, err := loadActor(ctx, q.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if d := q.policy.Resolver.CanReact(actor); !d.Allowed {
		respondPolicyError(ctx, d.Err())
		return
	}

	title := utils.SanitizePlain(req.Title)
	body := utils.Sanitize(req.Body)
	if title == "" || body == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title and body cannot be empty")
		return
	}
	category, ok := models.ParseCategory(strings.TrimSpace(req.Category))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid category")
		return
	}
	priority, ok := models.ParsePriority(strings.TrimSpace(req.Priority))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid priority")
		return
	}

	question := models.Question{
		AuthorID: actor.ID,
		Title:    title,
		Body:     body,
		Category: category,
		Priority: priority,
		Status:   models.QuestionPending,
	}
	if err := q.db.Omit("Author").Create(&question).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create question")
		return
	}
	question.Author = *actor

	invalidateQuestionCaches()
	utils.Success(ctx, gin.H{"question": question})
}

// UpdateQuestion edits a question within the edit window.
func (q *QuestionController) UpdateQuestion(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Title    *string `json:"title"`
		Body     *string `json:"body"`
		Category *string `json:"category"`
		Priority *string `json:"priority"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}
	actor, err := loadActor(ctx, q.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	snap, err := loadThread(q.db, id, false)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if d := q.policy.Resolver.CanEdit(actor, policy.QuestionTarget(&snap.Question)); !d.Allowed {
		respondPolicyError(ctx, d.Err())
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := utils.SanitizePlain(*req.Title)
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
			return
		}
		updates["title"] = title
	}
	if req.Body != nil {
		body := utils.Sanitize(*req.Body)
		if body == "" {
			utils.Error(ctx, http.StatusBadRequest, 40021, "body cannot be empty")
			return
		}
		updates["body"] = body
	}
	if req.Category != nil {
		category, ok := models.ParseCategory(strings.TrimSpace(*req.Category))
		if !ok {
			utils.Error(ctx, http.StatusBadRequest, 40022, "invalid category")
			return
		}
		updates["category"] = category
	}
	if req.Priority != nil {
		priority, ok := models.ParsePriority(strings.TrimSpace(*req.Priority))
		if !ok {
			utils.Error(ctx, http.StatusBadRequest, 40023, "invalid priority")
			return
		}
		updates["priority"] = priority
	}
	if len(updates) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40025, "nothing to update")
		return
	}

	if err := q.db.Model(&models.Question{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to update question")
		return
	}
	var question models.Question
	if err := q.db.Preload("Author").First(&question, id).Error; err != nil {
		respondPolicyError(ctx, err)
		return
	}

	invalidateQuestionCaches()
	utils.Success(ctx, gin.H{"question": question})
}

// DeleteQuestion removes a question with its answers and comments.
func (q *QuestionController) DeleteQuestion(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = ctx.ShouldBindJSON(&req)

	actor, err := loadActor(ctx, q.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	err = q.db.Transaction(func(tx *gorm.DB) error {
		snap, err := loadThread(tx, id, true)
		if err != nil {
			return err
		}
		entry, err := q.policy.AuthorizeDelete(actor, policy.QuestionTarget(&snap.Question), snap.Answers, utils.SanitizePlain(req.Reason))
		if err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Question{}, id).Error; err != nil {
			return err
		}
		if entry != nil {
			return tx.Create(entry).Error
		}
		return nil
	})
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	utils.L().Info("question deleted", zap.Uint("question_id", id), zap.Uint("actor_id", actor.ID))
	invalidateQuestionCaches()
	utils.Success(ctx, gin.H{"id": id})
}

// CloseQuestion closes a question; closed questions are terminal.
func (q *QuestionController) CloseQuestion(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = ctx.ShouldBindJSON(&req)

	actor, err := loadActor(ctx, q.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	var question models.Question
	err = q.db.Transaction(func(tx *gorm.DB) error {
		snap, err := loadThread(tx, id, true)
		if err != nil {
			return err
		}
		entry, err := q.policy.CloseQuestion(actor, &snap.Question, utils.SanitizePlain(req.Reason))
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Question{}).Where("id = ?", id).Update("status", snap.Question.Status).Error; err != nil {
			return err
		}
		question = snap.Question
		return tx.Create(entry).Error
	})
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	utils.L().Info("question closed", zap.Uint("question_id", id), zap.Uint("actor_id", actor.ID))
	invalidateQuestionCaches()
	utils.Success(ctx, gin.H{"question": question})
}

// LikeQuestion increments the like counter of a question.
func (q *QuestionController) LikeQuestion(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	actor, err := loadActor(ctx, q.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if d := q.policy.Resolver.CanReact(actor); !d.Allowed {
		respondPolicyError(ctx, d.Err())
		return
	}

	res := q.db.Model(&models.Question{}).Where("id = ?", id).UpdateColumn("likes", gorm.Expr("likes + 1"))
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to like question")
		return
	}
	if res.RowsAffected == 0 {
		respondPolicyError(ctx, errNotFound())
		return
	}

	var likes int64
	_ = q.db.Model(&models.Question{}).Where("id = ?", id).Select("likes").Scan(&likes).Error
	utils.Success(ctx, gin.H{"id": id, "likes": likes})
}
