package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/expertqa/config"
	"github.com/cppla/expertqa/middleware"
	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/policy"
	"github.com/cppla/expertqa/utils"
)

const (
	questionListCachePrefix = "expertqa:cache:questions:list:"
	statsCacheKey           = "expertqa:cache:stats"
)

// newCoordinator builds the policy coordinator with windows taken from configuration.
func newCoordinator() *policy.Coordinator {
	cfg := config.Get()
	r := policy.NewResolver()
	r.EditWindow = cfg.EditWindow()
	r.QuestionDeleteWindow = cfg.QuestionDeleteWindow()
	return policy.NewCoordinator(r)
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func paginated(items interface{}, page, pageSize int, total int64) gin.H {
	return gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

// loadActor returns the authenticated user, or nil for anonymous requests.
// Role and ban state always come from the database, never from the token.
func loadActor(ctx *gin.Context, db *gorm.DB) (*models.User, error) {
	userID, ok := getUserID(ctx)
	if !ok {
		return nil, nil
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// parseIDParam reads a positive numeric path parameter, answering 400 otherwise.
func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// forUpdate adds a row lock to the next query. sqlite has no row locks; its
// writes are serialized per database.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// loadThread loads a question and all of its answers with their authors.
// With lock set, the question row is locked for the rest of the transaction.
func loadThread(db *gorm.DB, questionID uint, lock bool) (policy.ThreadSnapshot, error) {
	var snap policy.ThreadSnapshot
	q := db.Preload("Author")
	if lock {
		q = forUpdate(q)
	}
	if err := q.First(&snap.Question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return snap, errNotFound()
		}
		return snap, err
	}
	if err := db.Preload("Author").
		Where("question_id = ?", questionID).
		Order("is_best DESC, created_at ASC").
		Find(&snap.Answers).Error; err != nil {
		return snap, err
	}
	return snap, nil
}

// visibleAnswers hides pending and rejected answers from everyone except
// their authors and moderators.
func visibleAnswers(actor *models.User, answers []models.Answer) []models.Answer {
	if actor != nil && actor.Role.CanModerate() {
		return answers
	}
	out := make([]models.Answer, 0, len(answers))
	for _, a := range answers {
		if a.Status == models.AnswerApproved || (actor != nil && a.AuthorID == actor.ID) {
			out = append(out, a)
		}
	}
	return out
}

// persistThread writes the lifecycle columns of every answer and the
// question status. Answers whose columns did not change are cheap no-op updates.
func persistThread(tx *gorm.DB, snap policy.ThreadSnapshot) error {
	for _, a := range snap.Answers {
		err := tx.Model(&models.Answer{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
			"status":       a.Status,
			"is_best":      a.IsBest,
			"was_approved": a.WasApproved,
		}).Error
		if err != nil {
			return err
		}
	}
	return tx.Model(&models.Question{}).Where("id = ?", snap.Question.ID).
		Update("status", snap.Question.Status).Error
}

func invalidateQuestionCaches() {
	utils.InvalidateByPrefix(questionListCachePrefix)
	utils.InvalidateByPrefix(statsCacheKey)
}

func publicUser(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"role":       user.Role,
		"signature":  user.Signature,
		"created_at": user.CreatedAt,
	}
}

// privateUser adds the account fields only the owner and moderators see.
func privateUser(user models.User) gin.H {
	m := publicUser(user)
	m["email"] = user.Email
	m["is_active"] = user.IsActive
	m["is_banned"] = user.IsBanned
	m["banned_until"] = user.BannedUntil
	m["is_permanent_ban"] = user.IsPermanentBan
	m["ban_reason"] = user.BanReason
	return m
}
