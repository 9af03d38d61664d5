package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/policy"
	"github.com/cppla/expertqa/utils"
)

// CommentController manages discussion under questions.
type CommentController struct {
	db     *gorm.DB
	policy *policy.Coordinator
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db, policy: newCoordinator()}
}

func loadComment(db *gorm.DB, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := db.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound()
		}
		return nil, err
	}
	return &c, nil
}

// CreateComment adds a comment or a single-level reply once the comment gate is open.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	questionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Body     string `json:"body" binding:"required"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	body := utils.Sanitize(req.Body)
	if body == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "comment cannot be empty")
		return
	}
	actor, err := loadActor(ctx, c.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	snap, err := loadThread(c.db, questionID, false)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if d := c.policy.Resolver.CanComment(actor, &snap.Question, snap.Answers); !d.Allowed {
		respondPolicyError(ctx, d.Err())
		return
	}

	var parent *models.Comment
	if req.ParentID != nil && *req.ParentID != 0 {
		parent, err = loadComment(c.db, *req.ParentID)
		if err != nil {
			respondPolicyError(ctx, err)
			return
		}
	}
	if err := policy.ValidateReply(&snap.Question, parent); err != nil {
		respondPolicyError(ctx, err)
		return
	}

	comment := models.Comment{
		QuestionID: questionID,
		AuthorID:   actor.ID,
		Body:       body,
	}
	if parent != nil {
		comment.ParentID = &parent.ID
	}
	if err := c.db.Omit("Author").Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to create comment")
		return
	}
	comment.Author = *actor
	utils.Success(ctx, gin.H{"comment": comment})
}

// UpdateComment edits a comment within the edit window.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "commentId")
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid request payload")
		return
	}
	body := utils.Sanitize(req.Body)
	if body == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "comment cannot be empty")
		return
	}
	actor, err := loadActor(ctx, c.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	comment, err := loadComment(c.db, id)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	snap, err := loadThread(c.db, comment.QuestionID, false)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if d := c.policy.Resolver.CanEdit(actor, policy.CommentTarget(&snap.Question, comment)); !d.Allowed {
		respondPolicyError(ctx, d.Err())
		return
	}

	if err := c.db.Model(&models.Comment{}).Where("id = ?", id).Update("body", body).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to update comment")
		return
	}
	comment.Body = body
	utils.Success(ctx, gin.H{"comment": comment})
}

// DeleteComment removes a comment together with its replies.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "commentId")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = ctx.ShouldBindJSON(&req)

	actor, err := loadActor(ctx, c.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if err := c.deleteComment(actor, id, utils.SanitizePlain(req.Reason), ""); err != nil {
		respondPolicyError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id})
}

func (c *CommentController) deleteComment(actor *models.User, id uint, reason, batchID string) error {
	comment, err := loadComment(c.db, id)
	if err != nil {
		return err
	}
	snap, err := loadThread(c.db, comment.QuestionID, false)
	if err != nil {
		return err
	}
	entry, err := c.policy.AuthorizeDelete(actor, policy.CommentTarget(&snap.Question, comment), snap.Answers, reason)
	if err != nil {
		return err
	}
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Comment{}, id).Error; err != nil {
			return err
		}
		if entry != nil {
			entry.BatchID = batchID
			return tx.Create(entry).Error
		}
		return nil
	})
}
