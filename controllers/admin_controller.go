package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/policy"
	"github.com/cppla/expertqa/utils"
)

const maxBulkItems = 100

// AdminController exposes moderation and account administration.
type AdminController struct {
	db       *gorm.DB
	policy   *policy.Coordinator
	answers  *AnswerController
	comments *CommentController
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(db *gorm.DB) *AdminController {
	coord := newCoordinator()
	return &AdminController{
		db:       db,
		policy:   coord,
		answers:  &AnswerController{db: db, policy: coord},
		comments: &CommentController{db: db, policy: coord},
	}
}

// requireModerator loads the actor and answers the refusal itself when the
// actor cannot moderate.
func (a *AdminController) requireModerator(ctx *gin.Context) (*models.User, bool) {
	actor, err := loadActor(ctx, a.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return nil, false
	}
	if d := a.policy.Resolver.CanModerate(actor); !d.Allowed {
		respondPolicyError(ctx, d.Err())
		return nil, false
	}
	return actor, true
}

// requireAdmin is requireModerator restricted to admins, for account actions.
func (a *AdminController) requireAdmin(ctx *gin.Context) (*models.User, bool) {
	actor, ok := a.requireModerator(ctx)
	if !ok {
		return nil, false
	}
	if actor.Role != models.RoleAdmin {
		respondPolicyError(ctx, policy.Decision{Kind: policy.KindForbidden, Reason: policy.ReasonAdminOnly}.Err())
		return nil, false
	}
	return actor, true
}

// ListUsers returns paginated accounts, optionally filtered by role or ban state.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	if _, ok := a.requireModerator(ctx); !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := a.db.Model(&models.User{})
	if r := strings.TrimSpace(ctx.Query("role")); r != "" {
		role, ok := models.ParseRole(r)
		if !ok {
			utils.Error(ctx, http.StatusBadRequest, 40050, "invalid role")
			return
		}
		query = query.Where("role = ?", role)
	}
	if b := strings.TrimSpace(ctx.Query("banned")); b != "" {
		banned, err := strconv.ParseBool(b)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40051, "invalid banned filter")
			return
		}
		query = query.Where("is_banned = ?", banned)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to count users")
		return
	}
	var users []models.User
	if err := query.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list users")
		return
	}
	items := make([]gin.H, 0, len(users))
	for _, u := range users {
		items = append(items, privateUser(u))
	}
	utils.Success(ctx, paginated(items, page, pageSize, total))
}

// lockUser loads a user row for update, mapping a missing row to a policy refusal.
func lockUser(tx *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := forUpdate(tx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound()
		}
		return nil, err
	}
	return &u, nil
}

// BanUser bans an account for a number of days or permanently.
func (a *AdminController) BanUser(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Reason       string `json:"reason"`
		DurationDays int    `json:"duration_days"`
		Permanent    bool   `json:"permanent"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid request payload")
		return
	}
	actor, err := loadActor(ctx, a.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	target, record, err := a.banUser(actor, id, policy.BanOptions{
		Reason:       utils.SanitizePlain(req.Reason),
		DurationDays: req.DurationDays,
		Permanent:    req.Permanent,
	}, "")
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{"user": privateUser(*target), "record": record})
}

// banUser applies one ban inside its own transaction.
func (a *AdminController) banUser(actor *models.User, id uint, opts policy.BanOptions, batchID string) (*models.User, *models.BanRecord, error) {
	var target *models.User
	var record *models.BanRecord
	err := a.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if target, err = lockUser(tx, id); err != nil {
			return err
		}
		if record, err = a.policy.BanUser(actor, target, opts); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(target.BanColumns()).Error; err != nil {
			return err
		}
		record.BatchID = batchID
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, nil, err
	}
	utils.L().Info("user banned",
		zap.Uint("actor_id", actor.ID),
		zap.Uint("target_id", id),
		zap.Bool("permanent", record.Permanent),
		zap.Int("duration_days", record.DurationDays),
		zap.String("batch_id", batchID),
	)
	return target, record, nil
}

// UnbanUser lifts an active ban.
func (a *AdminController) UnbanUser(ctx *gin.Context) {
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

	target, record, err := a.unbanUser(actor, id, utils.SanitizePlain(req.Reason), "")
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": privateUser(*target), "record": record})
}

func (a *AdminController) unbanUser(actor *models.User, id uint, reason, batchID string) (*models.User, *models.BanRecord, error) {
	var target *models.User
	var record *models.BanRecord
	err := a.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if target, err = lockUser(tx, id); err != nil {
			return err
		}
		if record, err = a.policy.UnbanUser(actor, target, reason); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(target.BanColumns()).Error; err != nil {
			return err
		}
		record.BatchID = batchID
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, nil, err
	}
	utils.L().Info("user unbanned", zap.Uint("actor_id", actor.ID), zap.Uint("target_id", id), zap.String("batch_id", batchID))
	return target, record, nil
}

// ChangeRole assigns a new role and records the change.
func (a *AdminController) ChangeRole(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Role   string `json:"role" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40053, "invalid request payload")
		return
	}
	actor, err := loadActor(ctx, a.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	var target *models.User
	var change *models.RoleChange
	err = a.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if target, err = lockUser(tx, id); err != nil {
			return err
		}
		if change, err = a.policy.ChangeRole(actor, target, models.Role(strings.TrimSpace(req.Role)), utils.SanitizePlain(req.Reason)); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Update("role", target.Role).Error; err != nil {
			return err
		}
		return tx.Create(change).Error
	})
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	utils.L().Info("role changed",
		zap.Uint("actor_id", actor.ID),
		zap.Uint("target_id", id),
		zap.String("old_role", string(change.OldRole)),
		zap.String("new_role", string(change.NewRole)),
	)
	utils.Success(ctx, gin.H{"user": privateUser(*target), "change": change})
}

type bulkRequest struct {
	IDs          []uint `json:"ids" binding:"required"`
	Verdict      string `json:"verdict"`
	Reason       string `json:"reason"`
	DurationDays int    `json:"duration_days"`
	Permanent    bool   `json:"permanent"`
}

func bindBulk(ctx *gin.Context) (bulkRequest, bool) {
	var req bulkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40054, "invalid request payload")
		return req, false
	}
	req.IDs = utils.UniqueUint(req.IDs)
	if len(req.IDs) == 0 || len(req.IDs) > maxBulkItems {
		utils.Error(ctx, http.StatusBadRequest, 40055, "ids must list between 1 and 100 items")
		return req, false
	}
	req.Reason = utils.SanitizePlain(req.Reason)
	return req, true
}

// BulkModerateAnswers applies one verdict to many answers and reports each outcome.
func (a *AdminController) BulkModerateAnswers(ctx *gin.Context) {
	req, ok := bindBulk(ctx)
	if !ok {
		return
	}
	actor, ok := a.requireModerator(ctx)
	if !ok {
		return
	}

	verdict := models.Verdict(strings.TrimSpace(req.Verdict))
	if verdict != models.VerdictApprove && verdict != models.VerdictReject {
		respondPolicyError(ctx, policy.Decision{Kind: policy.KindInvalidInput, Reason: policy.ReasonUnknownVerdict}.Err())
		return
	}

	batchID := uuid.NewString()
	report := policy.Bulk(req.IDs, func(id uint) error {
		_, err := a.answers.moderateAnswer(actor, id, verdict, req.Reason, batchID)
		return err
	})

	utils.L().Info("bulk answer moderation",
		zap.Uint("actor_id", actor.ID),
		zap.String("batch_id", batchID),
		zap.String("verdict", string(verdict)),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	if report.Succeeded > 0 {
		invalidateQuestionCaches()
	}
	utils.Success(ctx, gin.H{"batch_id": batchID, "report": report})
}

// BulkDeleteComments deletes many comments and reports each outcome.
func (a *AdminController) BulkDeleteComments(ctx *gin.Context) {
	req, ok := bindBulk(ctx)
	if !ok {
		return
	}
	actor, ok := a.requireModerator(ctx)
	if !ok {
		return
	}

	batchID := uuid.NewString()
	report := policy.Bulk(req.IDs, func(id uint) error {
		return a.comments.deleteComment(actor, id, req.Reason, batchID)
	})

	utils.L().Info("bulk comment delete",
		zap.Uint("actor_id", actor.ID),
		zap.String("batch_id", batchID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	utils.Success(ctx, gin.H{"batch_id": batchID, "report": report})
}

// BulkDeleteAnswers deletes many answers and reports each outcome.
func (a *AdminController) BulkDeleteAnswers(ctx *gin.Context) {
	req, ok := bindBulk(ctx)
	if !ok {
		return
	}
	actor, ok := a.requireModerator(ctx)
	if !ok {
		return
	}

	batchID := uuid.NewString()
	report := policy.Bulk(req.IDs, func(id uint) error {
		return a.answers.deleteAnswer(actor, id, req.Reason, batchID)
	})

	utils.L().Info("bulk answer delete",
		zap.Uint("actor_id", actor.ID),
		zap.String("batch_id", batchID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	if report.Succeeded > 0 {
		invalidateQuestionCaches()
	}
	utils.Success(ctx, gin.H{"batch_id": batchID, "report": report})
}

// BulkBanUsers bans many accounts with the same options.
func (a *AdminController) BulkBanUsers(ctx *gin.Context) {
	req, ok := bindBulk(ctx)
	if !ok {
		return
	}
	actor, ok := a.requireAdmin(ctx)
	if !ok {
		return
	}
	if !req.Permanent && req.DurationDays <= 0 {
		respondPolicyError(ctx, policy.Decision{Kind: policy.KindInvalidInput, Reason: policy.ReasonInvalidBanDuration}.Err())
		return
	}

	opts := policy.BanOptions{Reason: req.Reason, DurationDays: req.DurationDays, Permanent: req.Permanent}
	batchID := uuid.NewString()
	report := policy.Bulk(req.IDs, func(id uint) error {
		_, _, err := a.banUser(actor, id, opts, batchID)
		return err
	})
	utils.Success(ctx, gin.H{"batch_id": batchID, "report": report})
}

// BulkUnbanUsers lifts the bans of many accounts.
func (a *AdminController) BulkUnbanUsers(ctx *gin.Context) {
	req, ok := bindBulk(ctx)
	if !ok {
		return
	}
	actor, ok := a.requireAdmin(ctx)
	if !ok {
		return
	}

	batchID := uuid.NewString()
	report := policy.Bulk(req.IDs, func(id uint) error {
		_, _, err := a.unbanUser(actor, id, req.Reason, batchID)
		return err
	})
	utils.Success(ctx, gin.H{"batch_id": batchID, "report": report})
}

// ModerationQueue lists answers awaiting review, oldest first.
func (a *AdminController) ModerationQueue(ctx *gin.Context) {
	if _, ok := a.requireModerator(ctx); !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := a.db.Model(&models.Answer{}).Where("status = ?", models.AnswerPending)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to count queue")
		return
	}
	var answers []models.Answer
	if err := query.Preload("Author").
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&answers).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to list queue")
		return
	}
	utils.Success(ctx, paginated(answers, page, pageSize, total))
}

// ListBanRecords returns the ban history, optionally for one user.
func (a *AdminController) ListBanRecords(ctx *gin.Context) {
	if _, ok := a.requireModerator(ctx); !ok {
		return
	}
	query := a.db.Model(&models.BanRecord{})
	if id, ok := optionalUintQuery(ctx, "user_id"); ok {
		query = query.Where("user_id = ?", id)
	}
	if batch := strings.TrimSpace(ctx.Query("batch_id")); batch != "" {
		query = query.Where("batch_id = ?", batch)
	}
	var items []models.BanRecord
	listAudit(ctx, query, &items)
}

// ListRoleChanges returns the role change history, optionally for one user.
func (a *AdminController) ListRoleChanges(ctx *gin.Context) {
	if _, ok := a.requireModerator(ctx); !ok {
		return
	}
	query := a.db.Model(&models.RoleChange{})
	if id, ok := optionalUintQuery(ctx, "user_id"); ok {
		query = query.Where("target_id = ?", id)
	}
	var items []models.RoleChange
	listAudit(ctx, query, &items)
}

// ListModerationLog returns moderation verdicts, filterable by actor, target kind or batch.
func (a *AdminController) ListModerationLog(ctx *gin.Context) {
	if _, ok := a.requireModerator(ctx); !ok {
		return
	}
	query := a.db.Model(&models.ModerationLog{})
	if id, ok := optionalUintQuery(ctx, "actor_id"); ok {
		query = query.Where("actor_id = ?", id)
	}
	if kind := strings.TrimSpace(ctx.Query("target_kind")); kind != "" {
		query = query.Where("target_kind = ?", kind)
	}
	if batch := strings.TrimSpace(ctx.Query("batch_id")); batch != "" {
		query = query.Where("batch_id = ?", batch)
	}
	var items []models.ModerationLog
	listAudit(ctx, query, &items)
}

func optionalUintQuery(ctx *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(ctx.Query(name)), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// listAudit pages through an audit table, newest first.
func listAudit(ctx *gin.Context, query *gorm.DB, out interface{}) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to count audit entries")
		return
	}
	if err := query.Order("created_at DESC, id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(out).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to list audit entries")
		return
	}
	utils.Success(ctx, paginated(out, page, pageSize, total))
}
