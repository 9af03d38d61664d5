package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/middleware"
	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/policy"
	"github.com/cppla/expertqa/utils"
)

// AuthController handles registration, sessions and the caller's own profile.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

func validUsername(s string) bool {
	if l := len([]rune(s)); l < 2 || l > 32 {
		return false
	}
	for _, r := range s {
		if r == '-' || r == '_' {
			continue
		}
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		return false
	}
	return true
}

// Register creates a member account and signs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"omitempty,email"`
		Password string `json:"password" binding:"required"`
		Confirm  string `json:"confirm"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 2-32 letters, digits, '-' or '_'")
		return
	}
	if req.Password != req.Confirm {
		utils.Error(ctx, http.StatusBadRequest, 40002, "passwords do not match")
		return
	}
	ip := ctx.ClientIP()
	if !utils.RegistrationCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many attempts, try again shortly")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordLength) {
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         models.RoleMember,
		IsActive:     true,
	}
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}
	utils.RegistrationDailyIncrement(ip)

	token, _, err := utils.IssueToken(user.ID, user.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": privateUser(user)})
}

// Login verifies credentials and issues a JWT. Lapsed temporary bans are
// lifted here; active bans refuse the login.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !user.IsActive {
		utils.Error(ctx, http.StatusForbidden, 40303, "account disabled")
		return
	}

	now := time.Now()
	if record := policy.ExpireBan(&user, now); record != nil {
		err := a.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(user.BanColumns()).Error; err != nil {
				return err
			}
			return tx.Create(record).Error
		})
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to lift expired ban")
			return
		}
		utils.L().Info("expired ban lifted at login", zap.Uint("user_id", user.ID))
	}
	if user.BanActive(now) {
		utils.Respond(ctx, http.StatusForbidden, 40302, "account banned", gin.H{
			"banned_until": user.BannedUntil,
			"permanent":    user.IsPermanentBan,
			"reason":       user.BanReason,
		})
		return
	}

	token, _, err := utils.IssueToken(user.ID, user.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": privateUser(user)})
}

// Logout revokes the presented token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	value, ok := ctx.Get(middleware.ContextClaimsKey)
	claims, _ := value.(*utils.Claims)
	if !ok || claims == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "unauthorized")
		return
	}

	expiresAt := time.Now().Add(72 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(claims.ID, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	user, err := loadActor(ctx, a.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if user == nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, privateUser(*user))
}

// UpdateProfile allows the authenticated user to update basic profile fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		Email     *string `json:"email" binding:"omitempty,email"`
		Signature *string `json:"signature"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	user, err := loadActor(ctx, a.db)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}
	if user == nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
		updates["email"] = user.Email
	}
	if req.Signature != nil {
		sig := []rune(utils.SanitizePlain(*req.Signature))
		if len(sig) > 255 {
			sig = sig[:255]
		}
		user.Signature = string(sig)
		updates["signature"] = user.Signature
	}
	if len(updates) > 0 {
		if err := a.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
			return
		}
	}
	utils.Success(ctx, privateUser(*user))
}

// GetUserPublic returns public profile information for a user.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var user models.User
	if err := a.db.First(&user, id).Error; err != nil {
		respondPolicyError(ctx, err)
		return
	}
	utils.Success(ctx, publicUser(user))
}
