package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/utils"
)

// StatsController provides forum and moderation statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

type statusCount struct {
	Status string
	Count  int64
}

func (s *StatsController) countByStatus(model interface{}) map[string]int64 {
	var rows []statusCount
	out := map[string]int64{}
	if err := s.db.Model(model).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return out
	}
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out
}

// GetStats returns aggregate counts for the forum. Failed counters fall back
// to zero instead of failing the endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var cached gin.H
	if utils.CacheGetJSON(statsCacheKey, &cached) {
		utils.Success(ctx, cached)
		return
	}

	var userCount, bannedCount, commentCount, expertCount int64
	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := s.db.Model(&models.User{}).Where("is_banned = ?", true).Count(&bannedCount).Error; err != nil {
		bannedCount = 0
	}
	if err := s.db.Model(&models.User{}).
		Where("role IN ?", []models.Role{models.RoleExpert, models.RoleLegalAdvisor}).
		Count(&expertCount).Error; err != nil {
		expertCount = 0
	}
	if err := s.db.Model(&models.Comment{}).Count(&commentCount).Error; err != nil {
		commentCount = 0
	}

	payload := gin.H{
		"user_count":        userCount,
		"banned_user_count": bannedCount,
		"specialist_count":  expertCount,
		"comment_count":     commentCount,
		"questions":         s.countByStatus(&models.Question{}),
		"answers":           s.countByStatus(&models.Answer{}),
	}
	utils.CacheSetJSON(statsCacheKey, payload, time.Minute)
	utils.Success(ctx, payload)
}
