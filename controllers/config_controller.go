package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/expertqa/config"
	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/utils"
)

// ConfigController serves the public, configuration-driven policy settings clients render against.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetPolicy returns the content windows and the accepted enum values.
func (c *ConfigController) GetPolicy(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"edit_window_hours":              cfg.EditWindowHours,
		"question_delete_window_minutes": cfg.QuestionDeleteWindowMinutes,
		"roles":                          models.AllRoles(),
		"categories":                     []models.Category{models.CategoryExpert, models.CategoryLegal},
		"priorities":                     []models.Priority{models.PriorityLow, models.PriorityNormal, models.PriorityHigh, models.PriorityUrgent},
	})
}
