package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/utils"
)

// QuestionViewCounter increments the view counter of the question named by
// the :id path parameter after a successful GET.
func QuestionViewCounter(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			return
		}

		// atomic increment; skips hooks and UpdatedAt
		err = db.Model(&models.Question{}).Where("id = ?", id).
			UpdateColumn("views", gorm.Expr("views + 1")).Error
		if err != nil {
			utils.L().Debug("question view count failed", zap.Uint64("question_id", id), zap.Error(err))
		}
	}
}
