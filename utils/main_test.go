package utils

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cppla/expertqa/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret", RedisDisabled: true, LogLevel: "error"})
	os.Exit(m.Run())
}
