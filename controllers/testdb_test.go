package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/cppla/expertqa/config"
	"github.com/cppla/expertqa/middleware"
	"github.com/cppla/expertqa/models"
)

// newTestDB opens a private in-memory database migrated with every model.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(config.Models()...))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string, role models.Role) models.User {
	t.Helper()
	u := models.User{Username: name, Role: role, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedQuestion(t *testing.T, db *gorm.DB, author models.User, status models.QuestionStatus) models.Question {
	t.Helper()
	q := models.Question{
		AuthorID: author.ID,
		Title:    "Is a verbal tenancy agreement binding?",
		Body:     "We never signed anything.",
		Category: models.CategoryLegal,
		Priority: models.PriorityNormal,
		Status:   status,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(&q).Error)
	return q
}

func seedAnswer(t *testing.T, db *gorm.DB, q models.Question, author models.User, status models.AnswerStatus, best bool) models.Answer {
	t.Helper()
	a := models.Answer{
		QuestionID:  q.ID,
		AuthorID:    author.ID,
		Body:        "Usually yes, within limits.",
		Status:      status,
		IsBest:      best,
		WasApproved: status == models.AnswerApproved,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(&a).Error)
	return a
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// serve runs one request through handler mounted at route, authenticated as
// userID (0 for anonymous).
func serve(t *testing.T, handler gin.HandlerFunc, method, route, path string, userID uint, body interface{}) (int, apiResponse) {
	t.Helper()
	r := gin.New()
	r.Handle(method, route, func(ctx *gin.Context) {
		if userID != 0 {
			ctx.Set(middleware.ContextUserIDKey, userID)
		}
		ctx.Next()
	}, handler)

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func decodeData(t *testing.T, resp apiResponse, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, out))
}
