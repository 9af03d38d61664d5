package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/expertqa/middleware"
	"github.com/cppla/expertqa/models"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return ctx, w
}

func TestParsePagination(t *testing.T) {
	page, size := parsePagination("", "")
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)

	page, size = parsePagination("3", "50")
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)

	page, size = parsePagination("-1", "1000")
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)
}

func TestPaginatedTotalPages(t *testing.T) {
	p := paginated([]int{}, 1, 10, 21)["pagination"].(gin.H)
	assert.Equal(t, 3, p["total_pages"])

	p = paginated([]int{}, 1, 10, 0)["pagination"].(gin.H)
	assert.Equal(t, 0, p["total_pages"])
}

func TestGetUserID(t *testing.T) {
	ctx, _ := testContext("/")
	_, ok := getUserID(ctx)
	assert.False(t, ok)

	ctx.Set(middleware.ContextUserIDKey, uint(7))
	id, ok := getUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, uint(7), id)

	ctx.Set(middleware.ContextUserIDKey, uint(0))
	_, ok = getUserID(ctx)
	assert.False(t, ok)
}

func TestParseIDParam(t *testing.T) {
	ctx, w := testContext("/")
	ctx.Params = gin.Params{{Key: "id", Value: "12"}}
	id, ok := parseIDParam(ctx, "id")
	assert.True(t, ok)
	assert.Equal(t, uint(12), id)

	ctx, w = testContext("/")
	ctx.Params = gin.Params{{Key: "id", Value: "abc"}}
	_, ok = parseIDParam(ctx, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVisibleAnswers(t *testing.T) {
	answers := []models.Answer{
		{ID: 1, AuthorID: 10, Status: models.AnswerApproved},
		{ID: 2, AuthorID: 11, Status: models.AnswerPending},
		{ID: 3, AuthorID: 12, Status: models.AnswerRejected},
	}
	ids := func(in []models.Answer) []uint {
		out := []uint{}
		for _, a := range in {
			out = append(out, a.ID)
		}
		return out
	}

	assert.Equal(t, []uint{1}, ids(visibleAnswers(nil, answers)))
	assert.Equal(t, []uint{1, 2}, ids(visibleAnswers(&models.User{ID: 11, Role: models.RoleExpert}, answers)))
	assert.Equal(t, []uint{1, 2, 3}, ids(visibleAnswers(&models.User{ID: 99, Role: models.RoleModerator}, answers)))
}

func TestParseQuestionFilters(t *testing.T) {
	ctx, _ := testContext("/questions?status=answered&category=legalCategory&priority=urgent&author_id=4")
	f, err := parseQuestionFilters(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionAnswered, f.Status)
	assert.Equal(t, models.CategoryLegal, f.Category)
	assert.Equal(t, models.PriorityUrgent, f.Priority)
	assert.Equal(t, uint(4), f.AuthorID)
	assert.Contains(t, f.cacheKey(2, 20), "status=answered:cat=legalCategory:prio=urgent:author=4:page=2:size=20")

	ctx, _ = testContext("/questions")
	f, err = parseQuestionFilters(ctx)
	require.NoError(t, err)
	assert.Equal(t, questionFilters{}, f)

	for _, bad := range []string{"status=open", "category=medical", "priority=asap", "author_id=x"} {
		ctx, _ = testContext("/questions?" + bad)
		_, err = parseQuestionFilters(ctx)
		assert.Error(t, err, bad)
	}
}

func TestValidUsername(t *testing.T) {
	assert.True(t, validUsername("jane_doe-2"))
	assert.False(t, validUsername("a"))
	assert.False(t, validUsername("has space"))
	assert.False(t, validUsername("semi;colon"))
}

func TestNewCoordinatorUsesConfiguredWindows(t *testing.T) {
	c := newCoordinator()
	assert.Equal(t, 24*time.Hour, c.Resolver.EditWindow)
	assert.Equal(t, time.Hour, c.Resolver.QuestionDeleteWindow)
}

func TestPublicUserOmitsEmail(t *testing.T) {
	u := models.User{ID: 1, Username: "amy", Email: "amy@example.com", Role: models.RoleExpert}
	assert.NotContains(t, publicUser(u), "email")
	assert.Equal(t, "amy@example.com", privateUser(u)["email"])
}
