package policy

import (
	"fmt"
	"time"

	"github.com/cppla/expertqa/models"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func resolverAt(now time.Time) *Resolver {
	r := NewResolver()
	r.Now = func() time.Time { return now }
	return r
}

func newUser(id uint, role models.Role) *models.User {
	return &models.User{ID: id, Username: fmt.Sprintf("user-%d", id), Role: role, IsActive: true}
}

func newQuestion(id uint, author *models.User, createdAt time.Time) *models.Question {
	return &models.Question{
		ID:        id,
		AuthorID:  author.ID,
		Author:    *author,
		Title:     "Can my landlord keep the deposit?",
		Body:      "Details inside",
		Category:  models.CategoryLegal,
		Priority:  models.PriorityNormal,
		Status:    models.QuestionPending,
		CreatedAt: createdAt,
	}
}

func newAnswer(id uint, q *models.Question, author *models.User, status models.AnswerStatus) models.Answer {
	return models.Answer{
		ID:          id,
		QuestionID:  q.ID,
		AuthorID:    author.ID,
		Author:      *author,
		Body:        "It depends on the lease.",
		Status:      status,
		WasApproved: status == models.AnswerApproved,
		CreatedAt:   t0,
	}
}
