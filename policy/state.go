package policy

import (
	"fmt"

	"github.com/cppla/expertqa/models"
)

// Pending -> answered is absent: only AcceptAnswer moves a question to
// answered, since answered requires a best answer.
var questionTransitions = map[models.QuestionStatus][]models.QuestionStatus{
	models.QuestionPending:  {models.QuestionClosed},
	models.QuestionAnswered: {models.QuestionPending, models.QuestionClosed},
}

var answerTransitions = map[models.AnswerStatus][]models.AnswerStatus{
	models.AnswerPending:  {models.AnswerApproved, models.AnswerRejected},
	models.AnswerApproved: {models.AnswerRejected},
	models.AnswerRejected: {models.AnswerApproved},
}

// CanTransitionQuestion reports whether from -> to is a legal question move.
// Closed is terminal.
func CanTransitionQuestion(from, to models.QuestionStatus) bool {
	for _, s := range questionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionAnswer reports whether from -> to is a legal answer move.
func CanTransitionAnswer(from, to models.AnswerStatus) bool {
	for _, s := range answerTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionQuestion moves q to status to. Moving to answered is refused here;
// it is reserved for AcceptAnswer.
func TransitionQuestion(q *models.Question, to models.QuestionStatus) error {
	if !CanTransitionQuestion(q.Status, to) {
		if q.Status == models.QuestionClosed {
			return newError(KindInvalidStateTransition, ReasonQuestionClosed)
		}
		return newError(KindInvalidStateTransition, ReasonTransitionNotAllowed)
	}
	q.Status = to
	return nil
}

// TransitionAnswer moves a to status to. Approval is remembered in
// WasApproved; rejection always clears IsBest.
func TransitionAnswer(a *models.Answer, to models.AnswerStatus) error {
	if !CanTransitionAnswer(a.Status, to) {
		return newError(KindInvalidStateTransition, ReasonTransitionNotAllowed)
	}
	a.Status = to
	switch to {
	case models.AnswerApproved:
		a.WasApproved = true
	case models.AnswerRejected:
		a.IsBest = false
	}
	return nil
}

// AcceptAnswer marks answers[answerID] as the single best answer of q,
// clearing any previous holder, and moves q to answered. When two accepts
// race, the last one applied wins; callers gate on Resolver.CanAcceptAnswer
// before calling this.
func AcceptAnswer(q *models.Question, answers []models.Answer, answerID uint) error {
	idx := indexOfAnswer(answers, answerID)
	if idx < 0 || answers[idx].QuestionID != q.ID {
		return newError(KindInvalidInput, ReasonNotFound)
	}
	if q.Status == models.QuestionClosed {
		return newError(KindInvalidStateTransition, ReasonQuestionClosed)
	}
	if answers[idx].Status != models.AnswerApproved {
		return newError(KindInvalidStateTransition, ReasonAnswerNotApproved)
	}
	for i := range answers {
		answers[i].IsBest = answers[i].ID == answerID
	}
	if q.Status == models.QuestionPending {
		q.Status = models.QuestionAnswered
	}
	return nil
}

// BestAnswer returns the answer currently marked best, or nil.
func BestAnswer(answers []models.Answer) *models.Answer {
	for i := range answers {
		if answers[i].IsBest {
			return &answers[i]
		}
	}
	return nil
}

// CheckInvariants verifies the thread-level invariants on a snapshot.
func CheckInvariants(q *models.Question, answers []models.Answer) error {
	best := 0
	authors := make(map[uint]uint, len(answers))
	for i := range answers {
		a := &answers[i]
		if a.IsBest {
			best++
			if a.Status != models.AnswerApproved {
				return fmt.Errorf("answer %d is best but %s", a.ID, a.Status)
			}
		}
		if prev, ok := authors[a.AuthorID]; ok {
			return fmt.Errorf("author %d holds answers %d and %d", a.AuthorID, prev, a.ID)
		}
		authors[a.AuthorID] = a.ID
	}
	if best > 1 {
		return fmt.Errorf("question %d has %d best answers", q.ID, best)
	}
	if q.Status == models.QuestionAnswered && best == 0 {
		return fmt.Errorf("question %d is answered without a best answer", q.ID)
	}
	return nil
}

func indexOfAnswer(answers []models.Answer, id uint) int {
	for i := range answers {
		if answers[i].ID == id {
			return i
		}
	}
	return -1
}
