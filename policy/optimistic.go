package policy

import "github.com/cppla/expertqa/models"

// ThreadSnapshot is the last known state of a question and its answers.
type ThreadSnapshot struct {
	Question models.Question
	Answers  []models.Answer
}

// Clone returns a copy that shares no mutable answer state with s.
func (s ThreadSnapshot) Clone() ThreadSnapshot {
	out := ThreadSnapshot{Question: s.Question}
	out.Question.Answers = nil
	if s.Answers != nil {
		out.Answers = make([]models.Answer, len(s.Answers))
		copy(out.Answers, s.Answers)
	}
	return out
}

// BestAnswerID returns the ID of the best answer, or 0.
func (s ThreadSnapshot) BestAnswerID() uint {
	if a := BestAnswer(s.Answers); a != nil {
		return a.ID
	}
	return 0
}

// Pending is a mutation applied to a local copy ahead of the authoritative
// response. It is a compensating pair: Revert restores the pre-mutation view,
// Reconcile checks the confirmed state against the optimistic one.
type Pending struct {
	before ThreadSnapshot
	after  ThreadSnapshot
}

// ApplyOptimistic runs mutate against a copy of s. s itself is left untouched.
func ApplyOptimistic(s ThreadSnapshot, mutate func(*ThreadSnapshot) error) (*Pending, error) {
	after := s.Clone()
	if err := mutate(&after); err != nil {
		return nil, err
	}
	return &Pending{before: s.Clone(), after: after}, nil
}

// After returns the optimistic view.
func (p *Pending) After() ThreadSnapshot { return p.after.Clone() }

// Revert returns the snapshot as it was before the mutation.
func (p *Pending) Revert() ThreadSnapshot { return p.before.Clone() }

// Reconcile compares the server-confirmed state with the optimistic one. The
// confirmed snapshot is always returned; a StaleConflict error means another
// actor's write won and the caller must reload before retrying. Only the
// best-answer holder, the question status and the answers the mutation itself
// touched are compared; unrelated sibling changes are not conflicts.
func (p *Pending) Reconcile(confirmed ThreadSnapshot) (ThreadSnapshot, error) {
	out := confirmed.Clone()
	if confirmed.BestAnswerID() != p.after.BestAnswerID() || confirmed.Question.Status != p.after.Question.Status {
		return out, newError(KindStaleConflict, ReasonStaleSnapshot)
	}
	touched := p.touched()
	for _, a := range confirmed.Answers {
		if st, ok := touched[a.ID]; ok && st != a.Status {
			return out, newError(KindStaleConflict, ReasonStaleSnapshot)
		}
	}
	return out, nil
}

// touched returns the expected status of every answer whose status or best
// flag differs between the before and after views.
func (p *Pending) touched() map[uint]models.AnswerStatus {
	before := make(map[uint]models.Answer, len(p.before.Answers))
	for _, a := range p.before.Answers {
		before[a.ID] = a
	}
	out := make(map[uint]models.AnswerStatus)
	for _, a := range p.after.Answers {
		prev, ok := before[a.ID]
		if !ok || prev.Status != a.Status || prev.IsBest != a.IsBest {
			out[a.ID] = a.Status
		}
	}
	return out
}
