package models

import "time"

// Answer is a reply by a specialist. An author holds at most one answer per
// question, and only an approved answer may be best.
type Answer struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	QuestionID  uint         `gorm:"not null;uniqueIndex:idx_answer_question_author" json:"question_id"`
	AuthorID    uint         `gorm:"not null;uniqueIndex:idx_answer_question_author;index" json:"author_id"`
	Body        string       `gorm:"type:text;not null" json:"body"`
	Status      AnswerStatus `gorm:"size:16;index;not null;default:'pending'" json:"status"`
	IsBest      bool         `gorm:"not null;default:false" json:"is_best"`
	WasApproved bool         `gorm:"not null;default:false" json:"was_approved"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Author      User         `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
