package models

import "time"

// Comment is discussion attached to a question. ParentID allows one level of
// replies only.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"index;not null" json:"question_id"`
	ParentID   *uint     `gorm:"index" json:"parent_id,omitempty"`
	AuthorID   uint      `gorm:"index;not null" json:"author_id"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
