package models

import "time"

// Question is a thread opener. Status moves to answered only through
// accepting an approved answer.
type Question struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AuthorID  uint           `gorm:"index;not null" json:"author_id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	Category  Category       `gorm:"size:32;index;not null" json:"category"`
	Priority  Priority       `gorm:"size:16;not null;default:'normal'" json:"priority"`
	Status    QuestionStatus `gorm:"size:16;index;not null;default:'pending'" json:"status"`
	Likes     int64          `gorm:"not null;default:0" json:"likes"`
	Views     int64          `gorm:"not null;default:0" json:"views"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Author    User           `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Answers   []Answer       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"answers,omitempty"`
	Comments  []Comment      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}
