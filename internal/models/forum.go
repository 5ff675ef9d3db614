package models

import (
	"time"

	"gorm.io/gorm"
)

type ForumThread struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CourseID   *uint        `gorm:"index" json:"course_id,omitempty"`
	AuthorID   uint         `gorm:"not null;index" json:"author_id"`
	Author     *User        `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Title      string       `gorm:"not null" json:"title"`
	Content    string       `gorm:"type:text;not null" json:"content"`
	Rating     int          `gorm:"not null;default:0" json:"rating"`
	ReplyCount int          `gorm:"not null;default:0" json:"reply_count"`
	Replies    []ForumReply `gorm:"foreignKey:ThreadID" json:"replies,omitempty"`
}

type ForumReply struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ThreadID uint   `gorm:"not null;index" json:"thread_id"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Content  string `gorm:"type:text;not null" json:"content"`
}

type ForumThreadVote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ThreadID uint `gorm:"not null;uniqueIndex:idx_forum_thread_votes_thread_user,priority:1" json:"thread_id"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_forum_thread_votes_thread_user,priority:2;index" json:"user_id"`
	Value    int  `gorm:"not null" json:"value"`
}
