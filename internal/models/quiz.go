package models

import (
	"time"

	"gorm.io/datatypes"
)

const DefaultQuizPassingScore = 70

type QuizQuestion struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Quiz belongs to a lesson of type quiz. Submitting a passing result
// completes the lesson through the regular completion pipeline.
type Quiz struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LessonID     uint                               `gorm:"not null;uniqueIndex" json:"lesson_id"`
	CourseID     uint                               `gorm:"not null;index" json:"course_id"`
	Title        string                             `json:"title"`
	PassingScore int                                `gorm:"not null;default:70" json:"passing_score"`
	Questions    datatypes.JSONType[[]QuizQuestion] `json:"questions"`
}

// LearnerView returns a copy of the quiz with answers and explanations removed.
func (q Quiz) LearnerView() Quiz {
	questions := q.Questions.Data()
	stripped := make([]QuizQuestion, len(questions))
	for i, question := range questions {
		options := make([]string, len(question.Options))
		copy(options, question.Options)
		stripped[i] = QuizQuestion{Prompt: question.Prompt, Options: options}
	}
	q.Questions = datatypes.NewJSONType(stripped)
	return q
}
