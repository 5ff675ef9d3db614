package models

type CompleteLessonRequest struct {
	Score     *int    `json:"score" binding:"omitempty,min=0,max=100"`
	TimeSpent float64 `json:"time_spent" binding:"min=0,max=1440"`
}

type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Slug        string `json:"slug" binding:"omitempty,slug"`
	Description string `json:"description"`
	Level       string `json:"level" binding:"omitempty,course_level"`
	Category    string `json:"category" binding:"max=64"`
	ImageURL    string `json:"image_url" binding:"omitempty,url"`
	IsPreview   bool   `json:"is_preview"`
}

type UpdateCourseRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Slug        *string `json:"slug" binding:"omitempty,slug"`
	Description *string `json:"description"`
	Level       *string `json:"level" binding:"omitempty,course_level"`
	Category    *string `json:"category" binding:"omitempty,max=64"`
	ImageURL    *string `json:"image_url" binding:"omitempty,url"`
	IsPreview   *bool   `json:"is_preview"`
}

type PublishCourseRequest struct {
	Published bool `json:"published"`
}

type CreateLessonRequest struct {
	Title           string `json:"title" binding:"required,max=200"`
	Summary         string `json:"summary" binding:"max=500"`
	Content         string `json:"content"`
	Type            string `json:"type" binding:"omitempty,lesson_type"`
	Position        *int   `json:"order" binding:"omitempty,min=0"`
	IsPublished     bool   `json:"is_published"`
	DurationMinutes int    `json:"duration_minutes" binding:"min=0"`
	VideoURL        string `json:"video_url" binding:"omitempty,url"`
	VideoProvider   string `json:"video_provider" binding:"max=32"`
	VideoAssetID    string `json:"video_asset_id"`
}

type UpdateLessonRequest struct {
	Title           *string `json:"title" binding:"omitempty,max=200"`
	Summary         *string `json:"summary" binding:"omitempty,max=500"`
	Content         *string `json:"content"`
	Type            *string `json:"type" binding:"omitempty,lesson_type"`
	IsPublished     *bool   `json:"is_published"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,min=0"`
	VideoURL        *string `json:"video_url" binding:"omitempty,url"`
	VideoProvider   *string `json:"video_provider" binding:"omitempty,max=32"`
	VideoAssetID    *string `json:"video_asset_id"`
	VideoStatus     *string `json:"video_status" binding:"omitempty,max=32"`
}

type ReorderLessonsRequest struct {
	LessonIDs []uint `json:"lesson_ids" binding:"required,min=1"`
}

type QuizQuestionInput struct {
	Prompt        string   `json:"prompt" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2,dive,required"`
	CorrectAnswer int      `json:"correct_answer" binding:"min=0"`
	Explanation   string   `json:"explanation"`
}

type UpsertQuizRequest struct {
	Title        string              `json:"title" binding:"max=200"`
	PassingScore *int                `json:"passing_score" binding:"omitempty,min=0,max=100"`
	Questions    []QuizQuestionInput `json:"questions" binding:"required,min=1,dive"`
}

type SubmitQuizRequest struct {
	Answers   []int   `json:"answers" binding:"required"`
	TimeSpent float64 `json:"time_spent" binding:"min=0,max=1440"`
}

type QuizAnswerResult struct {
	QuestionIndex int    `json:"question_index"`
	Selected      int    `json:"selected"`
	Correct       bool   `json:"correct"`
	CorrectAnswer int    `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

type QuizSubmissionResult struct {
	Score          int                `json:"score"`
	PassingScore   int                `json:"passing_score"`
	Passed         bool               `json:"passed"`
	CorrectAnswers int                `json:"correct_answers"`
	TotalQuestions int                `json:"total_questions"`
	LessonComplete bool               `json:"lesson_complete"`
	Results        []QuizAnswerResult `json:"results"`
}

type CreateForumThreadRequest struct {
	CourseID *uint  `json:"course_id"`
	Title    string `json:"title" binding:"required,max=200"`
	Content  string `json:"content" binding:"required"`
}

type UpdateForumThreadRequest struct {
	CourseID OptionalUint `json:"course_id"`
	Title    *string      `json:"title" binding:"omitempty,max=200"`
	Content  *string      `json:"content"`
}

type ForumReplyRequest struct {
	Content string `json:"content" binding:"required"`
}

type ForumVoteRequest struct {
	Value int `json:"value" binding:"oneof=-1 0 1"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin instructor learner"`
}
