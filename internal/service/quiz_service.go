package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/datatypes"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
	"cryptoacademy-backend/pkg/logger"
	"cryptoacademy-backend/pkg/validator"
)

// QuizService stores quizzes for quiz lessons and grades submissions. A
// passing submission completes the lesson through ProgressService.
type QuizService struct {
	store    repository.Store
	progress *ProgressService
}

func NewQuizService(store repository.Store, progress *ProgressService) *QuizService {
	initMetrics()
	return &QuizService{store: store, progress: progress}
}

func (s *QuizService) SetRepositories(store repository.Store) {
	if s == nil {
		return
	}
	s.store = store
}

func (s *QuizService) repos() (repository.Repositories, error) {
	if s == nil || s.store == nil {
		return repository.Repositories{}, errors.New("quiz repository not configured")
	}
	return s.store.Repositories(), nil
}

func (s *QuizService) UpsertQuiz(actor authorization.Actor, lessonID uint, req models.UpsertQuizRequest) (*models.Quiz, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}

	lesson, err := repos.Lessons.GetByID(lessonID)
	if err != nil {
		return nil, notFound(err, ErrLessonNotFound)
	}
	if _, err := loadManagedCourse(repos, actor, lesson.CourseID); err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeQuiz {
		return nil, newValidationError("quizzes can only be attached to quiz lessons")
	}
	if len(req.Questions) == 0 {
		return nil, newValidationError("a quiz needs at least one question")
	}

	passing := models.DefaultQuizPassingScore
	if req.PassingScore != nil {
		passing = *req.PassingScore
	}
	if passing < 0 || passing > 100 {
		return nil, newValidationError("passing score must be between 0 and 100")
	}

	questions := make([]models.QuizQuestion, 0, len(req.Questions))
	for i, input := range req.Questions {
		prompt := validator.SanitizeString(input.Prompt)
		if prompt == "" {
			return nil, newValidationError("question %d needs a prompt", i+1)
		}
		if len(input.Options) < 2 {
			return nil, newValidationError("question %d needs at least two options", i+1)
		}
		options := make([]string, len(input.Options))
		for j, option := range input.Options {
			options[j] = validator.SanitizeString(option)
			if options[j] == "" {
				return nil, newValidationError("question %d option %d is empty", i+1, j+1)
			}
		}
		if input.CorrectAnswer < 0 || input.CorrectAnswer >= len(options) {
			return nil, newValidationError("question %d correct answer is out of range", i+1)
		}
		correct := input.CorrectAnswer
		questions = append(questions, models.QuizQuestion{
			Prompt:        prompt,
			Options:       options,
			CorrectAnswer: &correct,
			Explanation:   validator.SanitizeString(input.Explanation),
		})
	}

	title := validator.SanitizeString(req.Title)
	if title == "" {
		title = lesson.Title
	}

	quiz := &models.Quiz{
		LessonID:     lesson.ID,
		CourseID:     lesson.CourseID,
		Title:        title,
		PassingScore: passing,
		Questions:    datatypes.NewJSONType(questions),
	}
	if err := repos.Quizzes.Upsert(quiz); err != nil {
		return nil, fmt.Errorf("failed to save quiz: %w", err)
	}
	return repos.Quizzes.GetByLesson(lesson.ID)
}

// GetQuiz returns the quiz of a lesson. Learners receive it without answers.
func (s *QuizService) GetQuiz(actor authorization.Actor, lessonID uint) (*models.Quiz, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}
	quiz, course, err := s.load(repos, lessonID)
	if err != nil {
		return nil, err
	}
	if actor.CanManage(course.CreatorID) {
		return quiz, nil
	}
	if err := s.ensureReachable(repos, actor, course, lessonID); err != nil {
		return nil, err
	}
	view := quiz.LearnerView()
	return &view, nil
}

func (s *QuizService) DeleteQuiz(actor authorization.Actor, lessonID uint) error {
	repos, err := s.repos()
	if err != nil {
		return err
	}
	_, course, err := s.load(repos, lessonID)
	if err != nil {
		return err
	}
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !actor.CanManage(course.CreatorID) {
		return ErrUnauthorized
	}
	return repos.Quizzes.DeleteByLesson(lessonID)
}

func (s *QuizService) load(repos repository.Repositories, lessonID uint) (*models.Quiz, *models.Course, error) {
	quiz, err := repos.Quizzes.GetByLesson(lessonID)
	if err != nil {
		return nil, nil, notFound(err, ErrQuizNotFound)
	}
	course, err := repos.Courses.GetByID(quiz.CourseID)
	if err != nil {
		return nil, nil, notFound(err, ErrQuizNotFound)
	}
	return quiz, course, nil
}

func (s *QuizService) ensureReachable(repos repository.Repositories, actor authorization.Actor, course *models.Course, lessonID uint) error {
	lesson, err := repos.Lessons.GetByID(lessonID)
	if err != nil {
		return notFound(err, ErrQuizNotFound)
	}
	if !lessonVisible(actor, course, lesson) {
		return ErrQuizNotFound
	}
	return nil
}

// GradeQuiz scores answers against the quiz. The score is the rounded share of
// correct answers in percent.
func GradeQuiz(quiz *models.Quiz, answers []int) (*models.QuizSubmissionResult, error) {
	questions := quiz.Questions.Data()
	if len(questions) == 0 {
		return nil, newValidationError("quiz has no questions")
	}
	if len(answers) != len(questions) {
		return nil, newValidationError("expected %d answers, got %d", len(questions), len(answers))
	}

	result := &models.QuizSubmissionResult{
		PassingScore:   quiz.PassingScore,
		TotalQuestions: len(questions),
		Results:        make([]models.QuizAnswerResult, 0, len(questions)),
	}
	for i, question := range questions {
		correctAnswer := -1
		if question.CorrectAnswer != nil {
			correctAnswer = *question.CorrectAnswer
		}
		correct := answers[i] == correctAnswer
		if correct {
			result.CorrectAnswers++
		}
		result.Results = append(result.Results, models.QuizAnswerResult{
			QuestionIndex: i,
			Selected:      answers[i],
			Correct:       correct,
			CorrectAnswer: correctAnswer,
			Explanation:   question.Explanation,
		})
	}

	result.Score = int(math.Round(float64(result.CorrectAnswers) / float64(result.TotalQuestions) * 100))
	result.Passed = result.Score >= quiz.PassingScore
	return result, nil
}

// SubmitQuiz grades a submission. When it passes, the lesson is completed with
// the quiz score and the reported time.
func (s *QuizService) SubmitQuiz(ctx context.Context, actor authorization.Actor, lessonID uint, req models.SubmitQuizRequest) (*models.QuizSubmissionResult, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if err := validateCompletion(nil, req.TimeSpent); err != nil {
		return nil, err
	}
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}

	quiz, course, err := s.load(repos, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureReachable(repos, actor, course, lessonID); err != nil {
		return nil, err
	}

	result, err := GradeQuiz(quiz, req.Answers)
	if err != nil {
		return nil, err
	}

	if !result.Passed {
		quizSubmissions.WithLabelValues("failed").Inc()
		return result, nil
	}
	quizSubmissions.WithLabelValues("passed").Inc()

	if s.progress == nil {
		return nil, errors.New("progress service not configured")
	}
	score := result.Score
	if _, err := s.progress.CompleteLesson(ctx, actor, lessonID, models.CompleteLessonRequest{Score: &score, TimeSpent: req.TimeSpent}); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("lesson_id", lessonID).Error("Failed to complete lesson after passing quiz")
		return nil, err
	}
	result.LessonComplete = true
	return result, nil
}
