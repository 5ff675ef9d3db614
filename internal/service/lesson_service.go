package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
	"cryptoacademy-backend/pkg/validator"
)

const (
	videoStatusPending = "pending"
	videoStatusReady   = "ready"
)

type LessonService struct {
	store   repository.Store
	courses *CourseService
}

func NewLessonService(store repository.Store, courses *CourseService) *LessonService {
	return &LessonService{store: store, courses: courses}
}

func (s *LessonService) SetRepositories(store repository.Store) {
	if s == nil {
		return
	}
	s.store = store
}

func (s *LessonService) repos() (repository.Repositories, error) {
	if s == nil || s.store == nil {
		return repository.Repositories{}, errors.New("lesson repository not configured")
	}
	return s.store.Repositories(), nil
}

// lessonVisible reports whether the actor may read or complete the lesson.
func lessonVisible(actor authorization.Actor, course *models.Course, lesson *models.Lesson) bool {
	return actor.CanManage(course.CreatorID) || (course.IsPublished && lesson.IsPublished)
}

// GetLesson returns a single lesson. Drafts and lessons of unpublished courses
// are visible only to those who manage the course.
func (s *LessonService) GetLesson(actor authorization.Actor, id uint) (*models.LessonView, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}

	lesson, err := repos.Lessons.GetByID(id)
	if err != nil {
		return nil, notFound(err, ErrLessonNotFound)
	}
	course, err := repos.Courses.GetByID(lesson.CourseID)
	if err != nil {
		return nil, notFound(err, ErrLessonNotFound)
	}
	if !lessonVisible(actor, course, lesson) {
		return nil, ErrLessonNotFound
	}

	view := &models.LessonView{Lesson: *lesson}
	if actor.IsAuthenticated() {
		progress, err := repos.Progress.Get(actor.UserID, lesson.CourseID, lesson.ID)
		switch {
		case err == nil:
			view.Completed = progress.Completed
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("failed to load progress: %w", err)
		}
	}
	return view, nil
}

func (s *LessonService) CreateLesson(actor authorization.Actor, courseID uint, req models.CreateLessonRequest) (*models.Lesson, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}
	course, err := loadManagedCourse(repos, actor, courseID)
	if err != nil {
		return nil, err
	}

	title := validator.SanitizeString(req.Title)
	if title == "" {
		return nil, newValidationError("lesson title is required")
	}
	lessonType, err := normalizeLessonType(req.Type)
	if err != nil {
		return nil, err
	}

	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		position, err = repos.Lessons.NextPosition(course.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to determine lesson order: %w", err)
		}
	}

	lesson := &models.Lesson{
		CourseID:        course.ID,
		Title:           title,
		Summary:         validator.SanitizeString(req.Summary),
		Content:         validator.SanitizeHTML(req.Content),
		Position:        position,
		Type:            lessonType,
		IsPublished:     req.IsPublished,
		DurationMinutes: req.DurationMinutes,
	}
	if lessonType == models.LessonTypeVideo {
		applyVideo(lesson, strings.TrimSpace(req.VideoURL), strings.TrimSpace(req.VideoProvider), strings.TrimSpace(req.VideoAssetID))
	}

	if err := repos.Lessons.Create(lesson); err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	s.courses.invalidateCatalog(course.IsPublished)
	return lesson, nil
}

func (s *LessonService) UpdateLesson(actor authorization.Actor, id uint, req models.UpdateLessonRequest) (*models.Lesson, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if s == nil || s.store == nil {
		return nil, errors.New("lesson repository not configured")
	}

	var updated *models.Lesson
	err := s.store.Transaction(func(repos repository.Repositories) error {
		lesson, err := repos.Lessons.GetByID(id)
		if err != nil {
			return notFound(err, ErrLessonNotFound)
		}
		if _, err := loadManagedCourse(repos, actor, lesson.CourseID); err != nil {
			return err
		}

		if req.Title != nil {
			title := validator.SanitizeString(*req.Title)
			if title == "" {
				return newValidationError("lesson title is required")
			}
			lesson.Title = title
		}
		if req.Summary != nil {
			lesson.Summary = validator.SanitizeString(*req.Summary)
		}
		if req.Content != nil {
			lesson.Content = validator.SanitizeHTML(*req.Content)
		}
		if req.IsPublished != nil {
			lesson.IsPublished = *req.IsPublished
		}
		if req.DurationMinutes != nil {
			lesson.DurationMinutes = *req.DurationMinutes
		}

		previousType := lesson.Type
		if req.Type != nil {
			lessonType, err := normalizeLessonType(*req.Type)
			if err != nil {
				return err
			}
			lesson.Type = lessonType
		}

		if lesson.Type == models.LessonTypeVideo {
			url, provider, asset := lesson.VideoURL, lesson.VideoProvider, lesson.VideoAssetID
			if req.VideoURL != nil {
				url = strings.TrimSpace(*req.VideoURL)
			}
			if req.VideoProvider != nil {
				provider = strings.TrimSpace(*req.VideoProvider)
			}
			if req.VideoAssetID != nil {
				asset = strings.TrimSpace(*req.VideoAssetID)
			}
			applyVideo(lesson, url, provider, asset)
			if req.VideoStatus != nil {
				lesson.VideoStatus = strings.TrimSpace(*req.VideoStatus)
			}
		} else {
			applyVideo(lesson, "", "", "")
		}

		if previousType == models.LessonTypeQuiz && lesson.Type != models.LessonTypeQuiz {
			if err := repos.Quizzes.DeleteByLesson(lesson.ID); err != nil {
				return fmt.Errorf("failed to remove quiz: %w", err)
			}
		}

		if err := repos.Lessons.Update(lesson); err != nil {
			return fmt.Errorf("failed to update lesson: %w", err)
		}
		updated = lesson
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteLesson removes the lesson together with its quiz and all progress rows
// that reference it, and decrements the course's lesson count.
func (s *LessonService) DeleteLesson(actor authorization.Actor, id uint) error {
	repos, err := s.repos()
	if err != nil {
		return err
	}
	lesson, err := repos.Lessons.GetByID(id)
	if err != nil {
		return notFound(err, ErrLessonNotFound)
	}
	course, err := loadManagedCourse(repos, actor, lesson.CourseID)
	if err != nil {
		return err
	}
	if err := repos.Lessons.Delete(lesson); err != nil {
		return notFound(err, ErrLessonNotFound)
	}
	s.courses.invalidateCatalog(course.IsPublished)
	return nil
}

// ReorderLessons assigns positions following the order of ids. Every lesson of
// the course must be listed exactly once.
func (s *LessonService) ReorderLessons(actor authorization.Actor, courseID uint, ids []uint) ([]models.Lesson, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}
	course, err := loadManagedCourse(repos, actor, courseID)
	if err != nil {
		return nil, err
	}

	lessons, err := repos.Lessons.ListByCourse(course.ID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	if len(ids) != len(lessons) {
		return nil, newValidationError("expected %d lesson ids, got %d", len(lessons), len(ids))
	}

	known := make(map[uint]bool, len(lessons))
	for _, lesson := range lessons {
		known[lesson.ID] = true
	}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return nil, newValidationError("lesson %d does not belong to this course", id)
		}
		if seen[id] {
			return nil, newValidationError("lesson %d is listed more than once", id)
		}
		seen[id] = true
	}

	if err := repos.Lessons.Reorder(course.ID, ids); err != nil {
		return nil, fmt.Errorf("failed to reorder lessons: %w", err)
	}
	return repos.Lessons.ListByCourse(course.ID, false)
}

func normalizeLessonType(lessonType string) (string, error) {
	lessonType = strings.ToLower(strings.TrimSpace(lessonType))
	if lessonType == "" {
		return models.LessonTypeText, nil
	}
	if !validator.IsLessonType(lessonType) {
		return "", newValidationError("type must be one of %s", strings.Join(models.LessonTypes, ", "))
	}
	return lessonType, nil
}

func applyVideo(lesson *models.Lesson, url, provider, asset string) {
	lesson.VideoURL = url
	lesson.VideoProvider = provider
	lesson.VideoAssetID = asset
	switch {
	case url != "":
		lesson.VideoStatus = videoStatusReady
	case asset != "":
		lesson.VideoStatus = videoStatusPending
	default:
		lesson.VideoStatus = ""
		lesson.VideoDurationSeconds = 0
	}
}
