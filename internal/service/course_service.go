package service

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
	"cryptoacademy-backend/pkg/cache"
	"cryptoacademy-backend/pkg/logger"
	"cryptoacademy-backend/pkg/utils"
	"cryptoacademy-backend/pkg/validator"
)

// CatalogCache caches the public list of published courses.
type CatalogCache interface {
	CacheCatalog(courses interface{}) error
	GetCachedCatalog(dest interface{}) error
	InvalidateCatalog() error
}

type CourseQuery struct {
	Category string
	Level    string
	Search   string
	Limit    int
	Offset   int
}

func (q CourseQuery) isCatalog() bool {
	return q.Category == "" && q.Level == "" && q.Search == "" && q.Limit == 0 && q.Offset == 0
}

type CourseService struct {
	store repository.Store
	cache CatalogCache
}

func NewCourseService(store repository.Store, cache CatalogCache) *CourseService {
	return &CourseService{store: store, cache: cache}
}

func (s *CourseService) SetRepositories(store repository.Store) {
	if s == nil {
		return
	}
	s.store = store
}

func (s *CourseService) repos() (repository.Repositories, error) {
	if s == nil || s.store == nil {
		return repository.Repositories{}, errors.New("course repository not configured")
	}
	return s.store.Repositories(), nil
}

// ProgressPercentage returns round(completed/total*100), capped at 100. It is
// 0 when the course has no lessons.
func ProgressPercentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	pct := int(math.Round(float64(completed) / float64(total) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

// CourseStatus derives not_started, in_progress or completed from counts.
func CourseStatus(completed, total int) string {
	switch {
	case completed <= 0:
		return models.CourseStatusNotStarted
	case total > 0 && completed >= total:
		return models.CourseStatusCompleted
	default:
		return models.CourseStatusInProgress
	}
}

func project(course models.Course, completed int) models.CourseView {
	return models.CourseView{
		Course:             course,
		CompletedLessons:   completed,
		ProgressPercentage: ProgressPercentage(completed, course.TotalLessons),
		Status:             CourseStatus(completed, course.TotalLessons),
	}
}

// ListCourses returns the courses visible to actor with the actor's progress.
// Anonymous callers get zero progress on every course.
func (s *CourseService) ListCourses(actor authorization.Actor, query CourseQuery) ([]models.CourseView, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}

	courses, err := s.visibleCourses(repos, actor, query)
	if err != nil {
		return nil, err
	}

	counts := map[uint]int{}
	if actor.IsAuthenticated() && len(courses) > 0 {
		ids := make([]uint, len(courses))
		for i, course := range courses {
			ids[i] = course.ID
		}
		counts, err = repos.Progress.CompletedCountsByCourse(actor.UserID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load progress: %w", err)
		}
	}

	views := make([]models.CourseView, 0, len(courses))
	for _, course := range courses {
		views = append(views, project(course, counts[course.ID]))
	}
	return views, nil
}

func (s *CourseService) visibleCourses(repos repository.Repositories, actor authorization.Actor, query CourseQuery) ([]models.Course, error) {
	filter := repository.CourseFilter{
		Category:      strings.TrimSpace(query.Category),
		Level:         strings.ToLower(strings.TrimSpace(query.Level)),
		Search:        query.Search,
		Limit:         query.Limit,
		Offset:        query.Offset,
		PublishedOnly: !actor.Can(authorization.PermissionManageAllContent),
	}
	if filter.PublishedOnly && actor.Can(authorization.PermissionManageOwnContent) {
		filter.IncludeDraftsOf = actor.UserID
	}

	catalog := filter.PublishedOnly && filter.IncludeDraftsOf == 0 && query.isCatalog()
	if catalog && s.cache != nil {
		var cached []models.Course
		if err := s.cache.GetCachedCatalog(&cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheDisabled) {
			logger.Warn("Failed to read course catalog cache", map[string]interface{}{"error": err.Error()})
		}
	}

	courses, err := repos.Courses.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	if catalog && s.cache != nil {
		if err := s.cache.CacheCatalog(courses); err != nil {
			logger.Warn("Failed to cache course catalog", map[string]interface{}{"error": err.Error()})
		}
	}
	return courses, nil
}

// GetCourse returns the course with its ordered lessons and the actor's
// progress. Unpublished courses are reported missing to anyone who cannot
// manage them.
func (s *CourseService) GetCourse(actor authorization.Actor, id uint) (*models.CourseView, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}

	course, err := repos.Courses.GetByID(id)
	if err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	manager := actor.CanManage(course.CreatorID)
	if !course.IsPublished && !manager {
		return nil, ErrCourseNotFound
	}

	lessons, err := repos.Lessons.ListByCourse(course.ID, !manager)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}

	done := map[uint]bool{}
	if actor.IsAuthenticated() {
		ids, err := repos.Progress.CompletedLessonIDs(actor.UserID, course.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load progress: %w", err)
		}
		for _, lessonID := range ids {
			done[lessonID] = true
		}
	}

	view := project(*course, len(done))
	view.Lessons = make([]models.LessonView, 0, len(lessons))
	for _, lesson := range lessons {
		view.Lessons = append(view.Lessons, models.LessonView{Lesson: lesson, Completed: done[lesson.ID]})
	}
	return &view, nil
}

// ListAll returns every course regardless of publication state.
func (s *CourseService) ListAll(admin authorization.AdminContext) ([]models.Course, error) {
	if !admin.Valid() {
		return nil, ErrUnauthorized
	}
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}
	return repos.Courses.List(repository.CourseFilter{})
}

func (s *CourseService) CreateCourse(actor authorization.Actor, req models.CreateCourseRequest) (*models.Course, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if !actor.Can(authorization.PermissionManageOwnContent) {
		return nil, ErrUnauthorized
	}
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}

	title := validator.SanitizeString(req.Title)
	if title == "" {
		return nil, newValidationError("course title is required")
	}
	level, err := normalizeLevel(req.Level)
	if err != nil {
		return nil, err
	}

	slug, err := s.resolveSlug(repos, req.Slug, title, 0)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:       title,
		Slug:        slug,
		Description: validator.SanitizeHTML(req.Description),
		Level:       level,
		Category:    validator.SanitizeString(req.Category),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		IsPreview:   req.IsPreview,
		CreatorID:   actor.UserID,
	}
	if err := repos.Courses.Create(course); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(actor authorization.Actor, id uint, req models.UpdateCourseRequest) (*models.Course, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}
	course, err := loadManagedCourse(repos, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := validator.SanitizeString(*req.Title)
		if title == "" {
			return nil, newValidationError("course title is required")
		}
		course.Title = title
	}
	if req.Slug != nil {
		slug, err := s.resolveSlug(repos, *req.Slug, course.Title, course.ID)
		if err != nil {
			return nil, err
		}
		course.Slug = slug
	}
	if req.Description != nil {
		course.Description = validator.SanitizeHTML(*req.Description)
	}
	if req.Level != nil {
		level, err := normalizeLevel(*req.Level)
		if err != nil {
			return nil, err
		}
		course.Level = level
	}
	if req.Category != nil {
		course.Category = validator.SanitizeString(*req.Category)
	}
	if req.ImageURL != nil {
		course.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	if req.IsPreview != nil {
		course.IsPreview = *req.IsPreview
	}

	if err := repos.Courses.Update(course); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	s.invalidateCatalog(course.IsPublished)
	return course, nil
}

func (s *CourseService) DeleteCourse(actor authorization.Actor, id uint) error {
	repos, err := s.repos()
	if err != nil {
		return err
	}
	course, err := loadManagedCourse(repos, actor, id)
	if err != nil {
		return err
	}
	if err := repos.Courses.Delete(course.ID); err != nil {
		return notFound(err, ErrCourseNotFound)
	}
	s.invalidateCatalog(course.IsPublished)
	return nil
}

// SetPublished publishes or unpublishes a course. The actor must manage the
// course and hold the publish permission.
func (s *CourseService) SetPublished(actor authorization.Actor, id uint, published bool) (*models.Course, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}
	course, err := loadManagedCourse(repos, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.Can(authorization.PermissionPublishContent) {
		return nil, ErrUnauthorized
	}
	if course.IsPublished == published {
		return course, nil
	}

	course.IsPublished = published
	if err := repos.Courses.Update(course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	s.invalidateCatalog(true)
	return course, nil
}

func (s *CourseService) invalidateCatalog(published bool) {
	if !published || s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCatalog(); err != nil {
		logger.Warn("Failed to invalidate course catalog cache", map[string]interface{}{"error": err.Error()})
	}
}

// resolveSlug validates an explicit slug or derives a free one from title.
func (s *CourseService) resolveSlug(repos repository.Repositories, requested, title string, courseID uint) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(requested))
	if slug != "" {
		if !validator.IsSlug(slug) {
			return "", newValidationError("slug may only contain lowercase letters, digits and dashes")
		}
		taken, err := repos.Courses.ExistsBySlug(slug, courseID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if taken {
			return "", ErrSlugTaken
		}
		return slug, nil
	}

	return utils.UniqueSlug(utils.GenerateSlug(title), func(candidate string) (bool, error) {
		return repos.Courses.ExistsBySlug(candidate, courseID)
	})
}

func normalizeLevel(level string) (string, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return models.CourseLevelBeginner, nil
	}
	if !validator.IsCourseLevel(level) {
		return "", newValidationError("level must be one of %s", strings.Join(models.CourseLevels, ", "))
	}
	return level, nil
}

func loadManagedCourse(repos repository.Repositories, actor authorization.Actor, id uint) (*models.Course, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	course, err := repos.Courses.GetByID(id)
	if err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	if !actor.CanManage(course.CreatorID) {
		return nil, ErrUnauthorized
	}
	return course, nil
}
