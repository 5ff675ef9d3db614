package seed

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/service"
	"cryptoacademy-backend/pkg/logger"
)

//go:embed data/courses/*.json
var demoCoursesFS embed.FS

type lessonDefinition struct {
	models.CreateLessonRequest
	Quiz *models.UpsertQuizRequest `json:"quiz,omitempty"`
}

type courseDefinition struct {
	models.CreateCourseRequest
	Lessons []lessonDefinition `json:"lessons"`
}

// Services are the authoring services the demo catalog is written through.
type Services struct {
	Courses *service.CourseService
	Lessons *service.LessonService
	Quizzes *service.QuizService
}

// EnsureDemoCourses creates the embedded demo courses owned by authorID.
// Courses whose slug is already taken are left untouched.
func EnsureDemoCourses(services Services, authorID uint) {
	if services.Courses == nil || services.Lessons == nil || authorID == 0 {
		return
	}
	author := authorization.Actor{UserID: authorID, Role: authorization.RoleInstructor}

	entries, err := fs.ReadDir(demoCoursesFS, "data/courses")
	if err != nil {
		logger.Error(err, "Failed to read embedded course definitions", nil)
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		data, err := demoCoursesFS.ReadFile(fmt.Sprintf("data/courses/%s", name))
		if err != nil {
			logger.Error(err, "Failed to read embedded course file", map[string]interface{}{"file": name})
			continue
		}

		definition, err := parseCourseDefinition(data)
		if err != nil {
			logger.Error(err, "Failed to parse embedded course file", map[string]interface{}{"file": name})
			continue
		}

		if err := ensureCourse(services, author, definition); err != nil {
			logger.Error(err, "Failed to seed demo course", map[string]interface{}{"slug": definition.Slug, "source": name})
		}
	}
}

func ensureCourse(services Services, author authorization.Actor, definition courseDefinition) error {
	course, err := services.Courses.CreateCourse(author, definition.CreateCourseRequest)
	if errors.Is(err, service.ErrSlugTaken) {
		logger.Info("Demo course already present", map[string]interface{}{"slug": definition.Slug})
		return nil
	}
	if err != nil {
		return err
	}

	for _, lessonDef := range definition.Lessons {
		lesson, err := services.Lessons.CreateLesson(author, course.ID, lessonDef.CreateLessonRequest)
		if err != nil {
			return fmt.Errorf("lesson %q: %w", lessonDef.Title, err)
		}
		if lessonDef.Quiz == nil || services.Quizzes == nil {
			continue
		}
		if _, err := services.Quizzes.UpsertQuiz(author, lesson.ID, *lessonDef.Quiz); err != nil {
			return fmt.Errorf("quiz for lesson %q: %w", lessonDef.Title, err)
		}
	}

	if _, err := services.Courses.SetPublished(author, course.ID, true); err != nil {
		return err
	}

	logger.Info("Seeded demo course", map[string]interface{}{
		"slug":    course.Slug,
		"lessons": len(definition.Lessons),
	})
	return nil
}

func parseCourseDefinition(data []byte) (courseDefinition, error) {
	var definition courseDefinition
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return definition, errors.New("empty course definition")
	}
	if err := json.Unmarshal(trimmed, &definition); err != nil {
		return definition, err
	}
	if definition.Title == "" {
		return definition, errors.New("course definition is missing a title")
	}
	return definition, nil
}
