package validator

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	stripper  *bluemonday.Policy

	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	spacePattern = regexp.MustCompile(`\s+`)
)

var (
	courseLevels = map[string]struct{}{"beginner": {}, "intermediate": {}, "advanced": {}}
	lessonTypes  = map[string]struct{}{"text": {}, "video": {}, "quiz": {}}
)

func init() {
	sanitizer = bluemonday.UGCPolicy()
	stripper = bluemonday.StrictPolicy()
}

// Init registers the custom rules on a standalone validator and on gin's
// binding engine.
func Init() {
	validate = validator.New()
	registerCustomValidations(validate)

	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerCustomValidations(engine)
	}
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("slug", validateSlug)
	v.RegisterValidation("course_level", validateCourseLevel)
	v.RegisterValidation("lesson_type", validateLessonType)
	v.RegisterValidation("no_html", validateNoHTML)
}

func Validate(s interface{}) error {
	if validate == nil {
		Init()
	}
	return validate.Struct(s)
}

// SanitizeHTML keeps user generated markup that is safe to render.
func SanitizeHTML(html string) string {
	return sanitizer.Sanitize(html)
}

// SanitizeString strips all markup and collapses whitespace.
func SanitizeString(s string) string {
	return NormalizeSpaces(strings.TrimSpace(stripper.Sanitize(s)))
}

func NormalizeSpaces(s string) string {
	return spacePattern.ReplaceAllString(s, " ")
}

func IsSlug(value string) bool {
	return slugPattern.MatchString(value)
}

func IsCourseLevel(value string) bool {
	_, ok := courseLevels[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

func IsLessonType(value string) bool {
	_, ok := lessonTypes[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

func validateSlug(fl validator.FieldLevel) bool {
	return IsSlug(fl.Field().String())
}

func validateCourseLevel(fl validator.FieldLevel) bool {
	return IsCourseLevel(fl.Field().String())
}

func validateLessonType(fl validator.FieldLevel) bool {
	return IsLessonType(fl.Field().String())
}

func validateNoHTML(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return !strings.Contains(value, "<") && !strings.Contains(value, ">")
}
