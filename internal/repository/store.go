package repository

import (
	"gorm.io/gorm"
)

// Repositories bundles every repository bound to the same database handle.
// Inside Store.Transaction all of them share the transaction.
type Repositories struct {
	Users        UserRepository
	Courses      CourseRepository
	Lessons      LessonRepository
	Quizzes      QuizRepository
	Progress     ProgressRepository
	Stats        StatsRepository
	Achievements AchievementRepository
	ForumThreads ForumThreadRepository
	ForumReplies ForumReplyRepository
	ForumVotes   ForumVoteRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:        NewUserRepository(db),
		Courses:      NewCourseRepository(db),
		Lessons:      NewLessonRepository(db),
		Quizzes:      NewQuizRepository(db),
		Progress:     NewProgressRepository(db),
		Stats:        NewStatsRepository(db),
		Achievements: NewAchievementRepository(db),
		ForumThreads: NewForumThreadRepository(db),
		ForumReplies: NewForumReplyRepository(db),
		ForumVotes:   NewForumVoteRepository(db),
	}
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repositories() Repositories
	Transaction(fn func(repos Repositories) error) error
}

type gormStore struct {
	db    *gorm.DB
	repos Repositories
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db, repos: NewRepositories(db)}
}

func (s *gormStore) Repositories() Repositories {
	return s.repos
}

// Transaction commits when fn returns nil and rolls back otherwise.
func (s *gormStore) Transaction(fn func(repos Repositories) error) error {
	if s == nil || s.db == nil {
		return gorm.ErrInvalidDB
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
