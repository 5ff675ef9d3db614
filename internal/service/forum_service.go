package service

import (
	"errors"
	"fmt"
	"strings"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
	"cryptoacademy-backend/pkg/validator"
)

const (
	defaultThreadPageSize = 20
	maxThreadPageSize     = 100
)

type ForumService struct {
	store repository.Store
}

func NewForumService(store repository.Store) *ForumService {
	return &ForumService{store: store}
}

func (s *ForumService) SetRepositories(store repository.Store) {
	if s == nil {
		return
	}
	s.store = store
}

func (s *ForumService) repos() (repository.Repositories, error) {
	if s == nil || s.store == nil {
		return repository.Repositories{}, errors.New("forum repository not configured")
	}
	return s.store.Repositories(), nil
}

type ThreadListOptions struct {
	Search   string
	CourseID *uint
}

func (s *ForumService) ListThreads(page, limit int, opts ThreadListOptions) ([]models.ForumThread, int64, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultThreadPageSize
	}
	if limit > maxThreadPageSize {
		limit = maxThreadPageSize
	}
	offset := (page - 1) * limit

	threads, total, err := repos.ForumThreads.List(offset, limit, strings.TrimSpace(opts.Search), opts.CourseID)
	if err != nil {
		return nil, 0, err
	}
	if threads == nil {
		threads = []models.ForumThread{}
	}
	return threads, total, nil
}

func (s *ForumService) GetThread(id uint) (*models.ForumThread, error) {
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}
	thread, err := repos.ForumThreads.GetByID(id)
	if err != nil {
		return nil, notFound(err, ErrThreadNotFound)
	}
	return thread, nil
}

func (s *ForumService) CreateThread(actor authorization.Actor, req models.CreateForumThreadRequest) (*models.ForumThread, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}

	title := validator.SanitizeString(req.Title)
	if title == "" {
		return nil, newValidationError("thread title is required")
	}
	content := validator.SanitizeHTML(req.Content)
	if strings.TrimSpace(content) == "" {
		return nil, newValidationError("thread content is required")
	}
	courseID, err := resolveThreadCourse(repos, req.CourseID)
	if err != nil {
		return nil, err
	}

	thread := &models.ForumThread{
		CourseID: courseID,
		AuthorID: actor.UserID,
		Title:    title,
		Content:  content,
	}
	if err := repos.ForumThreads.Create(thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return repos.ForumThreads.GetByID(thread.ID)
}

func (s *ForumService) UpdateThread(actor authorization.Actor, id uint, req models.UpdateForumThreadRequest) (*models.ForumThread, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}
	thread, err := repos.ForumThreads.GetByID(id)
	if err != nil {
		return nil, notFound(err, ErrThreadNotFound)
	}
	if !canModerate(actor, thread.AuthorID) {
		return nil, ErrUnauthorized
	}

	if req.Title != nil {
		title := validator.SanitizeString(*req.Title)
		if title == "" {
			return nil, newValidationError("thread title cannot be empty")
		}
		thread.Title = title
	}
	if req.Content != nil {
		content := validator.SanitizeHTML(*req.Content)
		if strings.TrimSpace(content) == "" {
			return nil, newValidationError("thread content cannot be empty")
		}
		thread.Content = content
	}
	if req.CourseID.Set {
		courseID, err := resolveThreadCourse(repos, req.CourseID.Pointer())
		if err != nil {
			return nil, err
		}
		thread.CourseID = courseID
	}

	if err := repos.ForumThreads.Update(thread); err != nil {
		return nil, fmt.Errorf("failed to update thread: %w", err)
	}
	return repos.ForumThreads.GetByID(thread.ID)
}

func (s *ForumService) DeleteThread(actor authorization.Actor, id uint) error {
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	repos, err := s.repos()
	if err != nil {
		return err
	}
	thread, err := repos.ForumThreads.GetByID(id)
	if err != nil {
		return notFound(err, ErrThreadNotFound)
	}
	if !canModerate(actor, thread.AuthorID) {
		return ErrUnauthorized
	}
	return notFound(repos.ForumThreads.Delete(thread.ID), ErrThreadNotFound)
}

// Vote sets the caller's vote on a thread. A value of 0 removes the vote. It
// returns the thread rating after the change.
func (s *ForumService) Vote(actor authorization.Actor, threadID uint, value int) (int, error) {
	if !actor.IsAuthenticated() {
		return 0, ErrUnauthenticated
	}
	if value < -1 || value > 1 {
		return 0, newValidationError("vote must be -1, 0 or 1")
	}
	repos, err := s.repos()
	if err != nil {
		return 0, err
	}

	var rating int
	if value == 0 {
		rating, err = repos.ForumVotes.RemoveVote(threadID, actor.UserID)
	} else {
		rating, err = repos.ForumVotes.SetVote(threadID, actor.UserID, value)
	}
	if err != nil {
		return 0, notFound(err, ErrThreadNotFound)
	}
	return rating, nil
}

func (s *ForumService) CreateReply(actor authorization.Actor, threadID uint, req models.ForumReplyRequest) (*models.ForumReply, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}
	content := validator.SanitizeHTML(req.Content)
	if strings.TrimSpace(content) == "" {
		return nil, newValidationError("reply content is required")
	}

	reply := &models.ForumReply{ThreadID: threadID, AuthorID: actor.UserID, Content: content}
	if err := repos.ForumReplies.Create(reply); err != nil {
		return nil, notFound(err, ErrThreadNotFound)
	}
	return repos.ForumReplies.GetByID(reply.ID)
}

func (s *ForumService) UpdateReply(actor authorization.Actor, id uint, req models.ForumReplyRequest) (*models.ForumReply, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	repos, err := s.repos()
	if err != nil {
		return nil, err
	}
	reply, err := repos.ForumReplies.GetByID(id)
	if err != nil {
		return nil, notFound(err, ErrReplyNotFound)
	}
	if !canModerate(actor, reply.AuthorID) {
		return nil, ErrUnauthorized
	}
	content := validator.SanitizeHTML(req.Content)
	if strings.TrimSpace(content) == "" {
		return nil, newValidationError("reply content cannot be empty")
	}
	reply.Content = content
	if err := repos.ForumReplies.Update(reply); err != nil {
		return nil, fmt.Errorf("failed to update reply: %w", err)
	}
	return reply, nil
}

func (s *ForumService) DeleteReply(actor authorization.Actor, id uint) error {
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	repos, err := s.repos()
	if err != nil {
		return err
	}
	reply, err := repos.ForumReplies.GetByID(id)
	if err != nil {
		return notFound(err, ErrReplyNotFound)
	}
	if !canModerate(actor, reply.AuthorID) {
		return ErrUnauthorized
	}
	return notFound(repos.ForumReplies.Delete(reply.ID), ErrReplyNotFound)
}

func canModerate(actor authorization.Actor, authorID uint) bool {
	if actor.UserID == authorID {
		return true
	}
	return actor.Can(authorization.PermissionModerateForum) || actor.Can(authorization.PermissionManageAllContent)
}

func resolveThreadCourse(repos repository.Repositories, courseID *uint) (*uint, error) {
	if courseID == nil || *courseID == 0 {
		return nil, nil
	}
	course, err := repos.Courses.GetByID(*courseID)
	if err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	id := course.ID
	return &id, nil
}
