package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
)

func TestForumThreadLifecycle(t *testing.T) {
	store := newTestStore(t)
	course, _ := seedCourse(t, store, 1, 1)
	forum := NewForumService(store)
	require.NoError(t, store.Repositories().Users.Upsert(&models.User{ID: 60, Name: "Vitalik"}))

	_, err := forum.CreateThread(authorization.Anonymous(), models.CreateForumThreadRequest{Title: "Hi", Content: "there"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	missing := uint(999)
	_, err = forum.CreateThread(learner(60), models.CreateForumThreadRequest{CourseID: &missing, Title: "Hi", Content: "there"})
	assert.ErrorIs(t, err, ErrCourseNotFound)

	thread, err := forum.CreateThread(learner(60), models.CreateForumThreadRequest{
		CourseID: &course.ID,
		Title:    "  Gas   fees?  ",
		Content:  "<p>Why so high?</p><script>alert(1)</script>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Gas fees?", thread.Title)
	assert.NotContains(t, thread.Content, "script")
	require.NotNil(t, thread.Author)
	assert.Equal(t, "Vitalik", thread.Author.Name)

	newTitle := "Edited"
	_, err = forum.UpdateThread(learner(61), thread.ID, models.UpdateForumThreadRequest{Title: &newTitle})
	assert.ErrorIs(t, err, ErrUnauthorized)

	updated, err := forum.UpdateThread(learner(60), thread.ID, models.UpdateForumThreadRequest{
		Title:    &newTitle,
		CourseID: models.OptionalUint{Set: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Title)
	assert.Nil(t, updated.CourseID)

	threads, total, err := forum.ListThreads(1, 10, ThreadListOptions{Search: "edit"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, threads, 1)

	require.NoError(t, forum.DeleteThread(admin(1), thread.ID))
	_, err = forum.GetThread(thread.ID)
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestForumRepliesAndVotes(t *testing.T) {
	store := newTestStore(t)
	forum := NewForumService(store)

	thread, err := forum.CreateThread(learner(70), models.CreateForumThreadRequest{Title: "Layer 2", Content: "Rollups?"})
	require.NoError(t, err)

	reply, err := forum.CreateReply(learner(71), thread.ID, models.ForumReplyRequest{Content: "Optimistic or zk."})
	require.NoError(t, err)
	_, err = forum.CreateReply(learner(71), 12345, models.ForumReplyRequest{Content: "lost"})
	assert.ErrorIs(t, err, ErrThreadNotFound)

	_, err = forum.UpdateReply(learner(70), reply.ID, models.ForumReplyRequest{Content: "not mine"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	edited, err := forum.UpdateReply(learner(71), reply.ID, models.ForumReplyRequest{Content: "Both work."})
	require.NoError(t, err)
	assert.Equal(t, "Both work.", edited.Content)

	loaded, err := forum.GetThread(thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.ReplyCount)
	require.Len(t, loaded.Replies, 1)

	rating, err := forum.Vote(learner(71), thread.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, rating)
	rating, err = forum.Vote(learner(72), thread.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, rating)
	rating, err = forum.Vote(learner(72), thread.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, rating)

	_, err = forum.Vote(learner(72), thread.ID, 2)
	assert.True(t, IsValidationError(err))
	_, err = forum.Vote(learner(72), 777, 1)
	assert.ErrorIs(t, err, ErrThreadNotFound)

	require.NoError(t, forum.DeleteReply(learner(71), reply.ID))
	loaded, err = forum.GetThread(thread.ID)
	require.NoError(t, err)
	assert.Zero(t, loaded.ReplyCount)
}
