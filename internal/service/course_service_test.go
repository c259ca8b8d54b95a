package service

import (
	"testing"
	"time"

	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCourseService(env *testEnv) *CourseService {
	return NewCourseService(env.courses, env.tests)
}

func TestPublishRejectsZeroPointTest(t *testing.T) {
	env := newTestEnv(t)
	svc := newCourseService(env)

	course := &model.Course{Title: "Draft", Slug: "draft-zero"}
	require.NoError(t, env.courses.Create(course))
	sec := &model.Section{CourseID: course.ID, Title: "A", Order: 0, RequireTest: true}
	require.NoError(t, env.courses.CreateSection(sec))

	test := &model.Test{SectionID: sec.ID, Title: "Unscorable", PassingScore: 70}
	require.NoError(t, env.tests.Create(test))
	env.createZeroPointQuestion(t, test.ID)

	_, err := svc.SetPublished(course.ID, true)
	assert.ErrorIs(t, err, util.ErrTestHasNoPoints)

	reloaded, err := env.courses.FindByID(course.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Published)
}

func TestPublishSucceedsWithScorableTests(t *testing.T) {
	env := newTestEnv(t)
	svc := newCourseService(env)

	course, _, _ := env.createCourseWithTests(t)

	published, err := svc.SetPublished(course.ID, true)
	require.NoError(t, err)
	assert.True(t, published.Published)
	assert.Nil(t, published.ScheduledPublishAt)
}

func TestScheduledPublishFlipsDueCourses(t *testing.T) {
	env := newTestEnv(t)
	svc := newCourseService(env)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	due := &model.Course{Title: "Due", Slug: "due", ScheduledPublishAt: &past}
	notYet := &model.Course{Title: "Later", Slug: "later", ScheduledPublishAt: &future}
	require.NoError(t, env.courses.Create(due))
	require.NoError(t, env.courses.Create(notYet))

	svc.ProcessScheduledPublishes()

	reloaded, err := env.courses.FindByID(due.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Published)

	reloaded, err = env.courses.FindByID(notYet.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Published)
}

func TestCreateTestMarksSectionGated(t *testing.T) {
	env := newTestEnv(t)
	svc := newCourseService(env)

	course := &model.Course{Title: "Gated", Slug: "gated"}
	require.NoError(t, env.courses.Create(course))
	sec := &model.Section{CourseID: course.ID, Title: "A", Order: 0}
	require.NoError(t, env.courses.CreateSection(sec))

	test, err := svc.CreateTest(sec.ID, TestInput{Title: "Quiz"})
	require.NoError(t, err)
	assert.Equal(t, 70, test.PassingScore) // default

	reloaded, err := env.courses.FindSectionByID(sec.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.RequireTest)
}

func TestDeleteCourseCascades(t *testing.T) {
	env := newTestEnv(t)
	svc := newCourseService(env)

	course, sections, test := env.createCourseWithTests(t)

	require.NoError(t, svc.DeleteCourse(course.ID))

	_, err := env.courses.FindByID(course.ID)
	assert.Error(t, err)
	_, err = env.courses.FindSectionByID(sections[0].ID)
	assert.Error(t, err)
	_, err = env.tests.FindByID(test.ID)
	assert.Error(t, err)
}
