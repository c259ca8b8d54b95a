package service

import (
	"testing"
	"time"

	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/repository"
	"chainacademy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollUnlocksFirstSection(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, _ := env.createCourseWithTests(t)

	enrollment, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{StakedAmountEth: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 0.1, enrollment.StakedAmountEth)

	row, err := env.progress.FindByUserAndSection(user.ID, sections[0].ID)
	require.NoError(t, err)
	assert.True(t, row.Unlocked)
	assert.False(t, row.Completed)

	_, err = env.progress.FindByUserAndSection(user.ID, sections[1].ID)
	assert.Error(t, err)
}

func TestEnrollSetsCourseEndDate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)

	course := &model.Course{Title: "Timed", Slug: "timed", Published: true, DurationDays: 30}
	require.NoError(t, env.courses.Create(course))

	enrollment, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)
	require.NotNil(t, enrollment.CourseEndDate)

	want := time.Now().AddDate(0, 0, 30)
	assert.WithinDuration(t, want, *enrollment.CourseEndDate, time.Minute)
}

func TestEnrollTwiceRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, _, _ := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	_, err = env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)
}

func TestEnrollUnpublishedRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)

	course := &model.Course{Title: "Draft", Slug: "draft"}
	require.NoError(t, env.courses.Create(course))

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	assert.ErrorIs(t, err, util.ErrCourseNotPublished)
}

func TestSectionAccessDerivation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, _ := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	access, err := env.enrollSvc.SectionAccessList(user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, access, 2)
	assert.True(t, access[0].Accessible)
	assert.False(t, access[1].Accessible)

	// Completing A opens B even before any unlock row for B exists.
	require.NoError(t, repository.UpsertCompletedTx(env.db, user.ID, sections[0].ID, course.ID, time.Now()))

	access, err = env.enrollSvc.SectionAccessList(user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, access[0].Completed)
	assert.True(t, access[1].Accessible)

	ok, err := env.enrollSvc.CanAccessSection(user.ID, sections[1].ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSectionAccessSurvivesReorder(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, _ := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	require.NoError(t, repository.UpsertCompletedTx(env.db, user.ID, sections[0].ID, course.ID, time.Now()))

	// A new section is inserted ahead of the completed one. The completed
	// section stays accessible because completion implies access.
	newFirst := &model.Section{CourseID: course.ID, Title: "Prologue", Order: 0}
	require.NoError(t, env.courses.CreateSection(newFirst))
	moved := sections[0]
	moved.Order = 1
	require.NoError(t, env.courses.UpdateSection(&moved))
	movedLast := sections[1]
	movedLast.Order = 2
	require.NoError(t, env.courses.UpdateSection(&movedLast))

	access, err := env.enrollSvc.SectionAccessList(user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, access, 3)

	for _, a := range access {
		if a.Section.ID == sections[0].ID {
			assert.True(t, a.Completed)
			assert.True(t, a.Accessible)
		}
	}
}

func TestSectionContentLocked(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, _ := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	_, err = env.enrollSvc.SectionContent(user.ID, sections[1].ID)
	assert.ErrorIs(t, err, util.ErrSectionLocked)

	section, err := env.enrollSvc.SectionContent(user.ID, sections[0].ID)
	require.NoError(t, err)
	assert.Equal(t, sections[0].ID, section.ID)
}

func TestUnlockSectionForUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, _ := env.createCourseWithTests(t)

	err := env.enrollSvc.UnlockSectionForUser(user.ID, sections[1].ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	_, err = env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	require.NoError(t, env.enrollSvc.UnlockSectionForUser(user.ID, sections[1].ID))

	content, err := env.enrollSvc.SectionContent(user.ID, sections[1].ID)
	require.NoError(t, err)
	assert.Equal(t, sections[1].ID, content.ID)

	// A completed row survives a replayed unlock.
	require.NoError(t, repository.UpsertCompletedTx(env.db, user.ID, sections[1].ID, course.ID, time.Now()))
	require.NoError(t, env.enrollSvc.UnlockSectionForUser(user.ID, sections[1].ID))
	row, err := env.progress.FindByUserAndSection(user.ID, sections[1].ID)
	require.NoError(t, err)
	assert.True(t, row.Completed)
}

func TestSectionAfterUngatedSectionIsAccessible(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)

	// No test anywhere: the unlocked row on A is all B needs.
	course := &model.Course{Title: "Reading Track", Slug: "reading-track", Published: true}
	require.NoError(t, env.courses.Create(course))
	secA := &model.Section{CourseID: course.ID, Title: "A", Order: 0}
	secB := &model.Section{CourseID: course.ID, Title: "B", Order: 1}
	require.NoError(t, env.courses.CreateSection(secA))
	require.NoError(t, env.courses.CreateSection(secB))

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	ok, err := env.enrollSvc.CanAccessSection(user.ID, secB.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSectionAccessDerivedFromPassingAttempt(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, test := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	// A failing attempt does not open B.
	require.NoError(t, env.attempts.Create(&model.UserTestAttempt{
		UserID: user.ID, TestID: test.ID, Score: 50, Passed: false, CompletedAt: time.Now(),
	}))
	ok, err := env.enrollSvc.CanAccessSection(user.ID, sections[1].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// A passing attempt opens B even with no progress rows written for it.
	require.NoError(t, env.attempts.Create(&model.UserTestAttempt{
		UserID: user.ID, TestID: test.ID, Score: 100, Passed: true, CompletedAt: time.Now(),
	}))
	ok, err = env.enrollSvc.CanAccessSection(user.ID, sections[1].ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
