package service

import (
	"testing"

	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitTestAllCorrect(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, test := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	result, err := env.testingSvc.SubmitTest(user.ID, test.ID, SubmitTestInput{
		Answers: env.answersFor(t, test.ID, true),
	})
	require.NoError(t, err)

	assert.Equal(t, 100, result.Score)
	assert.True(t, result.Passed)
	require.NotNil(t, result.NextSection)
	assert.Equal(t, sections[1].ID, *result.NextSection)

	row, err := env.progress.FindByUserAndSection(user.ID, sections[0].ID)
	require.NoError(t, err)
	assert.True(t, row.Completed)
	require.NotNil(t, row.CompletedAt)

	next, err := env.progress.FindByUserAndSection(user.ID, sections[1].ID)
	require.NoError(t, err)
	assert.True(t, next.Unlocked)
	assert.False(t, next.Completed)

	enrollment, err := env.enrollSvc.GetEnrollment(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, enrollment.Progress) // 1 of 2 sections
	assert.Equal(t, float64(100), enrollment.TestAverage)
	assert.False(t, enrollment.Completed)
}

func TestSubmitTestAllWrong(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, test := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	result, err := env.testingSvc.SubmitTest(user.ID, test.ID, SubmitTestInput{
		Answers: env.answersFor(t, test.ID, false),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Score)
	assert.False(t, result.Passed)
	assert.Nil(t, result.NextSection)

	// A failed attempt must not touch the unlock state.
	_, err = env.progress.FindByUserAndSection(user.ID, sections[1].ID)
	assert.Error(t, err)

	enrollment, err := env.enrollSvc.GetEnrollment(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, enrollment.Progress)
	assert.Equal(t, float64(0), enrollment.TestAverage)
}

func TestSubmitTestHalfRight(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, _, test := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	right := env.answersFor(t, test.ID, true)
	wrong := env.answersFor(t, test.ID, false)

	// First question right, second wrong: one of two points.
	mixed := make(map[string][]string)
	i := 0
	for qID := range right {
		if i == 0 {
			mixed[qID] = right[qID]
		} else {
			mixed[qID] = wrong[qID]
		}
		i++
	}

	result, err := env.testingSvc.SubmitTest(user.ID, test.ID, SubmitTestInput{Answers: mixed})
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	assert.False(t, result.Passed) // passing score is 70
}

func TestSubmitTestExtraSelectionEarnsNothing(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, _, test := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	full, err := env.tests.FindByID(test.ID)
	require.NoError(t, err)

	// Select every answer on every question: the correct set plus extras
	// must score zero per question.
	answers := make(map[string][]string)
	for _, q := range full.Questions {
		for _, a := range q.Answers {
			answers[q.ID] = append(answers[q.ID], a.ID)
		}
	}

	result, err := env.testingSvc.SubmitTest(user.ID, test.ID, SubmitTestInput{Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	for _, detail := range result.Attempt.Answers {
		assert.False(t, detail.IsCorrect)
		assert.Equal(t, 0, detail.EarnedPoints)
	}
}

func TestSubmitTestMissingQuestionScoresZeroForIt(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, _, test := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	right := env.answersFor(t, test.ID, true)
	for qID := range right {
		delete(right, qID)
		break
	}

	result, err := env.testingSvc.SubmitTest(user.ID, test.ID, SubmitTestInput{Answers: right})
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	assert.Len(t, result.Attempt.Answers, 2)
}

func TestSubmitTestZeroPointsRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, _ := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	// A second course section test whose only question carries zero points.
	broken := &model.Test{SectionID: sections[1].ID, Title: "Broken", PassingScore: 70}
	require.NoError(t, env.tests.Create(broken))
	env.createZeroPointQuestion(t, broken.ID)

	// Unlock section B so the access gate is not what rejects it.
	require.NoError(t, env.progress.UpsertUnlocked(user.ID, sections[1].ID, course.ID))

	_, err = env.testingSvc.SubmitTest(user.ID, broken.ID, SubmitTestInput{Answers: map[string][]string{}})
	assert.ErrorIs(t, err, util.ErrTestHasNoPoints)

	attempts, err := env.attempts.ListByUserAndTest(user.ID, broken.ID)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestSubmitTestLockedSectionRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, _ := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	locked := &model.Test{SectionID: sections[1].ID, Title: "Locked Quiz", PassingScore: 70}
	require.NoError(t, env.tests.Create(locked))
	q := &model.Question{TestID: locked.ID, Content: "?", Points: 1, Order: 0}
	require.NoError(t, env.tests.CreateQuestion(q))
	require.NoError(t, env.tests.CreateAnswer(&model.Answer{QuestionID: q.ID, Content: "yes", IsCorrect: true, Order: 0}))

	_, err = env.testingSvc.SubmitTest(user.ID, locked.ID, SubmitTestInput{Answers: map[string][]string{}})
	assert.ErrorIs(t, err, util.ErrSectionLocked)
}

func TestSubmitTestNotEnrolledRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	_, _, test := env.createCourseWithTests(t)

	_, err := env.testingSvc.SubmitTest(user.ID, test.ID, SubmitTestInput{
		Answers: env.answersFor(t, test.ID, true),
	})
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestRetakesAreImmutableAndUnlockIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, test := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	first, err := env.testingSvc.SubmitTest(user.ID, test.ID, SubmitTestInput{
		Answers: env.answersFor(t, test.ID, true),
	})
	require.NoError(t, err)

	row, err := env.progress.FindByUserAndSection(user.ID, sections[0].ID)
	require.NoError(t, err)
	firstCompletedAt := row.CompletedAt
	require.NotNil(t, firstCompletedAt)

	second, err := env.testingSvc.SubmitTest(user.ID, test.ID, SubmitTestInput{
		Answers: env.answersFor(t, test.ID, false),
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.Attempt.ID, second.Attempt.ID)

	attempts, err := env.attempts.ListByUserAndTest(user.ID, test.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	scores := []int{attempts[0].Score, attempts[1].Score}
	assert.ElementsMatch(t, []int{0, 100}, scores)

	// A later failure never re-locks or un-completes the section.
	row, err = env.progress.FindByUserAndSection(user.ID, sections[0].ID)
	require.NoError(t, err)
	assert.True(t, row.Completed)
	require.NotNil(t, row.CompletedAt)
	assert.Equal(t, firstCompletedAt.Unix(), row.CompletedAt.Unix())

	// Best attempt wins the average.
	enrollment, err := env.enrollSvc.GetEnrollment(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(100), enrollment.TestAverage)
}

func TestGradeTestRounding(t *testing.T) {
	test := &model.Test{
		Questions: []model.Question{
			{UUIDBase: model.UUIDBase{ID: "q1"}, Points: 1, Answers: []model.Answer{{UUIDBase: model.UUIDBase{ID: "a1"}, IsCorrect: true}}},
			{UUIDBase: model.UUIDBase{ID: "q2"}, Points: 1, Answers: []model.Answer{{UUIDBase: model.UUIDBase{ID: "a2"}, IsCorrect: true}}},
			{UUIDBase: model.UUIDBase{ID: "q3"}, Points: 1, Answers: []model.Answer{{UUIDBase: model.UUIDBase{ID: "a3"}, IsCorrect: true}}},
		},
	}

	// 1 of 3 points is 33.33..., rounded to 33.
	score, details, err := gradeTest(test, map[string][]string{"q1": {"a1"}})
	require.NoError(t, err)
	assert.Equal(t, 33, score)
	assert.True(t, details["q1"].IsCorrect)
	assert.False(t, details["q2"].IsCorrect)

	// 2 of 3 is 66.66..., rounded to 67.
	score, _, err = gradeTest(test, map[string][]string{"q1": {"a1"}, "q2": {"a2"}})
	require.NoError(t, err)
	assert.Equal(t, 67, score)
}

func TestGradeTestDuplicateSelectionsCollapse(t *testing.T) {
	test := &model.Test{
		Questions: []model.Question{
			{UUIDBase: model.UUIDBase{ID: "q1"}, Points: 2, Answers: []model.Answer{
				{UUIDBase: model.UUIDBase{ID: "a1"}, IsCorrect: true},
				{UUIDBase: model.UUIDBase{ID: "a2"}},
			}},
		},
	}

	score, details, err := gradeTest(test, map[string][]string{"q1": {"a1", "a1"}})
	require.NoError(t, err)
	assert.Equal(t, 100, score)
	assert.Equal(t, 2, details["q1"].EarnedPoints)
}
