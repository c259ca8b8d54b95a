package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/repository"
	"chainacademy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)
	yesterday := now.AddDate(0, 0, -1)
	threeDaysAgo := now.AddDate(0, 0, -3)
	earlierToday := now.Add(-5 * time.Hour)

	tests := []struct {
		name        string
		last        *time.Time
		current     int
		longest     int
		wantCurrent int
		wantLongest int
	}{
		{"first session ever", nil, 0, 0, 1, 1},
		{"second session same day", &earlierToday, 3, 5, 3, 5},
		{"consecutive day", &yesterday, 3, 5, 4, 5},
		{"consecutive day new record", &yesterday, 5, 5, 6, 6},
		{"gap resets", &threeDaysAgo, 7, 7, 1, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &model.Enrollment{
				CurrentStreak:    tt.current,
				LongestStreak:    tt.longest,
				LastLearningDate: tt.last,
			}
			applyStreak(e, now)
			assert.Equal(t, tt.wantCurrent, e.CurrentStreak)
			assert.Equal(t, tt.wantLongest, e.LongestStreak)
			require.NotNil(t, e.LastLearningDate)
			assert.Equal(t, truncateToDay(now), *e.LastLearningDate)
		})
	}
}

func TestMeetsRefundRequirements(t *testing.T) {
	course := &model.Course{
		RequiredCompletion:   80,
		RequiredTestAverage:  70,
		DurationDays:         30,
		DailyLearningMinutes: 20,
	}

	tests := []struct {
		name string
		e    model.Enrollment
		want bool
	}{
		{"nothing met", model.Enrollment{}, false},
		{"completion track", model.Enrollment{CompletionPercentage: 80}, true},
		{"completion just under", model.Enrollment{CompletionPercentage: 79}, false},
		{"test average track", model.Enrollment{TestAverage: 70}, true},
		{"learning time track", model.Enrollment{TotalLearningMinutes: 600}, true},
		{"learning time just under", model.Enrollment{TotalLearningMinutes: 599}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, meetsRefundRequirements(course, &tt.e))
		})
	}
}

func TestMeetsRefundRequirementsUnconfiguredTracks(t *testing.T) {
	// Zero thresholds mean the track is off, not trivially satisfied.
	course := &model.Course{}
	e := &model.Enrollment{CompletionPercentage: 100, TestAverage: 100, TotalLearningMinutes: 10000}
	assert.False(t, meetsRefundRequirements(course, e))
}

func TestStartSessionIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, _, _ := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := env.progressSvc.StartSession(ctx, user.ID, course.ID, StartSessionInput{})
	require.NoError(t, err)

	second, err := env.progressSvc.StartSession(ctx, user.ID, course.ID, StartSessionInput{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestStartSessionNotEnrolled(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, _, _ := env.createCourseWithTests(t)

	_, err := env.progressSvc.StartSession(context.Background(), user.ID, course.ID, StartSessionInput{})
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestEndSessionFloorsMinutes(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, _, _ := env.createCourseWithTests(t)

	enrollment, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	// A session opened 95 seconds ago credits exactly one minute.
	session := &model.LearningSession{
		EnrollmentID: enrollment.ID,
		UserID:       user.ID,
		CourseID:     course.ID,
		StartTime:    time.Now().Add(-95 * time.Second),
	}
	require.NoError(t, env.sessions.Create(session))

	closed, updated, err := env.progressSvc.EndSession(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, closed.DurationMinutes)
	require.NotNil(t, closed.EndTime)
	assert.Equal(t, 1, updated.TotalLearningMinutes)
	assert.Equal(t, 1, updated.CurrentStreak)
	assert.Equal(t, 1, updated.LongestStreak)
}

func TestEndSessionWithoutOpenSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, _, _ := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	_, _, err = env.progressSvc.EndSession(user.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrNoOpenSession)
}

func TestRefundEligibilityIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)

	course := &model.Course{
		Title:              "Staked",
		Slug:               "staked",
		Published:          true,
		RequiredCompletion: 50,
	}
	require.NoError(t, env.courses.Create(course))
	secA := &model.Section{CourseID: course.ID, Title: "A", Order: 0}
	secB := &model.Section{CourseID: course.ID, Title: "B", Order: 1}
	require.NoError(t, env.courses.CreateSection(secA))
	require.NoError(t, env.courses.CreateSection(secB))

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{StakedAmountEth: 0.5})
	require.NoError(t, err)

	// One of two sections completed reaches the 50% completion track.
	require.NoError(t, repository.UpsertCompletedTx(env.db, user.ID, secA.ID, course.ID, time.Now()))

	enrollment, err := env.progressSvc.UpdateProgress(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, enrollment.CompletionPercentage)
	assert.True(t, enrollment.RefundEligible)

	// Adding sections drops the percentage below the threshold, but the
	// flag must not clear.
	secC := &model.Section{CourseID: course.ID, Title: "C", Order: 2}
	secD := &model.Section{CourseID: course.ID, Title: "D", Order: 3}
	require.NoError(t, env.courses.CreateSection(secC))
	require.NoError(t, env.courses.CreateSection(secD))

	enrollment, err = env.progressSvc.UpdateProgress(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, enrollment.CompletionPercentage)
	assert.True(t, enrollment.RefundEligible)
}

func TestCourseCompletionAtFullProgress(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, sections, _ := env.createCourseWithTests(t)

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	for _, sec := range sections {
		require.NoError(t, repository.UpsertCompletedTx(env.db, user.ID, sec.ID, course.ID, time.Now()))
	}

	enrollment, err := env.progressSvc.UpdateProgress(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, enrollment.Progress)
	assert.True(t, enrollment.Completed)
}

func TestCompletionRequiresEverySection(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)

	course := &model.Course{Title: "Marathon", Slug: "marathon", Published: true}
	require.NoError(t, env.courses.Create(course))

	// 199 of 200 rounds up to 100% while one section is still open.
	var sections []*model.Section
	for i := 0; i < 200; i++ {
		sec := &model.Section{CourseID: course.ID, Title: fmt.Sprintf("Part %d", i), Order: i}
		require.NoError(t, env.courses.CreateSection(sec))
		sections = append(sections, sec)
	}

	_, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	for _, sec := range sections[:199] {
		require.NoError(t, repository.UpsertCompletedTx(env.db, user.ID, sec.ID, course.ID, time.Now()))
	}

	enrollment, err := env.progressSvc.UpdateProgress(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, enrollment.Progress)
	assert.False(t, enrollment.Completed)

	require.NoError(t, repository.UpsertCompletedTx(env.db, user.ID, sections[199].ID, course.ID, time.Now()))
	enrollment, err = env.progressSvc.UpdateProgress(user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, enrollment.Completed)
}

func TestSweepStaleSessions(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	course, _, _ := env.createCourseWithTests(t)

	enrollment, err := env.enrollSvc.Enroll(user.ID, course.ID, EnrollInput{})
	require.NoError(t, err)

	stale := &model.LearningSession{
		EnrollmentID: enrollment.ID,
		UserID:       user.ID,
		CourseID:     course.ID,
		StartTime:    time.Now().Add(-6 * time.Hour),
	}
	require.NoError(t, env.sessions.Create(stale))

	env.progressSvc.SweepStaleSessions(4 * time.Hour)

	closed, err := env.sessions.FindByID(stale.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndTime)
	assert.Equal(t, 240, closed.DurationMinutes)

	_, err = env.sessions.FindOpenByEnrollment(enrollment.ID)
	assert.Error(t, err)
}
