package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"chainacademy_backend/internal/config"
	"chainacademy_backend/internal/model"
	"chainacademy_backend/internal/repository"
	"chainacademy_backend/pkg/logger"
	"chainacademy_backend/pkg/mailer"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db         *gorm.DB
	users      *repository.UserRepository
	courses    *repository.CourseRepository
	tests      *repository.TestRepository
	enrollment *repository.EnrollmentRepository
	progress   *repository.SectionProgressRepository
	attempts   *repository.AttemptRepository
	sessions   *repository.SessionRepository

	enrollSvc   *EnrollmentService
	testingSvc  *TestingService
	progressSvc *ProgressService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger.Log = zap.NewNop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Section{},
		&model.Test{},
		&model.Question{},
		&model.Answer{},
		&model.Enrollment{},
		&model.UserSectionProgress{},
		&model.UserTestAttempt{},
		&model.LearningSession{},
	))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:         db,
		users:      repository.NewUserRepository(db),
		courses:    repository.NewCourseRepository(db),
		tests:      repository.NewTestRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		progress:   repository.NewSectionProgressRepository(db),
		attempts:   repository.NewAttemptRepository(db),
		sessions:   repository.NewSessionRepository(db),
	}

	m := mailer.New(&config.SMTPConfig{Enabled: false})
	// The address is intentionally unreachable; session start degrades to
	// the open-session check when redis is unavailable.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})

	env.enrollSvc = NewEnrollmentService(env.enrollment, env.courses, env.progress, env.attempts, env.users, m)
	env.testingSvc = NewTestingService(db, env.tests, env.attempts, env.courses, env.enrollSvc, env.users, m)
	env.progressSvc = NewProgressService(db, rdb, env.enrollment, env.courses, env.sessions, env.users, m)

	return env
}

func (e *testEnv) createUser(t *testing.T) *model.User {
	t.Helper()
	user := &model.User{
		Name:     "Test Learner",
		Email:    "learner@example.com",
		Password: "hashed",
		Role:     model.Student,
	}
	require.NoError(t, e.users.Create(user))
	return user
}

// createCourseWithTests seeds a published two-section course. Section A
// carries a two-question test (one point each, passing score 70); section B
// has no test.
func (e *testEnv) createCourseWithTests(t *testing.T) (*model.Course, []model.Section, *model.Test) {
	t.Helper()

	course := &model.Course{
		Title:     "Solidity Fundamentals",
		Slug:      "solidity-fundamentals",
		Published: true,
	}
	require.NoError(t, e.courses.Create(course))

	secA := &model.Section{CourseID: course.ID, Title: "Basics", Order: 0, RequireTest: true}
	secB := &model.Section{CourseID: course.ID, Title: "Storage", Order: 1}
	require.NoError(t, e.courses.CreateSection(secA))
	require.NoError(t, e.courses.CreateSection(secB))

	test := &model.Test{SectionID: secA.ID, Title: "Basics Quiz", PassingScore: 70}
	require.NoError(t, e.tests.Create(test))

	q1 := &model.Question{TestID: test.ID, Content: "What is a mapping?", Points: 1, Order: 0}
	q2 := &model.Question{TestID: test.ID, Content: "Pick the value types", Points: 1, Order: 1}
	require.NoError(t, e.tests.CreateQuestion(q1))
	require.NoError(t, e.tests.CreateQuestion(q2))

	require.NoError(t, e.tests.CreateAnswer(&model.Answer{QuestionID: q1.ID, Content: "key-value store", IsCorrect: true, Order: 0}))
	require.NoError(t, e.tests.CreateAnswer(&model.Answer{QuestionID: q1.ID, Content: "a loop", Order: 1}))
	require.NoError(t, e.tests.CreateAnswer(&model.Answer{QuestionID: q2.ID, Content: "uint256", IsCorrect: true, Order: 0}))
	require.NoError(t, e.tests.CreateAnswer(&model.Answer{QuestionID: q2.ID, Content: "bool", IsCorrect: true, Order: 1}))
	require.NoError(t, e.tests.CreateAnswer(&model.Answer{QuestionID: q2.ID, Content: "string[]", Order: 2}))

	return course, []model.Section{*secA, *secB}, test
}

// answersFor builds a submission from the seeded test, selecting the correct
// set for each question when correct is true.
func (e *testEnv) answersFor(t *testing.T, testID string, correct bool) map[string][]string {
	t.Helper()
	full, err := e.tests.FindByID(testID)
	require.NoError(t, err)

	out := make(map[string][]string)
	for _, q := range full.Questions {
		var picked []string
		for _, a := range q.Answers {
			if a.IsCorrect == correct {
				picked = append(picked, a.ID)
			}
		}
		out[q.ID] = picked
	}
	return out
}

// createZeroPointQuestion seeds a question worth nothing. The points column
// defaults to 1, so the zero has to be forced after the insert.
func (e *testEnv) createZeroPointQuestion(t *testing.T, testID string) *model.Question {
	t.Helper()
	q := &model.Question{TestID: testID, Content: "?", Order: 0}
	require.NoError(t, e.db.Create(q).Error)
	require.NoError(t, e.db.Model(q).UpdateColumn("points", 0).Error)
	q.Points = 0
	return q
}
