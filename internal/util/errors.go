package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrCourseNotFound     = errors.New("course not found")
	ErrCourseNotPublished = errors.New("course not published")
	ErrSectionNotFound    = errors.New("section not found")
	ErrTestNotFound       = errors.New("test not found")
	ErrAttemptNotFound    = errors.New("attempt not found")

	ErrNotEnrolled        = errors.New("not enrolled in this course")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	ErrTestHasNoPoints = errors.New("test has no gradable points")
	ErrSectionLocked   = errors.New("section is locked")

	ErrNoOpenSession      = errors.New("no open learning session")
	ErrSessionStartRacing = errors.New("session start already in progress")

	ErrInvalidWallet = errors.New("invalid wallet address")
	ErrInvalidTxHash = errors.New("invalid transaction hash")
)
