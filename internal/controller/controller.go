package controller

import (
	"errors"
	"net/http"
	"strconv"

	"chainacademy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError translates service sentinels into HTTP responses. Anything
// unmapped is a 500 and gets logged with the request context.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrSectionNotFound),
		errors.Is(err, util.ErrTestNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrEnrollmentNotFound):
		util.NotFound(c)
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Unauthorized(c)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(c)
	case errors.Is(err, util.ErrEmailRegistered),
		errors.Is(err, util.ErrAlreadyEnrolled):
		util.Conflict(c, err.Error())
	case errors.Is(err, util.ErrSessionStartRacing):
		util.Conflict(c, err.Error())
	case errors.Is(err, util.ErrCourseNotPublished),
		errors.Is(err, util.ErrNotEnrolled),
		errors.Is(err, util.ErrSectionLocked):
		util.Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrTestHasNoPoints),
		errors.Is(err, util.ErrNoOpenSession),
		errors.Is(err, util.ErrInvalidWallet),
		errors.Is(err, util.ErrInvalidTxHash):
		util.BadRequest(c, err.Error())
	default:
		util.LogInternalError(c, err)
	}
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func queryUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
