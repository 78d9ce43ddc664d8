package api

import (
	"net/http"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindAuth:              http.StatusUnauthorized,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindUnauthorized:      http.StatusForbidden,
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindInsufficientStock: http.StatusConflict,
	apperr.KindNotEligible:       http.StatusForbidden,
	apperr.KindDuplicateReview:   http.StatusConflict,
	apperr.KindEmptyCart:         http.StatusBadRequest,
	apperr.KindStockUnavailable:  http.StatusConflict,
	apperr.KindConflict:          http.StatusConflict,
}

// errorStatus maps an error to its HTTP status and machine readable code.
// Auth errors carry their reason as the code so clients can tell an expired
// session, which should wipe local auth state, from bad credentials.
func errorStatus(err error) (int, string) {
	kind := apperr.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		return http.StatusInternalServerError, "internal"
	}
	if kind == apperr.KindAuth {
		reason := apperr.ReasonOf(err)
		if reason == apperr.ReasonWrongRole {
			return http.StatusForbidden, string(reason)
		}
		if reason == "" {
			return status, "unauthenticated"
		}
		return status, string(reason)
	}
	return status, string(kind)
}

// respondError writes err as a JSON error body. Unexpected errors are logged
// and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		util.GetLogger().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": apperr.Message(err),
		"code":  code,
	})
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message, "code": string(apperr.KindValidation)}
	if err != nil {
		body["details"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
