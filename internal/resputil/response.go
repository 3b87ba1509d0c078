package resputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oa-lab/hrdesk/pkg/workflow"
)

// Response is the envelope every endpoint returns; the type parameter only
// exists for the generated API docs.
type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

func wrapResponse(c *gin.Context, httpCode int, msg string, data any, code ErrorCode) {
	c.JSON(httpCode, gin.H{
		"code": code,
		"data": data,
		"msg":  msg,
	})
}

func Success(c *gin.Context, data any) {
	wrapResponse(c, http.StatusOK, "", data, OK)
}

func Error(c *gin.Context, msg string, errorCode ErrorCode) {
	wrapResponse(c, http.StatusInternalServerError, msg, nil, errorCode)
}

func BadRequestError(c *gin.Context, msg string) {
	wrapResponse(c, http.StatusBadRequest, msg, nil, InvalidRequest)
}

func HTTPError(c *gin.Context, httpCode int, msg string, errorCode ErrorCode) {
	wrapResponse(c, httpCode, msg, nil, errorCode)
}

// WorkflowError maps an engine rejection onto the envelope, picking the
// HTTP status and error code from the error kind.
func WorkflowError(c *gin.Context, err error) {
	switch workflow.KindOf(err) {
	case workflow.KindInvalidTransition:
		HTTPError(c, http.StatusConflict, err.Error(), InvalidTransition)
	case workflow.KindStaleState:
		HTTPError(c, http.StatusConflict, err.Error(), StaleState)
	case workflow.KindPreconditionFailed:
		HTTPError(c, http.StatusConflict, err.Error(), PreconditionFailed)
	case workflow.KindConsultationClosed:
		HTTPError(c, http.StatusConflict, err.Error(), ConsultationClosed)
	case workflow.KindUnauthorized:
		HTTPError(c, http.StatusForbidden, err.Error(), UserNotAllowed)
	case workflow.KindValidation:
		BadRequestError(c, err.Error())
	case workflow.KindNotFound:
		HTTPError(c, http.StatusNotFound, err.Error(), NotFound)
	default:
		Error(c, err.Error(), NotSpecified)
	}
}
