package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/lulai-platform/lulai-backend/internal/errs"
)

type APIError struct {
  Message     string	`json:"message"`
  Code	      string	`json:"code,omitempty"`
}

type ErrorEnvelope struct {
  Error	      APIError	`json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
  msg := "unknown error"
  if err != nil {
    msg = err.Error()
  }
  c.JSON(status, ErrorEnvelope{
    Error: APIError{
      Message: msg,
      Code:    code,
    },
  })
}

// RespondAppError maps a typed application error onto the wire. Provider and
// storage failures carry upstream response bodies and SQL detail in their
// causes, so those kinds get a fixed message; the full error stays in the
// operator log at the call site.
func RespondAppError(c *gin.Context, err error) {
  kind := errs.KindOf(err)
  status := errs.HTTPStatus(err)
  switch kind {
  case errs.KindEmbedding, errs.KindCompletion, errs.KindProviderTimeout:
    RespondError(c, status, string(kind), errors.New("the assistant is temporarily unavailable, please try again"))
  case errs.KindSchema, errs.KindQuery:
    RespondError(c, status, string(kind), errors.New("internal storage error"))
  default:
    RespondError(c, status, string(kind), err)
  }
}

func RespondOK(c *gin.Context, payload any) {
  c.JSON(http.StatusOK, payload)
}
