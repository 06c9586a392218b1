package common

import (
	"errors"
	"fmt"
)

type ErrNo struct {
	ErrCode int    `json:"err_code"`
	ErrMsg  string `json:"err_msg"`
}

const (
	SuccessCode = 0
	ServiceErr  = iota + 10000
	RequestInvalid
	TokenInvalid
	PasswordErr
	UserNotExists
	Forbidden
	UnknownPipeline
	JobNotExists
	JobSubmitFail
	JobCancelFail
	GetTasksFail
)

var errorMsg = map[int]string{
	SuccessCode:     "success",
	ServiceErr:      "service error",
	RequestInvalid:  "request invalid",
	TokenInvalid:    "token invalid",
	PasswordErr:     "password error",
	UserNotExists:   "user not exists",
	Forbidden:       "operation not permitted",
	UnknownPipeline: "unknown pipeline type",
	JobNotExists:    "job not exists",
	JobSubmitFail:   "job submit fail",
	JobCancelFail:   "job cancel fail",
	GetTasksFail:    "get tasks fail",
}

func (e ErrNo) Error() string {
	return fmt.Sprintf("err_code=%d, err_msg=%s", e.ErrCode, e.ErrMsg)
}

func NewErrNo(errCode int) error {
	return ErrNo{
		ErrCode: errCode,
		ErrMsg:  errorMsg[errCode],
	}
}

func ConvertErr(err error) ErrNo {
	e := ErrNo{}
	if errors.As(err, &e) {
		return e
	}
	e = ErrNo{
		ErrCode: ServiceErr,
		ErrMsg:  err.Error(),
	}
	return e
}
