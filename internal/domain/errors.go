package domain

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrForbidden         = errors.New("forbidden")
	ErrDuplicateQuestion = errors.New("duplicate question")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrRoomIDTaken       = errors.New("room id already taken")
	ErrUnavailable       = errors.New("store unavailable")
)
