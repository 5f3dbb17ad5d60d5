package app

import "errors"

var (
	ErrAuthenticationFailed = errors.New("uploader authentication failed")
	ErrSessionVerifyFailed  = errors.New("uploader session verification failed")
	ErrReadingsUnavailable  = errors.New("readings source unavailable")
)
