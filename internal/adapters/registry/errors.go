package registry

import "errors"

var (
	ErrInvalidSheetURL = errors.New("invalid sheet url")
	ErrSheetRequest    = errors.New("sheet request failed")
	ErrAuthorization   = errors.New("authorization failed")
	ErrTokenCache      = errors.New("token cache")
)
