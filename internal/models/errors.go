package models

import (
	"errors"
	"fmt"
)

// Таксономия ошибок движка. Проверяется через errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrNetwork      = errors.New("network error")
	ErrBusy         = errors.New("another change is still being saved")
	ErrNotConfirmed = fmt.Errorf("%w: confirmation required", ErrValidation)
)
