package config

import "errors"

// ErrInvalidConfig wraps every validation failure. Callers treat it as
// fatal at startup.
var ErrInvalidConfig = errors.New("invalid configuration")
