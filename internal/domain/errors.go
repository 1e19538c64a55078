package domain

import "errors"

// ErrToolRoundLimit is returned by the orchestration loop when the
// configured maximum number of tool rounds is exceeded.
var ErrToolRoundLimit = errors.New("tool round limit exceeded")
