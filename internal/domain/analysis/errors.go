package analysis

import "errors"

// ErrDecode indicates the upstream payload was not a JSON object.
var ErrDecode = errors.New("analysis payload decode failed")

// ErrTransport indicates the upstream service could not be reached or answered garbage.
var ErrTransport = errors.New("analysis transport failed")
