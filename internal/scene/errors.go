package scene

import "errors"

// ErrNotInitialized is returned by operations that need a live scene.
var ErrNotInitialized = errors.New("scene manager not initialised")
