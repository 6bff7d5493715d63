// Package permissions checks the OS privacy settings capture depends on.
package permissions

import "errors"

var ErrMicrophone = errors.New("microphone permission not granted")
