//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation
#import <AVFoundation/AVFoundation.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}
*/
import "C"

import "fmt"

const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() int {
	return int(C.checkMicrophonePermission())
}

// RequestMicrophone triggers the system microphone permission dialog
func RequestMicrophone() {
	C.requestMicrophonePermission()
}

// EnsureMicrophone returns nil when capture is allowed. An undecided status
// shows the system prompt and reports ErrMicrophone so the user can retry once
// they have answered it.
func EnsureMicrophone() error {
	switch status := CheckMicrophone(); status {
	case PermissionAuthorized:
		return nil
	case PermissionNotDetermined:
		RequestMicrophone()
		return fmt.Errorf("%w: waiting for approval, restart after answering the prompt", ErrMicrophone)
	default:
		return fmt.Errorf("%w: allow access in System Settings → Privacy & Security → Microphone (status %d)",
			ErrMicrophone, status)
	}
}
