//go:build darwin

package permissions

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework CoreGraphics
#import <ApplicationServices/ApplicationServices.h>
#import <CoreGraphics/CoreGraphics.h>

static int zs_input_trusted(int prompt) {
    const void *keys[] = { kAXTrustedCheckOptionPrompt };
    const void *values[] = { prompt ? kCFBooleanTrue : kCFBooleanFalse };
    CFDictionaryRef opts = CFDictionaryCreate(NULL, keys, values, 1,
        &kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
    Boolean ok = AXIsProcessTrustedWithOptions(opts);
    CFRelease(opts);
    return ok ? 1 : 0;
}

static int zs_capture_allowed(int prompt) {
    if (@available(macOS 10.15, *)) {
        if (CGPreflightScreenCaptureAccess()) {
            return 1;
        }
        return (prompt && CGRequestScreenCaptureAccess()) ? 1 : 0;
    }
    return 1;
}
*/
import "C"

// check prompt 为 true 时由系统弹出授权对话框
func check(prompt bool) Status {
	p := C.int(0)
	if prompt {
		p = 1
	}
	return Status{
		Input:   C.zs_input_trusted(p) == 1,
		Capture: C.zs_capture_allowed(p) == 1,
	}
}
