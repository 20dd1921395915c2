//go:build !darwin

package permissions

func check(bool) Status {
	return Status{Input: true, Capture: true}
}
