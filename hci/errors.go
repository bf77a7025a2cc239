package hci

import "errors"

var (
	// ErrNoLink is returned when a Device is constructed without a Link.
	ErrNoLink = errors.New("no link configured")

	// ErrDeviceNotFound is returned by Init when the co-processor never
	// signals readiness within the bring-up window. Usually a wiring or
	// power problem.
	ErrDeviceNotFound = errors.New("device did not signal readiness")

	// ErrCmdTimeout is returned when a command's reply event does not
	// arrive within its deadline. The same condition is reported once to
	// the event callback as EvntDeviceLocked.
	ErrCmdTimeout = errors.New("command response timeout")

	// ErrAcceptFailed is returned when the co-processor reports an accept
	// result outside the valid descriptor range.
	ErrAcceptFailed = errors.New("accept failed")

	// ErrHostNotFound is returned when the co-processor's resolver cannot
	// resolve a hostname.
	ErrHostNotFound = errors.New("host not found")

	// ErrHostnameLength is returned for an empty or over-long hostname.
	ErrHostnameLength = errors.New("hostname length out of range")

	// ErrServiceNameLength is returned for an over-long mDNS service name.
	ErrServiceNameLength = errors.New("service name too long")
)
