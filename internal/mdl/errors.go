package mdl

import "errors"

var (
	errTooShort   = errors.New("mdl: buffer shorter than header")
	errBadMagic   = errors.New("mdl: bad magic")
	errBadVersion = errors.New("mdl: version out of range")
	errIndexRange = errors.New("mdl: index out of range")
)

// IsBadMagic reports whether err is the "magic mismatch" sentinel.
func IsBadMagic(err error) bool { return errors.Is(err, errBadMagic) }

// IsBadVersion reports whether err is the "version out of range" sentinel.
func IsBadVersion(err error) bool { return errors.Is(err, errBadVersion) }
