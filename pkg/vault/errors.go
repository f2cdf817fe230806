package vault

import "errors"

var (
	// ErrAlreadyExists is returned by Create when config.json already
	// exists at the target directory.
	ErrAlreadyExists = errors.New("vault: already exists")

	// ErrWrongPassword is returned by Unlock when the supplied password
	// fails to unwrap the stored DEK.
	ErrWrongPassword = errors.New("vault: wrong password")

	// ErrNotFound is returned by Unlock when config.json is missing.
	ErrNotFound = errors.New("vault: not found")

	// ErrConfigCorrupt is returned when config.json cannot be parsed or
	// is missing required fields, and no in-database backup is usable
	// either.
	ErrConfigCorrupt = errors.New("vault: config corrupt and unrecoverable")
)
