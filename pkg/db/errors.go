package db

import "errors"

var (
	ErrMissingConnectionString  = errors.New("db: connection string is required")
	ErrFailedToParseDBConfig    = errors.New("db: failed to parse database configuration")
	ErrFailedToOpenDBConnection = errors.New("db: failed to open database connection")
	ErrTransaction              = errors.New("db: transaction failed")
)
