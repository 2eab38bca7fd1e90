package core

// # Error Codes Reference
//
// User-facing messages carry a short code that can be quoted when reporting
// a problem. Codes are grouped by category.
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Unknown table: No table is registered under this name
//	         Action: Run "gamedata tables" or open the dashboard for the list
//	         Patterns: "unknown table"
//
//	TBL002 - Missing ID column: The file has no ID column
//	         Action: Add an ID column; rows are matched by ID
//	         Patterns: "missing id column"
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - Row not found: No row has this ID
//	         Action: Refresh the table and pick an existing row
//	         Patterns: "row not found"
//
//	ROW002 - Duplicate ID: Another row already uses this ID
//	         Action: Pick an unused ID
//	         Patterns: "duplicate id"
//
//	ROW003 - Invalid ID: IDs must be positive whole numbers
//	         Action: Enter a number greater than zero
//	         Patterns: "invalid id"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: The file exceeds the import size limit
//	          Action: Split the table or raise TRANSFER_MAX_IMPORT_SIZE
//	          Patterns: "file too large"
//
//	FILE002 - Encoding error: The file could not be decoded as text
//	          Action: Save the file as UTF-8 or UTF-16 CSV
//	          Patterns: "decode text"
//
//	FILE003 - Empty file: The file has no header line
//	          Action: Export the table first to get a file with headers
//	          Patterns: "empty file"
//
//	FILE004 - No file: No file was attached to the request
//	          Action: Choose a CSV file to import
//	          Patterns: "no file provided", "http: no such file"
//
//	FILE005 - File not found: The CSV file does not exist
//	          Action: Check the CSV folder setting
//	          Patterns: "no such file"
//
// # Transfer Errors (XFR001-XFR099)
//
//	XFR001 - Busy: Another import or export is running
//	         Action: Wait for it to finish and try again
//	         Patterns: "transfer busy"
//
//	XFR002 - Cancelled: The transfer was cancelled
//	         Action: Start it again if it was not intended
//	         Patterns: "context canceled"
//
//	XFR003 - Timeout: The transfer took too long
//	         Action: Try again or raise TRANSFER_TIMEOUT
//	         Patterns: "deadline exceeded", "timeout"
//
//	XFR004 - Unknown transfer: No transfer has this ID
//	         Patterns: "transfer not found"
//
// # Storage Errors (STORE001-STORE099)
//
//	STORE001 - Connection refused: The database is unreachable
//	           Patterns: "connection refused"
//	STORE002 - Locked: The database is busy
//	           Patterns: "database is locked", "sqlite_busy"
//	STORE003 - Permission denied: The data folder is not writable
//	           Patterns: "permission denied"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid mode: Import mode must be update or replace
//	         Patterns: "invalid import mode"
//	REQ002 - Rate limit: Too many requests
//	         Patterns: "rate limit"
//	REQ003 - Bad body: The request body could not be read
//	         Patterns: "invalid request body"
//
// # General Errors
//
//	ERR000 - Fallback for anything not listed above.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. The first matching pattern wins, so specific patterns come
// before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Table Errors (TBL001-TBL002)
	// =========================================================================
	{
		pattern: "unknown table",
		msg: UserMessage{
			Message: "No table is registered under this name",
			Action:  "Open the dashboard for the list of tables",
			Code:    "TBL001",
		},
	},
	{
		pattern: "missing id column",
		msg: UserMessage{
			Message: "The file has no ID column",
			Action:  "Add an ID column; rows are matched by ID",
			Code:    "TBL002",
		},
	},

	// =========================================================================
	// Row Errors (ROW001-ROW003)
	// =========================================================================
	{
		pattern: "row not found",
		msg: UserMessage{
			Message: "No row has this ID",
			Action:  "Refresh the table and pick an existing row",
			Code:    "ROW001",
		},
	},
	{
		pattern: "duplicate id",
		msg: UserMessage{
			Message: "Another row already uses this ID",
			Action:  "Pick an unused ID",
			Code:    "ROW002",
		},
	},
	{
		pattern: "invalid id",
		msg: UserMessage{
			Message: "IDs must be positive whole numbers",
			Action:  "Enter a number greater than zero",
			Code:    "ROW003",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file exceeds the import size limit",
			Action:  "Split the table or raise TRANSFER_MAX_IMPORT_SIZE",
			Code:    "FILE001",
		},
	},
	{
		pattern: "decode text",
		msg: UserMessage{
			Message: "The file could not be decoded as text",
			Action:  "Save the file as UTF-8 or UTF-16 CSV",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file has no header line",
			Action:  "Export the table first to get a file with headers",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was attached to the request",
			Action:  "Choose a CSV file to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "http: no such file",
		msg: UserMessage{
			Message: "No file was attached to the request",
			Action:  "Choose a CSV file to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "The CSV file does not exist",
			Action:  "Check the CSV folder setting",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Transfer Errors (XFR001-XFR004)
	// =========================================================================
	{
		pattern: "transfer busy",
		msg: UserMessage{
			Message: "Another import or export is running",
			Action:  "Wait for it to finish and try again",
			Code:    "XFR001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The transfer was cancelled",
			Action:  "Start it again if it was not intended",
			Code:    "XFR002",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "The transfer took too long",
			Action:  "Try again or raise TRANSFER_TIMEOUT",
			Code:    "XFR003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The transfer took too long",
			Action:  "Try again or raise TRANSFER_TIMEOUT",
			Code:    "XFR003",
		},
	},
	{
		pattern: "transfer not found",
		msg: UserMessage{
			Message: "No transfer has this ID",
			Action:  "History keeps only recent transfers",
			Code:    "XFR004",
		},
	},

	// =========================================================================
	// Storage Errors (STORE001-STORE003)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "The database is unreachable",
			Action:  "Check STORE_DATABASE_URL and that the database is running",
			Code:    "STORE001",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The database is busy",
			Action:  "Please try again in a few moments",
			Code:    "STORE002",
		},
	},
	{
		pattern: "sqlite_busy",
		msg: UserMessage{
			Message: "The database is busy",
			Action:  "Please try again in a few moments",
			Code:    "STORE002",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "The data folder is not writable",
			Action:  "Check the permissions of STORE_DATA_DIR",
			Code:    "STORE003",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ003)
	// =========================================================================
	{
		pattern: "invalid import mode",
		msg: UserMessage{
			Message: "Import mode must be update or replace",
			Action:  "Pass mode=update or mode=replace",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a minute before trying again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request body could not be read",
			Action:  "Send a JSON object matching the endpoint",
			Code:    "REQ003",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the server log",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Known patterns are matched case-insensitively, first match wins; anything
// else maps to ERR000.
//
// Example:
//
//	msg := MapError(fmt.Errorf("%w: Monsters 7", ErrRowNotFound))
//	// msg.Code == "ROW001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
