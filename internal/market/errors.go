package market

import "errors"

// Precondition errors mirror the on-chain program's constraints so a doomed
// transaction is rejected before any upload or instruction building happens.
// The API layer maps them onto HTTP statuses.
var (
	ErrNotAuthorized      = errors.New("Not authorized to approve applications for this project")
	ErrProjectNotOpen     = errors.New("Project is not in Open status")
	ErrProjectFull        = errors.New("Project has reached maximum number of labourers")
	ErrProjectInactive    = errors.New("Project is not active")
	ErrAssignmentInactive = errors.New("Assignment is not active")
	ErrInvalidDayNumber   = errors.New("Invalid day number")
	ErrNotLabourVerified  = errors.New("Work day has not been verified by the labour")
	ErrAlreadyApproved    = errors.New("Work day has already been approved")
	ErrNoTokenAccount     = errors.New("No token account found for the project owner")
	ErrSelfRating         = errors.New("You cannot rate yourself")
	ErrInvalidRating      = errors.New("Rating must be between 1 and 5")
	ErrInvalidDailyRate   = errors.New("Daily rate must be a positive number")
	ErrInvalidDuration    = errors.New("Duration days must be a positive integer")
	ErrInvalidLabourers   = errors.New("Max labourers must be a positive integer not exceeding 255")
	ErrInvalidAmount      = errors.New("Amount must be a positive number")
	ErrInvalidSignature   = errors.New("Invalid transaction signature")
)
