package models

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// UserRole mirrors the on-chain role enum (Borsh u8 tag).
type UserRole uint8

const (
	RoleLabour UserRole = iota
	RoleManager
)

func (r UserRole) String() string {
	switch r {
	case RoleLabour:
		return "labour"
	case RoleManager:
		return "manager"
	}
	return fmt.Sprintf("unknown(%d)", uint8(r))
}

func (r UserRole) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *UserRole) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseUserRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseUserRole converts a wire string into a UserRole.
func ParseUserRole(s string) (UserRole, error) {
	switch s {
	case "labour":
		return RoleLabour, nil
	case "manager":
		return RoleManager, nil
	}
	return 0, fmt.Errorf("invalid user role: %q", s)
}

// ProjectStatus mirrors the on-chain project status enum.
type ProjectStatus uint8

const (
	ProjectOpen ProjectStatus = iota
	ProjectInProgress
	ProjectCompleted
	ProjectCancelled
)

func (s ProjectStatus) String() string {
	switch s {
	case ProjectOpen:
		return "open"
	case ProjectInProgress:
		return "inProgress"
	case ProjectCompleted:
		return "completed"
	case ProjectCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

func (s ProjectStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ProjectStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseProjectStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseProjectStatus converts a wire string into a ProjectStatus.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch s {
	case "open":
		return ProjectOpen, nil
	case "inProgress":
		return ProjectInProgress, nil
	case "completed":
		return ProjectCompleted, nil
	case "cancelled":
		return ProjectCancelled, nil
	}
	return 0, fmt.Errorf("invalid project status: %q", s)
}

// Active reports whether work may still be verified against the project.
func (s ProjectStatus) Active() bool {
	return s == ProjectOpen || s == ProjectInProgress
}

// ApplicationStatus mirrors the on-chain application status enum.
type ApplicationStatus uint8

const (
	ApplicationPending ApplicationStatus = iota
	ApplicationAccepted
	ApplicationRejected
	ApplicationWithdrawn
)

func (s ApplicationStatus) String() string {
	switch s {
	case ApplicationPending:
		return "pending"
	case ApplicationAccepted:
		return "accepted"
	case ApplicationRejected:
		return "rejected"
	case ApplicationWithdrawn:
		return "withdrawn"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

func (s ApplicationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ApplicationStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseApplicationStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseApplicationStatus converts a wire string into an ApplicationStatus.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	switch s {
	case "pending":
		return ApplicationPending, nil
	case "accepted":
		return ApplicationAccepted, nil
	case "rejected":
		return ApplicationRejected, nil
	case "withdrawn":
		return ApplicationWithdrawn, nil
	}
	return 0, fmt.Errorf("invalid application status: %q", s)
}

// ReviewType mirrors the on-chain review type enum.
type ReviewType uint8

const (
	LabourReview ReviewType = iota
	ManagerReview
)

func (t ReviewType) String() string {
	switch t {
	case LabourReview:
		return "labourReview"
	case ManagerReview:
		return "managerReview"
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

func (t ReviewType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ReviewType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseReviewType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseReviewType converts a wire string into a ReviewType.
func ParseReviewType(s string) (ReviewType, error) {
	switch s {
	case "labourReview":
		return LabourReview, nil
	case "managerReview":
		return ManagerReview, nil
	}
	return 0, fmt.Errorf("invalid review type: %q", s)
}

// The structs below mirror the external program's account layouts exactly:
// an 8-byte discriminator followed by Borsh-serialized fields in declaration
// order. Field order must not be changed.

// SystemState is the singleton marketplace state account.
type SystemState struct {
	Authority    solana.PublicKey   `json:"authority"`
	Mint         solana.PublicKey   `json:"mint"`
	LabourCount  uint32             `json:"labourCount"`
	ManagerCount uint32             `json:"managerCount"`
	ProjectCount uint32             `json:"projectCount"`
	Admins       []solana.PublicKey `json:"admins"`
}

// UserAccount is a registered labour or manager profile.
type UserAccount struct {
	Authority   solana.PublicKey `json:"authority"`
	Name        string           `json:"name"`
	MetadataURI string           `json:"metadataUri"`
	Active      bool             `json:"active"`
	Verified    bool             `json:"verified"`
	Rating      uint32           `json:"rating"`
	RatingCount uint32           `json:"ratingCount"`
	Timestamp   int64            `json:"timestamp"`
	Index       uint32           `json:"index"`
	Role        UserRole         `json:"role"`
	Spam        bool             `json:"spam"`
}

// Project is a posted job with an escrow holding its full budget.
type Project struct {
	Manager       solana.PublicKey `json:"manager"`
	Title         string           `json:"title"`
	MetadataURI   string           `json:"metadataUri"`
	DailyRate     uint64           `json:"dailyRate"`
	DurationDays  uint16           `json:"durationDays"`
	MaxLabourers  uint8            `json:"maxLabourers"`
	LabourCount   uint8            `json:"labourCount"`
	Status        ProjectStatus    `json:"status"`
	EscrowAccount solana.PublicKey `json:"escrowAccount"`
	Timestamp     int64            `json:"timestamp"`
	Index         uint32           `json:"index"`
}

// Review is a rating left by one party about another.
type Review struct {
	Reviewer   solana.PublicKey `json:"reviewer"`
	Reviewee   solana.PublicKey `json:"reviewee"`
	Rating     uint8            `json:"rating"`
	Context    string           `json:"context"`
	Timestamp  int64            `json:"timestamp"`
	ReviewType ReviewType       `json:"reviewType"`
}

// Application is a labour's request to join a project.
type Application struct {
	Labour      solana.PublicKey  `json:"labour"`
	Project     solana.PublicKey  `json:"project"`
	Description string            `json:"description"`
	Status      ApplicationStatus `json:"status"`
	Timestamp   int64             `json:"timestamp"`
}

// Assignment tracks an approved labour's progress on a project.
type Assignment struct {
	Labour     solana.PublicKey `json:"labour"`
	Project    solana.PublicKey `json:"project"`
	DaysWorked uint16           `json:"daysWorked"`
	DaysPaid   uint16           `json:"daysPaid"`
	Active     bool             `json:"active"`
	Timestamp  int64            `json:"timestamp"`
}

// WorkVerification records one day of work awaiting two-party sign-off.
type WorkVerification struct {
	Project          solana.PublicKey `json:"project"`
	Labour           solana.PublicKey `json:"labour"`
	DayNumber        uint16           `json:"dayNumber"`
	ManagerVerified  bool             `json:"managerVerified"`
	LabourVerified   bool             `json:"labourVerified"`
	MetadataURI      string           `json:"metadataUri"`
	Timestamp        int64            `json:"timestamp"`
	PaymentProcessed bool             `json:"paymentProcessed"`
}

// Keyed wrappers pair an account with the address it was fetched from.

type KeyedSystemState struct {
	PublicKey solana.PublicKey `json:"publicKey"`
	SystemState
}

type KeyedReview struct {
	PublicKey solana.PublicKey `json:"publicKey"`
	Review
}

type KeyedUserAccount struct {
	PublicKey solana.PublicKey `json:"publicKey"`
	UserAccount
}

type KeyedProject struct {
	PublicKey solana.PublicKey `json:"publicKey"`
	Project
}

type KeyedApplication struct {
	PublicKey solana.PublicKey `json:"publicKey"`
	Application
}

type KeyedAssignment struct {
	PublicKey solana.PublicKey `json:"publicKey"`
	Assignment
}

type KeyedWorkVerification struct {
	PublicKey solana.PublicKey `json:"publicKey"`
	WorkVerification
}
