package program

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/openlabour/labour-engine/internal/models"
)

// Account names as declared by the on-chain program.
const (
	accountSystemState      = "SystemState"
	accountUser             = "UserAccount"
	accountProject          = "Project"
	accountReview           = "Review"
	accountApplication      = "Application"
	accountAssignment       = "Assignment"
	accountWorkVerification = "WorkVerification"
)

// Byte offsets used for memcmp filters against raw account data. Anchor
// account data starts with an 8-byte discriminator; the offsets below point at
// the serialized fields that follow it.
const (
	// DataOffset is where field data begins, right after the discriminator.
	DataOffset = 8

	// OffsetProjectManager: Project.manager is the first field.
	OffsetProjectManager = DataOffset
	// OffsetUserAuthority: UserAccount.authority is the first field.
	OffsetUserAuthority = DataOffset
	// OffsetApplicationLabour / OffsetApplicationProject: Application stores
	// (labour, project) as its first two 32-byte keys.
	OffsetApplicationLabour  = DataOffset
	OffsetApplicationProject = DataOffset + 32
	// OffsetAssignmentLabour / OffsetAssignmentProject: Assignment stores
	// (labour, project) in the same order.
	OffsetAssignmentLabour  = DataOffset
	OffsetAssignmentProject = DataOffset + 32
	// OffsetVerificationProject / OffsetVerificationLabour: WorkVerification
	// stores (project, labour) — note the reversed order.
	OffsetVerificationProject = DataOffset
	OffsetVerificationLabour  = DataOffset + 32
)

func decodeAccount(name string, data []byte, out interface{}) error {
	if len(data) < DataOffset {
		return fmt.Errorf("account data too short for %s: %d bytes", name, len(data))
	}
	if !bytes.Equal(data[:DataOffset], accountDiscriminator(name)) {
		return fmt.Errorf("account discriminator mismatch: not a %s account", name)
	}
	if err := bin.NewBorshDecoder(data[DataOffset:]).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s account: %w", name, err)
	}
	return nil
}

// DecodeSystemState decodes raw account data into a SystemState.
func DecodeSystemState(data []byte) (*models.SystemState, error) {
	var st models.SystemState
	if err := decodeAccount(accountSystemState, data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// DecodeUserAccount decodes raw account data into a UserAccount.
func DecodeUserAccount(data []byte) (*models.UserAccount, error) {
	var u models.UserAccount
	if err := decodeAccount(accountUser, data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DecodeProject decodes raw account data into a Project.
func DecodeProject(data []byte) (*models.Project, error) {
	var p models.Project
	if err := decodeAccount(accountProject, data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeReview decodes raw account data into a Review.
func DecodeReview(data []byte) (*models.Review, error) {
	var r models.Review
	if err := decodeAccount(accountReview, data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeApplication decodes raw account data into an Application.
func DecodeApplication(data []byte) (*models.Application, error) {
	var a models.Application
	if err := decodeAccount(accountApplication, data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DecodeAssignment decodes raw account data into an Assignment.
func DecodeAssignment(data []byte) (*models.Assignment, error) {
	var a models.Assignment
	if err := decodeAccount(accountAssignment, data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DecodeWorkVerification decodes raw account data into a WorkVerification.
func DecodeWorkVerification(data []byte) (*models.WorkVerification, error) {
	var wv models.WorkVerification
	if err := decodeAccount(accountWorkVerification, data, &wv); err != nil {
		return nil, err
	}
	return &wv, nil
}
