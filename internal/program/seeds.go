package program

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed prefixes used by the on-chain program. These must match the program's
// constants byte for byte or derived addresses will not resolve.
const (
	SeedSystem        = "System"
	SeedUser          = "User"
	SeedProject       = "Project"
	SeedEscrow        = "Escrow"
	SeedApplication   = "Application"
	SeedAssignment    = "Assignment"
	SeedVerification  = "Verify"
	SeedReview        = "Review"
	SeedMintAuthority = "mint"
)

// MaxDayNumber is the largest work-day number the on-chain u16 field can hold.
const MaxDayNumber = 1<<16 - 1

// SystemStateAddress derives the singleton system state PDA.
func SystemStateAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedSystem)},
		programID,
	)
	return addr, err
}

// UserAddress derives the user account PDA for a wallet.
func UserAddress(programID, wallet solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedUser), wallet.Bytes()},
		programID,
	)
	return addr, err
}

// ProjectAddress derives the project PDA for a manager account and project
// index. The index seed is the 4-byte little-endian encoding of the program's
// u32 project counter.
func ProjectAddress(programID, managerAccount solana.PublicKey, index uint32) (solana.PublicKey, error) {
	var counter [4]byte
	binary.LittleEndian.PutUint32(counter[:], index)
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedProject), managerAccount.Bytes(), counter[:]},
		programID,
	)
	return addr, err
}

// EscrowAddress derives the escrow token account PDA for a project.
func EscrowAddress(programID, project solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedEscrow), project.Bytes()},
		programID,
	)
	return addr, err
}

// ApplicationAddress derives the application PDA for a labour account and
// project pair.
func ApplicationAddress(programID, labourAccount, project solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedApplication), labourAccount.Bytes(), project.Bytes()},
		programID,
	)
	return addr, err
}

// AssignmentAddress derives the assignment PDA for a labour account and
// project pair.
func AssignmentAddress(programID, labourAccount, project solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedAssignment), labourAccount.Bytes(), project.Bytes()},
		programID,
	)
	return addr, err
}

// WorkVerificationAddress derives the work verification PDA for a given work
// day. The day seed is the 2-byte little-endian encoding of the program's u16
// day number; values outside that range are rejected rather than truncated.
func WorkVerificationAddress(programID, labourAccount, project solana.PublicKey, day int) (solana.PublicKey, error) {
	if day < 1 || day > MaxDayNumber {
		return solana.PublicKey{}, fmt.Errorf("day number %d out of range [1, %d]", day, MaxDayNumber)
	}
	var dayBytes [2]byte
	binary.LittleEndian.PutUint16(dayBytes[:], uint16(day))
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedVerification), labourAccount.Bytes(), project.Bytes(), dayBytes[:]},
		programID,
	)
	return addr, err
}

// ReviewAddress derives the review PDA left by a rater wallet about a user
// account.
func ReviewAddress(programID, rater, userAccount solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedReview), rater.Bytes(), userAccount.Bytes()},
		programID,
	)
	return addr, err
}

// MintAuthorityAddress derives the PDA that signs token mints on behalf of the
// program.
func MintAuthorityAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedMintAuthority)},
		programID,
	)
	return addr, err
}
