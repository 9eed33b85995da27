package program

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/openlabour/labour-engine/internal/models"
)

// Instruction builders. Each mirrors one on-chain method: an 8-byte
// discriminator, Borsh-encoded arguments, and the account list in the exact
// order the program declares it.

func encodeInstructionData(name string, args ...interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(instructionDiscriminator(name))
	enc := bin.NewBorshEncoder(buf)
	for _, arg := range args {
		if err := enc.Encode(arg); err != nil {
			return nil, fmt.Errorf("failed to encode %s argument: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// RegisterUserAccounts lists the accounts for a register_user instruction.
type RegisterUserAccounts struct {
	SystemState solana.PublicKey
	UserAccount solana.PublicKey
	Authority   solana.PublicKey
}

// RegisterUser builds a register_user instruction.
func RegisterUser(programID solana.PublicKey, accts RegisterUserAccounts, name, metadataURI string, role models.UserRole) (solana.Instruction, error) {
	data, err := encodeInstructionData("register_user", name, metadataURI, uint8(role))
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(accts.SystemState).WRITE(),
		solana.Meta(accts.UserAccount).WRITE(),
		solana.Meta(accts.Authority).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

// UpdateUserAccounts lists the accounts for an update_user instruction.
type UpdateUserAccounts struct {
	UserAccount solana.PublicKey
	Authority   solana.PublicKey
}

// UpdateUser builds an update_user instruction. A nil active leaves the
// on-chain active flag untouched (Borsh Option encoding).
func UpdateUser(programID solana.PublicKey, accts UpdateUserAccounts, name, metadataURI string, active *bool) (solana.Instruction, error) {
	data, err := encodeInstructionData("update_user", name, metadataURI)
	if err != nil {
		return nil, err
	}
	if active == nil {
		data = append(data, 0)
	} else {
		data = append(data, 1)
		if *active {
			data = append(data, 1)
		} else {
			data = append(data, 0)
		}
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(accts.UserAccount).WRITE(),
		solana.Meta(accts.Authority).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

// CreateProjectAccounts lists the accounts for a create_project instruction.
type CreateProjectAccounts struct {
	SystemState         solana.PublicKey
	ManagerAccount      solana.PublicKey
	Project             solana.PublicKey
	EscrowAccount       solana.PublicKey
	ManagerTokenAccount solana.PublicKey
	Mint                solana.PublicKey
	Authority           solana.PublicKey
}

// CreateProject builds a create_project instruction. The daily rate is in
// token base units.
func CreateProject(programID solana.PublicKey, accts CreateProjectAccounts, title, metadataURI string, dailyRate uint64, durationDays uint16, maxLabourers uint8) (solana.Instruction, error) {
	data, err := encodeInstructionData("create_project", title, metadataURI, dailyRate, durationDays, maxLabourers)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(accts.SystemState).WRITE(),
		solana.Meta(accts.ManagerAccount).WRITE(),
		solana.Meta(accts.Project).WRITE(),
		solana.Meta(accts.EscrowAccount).WRITE(),
		solana.Meta(accts.ManagerTokenAccount).WRITE(),
		solana.Meta(accts.Mint),
		solana.Meta(accts.Authority).WRITE().SIGNER(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}, data), nil
}

// ApplyToProjectAccounts lists the accounts for an apply_to_project instruction.
type ApplyToProjectAccounts struct {
	LabourAccount solana.PublicKey
	Project       solana.PublicKey
	Application   solana.PublicKey
	Authority     solana.PublicKey
}

// ApplyToProject builds an apply_to_project instruction.
func ApplyToProject(programID solana.PublicKey, accts ApplyToProjectAccounts, description string) (solana.Instruction, error) {
	data, err := encodeInstructionData("apply_to_project", description)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(accts.LabourAccount),
		solana.Meta(accts.Project).WRITE(),
		solana.Meta(accts.Application).WRITE(),
		solana.Meta(accts.Authority).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

// ApproveApplicationAccounts lists the accounts for an approve_application
// instruction.
type ApproveApplicationAccounts struct {
	Application    solana.PublicKey
	LabourAccount  solana.PublicKey
	Project        solana.PublicKey
	ManagerAccount solana.PublicKey
	Assignment     solana.PublicKey
	Authority      solana.PublicKey
}

// ApproveApplication builds an approve_application instruction.
func ApproveApplication(programID solana.PublicKey, accts ApproveApplicationAccounts) (solana.Instruction, error) {
	data, err := encodeInstructionData("approve_application")
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(accts.Application).WRITE(),
		solana.Meta(accts.LabourAccount),
		solana.Meta(accts.Project).WRITE(),
		solana.Meta(accts.ManagerAccount),
		solana.Meta(accts.Assignment).WRITE(),
		solana.Meta(accts.Authority).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

// VerifyWorkDayAccounts lists the accounts for a verify_work_day instruction.
type VerifyWorkDayAccounts struct {
	LabourAccount    solana.PublicKey
	Project          solana.PublicKey
	Assignment       solana.PublicKey
	WorkVerification solana.PublicKey
	Authority        solana.PublicKey
}

// VerifyWorkDay builds a verify_work_day instruction.
func VerifyWorkDay(programID solana.PublicKey, accts VerifyWorkDayAccounts, dayNumber uint16, metadataURI string) (solana.Instruction, error) {
	data, err := encodeInstructionData("verify_work_day", dayNumber, metadataURI)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(accts.LabourAccount),
		solana.Meta(accts.Project).WRITE(),
		solana.Meta(accts.Assignment).WRITE(),
		solana.Meta(accts.WorkVerification).WRITE(),
		solana.Meta(accts.Authority).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

// ApproveWorkDayAccounts lists the accounts for an approve_work_day
// instruction.
type ApproveWorkDayAccounts struct {
	ManagerAccount     solana.PublicKey
	Project            solana.PublicKey
	LabourAccount      solana.PublicKey
	Assignment         solana.PublicKey
	WorkVerification   solana.PublicKey
	EscrowAccount      solana.PublicKey
	LabourTokenAccount solana.PublicKey
	Authority          solana.PublicKey
}

// ApproveWorkDay builds an approve_work_day instruction.
func ApproveWorkDay(programID solana.PublicKey, accts ApproveWorkDayAccounts) (solana.Instruction, error) {
	data, err := encodeInstructionData("approve_work_day")
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(accts.ManagerAccount),
		solana.Meta(accts.Project).WRITE(),
		solana.Meta(accts.LabourAccount),
		solana.Meta(accts.Assignment).WRITE(),
		solana.Meta(accts.WorkVerification).WRITE(),
		solana.Meta(accts.EscrowAccount).WRITE(),
		solana.Meta(accts.LabourTokenAccount).WRITE(),
		solana.Meta(accts.Authority).WRITE().SIGNER(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

// RateUserAccounts lists the accounts for a rate_user instruction.
type RateUserAccounts struct {
	UserAccount solana.PublicKey
	Review      solana.PublicKey
	Authority   solana.PublicKey
}

// RateUser builds a rate_user instruction. Rating must be within 1..5; the
// program enforces the same bound.
func RateUser(programID solana.PublicKey, accts RateUserAccounts, rating uint8, context string) (solana.Instruction, error) {
	data, err := encodeInstructionData("rate_user", rating, context)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(accts.UserAccount).WRITE(),
		solana.Meta(accts.Review).WRITE(),
		solana.Meta(accts.Authority).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

// MintTokenAccounts lists the accounts for a mint_token instruction.
type MintTokenAccounts struct {
	SystemState   solana.PublicKey
	Mint          solana.PublicKey
	MintAuthority solana.PublicKey
	To            solana.PublicKey
}

// MintToken builds a mint_token instruction. Amount is in token base units.
func MintToken(programID solana.PublicKey, accts MintTokenAccounts, amount uint64) (solana.Instruction, error) {
	data, err := encodeInstructionData("mint_token", amount)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(accts.SystemState).WRITE(),
		solana.Meta(accts.Mint).WRITE(),
		solana.Meta(accts.MintAuthority),
		solana.Meta(accts.To).WRITE(),
		solana.Meta(solana.TokenProgramID),
	}, data), nil
}
