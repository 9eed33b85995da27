package market

import (
	"context"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"

	"github.com/openlabour/labour-engine/internal/models"
	"github.com/openlabour/labour-engine/internal/program"
)

// VerifyWorkDayParams carries a labour's end-of-day work report.
type VerifyWorkDayParams struct {
	Wallet    solana.PublicKey
	Project   solana.PublicKey
	DayNumber int

	Report             models.WorkReportMetadata
	WorkImages         []Upload
	SupportingDocument *Upload
}

// VerifyWorkDayResult pairs the unsigned transaction with the verification
// record the chain will create.
type VerifyWorkDayResult struct {
	PreparedTx
	WorkVerificationPDA string                    `json:"workVerificationPda"`
	WorkVerification    models.WorkVerification   `json:"workVerification"`
	Metadata            models.WorkReportMetadata `json:"metadata"`
}

// VerifyWorkDay checks the assignment is live and the day number is the next
// sequential one, then pins the report and builds a verify_work_day
// transaction. Nothing is pinned until every precondition holds.
func (s *Service) VerifyWorkDay(ctx context.Context, p VerifyWorkDayParams) (*VerifyWorkDayResult, error) {
	programID := s.chain.ProgramID()

	labourPDA, err := program.UserAddress(programID, p.Wallet)
	if err != nil {
		return nil, err
	}
	assignmentPDA, err := program.AssignmentAddress(programID, labourPDA, p.Project)
	if err != nil {
		return nil, err
	}

	project, err := s.chain.FetchProject(ctx, p.Project)
	if err != nil {
		return nil, err
	}
	if !project.Status.Active() {
		return nil, ErrProjectInactive
	}

	assignment, err := s.chain.FetchAssignment(ctx, assignmentPDA)
	if err != nil {
		return nil, err
	}
	if !assignment.Active {
		return nil, ErrAssignmentInactive
	}
	if p.DayNumber != int(assignment.DaysWorked)+1 {
		return nil, ErrInvalidDayNumber
	}

	verificationPDA, err := program.WorkVerificationAddress(programID, labourPDA, p.Project, p.DayNumber)
	if err != nil {
		return nil, ErrInvalidDayNumber
	}

	metadata := p.Report
	if len(p.WorkImages) > 0 {
		url, err := s.uploadBundle(ctx, "work-images", p.WorkImages)
		if err != nil {
			return nil, err
		}
		metadata.WorkImages = url
	}
	if p.SupportingDocument != nil {
		url, err := s.pins.UploadFile(ctx, p.SupportingDocument.Name, p.SupportingDocument.Content)
		if err != nil {
			return nil, err
		}
		metadata.SupportingDocuments = url
	}

	metadataURL, err := s.pins.UploadJSON(ctx, "work-report", metadata)
	if err != nil {
		return nil, err
	}

	ix, err := program.VerifyWorkDay(programID, program.VerifyWorkDayAccounts{
		LabourAccount:    labourPDA,
		Project:          p.Project,
		Assignment:       assignmentPDA,
		WorkVerification: verificationPDA,
		Authority:        p.Wallet,
	}, uint16(p.DayNumber), metadataURL)
	if err != nil {
		return nil, err
	}

	prepared, err := s.prepare(ctx, "verify-work-day", p.Wallet, []solana.Instruction{ix}, map[string]string{
		"workVerification": verificationPDA.String(),
		"assignment":       assignmentPDA.String(),
		"project":          p.Project.String(),
	})
	if err != nil {
		return nil, err
	}

	return &VerifyWorkDayResult{
		PreparedTx:          *prepared,
		WorkVerificationPDA: verificationPDA.String(),
		WorkVerification: models.WorkVerification{
			Project:        p.Project,
			Labour:         labourPDA,
			DayNumber:      uint16(p.DayNumber),
			LabourVerified: true,
			MetadataURI:    metadataURL,
			Timestamp:      s.now().Unix(),
		},
		Metadata: metadata,
	}, nil
}

// ApproveWorkDayParams carries a manager's sign-off releasing one day of pay.
// The manager account is derived from the wallet, never trusted from input.
type ApproveWorkDayParams struct {
	Wallet        solana.PublicKey
	Project       solana.PublicKey
	LabourAccount solana.PublicKey
	DayNumber     int
}

// ApproveWorkDayResult pairs the unsigned transaction with the token account
// the payout lands in.
type ApproveWorkDayResult struct {
	PreparedTx
	WorkVerificationPDA string `json:"workVerificationPda"`
	LabourTokenAccount  string `json:"labourTokenAccount"`
	TokenAccountCreated bool   `json:"tokenAccountCreated"`
}

// ApproveWorkDay checks the caller manages the project and the day is still
// awaiting sign-off, then builds an approve_work_day transaction, prepending
// an associated-token-account creation when the labour has none for the
// marketplace mint yet.
func (s *Service) ApproveWorkDay(ctx context.Context, p ApproveWorkDayParams) (*ApproveWorkDayResult, error) {
	programID := s.chain.ProgramID()

	managerPDA, err := program.UserAddress(programID, p.Wallet)
	if err != nil {
		return nil, err
	}
	project, err := s.chain.FetchProject(ctx, p.Project)
	if err != nil {
		return nil, err
	}
	if !project.Manager.Equals(managerPDA) {
		return nil, ErrNotAuthorized
	}

	state, err := s.chain.FetchSystemState(ctx)
	if err != nil {
		return nil, err
	}
	labour, err := s.chain.FetchUser(ctx, p.LabourAccount)
	if err != nil {
		return nil, err
	}

	assignmentPDA, err := program.AssignmentAddress(programID, p.LabourAccount, p.Project)
	if err != nil {
		return nil, err
	}
	verificationPDA, err := program.WorkVerificationAddress(programID, p.LabourAccount, p.Project, p.DayNumber)
	if err != nil {
		return nil, ErrInvalidDayNumber
	}
	escrowPDA, err := program.EscrowAddress(programID, p.Project)
	if err != nil {
		return nil, err
	}

	verification, err := s.chain.FetchWorkVerification(ctx, verificationPDA)
	if err != nil {
		return nil, err
	}
	if !verification.LabourVerified {
		return nil, ErrNotLabourVerified
	}
	if verification.ManagerVerified || verification.PaymentProcessed {
		return nil, ErrAlreadyApproved
	}

	labourATA, _, err := solana.FindAssociatedTokenAddress(labour.Authority, state.Mint)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction
	created := false
	exists, err := s.chain.AccountExists(ctx, labourATA)
	if err != nil {
		return nil, err
	}
	if !exists {
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(
			p.Wallet,
			labour.Authority,
			state.Mint,
		).Build())
		created = true
	}

	ix, err := program.ApproveWorkDay(programID, program.ApproveWorkDayAccounts{
		ManagerAccount:     managerPDA,
		Project:            p.Project,
		LabourAccount:      p.LabourAccount,
		Assignment:         assignmentPDA,
		WorkVerification:   verificationPDA,
		EscrowAccount:      escrowPDA,
		LabourTokenAccount: labourATA,
		Authority:          p.Wallet,
	})
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, ix)

	prepared, err := s.prepare(ctx, "approve-work-day", p.Wallet, instructions, map[string]string{
		"workVerification": verificationPDA.String(),
		"assignment":       assignmentPDA.String(),
		"project":          p.Project.String(),
		"escrowAccount":    escrowPDA.String(),
	})
	if err != nil {
		return nil, err
	}

	return &ApproveWorkDayResult{
		PreparedTx:          *prepared,
		WorkVerificationPDA: verificationPDA.String(),
		LabourTokenAccount:  labourATA.String(),
		TokenAccountCreated: created,
	}, nil
}
