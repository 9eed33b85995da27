package market

import (
	"context"
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/openlabour/labour-engine/internal/models"
	"github.com/openlabour/labour-engine/internal/program"
)

// CreateProjectParams carries a project posting. DailyRate is in whole
// tokens; the service converts to base units.
type CreateProjectParams struct {
	Wallet        solana.PublicKey
	Title         string
	DailyRate     float64
	DurationDays  int
	MaxLabourers  int
	Metadata      models.ProjectMetadata
	ProjectImage  *Upload
	Documents     []Upload
	DocumentsDesc string
}

// CreateProjectResult pairs the unsigned transaction with the project the
// chain will create once it executes.
type CreateProjectResult struct {
	PreparedTx
	ProjectPDA  string                 `json:"projectPda"`
	EscrowPDA   string                 `json:"escrowAccountPda"`
	MetadataURL string                 `json:"metadataUrl"`
	Metadata    models.ProjectMetadata `json:"metadata"`
	Project     models.Project         `json:"project"`
}

// CreateProject derives the next project address from the current on-chain
// project counter, pins the metadata, and builds a create_project
// transaction. Every precondition is checked before anything is pinned.
func (s *Service) CreateProject(ctx context.Context, p CreateProjectParams) (*CreateProjectResult, error) {
	if p.DailyRate <= 0 {
		return nil, ErrInvalidDailyRate
	}
	if p.DurationDays <= 0 || p.DurationDays > math.MaxUint16 {
		return nil, ErrInvalidDuration
	}
	if p.MaxLabourers <= 0 || p.MaxLabourers > math.MaxUint8 {
		return nil, ErrInvalidLabourers
	}

	programID := s.chain.ProgramID()

	managerPDA, err := program.UserAddress(programID, p.Wallet)
	if err != nil {
		return nil, err
	}

	state, err := s.chain.FetchSystemState(ctx)
	if err != nil {
		return nil, err
	}

	// Two racing creators will read the same counter and derive the same
	// address; the chain accepts at most one and the loser's record expires.
	projectPDA, err := program.ProjectAddress(programID, managerPDA, state.ProjectCount)
	if err != nil {
		return nil, err
	}
	escrowPDA, err := program.EscrowAddress(programID, projectPDA)
	if err != nil {
		return nil, err
	}

	tokenAccounts, err := s.chain.TokenAccountsByOwner(ctx, p.Wallet, state.Mint)
	if err != nil {
		return nil, err
	}
	if len(tokenAccounts) == 0 {
		return nil, ErrNoTokenAccount
	}
	managerTokenAccount := tokenAccounts[0]

	metadata := p.Metadata
	metadata.Title = p.Title
	metadata.ManagerWalletAddress = p.Wallet.String()
	metadata.RequiredLabourers = p.MaxLabourers
	if p.ProjectImage != nil {
		url, err := s.pins.UploadFile(ctx, p.ProjectImage.Name, p.ProjectImage.Content)
		if err != nil {
			return nil, err
		}
		metadata.ProjectImage = url
	}
	docsDesc := p.DocumentsDesc
	if docsDesc == "" {
		docsDesc = "Project documents"
	}
	bundleURL, err := s.uploadBundle(ctx, p.Title+"-documents", p.Documents)
	if err != nil {
		return nil, err
	}
	metadata.RelevantDocuments = models.DocumentSet{Description: docsDesc, URI: bundleURL}

	metadataURL, err := s.pins.UploadJSON(ctx, p.Title, metadata)
	if err != nil {
		return nil, err
	}

	dailyRate := uint64(math.Floor(p.DailyRate * math.Pow10(s.decimals)))

	ix, err := program.CreateProject(programID, program.CreateProjectAccounts{
		SystemState:         state.PublicKey,
		ManagerAccount:      managerPDA,
		Project:             projectPDA,
		EscrowAccount:       escrowPDA,
		ManagerTokenAccount: managerTokenAccount,
		Mint:                state.Mint,
		Authority:           p.Wallet,
	}, p.Title, metadataURL, dailyRate, uint16(p.DurationDays), uint8(p.MaxLabourers))
	if err != nil {
		return nil, err
	}

	prepared, err := s.prepare(ctx, "create-project", p.Wallet, []solana.Instruction{ix}, map[string]string{
		"project":       projectPDA.String(),
		"escrowAccount": escrowPDA.String(),
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, "projects:*")

	return &CreateProjectResult{
		PreparedTx:  *prepared,
		ProjectPDA:  projectPDA.String(),
		EscrowPDA:   escrowPDA.String(),
		MetadataURL: metadataURL,
		Metadata:    metadata,
		Project: models.Project{
			Manager:       managerPDA,
			Title:         p.Title,
			MetadataURI:   metadataURL,
			DailyRate:     dailyRate,
			DurationDays:  uint16(p.DurationDays),
			MaxLabourers:  uint8(p.MaxLabourers),
			LabourCount:   0,
			Status:        models.ProjectOpen,
			EscrowAccount: escrowPDA,
			Timestamp:     s.now().Unix(),
			Index:         state.ProjectCount,
		},
	}, nil
}

// ApplyToProjectParams carries a labour's application.
type ApplyToProjectParams struct {
	Wallet      solana.PublicKey
	Project     solana.PublicKey
	Description string
}

// ApplyToProjectResult pairs the unsigned transaction with the application
// the chain will create.
type ApplyToProjectResult struct {
	PreparedTx
	ApplicationPDA string             `json:"applicationPda"`
	Application    models.Application `json:"application"`
}

// ApplyToProject checks the project is still taking applications and builds
// an apply_to_project transaction for the labour's wallet.
func (s *Service) ApplyToProject(ctx context.Context, p ApplyToProjectParams) (*ApplyToProjectResult, error) {
	programID := s.chain.ProgramID()

	project, err := s.chain.FetchProject(ctx, p.Project)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectOpen {
		return nil, ErrProjectNotOpen
	}
	if project.LabourCount >= project.MaxLabourers {
		return nil, ErrProjectFull
	}

	labourPDA, err := program.UserAddress(programID, p.Wallet)
	if err != nil {
		return nil, err
	}
	applicationPDA, err := program.ApplicationAddress(programID, labourPDA, p.Project)
	if err != nil {
		return nil, err
	}

	ix, err := program.ApplyToProject(programID, program.ApplyToProjectAccounts{
		LabourAccount: labourPDA,
		Project:       p.Project,
		Application:   applicationPDA,
		Authority:     p.Wallet,
	}, p.Description)
	if err != nil {
		return nil, err
	}

	prepared, err := s.prepare(ctx, "apply-to-project", p.Wallet, []solana.Instruction{ix}, map[string]string{
		"application": applicationPDA.String(),
		"project":     p.Project.String(),
	})
	if err != nil {
		return nil, err
	}

	return &ApplyToProjectResult{
		PreparedTx:     *prepared,
		ApplicationPDA: applicationPDA.String(),
		Application: models.Application{
			Labour:      labourPDA,
			Project:     p.Project,
			Description: p.Description,
			Status:      models.ApplicationPending,
			Timestamp:   s.now().Unix(),
		},
	}, nil
}

// ApproveApplicationParams carries a manager's approval of an application.
type ApproveApplicationParams struct {
	Wallet        solana.PublicKey
	Application   solana.PublicKey
	Project       solana.PublicKey
	LabourAccount solana.PublicKey
}

// ProjectDelta is the slice of project state an approval changes.
type ProjectDelta struct {
	LabourCount uint8                `json:"labourCount"`
	Status      models.ProjectStatus `json:"status"`
}

// ApproveApplicationResult pairs the unsigned transaction with the assignment
// the chain will create and the project fields it will bump.
type ApproveApplicationResult struct {
	PreparedTx
	AssignmentPDA  string            `json:"assignmentPda"`
	Assignment     models.Assignment `json:"assignment"`
	UpdatedProject ProjectDelta      `json:"updatedProject"`
}

// ApproveApplication checks the manager's authority and the project's
// capacity, then builds an approve_application transaction. The same checks
// run on-chain; failing here just saves the caller a doomed signature.
func (s *Service) ApproveApplication(ctx context.Context, p ApproveApplicationParams) (*ApproveApplicationResult, error) {
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
	if project.Status != models.ProjectOpen {
		return nil, ErrProjectNotOpen
	}
	if project.LabourCount >= project.MaxLabourers {
		return nil, ErrProjectFull
	}

	assignmentPDA, err := program.AssignmentAddress(programID, p.LabourAccount, p.Project)
	if err != nil {
		return nil, err
	}

	ix, err := program.ApproveApplication(programID, program.ApproveApplicationAccounts{
		Application:    p.Application,
		LabourAccount:  p.LabourAccount,
		Project:        p.Project,
		ManagerAccount: managerPDA,
		Assignment:     assignmentPDA,
		Authority:      p.Wallet,
	})
	if err != nil {
		return nil, err
	}

	prepared, err := s.prepare(ctx, "approve-application", p.Wallet, []solana.Instruction{ix}, map[string]string{
		"application": p.Application.String(),
		"assignment":  assignmentPDA.String(),
		"project":     p.Project.String(),
	})
	if err != nil {
		return nil, err
	}

	newCount := project.LabourCount + 1
	newStatus := models.ProjectOpen
	if newCount >= project.MaxLabourers {
		newStatus = models.ProjectInProgress
	}

	return &ApproveApplicationResult{
		PreparedTx:    *prepared,
		AssignmentPDA: assignmentPDA.String(),
		Assignment: models.Assignment{
			Labour:    p.LabourAccount,
			Project:   p.Project,
			Active:    true,
			Timestamp: s.now().Unix(),
		},
		UpdatedProject: ProjectDelta{
			LabourCount: newCount,
			Status:      newStatus,
		},
	}, nil
}
