package market

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/openlabour/labour-engine/internal/models"
	"github.com/openlabour/labour-engine/internal/program"
)

// RegisterUserParams carries a labour or manager registration request.
type RegisterUserParams struct {
	Wallet       solana.PublicKey
	Name         string
	Role         models.UserRole
	Metadata     models.UserMetadata
	ProfileImage *Upload
	Documents    []Upload
}

// RegisterUserResult pairs the unsigned transaction with the state the account
// will hold once the chain accepts it.
type RegisterUserResult struct {
	PreparedTx
	UserPDA     string              `json:"userPda"`
	MetadataURL string              `json:"metadataUrl"`
	Metadata    models.UserMetadata `json:"metadata"`
	User        models.UserAccount  `json:"user"`
}

// RegisterUser pins the profile metadata and builds a register_user
// transaction for the wallet to sign.
func (s *Service) RegisterUser(ctx context.Context, p RegisterUserParams) (*RegisterUserResult, error) {
	programID := s.chain.ProgramID()

	userPDA, err := program.UserAddress(programID, p.Wallet)
	if err != nil {
		return nil, err
	}
	systemState, err := program.SystemStateAddress(programID)
	if err != nil {
		return nil, err
	}

	metadata := p.Metadata
	metadata.Name = p.Name
	if p.ProfileImage != nil {
		url, err := s.pins.UploadFile(ctx, p.ProfileImage.Name, p.ProfileImage.Content)
		if err != nil {
			return nil, err
		}
		metadata.ProfileImage = url
	}
	if len(p.Documents) > 0 {
		urls, err := s.uploadAll(ctx, p.Documents)
		if err != nil {
			return nil, err
		}
		metadata.RelevantDocuments = urls
	}

	metadataURL, err := s.pins.UploadJSON(ctx, p.Name, metadata)
	if err != nil {
		return nil, err
	}

	ix, err := program.RegisterUser(programID, program.RegisterUserAccounts{
		SystemState: systemState,
		UserAccount: userPDA,
		Authority:   p.Wallet,
	}, p.Name, metadataURL, p.Role)
	if err != nil {
		return nil, err
	}

	kind := "register-labour"
	if p.Role == models.RoleManager {
		kind = "register-manager"
	}
	prepared, err := s.prepare(ctx, kind, p.Wallet, []solana.Instruction{ix}, map[string]string{
		"userAccount": userPDA.String(),
	})
	if err != nil {
		return nil, err
	}

	return &RegisterUserResult{
		PreparedTx:  *prepared,
		UserPDA:     userPDA.String(),
		MetadataURL: metadataURL,
		Metadata:    metadata,
		User: models.UserAccount{
			Authority:   p.Wallet,
			Name:        p.Name,
			MetadataURI: metadataURL,
			Active:      true,
			Role:        p.Role,
			Timestamp:   s.now().Unix(),
		},
	}, nil
}

// UpdateUserParams carries a profile update. Active is optional; nil leaves
// the on-chain flag untouched.
type UpdateUserParams struct {
	Wallet       solana.PublicKey
	Name         string
	Active       *bool
	Metadata     models.UserMetadata
	ProfileImage *Upload
	Documents    []Upload
}

// UpdateUserResult pairs the unsigned transaction with the refreshed metadata.
type UpdateUserResult struct {
	PreparedTx
	UserPDA     string              `json:"userPda"`
	MetadataURL string              `json:"metadataUrl"`
	Metadata    models.UserMetadata `json:"metadata"`
}

// UpdateUser re-pins the profile metadata and builds an update_user
// transaction. The user account must already exist.
func (s *Service) UpdateUser(ctx context.Context, p UpdateUserParams) (*UpdateUserResult, error) {
	programID := s.chain.ProgramID()

	userPDA, err := program.UserAddress(programID, p.Wallet)
	if err != nil {
		return nil, err
	}

	// Existence check first so a typo'd wallet fails cheap, before pinning.
	if _, err := s.chain.FetchUser(ctx, userPDA); err != nil {
		return nil, err
	}

	metadata := p.Metadata
	metadata.Name = p.Name
	if p.ProfileImage != nil {
		url, err := s.pins.UploadFile(ctx, p.ProfileImage.Name, p.ProfileImage.Content)
		if err != nil {
			return nil, err
		}
		metadata.ProfileImage = url
	}
	if len(p.Documents) > 0 {
		urls, err := s.uploadAll(ctx, p.Documents)
		if err != nil {
			return nil, err
		}
		metadata.RelevantDocuments = urls
	}

	metadataURL, err := s.pins.UploadJSON(ctx, p.Name, metadata)
	if err != nil {
		return nil, err
	}

	ix, err := program.UpdateUser(programID, program.UpdateUserAccounts{
		UserAccount: userPDA,
		Authority:   p.Wallet,
	}, p.Name, metadataURL, p.Active)
	if err != nil {
		return nil, err
	}

	prepared, err := s.prepare(ctx, "update-user", p.Wallet, []solana.Instruction{ix}, map[string]string{
		"userAccount": userPDA.String(),
	})
	if err != nil {
		return nil, err
	}

	return &UpdateUserResult{
		PreparedTx:  *prepared,
		UserPDA:     userPDA.String(),
		MetadataURL: metadataURL,
		Metadata:    metadata,
	}, nil
}

// RateUserParams carries a rating from one wallet about a user account.
type RateUserParams struct {
	Rater   solana.PublicKey
	Subject solana.PublicKey
	Rating  int
	Context string
}

// RateUserResult pairs the unsigned transaction with the derived addresses.
type RateUserResult struct {
	PreparedTx
	UserAccountPDA string `json:"userAccountPda"`
	ReviewPDA      string `json:"reviewPda"`
}

// RateUser builds a rate_user transaction.
func (s *Service) RateUser(ctx context.Context, p RateUserParams) (*RateUserResult, error) {
	if p.Rater.Equals(p.Subject) {
		return nil, ErrSelfRating
	}
	if p.Rating < 1 || p.Rating > 5 {
		return nil, ErrInvalidRating
	}

	programID := s.chain.ProgramID()

	userPDA, err := program.UserAddress(programID, p.Subject)
	if err != nil {
		return nil, err
	}
	reviewPDA, err := program.ReviewAddress(programID, p.Rater, userPDA)
	if err != nil {
		return nil, err
	}

	ix, err := program.RateUser(programID, program.RateUserAccounts{
		UserAccount: userPDA,
		Review:      reviewPDA,
		Authority:   p.Rater,
	}, uint8(p.Rating), p.Context)
	if err != nil {
		return nil, err
	}

	prepared, err := s.prepare(ctx, "rate-user", p.Rater, []solana.Instruction{ix}, map[string]string{
		"userAccount": userPDA.String(),
		"review":      reviewPDA.String(),
	})
	if err != nil {
		return nil, err
	}

	return &RateUserResult{
		PreparedTx:     *prepared,
		UserAccountPDA: userPDA.String(),
		ReviewPDA:      reviewPDA.String(),
	}, nil
}
