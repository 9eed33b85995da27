package market

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/openlabour/labour-engine/internal/models"
)

// Read queries. List endpoints go through the snapshot cache when one is
// configured; single-account fetches always hit the chain.

// SystemState returns the singleton marketplace state.
func (s *Service) SystemState(ctx context.Context) (*models.KeyedSystemState, error) {
	return s.chain.FetchSystemState(ctx)
}

// UserByWallet returns the user account registered for a wallet.
func (s *Service) UserByWallet(ctx context.Context, wallet solana.PublicKey) (*models.KeyedUserAccount, error) {
	return s.chain.FetchUserByWallet(ctx, wallet)
}

// UserByAddress returns the user account at a known derived address.
func (s *Service) UserByAddress(ctx context.Context, address solana.PublicKey) (*models.KeyedUserAccount, error) {
	return s.chain.FetchUser(ctx, address)
}

// Project returns one project.
func (s *Service) Project(ctx context.Context, address solana.PublicKey) (*models.KeyedProject, error) {
	return s.chain.FetchProject(ctx, address)
}

// Projects lists all projects, optionally narrowed to one manager account.
func (s *Service) Projects(ctx context.Context, manager *solana.PublicKey) ([]models.KeyedProject, error) {
	key := "projects:all"
	if manager != nil {
		key = "projects:manager:" + manager.String()
	}

	var cached []models.KeyedProject
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	projects, err := s.chain.ListProjects(ctx, manager)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, projects)
	return projects, nil
}

// ApplicationsByProject lists applications filed against a project.
func (s *Service) ApplicationsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedApplication, error) {
	key := "applications:project:" + project.String()

	var cached []models.KeyedApplication
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	apps, err := s.chain.ListApplicationsByProject(ctx, project)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, apps)
	return apps, nil
}

// ApplicationsByLabour lists a labour account's applications.
func (s *Service) ApplicationsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedApplication, error) {
	return s.chain.ListApplicationsByLabour(ctx, labourAccount)
}

// AssignmentsByLabour lists a labour account's assignments.
func (s *Service) AssignmentsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedAssignment, error) {
	return s.chain.ListAssignmentsByLabour(ctx, labourAccount)
}

// AssignmentsByProject lists a project's assignments.
func (s *Service) AssignmentsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedAssignment, error) {
	return s.chain.ListAssignmentsByProject(ctx, project)
}

// VerificationsByLabour lists work verifications submitted by a labour
// account.
func (s *Service) VerificationsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedWorkVerification, error) {
	return s.chain.ListVerificationsByLabour(ctx, labourAccount)
}

// VerificationsByProject lists a project's work verifications. Managers use
// this to find days awaiting sign-off.
func (s *Service) VerificationsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedWorkVerification, error) {
	return s.chain.ListVerificationsByProject(ctx, project)
}

// Ready reports whether the chain RPC node is reachable and healthy.
func (s *Service) Ready(ctx context.Context) error {
	return s.chain.Health(ctx)
}

// UserRole resolves a wallet's registered role. An unregistered wallet
// surfaces as an account-not-found error.
func (s *Service) UserRole(ctx context.Context, wallet solana.PublicKey) (models.UserRole, error) {
	user, err := s.chain.FetchUserByWallet(ctx, wallet)
	if err != nil {
		return 0, err
	}
	return user.Role, nil
}
