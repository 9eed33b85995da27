package market

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/openlabour/labour-engine/internal/models"
	"github.com/openlabour/labour-engine/internal/program"
	"github.com/openlabour/labour-engine/internal/storage"
)

var (
	testProgramID = solana.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")
	testMint      = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	managerWallet = solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")
	labourWallet  = solana.MustPublicKeyFromBase58("Stake11111111111111111111111111111111111111")
)

// fakeChain serves canned snapshots and tracks what was asked of it.
type fakeChain struct {
	state         *models.KeyedSystemState
	users         map[solana.PublicKey]*models.KeyedUserAccount
	projects      map[solana.PublicKey]*models.KeyedProject
	assignments   map[solana.PublicKey]*models.KeyedAssignment
	verifications map[solana.PublicKey]*models.KeyedWorkVerification
	tokenAccounts []solana.PublicKey
	existing      map[solana.PublicKey]bool
	balance       *rpc.UiTokenAmount
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		users:         make(map[solana.PublicKey]*models.KeyedUserAccount),
		projects:      make(map[solana.PublicKey]*models.KeyedProject),
		assignments:   make(map[solana.PublicKey]*models.KeyedAssignment),
		verifications: make(map[solana.PublicKey]*models.KeyedWorkVerification),
		existing:      make(map[solana.PublicKey]bool),
	}
}

func (f *fakeChain) ProgramID() solana.PublicKey          { return testProgramID }
func (f *fakeChain) Health(context.Context) error         { return nil }
func (f *fakeChain) BlockHeight(context.Context) (uint64, error) { return 100, nil }

func (f *fakeChain) LatestBlockhash(context.Context) (solana.Hash, uint64, error) {
	return solana.HashFromBytes(bytes.Repeat([]byte{9}, 32)), 150, nil
}

func (f *fakeChain) AccountExists(_ context.Context, address solana.PublicKey) (bool, error) {
	return f.existing[address], nil
}

func (f *fakeChain) FetchSystemState(context.Context) (*models.KeyedSystemState, error) {
	if f.state == nil {
		return nil, program.ErrAccountNotFound
	}
	return f.state, nil
}

func (f *fakeChain) FetchUserByWallet(ctx context.Context, wallet solana.PublicKey) (*models.KeyedUserAccount, error) {
	pda, _ := program.UserAddress(testProgramID, wallet)
	return f.FetchUser(ctx, pda)
}

func (f *fakeChain) FetchUser(_ context.Context, address solana.PublicKey) (*models.KeyedUserAccount, error) {
	if u, ok := f.users[address]; ok {
		return u, nil
	}
	return nil, program.ErrAccountNotFound
}

func (f *fakeChain) FetchProject(_ context.Context, address solana.PublicKey) (*models.KeyedProject, error) {
	if p, ok := f.projects[address]; ok {
		return p, nil
	}
	return nil, program.ErrAccountNotFound
}

func (f *fakeChain) FetchApplication(context.Context, solana.PublicKey) (*models.KeyedApplication, error) {
	return nil, program.ErrAccountNotFound
}

func (f *fakeChain) FetchAssignment(_ context.Context, address solana.PublicKey) (*models.KeyedAssignment, error) {
	if a, ok := f.assignments[address]; ok {
		return a, nil
	}
	return nil, program.ErrAccountNotFound
}

func (f *fakeChain) FetchWorkVerification(_ context.Context, address solana.PublicKey) (*models.KeyedWorkVerification, error) {
	if v, ok := f.verifications[address]; ok {
		return v, nil
	}
	return nil, program.ErrAccountNotFound
}

func (f *fakeChain) ListProjects(context.Context, *solana.PublicKey) ([]models.KeyedProject, error) {
	var out []models.KeyedProject
	for _, p := range f.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeChain) ListApplicationsByProject(context.Context, solana.PublicKey) ([]models.KeyedApplication, error) {
	return nil, nil
}
func (f *fakeChain) ListApplicationsByLabour(context.Context, solana.PublicKey) ([]models.KeyedApplication, error) {
	return nil, nil
}
func (f *fakeChain) ListAssignmentsByLabour(context.Context, solana.PublicKey) ([]models.KeyedAssignment, error) {
	return nil, nil
}
func (f *fakeChain) ListAssignmentsByProject(context.Context, solana.PublicKey) ([]models.KeyedAssignment, error) {
	return nil, nil
}
func (f *fakeChain) ListVerificationsByLabour(context.Context, solana.PublicKey) ([]models.KeyedWorkVerification, error) {
	return nil, nil
}
func (f *fakeChain) ListVerificationsByProject(context.Context, solana.PublicKey) ([]models.KeyedWorkVerification, error) {
	return nil, nil
}

func (f *fakeChain) TokenAccountsByOwner(context.Context, solana.PublicKey, solana.PublicKey) ([]solana.PublicKey, error) {
	return f.tokenAccounts, nil
}

func (f *fakeChain) TokenBalance(context.Context, solana.PublicKey) (*rpc.UiTokenAmount, error) {
	if f.balance == nil {
		return nil, program.ErrAccountNotFound
	}
	return f.balance, nil
}

func (f *fakeChain) SignatureStatus(context.Context, solana.Signature) (*rpc.SignatureStatusesResult, error) {
	return nil, nil
}

// fakePinner counts uploads so tests can assert no I/O happened on
// precondition failures.
type fakePinner struct {
	fileUploads int
	jsonUploads int
}

func (f *fakePinner) UploadFile(_ context.Context, name string, _ io.Reader) (string, error) {
	f.fileUploads++
	return fmt.Sprintf("https://gateway.example/ipfs/file-%d", f.fileUploads), nil
}

func (f *fakePinner) UploadJSON(_ context.Context, name string, _ interface{}) (string, error) {
	f.jsonUploads++
	return fmt.Sprintf("https://gateway.example/ipfs/json-%d", f.jsonUploads), nil
}

// fakeRepo is an in-memory ledger.
type fakeRepo struct {
	records        map[string]*models.PreparedTransaction
	bySignatureErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*models.PreparedTransaction)}
}

func (r *fakeRepo) CreateTransaction(_ context.Context, tx *models.PreparedTransaction) error {
	r.records[tx.ID] = tx
	return nil
}

func (r *fakeRepo) GetTransaction(_ context.Context, id string) (*models.PreparedTransaction, error) {
	if tx, ok := r.records[id]; ok {
		return tx, nil
	}
	return nil, storage.ErrNotFound
}

func (r *fakeRepo) GetTransactionBySignature(_ context.Context, sig string) (*models.PreparedTransaction, error) {
	if r.bySignatureErr != nil {
		return nil, r.bySignatureErr
	}
	for _, tx := range r.records {
		if tx.Signature == sig {
			return tx, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *fakeRepo) AttachSignature(_ context.Context, id, sig string) (*models.PreparedTransaction, error) {
	tx, ok := r.records[id]
	if !ok || tx.Status != models.TxPrepared {
		return nil, storage.ErrNotFound
	}
	tx.Signature = sig
	tx.Status = models.TxSubmitted
	return tx, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, status models.TxStatus) error {
	tx, ok := r.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	tx.Status = status
	return nil
}

func (r *fakeRepo) ListTransactions(context.Context, models.TxListFilters) ([]*models.PreparedTransaction, error) {
	var out []*models.PreparedTransaction
	for _, tx := range r.records {
		out = append(out, tx)
	}
	return out, nil
}

func (r *fakeRepo) GetPendingTransactions(context.Context) ([]*models.PreparedTransaction, error) {
	var out []*models.PreparedTransaction
	for _, tx := range r.records {
		if tx.Status == models.TxSubmitted {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *fakeRepo) ExpireStale(context.Context, time.Time) (int64, error) { return 0, nil }
func (r *fakeRepo) Ping(context.Context) error                           { return nil }
func (r *fakeRepo) Close() error                                         { return nil }

func newTestService(chain *fakeChain, pins *fakePinner, repo *fakeRepo) *Service {
	svc := NewService(chain, pins, repo, nil, 9)
	svc.newID = func() string { return "tx-1" }
	return svc
}

func seedProject(chain *fakeChain, labourCount, maxLabourers uint8, status models.ProjectStatus) solana.PublicKey {
	managerPDA, _ := program.UserAddress(testProgramID, managerWallet)
	projectPDA, _ := program.ProjectAddress(testProgramID, managerPDA, 0)
	chain.projects[projectPDA] = &models.KeyedProject{
		PublicKey: projectPDA,
		Project: models.Project{
			Manager:      managerPDA,
			Title:        "Warehouse fit-out",
			MaxLabourers: maxLabourers,
			LabourCount:  labourCount,
			Status:       status,
		},
	}
	return projectPDA
}

func TestVerifyWorkDayRejectsWrongDayBeforeUploading(t *testing.T) {
	chain := newFakeChain()
	pins := &fakePinner{}
	repo := newFakeRepo()
	svc := newTestService(chain, pins, repo)

	projectPDA := seedProject(chain, 1, 3, models.ProjectInProgress)
	labourPDA, _ := program.UserAddress(testProgramID, labourWallet)
	assignmentPDA, _ := program.AssignmentAddress(testProgramID, labourPDA, projectPDA)
	chain.assignments[assignmentPDA] = &models.KeyedAssignment{
		PublicKey:  assignmentPDA,
		Assignment: models.Assignment{Labour: labourPDA, Project: projectPDA, DaysWorked: 4, Active: true},
	}

	// Submitting the current day instead of the next one must fail.
	_, err := svc.VerifyWorkDay(context.Background(), VerifyWorkDayParams{
		Wallet:    labourWallet,
		Project:   projectPDA,
		DayNumber: 4,
		Report:    models.WorkReportMetadata{Description: "poured foundation"},
	})
	if !errors.Is(err, ErrInvalidDayNumber) {
		t.Fatalf("expected ErrInvalidDayNumber, got %v", err)
	}
	if pins.fileUploads != 0 || pins.jsonUploads != 0 {
		t.Error("nothing should be pinned when the day number is rejected")
	}
	if len(repo.records) != 0 {
		t.Error("no ledger record should exist for a rejected request")
	}
}

func TestVerifyWorkDayHappyPath(t *testing.T) {
	chain := newFakeChain()
	pins := &fakePinner{}
	repo := newFakeRepo()
	svc := newTestService(chain, pins, repo)

	projectPDA := seedProject(chain, 1, 3, models.ProjectInProgress)
	labourPDA, _ := program.UserAddress(testProgramID, labourWallet)
	assignmentPDA, _ := program.AssignmentAddress(testProgramID, labourPDA, projectPDA)
	chain.assignments[assignmentPDA] = &models.KeyedAssignment{
		PublicKey:  assignmentPDA,
		Assignment: models.Assignment{Labour: labourPDA, Project: projectPDA, DaysWorked: 4, Active: true},
	}

	result, err := svc.VerifyWorkDay(context.Background(), VerifyWorkDayParams{
		Wallet:    labourWallet,
		Project:   projectPDA,
		DayNumber: 5,
		Report:    models.WorkReportMetadata{Description: "poured foundation", HoursWorked: 8},
	})
	if err != nil {
		t.Fatalf("VerifyWorkDay failed: %v", err)
	}

	wantPDA, _ := program.WorkVerificationAddress(testProgramID, labourPDA, projectPDA, 5)
	if result.WorkVerificationPDA != wantPDA.String() {
		t.Errorf("verification PDA mismatch: %s", result.WorkVerificationPDA)
	}
	if !result.WorkVerification.LabourVerified || result.WorkVerification.ManagerVerified {
		t.Error("speculative record should be labour-verified only")
	}
	if result.SerializedTransaction == "" {
		t.Error("missing serialized transaction")
	}
	if pins.jsonUploads != 1 {
		t.Errorf("expected 1 metadata upload, got %d", pins.jsonUploads)
	}
	record, ok := repo.records["tx-1"]
	if !ok {
		t.Fatal("ledger record missing")
	}
	if record.Kind != "verify-work-day" || record.Status != models.TxPrepared {
		t.Errorf("unexpected ledger record: %+v", record)
	}
}

func TestVerifyWorkDayInactiveAssignment(t *testing.T) {
	chain := newFakeChain()
	svc := newTestService(chain, &fakePinner{}, newFakeRepo())

	projectPDA := seedProject(chain, 1, 3, models.ProjectInProgress)
	labourPDA, _ := program.UserAddress(testProgramID, labourWallet)
	assignmentPDA, _ := program.AssignmentAddress(testProgramID, labourPDA, projectPDA)
	chain.assignments[assignmentPDA] = &models.KeyedAssignment{
		PublicKey:  assignmentPDA,
		Assignment: models.Assignment{Labour: labourPDA, Project: projectPDA, DaysWorked: 2, Active: false},
	}

	_, err := svc.VerifyWorkDay(context.Background(), VerifyWorkDayParams{
		Wallet:    labourWallet,
		Project:   projectPDA,
		DayNumber: 3,
	})
	if !errors.Is(err, ErrAssignmentInactive) {
		t.Fatalf("expected ErrAssignmentInactive, got %v", err)
	}
}

func TestApplyToProjectRequiresOpenProject(t *testing.T) {
	chain := newFakeChain()
	repo := newFakeRepo()
	svc := newTestService(chain, &fakePinner{}, repo)

	projectPDA := seedProject(chain, 2, 2, models.ProjectInProgress)

	_, err := svc.ApplyToProject(context.Background(), ApplyToProjectParams{
		Wallet:      labourWallet,
		Project:     projectPDA,
		Description: "experienced mason",
	})
	if !errors.Is(err, ErrProjectNotOpen) {
		t.Fatalf("expected ErrProjectNotOpen, got %v", err)
	}
	if len(repo.records) != 0 {
		t.Error("no transaction should be constructed for a closed project")
	}
}

func TestApproveWorkDayPreconditions(t *testing.T) {
	chain := newFakeChain()
	repo := newFakeRepo()
	svc := newTestService(chain, &fakePinner{}, repo)

	statePDA, _ := program.SystemStateAddress(testProgramID)
	chain.state = &models.KeyedSystemState{
		PublicKey:   statePDA,
		SystemState: models.SystemState{Mint: testMint},
	}

	projectPDA := seedProject(chain, 1, 3, models.ProjectInProgress)
	labourPDA, _ := program.UserAddress(testProgramID, labourWallet)
	chain.users[labourPDA] = &models.KeyedUserAccount{
		PublicKey:   labourPDA,
		UserAccount: models.UserAccount{Authority: labourWallet, Role: models.RoleLabour},
	}
	verificationPDA, _ := program.WorkVerificationAddress(testProgramID, labourPDA, projectPDA, 5)
	chain.verifications[verificationPDA] = &models.KeyedWorkVerification{
		PublicKey: verificationPDA,
		WorkVerification: models.WorkVerification{
			Project:        projectPDA,
			Labour:         labourPDA,
			DayNumber:      5,
			LabourVerified: true,
		},
	}

	params := ApproveWorkDayParams{
		Wallet:        managerWallet,
		Project:       projectPDA,
		LabourAccount: labourPDA,
		DayNumber:     5,
	}

	// A wallet that does not manage the project is turned away.
	foreign := params
	foreign.Wallet = labourWallet
	if _, err := svc.ApproveWorkDay(context.Background(), foreign); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	result, err := svc.ApproveWorkDay(context.Background(), params)
	if err != nil {
		t.Fatalf("ApproveWorkDay failed: %v", err)
	}
	if !result.TokenAccountCreated {
		t.Error("labour without a token account should get one created")
	}
	if result.WorkVerificationPDA != verificationPDA.String() {
		t.Errorf("verification PDA mismatch: %s", result.WorkVerificationPDA)
	}

	// A day the manager already signed off cannot be approved twice.
	chain.verifications[verificationPDA].ManagerVerified = true
	if _, err := svc.ApproveWorkDay(context.Background(), params); !errors.Is(err, ErrAlreadyApproved) {
		t.Fatalf("expected ErrAlreadyApproved, got %v", err)
	}

	// A day the labour never verified cannot be approved at all.
	chain.verifications[verificationPDA].ManagerVerified = false
	chain.verifications[verificationPDA].LabourVerified = false
	if _, err := svc.ApproveWorkDay(context.Background(), params); !errors.Is(err, ErrNotLabourVerified) {
		t.Fatalf("expected ErrNotLabourVerified, got %v", err)
	}
}

func TestApproveApplicationRejectsFullProject(t *testing.T) {
	chain := newFakeChain()
	pins := &fakePinner{}
	repo := newFakeRepo()
	svc := newTestService(chain, pins, repo)

	projectPDA := seedProject(chain, 3, 3, models.ProjectOpen)
	labourPDA, _ := program.UserAddress(testProgramID, labourWallet)
	applicationPDA, _ := program.ApplicationAddress(testProgramID, labourPDA, projectPDA)

	_, err := svc.ApproveApplication(context.Background(), ApproveApplicationParams{
		Wallet:        managerWallet,
		Application:   applicationPDA,
		Project:       projectPDA,
		LabourAccount: labourPDA,
	})
	if !errors.Is(err, ErrProjectFull) {
		t.Fatalf("expected ErrProjectFull, got %v", err)
	}
	if len(repo.records) != 0 {
		t.Error("no transaction should be constructed for a full project")
	}
}

func TestApproveApplicationRejectsForeignManager(t *testing.T) {
	chain := newFakeChain()
	svc := newTestService(chain, &fakePinner{}, newFakeRepo())

	projectPDA := seedProject(chain, 0, 3, models.ProjectOpen)
	labourPDA, _ := program.UserAddress(testProgramID, labourWallet)
	applicationPDA, _ := program.ApplicationAddress(testProgramID, labourPDA, projectPDA)

	// The labour wallet is not the project's manager.
	_, err := svc.ApproveApplication(context.Background(), ApproveApplicationParams{
		Wallet:        labourWallet,
		Application:   applicationPDA,
		Project:       projectPDA,
		LabourAccount: labourPDA,
	})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestApproveApplicationLastSlotFlipsStatus(t *testing.T) {
	chain := newFakeChain()
	repo := newFakeRepo()
	svc := newTestService(chain, &fakePinner{}, repo)

	projectPDA := seedProject(chain, 1, 2, models.ProjectOpen)
	labourPDA, _ := program.UserAddress(testProgramID, labourWallet)
	applicationPDA, _ := program.ApplicationAddress(testProgramID, labourPDA, projectPDA)

	result, err := svc.ApproveApplication(context.Background(), ApproveApplicationParams{
		Wallet:        managerWallet,
		Application:   applicationPDA,
		Project:       projectPDA,
		LabourAccount: labourPDA,
	})
	if err != nil {
		t.Fatalf("ApproveApplication failed: %v", err)
	}
	if result.UpdatedProject.LabourCount != 2 {
		t.Errorf("expected labour count 2, got %d", result.UpdatedProject.LabourCount)
	}
	if result.UpdatedProject.Status != models.ProjectInProgress {
		t.Errorf("filling the last slot should flip status to inProgress, got %v", result.UpdatedProject.Status)
	}
	if !result.Assignment.Active {
		t.Error("speculative assignment should be active")
	}
}

func TestCreateProjectRequiresTokenAccountBeforeUploading(t *testing.T) {
	chain := newFakeChain()
	pins := &fakePinner{}
	repo := newFakeRepo()
	svc := newTestService(chain, pins, repo)

	statePDA, _ := program.SystemStateAddress(testProgramID)
	chain.state = &models.KeyedSystemState{
		PublicKey:   statePDA,
		SystemState: models.SystemState{Mint: testMint, ProjectCount: 3},
	}

	_, err := svc.CreateProject(context.Background(), CreateProjectParams{
		Wallet:       managerWallet,
		Title:        "Warehouse fit-out",
		DailyRate:    150,
		DurationDays: 30,
		MaxLabourers: 5,
	})
	if !errors.Is(err, ErrNoTokenAccount) {
		t.Fatalf("expected ErrNoTokenAccount, got %v", err)
	}
	if pins.fileUploads != 0 || pins.jsonUploads != 0 {
		t.Error("nothing should be pinned when the manager has no token account")
	}
}

func TestCreateProjectDerivesNextAddressFromCounter(t *testing.T) {
	chain := newFakeChain()
	pins := &fakePinner{}
	repo := newFakeRepo()
	svc := newTestService(chain, pins, repo)

	statePDA, _ := program.SystemStateAddress(testProgramID)
	chain.state = &models.KeyedSystemState{
		PublicKey:   statePDA,
		SystemState: models.SystemState{Mint: testMint, ProjectCount: 3},
	}
	chain.tokenAccounts = []solana.PublicKey{solana.SPLAssociatedTokenAccountProgramID}

	result, err := svc.CreateProject(context.Background(), CreateProjectParams{
		Wallet:       managerWallet,
		Title:        "Warehouse fit-out",
		DailyRate:    150,
		DurationDays: 30,
		MaxLabourers: 5,
	})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	managerPDA, _ := program.UserAddress(testProgramID, managerWallet)
	wantPDA, _ := program.ProjectAddress(testProgramID, managerPDA, 3)
	if result.ProjectPDA != wantPDA.String() {
		t.Errorf("project PDA mismatch: got %s, want %s", result.ProjectPDA, wantPDA)
	}
	if result.Project.Index != 3 {
		t.Errorf("speculative index should match the counter, got %d", result.Project.Index)
	}
	if result.Project.DailyRate != 150_000_000_000 {
		t.Errorf("daily rate should be converted to base units, got %d", result.Project.DailyRate)
	}
	if repo.records["tx-1"].Kind != "create-project" {
		t.Error("ledger record should carry the operation kind")
	}
}

func TestCreateProjectValidation(t *testing.T) {
	svc := newTestService(newFakeChain(), &fakePinner{}, newFakeRepo())

	cases := []struct {
		params CreateProjectParams
		want   error
	}{
		{CreateProjectParams{Wallet: managerWallet, DailyRate: 0, DurationDays: 10, MaxLabourers: 5}, ErrInvalidDailyRate},
		{CreateProjectParams{Wallet: managerWallet, DailyRate: 10, DurationDays: 0, MaxLabourers: 5}, ErrInvalidDuration},
		{CreateProjectParams{Wallet: managerWallet, DailyRate: 10, DurationDays: 10, MaxLabourers: 0}, ErrInvalidLabourers},
		{CreateProjectParams{Wallet: managerWallet, DailyRate: 10, DurationDays: 10, MaxLabourers: 256}, ErrInvalidLabourers},
	}
	for _, tc := range cases {
		if _, err := svc.CreateProject(context.Background(), tc.params); !errors.Is(err, tc.want) {
			t.Errorf("expected %v, got %v", tc.want, err)
		}
	}
}

func TestRateUserValidation(t *testing.T) {
	svc := newTestService(newFakeChain(), &fakePinner{}, newFakeRepo())

	_, err := svc.RateUser(context.Background(), RateUserParams{
		Rater:   managerWallet,
		Subject: managerWallet,
		Rating:  4,
	})
	if !errors.Is(err, ErrSelfRating) {
		t.Errorf("expected ErrSelfRating, got %v", err)
	}

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.RateUser(context.Background(), RateUserParams{
			Rater:   managerWallet,
			Subject: labourWallet,
			Rating:  rating,
		})
		if !errors.Is(err, ErrInvalidRating) {
			t.Errorf("rating %d: expected ErrInvalidRating, got %v", rating, err)
		}
	}
}

func TestMintTokenCreatesMissingTokenAccount(t *testing.T) {
	chain := newFakeChain()
	repo := newFakeRepo()
	svc := newTestService(chain, &fakePinner{}, repo)

	statePDA, _ := program.SystemStateAddress(testProgramID)
	chain.state = &models.KeyedSystemState{
		PublicKey:   statePDA,
		SystemState: models.SystemState{Mint: testMint},
	}

	result, err := svc.MintToken(context.Background(), MintTokenParams{Wallet: labourWallet, Amount: 42})
	if err != nil {
		t.Fatalf("MintToken failed: %v", err)
	}
	if !result.TokenAccountCreated {
		t.Error("a missing token account should be created in the same transaction")
	}

	// Second mint with the account present skips creation.
	ata, _, _ := solana.FindAssociatedTokenAddress(labourWallet, testMint)
	chain.existing[ata] = true
	svc.newID = func() string { return "tx-2" }

	result, err = svc.MintToken(context.Background(), MintTokenParams{Wallet: labourWallet, Amount: 1})
	if err != nil {
		t.Fatalf("MintToken failed: %v", err)
	}
	if result.TokenAccountCreated {
		t.Error("existing token account should not be recreated")
	}
}

func TestBalanceWithoutTokenAccount(t *testing.T) {
	chain := newFakeChain()
	svc := newTestService(chain, &fakePinner{}, newFakeRepo())

	statePDA, _ := program.SystemStateAddress(testProgramID)
	chain.state = &models.KeyedSystemState{
		PublicKey:   statePDA,
		SystemState: models.SystemState{Mint: testMint},
	}

	result, err := svc.Balance(context.Background(), labourWallet)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if result.Balance != 0 || result.RawBalance != "0" || result.AccountExists {
		t.Errorf("missing token account should report a zero balance: %+v", result)
	}

	chain.balance = &rpc.UiTokenAmount{Amount: "1500000000"}
	result, err = svc.Balance(context.Background(), labourWallet)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if result.Balance != 1.5 || !result.AccountExists {
		t.Errorf("unexpected balance: %+v", result)
	}
}

func TestTransactionStatusSurfacesLedgerFailure(t *testing.T) {
	const sig = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"

	repo := newFakeRepo()
	repo.bySignatureErr = errors.New("connection reset by peer")
	svc := newTestService(newFakeChain(), &fakePinner{}, repo)

	if _, err := svc.TransactionStatus(context.Background(), sig); err == nil {
		t.Fatal("expected a ledger failure to surface, got nil")
	}

	// A signature with no ledger record is fine; only real failures surface.
	repo.bySignatureErr = nil
	status, err := svc.TransactionStatus(context.Background(), sig)
	if err != nil {
		t.Fatalf("TransactionStatus failed: %v", err)
	}
	if status.Known || status.Transaction != nil {
		t.Errorf("expected an unknown signature with no record: %+v", status)
	}
}
