package program

import (
	"bytes"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/openlabour/labour-engine/internal/models"
)

func encodeAccount(t *testing.T, name string, v interface{}) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(accountDiscriminator(name))
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		t.Fatalf("failed to encode %s fixture: %v", name, err)
	}
	return buf.Bytes()
}

func TestDecodeApplicationRoundTrip(t *testing.T) {
	labour, _ := UserAddress(testProgramID, testWallet)
	project, _ := ProjectAddress(testProgramID, labour, 1)

	in := models.Application{
		Labour:      labour,
		Project:     project,
		Description: "ten years of scaffolding work",
		Status:      models.ApplicationPending,
		Timestamp:   1735689600,
	}
	data := encodeAccount(t, accountApplication, in)

	out, err := DecodeApplication(data)
	if err != nil {
		t.Fatalf("DecodeApplication failed: %v", err)
	}
	if !out.Labour.Equals(in.Labour) || !out.Project.Equals(in.Project) {
		t.Error("decoded keys do not match fixture")
	}
	if out.Description != in.Description {
		t.Errorf("description mismatch: %q", out.Description)
	}
	if out.Status != models.ApplicationPending {
		t.Errorf("status mismatch: %v", out.Status)
	}
	if out.Timestamp != in.Timestamp {
		t.Errorf("timestamp mismatch: %d", out.Timestamp)
	}

	// The memcmp offsets must point at the serialized keys.
	if !bytes.Equal(data[OffsetApplicationLabour:OffsetApplicationLabour+32], labour.Bytes()) {
		t.Error("OffsetApplicationLabour does not point at the labour key")
	}
	if !bytes.Equal(data[OffsetApplicationProject:OffsetApplicationProject+32], project.Bytes()) {
		t.Error("OffsetApplicationProject does not point at the project key")
	}
}

func TestDecodeWorkVerificationKeyOrder(t *testing.T) {
	labour, _ := UserAddress(testProgramID, testWallet)
	project, _ := ProjectAddress(testProgramID, labour, 1)

	in := models.WorkVerification{
		Project:         project,
		Labour:          labour,
		DayNumber:       7,
		LabourVerified:  true,
		MetadataURI:     "https://gateway.example/ipfs/bafy-report",
		Timestamp:       1735689600,
	}
	data := encodeAccount(t, accountWorkVerification, in)

	out, err := DecodeWorkVerification(data)
	if err != nil {
		t.Fatalf("DecodeWorkVerification failed: %v", err)
	}
	if out.DayNumber != 7 {
		t.Errorf("day number mismatch: %d", out.DayNumber)
	}
	if !out.LabourVerified || out.ManagerVerified {
		t.Error("verification flags mismatch")
	}

	// WorkVerification stores (project, labour), the reverse of Application.
	if !bytes.Equal(data[OffsetVerificationProject:OffsetVerificationProject+32], project.Bytes()) {
		t.Error("OffsetVerificationProject does not point at the project key")
	}
	if !bytes.Equal(data[OffsetVerificationLabour:OffsetVerificationLabour+32], labour.Bytes()) {
		t.Error("OffsetVerificationLabour does not point at the labour key")
	}
}

func TestDecodeProjectRoundTrip(t *testing.T) {
	manager, _ := UserAddress(testProgramID, testWallet)
	escrow, _ := EscrowAddress(testProgramID, manager)

	in := models.Project{
		Manager:       manager,
		Title:         "Warehouse fit-out",
		MetadataURI:   "https://gateway.example/ipfs/bafy-project",
		DailyRate:     150_000_000_000,
		DurationDays:  30,
		MaxLabourers:  5,
		LabourCount:   2,
		Status:        models.ProjectInProgress,
		EscrowAccount: escrow,
		Timestamp:     1735689600,
		Index:         4,
	}
	data := encodeAccount(t, accountProject, in)

	out, err := DecodeProject(data)
	if err != nil {
		t.Fatalf("DecodeProject failed: %v", err)
	}
	if out.DailyRate != in.DailyRate {
		t.Errorf("daily rate mismatch: %d", out.DailyRate)
	}
	if out.Status != models.ProjectInProgress {
		t.Errorf("status mismatch: %v", out.Status)
	}
	if out.Index != 4 {
		t.Errorf("index mismatch: %d", out.Index)
	}
	if !bytes.Equal(data[OffsetProjectManager:OffsetProjectManager+32], manager.Bytes()) {
		t.Error("OffsetProjectManager does not point at the manager key")
	}
}

func TestDecodeRejectsWrongDiscriminator(t *testing.T) {
	in := models.Application{Status: models.ApplicationPending}
	data := encodeAccount(t, accountApplication, in)

	if _, err := DecodeProject(data); err == nil {
		t.Error("expected discriminator mismatch decoding an application as a project")
	}
	if _, err := DecodeApplication(data[:4]); err == nil {
		t.Error("expected error for truncated account data")
	}
}

func TestDecodeSystemState(t *testing.T) {
	admin := solana.SystemProgramID
	in := models.SystemState{
		Authority:    testWallet,
		Mint:         testProgramID,
		LabourCount:  12,
		ManagerCount: 3,
		ProjectCount: 9,
		Admins:       []solana.PublicKey{admin},
	}
	data := encodeAccount(t, accountSystemState, in)

	out, err := DecodeSystemState(data)
	if err != nil {
		t.Fatalf("DecodeSystemState failed: %v", err)
	}
	if out.ProjectCount != 9 {
		t.Errorf("project count mismatch: %d", out.ProjectCount)
	}
	if len(out.Admins) != 1 || !out.Admins[0].Equals(admin) {
		t.Errorf("admins mismatch: %v", out.Admins)
	}
}
