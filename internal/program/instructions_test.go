package program

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/openlabour/labour-engine/internal/models"
)

func instructionData(t *testing.T, ix solana.Instruction) []byte {
	t.Helper()
	data, err := ix.Data()
	if err != nil {
		t.Fatalf("failed to read instruction data: %v", err)
	}
	return data
}

func TestRegisterUserEncoding(t *testing.T) {
	user, _ := UserAddress(testProgramID, testWallet)
	state, _ := SystemStateAddress(testProgramID)

	ix, err := RegisterUser(testProgramID, RegisterUserAccounts{
		SystemState: state,
		UserAccount: user,
		Authority:   testWallet,
	}, "Asha", "https://gateway.example/ipfs/bafy-user", models.RoleManager)
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	data := instructionData(t, ix)
	want := sha256.Sum256([]byte("global:register_user"))
	if !bytes.Equal(data[:8], want[:8]) {
		t.Error("discriminator mismatch for register_user")
	}

	// Borsh layout after the discriminator: name, metadataUri, role tag.
	nameLen := binary.LittleEndian.Uint32(data[8:12])
	if nameLen != 4 || string(data[12:16]) != "Asha" {
		t.Errorf("name encoding mismatch: len=%d", nameLen)
	}
	if role := data[len(data)-1]; role != uint8(models.RoleManager) {
		t.Errorf("role tag mismatch: %d", role)
	}

	accounts := ix.Accounts()
	if len(accounts) != 4 {
		t.Fatalf("expected 4 accounts, got %d", len(accounts))
	}
	if !accounts[2].PublicKey.Equals(testWallet) || !accounts[2].IsSigner {
		t.Error("authority must be the third account and a signer")
	}
	if !accounts[3].PublicKey.Equals(solana.SystemProgramID) {
		t.Error("system program must be last")
	}
}

func TestUpdateUserOptionEncoding(t *testing.T) {
	user, _ := UserAddress(testProgramID, testWallet)
	accts := UpdateUserAccounts{UserAccount: user, Authority: testWallet}

	// None
	ix, err := UpdateUser(testProgramID, accts, "Asha", "uri", nil)
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	data := instructionData(t, ix)
	if data[len(data)-1] != 0 {
		t.Error("nil active should encode as Option tag 0")
	}

	// Some(false)
	active := false
	ix, err = UpdateUser(testProgramID, accts, "Asha", "uri", &active)
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	data = instructionData(t, ix)
	if data[len(data)-2] != 1 || data[len(data)-1] != 0 {
		t.Error("Some(false) should encode as tag 1, value 0")
	}

	// Some(true)
	active = true
	ix, err = UpdateUser(testProgramID, accts, "Asha", "uri", &active)
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	data = instructionData(t, ix)
	if data[len(data)-2] != 1 || data[len(data)-1] != 1 {
		t.Error("Some(true) should encode as tag 1, value 1")
	}
}

func TestCreateProjectAccountOrder(t *testing.T) {
	manager, _ := UserAddress(testProgramID, testWallet)
	state, _ := SystemStateAddress(testProgramID)
	project, _ := ProjectAddress(testProgramID, manager, 0)
	escrow, _ := EscrowAddress(testProgramID, project)
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	tokenAccount := solana.SPLAssociatedTokenAccountProgramID

	ix, err := CreateProject(testProgramID, CreateProjectAccounts{
		SystemState:         state,
		ManagerAccount:      manager,
		Project:             project,
		EscrowAccount:       escrow,
		ManagerTokenAccount: tokenAccount,
		Mint:                mint,
		Authority:           testWallet,
	}, "Warehouse fit-out", "uri", 1_000_000_000, 30, 5)
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	accounts := ix.Accounts()
	if len(accounts) != 10 {
		t.Fatalf("expected 10 accounts, got %d", len(accounts))
	}
	order := []solana.PublicKey{
		state, manager, project, escrow, tokenAccount, mint, testWallet,
		solana.TokenProgramID, solana.SystemProgramID, solana.SysVarRentPubkey,
	}
	for i, want := range order {
		if !accounts[i].PublicKey.Equals(want) {
			t.Errorf("account %d mismatch: got %s, want %s", i, accounts[i].PublicKey, want)
		}
	}
	if accounts[5].IsWritable {
		t.Error("mint must be read-only")
	}
	if !accounts[6].IsSigner {
		t.Error("authority must sign")
	}
}

func TestVerifyWorkDayArgsEncoding(t *testing.T) {
	labour, _ := UserAddress(testProgramID, testWallet)
	project, _ := ProjectAddress(testProgramID, labour, 0)
	assignment, _ := AssignmentAddress(testProgramID, labour, project)
	verification, _ := WorkVerificationAddress(testProgramID, labour, project, 300)

	ix, err := VerifyWorkDay(testProgramID, VerifyWorkDayAccounts{
		LabourAccount:    labour,
		Project:          project,
		Assignment:       assignment,
		WorkVerification: verification,
		Authority:        testWallet,
	}, 300, "uri")
	if err != nil {
		t.Fatalf("VerifyWorkDay failed: %v", err)
	}

	data := instructionData(t, ix)
	if day := binary.LittleEndian.Uint16(data[8:10]); day != 300 {
		t.Errorf("day number encoding mismatch: %d", day)
	}
	if uriLen := binary.LittleEndian.Uint32(data[10:14]); uriLen != 3 {
		t.Errorf("metadata uri length mismatch: %d", uriLen)
	}
}

func TestMintTokenEncoding(t *testing.T) {
	state, _ := SystemStateAddress(testProgramID)
	mintAuthority, _ := MintAuthorityAddress(testProgramID)
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	ix, err := MintToken(testProgramID, MintTokenAccounts{
		SystemState:   state,
		Mint:          mint,
		MintAuthority: mintAuthority,
		To:            testWallet,
	}, 42_000_000_000)
	if err != nil {
		t.Fatalf("MintToken failed: %v", err)
	}

	data := instructionData(t, ix)
	if amount := binary.LittleEndian.Uint64(data[8:16]); amount != 42_000_000_000 {
		t.Errorf("amount encoding mismatch: %d", amount)
	}
	accounts := ix.Accounts()
	if len(accounts) != 5 {
		t.Fatalf("expected 5 accounts, got %d", len(accounts))
	}
	if accounts[2].IsWritable {
		t.Error("mint authority must be read-only")
	}
}

func TestUnsignedTransactionRoundTrip(t *testing.T) {
	state, _ := SystemStateAddress(testProgramID)
	user, _ := UserAddress(testProgramID, testWallet)

	ix, err := RegisterUser(testProgramID, RegisterUserAccounts{
		SystemState: state,
		UserAccount: user,
		Authority:   testWallet,
	}, "Asha", "uri", models.RoleLabour)
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	blockhash := solana.HashFromBytes(bytes.Repeat([]byte{7}, 32))
	tx, err := NewUnsignedTransaction([]solana.Instruction{ix}, testWallet, blockhash)
	if err != nil {
		t.Fatalf("NewUnsignedTransaction failed: %v", err)
	}
	if !tx.Message.AccountKeys[0].Equals(testWallet) {
		t.Error("fee payer must be the first account key")
	}
	if tx.Message.RecentBlockhash != blockhash {
		t.Error("blockhash not carried into message")
	}

	encoded, err := EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("EncodeTransaction failed: %v", err)
	}
	raw, err := base58.Decode(encoded)
	if err != nil {
		t.Fatalf("encoded transaction is not valid base58: %v", err)
	}
	decoded, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		t.Fatalf("failed to decode transaction: %v", err)
	}
	if len(decoded.Message.Instructions) != 1 {
		t.Fatalf("expected 1 instruction after round trip, got %d", len(decoded.Message.Instructions))
	}
}
