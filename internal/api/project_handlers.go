package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/openlabour/labour-engine/internal/market"
	"github.com/openlabour/labour-engine/internal/models"
)

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidForm)
		return
	}

	wallet, err := formWallet(r, "walletAddress")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	title := r.FormValue("title")
	if title == "" {
		respondError(w, http.StatusBadRequest, errors.New("Title is required"))
		return
	}

	dailyRate, err := strconv.ParseFloat(r.FormValue("dailyRate"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, market.ErrInvalidDailyRate)
		return
	}
	durationDays, err := strconv.Atoi(r.FormValue("durationDays"))
	if err != nil {
		respondError(w, http.StatusBadRequest, market.ErrInvalidDuration)
		return
	}
	maxLabourers, err := strconv.Atoi(r.FormValue("maxLabourers"))
	if err != nil {
		respondError(w, http.StatusBadRequest, market.ErrInvalidLabourers)
		return
	}

	var metadata models.ProjectMetadata
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			respondError(w, http.StatusBadRequest, errors.New("invalid metadata JSON"))
			return
		}
	}

	projectImage, closeImage, err := formUpload(r, "projectImage")
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidForm)
		return
	}
	defer closeImage()

	documents, closeDocs, err := formUploads(r, "documents")
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidForm)
		return
	}
	defer closeDocs()

	result, err := s.svc.CreateProject(r.Context(), market.CreateProjectParams{
		Wallet:        wallet,
		Title:         title,
		DailyRate:     dailyRate,
		DurationDays:  durationDays,
		MaxLabourers:  maxLabourers,
		Metadata:      metadata,
		ProjectImage:  projectImage,
		Documents:     documents,
		DocumentsDesc: r.FormValue("documentsDescription"),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleApplyToProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		ProjectPDA    string `json:"projectPda"`
		Description   string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	wallet, err := solana.PublicKeyFromBase58(req.WalletAddress)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidWallet)
		return
	}
	project, err := solana.PublicKeyFromBase58(req.ProjectPDA)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid project address"))
		return
	}

	result, err := s.svc.ApplyToProject(r.Context(), market.ApplyToProjectParams{
		Wallet:      wallet,
		Project:     project,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleApproveApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress    string `json:"walletAddress"`
		ApplicationPDA   string `json:"applicationPda"`
		ProjectPDA       string `json:"projectPda"`
		LabourAccountPDA string `json:"labourAccountPda"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	wallet, err := solana.PublicKeyFromBase58(req.WalletAddress)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidWallet)
		return
	}
	application, err := solana.PublicKeyFromBase58(req.ApplicationPDA)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid application address"))
		return
	}
	project, err := solana.PublicKeyFromBase58(req.ProjectPDA)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid project address"))
		return
	}
	labourAccount, err := solana.PublicKeyFromBase58(req.LabourAccountPDA)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid labour account address"))
		return
	}

	result, err := s.svc.ApproveApplication(r.Context(), market.ApproveApplicationParams{
		Wallet:        wallet,
		Application:   application,
		Project:       project,
		LabourAccount: labourAccount,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleVerifyWorkDay(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidForm)
		return
	}

	wallet, err := formWallet(r, "walletAddress")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	project, err := solana.PublicKeyFromBase58(r.FormValue("projectPda"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid project address"))
		return
	}
	dayNumber, err := strconv.Atoi(r.FormValue("dayNumber"))
	if err != nil {
		respondError(w, http.StatusBadRequest, market.ErrInvalidDayNumber)
		return
	}

	var report models.WorkReportMetadata
	if raw := r.FormValue("report"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &report); err != nil {
			respondError(w, http.StatusBadRequest, errors.New("invalid report JSON"))
			return
		}
	}

	workImages, closeImages, err := formUploads(r, "workImages")
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidForm)
		return
	}
	defer closeImages()

	supportingDoc, closeDoc, err := formUpload(r, "supportingDocument")
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidForm)
		return
	}
	defer closeDoc()

	result, err := s.svc.VerifyWorkDay(r.Context(), market.VerifyWorkDayParams{
		Wallet:             wallet,
		Project:            project,
		DayNumber:          dayNumber,
		Report:             report,
		WorkImages:         workImages,
		SupportingDocument: supportingDoc,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleApproveWorkDay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress    string `json:"walletAddress"`
		ProjectPDA       string `json:"projectPda"`
		LabourAccountPDA string `json:"labourAccountPda"`
		DayNumber        int    `json:"dayNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	wallet, err := solana.PublicKeyFromBase58(req.WalletAddress)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidWallet)
		return
	}
	project, err := solana.PublicKeyFromBase58(req.ProjectPDA)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid project address"))
		return
	}
	labourAccount, err := solana.PublicKeyFromBase58(req.LabourAccountPDA)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid labour account address"))
		return
	}

	result, err := s.svc.ApproveWorkDay(r.Context(), market.ApproveWorkDayParams{
		Wallet:        wallet,
		Project:       project,
		LabourAccount: labourAccount,
		DayNumber:     req.DayNumber,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string  `json:"walletAddress"`
		Amount        float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	wallet, err := solana.PublicKeyFromBase58(req.WalletAddress)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidWallet)
		return
	}

	result, err := s.svc.MintToken(r.Context(), market.MintTokenParams{
		Wallet: wallet,
		Amount: req.Amount,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Read handlers

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	var manager *solana.PublicKey
	if raw := r.URL.Query().Get("manager"); raw != "" {
		key, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, errors.New("Invalid manager address"))
			return
		}
		manager = &key
	}

	projects, err := s.svc.Projects(r.Context(), manager)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"total":    len(projects),
	})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	address, err := urlParamKey(r, "pda")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid project address"))
		return
	}

	project, err := s.svc.Project(r.Context(), address)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"project": project})
}

func (s *Server) handleProjectApplications(w http.ResponseWriter, r *http.Request) {
	address, err := urlParamKey(r, "pda")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid project address"))
		return
	}

	applications, err := s.svc.ApplicationsByProject(r.Context(), address)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"applications": applications,
		"total":        len(applications),
	})
}

func (s *Server) handleProjectAssignments(w http.ResponseWriter, r *http.Request) {
	address, err := urlParamKey(r, "pda")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid project address"))
		return
	}

	assignments, err := s.svc.AssignmentsByProject(r.Context(), address)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": assignments,
		"total":       len(assignments),
	})
}

func (s *Server) handleProjectVerifications(w http.ResponseWriter, r *http.Request) {
	address, err := urlParamKey(r, "pda")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid project address"))
		return
	}

	verifications, err := s.svc.VerificationsByProject(r.Context(), address)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"workVerifications": verifications,
		"total":             len(verifications),
	})
}

func (s *Server) handleLabourApplications(w http.ResponseWriter, r *http.Request) {
	address, err := urlParamKey(r, "pda")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid labour account address"))
		return
	}

	applications, err := s.svc.ApplicationsByLabour(r.Context(), address)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"applications": applications,
		"total":        len(applications),
	})
}

func (s *Server) handleLabourAssignments(w http.ResponseWriter, r *http.Request) {
	address, err := urlParamKey(r, "pda")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid labour account address"))
		return
	}

	assignments, err := s.svc.AssignmentsByLabour(r.Context(), address)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": assignments,
		"total":       len(assignments),
	})
}

func (s *Server) handleLabourVerifications(w http.ResponseWriter, r *http.Request) {
	address, err := urlParamKey(r, "pda")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid labour account address"))
		return
	}

	verifications, err := s.svc.VerificationsByLabour(r.Context(), address)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"workVerifications": verifications,
		"total":             len(verifications),
	})
}
