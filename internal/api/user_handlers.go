package api

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/openlabour/labour-engine/internal/market"
	"github.com/openlabour/labour-engine/internal/models"
)

const maxUploadMemory = 32 << 20 // 32 MiB

var (
	errInvalidForm  = errors.New("invalid multipart form")
	errNameRequired = errors.New("Name is required")
)

// openUploads opens a set of multipart files. The returned cleanup closes
// them all and must be called after the service has consumed the readers.
func openUploads(headers []*multipart.FileHeader) ([]market.Upload, func(), error) {
	uploads := make([]market.Upload, 0, len(headers))
	closers := make([]multipart.File, 0, len(headers))
	cleanup := func() {
		for _, f := range closers {
			f.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, f)
		uploads = append(uploads, market.Upload{Name: fh.Filename, Content: f})
	}
	return uploads, cleanup, nil
}

// formUpload returns the first file uploaded under a field, or nil.
func formUpload(r *http.Request, field string) (*market.Upload, func(), error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, func() {}, nil
	}
	uploads, cleanup, err := openUploads(r.MultipartForm.File[field][:1])
	if err != nil {
		return nil, func() {}, err
	}
	return &uploads[0], cleanup, nil
}

// formUploads returns every file uploaded under a field.
func formUploads(r *http.Request, field string) ([]market.Upload, func(), error) {
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}
	return openUploads(r.MultipartForm.File[field])
}

func formWallet(r *http.Request, field string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(r.FormValue(field))
	if err != nil {
		return solana.PublicKey{}, errInvalidWallet
	}
	return key, nil
}

func (s *Server) handleRegisterUser(role models.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidForm)
			return
		}

		wallet, err := formWallet(r, "walletAddress")
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		name := r.FormValue("name")
		if name == "" {
			respondError(w, http.StatusBadRequest, errNameRequired)
			return
		}

		var metadata models.UserMetadata
		if raw := r.FormValue("metadata"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
				respondError(w, http.StatusBadRequest, errors.New("invalid metadata JSON"))
				return
			}
		}

		profileImage, closeImage, err := formUpload(r, "profileImage")
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

		result, err := s.svc.RegisterUser(r.Context(), market.RegisterUserParams{
			Wallet:       wallet,
			Name:         name,
			Role:         role,
			Metadata:     metadata,
			ProfileImage: profileImage,
			Documents:    documents,
		})
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidForm)
		return
	}

	wallet, err := formWallet(r, "walletAddress")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	name := r.FormValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, errNameRequired)
		return
	}

	var active *bool
	if raw := r.FormValue("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, errors.New("active must be true or false"))
			return
		}
		active = &parsed
	}

	var metadata models.UserMetadata
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			respondError(w, http.StatusBadRequest, errors.New("invalid metadata JSON"))
			return
		}
	}

	profileImage, closeImage, err := formUpload(r, "profileImage")
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

	result, err := s.svc.UpdateUser(r.Context(), market.UpdateUserParams{
		Wallet:       wallet,
		Name:         name,
		Active:       active,
		Metadata:     metadata,
		ProfileImage: profileImage,
		Documents:    documents,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RaterWallet   string `json:"raterWallet"`
		SubjectWallet string `json:"subjectWallet"`
		Rating        int    `json:"rating"`
		Context       string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	rater, err := solana.PublicKeyFromBase58(req.RaterWallet)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidWallet)
		return
	}
	subject, err := solana.PublicKeyFromBase58(req.SubjectWallet)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidWallet)
		return
	}

	result, err := s.svc.RateUser(r.Context(), market.RateUserParams{
		Rater:   rater,
		Subject: subject,
		Rating:  req.Rating,
		Context: req.Context,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSystemState(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.SystemState(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"systemState": state})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	wallet, err := urlParamKey(r, "wallet")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	user, err := s.svc.UserByWallet(r.Context(), wallet)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (s *Server) handleGetUserAccount(w http.ResponseWriter, r *http.Request) {
	address, err := urlParamKey(r, "pda")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	user, err := s.svc.UserByAddress(r.Context(), address)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (s *Server) handleGetUserRole(w http.ResponseWriter, r *http.Request) {
	wallet, err := urlParamKey(r, "wallet")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	role, err := s.svc.UserRole(r.Context(), wallet)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"role": role})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	wallet, err := urlParamKey(r, "wallet")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	balance, err := s.svc.Balance(r.Context(), wallet)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, balance)
}
