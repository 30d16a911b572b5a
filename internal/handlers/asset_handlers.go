package handlers

import (
	"net/http"

	"bipv-docs/internal/database"
	"bipv-docs/internal/engine/actors"
	"bipv-docs/internal/middleware"
	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"
)

// AssetRequest is the body of create and update requests
type AssetRequest struct {
	DocumentNo   string `json:"documentNo" validate:"required,max=64"`
	DocumentName string `json:"documentName" validate:"max=256"`
	DocumentType string `json:"documentType" validate:"max=64"`
	DocumentSize string `json:"documentSize" validate:"required"`
	DocumentLink string `json:"documentLink" validate:"required,url"`
}

func (req *AssetRequest) asset() models.Asset {
	return models.Asset{
		DocumentNo:   req.DocumentNo,
		DocumentName: req.DocumentName,
		DocumentType: req.DocumentType,
		DocumentSize: req.DocumentSize,
		DocumentLink: req.DocumentLink,
	}
}

// TransferAssetRequest moves a document to another user
type TransferAssetRequest struct {
	DocumentNo string `json:"documentNo" validate:"required"`
	NewOwner   string `json:"newOwner" validate:"required,max=100"`
}

// ledgerScope resolves the namespace of a ledger request and checks that the
// caller's organization is on the channel.
func (s *Server) ledgerScope(r *http.Request) (string, *middleware.Claims, error) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		return "", nil, utils.NewUnauthorizedError("missing token")
	}

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		return "", nil, utils.NewAppError(utils.ErrInvalidInput, "channel query parameter is required", nil)
	}
	if err := s.checkScopeName("channel", channel); err != nil {
		return "", nil, err
	}

	org, known := s.Organizations[claims.Organization]
	if !known || !org.HasChannel(channel) {
		return "", nil, utils.NewForbiddenChannelError(claims.Organization, channel)
	}

	chaincode := r.URL.Query().Get("chaincode")
	if chaincode == "" {
		chaincode = "basic-" + channel
	} else if err := s.checkScopeName("chaincode", chaincode); err != nil {
		return "", nil, err
	}
	return database.Namespace(channel, chaincode), claims, nil
}

// checkScopeName keeps channel and chaincode names printable so namespaces and
// storage keys stay unambiguous.
func (s *Server) checkScopeName(name, value string) error {
	if err := s.validate.Var(value, "max=64,printascii,excludesall=/"); err != nil {
		return utils.NewAppError(utils.ErrInvalidInput, name+" must be at most 64 printable characters without '/'", err)
	}
	return nil
}

func requireDocumentNo(r *http.Request) (string, error) {
	documentNo := r.URL.Query().Get("documentNo")
	if documentNo == "" {
		return "", utils.NewAppError(utils.ErrInvalidInput, "documentNo query parameter is required", nil)
	}
	return documentNo, nil
}

// HandleInitLedger seeds the ledger with the sample documents
func (s *Server) HandleInitLedger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		ns, claims, err := s.ledgerScope(r)
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := s.Engine.AskLedger(ns, &actors.InitLedgerMsg{Caller: claims.Username})
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "ledger initialized", result)
	}
}

// HandleAssets lists all documents (GET) or creates one (POST)
func (s *Server) HandleAssets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, claims, err := s.ledgerScope(r)
		if err != nil {
			writeError(w, err)
			return
		}

		switch r.Method {
		case http.MethodGet:
			result, err := s.Engine.AskLedger(ns, &actors.GetAllAssetsMsg{})
			if err != nil {
				writeError(w, err)
				return
			}
			writeSuccess(w, http.StatusOK, "assets retrieved", result)

		case http.MethodPost:
			var req AssetRequest
			if err := s.decodeRequest(r, &req); err != nil {
				writeError(w, err)
				return
			}

			result, err := s.Engine.AskLedger(ns, &actors.CreateAssetMsg{
				Caller: claims.Username,
				Asset:  req.asset(),
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeSuccess(w, http.StatusCreated, "asset created", result)

		default:
			methodNotAllowed(w)
		}
	}
}

// HandleAsset reads (GET), updates (PUT) or deletes (DELETE) one document
func (s *Server) HandleAsset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, claims, err := s.ledgerScope(r)
		if err != nil {
			writeError(w, err)
			return
		}

		switch r.Method {
		case http.MethodGet:
			documentNo, err := requireDocumentNo(r)
			if err != nil {
				writeError(w, err)
				return
			}
			result, err := s.Engine.AskLedger(ns, &actors.ReadAssetMsg{DocumentNo: documentNo})
			if err != nil {
				writeError(w, err)
				return
			}
			writeSuccess(w, http.StatusOK, "asset retrieved", result)

		case http.MethodPut:
			var req AssetRequest
			if err := s.decodeRequest(r, &req); err != nil {
				writeError(w, err)
				return
			}
			result, err := s.Engine.AskLedger(ns, &actors.UpdateAssetMsg{
				Caller: claims.Username,
				Asset:  req.asset(),
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeSuccess(w, http.StatusOK, "asset updated", result)

		case http.MethodDelete:
			documentNo, err := requireDocumentNo(r)
			if err != nil {
				writeError(w, err)
				return
			}
			result, err := s.Engine.AskLedger(ns, &actors.DeleteAssetMsg{
				Caller:     claims.Username,
				DocumentNo: documentNo,
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeSuccess(w, http.StatusOK, "asset deleted", result)

		default:
			methodNotAllowed(w)
		}
	}
}

// HandleAssetExists reports whether a document is on the ledger
func (s *Server) HandleAssetExists() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		ns, _, err := s.ledgerScope(r)
		if err != nil {
			writeError(w, err)
			return
		}
		documentNo, err := requireDocumentNo(r)
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := s.Engine.AskLedger(ns, &actors.AssetExistsMsg{DocumentNo: documentNo})
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "", result)
	}
}

// HandleTransferAsset changes the owner of a document
func (s *Server) HandleTransferAsset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		ns, claims, err := s.ledgerScope(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var req TransferAssetRequest
		if err := s.decodeRequest(r, &req); err != nil {
			writeError(w, err)
			return
		}

		result, err := s.Engine.AskLedger(ns, &actors.TransferAssetMsg{
			Caller:     claims.Username,
			DocumentNo: req.DocumentNo,
			NewOwner:   req.NewOwner,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "asset transferred", result)
	}
}

// HandleDeletedAssets returns the deletion log of the ledger, newest first
func (s *Server) HandleDeletedAssets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		ns, _, err := s.ledgerScope(r)
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := s.Engine.AskLedger(ns, &actors.GetDeletedAssetsMsg{})
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "deleted assets retrieved", result)
	}
}
