// Package httpserver is the resolver gateway: a thin read-only HTTP
// service translating DID and AnonCreds resolution requests into
// quorum-verified ledger reads through the client SDK.
package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/identity-registry-backend/client"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
)

// ContentTypeDidResolution is the representation the DID resolution
// endpoint produces.
const ContentTypeDidResolution = "application/did+ld+json"

// DID resolution error codes, returned inside didResolutionMetadata.
const (
	ResolutionErrNotFound                   = "notFound"
	ResolutionErrInvalidDid                 = "invalidDid"
	ResolutionErrMethodNotSupported         = "methodNotSupported"
	ResolutionErrRepresentationNotSupported = "representationNotSupported"
	ResolutionErrInternal                   = "internalError"
)

// maxBodySize caps request bodies. The gateway is read-only, so anything
// beyond a trivial body is a client mistake.
const maxBodySize = 1024 * 1024

// Handler serves the resolution endpoints over a ledger client.
type Handler struct {
	client *client.Client
	log    *slog.Logger
}

// NewHandler wires the resolution endpoints to the given ledger client.
func NewHandler(c *client.Client, log *slog.Logger) *Handler {
	return &Handler{client: c, log: log}
}

// DidResolution is the W3C DID resolution envelope.
type DidResolution struct {
	DidDocument           json.RawMessage         `json:"didDocument,omitempty"`
	DidDocumentMetadata   *interfaces.DidMetadata `json:"didDocumentMetadata,omitempty"`
	DidResolutionMetadata ResolutionMetadata      `json:"didResolutionMetadata"`
}

// ResolutionMetadata carries the representation content type and, on
// failure, the resolution error code.
type ResolutionMetadata struct {
	ContentType string `json:"contentType,omitempty"`
	Error       string `json:"error,omitempty"`
}

// apiError is the JSON error body of the resource endpoints.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleResolveDid serves GET /v1/identifiers/*. The identifier is the
// whole path tail, so DID URLs with path segments resolve too. The
// response is always a resolution envelope; failures set the error code
// in didResolutionMetadata with the matching HTTP status.
func (h *Handler) HandleResolveDid(w http.ResponseWriter, r *http.Request) {
	did := pathID(r)

	if accept := r.Header.Get("Accept"); !acceptsDidResolution(accept) {
		h.writeResolution(w, http.StatusNotAcceptable, DidResolution{
			DidResolutionMetadata: ResolutionMetadata{Error: ResolutionErrRepresentationNotSupported},
		})
		return
	}

	record, err := h.client.ResolveDid(r.Context(), did)
	if err != nil {
		status, code := resolutionError(did, err)
		h.writeResolution(w, status, DidResolution{
			DidResolutionMetadata: ResolutionMetadata{Error: code},
		})
		return
	}

	h.writeResolution(w, http.StatusOK, DidResolution{
		DidDocument:         record.Document,
		DidDocumentMetadata: &record.Metadata,
		DidResolutionMetadata: ResolutionMetadata{
			ContentType: ContentTypeDidResolution,
		},
	})
}

// HandleResolveSchema serves GET /v1/schema/*.
func (h *Handler) HandleResolveSchema(w http.ResponseWriter, r *http.Request) {
	id, err := resourceID(pathID(r))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalidId", err.Error())
		return
	}
	record, err := h.client.ResolveSchema(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// HandleResolveCredDef serves GET /v1/credential-definition/*.
func (h *Handler) HandleResolveCredDef(w http.ResponseWriter, r *http.Request) {
	id, err := resourceID(pathID(r))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalidId", err.Error())
		return
	}
	record, err := h.client.ResolveCredentialDefinition(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// HandleRevocationRegistry serves GET /v1/revocation-registry/*. The path
// tail is the definition id, optionally followed by /status-list; both
// forms take hex and canonical ids, so the suffix is split off before the
// id is parsed.
func (h *Handler) HandleRevocationRegistry(w http.ResponseWriter, r *http.Request) {
	raw := pathID(r)
	if defID, ok := strings.CutSuffix(raw, "/status-list"); ok {
		h.serveStatusList(w, r, defID)
		return
	}

	id, err := resourceID(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalidId", err.Error())
		return
	}
	record, err := h.client.ResolveRevocationRegistryDefinition(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// statusListResponse is the reconstructed revocation state of a registry:
// the latest accumulator and the per-credential status list, rebuilt from
// the entry event log.
type statusListResponse struct {
	RevRegDefID interfaces.ResourceID `json:"revRegDefId"`
	Accum       []byte                `json:"accum"`
	Timestamp   uint64                `json:"timestamp"`
	StatusList  []uint8               `json:"statusList"`
}

// serveStatusList serves GET /v1/revocation-registry/{id}/status-list.
func (h *Handler) serveStatusList(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := resourceID(rawID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalidId", err.Error())
		return
	}

	record, err := h.client.ResolveRevocationRegistryDefinition(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	def, err := interfaces.ParseRevocationRegistryDefinition(record.RevRegDef)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "internalError", err.Error())
		return
	}

	delta, err := h.client.FetchRevocationDelta(r.Context(), id, 0)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, statusListResponse{
		RevRegDefID: id,
		Accum:       delta.Accum,
		Timestamp:   delta.Timestamp,
		StatusList:  client.BuildStatusList(delta, def.Value.MaxCredNum),
	})
}

// roleResponse is the body of the role endpoint.
type roleResponse struct {
	Account interfaces.Account `json:"account"`
	Role    string             `json:"role"`
}

// HandleGetRole serves GET /v1/role/{account}.
func (h *Handler) HandleGetRole(w http.ResponseWriter, r *http.Request) {
	account, err := interfaces.AccountFromHex(chi.URLParam(r, "account"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalidAccount", err.Error())
		return
	}
	role, err := h.client.GetRole(r.Context(), account)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, roleResponse{Account: account, Role: role.String()})
}

// HandleGetValidators serves GET /v1/validators.
func (h *Handler) HandleGetValidators(w http.ResponseWriter, r *http.Request) {
	validators, err := h.client.GetValidators(r.Context())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"validators": validators})
}

// pathID returns the wildcard path tail of the request. Canonical
// resource ids and DID URLs contain slashes, so the routes match on a
// wildcard and the whole tail is the identifier. Percent-encoded tails
// are decoded.
func pathID(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// resourceID accepts a 32-byte hex id or a canonical identifier string,
// re-deriving the keccak id for the latter.
func resourceID(raw string) (interfaces.ResourceID, error) {
	if raw == "" {
		return interfaces.ResourceID{}, errors.New("empty resource id")
	}
	if strings.HasPrefix(raw, "0x") {
		if len(raw) != 2+2*common.HashLength {
			return interfaces.ResourceID{}, errors.New("hex resource id must be 32 bytes")
		}
		return common.HexToHash(raw), nil
	}
	return interfaces.ResourceIDHash(raw), nil
}

// resolutionError maps a resolution failure to the HTTP status and DID
// resolution error code.
func resolutionError(did string, err error) (int, string) {
	switch {
	case errors.Is(err, registry.ErrDidNotFound):
		return http.StatusNotFound, ResolutionErrNotFound
	case errors.Is(err, interfaces.ErrInvalidDid):
		if method, ok := didMethod(did); ok && method != interfaces.DidMethodBesu && method != interfaces.DidMethodEthr {
			return http.StatusNotImplemented, ResolutionErrMethodNotSupported
		}
		return http.StatusBadRequest, ResolutionErrInvalidDid
	default:
		return http.StatusInternalServerError, ResolutionErrInternal
	}
}

// didMethod extracts the method of a syntactically DID-shaped string even
// when the full syntax does not validate.
func didMethod(did string) (string, bool) {
	rest, ok := strings.CutPrefix(did, "did:")
	if !ok {
		return "", false
	}
	method, _, ok := strings.Cut(rest, ":")
	if !ok || method == "" {
		return "", false
	}
	return method, true
}

// acceptsDidResolution implements the minimal Accept negotiation the
// resolution endpoint needs: absent and wildcard headers accept, as do
// the resolution and plain JSON types.
func acceptsDidResolution(accept string) bool {
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch mediaType {
		case "*/*", "application/*", ContentTypeDidResolution, "application/json", "application/ld+json":
			return true
		}
	}
	return false
}

func (h *Handler) writeResolution(w http.ResponseWriter, status int, body DidResolution) {
	w.Header().Set("Content-Type", ContentTypeDidResolution)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Encoding resolution response failed", "err", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Encoding response failed", "err", err)
	}
}

// writeLedgerError maps ledger errors onto HTTP statuses: not-found
// taxonomy errors become 404, other taxonomy errors 400, everything else
// (quorum failures, transport) 502.
func (h *Handler) writeLedgerError(w http.ResponseWriter, err error) {
	var ledgerErr *registry.Error
	if errors.As(err, &ledgerErr) {
		status := http.StatusBadRequest
		if ledgerErr.Code.Kind == registry.KindNotFound {
			status = http.StatusNotFound
		}
		h.writeError(w, status, ledgerErr.Code.Name, ledgerErr.Error())
		return
	}
	h.log.Error("Ledger read failed", "err", err)
	h.writeError(w, http.StatusBadGateway, "ledgerUnavailable", err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, apiError{Code: code, Message: message})
}
