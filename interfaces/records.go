package interfaces

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ResourceMetadata is attached to every stored registry record. Owner is
// the identity the record belongs to; Sender is the account that submitted
// the creating transaction, which differs from Owner for endorsed writes.
// A zero Created timestamp means the record does not exist.
type ResourceMetadata struct {
	Owner     Account `json:"owner"`
	Sender    Account `json:"sender"`
	Created   int64   `json:"created"`
	Updated   int64   `json:"updated"`
	VersionID uint64  `json:"versionId"`
}

// Exists reports whether the metadata belongs to a stored record.
func (m ResourceMetadata) Exists() bool {
	return m.Created != 0
}

// DidMetadata extends ResourceMetadata with the deactivation flag of the
// DID state machine.
type DidMetadata struct {
	ResourceMetadata
	Deactivated bool `json:"deactivated"`
}

// DidRecord pairs a stored DID document with its metadata.
type DidRecord struct {
	Document json.RawMessage `json:"document"`
	Metadata DidMetadata     `json:"metadata"`
}

// SchemaRecord pairs a stored credential schema with its metadata.
type SchemaRecord struct {
	Schema   json.RawMessage  `json:"schema"`
	Metadata ResourceMetadata `json:"metadata"`
}

// CredentialDefinitionRecord pairs a stored credential definition with its
// metadata.
type CredentialDefinitionRecord struct {
	CredDef  json.RawMessage  `json:"credDef"`
	Metadata ResourceMetadata `json:"metadata"`
}

// RevocationStatus is the lifecycle state of a revocation registry
// definition. Suspension is reversible; revocation is terminal.
type RevocationStatus uint8

const (
	RevocationActive RevocationStatus = iota
	RevocationSuspended
	RevocationRevoked
)

var revocationStatusNames = map[RevocationStatus]string{
	RevocationActive:    "active",
	RevocationSuspended: "suspended",
	RevocationRevoked:   "revoked",
}

func (s RevocationStatus) String() string {
	if name, ok := revocationStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// RevocationRegistryRecord pairs a stored revocation registry definition
// with its metadata and lifecycle status.
type RevocationRegistryRecord struct {
	RevRegDef json.RawMessage  `json:"revRegDef"`
	Metadata  ResourceMetadata `json:"metadata"`
	Status    RevocationStatus `json:"status"`
}

// RevocationRegistryEntry is one accumulator state transition. Entries are
// published as events rather than stored, except for the latest accumulator
// kept for chain validation.
type RevocationRegistryEntry struct {
	CurrentAccum []byte   `json:"currentAccum"`
	PrevAccum    []byte   `json:"prevAccum"`
	Issued       []uint32 `json:"issued"`
	Revoked      []uint32 `json:"revoked"`
	Timestamp    uint64   `json:"timestamp"`
}

// Signature type identifiers of AnonCreds artifacts.
const (
	CredDefTypeCL       = "CL"
	RevocDefTypeCLAccum = "CL_ACCUM"
)

// Schema is the parsed credential schema payload.
type Schema struct {
	IssuerID  string   `json:"issuerId"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attrNames"`
}

// ParseSchema unmarshals and validates a schema payload.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("malformed schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the structural rules of a schema payload.
func (s *Schema) Validate() error {
	if _, err := ParseDid(s.IssuerID); err != nil {
		return fmt.Errorf("schema issuerId: %w", err)
	}
	if s.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	if s.Version == "" {
		return fmt.Errorf("schema version is required")
	}
	if len(s.AttrNames) == 0 {
		return fmt.Errorf("schema attrNames must not be empty")
	}
	for _, attr := range s.AttrNames {
		if attr == "" {
			return fmt.Errorf("schema attribute names must not be empty")
		}
	}
	return nil
}

// CredentialDefinition is the parsed credential definition payload. Value
// holds the opaque cryptographic material.
type CredentialDefinition struct {
	IssuerID    string          `json:"issuerId"`
	SchemaID    string          `json:"schemaId"`
	CredDefType string          `json:"credDefType"`
	Tag         string          `json:"tag"`
	Value       json.RawMessage `json:"value"`
}

// ParseCredentialDefinition unmarshals and validates a credential
// definition payload.
func ParseCredentialDefinition(data []byte) (*CredentialDefinition, error) {
	var cd CredentialDefinition
	if err := json.Unmarshal(data, &cd); err != nil {
		return nil, fmt.Errorf("malformed credential definition: %w", err)
	}
	if err := cd.Validate(); err != nil {
		return nil, err
	}
	return &cd, nil
}

// Validate checks the structural rules of a credential definition payload.
func (cd *CredentialDefinition) Validate() error {
	if _, err := ParseDid(cd.IssuerID); err != nil {
		return fmt.Errorf("credential definition issuerId: %w", err)
	}
	if cd.SchemaID == "" {
		return fmt.Errorf("credential definition schemaId is required")
	}
	if cd.CredDefType != CredDefTypeCL {
		return fmt.Errorf("unsupported credential definition type %q", cd.CredDefType)
	}
	if cd.Tag == "" {
		return fmt.Errorf("credential definition tag is required")
	}
	if len(cd.Value) == 0 {
		return fmt.Errorf("credential definition value is required")
	}
	return nil
}

// RevocationRegistryDefinitionValue holds the accumulator parameters of a
// revocation registry definition.
type RevocationRegistryDefinitionValue struct {
	MaxCredNum    uint32                       `json:"maxCredNum"`
	PublicKeys    RevocationRegistryPublicKeys `json:"publicKeys"`
	TailsHash     string                       `json:"tailsHash"`
	TailsLocation string                       `json:"tailsLocation"`
}

// RevocationRegistryPublicKeys wraps the accumulator public key.
type RevocationRegistryPublicKeys struct {
	AccumKey AccumulatorKey `json:"accumKey"`
}

// AccumulatorKey is the opaque accumulator public key material.
type AccumulatorKey struct {
	Z string `json:"z"`
}

// RevocationRegistryDefinition is the parsed revocation registry definition
// payload.
type RevocationRegistryDefinition struct {
	IssuerID     string                            `json:"issuerId"`
	RevocDefType string                            `json:"revocDefType"`
	CredDefID    string                            `json:"credDefId"`
	Tag          string                            `json:"tag"`
	Value        RevocationRegistryDefinitionValue `json:"value"`
}

// ParseRevocationRegistryDefinition unmarshals and validates a revocation
// registry definition payload.
func ParseRevocationRegistryDefinition(data []byte) (*RevocationRegistryDefinition, error) {
	var rd RevocationRegistryDefinition
	if err := json.Unmarshal(data, &rd); err != nil {
		return nil, fmt.Errorf("malformed revocation registry definition: %w", err)
	}
	if err := rd.Validate(); err != nil {
		return nil, err
	}
	return &rd, nil
}

// Validate checks the structural rules of a revocation registry definition
// payload.
func (rd *RevocationRegistryDefinition) Validate() error {
	if _, err := ParseDid(rd.IssuerID); err != nil {
		return fmt.Errorf("revocation registry definition issuerId: %w", err)
	}
	if rd.RevocDefType != RevocDefTypeCLAccum {
		return fmt.Errorf("unsupported revocation registry definition type %q", rd.RevocDefType)
	}
	if rd.CredDefID == "" {
		return fmt.Errorf("revocation registry definition credDefId is required")
	}
	if rd.Tag == "" {
		return fmt.Errorf("revocation registry definition tag is required")
	}
	if rd.Value.MaxCredNum == 0 {
		return fmt.Errorf("revocation registry definition maxCredNum must be positive")
	}
	if rd.Value.TailsHash == "" || rd.Value.TailsLocation == "" {
		return fmt.Errorf("revocation registry definition tails hash and location are required")
	}
	if rd.Value.PublicKeys.AccumKey.Z == "" {
		return fmt.Errorf("revocation registry definition accumulator key is required")
	}
	return nil
}

// Path segments of canonical resource identifier strings.
const (
	schemaIDPath    = "anoncreds/v0/SCHEMA"
	credDefIDPath   = "anoncreds/v0/CLAIM_DEF"
	revRegDefIDPath = "anoncreds/v0/REV_REG_DEF"
)

// SchemaIDString builds the canonical schema identifier string.
func SchemaIDString(issuerID, name, version string) string {
	return fmt.Sprintf("%s/%s/%s/%s", issuerID, schemaIDPath, name, version)
}

// SchemaUniqueID flattens a canonical schema id into the colon-separated
// form embedded in dependent identifiers.
func SchemaUniqueID(schemaID string) string {
	flat := strings.Replace(schemaID, "/"+schemaIDPath+"/", "/", 1)
	return strings.ReplaceAll(flat, "/", ":")
}

// CredDefIDString builds the canonical credential definition identifier
// string from the issuer, the canonical schema id and the tag.
func CredDefIDString(issuerID, schemaID, tag string) string {
	return fmt.Sprintf("%s/%s/%s/%s", issuerID, credDefIDPath, SchemaUniqueID(schemaID), tag)
}

// RevRegDefIDString builds the canonical revocation registry definition
// identifier string from the canonical credential definition id and the
// definition tag.
func RevRegDefIDString(credDefID, tag string) string {
	base := strings.Replace(credDefID, "/"+credDefIDPath+"/", "/"+revRegDefIDPath+"/", 1)
	return fmt.Sprintf("%s/%s", base, tag)
}

// ResourceIDHash derives the 32-byte resource id of a canonical identifier
// string.
func ResourceIDHash(idString string) ResourceID {
	return crypto.Keccak256Hash([]byte(idString))
}
