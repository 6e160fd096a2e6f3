package registry

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrorKind classifies ledger errors into the taxonomy shared by every
// registry: rejected input, missing resource, failed authorization,
// create-once conflict, quorum disagreement, and upgrade lifecycle
// violations.
type ErrorKind uint8

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindAuthorization
	KindConflict
	KindQuorum
	KindUpgradeState
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindQuorum:
		return "quorum"
	case KindUpgradeState:
		return "upgrade_state"
	default:
		return "unknown"
	}
}

// Code identifies one ledger error. Codes are sentinels: a decoded revert
// satisfies errors.Is against the package-level Err* values. Signature is
// the solidity-style declaration matched against the contract spec, which
// fixes the four-byte selector used on the wire.
type Code struct {
	Kind      ErrorKind
	Name      string
	Signature string
}

// Error implements the error interface, making the Code itself usable as
// an errors.Is target.
func (c *Code) Error() string {
	return c.Name
}

// With attaches arguments matching the signature's parameter list.
func (c *Code) With(args ...any) error {
	return &Error{Code: c, Args: args}
}

// Error is a ledger error instance: a Code plus its arguments.
type Error struct {
	Code *Code
	Args []any
}

func (e *Error) Error() string {
	if len(e.Args) == 0 {
		return e.Code.Name
	}
	formatted := make([]string, len(e.Args))
	for i, arg := range e.Args {
		formatted[i] = formatArg(arg)
	}
	return fmt.Sprintf("%s(%s)", e.Code.Name, strings.Join(formatted, ", "))
}

func (e *Error) Unwrap() error {
	return e.Code
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case common.Address:
		return v.Hex()
	case common.Hash:
		return v.Hex()
	case [32]byte:
		return "0x" + hex.EncodeToString(v[:])
	case []byte:
		return "0x" + hex.EncodeToString(v)
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Ledger error codes, grouped by registry. Signatures must stay in sync
// with the error declarations in the embedded contract specs.
var (
	// RoleControl.
	ErrUnauthorized            = &Code{Kind: KindAuthorization, Name: "Unauthorized", Signature: "Unauthorized(address)"}
	ErrInvalidRole             = &Code{Kind: KindValidation, Name: "InvalidRole", Signature: "InvalidRole(uint8)"}
	ErrCannotRevokeLastTrustee = &Code{Kind: KindValidation, Name: "CannotRevokeLastTrustee", Signature: "CannotRevokeLastTrustee()"}

	// Endorsement and ownership.
	ErrAuthenticationFailed = &Code{Kind: KindAuthorization, Name: "AuthenticationFailed", Signature: "AuthenticationFailed(address,address)"}
	ErrNotIdentityOwner     = &Code{Kind: KindAuthorization, Name: "NotIdentityOwner", Signature: "NotIdentityOwner(address,address)"}

	// DidRegistry.
	ErrDidNotFound           = &Code{Kind: KindNotFound, Name: "DidNotFound", Signature: "DidNotFound(address)"}
	ErrDidAlreadyExist       = &Code{Kind: KindConflict, Name: "DidAlreadyExist", Signature: "DidAlreadyExist(address)"}
	ErrDidHasBeenDeactivated = &Code{Kind: KindValidation, Name: "DidHasBeenDeactivated", Signature: "DidHasBeenDeactivated(address)"}
	ErrIncorrectDid          = &Code{Kind: KindValidation, Name: "IncorrectDid", Signature: "IncorrectDid(string)"}
	ErrInvalidDidDocument    = &Code{Kind: KindValidation, Name: "InvalidDidDocument", Signature: "InvalidDidDocument(string)"}

	// Issuer checks shared by the resource registries.
	ErrIssuerNotFound           = &Code{Kind: KindNotFound, Name: "IssuerNotFound", Signature: "IssuerNotFound(address)"}
	ErrIssuerHasBeenDeactivated = &Code{Kind: KindValidation, Name: "IssuerHasBeenDeactivated", Signature: "IssuerHasBeenDeactivated(address)"}

	// SchemaRegistry.
	ErrSchemaAlreadyExist = &Code{Kind: KindConflict, Name: "SchemaAlreadyExist", Signature: "SchemaAlreadyExist(bytes32)"}
	ErrSchemaNotFound     = &Code{Kind: KindNotFound, Name: "SchemaNotFound", Signature: "SchemaNotFound(bytes32)"}
	ErrInvalidSchemaId    = &Code{Kind: KindValidation, Name: "InvalidSchemaId", Signature: "InvalidSchemaId(bytes32)"}
	ErrInvalidSchema      = &Code{Kind: KindValidation, Name: "InvalidSchema", Signature: "InvalidSchema(string)"}

	// CredentialDefinitionRegistry.
	ErrCredentialDefinitionAlreadyExist = &Code{Kind: KindConflict, Name: "CredentialDefinitionAlreadyExist", Signature: "CredentialDefinitionAlreadyExist(bytes32)"}
	ErrCredentialDefinitionNotFound     = &Code{Kind: KindNotFound, Name: "CredentialDefinitionNotFound", Signature: "CredentialDefinitionNotFound(bytes32)"}
	ErrInvalidCredentialDefinitionId    = &Code{Kind: KindValidation, Name: "InvalidCredentialDefinitionId", Signature: "InvalidCredentialDefinitionId(bytes32)"}
	ErrInvalidCredentialDefinition      = &Code{Kind: KindValidation, Name: "InvalidCredentialDefinition", Signature: "InvalidCredentialDefinition(string)"}

	// RevocationRegistry.
	ErrRevocationRegistryDefinitionAlreadyExist = &Code{Kind: KindConflict, Name: "RevocationRegistryDefinitionAlreadyExist", Signature: "RevocationRegistryDefinitionAlreadyExist(bytes32)"}
	ErrRevocationRegistryDefinitionNotFound     = &Code{Kind: KindNotFound, Name: "RevocationRegistryDefinitionNotFound", Signature: "RevocationRegistryDefinitionNotFound(bytes32)"}
	ErrInvalidRevocationRegistryDefinitionId    = &Code{Kind: KindValidation, Name: "InvalidRevocationRegistryDefinitionId", Signature: "InvalidRevocationRegistryDefinitionId(bytes32)"}
	ErrInvalidRevocationRegistryDefinition      = &Code{Kind: KindValidation, Name: "InvalidRevocationRegistryDefinition", Signature: "InvalidRevocationRegistryDefinition(string)"}
	ErrRevocationRegistryIsSuspended            = &Code{Kind: KindValidation, Name: "RevocationRegistryIsSuspended", Signature: "RevocationRegistryIsSuspended(bytes32)"}
	ErrRevocationRegistryIsRevoked              = &Code{Kind: KindValidation, Name: "RevocationRegistryIsRevoked", Signature: "RevocationRegistryIsRevoked(bytes32)"}
	ErrRevocationRegistryNotSuspended           = &Code{Kind: KindValidation, Name: "RevocationRegistryNotSuspended", Signature: "RevocationRegistryNotSuspended(bytes32)"}
	ErrAccumulatorMismatch                      = &Code{Kind: KindValidation, Name: "AccumulatorMismatch", Signature: "AccumulatorMismatch(bytes32)"}

	// LegacyMappingRegistry.
	ErrDidMappingAlreadyExist      = &Code{Kind: KindConflict, Name: "DidMappingAlreadyExist", Signature: "DidMappingAlreadyExist(string)"}
	ErrResourceMappingAlreadyExist = &Code{Kind: KindConflict, Name: "ResourceMappingAlreadyExist", Signature: "ResourceMappingAlreadyExist(string)"}
	ErrDidMappingNotFound          = &Code{Kind: KindNotFound, Name: "DidMappingNotFound", Signature: "DidMappingNotFound(string)"}
	ErrInvalidEd25519Signature     = &Code{Kind: KindValidation, Name: "InvalidEd25519Signature", Signature: "InvalidEd25519Signature(string)"}
	ErrInvalidLegacyMapping        = &Code{Kind: KindValidation, Name: "InvalidLegacyMapping", Signature: "InvalidLegacyMapping(string)"}

	// ValidatorControl.
	ErrValidatorAlreadyExists        = &Code{Kind: KindConflict, Name: "ValidatorAlreadyExists", Signature: "ValidatorAlreadyExists(address)"}
	ErrValidatorNotFound             = &Code{Kind: KindNotFound, Name: "ValidatorNotFound", Signature: "ValidatorNotFound(address)"}
	ErrCannotDeactivateLastValidator = &Code{Kind: KindValidation, Name: "CannotDeactivateLastValidator", Signature: "CannotDeactivateLastValidator()"}
	ErrExceedsValidatorLimit         = &Code{Kind: KindValidation, Name: "ExceedsValidatorLimit", Signature: "ExceedsValidatorLimit(uint256)"}

	// UpgradeControl.
	ErrUpgradeProposalNotFound = &Code{Kind: KindNotFound, Name: "UpgradeProposalNotFound", Signature: "UpgradeProposalNotFound(address,address)"}
	ErrUpgradeAlreadyProposed  = &Code{Kind: KindUpgradeState, Name: "UpgradeAlreadyProposed", Signature: "UpgradeAlreadyProposed(address,address)"}
	ErrUpgradeAlreadyApproved  = &Code{Kind: KindUpgradeState, Name: "UpgradeAlreadyApproved", Signature: "UpgradeAlreadyApproved(address,address)"}
	ErrUpgradeAlreadyApplied   = &Code{Kind: KindUpgradeState, Name: "UpgradeAlreadyApplied", Signature: "UpgradeAlreadyApplied(address,address)"}
	ErrInsufficientApprovals   = &Code{Kind: KindUpgradeState, Name: "InsufficientApprovals", Signature: "InsufficientApprovals(uint256,uint256)"}
)

var allCodes = []*Code{
	ErrUnauthorized, ErrInvalidRole, ErrCannotRevokeLastTrustee,
	ErrAuthenticationFailed, ErrNotIdentityOwner,
	ErrDidNotFound, ErrDidAlreadyExist, ErrDidHasBeenDeactivated, ErrIncorrectDid, ErrInvalidDidDocument,
	ErrIssuerNotFound, ErrIssuerHasBeenDeactivated,
	ErrSchemaAlreadyExist, ErrSchemaNotFound, ErrInvalidSchemaId, ErrInvalidSchema,
	ErrCredentialDefinitionAlreadyExist, ErrCredentialDefinitionNotFound,
	ErrInvalidCredentialDefinitionId, ErrInvalidCredentialDefinition,
	ErrRevocationRegistryDefinitionAlreadyExist, ErrRevocationRegistryDefinitionNotFound,
	ErrInvalidRevocationRegistryDefinitionId, ErrInvalidRevocationRegistryDefinition,
	ErrRevocationRegistryIsSuspended, ErrRevocationRegistryIsRevoked,
	ErrRevocationRegistryNotSuspended, ErrAccumulatorMismatch,
	ErrDidMappingAlreadyExist, ErrResourceMappingAlreadyExist, ErrDidMappingNotFound,
	ErrInvalidEd25519Signature, ErrInvalidLegacyMapping,
	ErrValidatorAlreadyExists, ErrValidatorNotFound,
	ErrCannotDeactivateLastValidator, ErrExceedsValidatorLimit,
	ErrUpgradeProposalNotFound, ErrUpgradeAlreadyProposed,
	ErrUpgradeAlreadyApproved, ErrUpgradeAlreadyApplied, ErrInsufficientApprovals,
}

var codesByName = func() map[string]*Code {
	m := make(map[string]*Code, len(allCodes))
	for _, c := range allCodes {
		m[c.Name] = c
	}
	return m
}()

// CodeByName looks up a Code by its declared name, used when decoding
// revert data back into taxonomy errors.
func CodeByName(name string) (*Code, bool) {
	c, ok := codesByName[name]
	return c, ok
}

// Codes returns all declared ledger error codes.
func Codes() []*Code {
	out := make([]*Code, len(allCodes))
	copy(out, allCodes)
	return out
}
