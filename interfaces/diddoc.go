package interfaces

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSON-LD context URIs attached to stored DID documents.
const (
	ContextDidBase       = "https://www.w3.org/ns/did/v1"
	ContextSecp256k12020 = "https://w3id.org/security/suites/secp256k1recovery-2020/v2"
	ContextSecurityKeys  = "https://w3id.org/security/v3-unstable"
)

// VerificationKeyType names the cryptographic suite of a verification
// method.
type VerificationKeyType string

const (
	Ed25519VerificationKey2018        VerificationKeyType = "Ed25519VerificationKey2018"
	X25519KeyAgreementKey2019         VerificationKeyType = "X25519KeyAgreementKey2019"
	Ed25519VerificationKey2020        VerificationKeyType = "Ed25519VerificationKey2020"
	X25519KeyAgreementKey2020         VerificationKeyType = "X25519KeyAgreementKey2020"
	JSONWebKey2020                    VerificationKeyType = "JsonWebKey2020"
	EcdsaSecp256k1VerificationKey2019 VerificationKeyType = "EcdsaSecp256k1VerificationKey2019"
	EcdsaSecp256k1VerificationKey2020 VerificationKeyType = "EcdsaSecp256k1VerificationKey2020"
	EcdsaSecp256k1RecoveryMethod2020  VerificationKeyType = "EcdsaSecp256k1RecoveryMethod2020"
)

var knownKeyTypes = map[VerificationKeyType]bool{
	Ed25519VerificationKey2018:        true,
	X25519KeyAgreementKey2019:         true,
	Ed25519VerificationKey2020:        true,
	X25519KeyAgreementKey2020:         true,
	JSONWebKey2020:                    true,
	EcdsaSecp256k1VerificationKey2019: true,
	EcdsaSecp256k1VerificationKey2020: true,
	EcdsaSecp256k1RecoveryMethod2020:  true,
}

// Service types understood by tooling. Other type strings are stored
// untouched.
const (
	ServiceTypeLinkedDomains      = "LinkedDomains"
	ServiceTypeDIDCommMessaging   = "DIDCommMessaging"
	ServiceTypeCredentialRegistry = "CredentialRegistry"
	ServiceTypeOID4VCI            = "OID4VCI"
	ServiceTypeOID4VP             = "OID4VP"
)

// StringOrSet models JSON values that appear either as a single string or
// as an array of strings, such as @context and controller.
type StringOrSet []string

// MarshalJSON emits a bare string for single-element sets.
func (s StringOrSet) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

func (s *StringOrSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrSet{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*s = StringOrSet(many)
	return nil
}

// Contains reports whether the set holds the given value.
func (s StringOrSet) Contains(v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// VerificationMethod is a public key entry of a DID document. Exactly one
// of the key material fields must be set.
type VerificationMethod struct {
	ID                 string              `json:"id"`
	Type               VerificationKeyType `json:"type"`
	Controller         string              `json:"controller"`
	PublicKeyJwk       map[string]any      `json:"publicKeyJwk,omitempty"`
	PublicKeyMultibase string              `json:"publicKeyMultibase,omitempty"`
	PublicKeyBase58    string              `json:"publicKeyBase58,omitempty"`
	PublicKeyHex       string              `json:"publicKeyHex,omitempty"`
}

func (vm *VerificationMethod) keyMaterialCount() int {
	n := 0
	if len(vm.PublicKeyJwk) > 0 {
		n++
	}
	if vm.PublicKeyMultibase != "" {
		n++
	}
	if vm.PublicKeyBase58 != "" {
		n++
	}
	if vm.PublicKeyHex != "" {
		n++
	}
	return n
}

// VerificationRelationship is either a reference to a verification method
// defined in the document or an embedded verification method.
type VerificationRelationship struct {
	Reference string
	Embedded  *VerificationMethod
}

func (vr VerificationRelationship) MarshalJSON() ([]byte, error) {
	if vr.Embedded != nil {
		return json.Marshal(vr.Embedded)
	}
	return json.Marshal(vr.Reference)
}

func (vr *VerificationRelationship) UnmarshalJSON(data []byte) error {
	var ref string
	if err := json.Unmarshal(data, &ref); err == nil {
		vr.Reference = ref
		vr.Embedded = nil
		return nil
	}
	var vm VerificationMethod
	if err := json.Unmarshal(data, &vm); err != nil {
		return fmt.Errorf("expected verification method reference or object: %w", err)
	}
	vr.Reference = ""
	vr.Embedded = &vm
	return nil
}

// ServiceEndpoint preserves the raw JSON endpoint value, which the DID data
// model allows to be a string, a set, or a map.
type ServiceEndpoint = json.RawMessage

// NewStringEndpoint builds a ServiceEndpoint from a plain URI.
func NewStringEndpoint(uri string) ServiceEndpoint {
	b, _ := json.Marshal(uri)
	return b
}

// Service is a service entry of a DID document.
type Service struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	ServiceEndpoint ServiceEndpoint `json:"serviceEndpoint"`
	Accept          []string        `json:"accept,omitempty"`
	RoutingKeys     []string        `json:"routingKeys,omitempty"`
}

// DIDDocument is the JSON document stored by the DID registry.
type DIDDocument struct {
	Context              StringOrSet                `json:"@context,omitempty"`
	ID                   string                     `json:"id"`
	Controller           StringOrSet                `json:"controller,omitempty"`
	VerificationMethod   []VerificationMethod       `json:"verificationMethod,omitempty"`
	Authentication       []VerificationRelationship `json:"authentication,omitempty"`
	AssertionMethod      []VerificationRelationship `json:"assertionMethod,omitempty"`
	CapabilityInvocation []VerificationRelationship `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []VerificationRelationship `json:"capabilityDelegation,omitempty"`
	KeyAgreement         []VerificationRelationship `json:"keyAgreement,omitempty"`
	Service              []Service                  `json:"service,omitempty"`
	AlsoKnownAs          []string                   `json:"alsoKnownAs,omitempty"`
}

// ParseDIDDocument unmarshals and structurally validates a stored document.
func ParseDIDDocument(data []byte) (*DIDDocument, error) {
	var doc DIDDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed DID document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the structural rules every stored document must satisfy:
// a parseable id, valid controller DIDs, unique verification method and
// service ids, exactly one key material per verification method, and
// relationship references that resolve to a defined method.
func (doc *DIDDocument) Validate() error {
	if _, err := ParseDid(doc.ID); err != nil {
		return fmt.Errorf("document id: %w", err)
	}

	for _, c := range doc.Controller {
		if _, err := ParseDid(c); err != nil {
			return fmt.Errorf("controller: %w", err)
		}
	}

	vmIDs := make(map[string]bool, len(doc.VerificationMethod))
	for i := range doc.VerificationMethod {
		vm := &doc.VerificationMethod[i]
		if err := validateVerificationMethod(vm); err != nil {
			return err
		}
		if vmIDs[vm.ID] {
			return fmt.Errorf("duplicate verification method id %q", vm.ID)
		}
		vmIDs[vm.ID] = true
	}

	relationships := [][]VerificationRelationship{
		doc.Authentication,
		doc.AssertionMethod,
		doc.CapabilityInvocation,
		doc.CapabilityDelegation,
		doc.KeyAgreement,
	}
	for _, rels := range relationships {
		for _, rel := range rels {
			if rel.Embedded != nil {
				if err := validateVerificationMethod(rel.Embedded); err != nil {
					return err
				}
				continue
			}
			if !vmIDs[rel.Reference] {
				return fmt.Errorf("verification relationship references undefined method %q", rel.Reference)
			}
		}
	}

	serviceIDs := make(map[string]bool, len(doc.Service))
	for i := range doc.Service {
		svc := &doc.Service[i]
		if svc.ID == "" {
			return fmt.Errorf("service %d: missing id", i)
		}
		if svc.Type == "" {
			return fmt.Errorf("service %q: missing type", svc.ID)
		}
		if len(svc.ServiceEndpoint) == 0 {
			return fmt.Errorf("service %q: missing serviceEndpoint", svc.ID)
		}
		if serviceIDs[svc.ID] {
			return fmt.Errorf("duplicate service id %q", svc.ID)
		}
		serviceIDs[svc.ID] = true
	}

	return nil
}

func validateVerificationMethod(vm *VerificationMethod) error {
	if vm.ID == "" {
		return fmt.Errorf("verification method: missing id")
	}
	if !strings.HasPrefix(vm.ID, "did:") {
		return fmt.Errorf("verification method id %q must be a DID URL", vm.ID)
	}
	if _, err := ParseDidURL(vm.ID); err != nil {
		return fmt.Errorf("verification method id: %w", err)
	}
	if !knownKeyTypes[vm.Type] {
		return fmt.Errorf("verification method %q: unsupported type %q", vm.ID, vm.Type)
	}
	if vm.Controller == "" {
		return fmt.Errorf("verification method %q: missing controller", vm.ID)
	}
	if n := vm.keyMaterialCount(); n != 1 {
		return fmt.Errorf("verification method %q: expected exactly one key material field, got %d", vm.ID, n)
	}
	return nil
}

// IdentityAccount returns the account address the document id identifies.
func (doc *DIDDocument) IdentityAccount() (Account, error) {
	return DidAccount(doc.ID)
}

// NewBasicDIDDocument builds the minimal document the CLI and tests start
// from: base contexts, a single Ed25519 verification method keyed by
// multibase material and referenced from authentication.
func NewBasicDIDDocument(did string, publicKeyMultibase string) DIDDocument {
	keyID := did + "#KEY-1"
	return DIDDocument{
		Context: StringOrSet{ContextDidBase, ContextSecurityKeys},
		ID:      did,
		VerificationMethod: []VerificationMethod{{
			ID:                 keyID,
			Type:               Ed25519VerificationKey2018,
			Controller:         did,
			PublicKeyMultibase: publicKeyMultibase,
		}},
		Authentication: []VerificationRelationship{{Reference: keyID}},
	}
}
