// Package interfaces defines core types and interfaces shared by the ledger
// node, the registry state machines and the client SDK, separating type
// definitions from implementations.
//
// # Identity Types
//
// Account: 20-byte ledger account address, the identity every registry
// record is keyed or owned by.
//
// Role: on-ledger permission level (trustee, endorser, steward) granted and
// revoked through the RoleControl registry.
//
// SignatureData: a secp256k1 recoverable signature in (v, r, s) form, used
// both for transaction signing and for endorsement of writes submitted on
// behalf of another identity.
//
// # DID Types
//
// DID syntax follows did:(besu|ethr) with an optional network component and
// an account address as the method-specific identifier. DIDDocument models
// the JSON document stored by the DID registry together with its structural
// validation rules.
//
// # Registry Records
//
// Each registry stores records pairing an opaque payload with
// ResourceMetadata (owner, sender, created, updated, version). A zero
// Created timestamp is the canonical absence sentinel. Payload types
// (Schema, CredentialDefinition, RevocationRegistryDefinition) carry their
// own structural validation and canonical identifier derivation.
//
// # Infrastructure Interfaces
//
// StateStore: the key-value store the registry modules run against,
// implemented in-memory and on bbolt.
//
// LedgerBackend: the read/submit surface of a ledger node, implemented by
// the JSON-RPC client transport and by the in-process development node.
//
// TransactionSigner: signing backends (in-memory, encrypted keystore,
// Vault) producing SignatureData over 32-byte digests.
package interfaces
