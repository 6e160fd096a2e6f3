package node

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry-backend/contracts"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
)

type execResult struct {
	output   []byte
	contract string
	method   string
	err      error
}

// execute resolves the target contract and method from calldata and runs
// the registry operation. Read methods return ABI-packed outputs; write
// methods return empty output on success.
func (l *Ledger) execute(regs *registry.Registries, txctx registry.TxContext, to common.Address, data []byte) execResult {
	spec, ok := l.set.ByAddress(to)
	if !ok {
		return execResult{contract: "unknown", method: "unknown", err: fmt.Errorf("no contract at %s", to.Hex())}
	}
	if len(data) < 4 {
		return execResult{contract: spec.Name, method: "unknown", err: fmt.Errorf("calldata shorter than a selector")}
	}
	method, err := spec.MethodByID(data[:4])
	if err != nil {
		return execResult{contract: spec.Name, method: "unknown", err: fmt.Errorf("contract %s: %w", spec.Name, err)}
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return execResult{contract: spec.Name, method: method.Name, err: fmt.Errorf("unpacking %s.%s calldata: %w", spec.Name, method.Name, err)}
	}

	output, err := dispatch(regs, txctx, spec.Name, method, values)
	return execResult{output: output, contract: spec.Name, method: method.Name, err: err}
}

func dispatch(regs *registry.Registries, txctx registry.TxContext, contract string, method *abi.Method, values []any) ([]byte, error) {
	switch contract {
	case registry.RoleControlName:
		return dispatchRoleControl(regs.Roles, txctx, method, values)
	case registry.ValidatorControlName:
		return dispatchValidatorControl(regs.Validators, txctx, method, values)
	case registry.DidRegistryName:
		return dispatchDidRegistry(regs.Dids, txctx, method, values)
	case registry.SchemaRegistryName:
		return dispatchSchemaRegistry(regs.Schemas, txctx, method, values)
	case registry.CredentialDefinitionRegistryName:
		return dispatchCredDefRegistry(regs.CredDefs, txctx, method, values)
	case registry.RevocationRegistryName:
		return dispatchRevocationRegistry(regs.Revocations, txctx, method, values)
	case registry.LegacyMappingRegistryName:
		return dispatchMappingRegistry(regs.Mappings, txctx, method, values)
	case registry.UpgradeControlName:
		return dispatchUpgradeControl(regs.Upgrades, txctx, method, values)
	default:
		return nil, fmt.Errorf("no dispatcher for contract %s", contract)
	}
}

// Calldata accessors. The values slice comes from the method's own ABI
// inputs, so the assertions hold by construction.

func addressArg(values []any, i int) common.Address {
	return values[i].(common.Address)
}

func hashArg(values []any, i int) common.Hash {
	return common.Hash(values[i].([32]byte))
}

func stringArg(values []any, i int) string {
	return values[i].(string)
}

func bytesArg(values []any, i int) []byte {
	return values[i].([]byte)
}

func uint8Arg(values []any, i int) uint8 {
	return values[i].(uint8)
}

// signatureArg reads the split endorsement signature every *Signed method
// declares at positions 1..3, after the identity.
func signatureArg(values []any) interfaces.SignatureData {
	return interfaces.SignatureData{
		V: values[1].(uint8),
		R: values[2].([32]byte),
		S: values[3].([32]byte),
	}
}

func dispatchRoleControl(roles *registry.RoleControl, txctx registry.TxContext, method *abi.Method, values []any) ([]byte, error) {
	switch method.Name {
	case "assignRole":
		return nil, roles.AssignRole(txctx, interfaces.Role(uint8Arg(values, 0)), addressArg(values, 1))
	case "revokeRole":
		return nil, roles.RevokeRole(txctx, interfaces.Role(uint8Arg(values, 0)), addressArg(values, 1))
	case "getRole":
		role, err := roles.GetRole(addressArg(values, 0))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(uint8(role))
	case "hasRole":
		has, err := roles.HasRole(interfaces.Role(uint8Arg(values, 0)), addressArg(values, 1))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(has)
	case "getRoleCount":
		count, err := roles.RoleCount(interfaces.Role(uint8Arg(values, 0)))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(count)
	default:
		return nil, fmt.Errorf("unhandled method RoleControl.%s", method.Name)
	}
}

func dispatchValidatorControl(validators *registry.ValidatorControl, txctx registry.TxContext, method *abi.Method, values []any) ([]byte, error) {
	switch method.Name {
	case "addValidator":
		return nil, validators.AddValidator(txctx, addressArg(values, 0))
	case "removeValidator":
		return nil, validators.RemoveValidator(txctx, addressArg(values, 0))
	case "getValidators":
		list, err := validators.GetValidators()
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(list)
	default:
		return nil, fmt.Errorf("unhandled method ValidatorControl.%s", method.Name)
	}
}

func dispatchDidRegistry(dids *registry.DidRegistry, txctx registry.TxContext, method *abi.Method, values []any) ([]byte, error) {
	switch method.Name {
	case "createDid":
		return nil, dids.CreateDid(txctx, addressArg(values, 0), bytesArg(values, 1))
	case "createDidSigned":
		return nil, dids.CreateDidSigned(txctx, addressArg(values, 0), signatureArg(values), bytesArg(values, 4))
	case "updateDid":
		return nil, dids.UpdateDid(txctx, addressArg(values, 0), bytesArg(values, 1))
	case "updateDidSigned":
		return nil, dids.UpdateDidSigned(txctx, addressArg(values, 0), signatureArg(values), bytesArg(values, 4))
	case "deactivateDid":
		return nil, dids.DeactivateDid(txctx, addressArg(values, 0))
	case "deactivateDidSigned":
		return nil, dids.DeactivateDidSigned(txctx, addressArg(values, 0), signatureArg(values))
	case "resolveDid":
		record, err := dids.ResolveDid(addressArg(values, 0))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(contracts.DidRecordToWire(record))
	default:
		return nil, fmt.Errorf("unhandled method DidRegistry.%s", method.Name)
	}
}

func dispatchSchemaRegistry(schemas *registry.SchemaRegistry, txctx registry.TxContext, method *abi.Method, values []any) ([]byte, error) {
	switch method.Name {
	case "createSchema":
		return nil, schemas.CreateSchema(txctx, addressArg(values, 0), hashArg(values, 1), stringArg(values, 2), bytesArg(values, 3))
	case "createSchemaSigned":
		return nil, schemas.CreateSchemaSigned(txctx, addressArg(values, 0), signatureArg(values), hashArg(values, 4), stringArg(values, 5), bytesArg(values, 6))
	case "resolveSchema":
		record, err := schemas.ResolveSchema(hashArg(values, 0))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(contracts.SchemaRecordToWire(record))
	default:
		return nil, fmt.Errorf("unhandled method SchemaRegistry.%s", method.Name)
	}
}

func dispatchCredDefRegistry(credDefs *registry.CredentialDefinitionRegistry, txctx registry.TxContext, method *abi.Method, values []any) ([]byte, error) {
	switch method.Name {
	case "createCredentialDefinition":
		return nil, credDefs.CreateCredentialDefinition(txctx, addressArg(values, 0), hashArg(values, 1), stringArg(values, 2), hashArg(values, 3), bytesArg(values, 4))
	case "createCredentialDefinitionSigned":
		return nil, credDefs.CreateCredentialDefinitionSigned(txctx, addressArg(values, 0), signatureArg(values), hashArg(values, 4), stringArg(values, 5), hashArg(values, 6), bytesArg(values, 7))
	case "resolveCredentialDefinition":
		record, err := credDefs.ResolveCredentialDefinition(hashArg(values, 0))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(contracts.CredentialDefinitionRecordToWire(record))
	default:
		return nil, fmt.Errorf("unhandled method CredentialDefinitionRegistry.%s", method.Name)
	}
}

func dispatchRevocationRegistry(revocations *registry.RevocationRegistry, txctx registry.TxContext, method *abi.Method, values []any) ([]byte, error) {
	switch method.Name {
	case "createRevocationRegistryDefinition":
		return nil, revocations.CreateRevocationRegistryDefinition(txctx, addressArg(values, 0), hashArg(values, 1), hashArg(values, 2), stringArg(values, 3), bytesArg(values, 4))
	case "createRevocationRegistryDefinitionSigned":
		return nil, revocations.CreateRevocationRegistryDefinitionSigned(txctx, addressArg(values, 0), signatureArg(values), hashArg(values, 4), hashArg(values, 5), stringArg(values, 6), bytesArg(values, 7))
	case "suspendRevocationRegistry":
		return nil, revocations.SuspendRevocationRegistry(txctx, addressArg(values, 0), hashArg(values, 1))
	case "suspendRevocationRegistrySigned":
		return nil, revocations.SuspendRevocationRegistrySigned(txctx, addressArg(values, 0), signatureArg(values), hashArg(values, 4))
	case "reactivateRevocationRegistry":
		return nil, revocations.ReactivateRevocationRegistry(txctx, addressArg(values, 0), hashArg(values, 1))
	case "reactivateRevocationRegistrySigned":
		return nil, revocations.ReactivateRevocationRegistrySigned(txctx, addressArg(values, 0), signatureArg(values), hashArg(values, 4))
	case "revokeRevocationRegistry":
		return nil, revocations.RevokeRevocationRegistry(txctx, addressArg(values, 0), hashArg(values, 1))
	case "revokeRevocationRegistrySigned":
		return nil, revocations.RevokeRevocationRegistrySigned(txctx, addressArg(values, 0), signatureArg(values), hashArg(values, 4))
	case "createRevocationRegistryEntry":
		wire := *abi.ConvertType(values[3], new(contracts.RevocationEntryWire)).(*contracts.RevocationEntryWire)
		return nil, revocations.CreateRevocationRegistryEntry(txctx, addressArg(values, 0), hashArg(values, 1), stringArg(values, 2), contracts.EntryFromWire(wire))
	case "resolveRevocationRegistryDefinition":
		record, err := revocations.ResolveRevocationRegistryDefinition(hashArg(values, 0))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(contracts.RevocationRecordToWire(record))
	case "getLatestAccumulator":
		accum, err := revocations.LatestAccumulator(hashArg(values, 0))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(accum)
	default:
		return nil, fmt.Errorf("unhandled method RevocationRegistry.%s", method.Name)
	}
}

func dispatchMappingRegistry(mappings *registry.LegacyMappingRegistry, txctx registry.TxContext, method *abi.Method, values []any) ([]byte, error) {
	switch method.Name {
	case "createDidMapping":
		return nil, mappings.CreateDidMapping(txctx, addressArg(values, 0), stringArg(values, 1), stringArg(values, 2), bytesArg(values, 3), bytesArg(values, 4))
	case "createDidMappingSigned":
		return nil, mappings.CreateDidMappingSigned(txctx, addressArg(values, 0), signatureArg(values), stringArg(values, 4), stringArg(values, 5), bytesArg(values, 6), bytesArg(values, 7))
	case "createResourceMapping":
		return nil, mappings.CreateResourceMapping(txctx, addressArg(values, 0), stringArg(values, 1), stringArg(values, 2), stringArg(values, 3))
	case "createResourceMappingSigned":
		return nil, mappings.CreateResourceMappingSigned(txctx, addressArg(values, 0), signatureArg(values), stringArg(values, 4), stringArg(values, 5), stringArg(values, 6))
	case "didMapping":
		mapped, err := mappings.GetDidMapping(stringArg(values, 0))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(mapped)
	case "resourceMapping":
		mapped, err := mappings.GetResourceMapping(stringArg(values, 0))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(mapped)
	default:
		return nil, fmt.Errorf("unhandled method LegacyMappingRegistry.%s", method.Name)
	}
}

func dispatchUpgradeControl(upgrades *registry.UpgradeControl, txctx registry.TxContext, method *abi.Method, values []any) ([]byte, error) {
	switch method.Name {
	case "propose":
		return nil, upgrades.Propose(txctx, addressArg(values, 0), addressArg(values, 1))
	case "approve":
		return nil, upgrades.Approve(txctx, addressArg(values, 0), addressArg(values, 1))
	case "ensureSufficientApprovals":
		return nil, upgrades.EnsureSufficientApprovals(addressArg(values, 0), addressArg(values, 1))
	case "getProposal":
		proposal, err := upgrades.Proposal(addressArg(values, 0), addressArg(values, 1))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(contracts.ProposalToWire(proposal))
	case "getActiveImplementation":
		impl, err := upgrades.ActiveImplementation(addressArg(values, 0))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(impl)
	default:
		return nil, fmt.Errorf("unhandled method UpgradeControl.%s", method.Name)
	}
}
