package contracts

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry-backend/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSetBindsAllContracts(t *testing.T) {
	set := Default()

	names := []string{
		registry.RoleControlName,
		registry.ValidatorControlName,
		registry.DidRegistryName,
		registry.SchemaRegistryName,
		registry.CredentialDefinitionRegistryName,
		registry.RevocationRegistryName,
		registry.LegacyMappingRegistryName,
		registry.UpgradeControlName,
	}
	require.Len(t, set.Specs(), len(names))

	for _, name := range names {
		spec, ok := set.ByName(name)
		require.True(t, ok, "missing spec %s", name)
		assert.Equal(t, name, spec.Name)
		assert.NotEqual(t, common.Address{}, spec.Address)

		byAddr, ok := set.ByAddress(spec.Address)
		require.True(t, ok)
		assert.Same(t, spec, byAddr)
	}

	assert.Equal(t, DefaultAddresses, set.Addresses())

	_, ok := set.ByName("TokenRegistry")
	assert.False(t, ok)
	_, ok = set.ByAddress(common.HexToAddress("0x9999"))
	assert.False(t, ok)
}

func TestCustomAddressTable(t *testing.T) {
	addrs := DefaultAddresses
	addrs.DidRegistry = common.HexToAddress("0xabcd")

	set, err := New(addrs)
	require.NoError(t, err)

	spec, ok := set.ByName(registry.DidRegistryName)
	require.True(t, ok)
	assert.Equal(t, addrs.DidRegistry, spec.Address)

	_, ok = set.ByAddress(DefaultAddresses.DidRegistry)
	assert.False(t, ok)
}

func TestSelectorDispatch(t *testing.T) {
	set := Default()
	spec, ok := set.ByName(registry.SchemaRegistryName)
	require.True(t, ok)

	identity := common.HexToAddress("0x1234")
	id := common.HexToHash("0xc0ffee")
	schema := []byte(`{"name":"BasicIdentity"}`)

	calldata, err := spec.Pack("createSchema", identity, id, "did:ethr:0x1234", schema)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(calldata), 4)

	method, err := spec.MethodByID(calldata[:4])
	require.NoError(t, err)
	assert.Equal(t, "createSchema", method.Name)

	values, err := method.Inputs.Unpack(calldata[4:])
	require.NoError(t, err)
	require.Len(t, values, 4)
	assert.Equal(t, identity, values[0].(common.Address))
	assert.Equal(t, id, common.Hash(values[1].([32]byte)))
	assert.Equal(t, "did:ethr:0x1234", values[2].(string))
	assert.Equal(t, schema, values[3].([]byte))

	_, err = spec.MethodByID([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.Error(t, err)
}

func TestSignedVariantsDeclared(t *testing.T) {
	set := Default()

	signed := map[string][]string{
		registry.DidRegistryName:                  {"createDidSigned", "updateDidSigned", "deactivateDidSigned"},
		registry.SchemaRegistryName:               {"createSchemaSigned"},
		registry.CredentialDefinitionRegistryName: {"createCredentialDefinitionSigned"},
		registry.RevocationRegistryName: {
			"createRevocationRegistryDefinitionSigned",
			"suspendRevocationRegistrySigned",
			"reactivateRevocationRegistrySigned",
			"revokeRevocationRegistrySigned",
		},
		registry.LegacyMappingRegistryName: {"createDidMappingSigned", "createResourceMappingSigned"},
	}

	for contract, methods := range signed {
		spec, ok := set.ByName(contract)
		require.True(t, ok, contract)
		for _, name := range methods {
			method, ok := spec.ABI.Methods[name]
			require.True(t, ok, "%s is missing %s", contract, name)

			// Endorsed variants carry the split signature right after
			// the identity argument.
			require.GreaterOrEqual(t, len(method.Inputs), 4, "%s.%s", contract, name)
			assert.Equal(t, "sigV", method.Inputs[1].Name, "%s.%s", contract, name)
			assert.Equal(t, "sigR", method.Inputs[2].Name, "%s.%s", contract, name)
			assert.Equal(t, "sigS", method.Inputs[3].Name, "%s.%s", contract, name)
		}
	}
}

func TestErrorCatalogueMatchesSpecs(t *testing.T) {
	set := Default()

	declared := map[string]string{}
	for _, spec := range set.Specs() {
		for _, abiErr := range spec.ABI.Errors {
			code, ok := registry.CodeByName(abiErr.Name)
			require.True(t, ok, "%s declares %s without a ledger code", spec.Name, abiErr.Name)
			assert.Equal(t, code.Signature, abiErr.Sig, "%s.%s", spec.Name, abiErr.Name)

			if prev, seen := declared[abiErr.Name]; seen {
				assert.Equal(t, prev, abiErr.Sig, "%s redeclares %s differently", spec.Name, abiErr.Name)
			}
			declared[abiErr.Name] = abiErr.Sig
		}
	}

	for _, code := range registry.Codes() {
		_, ok := declared[code.Name]
		assert.True(t, ok, "ledger code %s missing from every contract spec", code.Name)
	}
}

func TestErrorSelectorsAreUnique(t *testing.T) {
	set := Default()

	byID := map[[4]byte]string{}
	for _, spec := range set.Specs() {
		for _, abiErr := range spec.ABI.Errors {
			var selector [4]byte
			copy(selector[:], abiErr.ID[:4])
			if name, seen := byID[selector]; seen {
				assert.Equal(t, name, abiErr.Name, "selector collision between %s and %s", name, abiErr.Name)
				continue
			}
			byID[selector] = abiErr.Name
		}
	}
}
