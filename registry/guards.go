package registry

import (
	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// resolveActor returns the authenticated actor of an operation. Direct
// calls authenticate the transaction sender. Endorsed calls recover the
// signer of the operation's canonical digest and require it to be the
// endorsed identity.
func resolveActor(tx TxContext, identity interfaces.Account, sig *interfaces.SignatureData, digest func() [32]byte) (interfaces.Account, error) {
	if sig == nil {
		return tx.Sender, nil
	}
	if sig.IsZero() {
		return interfaces.Account{}, ErrAuthenticationFailed.With(interfaces.Account{}, identity)
	}
	recovered, err := endorsement.RecoverSigner(digest(), *sig)
	if err != nil {
		return interfaces.Account{}, ErrAuthenticationFailed.With(interfaces.Account{}, identity)
	}
	if recovered != identity {
		return interfaces.Account{}, ErrAuthenticationFailed.With(recovered, identity)
	}
	return identity, nil
}

// requireIdentity rejects actors other than the identity itself.
func requireIdentity(actor, identity interfaces.Account) error {
	if actor != identity {
		return ErrNotIdentityOwner.With(actor, identity)
	}
	return nil
}

// requireOwnerOrTrustee allows the record owner and any trustee.
func requireOwnerOrTrustee(roles *RoleControl, actor, owner interfaces.Account) error {
	if actor == owner {
		return nil
	}
	isTrustee, err := roles.HasRole(interfaces.RoleTrustee, actor)
	if err != nil {
		return err
	}
	if !isTrustee {
		return ErrNotIdentityOwner.With(actor, owner)
	}
	return nil
}
