// Package unl bridges the pure voting core in internal/core/nunl to the
// transaction engine: it defines the UNLModifyTx pseudo-transaction and
// applies it against ledger state at keylet.NegativeUNL().
package unl

import (
	entries "github.com/xrplf/nunld/internal/core/ledger/entry/entries"
	"github.com/xrplf/nunld/internal/core/ledger/keylet"
	"github.com/xrplf/nunld/internal/core/nunl"
	"github.com/xrplf/nunld/internal/core/tx"
)

// UNLModifyTx is the ttUNL_MODIFY pseudo-transaction: a protocol-injected
// vote to disable or re-enable one validator, carried in a flag ledger.
// It has no payer — Account, Fee, SigningPubKey, TxnSignature, Sequence,
// and AccountTxnID must all be their zero values.
type UNLModifyTx struct {
	tx.BaseTx

	// Disabling is true for a Disable vote, false for a ReEnable vote.
	Disabling bool

	// LedgerSequence must equal the enclosing (flag) ledger's sequence.
	LedgerSequence uint32

	// Validator is the master public key being voted on.
	Validator nunl.ValidatorKey
}

// NewUNLModifyTx constructs a well-formed UNLModifyTx.
func NewUNLModifyTx(disabling bool, ledgerSeq uint32, validator nunl.ValidatorKey) *UNLModifyTx {
	return &UNLModifyTx{
		BaseTx:         *tx.NewBaseTx(tx.TypeUNLModify, ""),
		Disabling:      disabling,
		LedgerSequence: ledgerSeq,
		Validator:      validator,
	}
}

// Validate overrides BaseTx.Validate: unlike every ordinary transaction,
// UNLModifyTx has no source account, so Common.Validate's "Account is
// required" rule does not apply here. The disallowed-field checks that
// matter (fee, signature, sequence, prior-txn) are enforced in Apply,
// because the engine never calls Validate for pseudo-transactions.
func (u *UNLModifyTx) Validate() error {
	if u.Common.TransactionType == "" {
		return tx.ErrMissingRequiredField
	}
	return nil
}

// Flatten returns the transaction as a flat map for serialization.
func (u *UNLModifyTx) Flatten() (map[string]any, error) {
	m := u.Common.ToMap()
	op := uint8(0)
	if u.Disabling {
		op = 1
	}
	m["LedgerSequence"] = u.LedgerSequence
	m["UNLModifyDisabling"] = op
	m["UNLModifyValidator"] = u.Validator.String()
	return m, nil
}

// Apply implements tx.Appliable. It performs the disallowed-field
// checks a preflight pass would normally do (Engine.applyPseudoTransaction
// never calls preflight for pseudo-transactions), then applies the
// modification to the NegativeUNL ledger entry via nunl.ApplyModification.
func (u *UNLModifyTx) Apply(ctx *tx.ApplyContext) tx.Result {
	if rejected := u.checkDisallowedFields(); rejected != tx.TesSUCCESS {
		return rejected
	}
	if u.LedgerSequence != ctx.Config.LedgerSequence {
		return tx.TemMALFORMED
	}

	window := ctx.Config.NegativeUNLWindow
	if window == 0 {
		window = nunl.DefaultFlagLedgerInterval
	}

	kl := keylet.NegativeUNL()
	raw, err := ctx.View.Read(kl)
	if err != nil {
		return tx.TefFAILURE
	}

	nUnlEntry := &entries.NegativeUNL{}
	if len(raw) > 0 {
		nUnlEntry, err = entries.DecodeNegativeUNL(raw)
		if err != nil {
			return tx.TefFAILURE
		}
	}
	state := nUnlEntry.ToState()

	mod := nunl.Modification{
		Seq:          ctx.Config.LedgerSequence,
		ValidatorKey: u.Validator,
	}
	if u.Disabling {
		mod.Op = nunl.OpDisable
	} else {
		mod.Op = nunl.OpReEnable
	}

	next, _, ok := nunl.ApplyModification(state, mod, window)
	if !ok {
		return tx.TefFAILURE
	}

	nUnlEntry.LoadFromState(next, ctx.Config.LedgerSequence)
	encoded := nUnlEntry.Encode()

	if len(raw) == 0 {
		if err := ctx.View.Insert(kl, encoded); err != nil {
			return tx.TefFAILURE
		}
	} else if err := ctx.View.Update(kl, encoded); err != nil {
		return tx.TefFAILURE
	}

	return tx.TesSUCCESS
}

// checkDisallowedFields enforces spec.md §4.6's preflight rule: an
// N-UNL modification is a protocol-injected pseudo-transaction without
// a payer, so none of the normal authorization fields may be present.
func (u *UNLModifyTx) checkDisallowedFields() tx.Result {
	c := u.GetCommon()
	switch {
	case c.Account != "":
		return tx.TemMALFORMED
	case c.Fee != "" && c.Fee != "0":
		return tx.TemMALFORMED
	case c.SigningPubKey != "":
		return tx.TemMALFORMED
	case c.TxnSignature != "":
		return tx.TemMALFORMED
	case c.GetSequence() != 0:
		return tx.TemMALFORMED
	case c.AccountTxnID != "":
		return tx.TemMALFORMED
	default:
		return tx.TesSUCCESS
	}
}
