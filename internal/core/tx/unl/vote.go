package unl

import "github.com/xrplf/nunld/internal/core/nunl"

// TransactionsForVote turns a completed C4 vote into the pseudo-
// transactions that carry it: zero, one, or two UNLModifyTx values, one
// per non-nil slot, each stamped with ledgerSeq (spec.md §4.4 steps
// 6-7: C4 "construct[s] one disable/re-enable transaction").
func TransactionsForVote(vote nunl.Vote, ledgerSeq uint32) []*UNLModifyTx {
	mods := vote.Modifications(ledgerSeq)
	if len(mods) == 0 {
		return nil
	}
	txs := make([]*UNLModifyTx, 0, len(mods))
	for _, mod := range mods {
		txs = append(txs, NewUNLModifyTx(mod.Op == nunl.OpDisable, ledgerSeq, mod.ValidatorKey))
	}
	return txs
}
