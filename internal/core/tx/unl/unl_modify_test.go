package unl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrplf/nunld/internal/core/ledger/entry/entries"
	"github.com/xrplf/nunld/internal/core/ledger/keylet"
	"github.com/xrplf/nunld/internal/core/nunl"
	"github.com/xrplf/nunld/internal/core/tx"
	"github.com/xrplf/nunld/internal/core/XRPAmount"
)

// mockLedgerView mirrors the fake used across internal/core/tx's own
// Apply tests (see amendment_test.go's mockLedgerView).
type mockLedgerView struct {
	data map[[32]byte][]byte
}

func newMockLedgerView() *mockLedgerView {
	return &mockLedgerView{data: make(map[[32]byte][]byte)}
}

func (m *mockLedgerView) Read(k keylet.Keylet) ([]byte, error) {
	return m.data[k.Key], nil
}

func (m *mockLedgerView) Exists(k keylet.Keylet) (bool, error) {
	_, ok := m.data[k.Key]
	return ok, nil
}

func (m *mockLedgerView) Insert(k keylet.Keylet, data []byte) error {
	m.data[k.Key] = data
	return nil
}

func (m *mockLedgerView) Update(k keylet.Keylet, data []byte) error {
	m.data[k.Key] = data
	return nil
}

func (m *mockLedgerView) Erase(k keylet.Keylet) error {
	delete(m.data, k.Key)
	return nil
}

func (m *mockLedgerView) AdjustDropsDestroyed(XRPAmount.XRPAmount) {}

func (m *mockLedgerView) ForEach(fn func(key [32]byte, data []byte) bool) error {
	for k, v := range m.data {
		if !fn(k, v) {
			break
		}
	}
	return nil
}

func newApplyContext(view tx.LedgerView, ledgerSeq uint32) *tx.ApplyContext {
	return &tx.ApplyContext{
		View:     view,
		Config:   tx.EngineConfig{LedgerSequence: ledgerSeq},
		Metadata: &tx.Metadata{},
	}
}

func testKey(b byte) nunl.ValidatorKey {
	var k nunl.ValidatorKey
	k[len(k)-1] = b
	return k
}

func TestUNLModifyTx_Apply_DisableOnCleanState(t *testing.T) {
	view := newMockLedgerView()
	ctx := newApplyContext(view, 256)

	txn := NewUNLModifyTx(true, 256, testKey(1))
	result := txn.Apply(ctx)

	assert.Equal(t, tx.TesSUCCESS, result)

	raw, err := view.Read(keylet.NegativeUNL())
	require.NoError(t, err)
	entry, err := entries.DecodeNegativeUNL(raw)
	require.NoError(t, err)
	require.NotNil(t, entry.ValidatorToDisable)
	assert.Equal(t, [33]byte(testKey(1)), *entry.ValidatorToDisable)
	assert.Empty(t, entry.DisabledValidators)
}

// S7: a Disable when toDisable is already set is rejected.
func TestUNLModifyTx_Apply_RejectsSlotOccupied(t *testing.T) {
	view := newMockLedgerView()
	occupied := &entries.NegativeUNL{ValidatorToDisable: ptr33(testKey(9))}
	view.Insert(keylet.NegativeUNL(), occupied.Encode())

	ctx := newApplyContext(view, 256)
	txn := NewUNLModifyTx(true, 256, testKey(1))
	result := txn.Apply(ctx)

	assert.Equal(t, tx.TefFAILURE, result)
}

func TestUNLModifyTx_Apply_RejectsNonFlagLedger(t *testing.T) {
	view := newMockLedgerView()
	ctx := newApplyContext(view, 257)

	txn := NewUNLModifyTx(true, 257, testKey(1))
	result := txn.Apply(ctx)

	assert.Equal(t, tx.TefFAILURE, result)
}

func TestUNLModifyTx_Apply_RejectsMismatchedLedgerSequence(t *testing.T) {
	view := newMockLedgerView()
	ctx := newApplyContext(view, 256)

	txn := NewUNLModifyTx(true, 512, testKey(1))
	result := txn.Apply(ctx)

	assert.Equal(t, tx.TemMALFORMED, result)
}

func TestUNLModifyTx_Apply_RejectsDisallowedAccount(t *testing.T) {
	view := newMockLedgerView()
	ctx := newApplyContext(view, 256)

	txn := NewUNLModifyTx(true, 256, testKey(1))
	txn.Common.Account = "rSomeAccount"
	result := txn.Apply(ctx)

	assert.Equal(t, tx.TemMALFORMED, result)
}

func TestUNLModifyTx_Apply_RejectsNonZeroFee(t *testing.T) {
	view := newMockLedgerView()
	ctx := newApplyContext(view, 256)

	txn := NewUNLModifyTx(true, 256, testKey(1))
	txn.Common.Fee = "10"
	result := txn.Apply(ctx)

	assert.Equal(t, tx.TemMALFORMED, result)
}

func TestUNLModifyTx_Apply_RejectsPresentSignature(t *testing.T) {
	view := newMockLedgerView()
	ctx := newApplyContext(view, 256)

	txn := NewUNLModifyTx(true, 256, testKey(1))
	txn.Common.TxnSignature = "DEADBEEF"
	result := txn.Apply(ctx)

	assert.Equal(t, tx.TemMALFORMED, result)
}

func TestUNLModifyTx_Apply_ReEnableRoundTrip(t *testing.T) {
	view := newMockLedgerView()

	disable := NewUNLModifyTx(true, 256, testKey(1))
	require.Equal(t, tx.TesSUCCESS, disable.Apply(newApplyContext(view, 256)))

	raw, _ := view.Read(keylet.NegativeUNL())
	entry, err := entries.DecodeNegativeUNL(raw)
	require.NoError(t, err)
	state := entry.ToState()
	state = nunl.ApplyFlagTransition(state)
	entry.LoadFromState(state, 256)
	view.Update(keylet.NegativeUNL(), entry.Encode())

	reenable := NewUNLModifyTx(false, 512, testKey(1))
	result := reenable.Apply(newApplyContext(view, 512))
	assert.Equal(t, tx.TesSUCCESS, result)

	raw, _ = view.Read(keylet.NegativeUNL())
	entry, err = entries.DecodeNegativeUNL(raw)
	require.NoError(t, err)
	require.NotNil(t, entry.ValidatorToReEnable)
	assert.Equal(t, [33]byte(testKey(1)), *entry.ValidatorToReEnable)
	assert.True(t, entry.Contains([33]byte(testKey(1))), "still listed until the next flag transition")
}

func TestUNLModifyTx_Validate_AllowsEmptyAccount(t *testing.T) {
	txn := NewUNLModifyTx(true, 256, testKey(1))
	assert.NoError(t, txn.Validate())
}

func ptr33(k nunl.ValidatorKey) *[33]byte {
	raw := [33]byte(k)
	return &raw
}
