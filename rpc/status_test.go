package rpc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/libs/log"

	"dualbft/clock"
	"dualbft/consensus"
	"dualbft/crypto/blskey"
	"dualbft/libs/metric"
	"dualbft/types"
	"dualbft/wire"
)

type testWallet struct{ priv *blskey.PrivKey }

func (w testWallet) Address() types.Address          { return types.AddressFromPubKey(w.priv.PubKey()) }
func (w testWallet) PubKey() crypto.PubKey           { return w.priv.PubKey() }
func (w testWallet) Sign(msg []byte) ([]byte, error) { return w.priv.Sign(msg) }

type fakeMempool struct{}

func (fakeMempool) GetOrderedTxs(limit int) []types.Tx   { return nil }
func (fakeMempool) Lookup(h types.Hash) (types.Tx, bool) { return nil, false }

type fakeLedger struct{}

func (fakeLedger) Verify(tx types.Tx, slot types.SlotID) error { return nil }
func (fakeLedger) Reverify(env *wire.Envelope) error           { return nil }
func (fakeLedger) SubmitBlock(block *types.Block) error        { return nil }
func (fakeLedger) MedianTime() time.Time                       { return time.Unix(0, 0) }

type fakeTransport struct{}

func (fakeTransport) Broadcast(env *wire.Envelope)                  {}
func (fakeTransport) SendDirect(peerIndex int, env *wire.Envelope)  {}
func (fakeTransport) RequestTx(peerIndex int, hash types.Hash)      {}

func newTestEnvironment(t *testing.T) {
	t.Helper()
	priv := blskey.GenPrivKey()
	wallet := testWallet{priv: priv}
	val := &types.Validator{Address: wallet.Address(), PubKey: priv.PubKey()}
	vs := types.NewValidatorSet([]*types.Validator{val})

	params := consensus.Params{MillisecondsPerBlock: 1000, PrimaryTimerMultiplier: 2, MaxTxPerBlock: 10}
	ctx := consensus.NewContext("test-chain", vs, 0, wallet, clock.NewFixed(time.Now()), fakeMempool{}, fakeLedger{}, params, log.NewNopLogger())
	ctx.Reset(1, 0, nil)

	svc := consensus.NewService(ctx, nil, fakeTransport{})
	svc.SetLogger(log.NewNopLogger())

	ms := metric.NewMetricSet()
	ms.SetMetrics("consensus", svc.AsMetricItem())

	SetEnvironment(&Environment{Service: svc, MetricSet: ms})
}

func TestHandleStatusWritesMetricJSON(t *testing.T) {
	newTestEnvironment(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"round"`) {
		t.Fatalf("body = %q, missing round field", rec.Body.String())
	}
}

func TestHandleRoundWritesRoundSummary(t *testing.T) {
	newTestEnvironment(t)

	req := httptest.NewRequest(http.MethodGet, "/round", nil)
	rec := httptest.NewRecorder()
	handleRound(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"height"`) {
		t.Fatalf("body = %q, missing height field", rec.Body.String())
	}
}
