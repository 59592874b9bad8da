package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xueqianLu/dappdash/internal/config"
	"github.com/xueqianLu/dappdash/internal/dapp"
	"github.com/xueqianLu/dappdash/internal/format"
	"github.com/xueqianLu/dappdash/internal/metrics"
	"github.com/xueqianLu/dappdash/internal/signer"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, name string, data dapp.ActionData) (*dapp.Envelope, error) {
	ret := m.Called(name, data)
	env, _ := ret.Get(0).(*dapp.Envelope)
	return env, ret.Error(1)
}

type mockKeys struct {
	mock.Mock
}

func (m *mockKeys) Accounts() []common.Address {
	return m.Called().Get(0).([]common.Address)
}

func (m *mockKeys) CreateKey(ctx context.Context) (common.Address, error) {
	ret := m.Called()
	return ret.Get(0).(common.Address), ret.Error(1)
}

func actionMux(runner ActionRunner) *http.ServeMux {
	f := format.NewFormatter(config.IPFSConfig{Protocol: "https", Host: "ipfs.io"})
	mux := http.NewServeMux()
	mux.Handle("POST /actions/{action}", NewActionHandler(runner, f, zap.NewNop(), metrics.New()))
	return mux
}

func decodeAction(t *testing.T, rec *httptest.ResponseRecorder) ActionResponse {
	t.Helper()
	var resp ActionResponse
	dec := json.NewDecoder(rec.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAccounts(t *testing.T) {
	keys := &mockKeys{}
	a := common.HexToAddress("0x01")
	keys.On("Accounts").Return([]common.Address{a})
	keys.On("CreateKey").Return(common.HexToAddress("0x02"), nil).Once()
	keys.On("CreateKey").Return(common.Address{}, errors.New("vault sealed")).Once()

	rec := httptest.NewRecorder()
	NewAccountsHandler(keys, zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts", nil))
	assert.JSONEq(t, `["`+a.Hex()+`"]`, rec.Body.String())

	create := NewCreateAccountHandler(keys, zap.NewNop())
	rec = httptest.NewRecorder()
	create.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accounts", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"address":"`+common.HexToAddress("0x02").Hex()+`"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	create.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accounts", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "vault sealed")
}

func TestListActions(t *testing.T) {
	rec := httptest.NewRecorder()
	NewListActionsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions", nil))
	var list []ActionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, len(dapp.Actions()))
	assert.Contains(t, list, ActionInfo{Name: "transfer", Method: dapp.MethodPost})
}

func TestAction_Success(t *testing.T) {
	runner := &mockRunner{}
	data := dapp.ActionData{From: "0xabc", Account: "0xdef"}
	runner.On("Run", "balanceOf", data).Return(&dapp.Envelope{
		Type:       dapp.ResultBigNumber,
		Label:      "Balance",
		Result:     big.NewInt(5000000),
		UnitResult: big.NewInt(5),
	}, nil)

	mux := actionMux(runner)
	body := `{"from":"0xabc","account":"0xdef"}`

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/balanceOf", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAction(t, rec)
	assert.Equal(t, json.Number("5000000"), resp.Envelope.Result)
	assert.Contains(t, resp.HTML, "5,000,000")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/balanceOf?return=unitResult", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeAction(t, rec)
	assert.Contains(t, resp.HTML, `title="5">5<`)
	runner.AssertExpectations(t)
}

func TestAction_EmptyBody(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Run", "getStateCounter", dapp.ActionData{}).
		Return(&dapp.Envelope{Type: dapp.ResultBigNumber, Label: "State Counter", Result: "3"}, nil)

	rec := httptest.NewRecorder()
	actionMux(runner).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/getStateCounter", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAction_BadRequests(t *testing.T) {
	runner := &mockRunner{}
	mux := actionMux(runner)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/mint", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/balance?return=raw", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/balance", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestAction_ErrorEnvelope(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Run", "transfer", mock.Anything).Return(nil, errors.New("execution reverted: paused"))
	runner.On("Run", "balance", mock.Anything).Return(nil, signer.ErrNoAccount)

	mux := actionMux(runner)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/transfer", strings.NewReader(`{"amount":"1"}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeAction(t, rec)
	assert.Equal(t, dapp.ResultError, resp.Envelope.Type)
	assert.Contains(t, resp.HTML, `<span class="red-text">execution reverted: paused</span>`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/balance", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, errorStatus(dapp.ErrInvalidAmount))
	assert.Equal(t, http.StatusGatewayTimeout, errorStatus(context.DeadlineExceeded))
	assert.Equal(t, http.StatusBadGateway, errorStatus(errors.New("connection refused")))
}
