package collections

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewHandler(newTestService(NewMemoryStore())).Routes())
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandler_Lifecycle(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, http.MethodPost, server.URL+"/", `{"name":"Sundial","loanable":true,"loan_fee":1000}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created Artefact
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	base := server.URL + "/" + strconv.Itoa(created.ID)

	resp = do(t, http.MethodPatch, base+"/loan", `{"active_loan_id":5}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPatch, base+"/loan", `{"active_loan_id":6}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got Artefact
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.NotNil(t, got.ActiveLoanID)
	assert.Equal(t, 5, *got.ActiveLoanID)

	resp = do(t, http.MethodPatch, base+"/loan", `{"active_loan_id":null}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_BadInput(t *testing.T) {
	server := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, server.URL+"/", `{"name":""}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, server.URL+"/", `{"title":"x"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, server.URL+"/abc", "").StatusCode)

	resp := do(t, http.MethodGet, server.URL+"/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []Artefact
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)
}
