package tour

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmss/internal/httpapi"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewHandler(newTestService(t, NewMemoryStore(), WithCapacity(20))).Routes())
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

func TestHandler_BookingFlow(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, http.MethodPost, server.URL+"/",
		`{"visitor_username":"alice","date":"2024-06-01","number_of_participants":15,"shift_time":"MORNING"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tour Tour
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tour))
	assert.Equal(t, "BOOKED", string(tour.Status))
	assert.Equal(t, "2024-06-01", tour.Date.String())
	base := server.URL + "/" + strconv.Itoa(tour.ID)

	resp = do(t, http.MethodPost, server.URL+"/",
		`{"visitor_username":"bob","date":"2024-06-01","number_of_participants":6,"shift_time":"MORNING"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body httpapi.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "validation", body.Error)
	assert.Equal(t, "number_of_participants", body.Field)

	resp = do(t, http.MethodGet, server.URL+"/availability?date=2024-06-01&shift=MORNING", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var avail Availability
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&avail))
	assert.Equal(t, 5, avail.Remaining)
	assert.Equal(t, ShiftMorning, avail.Shift)

	resp = do(t, http.MethodPut, base, `{"date":"2024-06-02","number_of_participants":12}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tour))
	assert.Equal(t, 12, tour.NumberOfParticipants)

	resp = do(t, http.MethodGet, server.URL+"/visitor?username=alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tours []Tour
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tours))
	assert.Len(t, tours, 1)

	resp = do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, base+"/history", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_BadInput(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad date", http.MethodPost, "/", `{"visitor_username":"alice","date":"June 1","number_of_participants":1,"shift_time":"MORNING"}`, http.StatusBadRequest},
		{"missing date", http.MethodPost, "/", `{"visitor_username":"alice","number_of_participants":1,"shift_time":"MORNING"}`, http.StatusBadRequest},
		{"unknown shift", http.MethodPost, "/", `{"visitor_username":"alice","date":"2024-06-01","number_of_participants":1,"shift_time":"NIGHT"}`, http.StatusBadRequest},
		{"missing visitor", http.MethodPost, "/", `{"date":"2024-06-01","number_of_participants":1,"shift_time":"MORNING"}`, http.StatusBadRequest},
		{"unknown visitor", http.MethodPost, "/", `{"visitor_username":"mallory","date":"2024-06-01","number_of_participants":1,"shift_time":"MORNING"}`, http.StatusNotFound},
		{"unknown visitor without date or shift", http.MethodPost, "/", `{"visitor_username":"mallory","number_of_participants":1}`, http.StatusNotFound},
		{"shift is immutable", http.MethodPut, "/1", `{"date":"2024-06-01","number_of_participants":1,"shift_time":"EVENING"}`, http.StatusBadRequest},
		{"unknown tour", http.MethodPut, "/7", `{"date":"2024-06-01","number_of_participants":1}`, http.StatusNotFound},
		{"unknown tour without date", http.MethodPut, "/7", `{"number_of_participants":1}`, http.StatusNotFound},
		{"availability without shift", http.MethodGet, "/availability?date=2024-06-01", "", http.StatusBadRequest},
		{"availability with bad shift", http.MethodGet, "/availability?date=2024-06-01&shift=NOON", "", http.StatusBadRequest},
		{"non-numeric id", http.MethodDelete, "/x", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, server.URL+tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
