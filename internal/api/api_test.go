package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-legal/casebook-cli/internal/model"
	"github.com/meridian-legal/casebook-cli/internal/pipeline"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	s := NewServer(filepath.Join(dir, "consolidated.json"), filepath.Join(dir, "checkpoint.json"))
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return srv, dir
}

func getJSON(t *testing.T, rawURL string, out any) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	status := getJSON(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestCases_NoOutputYet(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/cases")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// An empty run serves an empty list, not null.
	assert.JSONEq(t, "[]", string(raw))
}

func TestCases(t *testing.T) {
	srv, dir := newTestServer(t)

	cases := []*model.ConsolidatedCase{
		{CaseID: "smith v. jones_2019", CaseName: "Smith v. Jones", Year: model.Int(2019)},
		{CaseID: "lee v. chan_2020", CaseName: "Lee v. Chan", Year: model.Int(2020)},
	}
	require.NoError(t, pipeline.WriteCases(filepath.Join(dir, "consolidated.json"), cases))

	var got []*model.ConsolidatedCase
	status := getJSON(t, srv.URL+"/api/cases", &got)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, got, 2)
	assert.Equal(t, "smith v. jones_2019", got[0].CaseID)
	assert.Equal(t, "lee v. chan_2020", got[1].CaseID)
}

func TestCases_CorruptOutput(t *testing.T) {
	srv, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "consolidated.json"), []byte("not json"), 0o644))

	var body map[string]string
	status := getJSON(t, srv.URL+"/api/cases", &body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "cannot read case output", body["error"])
}

func TestCaseByID(t *testing.T) {
	srv, dir := newTestServer(t)

	cases := []*model.ConsolidatedCase{
		{CaseID: "smith v. jones_2019", CaseName: "Smith v. Jones", Year: model.Int(2019)},
	}
	require.NoError(t, pipeline.WriteCases(filepath.Join(dir, "consolidated.json"), cases))

	var got model.ConsolidatedCase
	status := getJSON(t, srv.URL+"/api/cases/"+url.PathEscape("smith v. jones_2019"), &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Smith v. Jones", got.CaseName)
	assert.Equal(t, 2019, got.Year.Value)
}

func TestCaseByID_NotFound(t *testing.T) {
	srv, dir := newTestServer(t)
	require.NoError(t, pipeline.WriteCases(filepath.Join(dir, "consolidated.json"), nil))

	var body map[string]string
	status := getJSON(t, srv.URL+"/api/cases/unknown_1999", &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "case not found", body["error"])
}

func TestStatus_NoCheckpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var got statusResponse
	status := getJSON(t, srv.URL+"/api/status", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, got.CheckpointPresent)
}

func TestStatus(t *testing.T) {
	srv, dir := newTestServer(t)

	cp := model.Checkpoint{
		LastUnitProcessed: 17,
		CaseCount:         42,
		DuplicateCount:    3,
		Timestamp:         1724300000.5,
	}
	require.NoError(t, pipeline.WriteCheckpoint(filepath.Join(dir, "checkpoint.json"), cp))

	var got statusResponse
	status := getJSON(t, srv.URL+"/api/status", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, got.CheckpointPresent)
	assert.Equal(t, 17, got.LastUnitProcessed)
	assert.Equal(t, 42, got.CaseCount)
	assert.Equal(t, 3, got.DuplicateCount)
	assert.Equal(t, 1724300000.5, got.Timestamp)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/cases", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
