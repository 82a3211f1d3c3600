package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/parisxmas/crowdtest/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2026, 10, 19, 14, 3, 7, 0, time.Local)

func newTestHandler(t *testing.T, dir string) *SubmissionHandler {
	t.Helper()
	return NewSubmissionHandler(storage.NewStore(dir), 1<<20, zaptest.NewLogger(t)).
		WithClock(func() time.Time { return fixedNow })
}

func do(h *SubmissionHandler, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Submit(w, req)
	return w
}

func TestSubmit_Options(t *testing.T) {
	h := newTestHandler(t, t.TempDir())

	for _, body := range []string{"", "not json", `{"userId":"a","results":1}`} {
		w := do(h, http.MethodOptions, body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	}
}

func TestSubmit_MethodNotAllowed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	h := newTestHandler(t, dir)

	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead} {
		t.Run(m, func(t *testing.T) {
			w := do(h, m, `{"userId":"a","results":1}`)
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if m != http.MethodHead {
				assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())
			}
		})
	}
	// nothing was written
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestSubmit_InvalidJSON(t *testing.T) {
	h := newTestHandler(t, t.TempDir())

	bodies := []string{
		"not json",
		"",
		`{"userId":"a"`,
		`{"userId":"a","results":1} trailing`,
		// invalid UTF-8 and a lone surrogate escape
		"{\"userId\":\"a\xff\",\"results\":1}",
		`{"userId":"a\ud800","results":1}`,
		`{"userId":"a\udc00","results":1}`,
		// parse fine but are empty values
		"null", "false", "0", `""`, `"0"`, "[]", "{}",
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			w := do(h, http.MethodPost, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Invalid JSON"}`, w.Body.String())
		})
	}
}

func TestSubmit_BodyTooLarge(t *testing.T) {
	h := NewSubmissionHandler(storage.NewStore(t.TempDir()), 16, zaptest.NewLogger(t))

	w := do(h, http.MethodPost, `{"userId":"abc","results":{"q1":"A"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON"}`, w.Body.String())
}

func TestSubmit_MissingFields(t *testing.T) {
	h := newTestHandler(t, t.TempDir())

	bodies := []string{
		`{"results": {}}`,
		`{"userId": "a"}`,
		`{"userId": null, "results": []}`,
		`{"other": 1}`,
		`[1, 2]`,
		`"userId"`,
		`7`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			w := do(h, http.MethodPost, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Missing required fields"}`, w.Body.String())
		})
	}
}

func TestSubmit_Success(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "results")
	h := newTestHandler(t, dir)

	in := `{"userId":"张三_01!","results":{"q1":"A"},"timestamp":"2026-10-19T14:03:07Z"}`
	w := do(h, http.MethodPost, in)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	wantName := "result_张三_01_20261019_140307.json"
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]any{
		"success":  true,
		"message":  "Results saved successfully",
		"filename": wantName,
	}, resp)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	raw, err := os.ReadFile(filepath.Join(dir, wantName))
	require.NoError(t, err)
	assert.JSONEq(t, in, string(raw))
	assert.Contains(t, string(raw), `"userId": "张三_01!"`)
	assert.Contains(t, string(raw), "\n    \"results\": {")
}

func TestSubmit_StoresParsedPayload(t *testing.T) {
	t.Run("duplicate key keeps last value", func(t *testing.T) {
		dir := t.TempDir()
		h := newTestHandler(t, dir)

		w := do(h, http.MethodPost, `{"userId":null,"results":1,"userId":"dup"}`)
		require.Equal(t, http.StatusOK, w.Code)

		raw, err := os.ReadFile(filepath.Join(dir, "result_dup_20261019_140307.json"))
		require.NoError(t, err)
		assert.Equal(t, "{\n    \"userId\": \"dup\",\n    \"results\": 1\n}", string(raw))
	})

	t.Run("surrogate pair", func(t *testing.T) {
		dir := t.TempDir()
		h := newTestHandler(t, dir)

		w := do(h, http.MethodPost, `{"userId":"a\ud83d\ude00","results":1}`)
		require.Equal(t, http.StatusOK, w.Code)

		raw, err := os.ReadFile(filepath.Join(dir, "result_a_20261019_140307.json"))
		require.NoError(t, err)
		assert.Contains(t, string(raw), "\"a\U0001F600\"")
	})
}

func TestSubmit_EmptySanitizedUserID(t *testing.T) {
	dir := t.TempDir()
	h := newTestHandler(t, dir)

	w := do(h, http.MethodPost, `{"userId":"!!!","results":[]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "result__20261019_140307.json", resp.Filename)
	assert.FileExists(t, filepath.Join(dir, resp.Filename))
}

func TestSubmit_SameSecondCollision(t *testing.T) {
	dir := t.TempDir()
	h := newTestHandler(t, dir)

	first := do(h, http.MethodPost, `{"userId":"u1","results":{"n":1}}`)
	second := do(h, http.MethodPost, `{"userId":"u1","results":{"n":2}}`)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	// Same sanitized user in the same second maps to one file; the last
	// write wins.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","results":{"n":2}}`, string(raw))
}

func TestSubmit_StorageFailure(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "results")
	require.NoError(t, os.WriteFile(blocker, []byte("a file, not a directory"), 0o644))

	h := newTestHandler(t, filepath.Join(blocker, "inner"))
	w := do(h, http.MethodPost, `{"userId":"a","results":{}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Failed to save results"}`, w.Body.String())
}

func TestFalsy(t *testing.T) {
	for _, v := range []any{nil, false, float64(0), "", "0", []any{}, map[string]any{}} {
		assert.True(t, falsy(v), "%#v", v)
	}
	for _, v := range []any{true, float64(-1), "00", " ", []any{nil}, map[string]any{"a": nil}} {
		assert.False(t, falsy(v), "%#v", v)
	}
}
