package docserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/cohort/internal/docstore"
	"github.com/five82/cohort/internal/docstore/memstore"
	"github.com/five82/cohort/internal/docstore/wire"
)

func TestServer_Healthz(t *testing.T) {
	srv := New(memstore.New())
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(method, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code, method)
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	}
}

func TestServer_MalformedBodyIsInvalidArgument(t *testing.T) {
	srv := New(memstore.New())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body wire.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, string(docstore.CodeInvalidArgument), body.Code)
}

func TestServer_StatusFollowsCode(t *testing.T) {
	store := memstore.New()
	srv := New(store)

	tests := []struct {
		code docstore.Code
		want int
	}{
		{docstore.CodePermissionDenied, http.StatusForbidden},
		{docstore.CodeFailedPrecondition, http.StatusPreconditionFailed},
		{docstore.CodeUnavailable, http.StatusServiceUnavailable},
		{docstore.CodeDeadlineExceeded, http.StatusGatewayTimeout},
		{docstore.CodeResourceExhausted, http.StatusTooManyRequests},
		{docstore.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			store.FailNext("get", "users", docstore.Errorf(tt.code, "boom"))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/docs/users/u1", nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.code, wire.CodeForStatus(rec.Code))
		})
	}
}

func TestServer_ListenStreamsSnapshotsAndErrors(t *testing.T) {
	store := memstore.New()
	server := httptest.NewServer(New(store))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/listen"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	require.NoError(t, conn.WriteJSON(wire.ListenRequest{Query: docstore.Query{Collection: "grades"}}))

	var msg wire.ListenMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, wire.TypeSnapshot, msg.Type)
	assert.Empty(t, msg.Records)

	store.EmitError("grades", docstore.Errorf(docstore.CodeAborted, "stream reset"))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, wire.TypeError, msg.Type)
	assert.Equal(t, string(docstore.CodeAborted), msg.Code)

	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server closes after an error frame")
	assert.Eventually(t, func() bool { return store.Stats().Live == 0 }, 3*time.Second, 10*time.Millisecond)
}
