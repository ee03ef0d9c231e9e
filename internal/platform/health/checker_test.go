package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Marwakhot/chronicles/internal/platform/database"
	"github.com/Marwakhot/chronicles/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swapGlobals(t *testing.T) {
	t.Helper()
	prevDB, prevRDB := database.DB, database.RDB
	t.Cleanup(func() {
		database.DB, database.RDB = prevDB, prevRDB
		database.UpdateStatus(false)
	})
}

func getStatus(t *testing.T) (int, map[string]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", GetStatus)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestGetStatusWithoutRedis(t *testing.T) {
	swapGlobals(t)
	database.DB = testutil.NewTestDB(t)
	database.RDB = nil

	code, body := getStatus(t)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "up", body["database"])
	assert.Equal(t, "disabled", body["redis"])
}

func TestGetStatusDatabaseDown(t *testing.T) {
	swapGlobals(t)
	database.DB = nil
	database.RDB = nil

	code, body := getStatus(t)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "down", body["database"])
}

func TestPerformCheckTracksRedis(t *testing.T) {
	swapGlobals(t)
	database.DB = testutil.NewTestDB(t)
	client, mr := testutil.NewTestRedis(t)
	database.RDB = client

	PerformCheck(t.Context())
	assert.True(t, database.IsRedisHealthy())
	_, body := getStatus(t)
	assert.Equal(t, "up", body["redis"])

	mr.Close()
	PerformCheck(t.Context())
	assert.False(t, database.IsRedisHealthy())
	_, body = getStatus(t)
	assert.Equal(t, "down", body["redis"])
}
