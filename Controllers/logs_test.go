package Controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Aerofield/middleware"
)

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func writeLog(t *testing.T, path string, lines ...middleware.LogData) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, l := range lines {
		raw, err := json.Marshal(l)
		require.NoError(t, err)
		_, err = f.Write(append(raw, '\n'))
		require.NoError(t, err)
	}
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
}

func TestGroupLogs(t *testing.T) {
	logs := []middleware.LogData{
		{Method: "GET", Path: "/api/tasks", Status: 200, Latency: 2 * time.Millisecond},
		{Method: "GET", Path: "/api/tasks", Status: 500, Latency: 6 * time.Millisecond},
		{Method: "POST", Path: "/api/tasks", Status: 201, Latency: time.Millisecond},
		{Method: "GET", Path: "/api/tasks", Status: 200, Latency: 4 * time.Millisecond},
	}
	groups := groupLogs(logs)
	require.Len(t, groups, 2)

	get := groups[0]
	assert.Equal(t, "GET", get.Method)
	assert.Equal(t, 3, get.Count)
	assert.InDelta(t, 4, get.AvgLatency, 1e-9)
	assert.InDelta(t, 2, get.MinLatency, 1e-9)
	assert.InDelta(t, 6, get.MaxLatency, 1e-9)
	assert.InDelta(t, 2.0/3.0, get.SuccessRate, 1e-9)

	assert.Equal(t, "POST", groups[1].Method)
	assert.InDelta(t, 1, groups[1].SuccessRate, 1e-9)
}

func TestFilterLogs(t *testing.T) {
	logs := []middleware.LogData{
		{Method: "GET", Path: "/api/Tasks", Status: 200},
		{Method: "POST", Path: "/api/tasks", Status: 400},
		{Method: "GET", Path: "/api/debts", Status: 200},
	}
	assert.Len(t, filterLogs(logs, "tasks", "", ""), 2)
	assert.Len(t, filterLogs(logs, "", "get", ""), 2)
	assert.Len(t, filterLogs(logs, "", "", "400"), 1)
	assert.Len(t, filterLogs(logs, "", "", "abc"), 3)
}

func TestPageBounds(t *testing.T) {
	start, end := pageBounds(5, 2, 2)
	assert.Equal(t, 2, start)
	assert.Equal(t, 4, end)
	start, end = pageBounds(5, 4, 2)
	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)
}

func TestGetLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.log")
	day := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	writeLog(t, path,
		middleware.LogData{Timestamp: day, Method: "GET", Path: "/api/tasks", Status: 200, Latency: time.Millisecond},
		middleware.LogData{Timestamp: day.Add(time.Hour), Method: "GET", Path: "/api/debts", Status: 403},
		middleware.LogData{Timestamp: day.AddDate(0, 0, 2), Method: "GET", Path: "/api/tasks", Status: 200},
	)

	app := fiber.New()
	c := NewLogsController(path)
	app.Get("/logs", c.GetLogs)
	app.Get("/stats", c.GetLogStats)

	resp, err := app.Test(httptest.NewRequest("GET", "/logs?date_from=2024-05-10&date_to=2024-05-10&page_size=1", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out LogsResponse
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &out))
	assert.Equal(t, 2, out.TotalLogs)
	assert.Equal(t, 2, out.TotalGroups)
	assert.Equal(t, 2, out.TotalPages)
	assert.Len(t, out.Groups, 1)

	resp, err = app.Test(httptest.NewRequest("GET", "/stats?date_from=2024-05-01", nil), -1)
	require.NoError(t, err)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &stats))
	assert.EqualValues(t, 3, stats["total_requests"])
	assert.EqualValues(t, 1, stats["error_requests"])

	resp, err = app.Test(httptest.NewRequest("GET", "/logs?date_from=May", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetLogs_MissingFileIsEmpty(t *testing.T) {
	app := fiber.New()
	app.Get("/logs", NewLogsController(filepath.Join(t.TempDir(), "none.log")).GetLogs)

	resp, err := app.Test(httptest.NewRequest("GET", "/logs", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"total_logs":0`)
}
