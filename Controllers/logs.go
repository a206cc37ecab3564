package Controllers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"Aerofield/middleware"
)

// LogsController reads back the JSON request log written by
// middleware.LoggingMiddleware.
type LogsController struct {
	Path string
}

func NewLogsController(path string) *LogsController {
	return &LogsController{Path: path}
}

// LogGroup aggregates the requests of one method and path.
type LogGroup struct {
	Path        string               `json:"path"`
	Method      string               `json:"method"`
	Count       int                  `json:"count"`
	AvgLatency  float64              `json:"avg_latency_ms"`
	MinLatency  float64              `json:"min_latency_ms"`
	MaxLatency  float64              `json:"max_latency_ms"`
	SuccessRate float64              `json:"success_rate"`
	Logs        []middleware.LogData `json:"logs"`
}

type LogsResponse struct {
	Groups      []LogGroup `json:"groups"`
	TotalLogs   int        `json:"total_logs"`
	TotalGroups int        `json:"total_groups"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
	TotalPages  int        `json:"total_pages"`
	DateFrom    time.Time  `json:"date_from"`
	DateTo      time.Time  `json:"date_to"`
}

// logRange reads date_from/date_to. Without either it covers today.
func logRange(ctx *fiber.Ctx, now time.Time) (time.Time, time.Time, error) {
	fromStr, toStr := ctx.Query("date_from"), ctx.Query("date_to")
	if fromStr == "" && toStr == "" {
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return start, start.Add(24*time.Hour - time.Nanosecond), nil
	}

	from := time.Unix(0, 0).UTC()
	to := now
	if fromStr != "" {
		parsed, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return from, to, fmt.Errorf("%w: date_from must be YYYY-MM-DD", errBadBody)
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return from, to, fmt.Errorf("%w: date_to must be YYYY-MM-DD", errBadBody)
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

// read returns the log lines inside [from, to]. A missing file is an empty log.
func (c *LogsController) read(from, to time.Time) ([]middleware.LogData, error) {
	file, err := os.Open(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var out []middleware.LogData
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry middleware.LogData
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Timestamp.Before(from) || entry.Timestamp.After(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, scanner.Err()
}

func filterLogs(logs []middleware.LogData, path, method, status string) []middleware.LogData {
	wantStatus, statusErr := strconv.Atoi(status)
	var out []middleware.LogData
	for _, l := range logs {
		if path != "" && !strings.Contains(strings.ToLower(l.Path), strings.ToLower(path)) {
			continue
		}
		if method != "" && !strings.EqualFold(l.Method, method) {
			continue
		}
		if status != "" && statusErr == nil && l.Status != wantStatus {
			continue
		}
		out = append(out, l)
	}
	return out
}

func latencyMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// groupLogs groups by method and path, busiest first.
func groupLogs(logs []middleware.LogData) []LogGroup {
	index := make(map[string]int)
	var groups []LogGroup
	successes := make(map[int]int)
	totals := make(map[int]float64)

	for _, l := range logs {
		key := l.Method + " " + l.Path
		i, ok := index[key]
		ms := latencyMs(l.Latency)
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, LogGroup{Path: l.Path, Method: l.Method, MinLatency: ms, MaxLatency: ms})
		}
		g := &groups[i]
		g.Count++
		g.Logs = append(g.Logs, l)
		totals[i] += ms
		if ms < g.MinLatency {
			g.MinLatency = ms
		}
		if ms > g.MaxLatency {
			g.MaxLatency = ms
		}
		if l.Status >= 200 && l.Status < 300 {
			successes[i]++
		}
	}

	for i := range groups {
		groups[i].AvgLatency = totals[i] / float64(groups[i].Count)
		groups[i].SuccessRate = float64(successes[i]) / float64(groups[i].Count)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })
	return groups
}

func pageBounds(total, page, size int) (int, int) {
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}

// GetLogs returns grouped request logs with pagination over groups.
func (c *LogsController) GetLogs(ctx *fiber.Ctx) error {
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}

	from, to, err := logRange(ctx, time.Now())
	if err != nil {
		return fail(ctx, err)
	}
	logs, err := c.read(from, to)
	if err != nil {
		return fail(ctx, fmt.Errorf("read request log: %w", err))
	}
	logs = filterLogs(logs, ctx.Query("path"), ctx.Query("method"), ctx.Query("status"))
	groups := groupLogs(logs)

	start, end := pageBounds(len(groups), page, pageSize)
	return ctx.JSON(LogsResponse{
		Groups:      append([]LogGroup{}, groups[start:end]...),
		TotalLogs:   len(logs),
		TotalGroups: len(groups),
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  (len(groups) + pageSize - 1) / pageSize,
		DateFrom:    from,
		DateTo:      to,
	})
}

// GetLogStats summarizes the request log over the date range.
func (c *LogsController) GetLogStats(ctx *fiber.Ctx) error {
	from, to, err := logRange(ctx, time.Now())
	if err != nil {
		return fail(ctx, err)
	}
	logs, err := c.read(from, to)
	if err != nil {
		return fail(ctx, fmt.Errorf("read request log: %w", err))
	}

	var ok, failed int
	var total, fastest, slowest time.Duration
	methods := make(map[string]int)
	statuses := make(map[int]int)
	paths := make(map[string]int)
	for i, l := range logs {
		switch {
		case l.Status >= 200 && l.Status < 300:
			ok++
		case l.Status >= 400:
			failed++
		}
		total += l.Latency
		if i == 0 || l.Latency < fastest {
			fastest = l.Latency
		}
		if l.Latency > slowest {
			slowest = l.Latency
		}
		methods[l.Method]++
		statuses[l.Status]++
		paths[l.Path]++
	}

	var avg time.Duration
	var successRate float64
	if len(logs) > 0 {
		avg = total / time.Duration(len(logs))
		successRate = float64(ok) / float64(len(logs)) * 100
	}

	type pathCount struct {
		Path  string `json:"path"`
		Count int    `json:"count"`
	}
	top := make([]pathCount, 0, len(paths))
	for p, n := range paths {
		top = append(top, pathCount{Path: p, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Path < top[j].Path
	})
	if len(top) > 10 {
		top = top[:10]
	}

	return ctx.JSON(fiber.Map{
		"total_requests":      len(logs),
		"successful_requests": ok,
		"error_requests":      failed,
		"success_rate":        successRate,
		"avg_latency_ms":      latencyMs(avg),
		"min_latency_ms":      latencyMs(fastest),
		"max_latency_ms":      latencyMs(slowest),
		"method_stats":        methods,
		"status_stats":        statuses,
		"top_paths":           top,
		"date_from":           from,
		"date_to":             to,
	})
}
