package middleware

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// LogConfig holds configuration for the logging middleware
type LogConfig struct {
	// Log each request through logrus
	Console bool
	// Append each request as a JSON line to LogFilePath
	File        bool
	LogFilePath string
	// Include the authenticated user in logs
	IncludeUserID bool
	// Skip logging for specific paths
	SkipPaths []string
}

// LogData is one request log line. The JSON form is what the request log
// viewer reads back.
type LogData struct {
	Timestamp     time.Time     `json:"timestamp"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	IP            string        `json:"ip"`
	UserAgent     string        `json:"user_agent"`
	RequestID     string        `json:"request_id"`
	Error         string        `json:"error,omitempty"`
	UserID        string        `json:"user_id,omitempty"`
	Username      string        `json:"username,omitempty"`
	ContentLength int64         `json:"content_length"`
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		Console:       true,
		File:          true,
		LogFilePath:   "logs/requests.log",
		IncludeUserID: true,
		SkipPaths:     []string{"/health"},
	}
}

// LoggingMiddleware creates a new logging middleware with the given configuration
func LoggingMiddleware(config ...LogConfig) fiber.Handler {
	cfg := DefaultLogConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	var sink *fileSink
	if cfg.File && cfg.LogFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
			log.WithError(err).Warn("request log directory unavailable")
		}
		sink = &fileSink{path: cfg.LogFilePath}
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *fiber.Ctx) error {
		if skip[c.Path()] {
			return c.Next()
		}
		start := time.Now()

		err := c.Next()

		data := LogData{
			Timestamp:     start,
			Method:        c.Method(),
			Path:          c.Path(),
			URL:           c.OriginalURL(),
			Status:        c.Response().StatusCode(),
			Latency:       time.Since(start),
			IP:            c.IP(),
			UserAgent:     c.Get(fiber.HeaderUserAgent),
			RequestID:     c.Get(fiber.HeaderXRequestID),
			ContentLength: int64(len(c.Response().Body())),
		}
		if err != nil {
			data.Error = err.Error()
			// the error handler has not run yet, so the recorded status is stale
			var fe *fiber.Error
			if errors.As(err, &fe) {
				data.Status = fe.Code
			} else {
				data.Status = fiber.StatusInternalServerError
			}
		}
		if cfg.IncludeUserID {
			if user, ok := UserFrom(c); ok {
				data.UserID = user.ID
				data.Username = user.Name
			}
		}

		if cfg.Console {
			logRequest(data)
		}
		if sink != nil {
			sink.write(data)
		}
		return err
	}
}

func logRequest(data LogData) {
	entry := log.WithFields(log.Fields{
		"method":  data.Method,
		"path":    data.Path,
		"status":  data.Status,
		"latency": data.Latency.String(),
		"ip":      data.IP,
	})
	if data.Username != "" {
		entry = entry.WithField("user", data.Username)
	}
	switch {
	case data.Status >= 500:
		entry.Error("request")
	case data.Status >= 400:
		entry.Warn("request")
	default:
		entry.Info("request")
	}
}

type fileSink struct {
	mu   sync.Mutex
	path string
}

func (s *fileSink) write(data LogData) {
	line, err := json.Marshal(data)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.WithError(err).Warn("open request log")
		return
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		log.WithError(err).Warn("write request log")
	}
}

// RequestLogger logs every request to logrus and, when path is non-empty,
// to a JSON lines file.
func RequestLogger(path string) fiber.Handler {
	return LoggingMiddleware(LogConfig{
		Console:       true,
		File:          path != "",
		LogFilePath:   path,
		IncludeUserID: true,
		SkipPaths:     []string{"/health", "/static"},
	})
}
