package middleware

import (
	"context"
	"log"
	"time"

	"github.com/LutfiBK25/qulron/internal/models"
	"github.com/LutfiBK25/qulron/internal/repository"
	"github.com/gin-gonic/gin"
)

// Batches request logs and flushes them to postgres off the request path.
type RequestLogWorker struct {
	repo    *repository.RequestLogRepository
	entries chan models.RequestLog
	done    chan struct{}
}

func NewRequestLogWorker(repo *repository.RequestLogRepository, bufferSize int) *RequestLogWorker {
	w := &RequestLogWorker{
		repo:    repo,
		entries: make(chan models.RequestLog, bufferSize),
		done:    make(chan struct{}),
	}

	go w.run()

	return w
}

func (w *RequestLogWorker) run() {
	defer close(w.done)

	const batchSize = 100

	batch := make([]models.RequestLog, 0, batchSize)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.repo.CreateBatch(context.Background(), batch); err != nil {
			log.Printf("Failed to insert request logs: %v", err)
		}
		batch = make([]models.RequestLog, 0, batchSize)
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Stop flushes the pending batch and waits for the worker to exit.
func (w *RequestLogWorker) Stop() {
	close(w.entries)
	<-w.done
}

// RequestLogger records every request, with the authenticated identity when
// the gate established one.
func RequestLogger(w *RequestLogWorker) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := models.RequestLog{
			Timestamp:      start,
			Phone:          c.GetString(ContextPhone),
			Role:           c.GetString(ContextRole),
			Method:         c.Request.Method,
			Path:           c.Request.URL.Path,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: int(time.Since(start).Milliseconds()),
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
			BackendServer:  c.Writer.Header().Get("X-Backend-Server"),
		}

		select {
		case w.entries <- entry:
		default:
			// Channel full, drop the entry rather than block the response
			log.Println("Request log channel full, skipping log entry")
		}
	}
}
