package audit

import (
	"context"
	"time"
)

// Logger is the logging surface the Recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// writeTimeout bounds a single audit insert.
const writeTimeout = 5 * time.Second

// Recorder queues audit entries and writes them serially in the background
// so request handlers never wait on SQLite. Entries that do not fit in the
// queue are dropped with a warning.
type Recorder struct {
	repo   Repository
	logger Logger
	queue  chan *Entry
}

// NewRecorder creates a Recorder with room for size pending entries.
func NewRecorder(repo Repository, logger Logger, size int) *Recorder {
	if size <= 0 {
		size = 256
	}
	return &Recorder{repo: repo, logger: logger, queue: make(chan *Entry, size)}
}

// Record enqueues entry. It never blocks. A nil Recorder discards entries.
func (r *Recorder) Record(entry Entry) {
	if r == nil {
		return
	}
	select {
	case r.queue <- &entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			"action", entry.Action,
			"entity_type", entry.EntityType,
		)
	}
}

// Run writes queued entries until ctx is cancelled, then drains what is
// left and returns.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.queue:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Error("audit log write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err,
		)
	}
}
