// internal/audit/journal.go
package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/events"
)

var header = []string{"time", "id", "type", "subject", "actor", "amount", "payload"}

// Journal appends every ledger event to a CSV file. Rows are buffered and
// flushed on a ticker and on Close.
type Journal struct {
	mu     sync.Mutex
	writer *csv.Writer
	file   *os.File
	ticker *time.Ticker
	done   chan struct{}
	logger *zap.Logger
	path   string

	records uint64
	flushes uint64
}

// Open creates the file and its header when missing and starts the flusher.
func Open(path string, flushInterval time.Duration, logger *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat journal: %w", err)
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}

	j := &Journal{
		writer: csv.NewWriter(file),
		file:   file,
		ticker: time.NewTicker(flushInterval),
		done:   make(chan struct{}),
		logger: logger.Named("audit"),
		path:   path,
	}
	if stat.Size() == 0 {
		if err := j.writer.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		j.writer.Flush()
	}

	go j.flushLoop()
	return j, nil
}

// Attach subscribes the journal to every event on bus.
func (j *Journal) Attach(bus *events.Bus) events.Subscription {
	return bus.SubscribeFunc(events.Any, j.Handle)
}

// Handle writes one event row.
func (j *Journal) Handle(_ context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type(), err)
	}
	subject, actor, amount := describe(e)
	row := []string{
		e.Timestamp().UTC().Format(time.RFC3339),
		e.ID(),
		string(e.Type()),
		subject,
		actor,
		strconv.FormatUint(amount, 10),
		string(payload),
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	j.records++
	return nil
}

// describe picks the record, the acting account and the headline amount of e.
func describe(e events.Event) (subject, actor string, amount uint64) {
	switch ev := e.(type) {
	case events.PresaleEvent:
		return ev.Presale.String(), ev.Admin.String(), ev.Override
	case events.ContributionEvent:
		return ev.Presale.String(), ev.Contributor.String(), ev.Accepted
	case events.ClaimEvent:
		return ev.Presale.String(), ev.Contributor.String(), ev.Amount
	case events.RefundEvent:
		return ev.Presale.String(), ev.Contributor.String(), ev.Value
	case events.AirdropEvent:
		return ev.Presale.String(), "", ev.Total
	case events.PoolEvent:
		return ev.Pool.String(), ev.Admin.String(), ev.Funded
	case events.StakeEvent:
		return ev.Pool.String(), ev.Owner.String(), ev.Amount
	}
	return "", "", 0
}

func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *Journal) flushLocked() error {
	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}
	j.flushes++
	return nil
}

func (j *Journal) flushLoop() {
	for {
		select {
		case <-j.ticker.C:
			if err := j.Flush(); err != nil {
				j.logger.Error("Periodic journal flush failed",
					zap.String("file", j.path),
					zap.Error(err))
			}
		case <-j.done:
			return
		}
	}
}

// Close flushes pending rows and closes the file.
func (j *Journal) Close() error {
	close(j.done)
	j.ticker.Stop()

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.flushLocked(); err != nil {
		return err
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	j.logger.Info("Audit journal closed",
		zap.String("file", j.path),
		zap.Uint64("records", j.records),
		zap.Uint64("flushes", j.flushes))
	return nil
}

// Stats returns the written record and flush counts.
func (j *Journal) Stats() (records, flushes uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.records, j.flushes
}
