package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/passin/internal/store"
)

// Destination receives a complete JSONL export.
type Destination interface {
	Write(ctx context.Context, data []byte) error
}

// Scheduler exports the store on an interval and delivers each snapshot to
// every destination in parallel. A destination that already holds an
// identical snapshot (ignoring the header timestamp) is skipped.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	delivered map[int][sha256.Size]byte

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
		delivered:    make(map[int][sha256.Size]byte),
	}
}

// Start exports immediately and then on every tick until Stop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the scheduler and waits for an export in flight.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("export failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce takes one snapshot and delivers it. Every destination is tried;
// the returned error joins the failures.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.store, &buf); err != nil {
		return err
	}
	data := buf.Bytes()
	digest := bodyDigest(data)

	var (
		g       errgroup.Group
		errMu   sync.Mutex
		errs    []error
		written int
	)
	for i, dest := range s.destinations {
		if s.alreadyDelivered(i, digest) {
			continue
		}
		g.Go(func() error {
			if err := dest.Write(ctx, data); err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", destName(i, dest), err))
				errMu.Unlock()
				return nil
			}
			s.markDelivered(i, digest)
			errMu.Lock()
			written++
			errMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if written > 0 {
		s.logger.Info("export delivered", "destinations", written, "bytes", len(data))
	}
	return errors.Join(errs...)
}

func (s *Scheduler) alreadyDelivered(i int, digest [sha256.Size]byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.delivered[i]
	return ok && prev == digest
}

func (s *Scheduler) markDelivered(i int, digest [sha256.Size]byte) {
	s.mu.Lock()
	s.delivered[i] = digest
	s.mu.Unlock()
}

// bodyDigest hashes everything after the header line, whose timestamp
// changes on every run.
func bodyDigest(data []byte) [sha256.Size]byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[i+1:]
	}
	return sha256.Sum256(data)
}

func destName(i int, d Destination) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("destination %d", i)
}
