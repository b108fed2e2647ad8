package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"gosupermarket_api/internal/feed/business/chunk"
	"gosupermarket_api/internal/feed/business/extract"
	"gosupermarket_api/internal/feed/business/normalize"
	"gosupermarket_api/internal/feed/models"
	"gosupermarket_api/internal/feed/state"
	"gosupermarket_api/internal/feed/storage"
	"gosupermarket_api/internal/feed/transport"
	"gosupermarket_api/metrics"
	"gosupermarket_api/pkg/logger"
	"gosupermarket_api/pkg/retry"
)

const listPrefix = "providers/"

// ExtractorServer runs the ingestion side of the pipeline: poll the object
// store for new feed objects, skip the already-processed ones, then
// extract -> normalize -> chunk -> send.
type ExtractorServer struct {
	objects    storage.ObjectStorage
	tracker    *state.Tracker
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	chunker    *chunk.Chunker
	queue      transport.Queue
	retry      retry.Policy
	poll       time.Duration
	log        logger.Logger

	counters metrics.PipelineMetrics

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewExtractorServer(
	objects storage.ObjectStorage,
	tracker *state.Tracker,
	queue transport.Queue,
	maxMessageBytes int,
	poll time.Duration,
	retryPolicy retry.Policy,
	log *logger.BaseLogger,
) *ExtractorServer {
	if poll <= 0 {
		poll = 30 * time.Second
	}
	return &ExtractorServer{
		objects:    objects,
		tracker:    tracker,
		extractor:  extract.NewExtractor(log.WithPrefix("[extract]")),
		normalizer: normalize.NewNormalizer(log.WithPrefix("[normalize]")),
		chunker:    chunk.NewChunker(maxMessageBytes, log.WithPrefix("[chunk]")),
		queue:      queue,
		retry:      retryPolicy,
		poll:       poll,
		log:        log,
		seen:       make(map[string]struct{}),
	}
}

// Run polls until the context is cancelled.
func (s *ExtractorServer) Run(ctx context.Context) error {
	s.log.Log("extractor started, polling every %s", s.poll)
	for {
		if err := s.Sweep(ctx); err != nil {
			s.log.Log("sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			s.log.Log("extractor stopped: processed=%d skipped=%d errored=%d sent=%d",
				s.counters.ProcessedCount.Load(), s.counters.SkippedCount.Load(),
				s.counters.ErroredCount.Load(), s.counters.SentCount.Load())
			return ctx.Err()
		case <-time.After(s.poll):
		}
	}
}

// Sweep lists the feed prefix once and processes every new object.
func (s *ExtractorServer) Sweep(ctx context.Context) error {
	var listed []storage.ObjectMeta
	err := s.retry.Do(ctx, "object list", func() error {
		var err error
		listed, err = s.objects.List(ctx, listPrefix)
		return err
	})
	if err != nil {
		return err
	}

	for _, meta := range listed {
		obj, ok := storage.ParseObjectKey(meta)
		if !ok {
			continue
		}
		if s.alreadySeen(obj.ObjectKey) {
			continue
		}
		if err := s.processObject(ctx, obj); err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.counters.ErroredCount.Add(1)
			s.log.Log("object %s failed: %v", obj.ObjectKey, err)
		}
	}
	return nil
}

func (s *ExtractorServer) processObject(ctx context.Context, obj models.RawFeedObject) error {
	switch err := s.tracker.Check(ctx, obj); {
	case errors.Is(err, models.ErrDuplicateObject):
		s.counters.SkippedCount.Add(1)
		metrics.RecordObjectSkipped("duplicate")
		s.markSeen(obj.ObjectKey)
		return nil
	case err != nil:
		return err
	}

	var raw []byte
	err := s.retry.Do(ctx, "object get", func() error {
		var err error
		raw, err = s.objects.Get(ctx, obj.ObjectKey)
		return err
	})
	if err != nil {
		return err
	}

	records, feedType, err := s.extractor.Extract(raw, obj.ObjectKey)
	if err != nil {
		var formatErr *models.FormatError
		if errors.As(err, &formatErr) {
			// State stays unmoved either way so the object can be retried or
			// inspected; within this process it is not re-attempted.
			s.markSeen(obj.ObjectKey)
			if formatErr.SoftSkip {
				s.counters.SkippedCount.Add(1)
				metrics.RecordObjectSkipped("non_data_payload")
				s.log.Log("soft-skipping %s: %s", obj.ObjectKey, formatErr.Reason)
				return nil
			}
			metrics.RecordFormatError()
		}
		return err
	}
	obj.FeedType = feedType
	metrics.RecordItemsExtracted(obj.Provider, string(feedType), len(records))

	doc := s.normalizer.Normalize(records, obj)
	sent := 0
	for _, part := range s.chunker.Chunk(doc) {
		body, err := json.Marshal(part)
		if err != nil {
			return err
		}
		err = s.retry.Do(ctx, "queue send", func() error {
			return s.queue.Send(ctx, body)
		})
		if err != nil {
			return err
		}
		sent++
	}
	s.counters.ProcessedCount.Add(1)
	s.counters.SentCount.Add(int32(sent))
	metrics.RecordMessagesSent(sent)
	s.markSeen(obj.ObjectKey)
	s.log.Log("dispatched %d message(s) for %s (%d items)", sent, obj.ObjectKey, len(doc.Items))
	return nil
}

// The in-process seen set keeps one run from re-sending an object while the
// consumer has not yet marked it done; the state tracker stays authoritative
// across restarts.
func (s *ExtractorServer) alreadySeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

func (s *ExtractorServer) markSeen(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[key] = struct{}{}
}
