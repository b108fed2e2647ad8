package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gosupermarket_api/internal/feed/business/chunk"
	"gosupermarket_api/internal/feed/models"
	"gosupermarket_api/internal/feed/state"
	"gosupermarket_api/internal/feed/transport"
	"gosupermarket_api/internal/pricing/business"
	"gosupermarket_api/metrics"
	"gosupermarket_api/pkg/logger"
)

const receiveWait = 5 * time.Second
const staleFlushEvery = 15 * time.Second

// ConsumerServer drains the envelope queue with a worker pool, reassembles
// chunked documents, applies them and only then advances the processing
// state. An envelope whose body cannot be decoded goes to the dead letter
// queue instead of cycling through redelivery forever.
type ConsumerServer struct {
	queue       transport.Queue
	dlq         transport.Queue
	consumer    *business.Consumer
	chunker     *chunk.Chunker
	reassembler *chunk.Reassembler
	tracker     *state.Tracker
	limiter     *rate.Limiter
	workers     int
	batchSize   int
	log         logger.Logger

	mu sync.Mutex // serializes reassembler access across workers
}

func NewConsumerServer(
	queue transport.Queue,
	dlq transport.Queue,
	consumer *business.Consumer,
	tracker *state.Tracker,
	workers, batchSize int,
	writeRate float64,
	log logger.Logger,
) *ConsumerServer {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if writeRate <= 0 {
		writeRate = 200
	}
	return &ConsumerServer{
		queue:       queue,
		dlq:         dlq,
		consumer:    consumer,
		chunker:     chunk.NewChunker(transport.MaxMessageBytes, log),
		reassembler: chunk.NewReassembler(chunk.DefaultStaleness),
		tracker:     tracker,
		limiter:     rate.NewLimiter(rate.Limit(writeRate), int(writeRate)),
		workers:     workers,
		batchSize:   batchSize,
		log:         log,
	}
}

// Run blocks until the context is cancelled. Workers finish the message they
// hold before exiting; unacked messages come back after the lease.
func (s *ConsumerServer) Run(ctx context.Context) error {
	s.log.Log("consumer started with %d worker(s)", s.workers)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.workerLoop(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.staleLoop(ctx)
	}()

	wg.Wait()
	s.log.Log("consumer stopped, %d group(s) pending", s.reassembler.Pending())
	return ctx.Err()
}

func (s *ConsumerServer) workerLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		msgs, err := s.queue.Receive(ctx, s.batchSize, receiveWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Log("receive failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		for _, msg := range msgs {
			if err := s.handleMessage(ctx, msg); err != nil {
				// Leave the message leased: it returns after the lease expires
				// and the apply is retried.
				s.log.Log("message %s failed: %v", msg.ID, err)
			}
		}
	}
}

func (s *ConsumerServer) handleMessage(ctx context.Context, msg transport.Message) error {
	var doc models.NormalizedDocument
	if err := json.Unmarshal(msg.Body, &doc); err != nil {
		return s.deadLetter(ctx, msg, err)
	}
	if doc.Provider == "" || doc.Branch == "" || !doc.FeedType.Valid() {
		return s.deadLetter(ctx, msg, &models.ValidationError{ItemKey: doc.GroupKey(), Reason: "incomplete envelope header"})
	}

	s.mu.Lock()
	assembled, complete := s.reassembler.Add(doc)
	s.mu.Unlock()

	if !complete {
		// The part is absorbed; losing the process before the group completes
		// just means the extractor resends the object on its next sweep.
		return s.queue.Ack(ctx, msg)
	}

	if err := s.applyDocument(ctx, assembled); err != nil {
		// Push the assembled document back so no part has to be re-collected.
		// Earlier parts are already acked, so the requeue must succeed before
		// this message is acked too.
		if reErr := s.requeueAssembled(ctx, assembled); reErr != nil {
			return reErr
		}
		s.log.Log("apply of %s failed, requeued: %v", assembled.SourceKey, err)
	}
	return s.queue.Ack(ctx, msg)
}

func (s *ConsumerServer) applyDocument(ctx context.Context, doc models.NormalizedDocument) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	rows, err := s.consumer.Apply(ctx, doc)
	if err != nil {
		return err
	}
	metrics.RecordApplyDuration(time.Since(start))
	metrics.RecordRowsWritten(rows)

	successAt := time.Now().UTC()
	if t, ok := models.ParseFeedTimestamp(doc.Timestamp); ok {
		successAt = t
	}
	if err := s.tracker.MarkDone(ctx, doc.StateKey(), doc.SourceKey, doc.ETag, successAt); err != nil {
		s.log.Log("state update for %s failed: %v", doc.SourceKey, err)
	}
	s.log.Log("applied %s: %d row(s)", doc.SourceKey, rows)
	return nil
}

// requeueAssembled pushes a failed document back through the chunker; an
// assembled multi-part document is larger than one message body, so sending
// it whole would bounce off the queue's size ceiling.
func (s *ConsumerServer) requeueAssembled(ctx context.Context, doc models.NormalizedDocument) error {
	doc.Part, doc.TotalParts = 0, 0
	for _, part := range s.chunker.Chunk(doc) {
		body, err := json.Marshal(part)
		if err != nil {
			return err
		}
		if err := s.queue.Send(ctx, body); err != nil {
			return err
		}
	}
	return nil
}

func (s *ConsumerServer) deadLetter(ctx context.Context, msg transport.Message, cause error) error {
	s.log.Log("dead-lettering message %s: %v", msg.ID, cause)
	if s.dlq != nil {
		if err := s.dlq.Send(ctx, msg.Body); err != nil {
			return err
		}
	}
	return s.queue.Ack(ctx, msg)
}

// staleLoop applies incomplete groups whose parts stopped arriving. Items
// already received still land in the store; the object is not marked done, so
// the missing parts come around again with the next extraction.
func (s *ConsumerServer) staleLoop(ctx context.Context) {
	ticker := time.NewTicker(staleFlushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.mu.Lock()
		stale := s.reassembler.FlushStale()
		s.mu.Unlock()
		for _, doc := range stale {
			s.log.Log("flushing stale group %s with %d item(s)", doc.GroupKey(), len(doc.Items))
			if err := s.applyStale(ctx, doc); err != nil {
				s.log.Log("stale apply of %s failed: %v", doc.SourceKey, err)
			}
		}
	}
}

// applyStale writes the partial document without advancing state.
func (s *ConsumerServer) applyStale(ctx context.Context, doc models.NormalizedDocument) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	rows, err := s.consumer.Apply(ctx, doc)
	if err != nil {
		return err
	}
	metrics.RecordApplyDuration(time.Since(start))
	metrics.RecordRowsWritten(rows)
	return nil
}
