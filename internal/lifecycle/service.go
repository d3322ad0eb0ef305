// Package lifecycle owns the session state machine: create, script
// phase, audio phase. Each phase is idempotent and a failed phase
// leaves the session in its prior state so retries are always safe.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mindsphere/mindsphere/internal/audio"
	"github.com/mindsphere/mindsphere/internal/observability"
	"github.com/mindsphere/mindsphere/internal/personalization"
	"github.com/mindsphere/mindsphere/internal/plan"
	"github.com/mindsphere/mindsphere/internal/script"
	"github.com/mindsphere/mindsphere/internal/ssml"
	"github.com/mindsphere/mindsphere/internal/store"
	"github.com/mindsphere/mindsphere/internal/tts"
)

// Options wires the service's collaborators and tunables.
type Options struct {
	Store     store.Store
	Blobs     store.BlobStore
	Resolver  *personalization.Resolver
	Generator *script.Generator
	Synth     tts.Synthesizer
	Metrics   *observability.Metrics

	// InterBatchDelay spaces successive synthesis calls to respect
	// provider rate limits.
	InterBatchDelay time.Duration
	// SynthesisTimeout bounds the audio phase on the legacy
	// single-call path.
	SynthesisTimeout time.Duration

	IdempotencyCacheSize int
	IdempotencyTTL       time.Duration
}

// Service is the session lifecycle orchestrator.
type Service struct {
	store     store.Store
	blobs     store.BlobStore
	resolver  *personalization.Resolver
	generator *script.Generator
	synth     tts.Synthesizer
	metrics   *observability.Metrics

	interBatchDelay  time.Duration
	synthesisTimeout time.Duration

	// idem maps client-supplied idempotency keys to session ids. It is
	// process-local: a best-effort guard, not a distributed one.
	idem *expirable.LRU[string, string]
}

func NewService(opts Options) *Service {
	size := opts.IdempotencyCacheSize
	if size <= 0 {
		size = 512
	}
	ttl := opts.IdempotencyTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	timeout := opts.SynthesisTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &Service{
		store:            opts.Store,
		blobs:            opts.Blobs,
		resolver:         opts.Resolver,
		generator:        opts.Generator,
		synth:            opts.Synth,
		metrics:          opts.Metrics,
		interBatchDelay:  opts.InterBatchDelay,
		synthesisTimeout: timeout,
		idem:             expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// CreateRequest carries the client's session parameters.
type CreateRequest struct {
	UserID          string
	Kind            string
	Mood            string
	DurationMinutes int
	Notes           string
}

// Create validates the request, names the session and persists it in
// the created state. Name generation is best-effort.
func (s *Service) Create(ctx context.Context, req CreateRequest) (store.Session, error) {
	start := time.Now()
	sess, err := s.create(ctx, req)
	s.observe("create", start, err)
	return sess, err
}

func (s *Service) create(ctx context.Context, req CreateRequest) (store.Session, error) {
	if req.UserID == "" {
		return store.Session{}, fmt.Errorf("%w: user id required", ErrValidation)
	}
	if req.Mood == "" {
		return store.Session{}, fmt.Errorf("%w: mood required", ErrValidation)
	}
	kind, err := plan.ParseKind(req.Kind)
	if err != nil {
		return store.Session{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.DurationMinutes < 1 {
		return store.Session{}, fmt.Errorf("%w: duration must be at least 1 minute", ErrValidation)
	}

	pctx := s.resolver.Resolve(ctx, req.UserID)
	userName := s.userName(ctx, req.UserID)

	sess := store.Session{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Kind:            kind,
		Mood:            req.Mood,
		DurationMinutes: req.DurationMinutes,
		UserNotes:       req.Notes,
		CreatedAt:       time.Now().UTC(),
	}
	sess.SessionName = s.generator.SessionName(ctx, script.NameRequest{
		Kind:            kind,
		Mood:            req.Mood,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		UserName:        userName,
		Context:         pctx,
	})

	if err := s.store.CreateSession(ctx, sess); err != nil {
		return store.Session{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}
	log.Printf("lifecycle: session %s created (kind=%s duration=%dm)", sess.ID, kind, req.DurationMinutes)
	return sess, nil
}

// GenerateScript runs the script phase. It is idempotent: a session
// that already holds a script is returned unchanged. All planned
// batches are generated and validated, but only the first batch's
// markup is persisted; later batches are recomputed during the audio
// phase. Any batch failure aborts the phase with nothing persisted.
func (s *Service) GenerateScript(ctx context.Context, sessionID string) (store.Session, error) {
	start := time.Now()
	sess, err := s.generateScript(ctx, sessionID)
	s.observe("script", start, err)
	return sess, err
}

func (s *Service) generateScript(ctx context.Context, sessionID string) (store.Session, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return store.Session{}, err
	}
	if sess.HasScript() {
		log.Printf("lifecycle: session %s already has a script", sess.ID)
		return sess, nil
	}

	docs, err := s.generateAllBatches(ctx, sess)
	if err != nil {
		return store.Session{}, err
	}

	markup := docs[0].String()
	if err := s.store.SetScript(ctx, sess.ID, markup); err != nil {
		return store.Session{}, mapStoreErr(err)
	}
	sess.Script = markup
	log.Printf("lifecycle: session %s script generated (%d batches, preview %d bytes)", sess.ID, len(docs), len(markup))
	return sess, nil
}

// GenerateAudio runs the audio phase. It is idempotent: a session that
// already holds an artifact is returned unchanged. The script phase
// must have completed. Multi-batch sessions regenerate the full batch
// set from the stored request parameters because only the first batch
// was persisted; single-batch sessions synthesize the stored markup,
// split into bounded segments when needed.
func (s *Service) GenerateAudio(ctx context.Context, sessionID string) (store.Session, error) {
	start := time.Now()
	sess, err := s.generateAudio(ctx, sessionID)
	s.observe("audio", start, err)
	return sess, err
}

func (s *Service) generateAudio(ctx context.Context, sessionID string) (store.Session, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return store.Session{}, err
	}
	if sess.HasAudio() {
		log.Printf("lifecycle: session %s already has audio", sess.ID)
		return sess, nil
	}
	if !sess.HasScript() {
		return store.Session{}, fmt.Errorf("%w: script must be generated before audio", ErrPrecondition)
	}

	docs, err := s.audioDocuments(ctx, sess)
	if err != nil {
		return store.Session{}, err
	}

	buffers := make([][]byte, 0, len(docs))
	totalWords := 0
	for i, doc := range docs {
		if i > 0 && s.interBatchDelay > 0 {
			if err := sleepCtx(ctx, s.interBatchDelay); err != nil {
				return store.Session{}, mapCtxErr(err)
			}
		}
		buf, err := s.synth.Synthesize(ctx, tts.SynthesisInput{Text: doc.String(), Kind: sess.Kind})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return store.Session{}, mapCtxErr(ctxErr)
			}
			return store.Session{}, fmt.Errorf("%w: segment %d/%d: %v", ErrSynthesis, i+1, len(docs), err)
		}
		buffers = append(buffers, buf)
		totalWords += doc.WordCount()
		if s.metrics != nil {
			s.metrics.AudioBytes.Add(float64(len(buf)))
		}
	}

	artifact := audio.Stitch(buffers)
	url, err := s.blobs.Put(ctx, sess.ID+".mp3", artifact)
	if err != nil {
		return store.Session{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	durationSec := audio.EstimateDuration(totalWords, sess.Kind)
	if err := s.store.SetAudio(ctx, sess.ID, url, durationSec); err != nil {
		return store.Session{}, mapStoreErr(err)
	}
	sess.AudioURL = url
	sess.DurationSec = durationSec
	log.Printf("lifecycle: session %s audio generated (%d segments, %d bytes, ~%ds)", sess.ID, len(docs), len(artifact), durationSec)
	return sess, nil
}

// Start is the legacy single-call path: create, script and audio in
// one request, with an overall timeout on the audio phase and an
// optional idempotency key guarding duplicate submissions.
func (s *Service) Start(ctx context.Context, req CreateRequest, idempotencyKey string) (store.Session, error) {
	if idempotencyKey != "" {
		if id, ok := s.idem.Get(idempotencyKey); ok {
			if s.metrics != nil {
				s.metrics.IdempotencyHits.Inc()
			}
			log.Printf("lifecycle: idempotency hit for key %q (session %s)", idempotencyKey, id)
			return s.loadSession(ctx, id)
		}
	}

	sess, err := s.Create(ctx, req)
	if err != nil {
		return store.Session{}, err
	}
	if _, err := s.GenerateScript(ctx, sess.ID); err != nil {
		return store.Session{}, err
	}

	audioCtx, cancel := context.WithTimeout(ctx, s.synthesisTimeout)
	defer cancel()
	out, err := s.GenerateAudio(audioCtx, sess.ID)
	if err != nil {
		return store.Session{}, err
	}

	if idempotencyKey != "" {
		s.idem.Add(idempotencyKey, out.ID)
	}
	return out, nil
}

// Session returns one session by id.
func (s *Service) Session(ctx context.Context, id string) (store.Session, error) {
	return s.loadSession(ctx, id)
}

// Sessions lists a user's sessions, newest first.
func (s *Service) Sessions(ctx context.Context, userID string) ([]store.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrValidation)
	}
	out, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return out, nil
}

// generateAllBatches plans the session and generates one validated
// document per batch, in order.
func (s *Service) generateAllBatches(ctx context.Context, sess store.Session) ([]ssml.Document, error) {
	p, err := plan.Compute(sess.Kind, sess.DurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	pctx := s.resolver.Resolve(ctx, sess.UserID)
	userName := s.userName(ctx, sess.UserID)

	docs := make([]ssml.Document, 0, len(p.Batches))
	for _, batch := range p.Batches {
		doc, err := s.generator.GenerateBatch(ctx, script.BatchRequest{
			Batch:    batch,
			Kind:     sess.Kind,
			Mood:     sess.Mood,
			Notes:    sess.UserNotes,
			UserName: userName,
			Context:  pctx,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		docs = append(docs, doc)
		if s.metrics != nil {
			s.metrics.GenerationBatches.Inc()
			s.metrics.ScriptBytes.Observe(float64(doc.ByteSize()))
		}
	}
	return docs, nil
}

// audioDocuments resolves the ordered document set to synthesize.
func (s *Service) audioDocuments(ctx context.Context, sess store.Session) ([]ssml.Document, error) {
	p, err := plan.Compute(sess.Kind, sess.DurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if p.Mode == plan.ModeBatched {
		return s.generateAllBatches(ctx, sess)
	}

	doc, err := ssml.Normalize(sess.Script)
	if err != nil {
		return nil, fmt.Errorf("%w: stored script: %v", ErrGeneration, err)
	}
	if doc.ByteSize() <= ssml.WorkingByteLimit {
		return []ssml.Document{doc}, nil
	}
	segments, err := ssml.Split(doc, ssml.WorkingByteLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return segments, nil
}

func (s *Service) loadSession(ctx context.Context, id string) (store.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return store.Session{}, mapStoreErr(err)
	}
	return sess, nil
}

// userName looks up the user's display name; best-effort.
func (s *Service) userName(ctx context.Context, userID string) string {
	name, err := s.store.UserName(ctx, userID)
	if err != nil {
		log.Printf("lifecycle: name lookup failed for user %s: %v", userID, err)
		return ""
	}
	return name
}

func (s *Service) observe(phase string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObservePhase(phase, start, err)
	}
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrScriptNotSet):
		return fmt.Errorf("%w: %v", ErrPrecondition, err)
	default:
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}

func mapCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrSynthesis, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
