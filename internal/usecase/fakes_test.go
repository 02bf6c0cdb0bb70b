package usecase

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/legacy"
	"github.com/ppockey/po-approvals/internal/repository"
)

// memState is the whole fake database. InTx works on a clone and swaps it in
// on commit, so a failed transaction leaves no trace.
type memState struct {
	chains    map[string]domain.ApprovalChain
	stages    map[string][]domain.ApprovalStage
	outbox    []domain.OutboxEvent
	locked    map[int64]bool
	audit     []domain.AuditRecord
	headers   map[string]domain.POHeader
	poStatus  map[string]domain.POState
	lines     map[string][]domain.POLine
	costCtr   map[string]string
	indirect  map[string]decimal.Decimal
	direct    map[string]decimal.Decimal
	directory map[string]string
	nextID    int64
}

func newMemState() *memState {
	return &memState{
		chains:    map[string]domain.ApprovalChain{},
		stages:    map[string][]domain.ApprovalStage{},
		locked:    map[int64]bool{},
		headers:   map[string]domain.POHeader{},
		poStatus:  map[string]domain.POState{},
		lines:     map[string][]domain.POLine{},
		costCtr:   map[string]string{},
		indirect:  map[string]decimal.Decimal{},
		direct:    map[string]decimal.Decimal{},
		directory: map[string]string{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		chains:    maps.Clone(s.chains),
		stages:    make(map[string][]domain.ApprovalStage, len(s.stages)),
		outbox:    slices.Clone(s.outbox),
		locked:    maps.Clone(s.locked),
		audit:     slices.Clone(s.audit),
		headers:   maps.Clone(s.headers),
		poStatus:  maps.Clone(s.poStatus),
		lines:     make(map[string][]domain.POLine, len(s.lines)),
		costCtr:   maps.Clone(s.costCtr),
		indirect:  maps.Clone(s.indirect),
		direct:    maps.Clone(s.direct),
		directory: maps.Clone(s.directory),
		nextID:    s.nextID,
	}
	for k, v := range s.stages {
		c.stages[k] = slices.Clone(v)
	}
	for k, v := range s.lines {
		c.lines[k] = slices.Clone(v)
	}
	return c
}

// memQ implements repository.Querier over a memState.
type memQ struct {
	st     *memState
	faults map[string]error
}

func (q *memQ) fault(op string) error {
	return q.faults[op]
}

func (q *memQ) ChainExists(_ context.Context, po string) (bool, error) {
	_, ok := q.st.chains[po]
	return ok, nil
}

func (q *memQ) CreateChain(_ context.Context, po string, createdAt time.Time) (int64, error) {
	if err := q.fault("CreateChain"); err != nil {
		return 0, err
	}
	if _, ok := q.st.chains[po]; ok {
		return 0, nil
	}
	q.st.chains[po] = domain.ApprovalChain{PoNumber: po, Status: domain.ChainPending, CreatedAt: createdAt}
	return 1, nil
}

func (q *memQ) GetChain(_ context.Context, po string) (domain.ApprovalChain, error) {
	c, ok := q.st.chains[po]
	if !ok {
		return domain.ApprovalChain{}, fmt.Errorf("get chain %s: %w", po, domain.ErrChainNotFound)
	}
	return c, nil
}

func (q *memQ) LockChain(ctx context.Context, po string) (domain.ApprovalChain, error) {
	return q.GetChain(ctx, po)
}

func (q *memQ) FinalizeChain(_ context.Context, po string, status domain.ChainStatus, at time.Time) (int64, error) {
	c, ok := q.st.chains[po]
	if !ok || c.Status != domain.ChainPending {
		return 0, nil
	}
	c.Status = status
	c.FinalizedAt = &at
	q.st.chains[po] = c
	return 1, nil
}

func (q *memQ) InsertStages(_ context.Context, stages []domain.ApprovalStage) error {
	if err := q.fault("InsertStages"); err != nil {
		return err
	}
	for _, s := range stages {
		q.st.stages[s.PoNumber] = append(q.st.stages[s.PoNumber], s)
	}
	for po := range q.st.stages {
		sort.Slice(q.st.stages[po], func(i, j int) bool {
			return q.st.stages[po][i].Sequence < q.st.stages[po][j].Sequence
		})
	}
	return nil
}

func (q *memQ) GetStage(_ context.Context, po string, seq int) (domain.ApprovalStage, error) {
	for _, s := range q.st.stages[po] {
		if s.Sequence == seq {
			return s, nil
		}
	}
	return domain.ApprovalStage{}, fmt.Errorf("get stage %s/%d: %w", po, seq, domain.ErrStageNotFound)
}

func (q *memQ) ListStages(_ context.Context, po string) ([]domain.ApprovalStage, error) {
	return slices.Clone(q.st.stages[po]), nil
}

func (q *memQ) FirstPendingStage(_ context.Context, po string) (*domain.ApprovalStage, error) {
	for _, s := range q.st.stages[po] {
		if s.Status == domain.StagePending {
			return &s, nil
		}
	}
	return nil, nil
}

func (q *memQ) DecideStage(_ context.Context, po string, seq int, status domain.StageStatus, actor string, at time.Time) (int64, error) {
	for i, s := range q.st.stages[po] {
		if s.Sequence == seq && s.Status == domain.StagePending {
			s.Status = status
			s.ApproverIdentity = actor
			s.DecidedAt = &at
			q.st.stages[po][i] = s
			return 1, nil
		}
	}
	return 0, nil
}

func (q *memQ) CountPendingStages(_ context.Context, po string) (int, error) {
	n := 0
	for _, s := range q.st.stages[po] {
		if s.Status == domain.StagePending {
			n++
		}
	}
	return n, nil
}

func (q *memQ) ListPendingOutbox(_ context.Context, eventType domain.EventType, maxAttempts, limit int) ([]int64, error) {
	if err := q.fault("ListPendingOutbox"); err != nil {
		return nil, err
	}
	var ids []int64
	for _, ev := range q.st.outbox {
		if ev.EventType != eventType || ev.ProcessedAt != nil {
			continue
		}
		if maxAttempts > 0 && ev.Attempts >= maxAttempts {
			continue
		}
		ids = append(ids, ev.ID)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (q *memQ) event(id int64) (int, bool) {
	for i, ev := range q.st.outbox {
		if ev.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (q *memQ) LockOutboxEvent(_ context.Context, id int64) (*domain.OutboxEvent, error) {
	i, ok := q.event(id)
	if !ok || q.st.locked[id] || q.st.outbox[i].ProcessedAt != nil {
		return nil, nil
	}
	ev := q.st.outbox[i]
	return &ev, nil
}

func (q *memQ) MarkOutboxProcessed(_ context.Context, id int64, at time.Time) (int64, error) {
	if err := q.fault("MarkOutboxProcessed"); err != nil {
		return 0, err
	}
	i, ok := q.event(id)
	if !ok || q.st.outbox[i].ProcessedAt != nil {
		return 0, nil
	}
	q.st.outbox[i].ProcessedAt = &at
	return 1, nil
}

func (q *memQ) IncrementOutboxAttempts(_ context.Context, id int64) (int64, error) {
	if err := q.fault("IncrementOutboxAttempts"); err != nil {
		return 0, err
	}
	i, ok := q.event(id)
	if !ok || q.st.outbox[i].ProcessedAt != nil {
		return 0, nil
	}
	q.st.outbox[i].Attempts++
	return 1, nil
}

func (q *memQ) EnqueueOutbox(_ context.Context, ev domain.OutboxEvent) (bool, error) {
	if err := q.fault("EnqueueOutbox"); err != nil {
		return false, err
	}
	for _, e := range q.st.outbox {
		if e.EventType == ev.EventType && e.PoNumber == ev.PoNumber && e.ProcessedAt == nil {
			return false, nil
		}
	}
	q.st.nextID++
	ev.ID = q.st.nextID
	q.st.outbox = append(q.st.outbox, ev)
	return true, nil
}

func (q *memQ) AppendAudit(_ context.Context, rec domain.AuditRecord) (int64, error) {
	if err := q.fault("AppendAudit"); err != nil {
		return 0, err
	}
	q.st.nextID++
	rec.ID = q.st.nextID
	q.st.audit = append(q.st.audit, rec)
	return rec.ID, nil
}

func (q *memQ) ListAudit(_ context.Context, po string) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	for _, r := range q.st.audit {
		if r.PoNumber == po {
			out = append(out, r)
		}
	}
	return out, nil
}

func (q *memQ) UpsertPOHeader(_ context.Context, h domain.POHeader) error {
	if err := q.fault("UpsertPOHeader"); err != nil {
		return err
	}
	q.st.headers[h.PoNumber] = h
	q.st.poStatus[h.PoNumber] = domain.POWaiting
	return nil
}

func (q *memQ) ReplacePOLines(_ context.Context, po string, lines []domain.POLine) error {
	q.st.lines[po] = slices.Clone(lines)
	return nil
}

func (q *memQ) SetPOStatus(_ context.Context, po string, status domain.POState) error {
	if _, ok := q.st.headers[po]; !ok {
		return fmt.Errorf("set po %s status: %w", po, domain.ErrHeaderNotFound)
	}
	q.st.poStatus[po] = status
	return nil
}

func (q *memQ) GetCostCenterKey(_ context.Context, po string) (string, error) {
	return q.st.costCtr[po], nil
}

func (q *memQ) IndirectBracket(_ context.Context, level string) (decimal.NullDecimal, error) {
	return lookupBracket(q.st.indirect, level), nil
}

func (q *memQ) DirectBracket(_ context.Context, level string) (decimal.NullDecimal, error) {
	return lookupBracket(q.st.direct, level), nil
}

func lookupBracket(m map[string]decimal.Decimal, level string) decimal.NullDecimal {
	d, ok := m[level]
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}

func (q *memQ) ResolveApproverEmail(_ context.Context, role, costCenter string) (string, bool, error) {
	if e, ok := q.st.directory[strings.ToUpper(role)+"|"+costCenter]; ok {
		return e, true, nil
	}
	e, ok := q.st.directory[strings.ToUpper(role)+"|"]
	return e, ok, nil
}

// memStore is a repository.Store over memState. Transactions are serialized.
type memStore struct {
	*memQ
	mu sync.Mutex

	// transientFailures makes that many transaction attempts fail at commit
	// with a serialization error.
	transientFailures int
	txAttempts        int
}

func newMemStore() *memStore {
	return &memStore{memQ: &memQ{st: newMemState(), faults: map[string]error{}}}
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) InTx(ctx context.Context, opts repository.TxOptions, fn repository.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tries := max(opts.MaxTries, 1)
	var err error
	for attempt := uint(1); attempt <= tries; attempt++ {
		s.txAttempts++
		snap := &memQ{st: s.st.clone(), faults: s.faults}
		err = fn(ctx, snap)
		if err == nil && s.transientFailures > 0 {
			s.transientFailures--
			err = &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
		}
		if err == nil {
			*s.st = *snap.st
			return nil
		}
		if !repository.IsTransient(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrTransientTx, err)
}

// seedChain stores a pending chain with the given roles as pending stages.
func (s *memStore) seedChain(po string, roles ...string) {
	s.st.chains[po] = domain.ApprovalChain{PoNumber: po, Status: domain.ChainPending, CreatedAt: time.Now()}
	s.st.headers[po] = domain.POHeader{PoNumber: po}
	s.st.poStatus[po] = domain.POWaiting
	for i, r := range roles {
		s.st.stages[po] = append(s.st.stages[po], domain.ApprovalStage{
			PoNumber: po, Sequence: i + 1, RoleCode: r, Status: domain.StagePending,
		})
	}
}

func (s *memStore) enqueue(ev domain.OutboxEvent) int64 {
	ok, err := s.EnqueueOutbox(context.Background(), ev)
	if err != nil || !ok {
		panic(fmt.Sprintf("enqueue %s: %v %v", ev.PoNumber, ok, err))
	}
	return s.st.nextID
}

func (s *memStore) auditNotes(po string) []string {
	var notes []string
	for _, r := range s.st.audit {
		if r.PoNumber == po {
			notes = append(notes, r.Note)
		}
	}
	return notes
}

// recordingWriter is a legacy.Writer that records calls.
type recordingWriter struct {
	mu         sync.Mutex
	audits     []legacy.AuditEntry
	triggers   []string
	auditErr   error
	triggerErr error
}

func (w *recordingWriter) TryClaim(context.Context, string, time.Time) (bool, error) {
	return true, nil
}

func (w *recordingWriter) WriteApprovalAudit(_ context.Context, e legacy.AuditEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.auditErr != nil {
		return w.auditErr
	}
	w.audits = append(w.audits, e)
	return nil
}

func (w *recordingWriter) FireTrigger(_ context.Context, po string, _ time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.triggerErr != nil {
		return w.triggerErr
	}
	w.triggers = append(w.triggers, po)
	return nil
}

type notifyCall struct {
	po   string
	seq  int
	role string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) NotifyStageReady(_ context.Context, po string, seq int, role string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{po: po, seq: seq, role: role})
}

// sliceSource yields records, then err if set.
type sliceSource struct {
	records []legacy.Record
	err     error
}

func (s sliceSource) Waiting(context.Context) iter.Seq2[legacy.Record, error] {
	return func(yield func(legacy.Record, error) bool) {
		for _, r := range s.records {
			if !yield(r, nil) {
				return
			}
		}
		if s.err != nil {
			yield(legacy.Record{}, s.err)
		}
	}
}

var (
	_ repository.Store = (*memStore)(nil)
	_ legacy.Writer    = (*recordingWriter)(nil)
	_ WaitingSource    = sliceSource{}
)
