package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppockey/po-approvals/internal/pkg/worker"
)

type fakeDirectory struct {
	costCenter string
	ccErr      error
	emails     map[string]string // role|cc -> email
	lookups    []string
	lookupErr  error
}

func (d *fakeDirectory) GetCostCenterKey(context.Context, string) (string, error) {
	return d.costCenter, d.ccErr
}

func (d *fakeDirectory) ResolveApproverEmail(_ context.Context, role, cc string) (string, bool, error) {
	d.lookups = append(d.lookups, role+"|"+cc)
	if d.lookupErr != nil {
		return "", false, d.lookupErr
	}
	if e, ok := d.emails[role+"|"+cc]; ok {
		return e, true, nil
	}
	if e, ok := d.emails[role+"|"]; ok {
		return e, true, nil
	}
	return "", false, nil
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	return s.err
}

func TestDirectoryNotifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		dir       *fakeDirectory
		wantEmail string
	}{
		{
			name:      "cost center mapping",
			dir:       &fakeDirectory{costCenter: "CC-1", emails: map[string]string{"LPM|CC-1": "cc@corp.com", "LPM|": "global@corp.com"}},
			wantEmail: "cc@corp.com",
		},
		{
			name:      "global fallback",
			dir:       &fakeDirectory{costCenter: "CC-2", emails: map[string]string{"LPM|": "global@corp.com"}},
			wantEmail: "global@corp.com",
		},
		{
			name:      "cost center lookup failure uses global",
			dir:       &fakeDirectory{ccErr: errors.New("db down"), emails: map[string]string{"LPM|": "global@corp.com"}},
			wantEmail: "global@corp.com",
		},
		{
			name: "no mapping",
			dir:  &fakeDirectory{emails: map[string]string{}},
		},
		{
			name: "lookup error",
			dir:  &fakeDirectory{lookupErr: errors.New("boom")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sender := &recordingSender{}
			NewDirectoryNotifier(tt.dir, sender).NotifyStageReady(context.Background(), "100", 1, "LPM")

			if tt.wantEmail == "" {
				assert.Empty(t, sender.msgs)
				return
			}
			require.Len(t, sender.msgs, 1)
			assert.Equal(t, tt.wantEmail, sender.msgs[0].Recipient)
			assert.Equal(t, "100", sender.msgs[0].PoNumber)
			assert.Equal(t, 1, sender.msgs[0].Sequence)
			assert.Contains(t, sender.msgs[0].Subject, "PO 100")
		})
	}
}

func TestDirectoryNotifier_SenderErrorSwallowed(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{emails: map[string]string{"GM|": "gm@corp.com"}}
	sender := &recordingSender{err: errors.New("smtp down")}

	assert.NotPanics(t, func() {
		NewDirectoryNotifier(dir, sender).NotifyStageReady(context.Background(), "100", 2, "GM")
	})
	assert.Len(t, sender.msgs, 1)
}

func TestLogSender_Validates(t *testing.T) {
	t.Parallel()

	require.Error(t, LogSender{}.Send(context.Background(), Message{PoNumber: "1"}))
	require.Error(t, LogSender{}.Send(context.Background(), Message{Recipient: "a@b"}))
	require.NoError(t, LogSender{}.Send(context.Background(), Message{Recipient: "a@b", PoNumber: "1"}))
}

type chanNotifier struct{ ch chan string }

func (c chanNotifier) NotifyStageReady(_ context.Context, po string, _ int, role string) {
	c.ch <- po + "/" + role
}

func TestAsyncNotifier(t *testing.T) {
	t.Parallel()

	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 1, NotifyPoolSize: 1})
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	next := chanNotifier{ch: make(chan string, 1)}
	NewAsyncNotifier(next, pools).NotifyStageReady(context.Background(), "100", 1, "LPM")

	select {
	case got := <-next.ch:
		assert.Equal(t, "100/LPM", got)
	case <-time.After(5 * time.Second):
		t.Fatal("notification not delivered")
	}
}

type rejectingPools struct{}

func (rejectingPools) SubmitDetached(string, worker.Task) error { return worker.ErrPoolClosed }

func TestAsyncNotifier_PoolClosed(t *testing.T) {
	t.Parallel()

	next := chanNotifier{ch: make(chan string, 1)}
	assert.NotPanics(t, func() {
		NewAsyncNotifier(next, rejectingPools{}).NotifyStageReady(context.Background(), "100", 1, "LPM")
	})
	assert.Empty(t, next.ch)
}
