package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createContract struct {
	Partner string
	Amount  int
}

func TestMutation_SuccessInvalidatesThenCompletes(t *testing.T) {
	c := NewClient(WithStaleTime(time.Hour))
	ctx := context.Background()

	var listCalls, statsCalls, otherCalls int32
	list := c.Subscribe(Key{"contracts", "bamboo"}, countingFetcher(&listCalls, "list"), Options{}, nil)
	stats := c.Subscribe(Key{"dashboard", "bamboo"}, countingFetcher(&statsCalls, "stats"), Options{}, nil)
	other := c.Subscribe(Key{"contracts", "bgfi"}, countingFetcher(&otherCalls, "list"), Options{}, nil)
	defer list.Unsubscribe()
	defer stats.Unsubscribe()
	defer other.Unsubscribe()
	for _, s := range []*Subscription{list, stats, other} {
		_, err := s.Result(ctx)
		require.NoError(t, err)
	}

	var doCalls int32
	m := &Mutation[createContract, string]{
		Client: c,
		Name:   "contracts.create",
		Do: func(ctx context.Context, in createContract) (string, error) {
			atomic.AddInt32(&doCalls, 1)
			// The cache has not been touched while the mutation runs.
			assert.Equal(t, int32(1), atomic.LoadInt32(&listCalls))
			return "CTR-9", nil
		},
		Invalidates: func(in createContract, out string) []Key {
			return []Key{{"contracts", in.Partner}, {"dashboard", in.Partner}}
		},
	}

	inv := m.Execute(ctx, createContract{Partner: "bamboo", Amount: 100})
	require.NoError(t, inv.Err())
	assert.Equal(t, "CTR-9", inv.Result())
	assert.Equal(t, MutationSuccess, inv.Status())
	assert.Equal(t, []MutationStatus{MutationIdle, MutationPending, MutationSuccess}, inv.History())
	assert.NotEmpty(t, inv.ID)

	// Dependent refetches are done by the time Execute returns.
	assert.Equal(t, int32(2), atomic.LoadInt32(&listCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&statsCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&otherCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&doCalls))
}

func TestMutation_FailureNeverInvalidatesAndIsNotRetried(t *testing.T) {
	var reported []string
	c := NewClient(WithStaleTime(time.Hour), WithErrorHandler(func(op string, err error) {
		reported = append(reported, op)
	}))
	ctx := context.Background()

	var listCalls int32
	list := c.Subscribe(Key{"claims", "bamboo"}, countingFetcher(&listCalls, "list"), Options{}, nil)
	defer list.Unsubscribe()
	_, _ = list.Result(ctx)

	boom := errors.New("422")
	var doCalls, invalidatesCalls int32
	m := &Mutation[string, string]{
		Client: c,
		Name:   "claims.create",
		Do: func(ctx context.Context, in string) (string, error) {
			atomic.AddInt32(&doCalls, 1)
			return "", boom
		},
		Invalidates: func(in, out string) []Key {
			atomic.AddInt32(&invalidatesCalls, 1)
			return []Key{{"claims"}}
		},
	}

	_, err := m.Mutate(ctx, "payload")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), atomic.LoadInt32(&doCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&invalidatesCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&listCalls))
	assert.Equal(t, []string{"mutation claims.create"}, reported)
}

func TestMutation_AuthorizeRunsBeforeNetwork(t *testing.T) {
	denied := errors.New("denied")
	var doCalls int32
	m := &Mutation[int, int]{
		Name: "claims.close",
		Do: func(ctx context.Context, in int) (int, error) {
			atomic.AddInt32(&doCalls, 1)
			return in, nil
		},
		Authorize: func(in int) error { return denied },
	}

	inv := m.Execute(context.Background(), 1)
	assert.ErrorIs(t, inv.Err(), denied)
	assert.Equal(t, MutationError, inv.Status())
	assert.Equal(t, []MutationStatus{MutationIdle, MutationPending, MutationError}, inv.History())
	assert.Equal(t, int32(0), atomic.LoadInt32(&doCalls))
}

func TestMutation_EachInvocationIsIndependent(t *testing.T) {
	fail := true
	m := &Mutation[int, int]{
		Name: "users.update",
		Do: func(ctx context.Context, in int) (int, error) {
			if fail {
				return 0, errors.New("first fails")
			}
			return in * 2, nil
		},
	}

	first := m.Execute(context.Background(), 2)
	fail = false
	second := m.Execute(context.Background(), 2)

	assert.Equal(t, MutationError, first.Status())
	assert.Equal(t, MutationSuccess, second.Status())
	assert.Equal(t, 4, second.Result())
	assert.NotEqual(t, first.ID, second.ID)
	assert.NoError(t, second.Err())
}
