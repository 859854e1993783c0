package bounty

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	apperrors "github.com/devlopersumit/issuehub/internal/errors"
	"github.com/devlopersumit/issuehub/internal/kvstore"
	"github.com/devlopersumit/issuehub/internal/types"
)

type refresherFixture struct {
	*pipelineFixture
	list      *kvstore.Namespace[[]types.ClassificationRecord]
	refresher *Refresher

	mu      sync.Mutex
	updates int
}

func newRefresherFixture(t *testing.T, interval time.Duration) *refresherFixture {
	t.Helper()
	f := &refresherFixture{pipelineFixture: newPipelineFixture(t)}
	f.list = kvstore.NewNamespace[[]types.ClassificationRecord](kvstore.NewMemoryStore(), kvstore.BountyPolicy, nil)
	f.refresher = NewRefresher(RefresherOptions{
		Pipeline:          f.pipeline,
		Limiter:           f.limiter,
		List:              f.list,
		Interval:          interval,
		NewSignalDuration: 50 * time.Millisecond,
		OnUpdate: func(records []types.ClassificationRecord) {
			f.mu.Lock()
			f.updates++
			f.mu.Unlock()
		},
	})
	f.repos.repos["acme/widgets"] = healthyRepo("acme/widgets")
	return f
}

func TestRefresherLoadIsCacheFirst(t *testing.T) {
	f := newRefresherFixture(t, time.Hour)
	cached := []types.ClassificationRecord{{Issue: bountyIssue(7, "acme/widgets", testNow)}}
	f.list.Set(context.Background(), listKey, cached)

	if err := f.refresher.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.searcher.calls() != 0 {
		t.Errorf("expected no search on a cache hit, got %d", f.searcher.calls())
	}
	if got := types.IssueIDs(f.refresher.Snapshot().Records); !reflect.DeepEqual(got, []int64{7}) {
		t.Errorf("records = %v, want [7]", got)
	}
	if f.updates != 1 {
		t.Errorf("expected OnUpdate to be called once, got %d", f.updates)
	}

	// Manual refresh bypasses the cached list
	f.searcher.results["q1"] = hits(bountyIssue(8, "acme/widgets", testNow.Add(time.Hour)))
	if err := f.refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if f.searcher.calls() != 3 {
		t.Errorf("expected a full fan-out, got %d searches", f.searcher.calls())
	}
	if got := types.IssueIDs(f.refresher.Snapshot().Records); !reflect.DeepEqual(got, []int64{8, 7}) {
		t.Errorf("records = %v, want [8 7]", got)
	}
	if entry, ok := f.list.Get(context.Background(), listKey); !ok || len(entry.Data) != 2 {
		t.Error("expected the refreshed list to be cached")
	}
}

func TestRefresherSurfacesErrorOnlyForVisibleRuns(t *testing.T) {
	f := newRefresherFixture(t, time.Hour)
	for _, q := range []string{"q1", "q2", "q3"} {
		f.searcher.errs[q] = &apperrors.ServiceUnavailableError{Status: 503}
	}

	err := f.refresher.Refresh(context.Background())
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("Refresh() error = %v, want ErrNoResults", err)
	}
	snap := f.refresher.Snapshot()
	if !errors.Is(snap.Err, ErrNoResults) || snap.Loading {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	if err := f.refresher.run(context.Background(), TriggerSchedule, true); err != nil {
		t.Errorf("silent run must not fail, got %v", err)
	}
}

func TestRefresherSilentRunKeepsPreviousList(t *testing.T) {
	f := newRefresherFixture(t, time.Hour)
	f.searcher.results["q1"] = hits(bountyIssue(1, "acme/widgets", testNow))
	if err := f.refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	for _, q := range []string{"q1", "q2", "q3"} {
		f.searcher.errs[q] = &apperrors.ServiceUnavailableError{Status: 503}
	}
	if err := f.refresher.run(context.Background(), TriggerSchedule, true); err != nil {
		t.Fatalf("silent run error = %v", err)
	}

	snap := f.refresher.Snapshot()
	if got := types.IssueIDs(snap.Records); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("records = %v, want [1]", got)
	}
	if snap.Err != nil {
		t.Errorf("silent runs must not surface errors, got %v", snap.Err)
	}
}

func TestRefresherNewSignalClears(t *testing.T) {
	f := newRefresherFixture(t, time.Hour)
	f.searcher.results["q1"] = hits(bountyIssue(1, "acme/widgets", testNow))
	if err := f.refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if n := f.refresher.Snapshot().NewCount; n != 0 {
		t.Errorf("visible runs do not raise the signal, got %d", n)
	}

	f.searcher.results["q1"] = hits(
		bountyIssue(1, "acme/widgets", testNow),
		bountyIssue(2, "acme/widgets", testNow.Add(time.Minute)),
		bountyIssue(3, "acme/widgets", testNow.Add(2*time.Minute)),
	)
	if err := f.refresher.run(context.Background(), TriggerSchedule, true); err != nil {
		t.Fatalf("silent run error = %v", err)
	}
	if n := f.refresher.Snapshot().NewCount; n != 2 {
		t.Fatalf("NewCount = %d, want 2", n)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.refresher.Snapshot().NewCount != 0 {
		if time.Now().After(deadline) {
			t.Fatal("new signal did not clear")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRefresherStartRunsOnSchedule(t *testing.T) {
	f := newRefresherFixture(t, 20*time.Millisecond)
	f.searcher.results["q1"] = hits(bountyIssue(1, "acme/widgets", testNow))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.refresher.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for f.searcher.calls() < 6 {
		if time.Now().After(deadline) {
			t.Fatal("scheduled refresh did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}
}

func TestRefresherSkipsScheduleWhileLimited(t *testing.T) {
	f := newRefresherFixture(t, 10*time.Millisecond)
	cached := []types.ClassificationRecord{{Issue: bountyIssue(7, "acme/widgets", testNow)}}
	f.list.Set(context.Background(), listKey, cached)
	f.limiter.limited = true

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = f.refresher.Start(ctx)

	if f.searcher.calls() != 0 {
		t.Errorf("expected no scheduled runs while limited, got %d searches", f.searcher.calls())
	}
}
