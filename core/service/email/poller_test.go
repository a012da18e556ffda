package email

import (
	"context"
	"testing"
	"time"

	"smartmail_server/core/domain"
	"smartmail_server/core/port/out"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPollerLifecycle(t *testing.T) {
	provider := &fakeProvider{messages: map[string]*out.ProviderMessage{"m1": testMessage("m1")}, latestID: "m1"}
	repo := newFakeRepo()
	p := newTestProcessor(provider, repo, &fakeClassifier{}, &fakeSummarizer{})

	poller := NewPoller(provider, p, nil, 10*time.Millisecond)

	if poller.State() != PollerIdle {
		t.Fatalf("state = %v, want idle", poller.State())
	}

	poller.Arm(testSession())
	if poller.State() != PollerActive {
		t.Fatalf("state = %v, want active after Arm", poller.State())
	}

	waitFor(t, time.Second, func() bool {
		id, _ := poller.LastChecked()
		return id == "m1"
	})

	if _, ok := repo.records["m1"]; !ok {
		t.Error("new message not enriched")
	}

	poller.Stop()
	if poller.State() != PollerStopped {
		t.Errorf("state = %v, want stopped", poller.State())
	}
}

func TestPollerUnchangedIDNotReprocessed(t *testing.T) {
	provider := &fakeProvider{messages: map[string]*out.ProviderMessage{"m1": testMessage("m1")}, latestID: "m1"}
	repo := newFakeRepo()
	cls := &fakeClassifier{}
	p := newTestProcessor(provider, repo, cls, &fakeSummarizer{})

	poller := NewPoller(provider, p, nil, 10*time.Millisecond)
	poller.Arm(testSession())
	defer poller.Stop()

	waitFor(t, time.Second, func() bool {
		id, _ := poller.LastChecked()
		return id == "m1"
	})

	// Let several more ticks pass with the same latest id.
	time.Sleep(50 * time.Millisecond)

	if cls.calls != 1 {
		t.Errorf("classifier called %d times, want 1", cls.calls)
	}
}

func TestPollerNotArmedSkipsChecks(t *testing.T) {
	provider := &fakeProvider{latestID: "m1"}
	repo := newFakeRepo()
	p := newTestProcessor(provider, repo, &fakeClassifier{}, &fakeSummarizer{})

	poller := NewPoller(provider, p, nil, 10*time.Millisecond)
	poller.Start()
	defer poller.Stop()

	time.Sleep(50 * time.Millisecond)

	if id, _ := poller.LastChecked(); id != "" {
		t.Errorf("checkpoint moved to %q without a session", id)
	}
}

type memPollState struct {
	id string
	at time.Time
}

func (m *memPollState) LoadCheckpoint(ctx context.Context) (string, time.Time, error) {
	return m.id, m.at, nil
}

func (m *memPollState) SaveCheckpoint(ctx context.Context, id string, at time.Time) error {
	m.id, m.at = id, at
	return nil
}

func TestPollerRestoresCheckpoint(t *testing.T) {
	provider := &fakeProvider{messages: map[string]*out.ProviderMessage{"m1": testMessage("m1")}, latestID: "m1"}
	repo := newFakeRepo()
	cls := &fakeClassifier{}
	p := newTestProcessor(provider, repo, cls, &fakeSummarizer{})

	state := &memPollState{id: "m1", at: time.Now().Add(-time.Minute)}
	poller := NewPoller(provider, p, state, 10*time.Millisecond)
	poller.Arm(domain.Session{Email: "user@example.com", AccessToken: "at"})
	defer poller.Stop()

	time.Sleep(50 * time.Millisecond)

	// The latest id matches the restored checkpoint, so nothing runs.
	if cls.calls != 0 {
		t.Errorf("classifier called %d times for already-seen message", cls.calls)
	}
}
