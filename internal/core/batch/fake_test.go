package batch

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ghinfo/ghinfo/internal/core/models"
	"github.com/ghinfo/ghinfo/internal/core/services"
)

// fakeUpstream serves canned data. Each response carries the per-repo call
// index of its kind so that repeated fetches can be told apart.
type fakeUpstream struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]int
	delay    func(repo string) time.Duration
	panicOn  string

	inflight    int
	maxInflight int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
}

// fail makes kind fetches for repo answer with status.
func (u *fakeUpstream) fail(kind, repo string, status int) *fakeUpstream {
	u.failures[kind+":"+repo] = status
	return u
}

func (u *fakeUpstream) callCount(kind, repo string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[kind+":"+repo]
}

func (u *fakeUpstream) totalCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, c := range u.calls {
		n += c
	}
	return n
}

func (u *fakeUpstream) peakConcurrency() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.maxInflight
}

func (u *fakeUpstream) enter(kind, owner, name string) (int, error) {
	repo := owner + "/" + name

	u.mu.Lock()
	u.inflight++
	u.maxInflight = max(u.maxInflight, u.inflight)
	u.mu.Unlock()
	defer func() {
		u.mu.Lock()
		u.inflight--
		u.mu.Unlock()
	}()

	if u.delay != nil {
		time.Sleep(u.delay(repo))
	}
	if repo == u.panicOn {
		panic("upstream exploded")
	}

	u.mu.Lock()
	u.calls[kind+":"+repo]++
	n := u.calls[kind+":"+repo]
	status := u.failures[kind+":"+repo]
	u.mu.Unlock()

	if status != 0 {
		return n, &services.UpstreamError{Status: status, Message: http.StatusText(status)}
	}
	return n, nil
}

func (u *fakeUpstream) RepoInfo(_ context.Context, owner, name string) (*models.RepoInfo, error) {
	n, err := u.enter("repo_info", owner, name)
	if err != nil {
		return nil, err
	}
	return &models.RepoInfo{
		Repo:            owner + "/" + name,
		Name:            name,
		FullName:        owner + "/" + name,
		StargazersCount: n,
	}, nil
}

func (u *fakeUpstream) Releases(_ context.Context, owner, name string) ([]models.Release, error) {
	n, err := u.enter("releases", owner, name)
	if err != nil {
		return nil, err
	}
	releases := make([]models.Release, 0, n)
	for i := 0; i < n; i++ {
		releases = append(releases, models.Release{TagName: "v1.0.0"})
	}
	return releases, nil
}

func (u *fakeUpstream) LatestRelease(_ context.Context, owner, name string) (*models.LatestRelease, error) {
	n, err := u.enter("latest_release", owner, name)
	if err != nil {
		return nil, err
	}
	return &models.LatestRelease{
		Repo:          owner + "/" + name,
		LatestVersion: "v" + string(rune('0'+n)) + ".0.0",
		Attachments:   []models.Attachment{},
	}, nil
}
