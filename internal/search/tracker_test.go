package search

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"outreach/internal/api"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	taskA = "11111111-1111-4111-8111-111111111111"
	taskB = "22222222-2222-4222-8222-222222222222"

	rawU1 = "aaaaaaaa-0000-4000-8000-000000000001"
	rawD2 = "aaaaaaaa-0000-4000-8000-000000000002"
	rawU3 = "aaaaaaaa-0000-4000-8000-000000000003"
)

// fakeBackend answers synchronously. Poll statuses are consumed in order and
// the last one repeats.
type fakeBackend struct {
	createResp api.CreateSearchTaskResponse
	createErr  error
	createReqs []api.CreateSearchTaskRequest

	statuses   map[string][]api.TaskStatus
	pollErrAt  map[int]error
	polls      map[string]int
	lastStatus map[string]api.TaskStatus

	results       map[string][]api.SearchResult
	resultsErr    error
	resultsCalls  map[string]int
	resultsStatus []api.TaskStatus

	saveResp api.SaveInfluencersResponse
	saveErr  error
	saveReqs []api.SaveInfluencersRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		statuses:     make(map[string][]api.TaskStatus),
		pollErrAt:    make(map[int]error),
		polls:        make(map[string]int),
		lastStatus:   make(map[string]api.TaskStatus),
		results:      make(map[string][]api.SearchResult),
		resultsCalls: make(map[string]int),
	}
}

func (f *fakeBackend) CreateSearchTask(_ context.Context, req api.CreateSearchTaskRequest) (api.CreateSearchTaskResponse, error) {
	f.createReqs = append(f.createReqs, req)
	return f.createResp, f.createErr
}

func (f *fakeBackend) GetSearchTask(_ context.Context, id string) (api.SearchTask, error) {
	f.polls[id]++
	n := f.polls[id]
	if err, ok := f.pollErrAt[n]; ok {
		return api.SearchTask{}, err
	}
	seq := f.statuses[id]
	if len(seq) == 0 {
		return api.SearchTask{}, errors.New("unknown task")
	}
	idx := n - 1
	if idx >= len(seq) {
		idx = len(seq) - 1
	}
	st := seq[idx]
	f.lastStatus[id] = st
	task := api.SearchTask{TaskID: id, Status: st}
	if st == api.StatusDone {
		task.ResultCount = len(f.results[id])
	}
	return task, nil
}

func (f *fakeBackend) GetSearchResults(_ context.Context, id string) ([]api.SearchResult, error) {
	f.resultsCalls[id]++
	f.resultsStatus = append(f.resultsStatus, f.lastStatus[id])
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	return f.results[id], nil
}

func (f *fakeBackend) SaveInfluencers(_ context.Context, req api.SaveInfluencersRequest) (api.SaveInfluencersResponse, error) {
	f.saveReqs = append(f.saveReqs, req)
	return f.saveResp, f.saveErr
}

func result(raw, dedup string) api.SearchResult {
	return api.SearchResult{
		DedupedID:      "dd-" + raw,
		RawResultID:    raw,
		DedupStatus:    dedup,
		Platform:       "youtube",
		PlatformUserID: "uc-" + raw[len(raw)-1:],
		DisplayName:    "Creator " + raw[len(raw)-1:],
		ProfileURL:     "https://youtube.com/@creator" + raw[len(raw)-1:],
	}
}

func threeResults() []api.SearchResult {
	return []api.SearchResult{
		result(rawU1, api.DedupUnique),
		result(rawD2, "duplicate_platform"),
		result(rawU3, api.DedupUnique),
	}
}

func newTestTracker(t *testing.T, b *fakeBackend) *Tracker {
	t.Helper()
	tr := NewTracker(context.Background(), b, Options{PollInterval: time.Millisecond})
	t.Cleanup(tr.Close)
	return tr
}

// drain runs commands synchronously, feeding each message back into the
// tracker, until no follow-up command is returned.
func drain(t *testing.T, tr *Tracker, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 100, "tracker did not settle")
		cmd = tr.Update(cmd())
	}
}

func openDone(t *testing.T, tr *Tracker, b *fakeBackend, id string, results []api.SearchResult) {
	t.Helper()
	b.statuses[id] = []api.TaskStatus{api.StatusDone}
	b.results[id] = results
	cmd, err := tr.Open(id)
	require.NoError(t, err)
	drain(t, tr, cmd)
	require.True(t, tr.ResultsLoaded())
}

func TestToggleIsIdempotent(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, threeResults())

	assert.True(t, tr.Toggle(rawU1, true))
	for i := 0; i < 5; i++ {
		assert.False(t, tr.Toggle(rawU1, true))
	}
	assert.Equal(t, []string{rawU1}, tr.Selected())

	assert.True(t, tr.Toggle(rawU1, false))
	assert.False(t, tr.Toggle(rawU1, false))
	assert.Equal(t, 0, tr.SelectedCount())
}

func TestToggleRejectsUnknownAndDuplicates(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, threeResults())

	assert.False(t, tr.Toggle("bbbbbbbb-0000-4000-8000-000000000009", true))
	assert.False(t, tr.Toggle(rawD2, true))
	assert.Equal(t, 0, tr.SelectedCount())
}

func TestResultsLoadOnlyOnFirstDone(t *testing.T) {
	b := newFakeBackend()
	b.statuses[taskA] = []api.TaskStatus{api.StatusPending, api.StatusRunning, api.StatusRunning, api.StatusDone}
	b.results[taskA] = threeResults()
	tr := newTestTracker(t, b)

	cmd, err := tr.Open(taskA)
	require.NoError(t, err)
	drain(t, tr, cmd)

	assert.Equal(t, 4, b.polls[taskA])
	assert.Equal(t, 1, b.resultsCalls[taskA])
	assert.Equal(t, []api.TaskStatus{api.StatusDone}, b.resultsStatus)
	assert.False(t, tr.Polling())

	// A late tick after the terminal status must not poll or reload.
	assert.Nil(t, tr.Update(pollTickMsg{sub: tr.binder.Current()}))
	assert.Equal(t, 4, b.polls[taskA])
	assert.Equal(t, 1, b.resultsCalls[taskA])
}

func TestFailedTaskNeverLoadsResults(t *testing.T) {
	b := newFakeBackend()
	b.statuses[taskA] = []api.TaskStatus{api.StatusPending, api.StatusRunning, api.StatusFailed}
	tr := newTestTracker(t, b)

	cmd, err := tr.Open(taskA)
	require.NoError(t, err)
	drain(t, tr, cmd)

	task, ok := tr.Task()
	require.True(t, ok)
	assert.Equal(t, api.StatusFailed, task.Status)
	assert.Equal(t, 0, b.resultsCalls[taskA])
	assert.False(t, tr.ResultsLoaded())
	assert.False(t, tr.Polling())

	_, err = tr.RefreshResults()
	assert.True(t, api.IsValidation(err))
}

func TestSelectAllUniqueThenClear(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, threeResults())

	tr.Toggle(rawU3, true)
	tr.SelectAllUnique()
	assert.Equal(t, []string{rawU1, rawU3}, tr.Selected())

	tr.ClearSelection()
	assert.Empty(t, tr.Selected())
}

func TestSelectAllUniqueReplacesSelection(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, []api.SearchResult{result(rawU1, api.DedupUnique)})

	tr.SelectAllUnique()
	tr.SelectAllUnique()
	assert.Equal(t, []string{rawU1}, tr.Selected())
}

func TestSwitchingTaskResetsSelection(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, threeResults())
	tr.SelectAllUnique()
	require.Equal(t, 2, tr.SelectedCount())

	b.statuses[taskB] = []api.TaskStatus{api.StatusRunning}
	cmd, err := tr.Open(taskB)
	require.NoError(t, err)
	require.NotNil(t, cmd)

	assert.Equal(t, taskB, tr.TaskID())
	assert.Equal(t, 0, tr.SelectedCount())
	assert.Empty(t, tr.Results())
	assert.False(t, tr.ResultsLoaded())
}

func TestOpenSameTaskIsNoop(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, threeResults())
	tr.SelectAllUnique()

	cmd, err := tr.Open(taskA)
	require.NoError(t, err)
	assert.Nil(t, cmd)
	assert.Equal(t, 2, tr.SelectedCount())
}

func TestOpenRejectsInvalidID(t *testing.T) {
	tr := newTestTracker(t, newFakeBackend())

	cmd, err := tr.Open("not-a-uuid")
	assert.Nil(t, cmd)
	assert.True(t, api.IsValidation(err))
	assert.Equal(t, "", tr.TaskID())
}

func TestScenarioCreatePollSelectSave(t *testing.T) {
	b := newFakeBackend()
	b.createResp = api.CreateSearchTaskResponse{TaskID: taskA, Status: api.StatusPending}
	b.statuses[taskA] = []api.TaskStatus{api.StatusPending, api.StatusRunning, api.StatusDone}
	b.results[taskA] = threeResults()
	b.saveResp = api.SaveInfluencersResponse{SavedCount: 2, SkippedCount: 0}
	tr := newTestTracker(t, b)

	cmd, err := tr.StartTask("  US tech youtubers 10k+ ")
	require.NoError(t, err)
	assert.True(t, tr.Creating())
	drain(t, tr, cmd)

	require.Len(t, b.createReqs, 1)
	if diff := cmp.Diff(api.CreateSearchTaskRequest{
		Query:     "US tech youtubers 10k+",
		Platforms: []string{"youtube"},
	}, b.createReqs[0]); diff != "" {
		t.Errorf("create request mismatch (-want +got):\n%s", diff)
	}

	task, ok := tr.Task()
	require.True(t, ok)
	assert.Equal(t, api.StatusDone, task.Status)
	assert.Equal(t, 3, task.ResultCount)
	assert.Len(t, tr.Results(), 3)

	tr.SelectAllUnique()
	assert.Equal(t, []string{rawU1, rawU3}, tr.Selected())

	cmd, err = tr.Save()
	require.NoError(t, err)
	assert.True(t, tr.Saving())
	drain(t, tr, cmd)

	require.Len(t, b.saveReqs, 1)
	assert.Equal(t, taskA, b.saveReqs[0].TaskID)
	assert.ElementsMatch(t, []string{rawU1, rawU3}, b.saveReqs[0].SelectedResultIDs)

	outcome, ok := tr.Outcome()
	require.True(t, ok)
	assert.Equal(t, api.SaveInfluencersResponse{SavedCount: 2, SkippedCount: 0}, outcome)
	assert.Equal(t, 0, tr.SelectedCount())
	assert.False(t, tr.Saving())
	assert.NoError(t, tr.Err(OpSave))
}

func TestSaveEmptySelectionIssuesNoRequest(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTracker(t, b)

	cmd, err := tr.Save()
	assert.Nil(t, cmd)
	assert.True(t, api.IsValidation(err), "no task bound")

	openDone(t, tr, b, taskA, threeResults())
	cmd, err = tr.Save()
	assert.Nil(t, cmd)
	assert.True(t, api.IsValidation(err), "nothing selected")
	assert.Error(t, tr.Err(OpSave))
	assert.Empty(t, b.saveReqs)
}

func TestSaveFailurePreservesSelection(t *testing.T) {
	b := newFakeBackend()
	b.saveErr = &api.ServerError{Op: "save influencers", StatusCode: 500, Detail: "db down"}
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, threeResults())
	tr.SelectAllUnique()

	cmd, err := tr.Save()
	require.NoError(t, err)
	drain(t, tr, cmd)

	assert.Equal(t, []string{rawU1, rawU3}, tr.Selected())
	assert.True(t, api.IsServer(tr.Err(OpSave)))
	_, ok := tr.Outcome()
	assert.False(t, ok)

	// Retry succeeds with the preserved selection.
	b.saveErr = nil
	b.saveResp = api.SaveInfluencersResponse{SavedCount: 1, SkippedCount: 1}
	cmd, err = tr.Save()
	require.NoError(t, err)
	drain(t, tr, cmd)
	assert.Equal(t, 0, tr.SelectedCount())
	assert.NoError(t, tr.Err(OpSave))
}

func TestSaveWhileSavingIsBusy(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, threeResults())
	tr.SelectAllUnique()

	cmd, err := tr.Save()
	require.NoError(t, err)
	_, err = tr.Save()
	assert.ErrorIs(t, err, ErrBusy)
	drain(t, tr, cmd)
}

func TestSaveKeepsIdsToggledDuringRequest(t *testing.T) {
	b := newFakeBackend()
	b.saveResp = api.SaveInfluencersResponse{SavedCount: 1}
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, threeResults())

	tr.Toggle(rawU1, true)
	cmd, err := tr.Save()
	require.NoError(t, err)
	tr.Toggle(rawU3, true)
	drain(t, tr, cmd)

	assert.Equal(t, []string{rawU3}, tr.Selected())
}

func TestStalePollIgnoredAfterSwitch(t *testing.T) {
	b := newFakeBackend()
	b.statuses[taskA] = []api.TaskStatus{api.StatusDone}
	b.statuses[taskB] = []api.TaskStatus{api.StatusRunning}
	tr := newTestTracker(t, b)

	cmdA, err := tr.Open(taskA)
	require.NoError(t, err)
	cmdB, err := tr.Open(taskB)
	require.NoError(t, err)

	// B resolves first; its follow-up tick is left unexecuted.
	tickB := tr.Update(cmdB())
	require.NotNil(t, tickB)

	// A's response arrives late and must not touch B's state.
	assert.Nil(t, tr.Update(cmdA()))
	task, ok := tr.Task()
	require.True(t, ok)
	assert.Equal(t, taskB, task.TaskID)
	assert.Equal(t, api.StatusRunning, task.Status)
	assert.Equal(t, 0, b.resultsCalls[taskA])
	assert.Equal(t, int64(1), tr.Stats().StaleDropped)
}

func TestStaleTickIsDropped(t *testing.T) {
	b := newFakeBackend()
	b.statuses[taskA] = []api.TaskStatus{api.StatusRunning}
	b.statuses[taskB] = []api.TaskStatus{api.StatusRunning}
	tr := newTestTracker(t, b)

	cmd, err := tr.Open(taskA)
	require.NoError(t, err)
	tick := tr.Update(cmd())
	require.NotNil(t, tick)

	_, err = tr.Open(taskB)
	require.NoError(t, err)

	assert.Nil(t, tr.Update(tick()))
	assert.Equal(t, 1, b.polls[taskA])
}

func TestPollFailureKeepsSnapshot(t *testing.T) {
	b := newFakeBackend()
	b.statuses[taskA] = []api.TaskStatus{api.StatusRunning, api.StatusRunning, api.StatusDone}
	b.pollErrAt[2] = &api.NetworkError{Op: "get search task", Err: errors.New("connection refused")}
	b.results[taskA] = threeResults()
	tr := newTestTracker(t, b)

	cmd, err := tr.Open(taskA)
	require.NoError(t, err)
	tick := tr.Update(cmd())
	require.NotNil(t, tick)

	next := tr.Update(tick())
	require.NotNil(t, next)
	failed := tr.Update(next())
	assert.NotNil(t, failed, "polling continues after an error")
	assert.True(t, api.IsNetwork(tr.Err(OpPoll)))
	task, _ := tr.Task()
	assert.Equal(t, api.StatusRunning, task.Status)

	drain(t, tr, failed)
	task, _ = tr.Task()
	assert.Equal(t, api.StatusDone, task.Status)
	assert.NoError(t, tr.Err(OpPoll))
	assert.Equal(t, int64(1), tr.Stats().PollErrors)
	assert.True(t, tr.ResultsLoaded())
}

func TestUnknownStatusKeepsPolling(t *testing.T) {
	b := newFakeBackend()
	b.statuses[taskA] = []api.TaskStatus{api.StatusRunning, "archived", api.StatusDone}
	b.results[taskA] = threeResults()
	tr := newTestTracker(t, b)

	cmd, err := tr.Open(taskA)
	require.NoError(t, err)
	drain(t, tr, cmd)

	assert.Equal(t, 3, b.polls[taskA])
	assert.Equal(t, int64(1), tr.Stats().UnknownStatuses)
	task, _ := tr.Task()
	assert.Equal(t, api.StatusDone, task.Status)
	assert.True(t, tr.ResultsLoaded())
}

func TestResultsFailureAllowsRefresh(t *testing.T) {
	b := newFakeBackend()
	b.statuses[taskA] = []api.TaskStatus{api.StatusDone}
	b.results[taskA] = threeResults()
	b.resultsErr = &api.ServerError{Op: "get search results", StatusCode: 502}
	tr := newTestTracker(t, b)

	cmd, err := tr.Open(taskA)
	require.NoError(t, err)
	drain(t, tr, cmd)
	assert.False(t, tr.ResultsLoaded())
	assert.Error(t, tr.Err(OpResults))

	b.resultsErr = nil
	cmd, err = tr.RefreshResults()
	require.NoError(t, err)
	drain(t, tr, cmd)
	assert.True(t, tr.ResultsLoaded())
	assert.NoError(t, tr.Err(OpResults))
	assert.Equal(t, 2, b.resultsCalls[taskA])
}

func TestRefreshPrunesSelection(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, []api.SearchResult{
		result(rawU1, api.DedupUnique),
		result(rawU3, api.DedupUnique),
	})
	tr.SelectAllUnique()

	b.results[taskA] = []api.SearchResult{
		result(rawU1, api.DedupUnique),
		result(rawU3, "duplicate_email"),
	}
	cmd, err := tr.RefreshResults()
	require.NoError(t, err)
	drain(t, tr, cmd)

	assert.Equal(t, []string{rawU1}, tr.Selected())
	assert.Equal(t, []string{rawU1}, tr.UniqueIDs())
}

func TestStartTaskRejectsBlankQuery(t *testing.T) {
	b := newFakeBackend()
	tr := newTestTracker(t, b)

	for _, q := range []string{"", "   ", "\t\n"} {
		cmd, err := tr.StartTask(q)
		assert.Nil(t, cmd)
		assert.True(t, api.IsValidation(err), "query %q", q)
	}
	assert.Empty(t, b.createReqs)
	assert.Error(t, tr.Err(OpCreate))
}

func TestStartTaskFailureStartsNoPolling(t *testing.T) {
	b := newFakeBackend()
	b.createErr = &api.NetworkError{Op: "create search task", Err: errors.New("dial tcp: refused")}
	tr := newTestTracker(t, b)

	cmd, err := tr.StartTask("cooking channels")
	require.NoError(t, err)
	drain(t, tr, cmd)

	assert.Equal(t, "", tr.TaskID())
	assert.False(t, tr.Polling())
	assert.False(t, tr.Creating())
	assert.True(t, api.IsNetwork(tr.Err(OpCreate)))
	assert.Empty(t, b.polls)
}

func TestStartTaskWhileCreatingIsBusy(t *testing.T) {
	b := newFakeBackend()
	b.createResp = api.CreateSearchTaskResponse{TaskID: taskA, Status: api.StatusPending}
	b.statuses[taskA] = []api.TaskStatus{api.StatusFailed}
	tr := newTestTracker(t, b)

	cmd, err := tr.StartTask("first")
	require.NoError(t, err)
	_, err = tr.StartTask("second")
	assert.ErrorIs(t, err, ErrBusy)
	drain(t, tr, cmd)
	assert.Len(t, b.createReqs, 1)
}

func TestStartTaskOptions(t *testing.T) {
	b := newFakeBackend()
	b.createErr = errors.New("stop here")
	tr := newTestTracker(t, b)

	cmd, err := tr.StartTask("gadgets",
		WithPlatforms(" tiktok ", "", "youtube"),
		WithRegion("US"),
		WithFollowerMin(10000),
		WithFollowerMax(500000))
	require.NoError(t, err)
	drain(t, tr, cmd)

	require.Len(t, b.createReqs, 1)
	req := b.createReqs[0]
	assert.Equal(t, []string{"tiktok", "youtube"}, req.Platforms)
	require.NotNil(t, req.Region)
	assert.Equal(t, "US", *req.Region)
	require.NotNil(t, req.FollowerMin)
	assert.Equal(t, 10000, *req.FollowerMin)
	require.NotNil(t, req.FollowerMax)
	assert.Equal(t, 500000, *req.FollowerMax)
}

func TestOpenSupersedesPendingCreate(t *testing.T) {
	b := newFakeBackend()
	b.createResp = api.CreateSearchTaskResponse{TaskID: taskA, Status: api.StatusPending}
	b.statuses[taskB] = []api.TaskStatus{api.StatusRunning}
	tr := newTestTracker(t, b)

	create, err := tr.StartTask("first")
	require.NoError(t, err)
	_, err = tr.Open(taskB)
	require.NoError(t, err)

	assert.Nil(t, tr.Update(create()))
	assert.Equal(t, taskB, tr.TaskID())
	assert.False(t, tr.Creating())
}

func TestLateSaveForAbandonedTaskIsDropped(t *testing.T) {
	b := newFakeBackend()
	b.saveResp = api.SaveInfluencersResponse{SavedCount: 2}
	tr := newTestTracker(t, b)
	openDone(t, tr, b, taskA, threeResults())
	tr.SelectAllUnique()

	save, err := tr.Save()
	require.NoError(t, err)

	b.statuses[taskB] = []api.TaskStatus{api.StatusRunning}
	_, err = tr.Open(taskB)
	require.NoError(t, err)

	tr.Update(save())
	_, ok := tr.Outcome()
	assert.False(t, ok)
	assert.False(t, tr.Saving())
}

func TestIsTransitionAllowed(t *testing.T) {
	tests := []struct {
		from, to api.TaskStatus
		want     bool
	}{
		{api.StatusPending, api.StatusRunning, true},
		{api.StatusPending, api.StatusDone, true},
		{api.StatusPending, api.StatusFailed, true},
		{api.StatusRunning, api.StatusDone, true},
		{api.StatusRunning, api.StatusFailed, true},
		{api.StatusRunning, api.StatusRunning, true},
		{api.StatusRunning, api.StatusPending, false},
		{api.StatusDone, api.StatusRunning, false},
		{api.StatusFailed, api.StatusDone, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransitionAllowed(tt.from, tt.to))
		})
	}
}
