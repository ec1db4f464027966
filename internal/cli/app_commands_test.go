package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/config"
	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ------------ fakes ------------

type fakeSync struct {
	report *services.Report
	status *services.Status
	err    error
	calls  []string
}

func (f *fakeSync) Pull(ctx context.Context) (*services.Report, error) {
	f.calls = append(f.calls, "pull")
	return f.report, f.err
}

func (f *fakeSync) Push(ctx context.Context) (*services.Report, error) {
	f.calls = append(f.calls, "push")
	return f.report, f.err
}

func (f *fakeSync) Sync(ctx context.Context) (*services.Report, error) {
	f.calls = append(f.calls, "sync")
	return f.report, f.err
}

func (f *fakeSync) Status(ctx context.Context) (*services.Status, error) {
	f.calls = append(f.calls, "status")
	return f.status, f.err
}

type fakeConflicts struct {
	list       []models.Conflict
	onlyOpen   bool
	resolvedID int64
	err        error
}

func (f *fakeConflicts) List(ctx context.Context, onlyOpen bool) ([]models.Conflict, error) {
	f.onlyOpen = onlyOpen
	return f.list, f.err
}

func (f *fakeConflicts) Get(ctx context.Context, id int64) (*models.Conflict, error) {
	return nil, common.ErrorNotFound
}

func (f *fakeConflicts) Resolve(ctx context.Context, id int64) error {
	f.resolvedID = id
	return f.err
}

// run executes the command line against fakes and returns exit code,
// stdout and stderr.
func run(t *testing.T, ss services.SyncService, cs services.ConflictService, args ...string) (int, string, string) {
	t.Helper()
	prev := newApp
	t.Cleanup(func() { newApp = prev })
	newApp = func(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
		return &App{config: cfg, syncService: ss, conflictService: cs, out: out}, nil
	}

	var out, errOut bytes.Buffer
	code := Execute(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func sampleReport() *services.Report {
	return &services.Report{
		Pull: &services.PhaseReport{Phase: services.PhasePull, Entities: []services.EntityReport{
			{Entity: models.EntityRequest, Counters: services.Counters{Inserted: 1, Backfilled: 1}},
		}},
		Calls: 4,
	}
}

// ------------ tests ------------

func TestPullPrintsReport(t *testing.T) {
	ss := &fakeSync{report: sampleReport()}
	code, out, _ := run(t, ss, &fakeConflicts{}, "pull")

	require.Equal(t, 0, code)
	assert.Equal(t, []string{"pull"}, ss.calls)
	assert.Contains(t, out, "pull:")
	assert.Contains(t, out, "requests")
	assert.Contains(t, out, "remote calls: 4")
	assert.NotContains(t, out, "watermark:")
}

func TestSyncJSON(t *testing.T) {
	rep := sampleReport()
	rep.Push = &services.PhaseReport{Phase: services.PhasePush}
	rep.Watermark = "2025-02-01T00:00:00Z"
	code, out, _ := run(t, &fakeSync{report: rep}, &fakeConflicts{}, "--json", "sync")
	require.Equal(t, 0, code)

	var got services.Report
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, rep.Watermark, got.Watermark)
	require.NotNil(t, got.Pull)
	assert.Equal(t, 1, got.Pull.Entity(models.EntityRequest).Inserted)
}

func TestFailedCycleStillPrintsPartialReport(t *testing.T) {
	rep := sampleReport()
	rep.Pull.Failed = models.EntitySchedule
	ss := &fakeSync{report: rep, err: fmt.Errorf("pull schedules: %w", errors.New("UNIQUE constraint failed"))}

	code, out, errOut := run(t, ss, &fakeConflicts{}, "sync")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "schedules rolled back")
	assert.Contains(t, errOut, "UNIQUE constraint failed")
}

func TestErrorHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"exhausted", fmt.Errorf("push: %w", common.ErrRateLimitExhausted), "try again later"},
		{"missing dataset", common.NewConfigError(common.ConfigMissingDataset, "spreadsheet-id is not set", nil), "--spreadsheet-id"},
		{"permission", fmt.Errorf("ensure schema: %w", common.NewConfigError(common.ConfigPermissionDenied, "", nil)), "share the dataset"},
		{"running", services.ErrCycleRunning, "wait for the running cycle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := run(t, &fakeSync{err: tt.err}, &fakeConflicts{}, "push")
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
	assert.Empty(t, hint(errors.New("boom")))
}

func TestStatus(t *testing.T) {
	st := &services.Status{OpenConflicts: 2, Counts: map[models.EntityType]int{models.EntityDelegate: 3}}
	code, out, _ := run(t, &fakeSync{status: st}, &fakeConflicts{}, "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "last sync:      never")
	assert.Contains(t, out, "open conflicts: 2")
	assert.Contains(t, out, "delegates:")
}

func TestConflictsList(t *testing.T) {
	cs := &fakeConflicts{list: []models.Conflict{{ID: 7, EntityType: models.EntityRequest, IdentityKey: "r-1", DetectedAt: "2025-02-01T00:00:00Z"}}}

	code, out, _ := run(t, &fakeSync{}, cs, "conflicts", "list")
	require.Equal(t, 0, code)
	assert.True(t, cs.onlyOpen)
	assert.Contains(t, out, "r-1")

	code, _, _ = run(t, &fakeSync{}, cs, "conflicts", "list", "--all")
	require.Equal(t, 0, code)
	assert.False(t, cs.onlyOpen)

	cs.list = nil
	code, out, _ = run(t, &fakeSync{}, cs, "--json", "conflicts", "list")
	require.Equal(t, 0, code)
	assert.JSONEq(t, "[]", out)
}

func TestConflictsResolve(t *testing.T) {
	cs := &fakeConflicts{}
	code, out, _ := run(t, &fakeSync{}, cs, "conflicts", "resolve", "7")
	require.Equal(t, 0, code)
	assert.Equal(t, int64(7), cs.resolvedID)
	assert.Contains(t, out, "conflict 7 resolved")

	code, _, errOut := run(t, &fakeSync{}, cs, "conflicts", "resolve", "seven")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid conflict id")
}

func TestFlagsReachConfig(t *testing.T) {
	var got *config.Config
	prev := newApp
	t.Cleanup(func() { newApp = prev })
	newApp = func(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
		got = cfg
		return &App{config: cfg, syncService: &fakeSync{status: &services.Status{}}, out: out}, nil
	}

	code := Execute(context.Background(), []string{"--backend", "s3", "--s3-bucket", "shared", "--backfill=false", "status"}, io.Discard, io.Discard)
	require.Equal(t, 0, code)
	require.NotNil(t, got)
	assert.Equal(t, config.BackendS3, got.Backend)
	assert.Equal(t, "shared", got.S3Bucket)
	assert.False(t, got.BackfillEnabled)
	assert.Equal(t, 5, got.ReadAttempts)
}

func TestBackendFactoryValidatesConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	_, err := backendFactory(cfg)(context.Background())
	kind, ok := common.ConfigKind(err)
	require.True(t, ok)
	assert.Equal(t, common.ConfigMissingDataset, kind)
}
