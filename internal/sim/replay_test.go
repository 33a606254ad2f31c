package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReplayRoundTrip(t *testing.T) {
	sc, err := LoadScenario("testdata/straw_hats.yaml")
	require.NoError(t, err)
	report, err := newTestRunner(t).Run(sc)
	require.NoError(t, err)

	recorder := NewReplayRecorder(zap.NewNop(), t.TempDir())
	path, err := recorder.Save(report)
	require.NoError(t, err)
	assert.FileExists(t, path)

	loaded, err := recorder.Load(sc.Name)
	require.NoError(t, err)
	require.Equal(t, len(sc.Steps), loaded.Size())
	assert.Equal(t, 0, RecordReport(report).Diverges(loaded))
	assert.NotEmpty(t, loaded.Frames[2].Error)
	assert.Len(t, loaded.Frames[0].Events, len(report.Steps[0].Events))
}

func TestReplayIsDeterministic(t *testing.T) {
	sc, err := LoadScenario("testdata/straw_hats.yaml")
	require.NoError(t, err)

	first, err := newTestRunner(t).Run(sc)
	require.NoError(t, err)
	second, err := newTestRunner(t).Run(sc)
	require.NoError(t, err)

	a, b := RecordReport(first), RecordReport(second)
	assert.Equal(t, 0, a.Diverges(b))

	b.Frames[4].Checksum = "tampered"
	assert.Equal(t, b.Frames[4].Step, a.Diverges(b))

	b.Frames = b.Frames[:3]
	assert.Equal(t, 4, a.Diverges(b))
}

func TestReplayNavigation(t *testing.T) {
	replay := &Replay{Scenario: "nav", Frames: []Frame{{Step: 1}, {Step: 2}, {Step: 3}}}

	assert.Nil(t, replay.Previous())
	assert.Equal(t, 1, replay.Next().Step)
	assert.Equal(t, 2, replay.Next().Step)
	assert.Equal(t, 2, replay.Previous().Step)
	assert.Equal(t, 3, replay.Skip(10).Step)
	assert.Equal(t, 1, replay.Skip(-10).Step)

	replay.Start()
	for range 3 {
		require.NotNil(t, replay.Next())
	}
	assert.Nil(t, replay.Next())
}

func TestLoadReplayErrors(t *testing.T) {
	_, err := LoadReplayFromFile(filepath.Join(t.TempDir(), "missing.replay"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.replay")
	require.NoError(t, os.WriteFile(bad, []byte("not gzip"), 0o644))
	_, err = LoadReplayFromFile(bad)
	assert.Error(t, err)
}
