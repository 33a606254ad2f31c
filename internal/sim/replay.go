package sim

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"go.uber.org/zap"
)

const replayVersion = 1

// ErrReplayVersion is returned when a replay file was written by an
// incompatible version.
var ErrReplayVersion = errors.New("unsupported replay version")

// Frame is one recorded step: the events it produced and the state
// checksum it left behind.
type Frame struct {
	Step     int
	Action   string
	Error    string
	Events   []rules.Event
	Checksum string
}

// Replay is a recorded scenario run that can be stepped through.
type Replay struct {
	Scenario     string
	Frames       []Frame
	CurrentIndex int
}

// RecordReport turns a report into a replay.
func RecordReport(report *Report) *Replay {
	replay := &Replay{Scenario: report.Name}
	for _, step := range report.Steps {
		frame := Frame{
			Step:     step.Index,
			Action:   step.Action,
			Events:   step.Events,
			Checksum: step.Checksum,
		}
		if step.Err != nil {
			frame.Error = step.Err.Error()
		}
		replay.Frames = append(replay.Frames, frame)
	}
	return replay
}

// Size returns the number of recorded frames.
func (r *Replay) Size() int {
	return len(r.Frames)
}

// Start rewinds to the first frame.
func (r *Replay) Start() {
	r.CurrentIndex = 0
}

// Next returns the current frame and advances, or nil at the end.
func (r *Replay) Next() *Frame {
	if r.CurrentIndex >= len(r.Frames) {
		return nil
	}
	frame := &r.Frames[r.CurrentIndex]
	r.CurrentIndex++
	return frame
}

// Previous steps back and returns that frame, or nil at the start.
func (r *Replay) Previous() *Frame {
	if r.CurrentIndex == 0 {
		return nil
	}
	r.CurrentIndex--
	return &r.Frames[r.CurrentIndex]
}

// Skip moves by count frames, clamped to the recording, and returns the
// frame landed on.
func (r *Replay) Skip(count int) *Frame {
	if len(r.Frames) == 0 {
		return nil
	}
	idx := r.CurrentIndex + count
	if idx >= len(r.Frames) {
		idx = len(r.Frames) - 1
	}
	if idx < 0 {
		idx = 0
	}
	r.CurrentIndex = idx
	return &r.Frames[idx]
}

// Diverges returns the first step whose checksum differs between two
// replays of the same scenario, or 0 when they agree.
func (r *Replay) Diverges(other *Replay) int {
	n := min(len(r.Frames), len(other.Frames))
	for i := 0; i < n; i++ {
		if r.Frames[i].Checksum != other.Frames[i].Checksum {
			return r.Frames[i].Step
		}
	}
	if len(r.Frames) != len(other.Frames) {
		return n + 1
	}
	return 0
}

type replayMetadata struct {
	Scenario   string
	Timestamp  time.Time
	Version    int
	FrameCount int
}

func replayPath(directory, scenario string) string {
	return filepath.Join(directory, fmt.Sprintf("%s.replay", scenario))
}

// SaveToFile writes the replay gzipped to <directory>/<scenario>.replay and
// returns the path.
func (r *Replay) SaveToFile(directory string) (string, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	path := replayPath(directory, r.Scenario)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gz)
	metadata := replayMetadata{
		Scenario:   r.Scenario,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		FrameCount: len(r.Frames),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i := range r.Frames {
		if err := encoder.Encode(&r.Frames[i]); err != nil {
			return "", fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to flush replay: %w", err)
	}
	return path, nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(path string) (*Replay, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	decoder := gob.NewDecoder(gz)
	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("%w: %d", ErrReplayVersion, metadata.Version)
	}

	replay := &Replay{Scenario: metadata.Scenario}
	for i := 0; i < metadata.FrameCount; i++ {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		replay.Frames = append(replay.Frames, frame)
	}
	return replay, nil
}

// ReplayRecorder saves scenario runs to a directory.
type ReplayRecorder struct {
	logger  *zap.Logger
	saveDir string
}

// NewReplayRecorder creates a recorder writing under saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{logger: logger, saveDir: saveDir}
}

// Save records and writes a report, returning the file path.
func (rr *ReplayRecorder) Save(report *Report) (string, error) {
	replay := RecordReport(report)
	path, err := replay.SaveToFile(rr.saveDir)
	if err != nil {
		return "", fmt.Errorf("failed to save replay: %w", err)
	}
	rr.logger.Info("saved replay to disk",
		zap.String("scenario", replay.Scenario),
		zap.Int("frame_count", replay.Size()),
		zap.String("path", path))
	return path, nil
}

// Load reads a scenario's replay from the recorder's directory.
func (rr *ReplayRecorder) Load(scenario string) (*Replay, error) {
	replay, err := LoadReplayFromFile(replayPath(rr.saveDir, scenario))
	if err != nil {
		return nil, err
	}
	rr.logger.Info("loaded replay from disk",
		zap.String("scenario", scenario),
		zap.Int("frame_count", replay.Size()))
	return replay, nil
}
