package logger

import (
	"time"
)

// StageTracker logs the start and end of each pipeline stage of one run and
// keeps the measured durations.
type StageTracker struct {
	logger    Logger
	current   string
	startedAt time.Time
	durations map[string]time.Duration
	order     []string
}

// NewStageTracker creates a tracker logging through log
func NewStageTracker(log Logger) *StageTracker {
	if log == nil {
		log = GetGlobalLogger()
	}
	return &StageTracker{
		logger:    log.WithComponent("stages"),
		durations: make(map[string]time.Duration),
	}
}

// Begin starts stage, closing the previous one if it was left open
func (s *StageTracker) Begin(stage string) {
	if s.current != "" {
		s.Done(-1)
	}
	s.current = stage
	s.startedAt = time.Now()
	s.logger.WithField("stage", stage).Debug("Stage started")
}

// Done closes the current stage. A negative count is not logged.
func (s *StageTracker) Done(count int) {
	if s.current == "" {
		return
	}
	elapsed := time.Since(s.startedAt)
	if _, seen := s.durations[s.current]; !seen {
		s.order = append(s.order, s.current)
	}
	s.durations[s.current] += elapsed

	fields := Fields{
		"stage":    s.current,
		"duration": elapsed.String(),
	}
	if count >= 0 {
		fields["count"] = count
	}
	s.logger.WithFields(fields).Info("Stage completed")
	s.current = ""
}

// Fail closes the current stage and logs err
func (s *StageTracker) Fail(err error) {
	if s.current == "" {
		return
	}
	s.logger.WithError(err).WithFields(Fields{
		"stage":    s.current,
		"duration": time.Since(s.startedAt).String(),
	}).Error("Stage failed")
	s.current = ""
}

// Durations returns the completed stages in the order they ran
func (s *StageTracker) Durations() []StageDuration {
	out := make([]StageDuration, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, StageDuration{Stage: name, Duration: s.durations[name]})
	}
	return out
}

// StageDuration is the time spent in one stage
type StageDuration struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}
