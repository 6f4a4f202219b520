package importer

import (
	"time"
)

// Steps of an import run, in order
const (
	StepValidate  = "Validating options"
	StepParse     = "Parsing file"
	StepNormalize = "Normalizing lines"
	StepDirectory = "Loading directory"
	StepResolve   = "Resolving codes"
	StepSplit     = "Splitting entries"
	StepCreate    = "Creating entries"
	StepReconcile = "Posting and reconciling"
	StepDone      = "Completed"
)

const totalSteps = 8

// ImportProgress tracks the progress of one run
type ImportProgress struct {
	TotalSteps      int           `json:"total_steps"`
	CompletedSteps  int           `json:"completed_steps"`
	CurrentStep     string        `json:"current_step"`
	PercentComplete float64       `json:"percent_complete"`
	StartTime       time.Time     `json:"start_time"`
	ElapsedTime     time.Duration `json:"elapsed_time"`

	ParsedLines  int `json:"parsed_lines"`
	PlannedMoves int `json:"planned_moves"`
	CreatedMoves int `json:"created_moves"`
}

// ProgressCallback is called each time a run moves to another step
type ProgressCallback func(*ImportProgress)

// AddProgressCallback adds a progress callback function
func (s *Service) AddProgressCallback(callback ProgressCallback) {
	s.progressMutex.Lock()
	defer s.progressMutex.Unlock()
	s.progressCallbacks = append(s.progressCallbacks, callback)
}

func (s *Service) initializeProgress() {
	s.progressMutex.Lock()
	defer s.progressMutex.Unlock()
	s.progress = &ImportProgress{
		TotalSteps: totalSteps,
		StartTime:  time.Now(),
	}
}

// updateProgress records step as current and notifies the callbacks
func (s *Service) updateProgress(step string, completed int, update func(p *ImportProgress)) {
	s.progressMutex.Lock()
	p := s.progress
	p.CurrentStep = step
	p.CompletedSteps = completed
	p.PercentComplete = float64(completed) / float64(p.TotalSteps) * 100
	p.ElapsedTime = time.Since(p.StartTime)
	if update != nil {
		update(p)
	}
	snapshot := *p
	callbacks := append([]ProgressCallback(nil), s.progressCallbacks...)
	s.progressMutex.Unlock()

	for _, cb := range callbacks {
		cb(&snapshot)
	}
}
