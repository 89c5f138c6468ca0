package stores

import (
	"context"
	"time"

	"github.com/gravelbuild/gravel/pkg/analysis"
	"github.com/gravelbuild/gravel/pkg/model"
	"github.com/gravelbuild/gravel/pkg/telemetry"
)

// AnalysisEventSink persists analysis diagnostics under a recorded
// evaluation, so inspecting a run later shows the events alongside the
// node outcomes. Persistence failures are logged and do not interrupt
// the analysis emitting the event.
type AnalysisEventSink struct {
	store        Store
	evaluationID string
	log          *telemetry.Logger
}

// NewAnalysisEventSink creates a sink writing to the given store under
// the given evaluation. A nil logger disables failure logging.
func NewAnalysisEventSink(store Store, evaluationID string, log *telemetry.Logger) *AnalysisEventSink {
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &AnalysisEventSink{
		store:        store,
		evaluationID: evaluationID,
		log:          log.NewComponentLogger("stores"),
	}
}

// Post implements analysis.EventSink.
func (s *AnalysisEventSink) Post(event analysis.Event) {
	record := &AnalysisEvent{
		EvaluationID: s.evaluationID,
		Severity:     EventSeverity(event.Severity),
		Message:      event.Message,
		Timestamp:    time.Now(),
	}
	if event.Label != (model.Label{}) {
		label := event.Label.String()
		record.Label = &label
	}
	if err := s.store.AppendAnalysisEvent(context.Background(), record); err != nil {
		s.log.Errorf("failed to record analysis event: %v", err)
	}
}
