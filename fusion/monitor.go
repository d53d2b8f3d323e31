package fusion

import "github.com/poiesic/graphqa/core"

// Monitor provides hooks to observe a request as it moves through the
// orchestrator. Hooks for the two retrievals may be called concurrently.
type Monitor interface {
	Start(question string, mode core.Mode)
	RetrievalStarted(pipeline core.Pipeline)
	RetrievalFinished(pipeline core.Pipeline, result *core.RetrievalResult, err error)
	Finish(answer *core.FusedAnswer, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.Mode)                                         {}
func (n *noopMonitor) RetrievalStarted(_ core.Pipeline)                                    {}
func (n *noopMonitor) RetrievalFinished(_ core.Pipeline, _ *core.RetrievalResult, _ error) {}
func (n *noopMonitor) Finish(_ *core.FusedAnswer, _ error)                                 {}
