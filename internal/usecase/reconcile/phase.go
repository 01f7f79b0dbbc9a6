package reconcile

import "fmt"

// Phase is a state of the batch pipeline.
type Phase string

// Pipeline phases, in execution order.
const (
	PhaseInit          Phase = "init"
	PhaseLoadingCorpus Phase = "loading_corpus"
	PhaseFetchQueries  Phase = "fetch_queries"
	PhaseEmbed         Phase = "embed"
	PhaseMatch         Phase = "match"
	PhaseEnrich        Phase = "enrich"
	PhaseAccumulate    Phase = "accumulate"
	PhaseDone          Phase = "done"
	PhaseFailed        Phase = "error"
)

// PhaseError reports where a run aborted. Batch is 1-based and 0 while loading the corpus.
type PhaseError struct {
	Phase  Phase
	Batch  int
	Offset int
	Err    error
}

func (e *PhaseError) Error() string {
	if e.Batch == 0 {
		return fmt.Sprintf("%s at offset %d: %v", e.Phase, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s batch %d offset %d: %v", e.Phase, e.Batch, e.Offset, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
