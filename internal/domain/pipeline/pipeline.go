// internal/domain/pipeline/pipeline.go
package pipeline

// Stage is one step of the sales funnel.
type Stage struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
}

const (
	StageErstkontakt  = "erstkontakt"
	StageKonzept      = "konzept"
	StageTelefonliste = "telefonliste"
	StageAbschluss    = "abschluss"
)

// stages is ordered; the order alone defines progress.
var stages = []Stage{
	{ID: StageErstkontakt, Label: "Erstkontakt", Color: "bg-blue-500"},
	{ID: StageKonzept, Label: "Konzept", Color: "bg-amber-500"},
	{ID: StageTelefonliste, Label: "Telefonliste/BN Bezüge", Color: "bg-purple-500"},
	{ID: StageAbschluss, Label: "Abschluss", Color: "bg-green-500"},
}

// Stages returns a copy of the pipeline in funnel order.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

// Default is the stage new customers start in.
func Default() Stage {
	return stages[0]
}

// StageIndex returns the position of status in the pipeline.
func StageIndex(status string) (int, bool) {
	for i, s := range stages {
		if s.ID == status {
			return i, true
		}
	}
	return -1, false
}

// Lookup returns the stage with the given id. Unknown ids yield the zero Stage.
func Lookup(id string) (Stage, bool) {
	idx, ok := StageIndex(id)
	if !ok {
		return Stage{}, false
	}
	return stages[idx], true
}

// IsKnown reports whether id names a pipeline stage.
func IsKnown(id string) bool {
	_, ok := StageIndex(id)
	return ok
}

// IsReached reports whether a customer in status has reached stageID.
// Both ids must resolve, otherwise nothing is reached.
func IsReached(status, stageID string) bool {
	cur, ok := StageIndex(status)
	if !ok {
		return false
	}
	target, ok := StageIndex(stageID)
	if !ok {
		return false
	}
	return cur >= target
}

// StageProgress is one cell of the progress bar on the customer detail view.
type StageProgress struct {
	Stage
	Reached bool `json:"reached"`
	Current bool `json:"current"`
}

// Progress renders the whole pipeline relative to status.
func Progress(status string) []StageProgress {
	out := make([]StageProgress, 0, len(stages))
	for _, s := range stages {
		out = append(out, StageProgress{
			Stage:   s,
			Reached: IsReached(status, s.ID),
			Current: s.ID == status,
		})
	}
	return out
}
