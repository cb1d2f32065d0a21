package residency

import (
	"fmt"
	"math"
	"strings"

	"github.com/objectstream/streamer/pkg/core"
)

// TraceLine describes one candidate that was not fully streamed in.
type TraceLine struct {
	Model         core.ModelID
	DistSquared   float64
	HasGameObject bool
	ModelLoaded   bool
	StreamedIn    bool
}

// Dist is the distance from the query point to the candidate's bounding box.
func (l TraceLine) Dist() float64 {
	return math.Sqrt(l.DistSquared)
}

func (l TraceLine) String() string {
	return fmt.Sprintf("model:%05d dist:%4.1f gameObject:%d loaded:%d streamedIn:%d",
		l.Model, l.Dist(), flag(l.HasGameObject), flag(l.ModelLoaded), flag(l.StreamedIn))
}

// Trace collects diagnostics from a residency query.
type Trace struct {
	Lines []TraceLine
}

func (t *Trace) add(l TraceLine) {
	t.Lines = append(t.Lines, l)
}

// Strings renders every line.
func (t *Trace) Strings() []string {
	out := make([]string, len(t.Lines))
	for i, l := range t.Lines {
		out[i] = l.String()
	}
	return out
}

func (t *Trace) String() string {
	return strings.Join(t.Strings(), "\n")
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
