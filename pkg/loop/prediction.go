package loop

import (
	"time"

	"github.com/teslashibe/go-drowsy/pkg/face"
	"github.com/teslashibe/go-drowsy/pkg/model"
)

// Score is one label with its raw output value.
type Score struct {
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}

// Prediction is the result of one classified cycle.
//
// Probabilities are raw model outputs and need not sum to 1.
type Prediction struct {
	Index       int
	Label       string
	Probability float32
	Scores      []Score

	// Region is the face crop used, when HasRegion is set.
	Region    face.Region
	HasRegion bool

	Cycle    uint64
	FrameSeq uint64
	At       time.Time
}

// Publisher receives every prediction. It is called on the loop goroutine
// and must not block for long.
type Publisher interface {
	Publish(p Prediction)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(p Prediction)

// Publish calls f.
func (f PublisherFunc) Publish(p Prediction) {
	f(p)
}

// ModelSource hands out the classifier once it is ready.
// *model.Provider implements it.
type ModelSource interface {
	Model() (model.Model, bool)
}

// ArgMax returns the index of the largest value, the lowest index on ties,
// or -1 for an empty slice.
func ArgMax(scores []float32) int {
	if len(scores) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

func newPrediction(labels model.Labels, scores []float32) Prediction {
	idx := ArgMax(scores)
	p := Prediction{
		Index:  idx,
		Scores: make([]Score, len(scores)),
	}
	for i, v := range scores {
		p.Scores[i] = Score{Label: labels[i], Probability: v}
	}
	if idx >= 0 {
		p.Label = labels[idx]
		p.Probability = scores[idx]
	}
	return p
}
