// Package affect turns blendshape scores into affect metrics.
package affect

import (
	"math"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
)

// Blendshape category names read by Derive.
const (
	EyeLookInLeft    = "eyeLookInLeft"
	EyeLookOutLeft   = "eyeLookOutLeft"
	EyeLookInRight   = "eyeLookInRight"
	EyeLookOutRight  = "eyeLookOutRight"
	EyeLookUpLeft    = "eyeLookUpLeft"
	EyeLookDownLeft  = "eyeLookDownLeft"
	EyeLookUpRight   = "eyeLookUpRight"
	EyeLookDownRight = "eyeLookDownRight"
	MouthSmileLeft   = "mouthSmileLeft"
	MouthSmileRight  = "mouthSmileRight"
	MouthFrownLeft   = "mouthFrownLeft"
	MouthFrownRight  = "mouthFrownRight"
	BrowDownLeft     = "browDownLeft"
	BrowDownRight    = "browDownRight"
	JawOpen          = "jawOpen"
)

type scoreTable map[string]float64

func newScoreTable(scores []entity.NamedScore) scoreTable {
	t := make(scoreTable, len(scores))
	for _, s := range scores {
		// first occurrence wins
		if _, seen := t[s.Name]; !seen {
			t[s.Name] = s.Score
		}
	}
	return t
}

// pick returns the named score, or 0 when it is absent or not a finite number.
func (t scoreTable) pick(name string) float64 {
	v, ok := t[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Derive computes the affect metrics of one face. Missing categories count as 0.
func Derive(scores []entity.NamedScore) entity.Metrics {
	t := newScoreTable(scores)

	return entity.Metrics{
		GazeH: ((t.pick(EyeLookOutLeft) - t.pick(EyeLookInLeft)) +
			(t.pick(EyeLookInRight) - t.pick(EyeLookOutRight))) / 2,
		GazeV: ((t.pick(EyeLookUpLeft) - t.pick(EyeLookDownLeft)) +
			(t.pick(EyeLookUpRight) - t.pick(EyeLookDownRight))) / 2,
		Smile:    (t.pick(MouthSmileLeft) + t.pick(MouthSmileRight)) / 2,
		Frown:    (t.pick(MouthFrownLeft) + t.pick(MouthFrownRight)) / 2,
		BrowDown: (t.pick(BrowDownLeft) + t.pick(BrowDownRight)) / 2,
		JawOpen:  t.pick(JawOpen),
	}
}
