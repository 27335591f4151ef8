package tasks

import (
	"stepwise/internal/catalog"
	"stepwise/internal/debounce"
	"stepwise/internal/detection"
	"stepwise/internal/rules"
)

// Lamp detector classes.
const (
	LampShadeTop    detection.Class = 1
	LampBulbTop     detection.Class = 2
	LampBuckle      detection.Class = 3
	LampLamp        detection.Class = 4
	LampPipe        detection.Class = 5
	LampBlackCircle detection.Class = 6
	LampBase        detection.Class = 7
	LampShade       detection.Class = 8
	LampBulb        detection.Class = 9
)

// Lamp steps.
const (
	LampStepBase catalog.StepID = iota + 1
	LampStepPipe
	LampStepShade
	LampStepBuckle
	LampStepBlackCircle
	LampStepLamp
	LampStepBulb
	LampStepBulbTop
	LampStepDone
)

// SecondWireHint is sent once when only one shade wire is seen for a while.
const SecondWireHint = "You have inserted one wire. Now insert the second wire to support the shade."

const (
	pipeTolerance      = 0.25
	pipeMinHeightRatio = 1.5
	bulbTopTolerance   = 0.25
)

// Lamp returns the lamp assembly variant.
func Lamp() *Variant {
	cat := catalog.MustNew("lamp", []catalog.Step{
		{ID: LampStepBase, Name: "BASE", Text: "Put the base on the table.", Image: "base.PNG"},
		{ID: LampStepPipe, Name: "PIPE", Text: "Screw the pipe on top of the base.", Image: "pipe.PNG"},
		{ID: LampStepShade, Name: "SHADE", Text: "Good job. Now find the shade cover and expand it.", Image: "shade.PNG"},
		{ID: LampStepBuckle, Name: "BUCKLE", Text: "Insert the iron wires to support the shade. Then show the top view of the shade", Image: "buckle.PNG"},
		{ID: LampStepBlackCircle, Name: "BLACKCIRCLE", Text: "Great. Now unscrew the black ring out of the pipe, and put it on the table.", Image: "blackcircle.PNG"},
		{ID: LampStepLamp, Name: "LAMP", Text: "Now put the shade on top of the base, and screw the black ring back.", Image: "lamp.PNG"},
		{ID: LampStepBulb, Name: "BULB", Text: "Find the bulb and put it on the table.", Image: "bulb.PNG"},
		{ID: LampStepBulbTop, Name: "BULBTOP", Text: "Good. Last step. Screw in the bulb and show me the top view.", Image: "lamptop.PNG"},
		{ID: LampStepDone, Name: "DONE", Text: "Congratulations. You have finished assembling the lamp.", Image: "lamp.PNG"},
	})
	return &Variant{
		Name:    "lamp",
		Catalog: cat,
		Rules: rules.Table{
			LampStepBase: rules.Presence{Class: LampBase, Next: LampStepPipe},
			LampStepPipe: rules.Pairwise{
				Anchor:    LampBase,
				Candidate: LampPipe,
				Match:     rules.StackedOn(pipeTolerance, pipeMinHeightRatio),
				Next:      LampStepShade,
			},
			LampStepShade: rules.Presence{Class: LampShade, Next: LampStepBuckle},
			// Both wires in place move on to the black ring, never straight to
			// LAMP; BLACKCIRCLE has no other predecessor.
			LampStepBuckle: rules.DualAnchor{
				Reference:  LampShadeTop,
				Candidate:  LampBuckle,
				Policy:     debounce.DefaultPolicy(),
				Supplement: SecondWireHint,
				Next:       LampStepBlackCircle,
			},
			LampStepBlackCircle: rules.Presence{Class: LampBlackCircle, Next: LampStepLamp},
			LampStepLamp:        rules.Presence{Class: LampLamp, Next: LampStepBulb},
			LampStepBulb:        rules.Presence{Class: LampBulb, Next: LampStepBulbTop},
			LampStepBulbTop:     rules.Aligned(LampShadeTop, LampBulbTop, bulbTopTolerance, LampStepDone),
		},
		Classes: map[string]detection.Class{
			"shadetop":    LampShadeTop,
			"bulbtop":     LampBulbTop,
			"buckle":      LampBuckle,
			"lamp":        LampLamp,
			"pipe":        LampPipe,
			"blackcircle": LampBlackCircle,
			"base":        LampBase,
			"shade":       LampShade,
			"bulb":        LampBulb,
		},
	}
}
