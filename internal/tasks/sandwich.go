package tasks

import (
	"stepwise/internal/catalog"
	"stepwise/internal/detection"
	"stepwise/internal/rules"
)

// Sandwich detector classes. Gaps belong to labels no step checks.
const (
	SandwichTomato  detection.Class = 1
	SandwichFull    detection.Class = 3
	SandwichHam     detection.Class = 4
	SandwichLettuce detection.Class = 5
	SandwichHalf    detection.Class = 7
	SandwichBread   detection.Class = 9
)

// Sandwich steps.
const (
	SandwichStepNothing catalog.StepID = iota + 1
	SandwichStepBread
	SandwichStepHam
	SandwichStepLettuce
	SandwichStepHalf
	SandwichStepTomato
	SandwichStepFull
	SandwichStepDone
)

// Sandwich returns the sandwich assembly variant. Each layer step advances
// once exactly one instance of its part is in view.
func Sandwich() *Variant {
	cat := catalog.MustNew("sandwich", []catalog.Step{
		{ID: SandwichStepNothing, Name: "NOTHING", Text: "Show me the table to get started.", Image: "bread.jpg"},
		{ID: SandwichStepBread, Name: "BREAD", Text: "Now put a piece of bread on the table.", Image: "bread.jpg"},
		{ID: SandwichStepHam, Name: "HAM", Text: "Now put a piece of ham on the bread.", Image: "ham.jpg"},
		{ID: SandwichStepLettuce, Name: "LETTUCE", Text: "Now put a piece of lettuce on the ham.", Image: "lettuce.jpg"},
		{ID: SandwichStepHalf, Name: "HALF", Text: "Now put a piece of bread on the lettuce.", Image: "half.jpg"},
		{ID: SandwichStepTomato, Name: "TOMATO", Text: "Now put a piece of tomato on the bread.", Image: "tomato.jpg"},
		{ID: SandwichStepFull, Name: "FULL", Text: "Now put the bread on top.", Image: "full.jpg"},
		{ID: SandwichStepDone, Name: "DONE", Text: "You are done!", Image: "full.jpg"},
	})
	layer := func(class detection.Class, next catalog.StepID) rules.Rule {
		return rules.Exactly{Class: class, Count: 1, Next: next}
	}
	return &Variant{
		Name:    "sandwich",
		Catalog: cat,
		Rules: rules.Table{
			SandwichStepNothing: rules.Always{Next: SandwichStepBread},
			SandwichStepBread:   layer(SandwichBread, SandwichStepHam),
			SandwichStepHam:     layer(SandwichHam, SandwichStepLettuce),
			SandwichStepLettuce: layer(SandwichLettuce, SandwichStepHalf),
			SandwichStepHalf:    layer(SandwichHalf, SandwichStepTomato),
			SandwichStepTomato:  layer(SandwichTomato, SandwichStepFull),
			SandwichStepFull:    layer(SandwichFull, SandwichStepDone),
		},
		Classes: map[string]detection.Class{
			"tomato":  SandwichTomato,
			"full":    SandwichFull,
			"ham":     SandwichHam,
			"lettuce": SandwichLettuce,
			"half":    SandwichHalf,
			"bread":   SandwichBread,
		},
	}
}
