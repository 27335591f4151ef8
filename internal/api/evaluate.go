package api

import (
	"stepwise/internal/catalog"
	"stepwise/internal/session"
	"stepwise/internal/tasks"
)

// Evaluate runs one stateless evaluation of req against v. The start
// sentinel evaluates from the initial step. Boxes are used as given; callers
// filter by confidence before building the request.
func Evaluate(v *tasks.Variant, req EvaluateRequest) (EvaluateResponse, error) {
	before, err := ToState(v.Catalog, req.State)
	if err != nil {
		return EvaluateResponse{}, err
	}
	if before.Step == catalog.Start {
		before = session.Initial(v)
	}
	dets, err := ToDetectionSet(v, req.Detections)
	if err != nil {
		return EvaluateResponse{}, err
	}
	out, after, err := session.Advance(v, before, dets.Filter(0))
	if err != nil {
		return EvaluateResponse{}, err
	}
	return FromEvaluation(v, before, out, after), nil
}
