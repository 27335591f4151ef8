package detection

import (
	"encoding/json"
	"fmt"

	"stepwise/internal/geometry"
)

// Detection is one entry of a remote detector response. Box is
// [x1, y1, x2, y2] in pixels.
type Detection struct {
	Class int        `json:"class"`
	Box   [4]float64 `json:"box"`
	Score float64    `json:"score"`
}

// Response is the JSON body both remote detector transports return.
type Response struct {
	Detections []Detection `json:"detections"`
	Error      string      `json:"error,omitempty"`
}

// ToSet groups response detections by class, preserving detector order.
func (r Response) ToSet() Set {
	set := make(Set)
	for _, det := range r.Detections {
		c := Class(det.Class)
		set[c] = append(set[c], geometry.BoundingBox{
			X1:    det.Box[0],
			Y1:    det.Box[1],
			X2:    det.Box[2],
			Y2:    det.Box[3],
			Score: det.Score,
		})
	}
	return set
}

// DecodeResponse parses a detector response body.
func DecodeResponse(data []byte) (Set, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("detector reported error: %s", resp.Error)
	}
	return resp.ToSet(), nil
}
