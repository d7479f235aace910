package internal

import "math"

type DrawingType string

const (
	DrawStroke  DrawingType = "draw"
	ClearCanvas DrawingType = "clear"
)

// DrawingData is one stroke segment or a canvas clear. Coordinates are in
// the client's canvas space and are relayed untouched.
type DrawingData struct {
	Type     DrawingType `json:"type"`
	Color    string      `json:"color,omitempty"`
	Size     *float64    `json:"size,omitempty"`
	FromX    *float64    `json:"fromX,omitempty"`
	FromY    *float64    `json:"fromY,omitempty"`
	ToX      *float64    `json:"toX,omitempty"`
	ToY      *float64    `json:"toY,omitempty"`
	DrawerID string      `json:"drawerId,omitempty"`
}

func (d *DrawingData) Validate() error {
	switch d.Type {
	case DrawStroke, ClearCanvas:
	default:
		return malformed("drawingData.type must be draw or clear")
	}
	for _, v := range []*float64{d.Size, d.FromX, d.FromY, d.ToX, d.ToY} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return malformed("drawingData has a non-finite number")
		}
	}
	if d.Size != nil && *d.Size < 0 {
		return malformed("drawingData.size is negative")
	}
	return nil
}

func ClearDrawing() DrawingData {
	return DrawingData{Type: ClearCanvas}
}
