package redact

import (
	"github.com/raaihank/pii-sentinel/internal/entity"
	"github.com/raaihank/pii-sentinel/internal/strategy"
)

// RegionFill is one rectangle to cover on an image or PDF page
type RegionFill struct {
	Region  entity.PixelRegion `json:"region"`
	Page    int                `json:"page,omitempty"`
	Op      strategy.Op        `json:"op"`
	Overlay string             `json:"overlay,omitempty"`
}

// BeepSegment is one audio interval to replace with a tone
type BeepSegment struct {
	Range entity.TimeRange `json:"range"`
}

// FrameFill is one rectangle to cover on a set of video frames
type FrameFill struct {
	Frames  []int              `json:"frames"`
	Region  entity.PixelRegion `json:"region"`
	Op      strategy.Op        `json:"op"`
	Overlay string             `json:"overlay,omitempty"`
}

// ImagePlan builds the ordered fill list for located image entities.
// Entities without a pixel location are skipped here; they remain in
// the audit log via the text-level fallback.
func ImagePlan(entities []entity.Entity, eng *strategy.Engine, strat strategy.Strategy) []RegionFill {
	var fills []RegionFill
	for _, e := range entities {
		if e.Location == nil || e.Location.Kind != entity.KindPixel || e.Location.Pixel == nil {
			continue
		}
		inst := eng.Instruct(e, strat)
		fills = append(fills, RegionFill{
			Region:  *e.Location.Pixel,
			Op:      inst.Op,
			Overlay: inst.Overlay,
		})
	}
	return fills
}

// PagePlan builds fills for PDF page entities carrying page numbers
func PagePlan(entities []entity.Entity, eng *strategy.Engine, strat strategy.Strategy) []RegionFill {
	var fills []RegionFill
	for _, e := range entities {
		if e.Location == nil || e.Location.Kind != entity.KindPixel || e.Location.Pixel == nil {
			continue
		}
		inst := eng.Instruct(e, strat)
		fills = append(fills, RegionFill{
			Region:  *e.Location.Pixel,
			Page:    e.Location.Page,
			Op:      inst.Op,
			Overlay: inst.Overlay,
		})
	}
	return fills
}

// AudioPlan turns coalesced redaction segments into beep
// instructions. Coalescing happened in the mapper; this is a pure
// repackaging so the applicator stays decision-free.
func AudioPlan(segments []entity.TimeRange) []BeepSegment {
	beeps := make([]BeepSegment, 0, len(segments))
	for _, seg := range segments {
		if seg.EndMS <= seg.StartMS {
			continue
		}
		beeps = append(beeps, BeepSegment{Range: seg})
	}
	return beeps
}

// VideoPlan expands located frame/time entities into per-frame fills
// at the artifact's frame rate.
func VideoPlan(entities []entity.Entity, fps float64, frames func(entity.TimeRange, float64) []int, eng *strategy.Engine, strat strategy.Strategy) []FrameFill {
	var fills []FrameFill
	for _, e := range entities {
		if e.Location == nil {
			continue
		}
		inst := eng.Instruct(e, strat)
		switch e.Location.Kind {
		case entity.KindFrame:
			if e.Location.Frame == nil {
				continue
			}
			f := e.Location.Frame
			fills = append(fills, FrameFill{
				Frames:  []int{f.FrameIndex},
				Region:  entity.PixelRegion{X0: f.X0, Y0: f.Y0, X1: f.X1, Y1: f.Y1},
				Op:      inst.Op,
				Overlay: inst.Overlay,
			})
		case entity.KindTime:
			if e.Location.Time == nil {
				continue
			}
			// Time-located video entities black the full frame set
			// covering the range; region is resolved by the renderer
			// from the frame's own OCR boxes when available.
			fills = append(fills, FrameFill{
				Frames: frames(*e.Location.Time, fps),
				Op:     inst.Op,
			})
		}
	}
	return fills
}
