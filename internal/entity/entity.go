package entity

// Type identifies the kind of PII an entity represents
type Type string

// Known entity types. The set is open-ended: detectors may emit types
// not listed here and the pipeline still handles them.
const (
	TypeEmail        Type = "EMAIL"
	TypePhone        Type = "PHONE"
	TypePersonName   Type = "PERSON_NAME"
	TypeAddress      Type = "ADDRESS"
	TypeLocation     Type = "LOCATION"
	TypeOrganization Type = "ORGANIZATION"
	TypeSSN          Type = "SSN"
	TypeAadhaar      Type = "AADHAAR"
	TypeCreditCard   Type = "CREDIT_CARD"
	TypeIPAddress    Type = "IP_ADDRESS"
	TypeDate         Type = "DATE"
	TypeDateOfBirth  Type = "DATE_OF_BIRTH"
	TypeURL          Type = "URL"
	TypePANCard      Type = "PAN_CARD"
	TypePassport     Type = "PASSPORT"
	TypeZipCode      Type = "ZIP_CODE"
	TypeFinancial    Type = "FINANCIAL"
	TypeNationality  Type = "NATIONALITY"
	TypeFacility     Type = "FACILITY"
	TypeTime         Type = "TIME"
	TypeNumber       Type = "NUMBER"
	TypeEvent        Type = "EVENT"
	TypeWorkOfArt    Type = "WORK_OF_ART"
	TypeProduct      Type = "PRODUCT"
)

// Source identifies which detection engine produced an entity
type Source string

const (
	SourceRegex Source = "regex"
	SourceNLP   Source = "nlp"
	SourceOCR   Source = "ocr"
	SourceASR   Source = "asr"
)

// Combined returns the source label for an entity confirmed by two engines
func (s Source) Combined(other Source) Source {
	if s == other {
		return s
	}
	return s + "+" + other
}

// Kind discriminates location representations
type Kind string

const (
	KindText  Kind = "text"
	KindPixel Kind = "pixel"
	KindTime  Kind = "time"
	KindFrame Kind = "frame"
)

// TextSpan is a half-open character range [Start, End) over the
// canonical text representation of an artifact.
type TextSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span length in bytes
func (s TextSpan) Len() int {
	return s.End - s.Start
}

// Overlap returns the length of the intersection with other, or 0
func (s TextSpan) Overlap(other TextSpan) int {
	start := s.Start
	if other.Start > start {
		start = other.Start
	}
	end := s.End
	if other.End < end {
		end = other.End
	}
	if end <= start {
		return 0
	}
	return end - start
}

// Overlaps reports whether the two spans intersect
func (s TextSpan) Overlaps(other TextSpan) bool {
	return s.Start < other.End && s.End > other.Start
}

// Contains reports whether s fully contains other
func (s TextSpan) Contains(other TextSpan) bool {
	return s.Start <= other.Start && s.End >= other.End
}

// PixelRegion is an axis-aligned rectangle in image coordinates
type PixelRegion struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Union returns the smallest rectangle covering both regions
func (r PixelRegion) Union(other PixelRegion) PixelRegion {
	out := r
	if other.X0 < out.X0 {
		out.X0 = other.X0
	}
	if other.Y0 < out.Y0 {
		out.Y0 = other.Y0
	}
	if other.X1 > out.X1 {
		out.X1 = other.X1
	}
	if other.Y1 > out.Y1 {
		out.Y1 = other.Y1
	}
	return out
}

// Overlaps reports whether the two rectangles intersect
func (r PixelRegion) Overlaps(other PixelRegion) bool {
	return r.X0 < other.X1 && r.X1 > other.X0 && r.Y0 < other.Y1 && r.Y1 > other.Y0
}

// TimeRange is a half-open interval in milliseconds
type TimeRange struct {
	StartMS int64 `json:"start_ms"`
	EndMS   int64 `json:"end_ms"`
}

// Overlaps reports whether the two ranges intersect
func (t TimeRange) Overlaps(other TimeRange) bool {
	return t.StartMS < other.EndMS && t.EndMS > other.StartMS
}

// DurationMS returns the range length in milliseconds
func (t TimeRange) DurationMS() int64 {
	return t.EndMS - t.StartMS
}

// FrameRegion is a rectangle on a specific video frame
type FrameRegion struct {
	FrameIndex int `json:"frame_index"`
	X0         int `json:"x0"`
	Y0         int `json:"y0"`
	X1         int `json:"x1"`
	Y1         int `json:"y1"`
}

// Location pins an entity to a position in its source medium.
// Exactly one of the pointer fields matching Kind is set. A nil
// *Location on an Entity means the span could not be mapped to the
// medium and only the text-level fallback applies.
type Location struct {
	Kind  Kind         `json:"kind"`
	Text  *TextSpan    `json:"text,omitempty"`
	Pixel *PixelRegion `json:"pixel,omitempty"`
	Time  *TimeRange   `json:"time,omitempty"`
	Frame *FrameRegion `json:"frame,omitempty"`
	Page  int          `json:"page,omitempty"`
}

// TextLocation builds a text-kind location
func TextLocation(span TextSpan) *Location {
	return &Location{Kind: KindText, Text: &span}
}

// PixelLocation builds a pixel-kind location
func PixelLocation(region PixelRegion) *Location {
	return &Location{Kind: KindPixel, Pixel: &region}
}

// TimeLocation builds a time-kind location
func TimeLocation(tr TimeRange) *Location {
	return &Location{Kind: KindTime, Time: &tr}
}

// FrameLocation builds a frame-kind location
func FrameLocation(fr FrameRegion) *Location {
	return &Location{Kind: KindFrame, Frame: &fr}
}

// Overlaps reports whether two locations of the same kind intersect.
// Locations of different kinds never overlap.
func (l *Location) Overlaps(other *Location) bool {
	if l == nil || other == nil || l.Kind != other.Kind {
		return false
	}
	switch l.Kind {
	case KindText:
		return l.Text != nil && other.Text != nil && l.Text.Overlaps(*other.Text)
	case KindPixel:
		return l.Pixel != nil && other.Pixel != nil && l.Pixel.Overlaps(*other.Pixel)
	case KindTime:
		return l.Time != nil && other.Time != nil && l.Time.Overlaps(*other.Time)
	case KindFrame:
		return l.Frame != nil && other.Frame != nil &&
			l.Frame.FrameIndex == other.Frame.FrameIndex &&
			PixelRegion{l.Frame.X0, l.Frame.Y0, l.Frame.X1, l.Frame.Y1}.
				Overlaps(PixelRegion{other.Frame.X0, other.Frame.Y0, other.Frame.X1, other.Frame.Y1})
	}
	return false
}

// Entity is a single detected PII occurrence. Span is always the
// character range over the canonical text; Location carries the
// medium-mapped position once the coordinate mapper resolves it.
type Entity struct {
	Type          Type      `json:"entity_type"`
	Value         string    `json:"value"`
	Span          TextSpan  `json:"span"`
	Location      *Location `json:"location"`
	Confidence    float64   `json:"confidence"`
	Source        Source    `json:"source"`
	RedactedValue string    `json:"redacted_value,omitempty"`
}
