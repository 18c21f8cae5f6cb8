package strategy

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// ErrUnknown is returned by Parse for unrecognized strategy identifiers
var ErrUnknown = errors.New("unknown redaction strategy")

// Strategy selects the redaction transform applied to every entity
// in a job.
type Strategy string

const (
	Mask       Strategy = "mask"
	TagReplace Strategy = "tag_replace"
	Anonymize  Strategy = "anonymize"
	Hash       Strategy = "hash"
)

const maskRune = '█'

// Parse validates a strategy identifier from the API
func Parse(s string) (Strategy, error) {
	switch Strategy(s) {
	case Mask, TagReplace, Anonymize, Hash:
		return Strategy(s), nil
	case "":
		return Mask, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknown, s)
}

// Info describes a strategy for the discovery endpoint
type Info struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PrivacyLevel string `json:"privacy_level"`
}

// List returns the available strategies with descriptions
func List() []Info {
	return []Info{
		{ID: "mask", Name: "Masking", Description: "Replaces characters with block symbols", PrivacyLevel: "high"},
		{ID: "tag_replace", Name: "Tag Replacement", Description: "Substitutes entities with semantic tags (e.g., [EMAIL])", PrivacyLevel: "high"},
		{ID: "anonymize", Name: "Anonymization", Description: "Replaces with realistic synthetic data", PrivacyLevel: "medium"},
		{ID: "hash", Name: "Hashing", Description: "Generates salted irreversible digests", PrivacyLevel: "highest"},
	}
}

// Engine computes replacement values and media instructions for
// finalized entities. Safe for concurrent use; per-job state lives
// in the AnonymizationMap the caller owns.
type Engine struct {
	salt []byte
}

// NewEngine creates a strategy engine. salt is the per-deployment
// secret that keys the hash strategy.
func NewEngine(salt string) *Engine {
	return &Engine{salt: []byte(salt)}
}

// RandomSalt returns a fresh salt for deployments that did not
// configure one. Digests keyed by it do not survive a restart.
func RandomSalt() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random salt: %v", err))
	}
	return hex.EncodeToString(b)
}

// Redact produces the replacement value for one entity. An
// unrecognized strategy or entity type degrades to masking rather
// than failing the job.
func (e *Engine) Redact(ent entity.Entity, strat Strategy, amap *AnonymizationMap) string {
	switch strat {
	case TagReplace:
		return "[" + string(ent.Type) + "]"
	case Anonymize:
		if amap != nil {
			return amap.Replace(ent.Type, ent.Value)
		}
		return e.mask(ent.Value)
	case Hash:
		return e.digest(ent.Value)
	default:
		return e.mask(ent.Value)
	}
}

// mask replaces every rune of the value with a block glyph. Applying
// it twice is a no-op on the result.
func (e *Engine) mask(value string) string {
	return strings.Repeat(string(maskRune), len([]rune(value)))
}

// digest computes HMAC-SHA256(salt, normalized value) and returns
// the first 16 hex characters wrapped in hash markers. Identical
// inputs within one deployment always produce the same digest; the
// digest is not reproducible without the salt.
func (e *Engine) digest(value string) string {
	mac := hmac.New(sha256.New, e.salt)
	mac.Write([]byte(Normalize(value)))
	sum := hex.EncodeToString(mac.Sum(nil))
	return "#" + sum[:16] + "#"
}

// Normalize folds case and whitespace so that trivially different
// renderings of the same value redact identically.
func Normalize(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// Op is the media-level redaction operation for an entity
type Op string

const (
	OpFill Op = "opaque_fill" // black out a pixel or frame region
	OpMute Op = "mute"        // replace an audio segment with a tone
	OpBlur Op = "blur"        // soften a frame region (faces)
)

// Instruction tells the applicator what to do to the located region
// of one entity. Overlay carries replacement text to render where
// the medium supports it (anonymize on images/PDF).
type Instruction struct {
	Op      Op     `json:"op"`
	Overlay string `json:"overlay,omitempty"`
}

// Instruct derives the media instruction for an entity given its
// location kind and the job strategy.
func (e *Engine) Instruct(ent entity.Entity, strat Strategy) Instruction {
	if ent.Location == nil {
		return Instruction{Op: OpFill}
	}
	switch ent.Location.Kind {
	case entity.KindTime:
		return Instruction{Op: OpMute}
	case entity.KindPixel, entity.KindFrame:
		inst := Instruction{Op: OpFill}
		if strat == Anonymize && ent.RedactedValue != "" {
			inst.Overlay = ent.RedactedValue
		}
		return inst
	default:
		return Instruction{Op: OpFill}
	}
}
