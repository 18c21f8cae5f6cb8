//go:build !onnx
// +build !onnx

package detect

import (
	"go.uber.org/zap"
)

// Stub implementation used when the 'onnx' build tag is not set.
func NewNERBackend(logger *zap.Logger, modelPath, vocabPath string, maxLength int) NERBackend {
	return nil
}
