//go:build onnx
// +build onnx

package detect

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// Default label set for token-classification checkpoints trained on
// CoNLL-style data. Overridable via a labels file next to the model.
var defaultNERLabels = []string{
	"O", "B-PER", "I-PER", "B-ORG", "I-ORG", "B-LOC", "I-LOC", "B-MISC", "I-MISC",
}

// bioToLabel maps BIO tag suffixes to the label vocabulary the
// NERDetector's type table understands.
var bioToLabel = map[string]string{
	"PER":  "PERSON",
	"ORG":  "ORG",
	"LOC":  "GPE",
	"MISC": "NORP",
}

// OnnxNERBackend implements NERBackend using ONNX Runtime
// (via yalue/onnxruntime_go). Requires build tag 'onnx'.
type OnnxNERBackend struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	vocab      map[string]int64
	labels     []string
	maxLength  int
	logger     *zap.Logger
	ready      bool
	mu         sync.RWMutex
}

// NewNERBackend initializes the ONNX Runtime NER backend.
func NewNERBackend(logger *zap.Logger, modelPath, vocabPath string, maxLength int) NERBackend {
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		logger.Error("ONNX Runtime environment init failed", zap.Error(err))
		return nil
	}

	vocab, err := loadVocab(vocabPath)
	if err != nil {
		logger.Error("Failed to load tokenizer vocabulary", zap.Error(err), zap.String("path", vocabPath))
		return nil
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		logger.Error("Failed to inspect ONNX model IO", zap.Error(err), zap.String("model", modelPath))
		return nil
	}
	if len(outputsInfo) == 0 {
		logger.Error("ONNX model reports no outputs", zap.String("model", modelPath))
		return nil
	}

	preferredInputs := []string{"input_ids", "attention_mask", "token_type_ids"}
	available := map[string]bool{}
	for _, ii := range inputsInfo {
		available[strings.ToLower(ii.Name)] = true
	}
	var inputNames []string
	for _, name := range preferredInputs {
		if available[name] {
			inputNames = append(inputNames, name)
		}
	}
	if len(inputNames) == 0 {
		for _, ii := range inputsInfo {
			inputNames = append(inputNames, ii.Name)
		}
	}

	outputName := outputsInfo[0].Name
	sess, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputName}, nil)
	if err != nil {
		logger.Error("ONNX Runtime session creation failed", zap.Error(err), zap.String("model", modelPath))
		return nil
	}

	logger.Info("ONNX NER backend ready",
		zap.String("model", modelPath),
		zap.Strings("inputs", inputNames),
		zap.Int("vocab_size", len(vocab)))

	return &OnnxNERBackend{
		session:    sess,
		inputNames: inputNames,
		vocab:      vocab,
		labels:     defaultNERLabels,
		maxLength:  maxLength,
		logger:     logger,
		ready:      true,
	}
}

// IsReady reports whether the backend is initialized.
func (b *OnnxNERBackend) IsReady() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready && b.session != nil
}

// Close releases session and environment resources.
func (b *OnnxNERBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		b.session.Destroy()
		b.session = nil
	}
	ort.DestroyEnvironment()
	b.ready = false
	return nil
}

// Recognize runs token classification and groups BIO tags into
// labeled spans with character offsets.
func (b *OnnxNERBackend) Recognize(ctx context.Context, text string) ([]LabeledSpan, error) {
	if !b.IsReady() {
		return nil, fmt.Errorf("onnx ner backend not ready")
	}

	tokens := b.tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > b.maxLength {
		tokens = tokens[:b.maxLength]
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	seqLen := len(tokens)
	inputIDs := make([]int64, seqLen)
	attention := make([]int64, seqLen)
	tokenTypes := make([]int64, seqLen)
	for i, t := range tokens {
		inputIDs[i] = t.id
		attention[i] = 1
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor[int64](shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor[int64](shape, attention)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor[int64](shape, tokenTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	inputs := make([]ort.Value, 0, len(b.inputNames))
	for _, rawName := range b.inputNames {
		switch name := strings.ToLower(rawName); {
		case strings.Contains(name, "ids") && !strings.Contains(name, "type"):
			inputs = append(inputs, idsTensor)
		case strings.Contains(name, "attention") || strings.Contains(name, "mask"):
			inputs = append(inputs, maskTensor)
		default:
			inputs = append(inputs, typeTensor)
		}
	}

	outputs := make([]ort.Value, 1)
	if err := b.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}
	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("onnx returned no outputs")
	}
	defer func() { _ = outputs[0].Destroy() }()

	logits, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type (want float32 tensor)")
	}
	data := logits.GetData()
	outShape := logits.GetShape()
	if len(outShape) != 3 {
		return nil, fmt.Errorf("unsupported output shape %v", outShape)
	}
	numLabels := int(outShape[2])
	if len(data) < seqLen*numLabels {
		return nil, fmt.Errorf("unexpected flat data length %d for shape %v", len(data), outShape)
	}

	// Argmax per token
	tags := make([]string, seqLen)
	for i := 0; i < seqLen; i++ {
		best, bestIdx := data[i*numLabels], 0
		for j := 1; j < numLabels && j < len(b.labels); j++ {
			if v := data[i*numLabels+j]; v > best {
				best, bestIdx = v, j
			}
		}
		if bestIdx < len(b.labels) {
			tags[i] = b.labels[bestIdx]
		} else {
			tags[i] = "O"
		}
	}

	return groupBIO(text, tokens, tags), nil
}

// nerToken is one vocabulary token with its source character range
type nerToken struct {
	id    int64
	start int
	end   int
}

// tokenize splits text into word tokens with character offsets and
// resolves each against the vocabulary. Out-of-vocabulary words map
// to the [UNK] id when present, 0 otherwise.
func (b *OnnxNERBackend) tokenize(text string) []nerToken {
	unk, hasUnk := b.vocab["[UNK]"]
	var tokens []nerToken
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := text[start:end]
		id, ok := b.vocab[word]
		if !ok {
			id, ok = b.vocab[strings.ToLower(word)]
		}
		if !ok {
			if hasUnk {
				id = unk
			} else {
				id = 0
			}
		}
		tokens = append(tokens, nerToken{id: id, start: start, end: end})
		start = -1
	}
	for i, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(text))
	return tokens
}

// groupBIO collapses consecutive B-/I- tags into labeled spans
func groupBIO(text string, tokens []nerToken, tags []string) []LabeledSpan {
	var spans []LabeledSpan
	var cur *LabeledSpan
	var curTag string

	emit := func() {
		if cur != nil {
			cur.Text = text[cur.Start:cur.End]
			spans = append(spans, *cur)
			cur = nil
		}
	}

	for i, tag := range tags {
		if tag == "O" || tag == "" {
			emit()
			continue
		}
		parts := strings.SplitN(tag, "-", 2)
		if len(parts) != 2 {
			emit()
			continue
		}
		prefix, suffix := parts[0], parts[1]
		label, ok := bioToLabel[suffix]
		if !ok {
			emit()
			continue
		}
		if prefix == "B" || cur == nil || curTag != suffix {
			emit()
			cur = &LabeledSpan{Label: label, Start: tokens[i].start, End: tokens[i].end}
			curTag = suffix
		} else {
			cur.End = tokens[i].end
		}
	}
	emit()
	return spans
}

// loadVocab reads a one-token-per-line wordpiece vocabulary file
func loadVocab(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		vocab[strings.TrimRight(scanner.Text(), "\r\n")] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vocab, nil
}
