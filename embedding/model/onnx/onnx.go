//go:build onnx

// Package onnx runs sentence-embedding inference through ONNX Runtime.
// The reference configuration is all-MiniLM-L6-v2 with 384 dimensions.
package onnx

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	defaultDimensions = 384
	maxSequenceLength = 128
)

// Config configures the ONNX embedding model.
type Config struct {
	// ModelPath is the path to the ONNX model file. Required.
	ModelPath string

	// TokenizerPath is the path to the tokenizer.json vocabulary. Required.
	TokenizerPath string

	// LibraryPath is the path to libonnxruntime.so. Empty uses the
	// onnxruntime_go default lookup.
	LibraryPath string

	// Dimensions is the embedding vector size. Default 384.
	Dimensions int
}

// Model implements model.Model on top of ONNX Runtime. All methods run
// inside the embedding engine's worker goroutine; the session is never
// shared across goroutines.
type Model struct {
	cfg        Config
	session    *ort.DynamicAdvancedSession
	tokenizer  *wordPieceTokenizer
	dimensions int
}

// New creates an ONNX model. The heavy work (runtime init, session
// creation, vocabulary load) happens in Load, not here.
func New(cfg Config) (*Model, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx: ModelPath is required")
	}
	if cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("onnx: TokenizerPath is required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = defaultDimensions
	}
	return &Model{cfg: cfg, dimensions: cfg.Dimensions}, nil
}

// Load initializes the ONNX runtime, loads the vocabulary, and creates
// the inference session.
func (m *Model) Load() error {
	if m.cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(m.cfg.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	tokenizer, err := loadWordPieceTokenizer(m.cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("onnx: load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(m.cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return fmt.Errorf("onnx: create session: %w", err)
	}

	m.session = session
	m.tokenizer = tokenizer
	log.Info("loaded ONNX embedding model", "path", m.cfg.ModelPath, "dimensions", m.dimensions)
	return nil
}

// Embed tokenizes the text, runs inference, mean-pools the hidden
// states over attended tokens, and L2-normalizes the result.
func (m *Model) Embed(text string) ([]float32, error) {
	tokens := m.tokenizer.tokenize(text)

	inputIDs := make([]int64, maxSequenceLength)
	attentionMask := make([]int64, maxSequenceLength)
	tokenTypeIDs := make([]int64, maxSequenceLength)

	inputIDs[0] = int64(m.tokenizer.clsToken)
	attentionMask[0] = 1

	tokenLen := len(tokens)
	if tokenLen > maxSequenceLength-2 { // room for [CLS] and [SEP]
		tokenLen = maxSequenceLength - 2
	}
	for i := 0; i < tokenLen; i++ {
		inputIDs[i+1] = tokens[i]
		attentionMask[i+1] = 1
	}
	inputIDs[tokenLen+1] = int64(m.tokenizer.sepToken)
	attentionMask[tokenLen+1] = 1

	shape := ort.NewShape(1, int64(maxSequenceLength))
	inputIDsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: input_ids tensor: %w", err)
	}
	defer inputIDsTensor.Destroy()

	attentionTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("onnx: attention_mask tensor: %w", err)
	}
	defer attentionTensor.Destroy()

	tokenTypeTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: token_type_ids tensor: %w", err)
	}
	defer tokenTypeTensor.Destroy()

	outputs := []ort.Value{nil}
	err = m.session.Run([]ort.Value{inputIDsTensor, attentionTensor, tokenTypeTensor}, outputs)
	if err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("onnx: no output tensor returned")
	}
	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnx: unexpected output tensor type %T", outputs[0])
	}

	embedding, err := m.pool(outputTensor.GetData(), outputTensor.GetShape(), attentionMask)
	if err != nil {
		return nil, err
	}
	return normalize(embedding), nil
}

// pool reduces the model output to a single vector. Some exports ship
// already pooled ([1, dims]); raw exports need mean pooling over the
// sequence axis ([1, seq, dims]), counting only attended tokens.
func (m *Model) pool(data []float32, shape []int64, attentionMask []int64) ([]float32, error) {
	switch len(shape) {
	case 2:
		if len(data) < m.dimensions {
			return nil, fmt.Errorf("onnx: pooled output has %d values, expected %d", len(data), m.dimensions)
		}
		embedding := make([]float32, m.dimensions)
		copy(embedding, data[:m.dimensions])
		return embedding, nil

	case 3:
		if shape[0] != 1 {
			return nil, fmt.Errorf("onnx: expected batch size 1, got %d", shape[0])
		}
		seqLen, hidden := int(shape[1]), int(shape[2])
		if hidden != m.dimensions {
			return nil, fmt.Errorf("onnx: hidden size %d, expected %d", hidden, m.dimensions)
		}

		embedding := make([]float32, m.dimensions)
		attended := float32(0)
		for i := 0; i < seqLen; i++ {
			if attentionMask[i] == 0 {
				continue
			}
			attended++
			offset := i * hidden
			for j := 0; j < hidden; j++ {
				embedding[j] += data[offset+j]
			}
		}
		if attended == 0 {
			return nil, fmt.Errorf("onnx: no attended tokens in output")
		}
		for j := range embedding {
			embedding[j] /= attended
		}
		return embedding, nil

	default:
		return nil, fmt.Errorf("onnx: unexpected output shape %v", shape)
	}
}

// Dimensions returns the embedding vector size.
func (m *Model) Dimensions() int { return m.dimensions }

// Close destroys the inference session.
func (m *Model) Close() error {
	if m.session != nil {
		if err := m.session.Destroy(); err != nil {
			return err
		}
		m.session = nil
	}
	return nil
}

// normalize converts the vector to unit length.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
