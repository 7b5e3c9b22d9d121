//go:build onnx

package onnx

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// BERT special token IDs for the bert-base vocabularies that MiniLM
// models ship with.
const (
	unkTokenID = 100
	clsTokenID = 101
	sepTokenID = 102
)

// wordPieceTokenizer performs BERT-style WordPiece tokenization from a
// tokenizer.json vocabulary.
type wordPieceTokenizer struct {
	vocab    map[string]int
	clsToken int
	sepToken int
	unkToken int
}

func loadWordPieceTokenizer(path string) (*wordPieceTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tokenizer.json: %w", err)
	}
	if len(file.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer.json has an empty vocabulary")
	}

	return &wordPieceTokenizer{
		vocab:    file.Model.Vocab,
		clsToken: clsTokenID,
		sepToken: sepTokenID,
		unkToken: unkTokenID,
	}, nil
}

// tokenize converts text to token IDs. Uncased model: lowercase first.
func (t *wordPieceTokenizer) tokenize(text string) []int64 {
	words := strings.Fields(strings.ToLower(text))

	var tokens []int64
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}

		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, int64(id))
			continue
		}

		for _, piece := range t.wordPieces(word) {
			if id, ok := t.vocab[piece]; ok {
				tokens = append(tokens, int64(id))
			} else {
				tokens = append(tokens, int64(t.unkToken))
			}
		}
	}
	return tokens
}

// wordPieces splits a word into greedy longest-prefix subwords, with
// the "##" continuation marker on non-initial pieces.
func (t *wordPieceTokenizer) wordPieces(word string) []string {
	var pieces []string
	start := 0
	for start < len(word) {
		end := len(word)
		found := false
		for end > start {
			piece := word[start:end]
			if start > 0 {
				piece = "##" + piece
			}
			if _, ok := t.vocab[piece]; ok {
				pieces = append(pieces, piece)
				start = end
				found = true
				break
			}
			end--
		}
		if !found {
			pieces = append(pieces, "[UNK]")
			start++
		}
	}
	return pieces
}
