package tokenizer

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrEmptyCorpus is returned when there is no text to build a vocabulary from
	ErrEmptyCorpus = errors.New("corpus is empty")
	// ErrVocabularyTooSmall is returned when the corpus has fewer than two distinct symbols
	ErrVocabularyTooSmall = errors.New("vocabulary needs at least 2 distinct symbols")
)

// Tokenizer maps corpus characters to dense indices and back.
//
// Symbols are ordered by code point. Decoding indexes the sorted symbol
// list; encoding indexes an inverse table keyed by rune, so both
// directions are constant time.
type Tokenizer struct {
	Vocab  []rune
	lookup []int32
}

// Build creates a tokenizer from the distinct characters in corpus
func Build(corpus string) (*Tokenizer, error) {
	if corpus == "" {
		return nil, ErrEmptyCorpus
	}

	seen := make(map[rune]struct{})
	for _, r := range corpus {
		seen[r] = struct{}{}
	}
	if len(seen) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrVocabularyTooSmall, len(seen))
	}

	vocab := make([]rune, 0, len(seen))
	for r := range seen {
		vocab = append(vocab, r)
	}
	slices.Sort(vocab)

	lookup := make([]int32, vocab[len(vocab)-1]+1)
	for i := range lookup {
		lookup[i] = -1
	}
	for i, r := range vocab {
		lookup[r] = int32(i)
	}

	return &Tokenizer{
		Vocab:  vocab,
		lookup: lookup,
	}, nil
}

// Encode converts one character to its index
func (t *Tokenizer) Encode(r rune) (int, error) {
	if r < 0 || int(r) >= len(t.lookup) || t.lookup[r] < 0 {
		return 0, fmt.Errorf("character not in vocabulary: %q", r)
	}
	return int(t.lookup[r]), nil
}

// Decode converts one index back to its character
func (t *Tokenizer) Decode(id int) (rune, error) {
	if id < 0 || id >= len(t.Vocab) {
		return 0, fmt.Errorf("invalid token ID: %d (vocab size: %d)", id, len(t.Vocab))
	}
	return t.Vocab[id], nil
}

// EncodeText converts text to token IDs
func (t *Tokenizer) EncodeText(text string) ([]int, error) {
	tokens := make([]int, 0, len(text))
	for _, r := range text {
		id, err := t.Encode(r)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, id)
	}
	return tokens, nil
}

// DecodeIndices converts token IDs back to text
func (t *Tokenizer) DecodeIndices(tokens []int) (string, error) {
	var sb strings.Builder
	sb.Grow(len(tokens))
	for _, id := range tokens {
		r, err := t.Decode(id)
		if err != nil {
			return "", err
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

// VocabSize returns the size of the vocabulary
func (t *Tokenizer) VocabSize() int {
	return len(t.Vocab)
}
