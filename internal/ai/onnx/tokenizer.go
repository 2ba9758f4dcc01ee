package onnx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxCharsPerWord = 100

// WordPieceTokenizer implements the BERT-style tokenizer shipped as vocab.txt
// with most encoder models (BERT, DistilBERT, MiniLM).
type WordPieceTokenizer struct {
	vocab        map[string]int64
	lowerCase    bool
	continuation string
	clsID        int64
	sepID        int64
	padID        int64
	unkID        int64
}

// LoadWordPieceTokenizer builds the tokenizer from a vocab.txt file.
func LoadWordPieceTokenizer(path string, lowerCase bool) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	return ReadWordPieceTokenizer(f, lowerCase)
}

// ReadWordPieceTokenizer builds the tokenizer from vocab lines, one token per line.
func ReadWordPieceTokenizer(r io.Reader, lowerCase bool) (*WordPieceTokenizer, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var idx int64
	for sc.Scan() {
		token := strings.TrimRight(sc.Text(), "\r\n")
		if token == "" {
			idx++
			continue
		}
		if _, dup := vocab[token]; !dup {
			vocab[token] = idx
		}
		idx++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}

	for _, special := range []string{"[CLS]", "[SEP]", "[UNK]"} {
		if _, ok := vocab[special]; !ok {
			return nil, fmt.Errorf("vocab is missing %s", special)
		}
	}

	return &WordPieceTokenizer{
		vocab:        vocab,
		lowerCase:    lowerCase,
		continuation: "##",
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
	}, nil
}

type tokenOffset struct {
	Start int
	End   int
}

var noOffset = tokenOffset{Start: -1, End: -1}

type piece struct {
	id     int64
	offset tokenOffset
}

// EncodePair encodes premise and hypothesis as
// [CLS] premise [SEP] hypothesis [SEP], padded to seqLen. The premise is
// truncated first when the pair does not fit.
func (t *WordPieceTokenizer) EncodePair(premise, hypothesis string, seqLen int) (ids, mask, types []int64) {
	if seqLen < 3 {
		return nil, nil, nil
	}

	a := t.tokenize(premise)
	b := t.tokenize(hypothesis)

	budget := seqLen - 3
	if len(a)+len(b) > budget {
		keep := budget - len(b)
		if keep < 0 {
			keep = 0
		}
		a = a[:min(len(a), keep)]
		if len(b) > budget-len(a) {
			b = b[:budget-len(a)]
		}
	}

	ids = make([]int64, 0, seqLen)
	types = make([]int64, 0, seqLen)

	ids = append(ids, t.clsID)
	types = append(types, 0)
	for _, p := range a {
		ids = append(ids, p.id)
		types = append(types, 0)
	}
	ids = append(ids, t.sepID)
	types = append(types, 0)
	for _, p := range b {
		ids = append(ids, p.id)
		types = append(types, 1)
	}
	ids = append(ids, t.sepID)
	types = append(types, 1)

	mask = make([]int64, seqLen)
	for i := range ids {
		mask[i] = 1
	}
	for len(ids) < seqLen {
		ids = append(ids, t.padID)
		types = append(types, 0)
	}
	return ids, mask, types
}

// EncodeWithOffsets encodes text as [CLS] text [SEP], padded to seqLen, and
// returns the byte offsets of every position. Special and padding positions
// carry -1 offsets. Text beyond seqLen-2 pieces is dropped.
func (t *WordPieceTokenizer) EncodeWithOffsets(text string, seqLen int) (ids, mask []int64, offsets []tokenOffset) {
	if seqLen < 2 {
		return nil, nil, nil
	}

	pieces := t.tokenize(text)
	if len(pieces) > seqLen-2 {
		pieces = pieces[:seqLen-2]
	}

	ids = make([]int64, 0, seqLen)
	offsets = make([]tokenOffset, 0, seqLen)

	ids = append(ids, t.clsID)
	offsets = append(offsets, noOffset)
	for _, p := range pieces {
		ids = append(ids, p.id)
		offsets = append(offsets, p.offset)
	}
	ids = append(ids, t.sepID)
	offsets = append(offsets, noOffset)

	mask = make([]int64, seqLen)
	for i := range ids {
		mask[i] = 1
	}
	for len(ids) < seqLen {
		ids = append(ids, t.padID)
		offsets = append(offsets, noOffset)
	}
	return ids, mask, offsets
}

func (t *WordPieceTokenizer) tokenize(text string) []piece {
	var out []piece
	for _, w := range splitWords(text) {
		token, spans := w.text, []tokenOffset(nil)
		if t.lowerCase {
			token, spans = uncase(w.text)
			if token == "" {
				continue
			}
		}

		for _, p := range t.wordPiece(token) {
			if spans != nil {
				p.offset = tokenOffset{Start: w.start + spans[p.offset.Start].Start, End: w.start + spans[p.offset.End-1].End}
			} else {
				p.offset = tokenOffset{Start: w.start + p.offset.Start, End: w.start + p.offset.End}
			}
			out = append(out, p)
		}
	}
	return out
}

// uncase lower-cases word, decomposes it (NFD) and drops combining marks the
// way uncased BERT vocabularies expect. spans maps every byte of the result
// to the bytes of word it came from.
func uncase(word string) (string, []tokenOffset) {
	var b strings.Builder
	spans := make([]tokenOffset, 0, len(word))
	for i := 0; i < len(word); {
		r, size := utf8.DecodeRuneInString(word[i:])
		for _, d := range norm.NFD.String(string(unicode.ToLower(r))) {
			if unicode.Is(unicode.Mn, d) {
				continue
			}
			n := b.Len()
			b.WriteRune(d)
			for ; n < b.Len(); n++ {
				spans = append(spans, tokenOffset{Start: i, End: i + size})
			}
		}
		i += size
	}
	return b.String(), spans
}

// wordPiece splits a single word greedily, longest prefix first. Offsets are
// relative to the word.
func (t *WordPieceTokenizer) wordPiece(word string) []piece {
	unknown := []piece{{id: t.unkID, offset: tokenOffset{Start: 0, End: len(word)}}}
	if len([]rune(word)) > maxCharsPerWord {
		return unknown
	}
	if id, ok := t.vocab[word]; ok {
		return []piece{{id: id, offset: tokenOffset{Start: 0, End: len(word)}}}
	}

	var pieces []piece
	start := 0
	for start < len(word) {
		end := len(word)
		found := false
		for end > start {
			sub := word[start:end]
			if start > 0 {
				sub = t.continuation + sub
			}
			if id, ok := t.vocab[sub]; ok {
				pieces = append(pieces, piece{id: id, offset: tokenOffset{Start: start, End: end}})
				start = end
				found = true
				break
			}
			end--
		}
		if !found {
			return unknown
		}
	}
	return pieces
}

type wordSpan struct {
	text  string
	start int
	end   int
}

// splitWords splits on whitespace and isolates punctuation, keeping byte
// offsets into text.
func splitWords(text string) []wordSpan {
	var spans []wordSpan
	start := -1
	flush := func(end int) {
		if start >= 0 {
			spans = append(spans, wordSpan{text: text[start:end], start: start, end: end})
			start = -1
		}
	}

	for idx, r := range text {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush(idx)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush(idx)
			_, size := utf8.DecodeRuneInString(text[idx:])
			end := idx + size
			spans = append(spans, wordSpan{text: text[idx:end], start: idx, end: end})
		default:
			if start < 0 {
				start = idx
			}
		}
	}
	flush(len(text))
	return spans
}
