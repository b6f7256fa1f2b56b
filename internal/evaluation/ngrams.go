package evaluation

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
)

// Ngram is a sequence of characters with its relative frequency.
type Ngram struct {
	Chars []rune
	Freq  float64
}

// Ngrams holds normalized unigram, bigram and trigram frequencies.
// Entries are sorted by descending frequency and then by text, so iteration
// order (and thus floating point summation) is stable.
type Ngrams struct {
	Unigrams []Ngram
	Bigrams  []Ngram
	Trigrams []Ngram
}

// NewNgrams normalizes raw counts into an Ngrams set.
func NewNgrams(unigrams, bigrams, trigrams map[string]float64) *Ngrams {
	return &Ngrams{
		Unigrams: normalize(unigrams),
		Bigrams:  normalize(bigrams),
		Trigrams: normalize(trigrams),
	}
}

// NgramsFromText counts n-grams of a corpus. Text is lowercased and n-grams
// never span whitespace.
func NgramsFromText(text string) *Ngrams {
	uni := make(map[string]float64)
	bi := make(map[string]float64)
	tri := make(map[string]float64)

	for _, word := range strings.FieldsFunc(strings.ToLower(text), unicode.IsSpace) {
		rs := []rune(word)
		for i := range rs {
			uni[string(rs[i])]++
			if i+1 < len(rs) {
				bi[string(rs[i:i+2])]++
			}
			if i+2 < len(rs) {
				tri[string(rs[i:i+3])]++
			}
		}
	}

	return NewNgrams(uni, bi, tri)
}

// ParseFrequencies reads "<count> <ngram>" lines, separated by spaces or tabs,
// for n-grams of the given order.
// Blank lines are skipped. The n-gram may itself contain spaces.
func ParseFrequencies(r io.Reader, order int) (map[string]float64, error) {
	counts := make(map[string]float64)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		line = strings.TrimLeft(line, " \t")

		sep := strings.IndexAny(line, " \t")
		if sep < 0 {
			return nil, fmt.Errorf("line %d: expected \"<count> <ngram>\"", lineNo)
		}
		count, err := strconv.ParseFloat(line[:sep], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid count: %w", lineNo, err)
		}
		if count < 0 {
			return nil, fmt.Errorf("line %d: negative count", lineNo)
		}
		// A separator run may be wider than one character, but the n-gram
		// itself can start with a space or tab.
		ngram := line[sep+1:]
		for len([]rune(ngram)) > order && (ngram[0] == ' ' || ngram[0] == '\t') {
			ngram = ngram[1:]
		}
		if n := len([]rune(ngram)); n != order {
			return nil, fmt.Errorf("line %d: expected %d characters, got %d", lineNo, order, n)
		}
		counts[ngram] += count
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func normalize(counts map[string]float64) []Ngram {
	out := make([]Ngram, 0, len(counts))
	for text, c := range counts {
		if c > 0 {
			out = append(out, Ngram{Chars: []rune(text), Freq: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Freq != out[j].Freq {
			return out[i].Freq > out[j].Freq
		}
		return string(out[i].Chars) < string(out[j].Chars)
	})

	freqs := make([]float64, len(out))
	for i, n := range out {
		freqs[i] = n.Freq
	}
	total := floats.Sum(freqs)
	if total == 0 {
		return out
	}
	floats.Scale(1/total, freqs)
	for i := range out {
		out[i].Freq = freqs[i]
	}
	return out
}

// DefaultCorpus is a short English sample used when no frequency data is configured.
const DefaultCorpus = `The quick brown fox jumps over the lazy dog while the engineers measure
how often each letter and each pair of letters appears in ordinary writing. Typing effort
depends on which finger presses a key, how far it has to travel, and whether two letters in
a row are typed by the same finger. A good layout keeps the most common letters on the home
row, alternates between hands, and avoids awkward jumps between the top and bottom rows.
People write emails, reports, stories and programs every day; small improvements in comfort
add up over millions of keystrokes. This sample is not a substitute for a real corpus, but it
is enough to exercise the search engine and to compare candidate arrangements with each other.`
