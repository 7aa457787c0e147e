package game

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	mathrand "math/rand"
	"strings"
)

// Word is one vocabulary item: the term shown to players and the translation
// they have to pick.
type Word struct {
	Term        string `json:"term" yaml:"term"`
	Translation string `json:"translation" yaml:"translation"`
}

// WordProvider looks up vocabulary for a difficulty level. It may return
// fewer than n words.
type WordProvider interface {
	Words(ctx context.Context, level string, n int) ([]Word, error)
}

// Question is one round of the game. Options hold the correct translation
// exactly once, at CorrectIndex.
type Question struct {
	Word         Word
	Options      []string
	CorrectIndex int
}

func (q *Question) Text() string { return q.Word.Term }

func (q *Question) CorrectAnswer() string { return q.Options[q.CorrectIndex] }

// poolSize is how many words a game asks the provider for: one per question
// plus enough extra translations to fill the distractors.
func poolSize(total, optionCount int) int {
	return total + optionCount - 1
}

// newRand returns a deterministic source for a game, seeded from its id.
func newRand(seed string) *mathrand.Rand {
	sum := sha256.Sum256([]byte(seed))
	return mathrand.New(mathrand.NewSource(int64(binary.BigEndian.Uint64(sum[:8]))))
}

func answerKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// buildQuestions turns fetched words into at most total questions with
// optionCount options each. Every question uses a different word and its
// distractors are translations that differ from the correct one.
func buildQuestions(words []Word, total, optionCount int, rng *mathrand.Rand) ([]*Question, error) {
	seenTerm := make(map[string]bool)
	seenAnswer := make(map[string]bool)
	var usable []Word
	var answers []string
	for _, w := range words {
		term, tr := strings.TrimSpace(w.Term), strings.TrimSpace(w.Translation)
		if term == "" || tr == "" || seenTerm[answerKey(term)] {
			continue
		}
		seenTerm[answerKey(term)] = true
		usable = append(usable, Word{Term: term, Translation: tr})
		if !seenAnswer[answerKey(tr)] {
			seenAnswer[answerKey(tr)] = true
			answers = append(answers, tr)
		}
	}

	if len(usable) == 0 || len(answers) < optionCount {
		return nil, fmt.Errorf("%w: got %d words with %d distinct answers, need %d options",
			ErrNotEnoughWords, len(usable), len(answers), optionCount)
	}

	rng.Shuffle(len(usable), func(i, j int) { usable[i], usable[j] = usable[j], usable[i] })
	if len(usable) > total {
		usable = usable[:total]
	}

	questions := make([]*Question, 0, len(usable))
	for _, w := range usable {
		correct := answerKey(w.Translation)
		candidates := make([]string, 0, len(answers)-1)
		for _, a := range answers {
			if answerKey(a) != correct {
				candidates = append(candidates, a)
			}
		}
		rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

		options := make([]string, 0, optionCount)
		options = append(options, w.Translation)
		options = append(options, candidates[:optionCount-1]...)
		rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

		q := &Question{Word: w, Options: options}
		for i, o := range options {
			if o == w.Translation {
				q.CorrectIndex = i
				break
			}
		}
		questions = append(questions, q)
	}
	return questions, nil
}
