// services/wordbank.go - Word bank files and the in-memory word provider
package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"trainvoc/game"
	"trainvoc/wordparser"
)

// WordFile is one word bank file. YAML and JSON files carry their level;
// plain text files take it from the file name.
type WordFile struct {
	Level string      `json:"level" yaml:"level"`
	Words []game.Word `json:"words" yaml:"words"`

	Path     string `json:"-" yaml:"-"`
	BadLines []int  `json:"-" yaml:"-"` // text files only
}

// WordFilePatterns are the globs searched in a word directory.
var WordFilePatterns = []string{"*.yaml", "*.yml", "*.json", "*.txt"}

// FindWordFiles lists word bank files in dir, sorted by name.
func FindWordFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range WordFilePatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to read word directory: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// ParseWordFile reads a word bank file based on its extension.
func ParseWordFile(path string) (*WordFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	wf := &WordFile{Path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, wf); err != nil {
			return nil, fmt.Errorf("%s: invalid yaml: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, wf); err != nil {
			return nil, fmt.Errorf("%s: invalid json: %w", path, err)
		}
	case ".txt":
		wf.Level = wordparser.LevelFromFilename(path)
		sc := bufio.NewScanner(bytes.NewReader(data))
		lineNum := 0
		for sc.Scan() {
			lineNum++
			line := sc.Text()
			if wordparser.Comment(line) {
				continue
			}
			term, translation, ok := wordparser.ParseLine(line)
			if !ok {
				wf.BadLines = append(wf.BadLines, lineNum)
				continue
			}
			wf.Words = append(wf.Words, game.Word{Term: term, Translation: translation})
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("%s: scanner error: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported word file type", path)
	}

	wf.Level = strings.ToUpper(strings.TrimSpace(wf.Level))
	return wf, nil
}

// Problems lists what is wrong with a parsed file. An empty result means the
// file can be loaded as is.
func (wf *WordFile) Problems() []string {
	var problems []string
	if wf.Level == "" {
		problems = append(problems, "missing level")
	}
	for _, n := range wf.BadLines {
		problems = append(problems, fmt.Sprintf("line %d: expected '<term> = <translation>'", n))
	}

	terms := make(map[string]int)
	answers := make(map[string]bool)
	for i, w := range wf.Words {
		term := strings.ToLower(strings.TrimSpace(w.Term))
		translation := strings.ToLower(strings.TrimSpace(w.Translation))
		if term == "" || translation == "" {
			problems = append(problems, fmt.Sprintf("word %d: term and translation are required", i+1))
			continue
		}
		if first, dup := terms[term]; dup {
			problems = append(problems, fmt.Sprintf("word %d: duplicate term %q (first at %d)", i+1, w.Term, first))
			continue
		}
		terms[term] = i + 1
		answers[translation] = true
	}
	if len(wf.Words) > 0 && len(answers) < 2 {
		problems = append(problems, "need at least 2 distinct translations")
	}
	return problems
}

// WordBank is an in-memory WordProvider filled from word files.
type WordBank struct {
	mu      sync.RWMutex
	byLevel map[string][]game.Word

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewWordBank() *WordBank {
	return &WordBank{
		byLevel: make(map[string][]game.Word),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Add appends words to a level, skipping blank entries and repeated terms.
func (b *WordBank) Add(level string, words []game.Word) int {
	level = strings.ToUpper(strings.TrimSpace(level))
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]bool, len(b.byLevel[level]))
	for _, w := range b.byLevel[level] {
		seen[strings.ToLower(w.Term)] = true
	}
	added := 0
	for _, w := range words {
		w.Term = strings.TrimSpace(w.Term)
		w.Translation = strings.TrimSpace(w.Translation)
		key := strings.ToLower(w.Term)
		if w.Term == "" || w.Translation == "" || seen[key] {
			continue
		}
		seen[key] = true
		b.byLevel[level] = append(b.byLevel[level], w)
		added++
	}
	return added
}

// Words returns up to n random words of a level. Level names are case
// insensitive.
func (b *WordBank) Words(ctx context.Context, level string, n int) ([]game.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	all := b.byLevel[strings.ToUpper(strings.TrimSpace(level))]
	picked := make([]game.Word, len(all))
	copy(picked, all)
	b.mu.RUnlock()

	b.rngMu.Lock()
	b.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	b.rngMu.Unlock()

	if n < len(picked) {
		picked = picked[:n]
	}
	return picked, nil
}

// Levels returns the word count per level.
func (b *WordBank) Levels(ctx context.Context) (map[string]int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]int, len(b.byLevel))
	for level, words := range b.byLevel {
		out[level] = len(words)
	}
	return out, nil
}

// LoadWordBank reads every word file in dir. Files with problems are skipped
// and logged; a missing directory yields an empty bank.
func LoadWordBank(dir string) (*WordBank, error) {
	bank := NewWordBank()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Warn().Str("dir", dir).Msg("⚠️  word directory not found, word bank is empty")
		return bank, nil
	}

	files, err := FindWordFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn().Str("dir", dir).Msg("⚠️  no word files found")
	}

	for _, file := range files {
		wf, err := ParseWordFile(file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("❌ failed to parse word file")
			continue
		}
		if problems := wf.Problems(); len(problems) > 0 {
			log.Warn().Str("file", file).Strs("problems", problems).Msg("⚠️  skipping invalid word file")
			continue
		}
		added := bank.Add(wf.Level, wf.Words)
		log.Info().Str("file", filepath.Base(file)).Str("level", wf.Level).Int("words", added).Msg("📚 loaded word file")
	}
	return bank, nil
}
