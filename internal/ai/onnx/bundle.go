package onnx

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultModelFile = "model.onnx"
	defaultVocabFile = "vocab.txt"
	defaultMaxTokens = 256
)

// bundleFile is the optional bundle.yaml placed next to an exported model.
type bundleFile struct {
	Name            string `yaml:"name"`
	Model           string `yaml:"model"`
	Vocab           string `yaml:"vocab"`
	LowerCase       *bool  `yaml:"lower_case"`
	TokenTypeIDs    *bool  `yaml:"token_type_ids"`
	MaxTokens       int    `yaml:"max_tokens"`
	EntailmentLabel string `yaml:"entailment_label"`
}

// bundle describes an exported transformer model directory: the ONNX graph,
// its WordPiece vocabulary and the label names from config.json.
type bundle struct {
	name            string
	modelPath       string
	vocabPath       string
	labels          []string
	lowerCase       bool
	tokenTypes      bool
	maxTokens       int
	entailmentLabel string
}

type hfConfig struct {
	NameOrPath    string            `json:"_name_or_path"`
	ModelType     string            `json:"model_type"`
	ID2Label      map[string]string `json:"id2label"`
	TypeVocabSize int               `json:"type_vocab_size"`
}

type hfTokenizerConfig struct {
	DoLowerCase *bool `json:"do_lower_case"`
}

func loadBundle(dir string) (*bundle, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("model directory is empty")
	}

	var cfg hfConfig
	if err := readJSON(filepath.Join(dir, "config.json"), &cfg); err != nil {
		return nil, fmt.Errorf("read model config: %w", err)
	}

	labels, err := labelsFromIDMap(cfg.ID2Label)
	if err != nil {
		return nil, fmt.Errorf("model config %s: %w", filepath.Join(dir, "config.json"), err)
	}

	b := &bundle{
		name:       cfg.NameOrPath,
		modelPath:  filepath.Join(dir, defaultModelFile),
		vocabPath:  filepath.Join(dir, defaultVocabFile),
		labels:     labels,
		lowerCase:  true,
		tokenTypes: cfg.TypeVocabSize > 0,
		maxTokens:  defaultMaxTokens,
	}
	if b.name == "" {
		b.name = filepath.Base(filepath.Clean(dir))
	}

	var tokCfg hfTokenizerConfig
	if err := readJSON(filepath.Join(dir, "tokenizer_config.json"), &tokCfg); err == nil {
		if tokCfg.DoLowerCase != nil {
			b.lowerCase = *tokCfg.DoLowerCase
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read tokenizer config: %w", err)
	}

	if err := b.applyOverrides(dir); err != nil {
		return nil, err
	}

	if _, err := os.Stat(b.modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", b.modelPath, err)
	}
	if _, err := os.Stat(b.vocabPath); err != nil {
		return nil, fmt.Errorf("vocab file missing at %s: %w", b.vocabPath, err)
	}

	return b, nil
}

func (b *bundle) applyOverrides(dir string) error {
	path := filepath.Join(dir, "bundle.yaml")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read bundle file: %w", err)
	}

	var f bundleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse bundle file %s: %w", path, err)
	}

	if f.Name != "" {
		b.name = f.Name
	}
	if f.Model != "" {
		b.modelPath = filepath.Join(dir, f.Model)
	}
	if f.Vocab != "" {
		b.vocabPath = filepath.Join(dir, f.Vocab)
	}
	if f.LowerCase != nil {
		b.lowerCase = *f.LowerCase
	}
	if f.TokenTypeIDs != nil {
		b.tokenTypes = *f.TokenTypeIDs
	}
	if f.MaxTokens > 0 {
		b.maxTokens = f.MaxTokens
	}
	b.entailmentLabel = strings.TrimSpace(f.EntailmentLabel)
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// labelsFromIDMap turns a config.json id2label map into a dense slice.
func labelsFromIDMap(id2label map[string]string) ([]string, error) {
	if len(id2label) == 0 {
		return nil, errors.New("id2label is empty")
	}

	ids := make([]int, 0, len(id2label))
	byID := make(map[int]string, len(id2label))
	for key, label := range id2label {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid label id %q", key)
		}
		ids = append(ids, id)
		byID[id] = label
	}
	sort.Ints(ids)

	labels := make([]string, len(ids))
	for i, id := range ids {
		if id != i {
			return nil, fmt.Errorf("label ids are not contiguous: missing %d", i)
		}
		labels[i] = byID[id]
	}
	return labels, nil
}
