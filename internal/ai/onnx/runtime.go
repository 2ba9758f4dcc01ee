package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Backend is the name used for this backend in logs and configuration.
const Backend = "onnx"

// LibraryPathEnv overrides the location of the onnxruntime shared library.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

var runtimeMu sync.Mutex

// Init loads the onnxruntime shared library and initializes the global
// environment. It is safe to call more than once; only the first successful
// call has an effect. An empty libraryPath is resolved from LibraryPathEnv and
// then from well-known locations, including the given bundle directories.
func Init(libraryPath string, bundleDirs ...string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	libraryPath = strings.TrimSpace(libraryPath)
	if libraryPath == "" {
		libraryPath = resolveSharedLibraryPath(bundleDirs...)
	}
	if libraryPath == "" {
		return fmt.Errorf("onnxruntime shared library not found; set %s or onnx.library-path", LibraryPathEnv)
	}

	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime from %s: %w", libraryPath, err)
	}
	return nil
}

// Shutdown releases the global onnxruntime environment.
func Shutdown() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func resolveSharedLibraryPath(bundleDirs ...string) string {
	if env := strings.TrimSpace(os.Getenv(LibraryPathEnv)); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"onnxruntime.dll",
	}

	var dirs []string
	for _, dir := range bundleDirs {
		if dir = strings.TrimSpace(dir); dir == "" {
			continue
		}
		dirs = append(dirs, dir, filepath.Join(dir, "lib"))
	}
	dirs = append(dirs, ".", "/opt/homebrew/lib", "/usr/local/lib", "/usr/lib")

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// runner executes one forward pass of a model over a single sequence.
type runner interface {
	run(inputIDs, attentionMask, tokenTypeIDs []int64) ([]float32, error)
	close() error
}

// session owns an ONNX session with preallocated tensors of batch size one.
// Calls are serialized because the tensors are shared.
type session struct {
	mu sync.Mutex

	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

func newSession(modelPath string, seqLen int, outputShape ort.Shape, tokenTypes bool) (*session, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}

	s := &session{}
	inputShape := ort.NewShape(1, int64(seqLen))

	if s.inputIDs, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	if s.attentionMask, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		_ = s.close()
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	if tokenTypes {
		if s.tokenTypeIDs, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
			_ = s.close()
			return nil, fmt.Errorf("allocate token_type_ids tensor: %w", err)
		}
	}
	if s.output, err = ort.NewEmptyTensor[float32](outputShape); err != nil {
		_ = s.close()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	inputNames := []string{"input_ids", "attention_mask"}
	inputValues := []ort.Value{s.inputIDs, s.attentionMask}
	if s.tokenTypeIDs != nil {
		inputNames = append(inputNames, "token_type_ids")
		inputValues = append(inputValues, s.tokenTypeIDs)
	}

	s.session, err = ort.NewAdvancedSession(
		modelPath,
		inputNames,
		[]string{"logits"},
		inputValues,
		[]ort.Value{s.output},
		opts,
	)
	if err != nil {
		_ = s.close()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return s, nil
}

func (s *session) run(inputIDs, attentionMask, tokenTypeIDs []int64) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("onnx session is closed")
	}

	copy(s.inputIDs.GetData(), inputIDs)
	copy(s.attentionMask.GetData(), attentionMask)
	if s.tokenTypeIDs != nil {
		data := s.tokenTypeIDs.GetData()
		for i := range data {
			data[i] = 0
		}
		copy(data, tokenTypeIDs)
	}

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	raw := s.output.GetData()
	out := make([]float32, len(raw))
	copy(out, raw)
	return out, nil
}

func (s *session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.session != nil {
		errs = append(errs, s.session.Destroy())
		s.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{s.inputIDs, s.attentionMask, s.tokenTypeIDs} {
		if t != nil {
			errs = append(errs, t.Destroy())
		}
	}
	if s.output != nil {
		errs = append(errs, s.output.Destroy())
	}
	s.inputIDs, s.attentionMask, s.tokenTypeIDs, s.output = nil, nil, nil, nil
	return errors.Join(errs...)
}
