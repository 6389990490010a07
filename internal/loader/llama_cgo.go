//go:build llama

package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"vramd/internal/manager"
	"vramd/pkg/types"
)

// InProcess loads model weights directly into this process via go-llama.cpp.
// Build with -tags=llama; the default build uses the subprocess loader.
type InProcess struct {
	CtxSize int
}

func (l *InProcess) Load(ctx context.Context, spec types.ResourceSpec) (manager.LoadResult, error) {
	modelPath := strings.TrimSpace(spec.ModelID)
	if modelPath == "" {
		return manager.LoadResult{}, fmt.Errorf("empty model id")
	}
	fi, err := os.Stat(modelPath)
	if err != nil {
		return manager.LoadResult{}, fmt.Errorf("model artifact %s: %w", modelPath, err)
	}
	mo := []llama.ModelOption{}
	if l.CtxSize > 0 {
		mo = append(mo, llama.SetContext(l.CtxSize))
	}
	m, err := llama.New(modelPath, mo...)
	if err != nil {
		return manager.LoadResult{}, err
	}
	return manager.LoadResult{Handle: m, ActualBytes: uint64(fi.Size())}, nil
}

func (l *InProcess) Unload(ctx context.Context, handle types.Handle) error {
	m, ok := handle.(*llama.LLama)
	if !ok {
		return fmt.Errorf("not an in-process llama handle: %T", handle)
	}
	m.Free()
	return nil
}
