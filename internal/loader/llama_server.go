// Package loader provides Loader implementations for the manager. The
// default loader spawns a llama.cpp llama-server per resource; an in-process
// variant built on go-llama.cpp is available behind the llama build tag.
package loader

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vramd/internal/manager"
	"vramd/pkg/types"
)

const healthTimeout = 30 * time.Second

// LlamaServer loads resources by spawning a llama-server process per
// resource, bound to a free localhost port. The handle it returns is the
// running process plus its base URL; callers that compute with the resource
// talk to that URL outside the manager's knowledge.
type LlamaServer struct {
	// Bin is the llama-server binary; discovered in common paths when empty.
	Bin string
	// Threads and CtxSize are passed through to the server when non-zero.
	Threads int
	CtxSize int
	Log     zerolog.Logger
}

// ServerHandle is the opaque handle a LlamaServer returns.
type ServerHandle struct {
	Proc    *os.Process
	Port    int
	BaseURL string
}

func (l *LlamaServer) Load(ctx context.Context, spec types.ResourceSpec) (manager.LoadResult, error) {
	modelPath := strings.TrimSpace(spec.ModelID)
	if modelPath == "" {
		return manager.LoadResult{}, fmt.Errorf("empty model id")
	}
	fi, err := os.Stat(modelPath)
	if err != nil {
		return manager.LoadResult{}, fmt.Errorf("model artifact %s: %w", modelPath, err)
	}
	bin := strings.TrimSpace(l.Bin)
	if bin == "" {
		bin = discoverLlamaBin()
	}
	if bin == "" {
		return manager.LoadResult{}, fmt.Errorf("llama-server not found: set llama_bin or install llama.cpp")
	}
	port, err := findFreePort()
	if err != nil {
		return manager.LoadResult{}, err
	}
	args := []string{
		"--host", "127.0.0.1",
		"--port", fmt.Sprintf("%d", port),
		"-m", modelPath,
	}
	if l.CtxSize > 0 {
		args = append(args, "--ctx-size", fmt.Sprintf("%d", l.CtxSize))
	}
	if l.Threads > 0 {
		args = append(args, "--threads", fmt.Sprintf("%d", l.Threads))
	}
	cmd := exec.Command(bin, args...)
	// Working directory is the model directory so relative assets resolve.
	cmd.Dir = filepath.Dir(modelPath)
	if err := cmd.Start(); err != nil {
		return manager.LoadResult{}, err
	}
	go func() { _ = cmd.Wait() }()
	if err := waitForHealth(ctx, port, healthTimeout); err != nil {
		_ = cmd.Process.Kill()
		return manager.LoadResult{}, err
	}
	l.Log.Debug().Str("model", modelPath).Int("port", port).Int("pid", cmd.Process.Pid).Msg("llama-server up")
	return manager.LoadResult{
		Handle: &ServerHandle{
			Proc:    cmd.Process,
			Port:    port,
			BaseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		},
		// The server maps the whole artifact into device memory; its on-disk
		// size is the measured footprint.
		ActualBytes: uint64(fi.Size()),
	}, nil
}

func (l *LlamaServer) Unload(ctx context.Context, handle types.Handle) error {
	h, ok := handle.(*ServerHandle)
	if !ok {
		return fmt.Errorf("not a llama-server handle: %T", handle)
	}
	if h.Proc == nil {
		return nil
	}
	if err := h.Proc.Kill(); err != nil {
		return fmt.Errorf("kill llama-server pid %d: %w", h.Proc.Pid, err)
	}
	h.Proc = nil
	return nil
}

func findFreePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

func waitForHealth(ctx context.Context, port int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		if err := checkHealth(ctx, port); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("llama-server health check timeout on :%d: %w", port, ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func checkHealth(ctx context.Context, port int) error {
	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

// discoverLlamaBin attempts to locate a llama.cpp server binary in common
// paths. Callers should set Bin explicitly to override.
func discoverLlamaBin() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, "apps", "llama.cpp", "build", "bin", "llama-server"),
		"/usr/local/bin/llama-server",
		"/opt/homebrew/bin/llama-server",
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	if p, err := exec.LookPath("llama-server"); err == nil {
		return p
	}
	return ""
}
