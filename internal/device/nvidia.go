package device

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// NvidiaSMI probes total GPU memory by executing nvidia-smi. Bin may be empty
// to use PATH lookup. Multi-GPU hosts report the first device; multi-node
// placement is out of scope.
type NvidiaSMI struct {
	Bin string
}

func (n NvidiaSMI) TotalCapacityBytes() (uint64, error) {
	bin := n.Bin
	if bin == "" {
		bin = "nvidia-smi"
	}
	out, err := exec.Command(bin, "--query-gpu=memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return 0, fmt.Errorf("nvidia-smi: %w", err)
	}
	return parseSMIMemory(string(out))
}

// parseSMIMemory parses the first line of nvidia-smi's memory.total output,
// which is a MiB figure.
func parseSMIMemory(out string) (uint64, error) {
	line := out
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("nvidia-smi: empty output")
	}
	mib, err := strconv.ParseUint(line, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("nvidia-smi: bad memory figure %q: %w", line, err)
	}
	return mib << 20, nil
}
