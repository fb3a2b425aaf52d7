package resource

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/teslashibe/go-raspbot/internal/log"
)

// MemInfo is a snapshot of system memory headroom.
type MemInfo struct {
	AvailableMB int
	SwapFreeMB  int
}

// SystemMemory abstracts the platform memory operations so the
// reclaimer can be tested without touching the host.
type SystemMemory interface {
	ReadMemInfo() (MemInfo, error)
	ProvisionSwap(ctx context.Context, sizeMB int) error
	DropCaches(ctx context.Context) error
}

// ReclaimConfig holds the memory thresholds. All values in MB.
type ReclaimConfig struct {
	// MinAvailableMB is the floor below which swap gets provisioned.
	MinAvailableMB int

	// SwapSizeMB sizes the swapfile when provisioning.
	SwapSizeMB int

	// WorkingSetMB is what the language model needs; available plus
	// free swap must cover it or the reclaim fails.
	WorkingSetMB int
}

// DefaultReclaimConfig returns thresholds sized for a small quantized
// model on a Pi-class board.
func DefaultReclaimConfig() ReclaimConfig {
	return ReclaimConfig{
		MinAvailableMB: 1024,
		SwapSizeMB:     4096,
		WorkingSetMB:   2048,
	}
}

// ReleaseHook frees memory held elsewhere in the process (vision
// buffers, cached frames) before the headroom check.
type ReleaseHook func() error

// Reclaimer frees memory for the AI chat mode: run the release hooks,
// drop page caches, provision swap when below the floor, then verify
// the working set fits.
type Reclaimer struct {
	sys SystemMemory
	cfg ReclaimConfig

	mu    sync.Mutex
	hooks map[string]ReleaseHook
}

// NewReclaimer creates a reclaimer.
func NewReclaimer(sys SystemMemory, cfg ReclaimConfig) *Reclaimer {
	if cfg.WorkingSetMB <= 0 {
		cfg = DefaultReclaimConfig()
	}
	return &Reclaimer{
		sys:   sys,
		cfg:   cfg,
		hooks: make(map[string]ReleaseHook),
	}
}

// AddHook registers a named release hook. Hooks run on every reclaim;
// a failing hook is logged and skipped.
func (r *Reclaimer) AddHook(name string, hook ReleaseHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = hook
}

// Reclaim runs the full sequence. Returns ErrInsufficientMemory (wrapped)
// when the projected headroom cannot cover the working set.
func (r *Reclaimer) Reclaim(ctx context.Context) error {
	r.mu.Lock()
	hooks := make(map[string]ReleaseHook, len(r.hooks))
	for name, hook := range r.hooks {
		hooks[name] = hook
	}
	r.mu.Unlock()

	for name, hook := range hooks {
		if err := hook(); err != nil {
			log.Warn("release hook failed", "hook", name, "error", err)
		}
	}

	if err := r.sys.DropCaches(ctx); err != nil {
		log.Debug("drop caches skipped", "error", err)
	}

	info, err := r.sys.ReadMemInfo()
	if err != nil {
		return fmt.Errorf("read meminfo: %w", err)
	}
	log.Info("memory before reclaim check", "available_mb", info.AvailableMB, "swap_free_mb", info.SwapFreeMB)

	if info.AvailableMB < r.cfg.MinAvailableMB {
		log.Info("provisioning swap", "size_mb", r.cfg.SwapSizeMB)
		if err := r.sys.ProvisionSwap(ctx, r.cfg.SwapSizeMB); err != nil {
			log.Warn("swap provisioning failed", "error", err)
		}
		if info, err = r.sys.ReadMemInfo(); err != nil {
			return fmt.Errorf("read meminfo: %w", err)
		}
	}

	headroom := info.AvailableMB + info.SwapFreeMB
	if headroom < r.cfg.WorkingSetMB {
		return fmt.Errorf("%w: %dMB headroom, need %dMB", ErrInsufficientMemory, headroom, r.cfg.WorkingSetMB)
	}

	log.Info("memory reclaimed", "headroom_mb", headroom, "working_set_mb", r.cfg.WorkingSetMB)
	return nil
}

// LinuxMemory implements SystemMemory on the robot.
type LinuxMemory struct {
	// SwapfilePath is where the swapfile is provisioned.
	SwapfilePath string

	// MeminfoPath is overridable for tests.
	MeminfoPath string
}

// NewLinuxMemory returns the production implementation.
func NewLinuxMemory() *LinuxMemory {
	return &LinuxMemory{
		SwapfilePath: "/swapfile",
		MeminfoPath:  "/proc/meminfo",
	}
}

// ReadMemInfo parses MemAvailable and SwapFree from /proc/meminfo.
func (l *LinuxMemory) ReadMemInfo() (MemInfo, error) {
	f, err := os.Open(l.MeminfoPath)
	if err != nil {
		return MemInfo{}, fmt.Errorf("open meminfo: %w", err)
	}
	defer f.Close()

	var info MemInfo
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemAvailable":
			info.AvailableMB = kb / 1024
		case "SwapFree":
			info.SwapFreeMB = kb / 1024
		}
	}
	return info, scanner.Err()
}

// ProvisionSwap creates, formats, and enables the swapfile. Skips the
// whole sequence if the file already exists (it is likely already
// swapped on from a previous run).
func (l *LinuxMemory) ProvisionSwap(ctx context.Context, sizeMB int) error {
	if _, err := os.Stat(l.SwapfilePath); err == nil {
		return nil
	}

	steps := [][]string{
		{"fallocate", "-l", fmt.Sprintf("%dM", sizeMB), l.SwapfilePath},
		{"chmod", "600", l.SwapfilePath},
		{"mkswap", l.SwapfilePath},
		{"swapon", l.SwapfilePath},
	}
	for _, step := range steps {
		cmd := exec.CommandContext(ctx, step[0], step[1:]...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("%s: %w (%s)", step[0], err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}

// DropCaches syncs and asks the kernel to drop page caches. Needs
// root; callers treat failure as best-effort.
func (l *LinuxMemory) DropCaches(ctx context.Context) error {
	if err := exec.CommandContext(ctx, "sync").Run(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := os.WriteFile("/proc/sys/vm/drop_caches", []byte("3\n"), 0o644); err != nil {
		return fmt.Errorf("drop_caches: %w", err)
	}
	return nil
}
