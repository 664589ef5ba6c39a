package metrics

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// GPUReader reads one GPU snapshot. The production reader shells out to
// nvidia-smi; tests substitute a fake.
type GPUReader interface {
	ReadGPUMetrics(ctx context.Context) (GPUMetrics, error)
}

// NvidiaSMIReader reads GPU metrics via the nvidia-smi CLI.
type NvidiaSMIReader struct {
	// Path to the nvidia-smi binary. Empty means "nvidia-smi" on PATH.
	Path string
}

// ReadGPUMetrics queries nvidia-smi in CSV mode and parses the first GPU.
func (r *NvidiaSMIReader) ReadGPUMetrics(ctx context.Context) (GPUMetrics, error) {
	path := r.Path
	if path == "" {
		path = "nvidia-smi"
	}

	cmd := exec.CommandContext(ctx, path,
		"--query-gpu=utilization.gpu,temperature.gpu,memory.total,memory.used,memory.free",
		"--format=csv,noheader,nounits")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return GPUMetrics{}, fmt.Errorf("nvidia-smi failed: %w", err)
	}
	return parseNvidiaSMIOutput(out.String())
}

// parseNvidiaSMIOutput parses the first row of nvidia-smi CSV output.
// Memory values arrive in MiB and are converted to bytes.
func parseNvidiaSMIOutput(output string) (GPUMetrics, error) {
	reader := csv.NewReader(strings.NewReader(output))
	reader.TrimLeadingSpace = true
	record, err := reader.Read()
	if err != nil {
		return GPUMetrics{}, fmt.Errorf("failed to parse nvidia-smi output: %w", err)
	}
	if len(record) < 5 {
		return GPUMetrics{}, fmt.Errorf("unexpected nvidia-smi output: %q", output)
	}

	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			return GPUMetrics{}, fmt.Errorf("unexpected nvidia-smi field %q: %w", record[i], err)
		}
		fields[i] = v
	}

	const mib = 1024 * 1024
	return GPUMetrics{
		Utilization: fields[0],
		Temperature: fields[1],
		MemoryTotal: int64(fields[2]) * mib,
		MemoryUsed:  int64(fields[3]) * mib,
		MemoryFree:  int64(fields[4]) * mib,
	}, nil
}

// GPUCollector periodically samples GPU metrics into a Store. When the GPU
// is unavailable (no driver, no device) the collector marks itself
// unavailable and keeps retrying at the normal interval.
type GPUCollector struct {
	store    *Store
	reader   GPUReader
	interval time.Duration

	mu        sync.Mutex
	available bool
	lastError error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGPUCollector creates a collector sampling into store every interval.
// Intervals below one second are raised to five seconds. reader may be nil,
// in which case nvidia-smi from PATH is used.
func NewGPUCollector(store *Store, reader GPUReader, interval time.Duration) *GPUCollector {
	if interval < time.Second {
		interval = 5 * time.Second
	}
	if reader == nil {
		reader = &NvidiaSMIReader{}
	}
	return &GPUCollector{
		store:    store,
		reader:   reader,
		interval: interval,
	}
}

// Start begins background collection. The first sample is taken
// immediately so the stats endpoint is populated right away.
func (c *GPUCollector) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.sample(ctx)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sample(ctx)
			}
		}
	}()
}

// Stop halts collection and waits for the sampling goroutine to exit.
func (c *GPUCollector) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// Available reports whether the last sample succeeded.
func (c *GPUCollector) Available() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available, c.lastError
}

func (c *GPUCollector) sample(ctx context.Context) {
	sampleCtx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	gpu, err := c.reader.ReadGPUMetrics(sampleCtx)

	c.mu.Lock()
	c.available = err == nil
	c.lastError = err
	c.mu.Unlock()

	if err == nil {
		c.store.UpdateGPU(gpu)
	}
}
