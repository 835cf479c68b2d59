package build

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aeliadev/cazan/internal/checksum"
	"github.com/aeliadev/cazan/internal/config"
	"github.com/aeliadev/cazan/internal/discovery"
	"github.com/aeliadev/cazan/internal/geometry"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

// fakePipeline returns one triangle per asset whose x coordinate encodes the
// file size, after an optional random delay.
type fakePipeline struct {
	mu      sync.Mutex
	rng     *rand.Rand
	maxWait time.Duration
	fail    map[string]error
	block   map[string]bool

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *fakePipeline) Process(ctx context.Context, path string, epsilon float64) ([]geometry.Triangle, error) {
	p.calls.Add(1)
	cur := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.peak.Load()
		if cur <= old || p.peak.CompareAndSwap(old, cur) {
			break
		}
	}

	base := filepath.Base(path)
	if p.block[base] {
		// Ignores ctx on purpose.
		time.Sleep(time.Second)
	}
	if p.maxWait > 0 {
		p.mu.Lock()
		d := time.Duration(p.rng.Int63n(int64(p.maxWait)))
		p.mu.Unlock()
		time.Sleep(d)
	}
	if err := p.fail[base]; err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	x := float64(info.Size())
	return []geometry.Triangle{{{X: x, Y: 0}, {X: x + epsilon, Y: 0}, {X: x, Y: 1}}}, nil
}

// slotRecorder checks that a slot is never written by two assets at once.
type slotRecorder struct {
	t     *testing.T
	n     int
	mu    sync.Mutex
	owner map[int]string
	log   map[int][]string
}

func newSlotRecorder(t *testing.T, n int) *slotRecorder {
	return &slotRecorder{t: t, n: n, owner: map[int]string{}, log: map[int][]string{}}
}

func (r *slotRecorder) Slots() int { return r.n }

func (r *slotRecorder) Write(slot int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, busy := r.owner[slot]; busy {
		r.t.Errorf("slot %d written by %q while owned by %q", slot, text, cur)
	}
	r.owner[slot] = text
	r.log[slot] = append(r.log[slot], text)
}

func (r *slotRecorder) Rewrite(slot int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.owner[slot]; !busy {
		r.t.Errorf("slot %d rewritten with %q without a start message", slot, text)
	}
	delete(r.owner, slot)
	r.log[slot] = append(r.log[slot], text)
}

// makeAssets writes files named a0.png, a1.png... with distinct sizes.
func makeAssets(t *testing.T, n int) []discovery.Asset {
	t.Helper()
	dir := t.TempDir()
	assets := make([]discovery.Asset, n)
	for i := range assets {
		name := fmt.Sprintf("a%02d.png", i)
		abs := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(abs, make([]byte, i+1), 0o644))
		assets[i] = discovery.Asset{Path: "assets/" + name, Abs: abs, Ext: ".png"}
	}
	return assets
}

func TestRun_AllBuilt(t *testing.T) {
	assets := makeAssets(t, 5)
	o := NewOrchestrator(&fakePipeline{}, Options{Workers: 3, Epsilon: 2})

	res, err := o.Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Built)
	assert.Equal(t, 0, res.Failed)
	require.Len(t, res.Artifacts, 5)

	for i, oc := range res.Outcomes {
		assert.Equal(t, assets[i].Path, oc.Asset.Path, "outcomes keep discovery order")
		sum, err := checksum.File(assets[i].Abs)
		require.NoError(t, err)
		assert.Equal(t, sum.String(), oc.Key)
		assert.Equal(t, float64(i+1), res.Artifacts[oc.Key][0][0].X)
		assert.Equal(t, float64(i+3), res.Artifacts[oc.Key][0][1].X, "epsilon reaches the pipeline")
	}
}

func TestRun_Empty(t *testing.T) {
	res, err := NewOrchestrator(&fakePipeline{}, Options{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Artifacts)
	assert.Empty(t, res.Outcomes)
}

func TestRun_MergeIndependentOfCompletionOrder(t *testing.T) {
	assets := makeAssets(t, 12)

	var first map[string][]geometry.Triangle
	for seed := int64(1); seed <= 5; seed++ {
		p := &fakePipeline{rng: rand.New(rand.NewSource(seed)), maxWait: 5 * time.Millisecond}
		res, err := NewOrchestrator(p, Options{Workers: 6}).Run(context.Background(), assets)
		require.NoError(t, err)
		if first == nil {
			first = res.Artifacts
			continue
		}
		assert.Equal(t, first, map[string][]geometry.Triangle(res.Artifacts), "seed %d", seed)
	}
}

func TestRun_FailureIsolated(t *testing.T) {
	assets := makeAssets(t, 4)
	boom := errors.New("not a png")
	p := &fakePipeline{fail: map[string]error{"a01.png": boom}}

	res, err := NewOrchestrator(p, Options{Workers: 2}).Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Built)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, res.Artifacts, 3)

	failures := res.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "assets/a01.png", failures[0].Asset.Path)
	assert.True(t, errors.Is(failures[0].Err, boom))

	var fe *FileError
	require.True(t, errors.As(failures[0].Err, &fe))
	assert.Equal(t, "assets/a01.png", fe.Path)
}

func TestRun_MissingFileFails(t *testing.T) {
	assets := makeAssets(t, 2)
	require.NoError(t, os.Remove(assets[0].Abs))

	res, err := NewOrchestrator(&fakePipeline{}, Options{Workers: 2}).Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, errors.Is(res.Outcomes[0].Err, checksum.ErrIO))
}

func TestRun_Timeout(t *testing.T) {
	assets := makeAssets(t, 3)
	p := &fakePipeline{block: map[string]bool{"a00.png": true}}

	start := time.Now()
	res, err := NewOrchestrator(p, Options{Workers: 3, FileTimeout: 50 * time.Millisecond}).Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond, "timeout should not wait for the stuck pipeline")

	assert.Equal(t, 2, res.Built)
	require.Equal(t, 1, res.Failed)
	assert.True(t, errors.Is(res.Outcomes[0].Err, ErrTimeout), "got %v", res.Outcomes[0].Err)
}

func TestRun_Cancelled(t *testing.T) {
	assets := makeAssets(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewOrchestrator(&fakePipeline{}, Options{Workers: 2}).Run(ctx, assets)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, res)
	assert.Equal(t, 4, res.Failed)
	for _, oc := range res.Outcomes {
		assert.True(t, errors.Is(oc.Err, context.Canceled))
	}
}

func TestRun_KeyCollisions(t *testing.T) {
	dir := t.TempDir()
	var assets []discovery.Asset
	for _, name := range []string{"a.png", "b.png"} {
		abs := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(abs, []byte("same bytes"), 0o644))
		assets = append(assets, discovery.Asset{Path: name, Abs: abs, Ext: ".png"})
	}

	res, err := NewOrchestrator(&fakePipeline{}, Options{Workers: 2}).Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Len(t, res.Artifacts, 1)
	require.Len(t, res.Collisions, 1)
	assert.Equal(t, Collision{Key: res.Outcomes[0].Key, Kept: "b.png", Dropped: "a.png"}, res.Collisions[0])

	res, err = NewOrchestrator(&fakePipeline{}, Options{Workers: 2, KeyMode: config.KeyPath}).Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Len(t, res.Artifacts, 2)
	assert.Contains(t, res.Artifacts, "a.png")
	assert.Empty(t, res.Collisions)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]geometry.Triangle
}

func (c *memCache) key(d checksum.Digest, eps float64) string { return fmt.Sprintf("%s@%g", d, eps) }

func (c *memCache) Get(_ context.Context, d checksum.Digest, eps float64) ([]geometry.Triangle, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[c.key(d, eps)]
	return t, ok, nil
}

func (c *memCache) Put(_ context.Context, d checksum.Digest, eps float64, t []geometry.Triangle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(d, eps)] = t
	return nil
}

func TestRun_Cache(t *testing.T) {
	assets := makeAssets(t, 3)
	cache := &memCache{entries: map[string][]geometry.Triangle{}}
	p := &fakePipeline{}

	first, err := NewOrchestrator(p, Options{Workers: 2, Cache: cache}).Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Built)
	assert.Equal(t, int32(3), p.calls.Load())

	second, err := NewOrchestrator(p, Options{Workers: 2, Cache: cache}).Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Cached)
	assert.Equal(t, int32(3), p.calls.Load(), "cached assets must not reach the pipeline")
	assert.Equal(t, first.Artifacts, second.Artifacts)

	// A new epsilon misses.
	third, err := NewOrchestrator(p, Options{Workers: 2, Cache: cache, Epsilon: 1}).Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Equal(t, 3, third.Built)
}

func TestRun_SlotsExclusiveAndBounded(t *testing.T) {
	assets := makeAssets(t, 20)
	rec := newSlotRecorder(t, 3)
	p := &fakePipeline{rng: rand.New(rand.NewSource(7)), maxWait: 3 * time.Millisecond}

	res, err := NewOrchestrator(p, Options{Workers: 8, Reporter: rec}).Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Built)
	assert.LessOrEqual(t, p.peak.Load(), int32(3), "workers are capped by the slot count")

	for i, oc := range res.Outcomes {
		assert.Equal(t, i%3, oc.Slot)
	}
	for slot, lines := range rec.log {
		assert.Equal(t, 0, len(lines)%2, "slot %d has an unfinished message", slot)
		for j := 0; j < len(lines); j += 2 {
			assert.Contains(t, lines[j], "Parsing")
			assert.Contains(t, lines[j+1], "Parsed")
		}
	}
	assert.Empty(t, rec.owner)
}

func TestRun_ReporterMessages(t *testing.T) {
	assets := makeAssets(t, 1)
	rec := newSlotRecorder(t, 1)

	_, err := NewOrchestrator(&fakePipeline{}, Options{Reporter: rec}).Run(context.Background(), assets)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Parsing assets/a00.png",
		"Parsed `a00.png` to 1 triangles",
	}, rec.log[0])
}
