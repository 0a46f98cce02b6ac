package compress

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapsqueeze/src/errs"
	"snapsqueeze/src/memory"
)

type fakeReporter struct {
	mu       sync.Mutex
	kinds    []errs.Kind
	recovers bool
}

func (f *fakeReporter) Handle(err error, source string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, errs.Classify(err))
	return f.recovers
}

func (f *fakeReporter) reported() []errs.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]errs.Kind(nil), f.kinds...)
}

func plentyOfMemory() memory.StaticProbe {
	return memory.StaticProbe{AvailableBytes: 8 << 30, Percent: 40}
}

func newTestCompressor(opts Options) (*Compressor, *fakeReporter) {
	r := &fakeReporter{}
	if opts.Probe == nil {
		opts.Probe = plentyOfMemory()
	}
	if opts.Reporter == nil {
		opts.Reporter = r
	}
	opts.Reclaim = func() {}
	return New(opts), r
}

func makePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func makeNoisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeConfig(t *testing.T, data []byte) (image.Config, string) {
	t.Helper()
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg, name
}

var formatNames = map[Format]string{PNG: "png", JPEG: "jpeg", WEBP: "webp"}

func TestCompressProducesTargetDimensions(t *testing.T) {
	c, _ := newTestCompressor(Options{})
	tests := []struct {
		w, h   int
		scale  float64
		ww, wh int
	}{
		{200, 200, 0.5, 100, 100},
		{1, 1, 0.5, 1, 1},
		{37, 91, 0.33, 12, 30},
		{10, 3, 0.1, 1, 1},
		{64, 48, 1.0, 64, 48},
	}
	for _, f := range Formats {
		for _, tt := range tests {
			src := makePNG(t, tt.w, tt.h, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
			res := c.CompressResult(src, MustRequest(tt.scale, f))

			require.False(t, res.UsedOriginal, "%s %dx%d", f, tt.w, tt.h)
			require.NotEmpty(t, res.Data)
			cfg, name := decodeConfig(t, res.Data)
			assert.Equal(t, formatNames[f], name)
			assert.Equal(t, tt.ww, cfg.Width, "%s %dx%d@%v", f, tt.w, tt.h, tt.scale)
			assert.Equal(t, tt.wh, cfg.Height, "%s %dx%d@%v", f, tt.w, tt.h, tt.scale)
			assert.Equal(t, f, res.Format)
			assert.Equal(t, StrategyStandard, res.Strategy)
		}
	}
}

func TestMalformedInputReturnedUnchanged(t *testing.T) {
	c, r := newTestCompressor(Options{})
	r.recovers = true

	garbage := []byte("definitely not an image")
	res := c.CompressResult(garbage, MustRequest(0.5, PNG))
	assert.True(t, res.UsedOriginal)
	assert.Equal(t, garbage, res.Data)
	assert.Equal(t, []errs.Kind{errs.KindImageLoad}, r.reported())

	truncated := makePNG(t, 20, 20, color.White)[:30]
	assert.Equal(t, truncated, c.Compress(truncated, MustRequest(0.5, JPEG)))
}

func TestEmptyInputReturnedWithoutReport(t *testing.T) {
	c, r := newTestCompressor(Options{})
	assert.Equal(t, []byte{}, c.Compress([]byte{}, MustRequest(0.5, PNG)))
	assert.Nil(t, c.Compress(nil, MustRequest(0.5, PNG)))
	assert.Empty(t, r.reported())
}

func TestZeroRequestReturnsOriginal(t *testing.T) {
	c, r := newTestCompressor(Options{})
	src := makePNG(t, 4, 4, color.White)
	assert.Equal(t, src, c.Compress(src, Request{}))
	assert.Empty(t, r.reported())
}

func TestScaleOneNeverGrows(t *testing.T) {
	c, _ := newTestCompressor(Options{})
	first := c.Compress(makeNoisePNG(t, 50, 40), MustRequest(0.7, JPEG))
	firstCfg, _ := decodeConfig(t, first)

	for _, f := range Formats {
		again := c.Compress(first, MustRequest(1.0, f))
		cfg, _ := decodeConfig(t, again)
		assert.LessOrEqual(t, cfg.Width, firstCfg.Width)
		assert.LessOrEqual(t, cfg.Height, firstCfg.Height)
	}
}

func TestOversizeInputClassifiedTooLarge(t *testing.T) {
	c, r := newTestCompressor(Options{})
	huge := make([]byte, DefaultMaxSize+1)
	out := c.Compress(huge, MustRequest(0.5, PNG))
	assert.Len(t, out, DefaultMaxSize+1)
	assert.True(t, &out[0] == &huge[0], "original slice must be returned")
	assert.Equal(t, []errs.Kind{errs.KindImageTooLarge}, r.reported())

	small, r2 := newTestCompressor(Options{MaxInputSize: 1024})
	src := makeNoisePNG(t, 64, 64)
	require.Greater(t, len(src), 1024)
	assert.Equal(t, src, small.Compress(src, MustRequest(0.5, PNG)))
	assert.Equal(t, []errs.Kind{errs.KindImageTooLarge}, r2.reported())
}

// headerOnlyPNG is a valid, tiny PNG stream whose IHDR claims w x h RGBA
// pixels. Decoding it fully would allocate w*h*4 bytes.
func headerOnlyPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var out bytes.Buffer
	out.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	chunk := func(typ string, data []byte) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(data)))
		out.Write(n[:])
		body := append([]byte(typ), data...)
		out.Write(body)
		binary.BigEndian.PutUint32(n[:], crc32.ChecksumIEEE(body))
		out.Write(n[:])
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA
	chunk("IHDR", ihdr)

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	_, err := zw.Write(make([]byte, 1024))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	chunk("IDAT", idat.Bytes())
	chunk("IEND", nil)
	return out.Bytes()
}

func TestDecompressionBombReturnedUnchanged(t *testing.T) {
	c, r := newTestCompressor(Options{})
	bomb := headerOnlyPNG(t, 100000, 100000)
	require.Less(t, len(bomb), 200)

	res := c.CompressResult(bomb, MustRequest(0.5, PNG))
	assert.True(t, res.UsedOriginal)
	assert.Equal(t, bomb, res.Data)
	assert.Equal(t, []errs.Kind{errs.KindImageTooLarge}, r.reported())

	small, r2 := newTestCompressor(Options{MaxPixels: 100})
	src := makePNG(t, 20, 20, color.White)
	assert.Equal(t, src, small.Compress(src, MustRequest(0.5, PNG)))
	assert.Equal(t, []errs.Kind{errs.KindImageTooLarge}, r2.reported())
}

func TestPixelBufferOverAvailableMemoryRejected(t *testing.T) {
	// 8000x8000 is under the pixel cap but needs 256 MB decoded.
	c, r := newTestCompressor(Options{Probe: memory.StaticProbe{AvailableBytes: 200 * memory.MB, Percent: 90}})
	bomb := headerOnlyPNG(t, 8000, 8000)
	assert.Equal(t, bomb, c.Compress(bomb, MustRequest(0.5, PNG)))
	assert.Equal(t, []errs.Kind{errs.KindImageTooLarge}, r.reported())
}

func TestLowMemoryClassifiedOutOfMemory(t *testing.T) {
	c, r := newTestCompressor(Options{Probe: memory.StaticProbe{AvailableBytes: 50 * memory.MB, Percent: 97}})
	src := makePNG(t, 40, 40, color.White)
	assert.Equal(t, src, c.Compress(src, MustRequest(0.5, PNG)))
	assert.Equal(t, []errs.Kind{errs.KindOutOfMemory}, r.reported())
}

func TestProbeFailureDoesNotBlockCompression(t *testing.T) {
	c, _ := newTestCompressor(Options{Probe: memory.StaticProbe{Err: errors.New("no stats")}})
	res := c.CompressResult(makePNG(t, 20, 20, color.White), MustRequest(0.5, PNG))
	assert.False(t, res.UsedOriginal)
	assert.Empty(t, c.Stats().Snapshot().MemoryUsage)
}

func TestStatsCountEveryInvocation(t *testing.T) {
	c, _ := newTestCompressor(Options{})
	src := makePNG(t, 30, 30, color.White)
	const n = 7
	for i := 0; i < n; i++ {
		c.Compress(src, MustRequest(0.5, PNG))
	}
	c.Compress([]byte("junk"), MustRequest(0.5, PNG))

	snap := c.Stats().Snapshot()
	assert.Equal(t, n+1, snap.TotalOperations)
	assert.Len(t, snap.MemoryUsage, n+1)
	assert.Equal(t, 40.0, snap.MemoryUsage[0])
	assert.Zero(t, snap.OptimizationsApplied)
}

func TestProgressivePath(t *testing.T) {
	c, _ := newTestCompressor(Options{OptimizedThreshold: 1, ProgressiveThreshold: 1})
	src := makeNoisePNG(t, 120, 80)

	res := c.CompressResult(src, MustRequest(0.2, PNG))
	require.False(t, res.UsedOriginal)
	assert.Equal(t, StrategyProgressive, res.Strategy)
	assert.True(t, res.ParallelCandidate)
	cfg, _ := decodeConfig(t, res.Data)
	assert.Equal(t, 24, cfg.Width)
	assert.Equal(t, 16, cfg.Height)

	snap := c.Stats().Snapshot()
	assert.Equal(t, 1, snap.OptimizationsApplied)
	assert.Equal(t, 1, snap.ParallelCandidates)
}

func TestProgressiveScaleOneKeepsDimensions(t *testing.T) {
	c, _ := newTestCompressor(Options{OptimizedThreshold: 1, ProgressiveThreshold: 1})
	res := c.CompressResult(makeNoisePNG(t, 33, 17), MustRequest(1.0, JPEG))
	require.False(t, res.UsedOriginal)
	cfg, name := decodeConfig(t, res.Data)
	assert.Equal(t, "jpeg", name)
	assert.Equal(t, 33, cfg.Width)
	assert.Equal(t, 17, cfg.Height)
}

func TestMemoryEfficientPath(t *testing.T) {
	c, _ := newTestCompressor(Options{
		Probe:                memory.StaticProbe{AvailableBytes: 300 * memory.MB, Percent: 90},
		OptimizedThreshold:   1,
		ProgressiveThreshold: math.MaxInt32,
	})
	res := c.CompressResult(makeNoisePNG(t, 100, 60), MustRequest(0.5, WEBP))
	require.False(t, res.UsedOriginal)
	assert.Equal(t, StrategyMemoryEfficient, res.Strategy)
	assert.False(t, res.ParallelCandidate)
	cfg, name := decodeConfig(t, res.Data)
	assert.Equal(t, "webp", name)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestOptimizedStandardPath(t *testing.T) {
	c, _ := newTestCompressor(Options{OptimizedThreshold: 1, ProgressiveThreshold: math.MaxInt32})
	res := c.CompressResult(makeNoisePNG(t, 40, 40), MustRequest(0.1, PNG))
	assert.Equal(t, StrategyStandard, res.Strategy)
	assert.True(t, res.ParallelCandidate)
	assert.Equal(t, 1, c.Stats().Snapshot().ParallelCandidates)
	assert.Zero(t, c.Stats().Snapshot().OptimizationsApplied)
}

func TestOversizeOutputFallsBackToJPEG(t *testing.T) {
	c, _ := newTestCompressor(Options{MaxOutputSize: 16})
	res := c.CompressResult(makeNoisePNG(t, 60, 60), MustRequest(0.5, PNG))
	require.False(t, res.UsedOriginal)
	assert.Equal(t, JPEG, res.Format)
	cfg, name := decodeConfig(t, res.Data)
	assert.Equal(t, "jpeg", name)
	assert.Equal(t, 30, cfg.Width)
}

func TestAggressiveEncodeWithinCapKeepsFormat(t *testing.T) {
	src := makePNG(t, 200, 200, color.NRGBA{R: 255, A: 255})
	plain, _ := newTestCompressor(Options{})
	standard := plain.CompressResult(src, MustRequest(1.0, PNG))
	require.False(t, standard.UsedOriginal)

	// A cap just below the default-level size leaves room for best compression.
	c, _ := newTestCompressor(Options{MaxOutputSize: standard.CompressedSize - 1})
	res := c.CompressResult(src, MustRequest(1.0, PNG))
	if res.Format == PNG {
		assert.Less(t, res.CompressedSize, standard.CompressedSize)
	} else {
		assert.Equal(t, JPEG, res.Format)
	}
}

func TestTransparencyFlattenedOntoWhite(t *testing.T) {
	c, _ := newTestCompressor(Options{})
	src := makePNG(t, 16, 16, color.NRGBA{})

	jpg := c.Compress(src, MustRequest(1.0, JPEG))
	img, _, err := image.Decode(bytes.NewReader(jpg))
	require.NoError(t, err)
	r, g, b, _ := img.At(8, 8).RGBA()
	assert.Greater(t, r>>8, uint32(245))
	assert.Greater(t, g>>8, uint32(245))
	assert.Greater(t, b>>8, uint32(245))

	pngOut := c.Compress(src, MustRequest(1.0, PNG))
	img, _, err = image.Decode(bytes.NewReader(pngOut))
	require.NoError(t, err)
	_, _, _, a := img.At(8, 8).RGBA()
	assert.Zero(t, a)
}

func TestRatio(t *testing.T) {
	c, _ := newTestCompressor(Options{})
	src := makeNoisePNG(t, 100, 100)
	res := c.CompressResult(src, MustRequest(0.25, JPEG))
	require.False(t, res.UsedOriginal)
	want := (1 - float64(len(res.Data))/float64(len(src))) * 100
	assert.InDelta(t, want, res.Ratio, 1e-9)
	assert.Equal(t, len(src), res.OriginalSize)
	assert.Equal(t, len(res.Data), res.CompressedSize)
}

func TestInfo(t *testing.T) {
	c, _ := newTestCompressor(Options{})
	info, err := c.Info(makePNG(t, 200, 100, color.White), MustRequest(0.5, WEBP))
	require.NoError(t, err)
	assert.Equal(t, 200, info.Width)
	assert.Equal(t, 100, info.Height)
	assert.Equal(t, 100, info.TargetWidth)
	assert.Equal(t, 50, info.TargetHeight)
	assert.Equal(t, "png", info.SourceFormat)
	assert.Equal(t, "RGBA", info.Mode)
	assert.Equal(t, StrategyStandard, info.EstimatedPath)

	_, err = c.Info([]byte("junk"), MustRequest(0.5, PNG))
	assert.True(t, errs.IsKind(err, errs.KindImageLoad))

	_, err = c.Info(nil, Request{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestProgressiveScales(t *testing.T) {
	assert.Equal(t, []float64{0.5, 0.25, 0.2}, progressiveScales(0.2))
	assert.Equal(t, []float64{0.5}, progressiveScales(0.5))
	assert.Equal(t, []float64{0.75}, progressiveScales(0.75))
	assert.Empty(t, progressiveScales(1.0))
}

func TestTargetSize(t *testing.T) {
	w, h := targetSize(3, 1000, 0.1)
	assert.Equal(t, 1, w)
	assert.Equal(t, 100, h)
}
