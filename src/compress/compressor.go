// Package compress scales and re-encodes screenshots. Compressor never fails:
// when anything goes wrong it hands back the bytes it was given.
package compress

import (
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"snapsqueeze/src/errs"
	"snapsqueeze/src/memory"
	"snapsqueeze/src/stats"
)

const (
	DefaultMaxSize              = 50 * memory.MB
	DefaultMemoryFloor          = 100 * memory.MB
	DefaultOptimizedThreshold   = 5 * memory.MB
	DefaultProgressiveThreshold = 10 * memory.MB
	DefaultLowMemoryThreshold   = 500 * memory.MB
	ParallelScaleThreshold      = 0.25

	// DefaultMaxPixels rejects decompression bombs: a few bytes of header
	// can claim dimensions whose pixel buffer cannot be allocated.
	DefaultMaxPixels int64 = 89_478_485
)

// Strategy names the path that produced a Result.
type Strategy string

const (
	StrategyStandard        Strategy = "standard"
	StrategyProgressive     Strategy = "progressive"
	StrategyMemoryEfficient Strategy = "memory-efficient"
	StrategyOriginal        Strategy = "original"
)

// Result describes one compression.
type Result struct {
	Data           []byte
	OriginalSize   int
	CompressedSize int
	// Ratio is the size reduction in percent. Negative when output grew.
	Ratio             float64
	Format            Format
	Strategy          Strategy
	Width             int
	Height            int
	UsedOriginal      bool
	ParallelCandidate bool
	Elapsed           time.Duration
}

// Info describes what a request would do without compressing.
type Info struct {
	OriginalSize  int
	Width         int
	Height        int
	TargetWidth   int
	TargetHeight  int
	Scale         float64
	Format        Format
	SourceFormat  string
	Mode          string
	EstimatedPath Strategy
}

// Options tune a Compressor. Zero values select the defaults.
type Options struct {
	Logger   *zap.Logger
	Probe    memory.Probe
	Stats    *stats.Performance
	Reporter Reporter
	Reclaim  func()

	MaxInputSize         int
	MaxOutputSize        int
	MemoryFloor          uint64
	OptimizedThreshold   int
	ProgressiveThreshold int
	LowMemoryThreshold   uint64
	MaxPixels            int64
}

type Compressor struct {
	opts     Options
	log      *zap.Logger
	probe    memory.Probe
	stats    *stats.Performance
	reclaim  func()
	pipeline CompressFunc
}

func New(opts Options) *Compressor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Probe == nil {
		opts.Probe = memory.NewSystemProbe()
	}
	if opts.Stats == nil {
		opts.Stats = stats.NewPerformance()
	}
	if opts.Reclaim == nil {
		opts.Reclaim = memory.Reclaim
	}
	if opts.MaxInputSize <= 0 {
		opts.MaxInputSize = DefaultMaxSize
	}
	if opts.MaxOutputSize <= 0 {
		opts.MaxOutputSize = DefaultMaxSize
	}
	if opts.MemoryFloor == 0 {
		opts.MemoryFloor = DefaultMemoryFloor
	}
	if opts.OptimizedThreshold <= 0 {
		opts.OptimizedThreshold = DefaultOptimizedThreshold
	}
	if opts.ProgressiveThreshold <= 0 {
		opts.ProgressiveThreshold = DefaultProgressiveThreshold
	}
	if opts.LowMemoryThreshold == 0 {
		opts.LowMemoryThreshold = DefaultLowMemoryThreshold
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	c := &Compressor{
		opts:    opts,
		log:     opts.Logger.Named("compress"),
		probe:   opts.Probe,
		stats:   opts.Stats,
		reclaim: opts.Reclaim,
	}
	c.pipeline = Chain(c.compress, WithRecovery(opts.Reporter, c.log), WithPanicGuard())
	return c
}

// Stats returns the shared performance counters.
func (c *Compressor) Stats() *stats.Performance { return c.stats }

// Compress returns the compressed bytes, or data itself on any failure.
func (c *Compressor) Compress(data []byte, req Request) []byte {
	return c.CompressResult(data, req).Data
}

// CompressResult is Compress with the full result. It always returns bytes.
func (c *Compressor) CompressResult(data []byte, req Request) (res Result) {
	start := time.Now()
	buf := NewImageBuffer(data)

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("compression panicked", zap.Any("panic", r))
			res = c.original(buf)
		}
		res.Elapsed = time.Since(start)
		c.record(res)
	}()

	out, err := c.pipeline(buf, req)
	if err != nil {
		c.log.Warn("returning original image",
			zap.String("request", req.String()),
			zap.Int("input_bytes", len(data)),
			zap.Error(err))
		return c.original(buf)
	}
	return out
}

func (c *Compressor) original(buf *ImageBuffer) Result {
	res := Result{
		Data:           buf.Bytes(),
		OriginalSize:   buf.Len(),
		CompressedSize: buf.Len(),
		Strategy:       StrategyOriginal,
		UsedOriginal:   true,
	}
	if buf.Len() > 0 {
		if f, err := ParseFormat(buf.SourceFormat()); err == nil {
			res.Format = f
		}
		res.Width, res.Height, _ = buf.Dimensions()
	}
	return res
}

func (c *Compressor) record(res Result) {
	mem, err := c.probe.UsedPercent()
	if err != nil {
		mem = -1
	}
	c.stats.Record(res.Elapsed, res.OriginalSize, res.CompressedSize, mem)
	if res.UsedOriginal {
		return
	}
	if res.Strategy != StrategyStandard {
		c.stats.MarkOptimization()
	}
	if res.ParallelCandidate {
		c.stats.MarkParallelCandidate()
	}
}

// Info reports the dimensions and path a request would take.
func (c *Compressor) Info(data []byte, req Request) (Info, error) {
	if !req.Valid() {
		return Info{}, ErrInvalidRequest
	}
	buf := NewImageBuffer(data)
	w, h, err := buf.Dimensions()
	if err != nil {
		return Info{}, errs.New(errs.KindImageLoad, "decode config", err)
	}
	tw, th := targetSize(w, h, req.Scale())
	path := StrategyStandard
	if buf.Len() > c.opts.OptimizedThreshold {
		path = c.selectStrategy(buf.Len())
	}
	return Info{
		OriginalSize:  buf.Len(),
		Width:         w,
		Height:        h,
		TargetWidth:   tw,
		TargetHeight:  th,
		Scale:         req.Scale(),
		Format:        req.Format(),
		SourceFormat:  buf.SourceFormat(),
		Mode:          buf.Mode(),
		EstimatedPath: path,
	}, nil
}

// compress is the core step; every failure comes back as an error.
func (c *Compressor) compress(buf *ImageBuffer, req Request) (Result, error) {
	if buf.Len() == 0 {
		return Result{}, errs.ErrEmptyInput
	}
	if !req.Valid() {
		return Result{}, ErrInvalidRequest
	}
	if buf.Len() > c.opts.MaxInputSize {
		return Result{}, errs.New(errs.KindImageTooLarge, "validate",
			fmt.Errorf("%d bytes over %d byte cap: %w", buf.Len(), c.opts.MaxInputSize, errs.ErrTooLarge))
	}
	avail, probeErr := c.probe.Available()
	if probeErr != nil {
		c.log.Warn("memory probe failed", zap.Error(probeErr))
	} else if avail < c.opts.MemoryFloor {
		return Result{}, errs.New(errs.KindOutOfMemory, "validate",
			fmt.Errorf("%d MB available: %w", avail/memory.MB, errs.ErrLowMemory))
	}
	// The decoder allocates the full pixel buffer up front and a failed
	// allocation is fatal, so dimensions are checked before decoding.
	w, h, err := buf.Dimensions()
	if err != nil {
		return Result{}, errs.New(errs.KindImageLoad, "decode config", err)
	}
	if err := c.checkPixels(w, h, req, avail, probeErr == nil); err != nil {
		return Result{}, err
	}

	strategy, parallel := StrategyStandard, false
	if buf.Len() > c.opts.OptimizedThreshold {
		strategy = c.selectStrategy(buf.Len())
		parallel = req.Scale() < ParallelScaleThreshold
		if parallel {
			c.log.Info("heavy downscale, parallel candidate", zap.Float64("scale", req.Scale()))
		}
	}

	var img image.Image
	e := effortStandard
	switch strategy {
	case StrategyProgressive:
		img, err = c.progressive(buf, req)
	case StrategyMemoryEfficient:
		img, err = c.memoryEfficient(buf, req)
		e = effortLight
	default:
		img, err = c.standard(buf, req)
	}
	if err != nil {
		return Result{}, err
	}

	format := req.Format()
	out, err := encode(img, format, e)
	if err != nil {
		return Result{}, errs.New(errs.KindImageCompress, "encode", err)
	}
	if len(out) > c.opts.MaxOutputSize {
		out, format, err = c.shrink(img, format, len(out))
		if err != nil {
			return Result{}, errs.New(errs.KindImageCompress, "encode fallback", err)
		}
	}

	b := img.Bounds()
	res := Result{
		Data:              out,
		OriginalSize:      buf.Len(),
		CompressedSize:    len(out),
		Format:            format,
		Strategy:          strategy,
		Width:             b.Dx(),
		Height:            b.Dy(),
		ParallelCandidate: parallel,
	}
	res.Ratio = (1 - float64(res.CompressedSize)/float64(res.OriginalSize)) * 100
	c.log.Debug("compressed",
		zap.String("strategy", string(strategy)),
		zap.String("format", string(format)),
		zap.Int("original_bytes", res.OriginalSize),
		zap.Int("compressed_bytes", res.CompressedSize),
		zap.Float64("ratio", res.Ratio))
	return res, nil
}

// selectStrategy picks the optimized path for a large input.
func (c *Compressor) selectStrategy(size int) Strategy {
	if size > c.opts.ProgressiveThreshold {
		return StrategyProgressive
	}
	avail, err := c.probe.Available()
	if err == nil && avail < c.opts.LowMemoryThreshold {
		return StrategyMemoryEfficient
	}
	return StrategyStandard
}

// shrink re-encodes an oversized result, ending with a low-quality JPEG.
func (c *Compressor) shrink(img image.Image, f Format, size int) ([]byte, Format, error) {
	c.log.Warn("encoded image over size cap, re-encoding aggressively",
		zap.String("format", string(f)), zap.Int("bytes", size))
	out, err := encode(img, f, effortAggressive)
	if err == nil && len(out) <= c.opts.MaxOutputSize {
		return out, f, nil
	}
	c.log.Warn("aggressive encode insufficient, forcing JPEG", zap.Int("quality", fallbackJPEGQuality))
	out, err = encodeJPEG(flatten(img), fallbackJPEGQuality)
	if err != nil {
		return nil, f, err
	}
	return out, JPEG, nil
}

// checkPixels rejects images whose decoded and resized buffers would not
// fit the pixel cap or, when known, the available memory.
func (c *Compressor) checkPixels(w, h int, req Request, avail uint64, haveAvail bool) error {
	pixels := int64(w) * int64(h)
	if pixels > c.opts.MaxPixels {
		return errs.New(errs.KindImageTooLarge, "validate",
			fmt.Errorf("%dx%d over %d pixel cap: %w", w, h, c.opts.MaxPixels, errs.ErrTooLarge))
	}
	if !haveAvail {
		return nil
	}
	tw, th := targetSize(w, h, req.Scale())
	need := uint64(pixels+int64(tw)*int64(th)) * 4
	if need > avail {
		return errs.New(errs.KindImageTooLarge, "validate",
			fmt.Errorf("decoding %dx%d needs %d MB, %d MB available: %w",
				w, h, need/memory.MB, avail/memory.MB, errs.ErrTooLarge))
	}
	return nil
}

func (c *Compressor) decode(buf *ImageBuffer) (image.Image, error) {
	img, err := buf.Decode()
	if err != nil {
		return nil, errs.New(errs.KindImageLoad, "decode", err)
	}
	return img, nil
}

func (c *Compressor) standard(buf *ImageBuffer, req Request) (image.Image, error) {
	img, err := c.decode(buf)
	if err != nil {
		return nil, err
	}
	img = prepare(img, req.Format())
	b := img.Bounds()
	w, h := targetSize(b.Dx(), b.Dy(), req.Scale())
	return resize(img, w, h, draw.CatmullRom), nil
}

// progressive halves toward the target with a fast filter and finishes with
// Catmull-Rom, reclaiming memory after each step.
func (c *Compressor) progressive(buf *ImageBuffer, req Request) (image.Image, error) {
	src, err := c.decode(buf)
	if err != nil {
		return nil, err
	}
	ob := src.Bounds()
	target := req.Scale()
	steps := progressiveScales(target)

	img := src
	src = nil
	for _, s := range steps {
		w, h := targetSize(ob.Dx(), ob.Dy(), s)
		q := draw.Interpolator(draw.ApproxBiLinear)
		if s == target {
			q = draw.CatmullRom
		}
		img = resize(img, w, h, q)
		c.reclaim()
	}
	c.log.Info("progressive scaling applied", zap.Int("steps", len(steps)))
	return prepare(img, req.Format()), nil
}

// progressiveScales lists the scale after each step, ending at target.
func progressiveScales(target float64) []float64 {
	var steps []float64
	for cur := 1.0; cur > target; {
		next := cur * 0.5
		if next < target {
			next = target
		}
		steps = append(steps, next)
		cur = next
	}
	return steps
}

// memoryEfficient converts the color mode before resizing and drops each
// intermediate image as soon as it is no longer needed.
func (c *Compressor) memoryEfficient(buf *ImageBuffer, req Request) (image.Image, error) {
	src, err := c.decode(buf)
	if err != nil {
		return nil, err
	}
	work := prepare(src, req.Format())
	src = nil
	c.reclaim()

	b := work.Bounds()
	w, h := targetSize(b.Dx(), b.Dy(), req.Scale())
	out := resize(work, w, h, draw.CatmullRom)
	work = nil
	c.reclaim()
	return out, nil
}
