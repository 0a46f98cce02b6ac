package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"snapsqueeze/src/compress"
	"snapsqueeze/src/errs"
	"snapsqueeze/src/memory"
	"snapsqueeze/src/messages"
	"snapsqueeze/src/notification"
	"snapsqueeze/src/overlay"
	"snapsqueeze/src/session"
	"snapsqueeze/src/singleinstance"
	"snapsqueeze/src/worker"
)

// ErrBusy is reported to a trigger that arrives while a capture is running.
var ErrBusy = errors.New("busy, please retry")

const inboxSize = 16

// Submitter offloads compression. worker.Pool implements it.
type Submitter interface {
	Submit(data []byte, req compress.Request, cb worker.ResultCallback) bool
}

// Deps are the collaborators of the loop. Gate, Selector, Capture,
// Clipboard and Pool are required.
type Deps struct {
	Gate      session.PermissionGate
	Selector  overlay.Selector
	Capture   session.CaptureSource
	Clipboard session.ClipboardSink
	Pool      Submitter
	Reporter  compress.Reporter
	Notifier  notification.Notifier
	Server    singleinstance.Server
	Logger    *zap.Logger
	Request   compress.Request
	// OnState is called on the loop goroutine after every transition.
	OnState func(State)
	Reclaim func()
}

// Loop is the single-threaded capture orchestrator. Run owns all capture
// state; everything else talks to it by posting messages.
type Loop struct {
	deps    Deps
	log     *zap.Logger
	inbox   chan messages.Message
	state   atomic.Int32
	req     compress.Request
	current *capture
	ctx     context.Context
}

// capture is the in-flight sequence. The request is fixed when it starts.
type capture struct {
	trigger messages.TriggerCapture
	req     compress.Request
}

// New creates a loop. An invalid deps.Request falls back to 50% PNG.
func New(deps Deps) *Loop {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notification.Func(func(notification.Kind, string, string) {})
	}
	if deps.Reclaim == nil {
		deps.Reclaim = memory.Reclaim
	}
	req := deps.Request
	if !req.Valid() {
		req = compress.MustRequest(0.5, compress.PNG)
	}
	return &Loop{
		deps:  deps,
		log:   deps.Logger.Named("eventloop"),
		inbox: make(chan messages.Message, inboxSize),
		req:   req,
		ctx:   context.Background(),
	}
}

// State returns the current state. Safe from any goroutine.
func (l *Loop) State() State { return State(l.state.Load()) }

// TriggerCapture asks for a new capture. It never blocks; a trigger that
// arrives while another capture runs is dropped.
func (l *Loop) TriggerCapture(source string) bool {
	return l.Trigger(messages.TriggerCapture{Source: source})
}

// Trigger posts t. When the inbox is full the trigger is dropped and t.Done
// receives ErrBusy on the calling goroutine.
func (l *Loop) Trigger(t messages.TriggerCapture) bool {
	if l.Post(t) {
		return true
	}
	if t.Done != nil {
		t.Done(messages.Outcome{Err: ErrBusy})
	}
	return false
}

// Post delivers msg without blocking. Returns false when the inbox is full.
func (l *Loop) Post(msg messages.Message) bool {
	select {
	case l.inbox <- msg:
		return true
	default:
		l.log.Warn("inbox full, dropping message", zap.String("type", msg.Type()))
		return false
	}
}

// send delivers a message that must not be lost, such as the result of a
// selection or a compression. It gives up only when ctx ends.
func (l *Loop) send(ctx context.Context, msg messages.Message) {
	select {
	case l.inbox <- msg:
	case <-ctx.Done():
	}
}

// Run processes messages until ctx is cancelled. When a single-instance
// server is configured it also serves delegated run-once requests.
func (l *Loop) Run(ctx context.Context) error {
	l.ctx = ctx
	conns := l.acceptConns(ctx)

	for {
		select {
		case <-ctx.Done():
			if l.current != nil {
				l.finish(messages.Outcome{Err: ctx.Err()})
			}
			return ctx.Err()
		case msg := <-l.inbox:
			l.handle(msg)
		case conn, ok := <-conns:
			if !ok {
				conns = nil
				continue
			}
			l.handleConn(conn)
		}
	}
}

func (l *Loop) acceptConns(ctx context.Context) <-chan singleinstance.Conn {
	if l.deps.Server == nil {
		return nil
	}
	ch := make(chan singleinstance.Conn, 4)
	go func() {
		defer close(ch)
		for {
			conn, err := l.deps.Server.Next(ctx)
			if err != nil {
				return
			}
			select {
			case ch <- conn:
			case <-ctx.Done():
				_ = conn.Close()
				return
			}
		}
	}()
	return ch
}

func (l *Loop) handle(msg messages.Message) {
	switch m := msg.(type) {
	case messages.TriggerCapture:
		l.handleTrigger(m)
	case messages.RegionSelected:
		l.handleRegion(m)
	case messages.RegionCancelled:
		l.handleCancelled(m)
	case messages.CompressComplete:
		l.handleCompressed(m.Result)
	case messages.MemoryPressure:
		l.handlePressure(m)
	case messages.ConfigChanged:
		l.updateRequest(m.Config.TargetScale, m.Config.OutputFormat, "config")
	case messages.UpdateRequest:
		l.updateRequest(m.Scale, m.Format, "menu")
	default:
		l.log.Warn("unknown message", zap.String("type", msg.Type()))
	}
}

func (l *Loop) handleTrigger(t messages.TriggerCapture) {
	if l.State() != StateIdle {
		l.log.Info("capture already running, trigger dropped",
			zap.String("source", t.Source), zap.Stringer("state", l.State()))
		if t.Done != nil {
			t.Done(messages.Outcome{Err: ErrBusy})
		}
		return
	}

	req := l.req
	if t.Request.Valid() {
		req = t.Request
	}
	l.current = &capture{trigger: t, req: req}
	l.log.Info("capture started", zap.String("source", t.Source), zap.Stringer("request", req))

	l.setState(StatePermissionCheck)
	if !l.deps.Gate.EnsureGranted() {
		l.fail(errs.New(errs.KindPermissionDenied, "permission check", errs.ErrPermissionDenied))
		return
	}

	l.setState(StateAwaitingRegion)
	ctx := l.ctx
	go func() {
		region, cancelled, err := l.deps.Selector.Select(ctx)
		switch {
		case err != nil:
			l.send(ctx, messages.RegionCancelled{Err: err})
		case cancelled:
			l.send(ctx, messages.RegionCancelled{})
		default:
			l.send(ctx, messages.RegionSelected{Region: region})
		}
	}()
}

func (l *Loop) handleRegion(m messages.RegionSelected) {
	if l.State() != StateAwaitingRegion {
		l.log.Debug("stale region selection ignored")
		return
	}
	if m.Region.Empty() {
		l.log.Info("empty selection, nothing to capture", zap.Stringer("region", m.Region))
		l.finish(messages.Outcome{Err: session.ErrSelectionCancelled})
		return
	}

	l.setState(StateCapturing)
	data, err := l.deps.Capture.CaptureRegion(m.Region)
	if err != nil {
		l.fail(errs.Wrap(errs.KindScreenshotCapture, "capture", err))
		return
	}
	if len(data) == 0 {
		l.fail(errs.New(errs.KindScreenshotCapture, "capture", errs.ErrNoCapture))
		return
	}
	l.log.Info("region captured", zap.Stringer("region", m.Region), zap.Int("bytes", len(data)))

	l.setState(StateCompressing)
	ctx := l.ctx
	submitted := l.deps.Pool.Submit(data, l.current.req, func(res compress.Result) {
		l.send(ctx, messages.CompressComplete{Result: res})
	})
	if !submitted {
		l.log.Warn("compression pool full, using original capture")
		l.handleCompressed(uncompressed(data))
	}
}

// uncompressed wraps raw capture bytes as a result so the clipboard step
// always runs.
func uncompressed(data []byte) compress.Result {
	return compress.Result{
		Data:           data,
		OriginalSize:   len(data),
		CompressedSize: len(data),
		Format:         compress.PNG,
		Strategy:       compress.StrategyOriginal,
		UsedOriginal:   true,
	}
}

func (l *Loop) handleCancelled(m messages.RegionCancelled) {
	if l.State() != StateAwaitingRegion {
		return
	}
	if m.Err != nil {
		l.fail(fmt.Errorf("region selection failed: %w", m.Err))
		return
	}
	l.log.Info("selection cancelled")
	l.finish(messages.Outcome{Err: session.ErrSelectionCancelled})
}

func (l *Loop) handleCompressed(res compress.Result) {
	if l.State() != StateCompressing || l.current == nil {
		l.log.Debug("stale compression result ignored")
		return
	}

	if !l.current.trigger.SkipClipboard {
		l.setState(StateWritingClipboard)
		if err := l.deps.Clipboard.Write(res.Data, session.MIMEType(res)); err != nil {
			if _, ok := errs.KindOf(err); !ok {
				err = errs.New(errs.KindClipboardWrite, "clipboard write", err)
			}
			l.fail(err)
			return
		}
		l.deps.Notifier.Notify(notification.KindSuccess, "Screenshot Compressed",
			notification.CompressionMessage(res.OriginalSize, res.CompressedSize, res.Ratio))
	}

	l.log.Info("capture complete",
		zap.Int("original", res.OriginalSize),
		zap.Int("compressed", res.CompressedSize),
		zap.Float64("ratio", res.Ratio),
		zap.Stringer("format", res.Format),
		zap.String("strategy", string(res.Strategy)),
		zap.Duration("elapsed", res.Elapsed))
	l.finish(messages.Outcome{Result: res})
}

func (l *Loop) handlePressure(m messages.MemoryPressure) {
	l.log.Warn("memory pressure", zap.Float64("used_percent", m.UsedPercent))
	if l.State() == StateIdle {
		l.deps.Reclaim()
	}
}

func (l *Loop) updateRequest(scale float64, format compress.Format, source string) {
	if scale <= 0 {
		scale = l.req.Scale()
	}
	if format == "" {
		format = l.req.Format()
	}
	req, err := compress.NewRequest(scale, format)
	if err != nil {
		l.log.Warn("request update rejected", zap.String("source", source), zap.Error(err))
		return
	}
	if req != l.req {
		l.log.Info("request updated", zap.String("source", source), zap.Stringer("request", req))
	}
	l.req = req
}

// Request returns the request the next capture will use. Only meaningful
// from the loop goroutine or once Run has returned.
func (l *Loop) Request() compress.Request { return l.req }

func (l *Loop) handleConn(conn singleinstance.Conn) {
	r := conn.Request()
	target := session.DelegatedTarget{Conn: conn, OutputToStdout: r.OutputToStdout}
	t := messages.TriggerCapture{
		Source:        messages.SourceRunOnce,
		SkipClipboard: r.OutputToStdout,
		Done: func(o messages.Outcome) {
			defer conn.Close()
			if o.Err != nil {
				_ = target.OnFailure(o.Err)
				return
			}
			if err := target.OnSuccess(o.Result); err != nil {
				l.log.Warn("failed to answer run-once client", zap.Error(err))
			}
		},
	}
	if r.Scale > 0 || r.Format != "" {
		t.Request = l.overrideRequest(r)
	}
	l.handleTrigger(t)
}

func (l *Loop) overrideRequest(r singleinstance.Request) compress.Request {
	scale := l.req.Scale()
	if r.Scale > 0 {
		scale = r.Scale
	}
	format := l.req.Format()
	if r.Format != "" {
		f, err := compress.ParseFormat(r.Format)
		if err != nil {
			l.log.Warn("run-once format ignored", zap.String("format", r.Format))
		} else {
			format = f
		}
	}
	req, err := compress.NewRequest(scale, format)
	if err != nil {
		return l.req
	}
	return req
}

func (l *Loop) fail(err error) {
	l.setState(StateError)
	l.log.Warn("capture failed", zap.Error(err))
	if l.deps.Reporter != nil {
		l.deps.Reporter.Handle(err, "capture")
	}
	l.finish(messages.Outcome{Err: err})
}

func (l *Loop) finish(o messages.Outcome) {
	var done func(messages.Outcome)
	if l.current != nil {
		done = l.current.trigger.Done
	}
	l.current = nil
	l.setState(StateIdle)
	if done != nil {
		done(o)
	}
}

func (l *Loop) setState(s State) {
	prev := State(l.state.Swap(int32(s)))
	if prev == s {
		return
	}
	l.log.Debug("state", zap.Stringer("from", prev), zap.Stringer("to", s))
	if l.deps.OnState != nil {
		l.deps.OnState(s)
	}
}
