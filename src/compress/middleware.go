package compress

import (
	"errors"

	"go.uber.org/zap"

	"snapsqueeze/src/errs"
)

// CompressFunc is one step of the compression pipeline. Unlike Compressor,
// it reports failures as errors.
type CompressFunc func(buf *ImageBuffer, req Request) (Result, error)

// Middleware wraps a CompressFunc.
type Middleware func(CompressFunc) CompressFunc

// Reporter receives classified failures. *errs.Classifier implements it.
type Reporter interface {
	Handle(err error, source string) bool
}

// Chain applies mws so that the first one is outermost.
func Chain(f CompressFunc, mws ...Middleware) CompressFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		f = mws[i](f)
	}
	return f
}

// WithRecovery reports failures and retries once when the reporter says the
// condition was recovered. Empty input and invalid requests are not reported.
func WithRecovery(r Reporter, log *zap.Logger) Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next CompressFunc) CompressFunc {
		return func(buf *ImageBuffer, req Request) (Result, error) {
			res, err := next(buf, req)
			if err == nil || r == nil || !reportable(err) {
				return res, err
			}
			if !r.Handle(err, "compress") {
				return res, err
			}
			log.Info("retrying compression after recovery", zap.Error(err))
			return next(buf, req)
		}
	}
}

// WithPanicGuard turns a panic in next into a classified error.
func WithPanicGuard() Middleware {
	return func(next CompressFunc) CompressFunc {
		return func(buf *ImageBuffer, req Request) (res Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					perr := errs.Recovered(r)
					kind := errs.Classify(perr)
					if kind == errs.KindUnknown {
						kind = errs.KindImageCompress
					}
					res, err = Result{}, errs.New(kind, "compress", perr)
				}
			}()
			return next(buf, req)
		}
	}
}

func reportable(err error) bool {
	return !errors.Is(err, errs.ErrEmptyInput) && !errors.Is(err, ErrInvalidRequest)
}
