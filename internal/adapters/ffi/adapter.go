// Package ffi is the Go side of the C call boundary. Every operation returns
// a Result and never panics across the boundary.
package ffi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"securesigner/go-core/internal/config"
	"securesigner/go-core/internal/metrics"
	"securesigner/go-core/internal/platform/privacylog"
	"securesigner/go-core/internal/securebuffer"
	"securesigner/go-core/internal/signer"
	"securesigner/go-core/pkg/models"
)

const componentName = "ffi"

// version is set at link time with -ldflags "-X ...ffi.version=...".
var version = "dev"

var (
	ErrMissingArgument = errors.New("null pointer argument")
	ErrInvalidEncoding = errors.New("invalid UTF-8")
	ErrInternal        = errors.New("internal error")
)

type Options struct {
	Config config.Config
	Logger *slog.Logger
	// Strategy bypasses platform selection when set.
	Strategy securebuffer.Strategy
}

type Adapter struct {
	signer  *signer.Signer
	metrics *metrics.Metrics
	logger  *slog.Logger
	initErr error
}

// New builds an adapter. If the configuration requires locked memory and the
// platform cannot provide it, the adapter still exists but every operation
// fails with a crypto code.
func New(opts Options) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a := &Adapter{metrics: metrics.New(), logger: logger}
	lockSupported := securebuffer.CheckMemoryLockSupport()

	strategy := opts.Strategy
	if strategy == nil {
		selected, err := securebuffer.Select(opts.Config.RequireLock())
		if err != nil {
			a.initErr = signer.WrapKind(signer.KindCrypto, fmt.Errorf("%w: %v", signer.ErrSecureMemory, err))
			a.metrics.SetMemoryState(lockSupported, "unavailable")
			logger.Error("secure memory unavailable",
				"component", componentName,
				"operation", "init",
				"error", err.Error(),
			)
			return a
		}
		strategy = selected
	}
	a.signer = signer.New(signer.Options{
		Strategy:         strategy,
		Logger:           logger,
		OnDegradedMemory: a.metrics.UnlockedAllocation,
	})
	if !lockSupported {
		logger.Warn("memory locking unsupported, secrets kept in unlocked memory",
			"component", componentName,
			"operation", "init",
			"memory_strategy", a.signer.StrategyName(),
		)
	}
	a.metrics.SetMemoryState(lockSupported, a.signer.StrategyName())
	return a
}

var defaultAdapter = sync.OnceValue(func() *Adapter {
	cfg := config.Load()
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	return New(Options{Config: cfg, Logger: slog.New(privacylog.WrapHandler(handler))})
})

// Default returns the process-wide adapter, configured on first use.
func Default() *Adapter {
	return defaultAdapter()
}

type argument struct {
	name  string
	value []byte
}

// CreateContainer returns the container JSON as payload.
func (a *Adapter) CreateContainer(privateKeyB58, passphrase []byte) Result {
	return a.run("create_container", []argument{
		{"private_key", privateKeyB58},
		{"passphrase", passphrase},
	}, func() (string, error) {
		return a.signer.CreateContainer(privateKeyB58, passphrase)
	})
}

// SignViaContainer returns a SigningResult JSON with signed_transaction.
func (a *Adapter) SignViaContainer(containerJSON, passphrase, transactionB64 []byte) Result {
	return a.run("sign_via_container", []argument{
		{"container", containerJSON},
		{"passphrase", passphrase},
		{"transaction", transactionB64},
	}, func() (string, error) {
		res, err := a.signer.SignViaContainer(string(containerJSON), passphrase, string(transactionB64))
		if err != nil {
			return "", err
		}
		return marshalResult(res)
	})
}

// SignDirect returns a SigningResult JSON without signed_transaction.
func (a *Adapter) SignDirect(privateKeyB58, messageB64 []byte) Result {
	return a.run("sign_direct", []argument{
		{"private_key", privateKeyB58},
		{"message", messageB64},
	}, func() (string, error) {
		res, err := a.signer.SignDirect(privateKeyB58, string(messageB64))
		if err != nil {
			return "", err
		}
		return marshalResult(res)
	})
}

// Version needs no adapter; the C layer reads it before any configuration.
func Version() string {
	return version
}

// CheckMemoryLockSupport probes the platform without touching signer state.
func CheckMemoryLockSupport() bool {
	return securebuffer.CheckMemoryLockSupport()
}

// MetricsText returns the adapter's metrics in Prometheus text format.
func (a *Adapter) MetricsText() Result {
	text, err := a.metrics.Text()
	if err != nil {
		return failure(signer.WrapKind(signer.KindFormat, err))
	}
	return Result{Code: CodeOK, Payload: text}
}

func (a *Adapter) run(operation string, args []argument, fn func() (string, error)) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("operation panicked",
				"component", componentName,
				"operation", operation,
			)
			res = failure(signer.WrapKind(signer.KindCrypto, ErrInternal))
		}
		a.metrics.Observe(operation, res.Code.String(), time.Since(start))
		if !res.OK() {
			a.logger.Warn("operation failed",
				"component", componentName,
				"operation", operation,
				"code", int(res.Code),
			)
		}
	}()

	if err := checkArguments(args); err != nil {
		return failure(err)
	}
	if a.initErr != nil {
		return failure(a.initErr)
	}
	payload, err := fn()
	if err != nil {
		return failure(err)
	}
	return Result{Code: CodeOK, Payload: payload}
}

// checkArguments reports every missing argument before any encoding problem.
func checkArguments(args []argument) error {
	for _, arg := range args {
		if arg.value == nil {
			return signer.WrapKind(signer.KindMissingArgument, fmt.Errorf("%w: %s", ErrMissingArgument, arg.name))
		}
	}
	for _, arg := range args {
		if !utf8.Valid(arg.value) {
			return signer.WrapKind(signer.KindInvalidEncoding, fmt.Errorf("%w in %s", ErrInvalidEncoding, arg.name))
		}
	}
	return nil
}

func marshalResult(res models.SigningResult) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", signer.WrapKind(signer.KindFormat, err)
	}
	return string(data), nil
}
