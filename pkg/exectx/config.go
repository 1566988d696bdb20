package exectx

import (
	"os"
	"sync"
	"time"
)

// config holds the process-wide, immutable-after-init configuration of the
// execution-context substrate. It is read once from environment variables
// (the language-neutral "environment-equivalent key-value lookup") mirroring
// the execContext.* keys; unknown env vars are ignored, malformed values are
// a ConfigError raised at Init.
type config struct {
	defaultTimeout time.Duration
	factory        Factory
	attacher       Attacher
}

var (
	globalConfig config
	configMu     sync.RWMutex
	initErr      error
)

func init() {
	if err := Init(); err != nil {
		panic(err)
	}
}

// Init (re-)reads configuration from the environment. It is exported so
// tests can re-run it deterministically after mutating environment
// variables or after registering a Factory/Attacher under a fresh name.
// A ConfigError from Init is a startup-time fatal condition in a normal
// process; tests may instead check the returned error directly.
func Init() error {
	cfg := config{defaultTimeout: 8 * time.Hour}

	if v := os.Getenv("EXECCTX_DEFAULT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			initErr = &ConfigError{Key: "EXECCTX_DEFAULT_TIMEOUT", Msg: err.Error()}
			return initErr
		}
		cfg.defaultTimeout = d
	}

	factoryName := os.Getenv("EXECCTX_FACTORY")
	if factoryName == "" {
		factoryName = "default"
	}
	factory, err := resolveFactory(factoryName, os.Getenv("EXECCTX_FACTORY_WRAPPER"))
	if err != nil {
		initErr = err
		return err
	}
	cfg.factory = factory

	attacherName := os.Getenv("EXECCTX_ATTACHER")
	if attacherName == "" {
		attacherName = "default"
	}
	attacher, err := resolveAttacher(attacherName)
	if err != nil {
		initErr = err
		return err
	}
	cfg.attacher = attacher

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	initErr = nil
	return nil
}

// DefaultTimeout returns the configured default deadline duration applied
// when a new root context is started without an explicit timeout.
func DefaultTimeout() time.Duration {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig.defaultTimeout
}

func currentFactory() Factory {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig.factory
}

func currentAttacher() Attacher {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig.attacher
}
