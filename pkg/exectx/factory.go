package exectx

import "strconv"

// Factory builds an ExecutionContext. The default implementation simply
// calls New; a decorator wrapping a Factory can interpose orthogonal
// concerns (tracing export, counters) without call sites changing.
type Factory interface {
	Start(name, id string, parent *ExecutionContext, relation Relation, startNanos, deadlineNanos int64) *ExecutionContext
}

type defaultFactory struct{}

func (defaultFactory) Start(name, id string, parent *ExecutionContext, relation Relation, startNanos, deadlineNanos int64) *ExecutionContext {
	return New(name, id, parent, relation, startNanos, deadlineNanos)
}

// FactoryWrapper decorates an inner Factory, returning a new Factory that
// delegates to it. Used to compose orthogonal concerns (metrics, tracing)
// onto the chosen base Factory without changing call sites.
type FactoryWrapper func(inner Factory) Factory

var (
	factoryRegistry = map[string]func() Factory{
		"default": func() Factory { return defaultFactory{} },
	}
	factoryWrapperRegistry = map[string]FactoryWrapper{}
)

// RegisterFactory adds name to the set of Factory constructors resolvable
// from the EXECCTX_FACTORY configuration key. This replaces dynamic class
// loading from a configuration string: names are resolved against a
// compiled-in registry, so an unknown name is a ConfigError rather than a
// class-not-found failure discovered deep in a call stack.
func RegisterFactory(name string, ctor func() Factory) {
	factoryRegistry[name] = ctor
}

// RegisterFactoryWrapper adds name to the set of FactoryWrapper decorators
// resolvable from the EXECCTX_FACTORY_WRAPPER configuration key.
func RegisterFactoryWrapper(name string, wrapper FactoryWrapper) {
	factoryWrapperRegistry[name] = wrapper
}

func resolveFactory(name, wrapperName string) (Factory, error) {
	ctor, ok := factoryRegistry[name]
	if !ok {
		return nil, &ConfigError{Key: "EXECCTX_FACTORY", Msg: "unknown factory " + strconv.Quote(name)}
	}
	f := ctor()
	if wrapperName == "" {
		return f, nil
	}
	wrapper, ok := factoryWrapperRegistry[wrapperName]
	if !ok {
		return nil, &ConfigError{Key: "EXECCTX_FACTORY_WRAPPER", Msg: "unknown factory wrapper " + strconv.Quote(wrapperName)}
	}
	return wrapper(f), nil
}
