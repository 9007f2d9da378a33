package remote

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
)

// Coercion function texts. The receiver forms run remotely on references;
// the argument forms run locally on literals, where no user code can be
// reached.
const (
	floatFunction   = "function () {return +this;}"
	integerFunction = "function () {return this|0;}"
	stringFunction  = "function () {return `${this}`;}"

	localFloat   = "(function (v) { return +v; })"
	localInteger = "(function (v) { return v|0; })"
	localString  = "(function (v) { return `${v}`; })"
)

// localCoercer evaluates JavaScript conversions on primitives with an
// embedded runtime, so literal handles follow the same rules the debuggee
// would apply. A goja.Runtime is not safe for concurrent use.
type localCoercer struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	float   goja.Callable
	integer goja.Callable
	str     goja.Callable
}

var coercer = newLocalCoercer()

func newLocalCoercer() *localCoercer {
	vm := goja.New()
	return &localCoercer{
		vm:      vm,
		float:   mustCompile(vm, localFloat),
		integer: mustCompile(vm, localInteger),
		str:     mustCompile(vm, localString),
	}
}

func mustCompile(vm *goja.Runtime, src string) goja.Callable {
	v, err := vm.RunString(src)
	if err != nil {
		panic(fmt.Sprintf("remote: compile %q: %v", src, err))
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		panic(fmt.Sprintf("remote: %q is not a function", src))
	}
	return fn
}

// apply runs fn on a reified local value and exports the result to Go.
func (c *localCoercer) apply(fn goja.Callable, v any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var arg goja.Value
	switch v.(type) {
	case nil:
		arg = goja.Null()
	case undefined:
		arg = goja.Undefined()
	default:
		arg = c.vm.ToValue(v)
	}

	res, err := fn(goja.Undefined(), arg)
	if err != nil {
		return nil, fmt.Errorf("local coercion: %w", err)
	}
	return res.Export(), nil
}
