// Package javascript runs user colour-rule scripts that group baronies for the map filter.
//
// A rule script defines a function group(barony) returning either a key
// (string or number) or an object {key, label}. Returning null or undefined
// leaves the barony ungrouped.
package javascript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/TheNaotagrey/Asgaria/editor"
	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 5 * time.Second

var (
	// ErrNoGroupFunction is returned when a script does not define group().
	ErrNoGroupFunction = errors.New("script does not define a group(barony) function")
	// ErrTimeout is returned when a script runs past its deadline.
	ErrTimeout = errors.New("script timed out")
)

// Rule is a compiled colour-rule script. Calls are serialised because a goja runtime is single-threaded.
type Rule struct {
	name    string
	timeout time.Duration

	mu    sync.Mutex
	vm    *goja.Runtime
	group goja.Callable
}

func newRuntime(name string) *goja.Runtime {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	log := logrus.WithFields(logrus.Fields{"component": "script", "script": name})
	vm.Set("sprintf", fmt.Sprintf)
	vm.Set("println", func(args ...any) { log.Info(fmt.Sprint(args...)) })
	return vm
}

// Compile runs src once and looks up its group function.
func Compile(ctx context.Context, src, name string, timeout time.Duration) (*Rule, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Rule{name: name, timeout: timeout, vm: newRuntime(name)}

	if _, err := r.run(ctx, func() (goja.Value, error) { return r.vm.RunScript(name, src) }); err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(r.vm.Get("group"))
	if !ok {
		return nil, fmt.Errorf("script %s: %w", name, ErrNoGroupFunction)
	}
	r.group = fn
	return r, nil
}

// CompileFile reads and compiles a script from disk.
func CompileFile(ctx context.Context, path string, timeout time.Duration) (*Rule, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return Compile(ctx, string(src), path, timeout)
}

// Name returns the script name.
func (r *Rule) Name() string { return r.name }

// Group evaluates the rule for one barony.
func (r *Rule) Group(ctx context.Context, b typedef.Barony) (key, label string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	val, err := r.run(ctx, func() (goja.Value, error) {
		return r.group(goja.Undefined(), r.vm.ToValue(baronyObject(b)))
	})
	if err != nil {
		return "", "", err
	}
	return groupResult(r.vm, val)
}

// run executes fn, interrupting the runtime when ctx or the rule timeout expires.
func (r *Rule) run(ctx context.Context, fn func() (goja.Value, error)) (goja.Value, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		val goja.Value
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		val, err := fn()
		resultCh <- result{val, err}
	}()

	select {
	case <-ctx.Done():
		r.vm.Interrupt("timeout")
		<-resultCh
		r.vm.ClearInterrupt()
		return nil, fmt.Errorf("script %s: %w: %v", r.name, ErrTimeout, ctx.Err())
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("failed to run script %s: %w", r.name, res.err)
		}
		return res.val, nil
	}
}

func baronyObject(b typedef.Barony) map[string]any {
	opt := func(v *int64) any {
		if v == nil {
			return nil
		}
		return *v
	}
	return map[string]any{
		"id":              b.ID,
		"name":            b.Name,
		"seigneur_id":     opt(b.SeigneurID),
		"religion_pop_id": opt(b.ReligionPopID),
		"duchy_id":        opt(b.DuchyID),
		"county_id":       opt(b.CountyID),
		"culture_id":      opt(b.CultureID),
	}
}

func groupResult(vm *goja.Runtime, val goja.Value) (string, string, error) {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return "", "", nil
	}
	switch exported := val.Export().(type) {
	case string:
		return exported, exported, nil
	case int64:
		s := strconv.FormatInt(exported, 10)
		return s, s, nil
	case float64:
		s := strconv.FormatFloat(exported, 'f', -1, 64)
		return s, s, nil
	case map[string]any:
		obj := val.ToObject(vm)
		key := obj.Get("key")
		if key == nil || goja.IsUndefined(key) || goja.IsNull(key) {
			return "", "", nil
		}
		label := key.String()
		if l := obj.Get("label"); l != nil && !goja.IsUndefined(l) && !goja.IsNull(l) {
			label = l.String()
		}
		return key.String(), label, nil
	default:
		return "", "", fmt.Errorf("group() returned unsupported %T", exported)
	}
}

// GroupFunc adapts the rule for the palette. Regions without metadata or with
// script errors are left ungrouped; errors are logged once per region.
func (r *Rule) GroupFunc(ctx context.Context, meta map[typedef.RegionID]typedef.Barony) editor.GroupFunc {
	type entry struct{ key, label string }
	cache := make(map[typedef.RegionID]entry, len(meta))
	log := logrus.WithFields(logrus.Fields{"component": "script", "script": r.name})

	return func(id typedef.RegionID) (string, string) {
		if e, ok := cache[id]; ok {
			return e.key, e.label
		}
		b, ok := meta[id]
		if !ok {
			cache[id] = entry{}
			return "", ""
		}
		key, label, err := r.Group(ctx, b)
		if err != nil {
			log.WithError(err).WithField("region", id).Warn("colour rule failed")
		}
		cache[id] = entry{key, label}
		return key, label
	}
}
