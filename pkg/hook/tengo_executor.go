package hook

import (
	"context"
	"sync"

	"github.com/cperrin88/dlkeep/pkg/errors"
	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// TengoExecutor handles the execution of Tengo scripts.
type TengoExecutor struct {
	scripts map[HookType]string
	mutex   sync.RWMutex
}

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		scripts: make(map[HookType]string),
	}
}

// Execute runs the specified hook type with the given context.
// A script fails the hook by assigning a non-empty string or an error value
// to the predeclared global err.
func (e *TengoExecutor) Execute(ctx context.Context, hookType HookType, hctx HookContext) error {
	e.mutex.RLock()
	script, exists := e.scripts[hookType]
	e.mutex.RUnlock()
	if !exists {
		return nil // No script for this hook type
	}

	scriptInstance := tengo.NewScript([]byte(script))

	modules := stdlib.GetModuleMap("fmt", "os", "strings", "text", "time")
	scriptInstance.SetImports(modules)

	// tengo only converts []interface{} and signed integers
	files := make([]interface{}, len(hctx.Files))
	for i, f := range hctx.Files {
		files[i] = f
	}

	// Add context variables
	_ = scriptInstance.Add("productID", hctx.ProductID)
	_ = scriptInstance.Add("targetDir", hctx.TargetDir)
	_ = scriptInstance.Add("files", files)
	_ = scriptInstance.Add("totalSize", int64(hctx.TotalSize))
	_ = scriptInstance.Add("err", "")

	// Add custom variables
	for k, v := range hctx.Vars {
		if err := scriptInstance.Add(k, v); err != nil {
			return errors.WrapKind(errors.ErrHookExecution, err, "%s: variable %q", hookType, k)
		}
	}

	compiled, err := scriptInstance.RunContext(ctx)
	if err != nil {
		return errors.WrapKind(errors.ErrHookExecution, err, "%s", hookType)
	}

	// Check for any returned error
	switch v := compiled.Get("err").Object().(type) {
	case *tengo.String:
		if v.Value != "" {
			return errors.Wrap(errors.ErrHookScript, v.Value)
		}
	case *tengo.Error:
		msg, _ := tengo.ToString(v.Value)
		return errors.Wrap(errors.ErrHookScript, msg)
	}

	return nil
}

// AddScript adds or updates a script for the specified hook type.
func (e *TengoExecutor) AddScript(hookType HookType, script string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scripts[hookType] = script
}

// RemoveScript removes the script for the specified hook type.
func (e *TengoExecutor) RemoveScript(hookType HookType) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.scripts, hookType)
}

// HasScript checks if a script exists for the specified hook type.
func (e *TengoExecutor) HasScript(hookType HookType) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, exists := e.scripts[hookType]
	return exists
}
