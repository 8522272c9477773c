// Package introspect recovers the declared shape of a mods module, its
// name and typed input/output ports, from the module's source text.
//
// Modules are self-describing JS files whose top-level expression builds an
// object literal with name, inputs and outputs fields. The primary strategy
// runs that construction inside an isolated goja VM with stubbed browser
// globals; when the module touches behaviour the sandbox does not stub, a
// textual pattern scan recovers coarse port information instead. Both
// strategies failing is a per-module parse result, not an error: corpus scans
// carry on past modules they cannot read.
package introspect

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dop251/goja"
)

// Method records which strategy produced a Result.
type Method string

const (
	MethodStructural Method = "structural"
	MethodPattern    Method = "pattern"
	MethodFailed     Method = "failed"
)

// evalTimeout bounds structural evaluation of a single module. Modules are
// declarations, not programs; anything still running after this long is stuck
// waiting on behaviour the sandbox does not provide.
const evalTimeout = 2 * time.Second

// Port is one declared input or output.
type Port struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Result is the outcome of introspecting one module definition. Inputs and
// Outputs preserve declaration order when Method is structural; the pattern
// scan yields text order instead.
type Result struct {
	Name    string `json:"name"`
	Inputs  []Port `json:"inputs"`
	Outputs []Port `json:"outputs"`
	Method  Method `json:"method"`
	Err     string `json:"error,omitempty"`
}

// Introspect parses a module definition. It never panics and never returns a
// Go error: a module that defeats both strategies comes back with
// Method == MethodFailed and Err describing the structural failure.
func Introspect(source string) Result {
	result, structuralErr := structural(source)
	if structuralErr == nil {
		return result
	}

	if result, ok := pattern(source); ok {
		return result
	}

	return Result{
		Method: MethodFailed,
		Err:    structuralErr.Error(),
	}
}

// structural evaluates the module in a sandboxed VM and reads name, inputs
// and outputs either from the completion value of the script or from the
// globals the script declared.
func structural(source string) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("introspect: structural evaluation panicked: %v", r)
		}
	}()

	vm := goja.New()
	timer := time.AfterFunc(evalTimeout, func() {
		vm.Interrupt("module evaluation timed out")
	})
	defer timer.Stop()

	if _, err := vm.RunString(sandboxPrelude); err != nil {
		return Result{}, fmt.Errorf("introspect: install sandbox: %w", err)
	}

	value, err := vm.RunString(source)
	if err != nil {
		return Result{}, fmt.Errorf("introspect: evaluate module: %w", err)
	}

	// Modules either evaluate to the module object itself or declare
	// name/inputs/outputs as top-level vars. Prefer the completion value.
	var moduleObj *goja.Object
	if value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
		if obj, ok := value.(*goja.Object); ok {
			moduleObj = obj
		}
	}

	lookup := func(key string) goja.Value {
		if moduleObj != nil {
			if v := moduleObj.Get(key); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
				return v
			}
		}
		if v := vm.Get(key); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			return v
		}
		return nil
	}

	nameVal := lookup("name")
	if nameVal == nil {
		return Result{}, fmt.Errorf("introspect: module declares no name")
	}

	return Result{
		Name:    nameVal.String(),
		Inputs:  portsOf(vm, lookup("inputs")),
		Outputs: portsOf(vm, lookup("outputs")),
		Method:  MethodStructural,
	}, nil
}

// portsOf reads a {portName: {type: "..."}} object into an ordered port
// list. goja enumerates string keys in insertion order, so declaration order
// survives.
func portsOf(vm *goja.Runtime, value goja.Value) []Port {
	if value == nil {
		return nil
	}
	obj, ok := value.(*goja.Object)
	if !ok {
		return nil
	}

	var ports []Port
	for _, key := range obj.Keys() {
		port := Port{Name: key}
		if pv := obj.Get(key); pv != nil && !goja.IsUndefined(pv) && !goja.IsNull(pv) {
			if po, ok := pv.(*goja.Object); ok {
				if tv := po.Get("type"); tv != nil && !goja.IsUndefined(tv) && !goja.IsNull(tv) {
					port.Type = tv.String()
				}
			}
		}
		ports = append(ports, port)
	}
	return ports
}

var (
	// The left boundary keeps the match off longer identifiers (filename)
	// and property assignments (el.name).
	namePattern = regexp.MustCompile(`(?:^|[^\w$.])name\s*[:=]\s*['"]([^'"]+)['"]`)
	portKey     = regexp.MustCompile(`([A-Za-z_$][A-Za-z0-9_$]*)\s*:\s*\{`)
	portType    = regexp.MustCompile(`type\s*:\s*['"]([^'"]*)['"]`)
)

// pattern is the textual fallback: name from the first literal assignment,
// ports from the brace-delimited spans following the inputs/outputs tokens.
// Scan order over text replaces declaration order here.
func pattern(source string) (Result, bool) {
	nameMatch := namePattern.FindStringSubmatch(source)
	if nameMatch == nil {
		return Result{}, false
	}

	return Result{
		Name:    nameMatch[1],
		Inputs:  scanPorts(source, "inputs"),
		Outputs: scanPorts(source, "outputs"),
		Method:  MethodPattern,
	}, true
}

// scanPorts locates `<token> : {` or `<token> = {` in the source, takes the
// balanced-brace span that follows, and pulls key/{...type...} pairs out of
// it permissively.
func scanPorts(source, token string) []Port {
	span, ok := blockAfter(source, token)
	if !ok {
		return nil
	}

	var ports []Port
	cursor := 0
	for _, loc := range portKey.FindAllStringSubmatchIndex(span, -1) {
		if loc[0] < cursor {
			// Key nested inside the previous port's body, not a port.
			continue
		}
		key := span[loc[2]:loc[3]]
		body, ok := balancedSpan(span, loc[1]-1)
		if !ok {
			continue
		}
		cursor = loc[1] + len(body) + 1
		port := Port{Name: key}
		if tm := portType.FindStringSubmatch(body); tm != nil {
			port.Type = tm[1]
		}
		ports = append(ports, port)
	}
	return ports
}

var blockStart = map[string]*regexp.Regexp{
	"inputs":  regexp.MustCompile(`inputs\s*[:=]\s*\{`),
	"outputs": regexp.MustCompile(`outputs\s*[:=]\s*\{`),
}

// blockAfter returns the balanced-brace span following the token's opening
// brace, without the outer braces.
func blockAfter(source, token string) (string, bool) {
	re, ok := blockStart[token]
	if !ok {
		return "", false
	}
	loc := re.FindStringIndex(source)
	if loc == nil {
		return "", false
	}
	span, ok := balancedSpan(source, loc[1]-1)
	if !ok {
		return "", false
	}
	return span, true
}

// balancedSpan returns the text between the brace at source[open] and its
// matching closing brace, exclusive of both. String literals are not parsed;
// a stray brace inside one truncates the span, which the permissive per-key
// scan tolerates.
func balancedSpan(source string, open int) (string, bool) {
	if open < 0 || open >= len(source) || source[open] != '{' {
		return "", false
	}
	depth := 0
	for i := open; i < len(source); i++ {
		switch source[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return source[open+1 : i], true
			}
		}
	}
	return "", false
}
