package introspect

import (
	"testing"
)

func TestIntrospectStructural(t *testing.T) {
	t.Parallel()
	source := `({
		name: 'slider',
		inputs: {
			min: {type: 'float'},
			max: {type: 'float'}
		},
		outputs: {
			value: {type: 'float', event: function(evt) {}}
		},
		init: function() {}
	})`

	result := Introspect(source)
	if result.Method != MethodStructural {
		t.Fatalf("method = %q, want structural (err: %s)", result.Method, result.Err)
	}
	if result.Name != "slider" {
		t.Errorf("name = %q, want slider", result.Name)
	}
	wantInputs := []Port{{Name: "min", Type: "float"}, {Name: "max", Type: "float"}}
	if len(result.Inputs) != len(wantInputs) {
		t.Fatalf("inputs = %v, want %v", result.Inputs, wantInputs)
	}
	for i, want := range wantInputs {
		if result.Inputs[i] != want {
			t.Errorf("inputs[%d] = %v, want %v", i, result.Inputs[i], want)
		}
	}
	if len(result.Outputs) != 1 || result.Outputs[0] != (Port{Name: "value", Type: "float"}) {
		t.Errorf("outputs = %v, want [{value float}]", result.Outputs)
	}
}

func TestIntrospectStructuralGlobals(t *testing.T) {
	t.Parallel()
	// Modules that declare top-level vars instead of returning the object.
	source := `
		var name = 'serial server';
		var inputs = {data: {type: 'string'}};
		var outputs = {reply: {type: 'string'}};
	`

	result := Introspect(source)
	if result.Method != MethodStructural {
		t.Fatalf("method = %q, want structural (err: %s)", result.Method, result.Err)
	}
	if result.Name != "serial server" {
		t.Errorf("name = %q, want %q", result.Name, "serial server")
	}
	if len(result.Inputs) != 1 || result.Inputs[0] != (Port{Name: "data", Type: "string"}) {
		t.Errorf("inputs = %v, want [{data string}]", result.Inputs)
	}
}

func TestIntrospectUsesSandboxStubs(t *testing.T) {
	t.Parallel()
	// Touches document, canvas context and timers during construction; all
	// must be absorbed by the sandbox stubs.
	source := `
		var canvas = document.createElement('canvas');
		var ctx = canvas.getContext('2d');
		ctx.fillRect(0, 0, 10, 10);
		document.body.appendChild(canvas);
		setTimeout(function() {}, 100);
		requestAnimationFrame(function() {});
		({
			name: 'view png',
			inputs: {image: {type: 'RGBA'}},
			outputs: {}
		})
	`

	result := Introspect(source)
	if result.Method != MethodStructural {
		t.Fatalf("method = %q, want structural (err: %s)", result.Method, result.Err)
	}
	if result.Name != "view png" {
		t.Errorf("name = %q, want %q", result.Name, "view png")
	}
}

func TestIntrospectPatternFallback(t *testing.T) {
	t.Parallel()
	// Throws during evaluation; the pattern scan still recovers the shape.
	source := `
		definitelyNotStubbed.explode();
		var name = "foo";
		var inputs = {
			path: {type: 'string', event: function(evt) { nested.stuff(); }},
			count: {type: 'int'}
		};
		var outputs = {done: {type: ''}};
	`

	result := Introspect(source)
	if result.Method != MethodPattern {
		t.Fatalf("method = %q, want pattern (err: %s)", result.Method, result.Err)
	}
	if result.Name != "foo" {
		t.Errorf("name = %q, want foo", result.Name)
	}

	byName := map[string]string{}
	for _, p := range result.Inputs {
		byName[p.Name] = p.Type
	}
	if byName["path"] != "string" || byName["count"] != "int" {
		t.Errorf("inputs = %v, want path:string and count:int", result.Inputs)
	}
	if _, phantom := byName["event"]; phantom {
		t.Errorf("nested key leaked into ports: %v", result.Inputs)
	}
	if len(result.Outputs) != 1 || result.Outputs[0].Name != "done" {
		t.Errorf("outputs = %v, want [done]", result.Outputs)
	}
}

func TestIntrospectPatternNameBoundary(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			"filename assignment precedes name",
			`definitelyNotStubbed.explode();
			var filename = "out.png";
			var name = "view png";`,
			"view png",
		},
		{
			"property assignment precedes name",
			`definitelyNotStubbed.explode();
			el.name = "x";
			var name = "display";`,
			"display",
		},
		{
			"name at start of input",
			`name = "bare"; definitelyNotStubbed.explode();`,
			"bare",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := Introspect(tt.source)
			if result.Method != MethodPattern {
				t.Fatalf("method = %q, want pattern (err: %s)", result.Method, result.Err)
			}
			if result.Name != tt.want {
				t.Errorf("name = %q, want %q", result.Name, tt.want)
			}
		})
	}
}

func TestIntrospectFailed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		source string
	}{
		{"syntax error without name literal", `function ( { ]`},
		{"throws without name literal", `definitelyNotStubbed.explode();`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := Introspect(tt.source)
			if result.Method != MethodFailed {
				t.Fatalf("method = %q, want failed", result.Method)
			}
			if result.Err == "" {
				t.Error("failed result carries no error text")
			}
		})
	}
}

func TestIntrospectEvalTimeout(t *testing.T) {
	t.Parallel()
	// Infinite loop in the declaration; interrupt must downgrade, and the
	// pattern scan still sees the name.
	source := `
		var name = 'spinner';
		var outputs = {tick: {type: 'pulse'}};
		while (true) {}
	`

	result := Introspect(source)
	if result.Method != MethodPattern {
		t.Fatalf("method = %q, want pattern after interrupt (err: %s)", result.Method, result.Err)
	}
	if result.Name != "spinner" {
		t.Errorf("name = %q, want spinner", result.Name)
	}
}
