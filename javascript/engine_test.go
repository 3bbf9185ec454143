package javascript

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupReturnShapes(t *testing.T) {
	ctx := context.Background()
	b := typedef.Barony{ID: 4, Name: "Aldmoor", CountyID: typedef.Int64(9)}

	tests := []struct {
		name      string
		src       string
		wantKey   string
		wantLabel string
	}{
		{"string", `function group(b) { return "north"; }`, "north", "north"},
		{"integer", `function group(b) { return b.county_id; }`, "9", "9"},
		{"object", `function group(b) { return {key: b.county_id, label: "County " + b.county_id}; }`, "9", "County 9"},
		{"object without label", `function group(b) { return {key: "k"}; }`, "k", "k"},
		{"null field", `function group(b) { return b.duchy_id; }`, "", ""},
		{"undefined", `function group(b) {}`, "", ""},
		{"helpers", `function group(b) { return sprintf("%s-%d", b.name, b.id); }`, "Aldmoor-4", "Aldmoor-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Compile(ctx, tt.src, tt.name, time.Second)
			require.NoError(t, err)

			key, label, err := rule.Group(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Compile(ctx, `var x = 1;`, "nogroup", time.Second)
	assert.ErrorIs(t, err, ErrNoGroupFunction)

	_, err = Compile(ctx, `function group( {`, "syntax", time.Second)
	assert.Error(t, err)

	_, err = Compile(ctx, `throw new Error("boom");`, "throws", time.Second)
	assert.Error(t, err)
}

func TestGroupTimeout(t *testing.T) {
	ctx := context.Background()
	rule, err := Compile(ctx, `function group(b) { if (b.id === 1) { while (true) {} } return "ok"; }`, "loop", 50*time.Millisecond)
	require.NoError(t, err)

	_, _, err = rule.Group(ctx, typedef.Barony{ID: 1})
	assert.ErrorIs(t, err, ErrTimeout)

	// The runtime stays usable after an interrupt.
	key, _, err := rule.Group(ctx, typedef.Barony{ID: 2})
	require.NoError(t, err)
	assert.Equal(t, "ok", key)
}

func TestGroupFunc(t *testing.T) {
	ctx := context.Background()
	rule, err := Compile(ctx, `
		var calls = 0;
		function group(b) {
			calls++;
			if (b.id === 3) { throw new Error("bad barony"); }
			return {key: b.culture_id, label: "Culture " + b.culture_id};
		}`, "culture", time.Second)
	require.NoError(t, err)

	meta := map[typedef.RegionID]typedef.Barony{
		"1": {ID: 1, CultureID: typedef.Int64(5)},
		"3": {ID: 3, CultureID: typedef.Int64(5)},
	}
	fn := rule.GroupFunc(ctx, meta)

	key, label := fn("1")
	assert.Equal(t, "5", key)
	assert.Equal(t, "Culture 5", label)

	key, label = fn("3")
	assert.Empty(t, key)
	assert.Empty(t, label)

	key, _ = fn("missing")
	assert.Empty(t, key)

	fn("1")
	assert.EqualValues(t, 2, rule.vm.Get("calls").ToInteger())
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule.js")
	require.NoError(t, os.WriteFile(path, []byte(`function group(b) { return b.name; }`), 0o644))

	rule, err := CompileFile(context.Background(), path, 0)
	require.NoError(t, err)
	assert.Equal(t, path, rule.Name())

	key, _, err := rule.Group(context.Background(), typedef.Barony{Name: "Vell"})
	require.NoError(t, err)
	assert.Equal(t, "Vell", key)

	_, err = CompileFile(context.Background(), filepath.Join(t.TempDir(), "missing.js"), 0)
	assert.Error(t, err)
}
