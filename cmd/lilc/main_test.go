package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// promptReader fails the test if the prompt was not written yet.
type promptReader struct {
	t      *testing.T
	out    *bytes.Buffer
	prompt string
	r      *strings.Reader
}

func (r *promptReader) Read(p []byte) (int, error) {
	assert.True(r.t, strings.HasPrefix(r.out.String(), r.prompt), "prompt before input: %q", r.out.String())

	return r.r.Read(p)
}

func TestRunFilePromptBeforeInput(t *testing.T) {
	name := filepath.Join(t.TempDir(), "ask.lc")

	err := os.WriteFile(name, []byte(`
void main() {
	int x;
	cout << "x? ";
	cin >> x;
	cout << x + 1;
}
`), 0o644)
	require.NoError(t, err)

	var out bytes.Buffer

	in := &promptReader{t: t, out: &out, prompt: "x? ", r: strings.NewReader("41\n")}

	err = runFile(context.Background(), name, 0, in, &out)
	require.NoError(t, err)

	assert.Equal(t, "x? 42", out.String())
}

func TestRunFileErrors(t *testing.T) {
	dir := t.TempDir()

	err := runFile(context.Background(), filepath.Join(dir, "missing.lc"), 0, nil, nil)
	assert.Error(t, err)

	name := filepath.Join(dir, "loop.lc")

	err = os.WriteFile(name, []byte("void main() { while (true) {} }\n"), 0o644)
	require.NoError(t, err)

	err = runFile(context.Background(), name, 1000, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step limit exceeded")
}
