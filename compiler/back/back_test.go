package back

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kray10/project6/compiler/analyze"
	"github.com/kray10/project6/compiler/ast"
	"github.com/kray10/project6/compiler/parse"
	"github.com/kray10/project6/compiler/sim"
)

func compile(t *testing.T, src string) (*ast.Program, []byte, error) {
	t.Helper()

	ctx := context.Background()

	p, err := parse.Parse(ctx, "", []byte(src))
	require.NoError(t, err)

	_, err = analyze.Analyze(ctx, p)
	require.NoError(t, err)

	text, err := New().CompileProgram(ctx, nil, p)

	return p, text, err
}

func run(t *testing.T, src, input string) (out string, text []byte) {
	t.Helper()

	_, text, err := compile(t, src)
	require.NoError(t, err)

	var buf bytes.Buffer

	m, err := sim.Run(context.Background(), text, sim.Config{
		Input:  strings.NewReader(input),
		Output: &buf,
	})
	require.NoError(t, err, "%s", text)

	assert.True(t, m.Exited())
	assert.Equal(t, uint32(sim.StackTop), m.SP(), "stack pointer after exit")

	return buf.String(), text
}

func TestGlobals(t *testing.T) {
	out, text := run(t, `
int a;
int b;
void main() {
	a = 1;
	b = 2;
	cout << a;
	cout << b;
}
`, "")

	assert.Equal(t, "12", out)

	assert.Contains(t, string(text), "_a:\t.space 4\n")
	assert.Contains(t, string(text), "_b:\t.space 4\n")
	assert.Contains(t, string(text), "\t.globl main\nmain:\n__start:")
}

func TestBlockLocals(t *testing.T) {
	out, text := run(t, `
void main() {
	int a;
	int b;
	a = 1;
	b = 2;
	if (a < b) {
		int c;
		c = a + b;
		cout << c;
	}
}
`, "")

	assert.Equal(t, "3", out)

	assert.Contains(t, string(text), "subu  $sp, $sp, 4\t\t# reserve block locals\n")
	assert.Contains(t, string(text), "addu  $sp, $sp, 4\t\t# release block locals\n")
}

func TestShortCircuit(t *testing.T) {
	out, _ := run(t, `
int n;
bool t() {
	n = n + 1;
	return true;
}
bool f() {
	n = n + 1;
	return false;
}
void main() {
	bool b;
	b = f() && t();
	cout << n;
	b = t() || f();
	cout << n;
	b = t() && f();
	cout << n;
	cout << b;
	b = f() || t();
	cout << b;
}
`, "")

	assert.Equal(t, "12401", out)
}

func TestRecursion(t *testing.T) {
	out, text := run(t, `
int fact(int n) {
	if (n < 2) {
		return 1;
	}
	return n * fact(n - 1);
}
void main() {
	cout << "fact=";
	cout << fact(5);
	cout << "\n";
}
`, "")

	assert.Equal(t, "fact=120\n", out)
	assert.Contains(t, string(text), "_fact:\n")
	assert.Contains(t, string(text), "jal   _fact")
}

func TestParams(t *testing.T) {
	out, _ := run(t, `
int sub(int a, int b) {
	int c;
	c = a - b;
	return c;
}
void show(int x, bool y, int z) {
	cout << x;
	cout << y;
	cout << z;
}
void main() {
	cout << sub(10, 3);
	show(4, false, sub(9, 1));
}
`, "")

	assert.Equal(t, "7408", out)
}

func TestWhile(t *testing.T) {
	out, _ := run(t, `
void main() {
	int i;
	int s;
	i = 0;
	s = 0;
	while (i < 10) {
		i++;
		s = s + i;
	}
	cout << s;
	i--;
	cout << i;
}
`, "")

	assert.Equal(t, "559", out)
}

func TestArithmetic(t *testing.T) {
	out, _ := run(t, `
void main() {
	int a;
	a = -7 / 2;
	cout << a;
	if (!(a == -3)) {
		cout << "no";
	} else {
		cout << "yes";
	}
	cout << 2 + 3 * 4 - 6 / 2;
	cout << (1 != 2);
	cout << (3 >= 4);
}
`, "")

	assert.Equal(t, "-3yes1110", out)
}

func TestRead(t *testing.T) {
	out, _ := run(t, `
int g;
void main() {
	int x;
	cin >> x;
	cin >> g;
	cout << x * g;
}
`, "6 7\n")

	assert.Equal(t, "42", out)
}

func TestChainedAssign(t *testing.T) {
	out, _ := run(t, `
void main() {
	int a;
	int b;
	a = b = 5;
	cout << a + b;
}
`, "")

	assert.Equal(t, "10", out)
}

func TestUnsupportedStruct(t *testing.T) {
	_, _, err := compile(t, "struct P { int a; };\nstruct P p;\nvoid main() {}\n")

	var ue UnsupportedError
	require.True(t, errors.As(err, &ue), "%v", err)

	assert.Equal(t, 2, ue.Pos.Line)
	assert.Equal(t, 10, ue.Pos.Col)
	assert.Equal(t, "struct variable p", ue.What)
	assert.Contains(t, err.Error(), "is not supported by code generation")

	out, _ := run(t, "struct P { int a; };\nvoid main() { cout << 1; }\n", "")
	assert.Equal(t, "1", out)
}
