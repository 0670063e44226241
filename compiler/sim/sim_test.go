package sim

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHello(t *testing.T) {
	text := `
	.data
msg:	.asciiz "hi # there\n"
	.align 2
cnt:	.word 41
	.text
	.globl main
main:
	la    $a0, msg
	li    $v0, 4
	syscall
	lw    $t0, cnt
	addi  $t0, $t0, 1
	move  $a0, $t0
	li    $v0, 1
	syscall		# print 42
	li    $v0, 10
	syscall
`

	var out bytes.Buffer

	m, err := Run(context.Background(), []byte(text), Config{Output: &out})
	require.NoError(t, err)

	assert.Equal(t, "hi # there\n42", out.String())
	assert.True(t, m.Exited())
	assert.Equal(t, uint32(StackTop), m.SP())

	v, ok := m.Reg("$t0")
	assert.True(t, ok)
	assert.Equal(t, int32(42), v)
}

func TestRunCallAndStack(t *testing.T) {
	text := `
	.text
main:
	li    $t0, 7
	sw    $t0, 0($sp)
	subu  $sp, $sp, 4
	jal   double
	addu  $sp, $sp, 4
	move  $a0, $v0
	li    $v0, 1
	syscall
	li    $v0, 10
	syscall
double:
	lw    $t0, 4($sp)
	add   $v0, $t0, $t0
	jr    $ra
`

	var out bytes.Buffer

	m, err := Run(context.Background(), []byte(text), Config{Output: &out})
	require.NoError(t, err)

	assert.Equal(t, "14", out.String())
	assert.Equal(t, uint32(StackTop), m.SP())
}

func TestRunBranchesAndMath(t *testing.T) {
	text := `
main:
	li    $t0, -7
	li    $t1, 2
	div   $t0, $t1
	mflo  $a0
	mfhi  $t2
	li    $v0, 1
	syscall
	move  $a0, $t2
	syscall
	blt   $t0, $t1, less
	li    $a0, 0
	b     done
less:
	li    $a0, 1
done:
	syscall
	xori  $a0, $a0, 1
	syscall
	li    $v0, 10
	syscall
`

	var out bytes.Buffer

	_, err := Run(context.Background(), []byte(text), Config{Output: &out})
	require.NoError(t, err)

	assert.Equal(t, "-3-110", out.String())
}

func TestRunReadInt(t *testing.T) {
	text := `
__start:
	li    $v0, 5
	syscall
	move  $a0, $v0
	li    $v0, 1
	syscall
	li    $v0, 10
	syscall
`

	var out bytes.Buffer

	_, err := Run(context.Background(), []byte(text), Config{Input: strings.NewReader("  -12\n"), Output: &out})
	require.NoError(t, err)
	assert.Equal(t, "-12", out.String())

	_, err = Run(context.Background(), []byte(text), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read int: no input")
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()

	m, err := Run(ctx, []byte("main:\n\tb main\n"), Config{MaxSteps: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step limit exceeded")
	assert.Equal(t, 100, m.Steps())
	assert.False(t, m.Exited())

	_, err = Run(ctx, []byte("main:\n\tli $t0, 1\n\tli $t1, 0\n\tdiv $t0, $t1\n"), Config{})

	var re RuntimeError
	require.True(t, errors.As(err, &re), "%v", err)
	assert.Equal(t, 4, re.Line)
	assert.Equal(t, "div", re.Op)

	_, err = Run(ctx, []byte("main:\n\tlw $t0, 2($sp)\n"), Config{})
	require.True(t, errors.As(err, &re), "%v", err)
	assert.Contains(t, re.Error(), "unaligned load")

	_, err = Run(ctx, []byte("\tli $t0, 1\n"), Config{})
	assert.Error(t, err)

	_, err = Run(ctx, []byte("main:\n\tli $v0, 10\n"), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pc out of text")
}

func TestAssembleErrors(t *testing.T) {
	for _, tc := range []struct {
		text string
		line int
		msg  string
	}{
		{"main:\n\tfoo $t0\n", 2, `unsupported instruction "foo"`},
		{"\tli $t9x, 1\n", 1, `bad register`},
		{"a:\na:\n", 2, `duplicate label "a"`},
		{"\tli $t0, $t1\n", 1, "li: bad operand 2"},
		{"\tadd $t0, $t1\n", 1, "add: want 3 operands, got 2"},
		{"\t.data\n\t.asciiz \"a\\q\"\n", 2, `bad escape`},
		{"\t.data\n\t.quad 1\n", 2, `unsupported data directive`},
	} {
		_, err := Assemble([]byte(tc.text))

		var se SyntaxError
		require.True(t, errors.As(err, &se), "%q: %v", tc.text, err)

		assert.Equal(t, tc.line, se.Line, "%q", tc.text)
		assert.Contains(t, se.Msg, tc.msg, "%q", tc.text)
	}
}
