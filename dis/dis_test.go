package dis

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/op"
)

func buildCallUnit(t *testing.T) *bytecode.Unit {
	t.Helper()
	b := bytecode.NewBuilder("f")
	b.SetThisMode(bytecode.ThisLexical)
	errIdx := b.Binding(bytecode.BindingLocator{Name: "error", Global: true})
	msgIdx := b.Constant("kaboom")
	b.EmitIndex(op.GetBinding, errIdx)
	b.EmitIndex(op.PushConst, msgIdx)
	b.EmitIndex(op.Call, 1)
	end := b.Offset()
	b.Emit(op.Pop)
	b.Emit(op.Return)
	b.AddHandler(bytecode.Handler{Start: 0, End: end})
	return b.MustBuild()
}

func TestPrintListing(t *testing.T) {
	// Disable colors for consistent test output
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	instructions, err := Disassemble(buildCallUnit(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	Print(instructions, &buf)

	expected := strings.TrimSpace(`
+--------+-------+---------+-------------+----------+--------------+
| OFFSET | COUNT | HANDLER |   OPCODE    | OPERANDS |     INFO     |
+--------+-------+---------+-------------+----------+--------------+
|      0 |     0 | h0      | GET_BINDING |        0 | error@global |
|      2 |     1 | h0      | PUSH_CONST  |        0 | "kaboom"     |
|      4 |     2 | h0      | CALL        |        1 |              |
|      6 |     3 |         | POP         |          |              |
|      7 |     4 |         | RETURN      |          |              |
+--------+-------+---------+-------------+----------+--------------+
`)
	require.Equal(t, expected+"\n", buf.String())
}

func TestDisassembleAnnotations(t *testing.T) {
	instructions, err := Disassemble(buildCallUnit(t))
	require.NoError(t, err)
	require.Len(t, instructions, 5)

	require.Equal(t, "GET_BINDING", instructions[0].Name)
	require.Equal(t, "error@global", instructions[0].Annotation)

	require.Equal(t, "PUSH_CONST", instructions[1].Name)
	require.Equal(t, "kaboom", instructions[1].Constant)

	// The handler column tracks the enclosing try region, which ends
	// before the POP.
	require.Equal(t, 0, instructions[2].Handler)
	require.Equal(t, -1, instructions[3].Handler)
	require.Equal(t, -1, instructions[4].Handler)
}

func TestDisassembleWidePrefix(t *testing.T) {
	b := bytecode.NewBuilder("wide")
	b.SetThisMode(bytecode.ThisLexical)
	var last int
	for i := 0; i < 300; i++ {
		last = b.Constant(fmt.Sprintf("s%d", i))
	}
	b.EmitIndex(op.PushConst, last)
	b.Emit(op.Return)

	instructions, err := Disassemble(b.MustBuild())
	require.NoError(t, err)
	require.Len(t, instructions, 2)
	require.True(t, instructions[0].Prefixed)
	require.Equal(t, int64(299), instructions[0].Operands[0])
	require.Equal(t, "s299", instructions[0].Constant)

	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()
	var buf bytes.Buffer
	Print(instructions, &buf)
	require.Contains(t, buf.String(), "WIDE.PUSH_CONST")
}

func TestPrintUnitFullListing(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	inner := bytecode.NewBuilder("helper")
	inner.SetThisMode(bytecode.ThisLexical)
	inner.Emit(op.PushOne)
	inner.Emit(op.Return)

	b := bytecode.NewBuilder("main")
	b.SetThisMode(bytecode.ThisLexical)
	uIdx := b.Constant(inner.MustBuild())
	b.EmitIndex(op.MakeClosure, uIdx)
	b.EmitIndex(op.Call, 0)
	end := b.Offset()
	b.Emit(op.Return)
	b.AddHandler(bytecode.Handler{Start: 0, End: end, Finally: true, StackCount: 1})

	var buf bytes.Buffer
	require.NoError(t, PrintUnit(b.MustBuild(), &buf))
	out := buf.String()

	require.Contains(t, out, "unit main")
	require.Contains(t, out, "func:helper")
	require.Contains(t, out, "handlers:")
	require.Contains(t, out, "finally")
	require.Contains(t, out, "[0, 4)")

	// Constant pool section lists the nested unit.
	require.Contains(t, out, "constants:")
	require.Contains(t, out, "| 0     | unit | helper |")

	// Nested units are listed after their parent.
	require.Contains(t, out, "unit helper")
	require.Contains(t, out, "PUSH_ONE")
}
