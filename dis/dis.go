// Package dis supports analysis of Zephyr bytecode by disassembling it.
// This works with the opcodes defined in the `op` package and uses the
// InstructionIter type from the `bytecode` package.
package dis

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/fatih/color"

	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/internal/table"
	"github.com/zephyr-lang/zephyr/op"
)

// Instruction represents a single decoded instruction plus the context
// needed to print it: its enclosing handler, a human annotation and the
// referenced constant, if any.
type Instruction struct {
	Offset     int
	Name       string
	Opcode     op.Code
	Prefixed   bool
	Operands   []int64
	Handler    int // index of the innermost enclosing handler, or -1
	Annotation string
	Constant   any
}

// Disassemble returns a parsed representation of the unit's instruction
// stream.
func Disassemble(unit *bytecode.Unit) ([]Instruction, error) {
	var instructions []Instruction
	iter := bytecode.NewInstructionIter(unit)
	for {
		decoded, ok, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		info := op.GetInfo(decoded.Opcode)
		var constant any
		var annotation string
		switch decoded.Opcode {
		case op.PushConst:
			constant = unit.ConstantAt(int(decoded.Operands[0]))
			annotation = fmt.Sprintf("%v", constant)
		case op.PushScope:
			desc := unit.ScopeConstant(int(decoded.Operands[0]))
			annotation = fmt.Sprintf("scope[%d slots]", desc.SlotCount())
		case op.MakeClosure:
			constant = unit.UnitConstant(int(decoded.Operands[0]))
		case op.GetPropertyByName, op.SetPropertyByName:
			annotation = unit.StringConstant(int(decoded.Operands[0]))
		case op.DefInitBinding, op.GetBinding, op.SetBinding:
			annotation = unit.BindingAt(int(decoded.Operands[0])).String()
		case op.PushFloat64:
			annotation = fmt.Sprintf("%v", decoded.Float64Operand(0))
		}
		instructions = append(instructions, Instruction{
			Offset:     decoded.Offset,
			Name:       info.Name,
			Opcode:     decoded.Opcode,
			Prefixed:   decoded.Prefixed,
			Operands:   decoded.Operands,
			Handler:    unit.HandlerIndexAt(decoded.Offset),
			Annotation: annotation,
			Constant:   constant,
		})
	}
	return instructions, nil
}

var (
	boldText    = color.New(color.Bold).SprintFunc()
	italicText  = color.New(color.Italic).SprintFunc()
	yellowText  = color.New(color.FgYellow).SprintFunc()
	greenText   = color.New(color.FgGreen).SprintFunc()
	magentaText = color.New(color.FgMagenta).SprintFunc()
	cyanText    = color.New(color.FgHiCyan).SprintFunc()
)

// Print writes a string representation of the given instructions to the
// given writer.
func Print(instructions []Instruction, writer io.Writer) {
	var lines [][]string
	for i, instr := range instructions {
		handler := ""
		if instr.Handler >= 0 {
			handler = fmt.Sprintf("h%d", instr.Handler)
		}
		name := instr.Name
		if instr.Prefixed {
			name = "WIDE." + name
		}
		values := []string{
			fmt.Sprintf("%d", instr.Offset),
			fmt.Sprintf("%d", i),
			handler,
			boldText(name),
			formatOperands(instr.Operands),
		}
		if instr.Constant != nil {
			switch c := instr.Constant.(type) {
			case string:
				if len(c) > 80 {
					c = c[:77] + "..."
				}
				values = append(values, greenText(fmt.Sprintf("%q", c)))
			case *big.Int:
				values = append(values, yellowText(c.String()+"n"))
			case *bytecode.Unit:
				name := c.Name()
				if name == "" {
					name = italicText("<anonymous>")
				}
				values = append(values, magentaText("func:"+name))
			default:
				values = append(values, boldText(fmt.Sprintf("%v", c)))
			}
		} else if instr.Annotation != "" {
			values = append(values, cyanText(instr.Annotation))
		} else {
			values = append(values, "")
		}
		lines = append(lines, values)
	}

	table.NewTable(writer).
		WithHeader([]string{"OFFSET", "COUNT", "HANDLER", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignRight,
			table.AlignLeft,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}

// PrintUnit disassembles the unit and writes the full listing: code,
// handler table, binding table and a constant pool summary. Nested
// function units are listed recursively.
func PrintUnit(unit *bytecode.Unit, writer io.Writer) error {
	name := unit.Name()
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(writer, "unit %s (%d bytes, %d registers, %d params)\n",
		boldText(name), unit.CodeLength(), unit.RegisterCount(), unit.ParameterLength())

	instructions, err := Disassemble(unit)
	if err != nil {
		return err
	}
	Print(instructions, writer)

	if unit.HandlerCount() > 0 {
		fmt.Fprintln(writer, "\nhandlers:")
		var rows [][]string
		for i := 0; i < unit.HandlerCount(); i++ {
			h := unit.HandlerAt(i)
			kind := "catch"
			if h.Finally {
				kind = "finally"
			}
			rows = append(rows, []string{
				fmt.Sprintf("h%d", i),
				fmt.Sprintf("[%d, %d)", h.Start, h.End),
				kind,
				fmt.Sprintf("%d", h.ScopeCount),
				fmt.Sprintf("%d", h.StackCount),
			})
		}
		table.NewTable(writer).
			WithHeader([]string{"ID", "RANGE", "KIND", "SCOPES", "STACK"}).
			WithRows(rows).
			Render()
	}

	if unit.BindingCount() > 0 {
		fmt.Fprintln(writer, "\nbindings:")
		var rows [][]string
		for i := 0; i < unit.BindingCount(); i++ {
			rows = append(rows, []string{
				fmt.Sprintf("%d", i),
				unit.BindingAt(i).String(),
			})
		}
		table.NewTable(writer).
			WithHeader([]string{"INDEX", "LOCATOR"}).
			WithRows(rows).
			Render()
	}

	if unit.ConstantCount() > 0 {
		fmt.Fprintln(writer, "\nconstants:")
		var rows [][]string
		for i := 0; i < unit.ConstantCount(); i++ {
			kind, repr := describeConstant(unit.ConstantAt(i))
			rows = append(rows, []string{fmt.Sprintf("%d", i), kind, repr})
		}
		table.NewTable(writer).
			WithHeader([]string{"INDEX", "TYPE", "VALUE"}).
			WithRows(rows).
			Render()
	}

	for i := 0; i < unit.ConstantCount(); i++ {
		if child, ok := unit.ConstantAt(i).(*bytecode.Unit); ok {
			fmt.Fprintln(writer)
			if err := PrintUnit(child, writer); err != nil {
				return err
			}
		}
	}
	return nil
}

func describeConstant(c any) (kind, repr string) {
	switch c := c.(type) {
	case string:
		if len(c) > 60 {
			c = c[:57] + "..."
		}
		return "string", fmt.Sprintf("%q", c)
	case *big.Int:
		return "bigint", c.String() + "n"
	case *bytecode.Unit:
		name := c.Name()
		if name == "" {
			name = "<anonymous>"
		}
		return "unit", name
	case bytecode.ScopeDescriptor:
		return "scope", fmt.Sprintf("%s[%d slots]", c.Kind, c.SlotCount())
	default:
		return fmt.Sprintf("%T", c), fmt.Sprintf("%v", c)
	}
}

func formatOperands(operands []int64) string {
	var sb strings.Builder
	for i, operand := range operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d", operand)
	}
	return sb.String()
}
