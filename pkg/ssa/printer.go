package ssa

import (
	"fmt"
	"strings"
)

// Print renders fn as a flat text listing, the debug-dump format
// cmd/arcc's --dssa flag prints before handing the Module to
// pkg/objemit. Mirrors the teacher's pkg/linear.Printer /
// pkg/asm.Printer convention of one exported function per IR stage
// rather than a Stringer on every instruction.
func Print(fn *Function) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s() {\n", fn.Name)
	for bi := range fn.Blocks {
		bd := &fn.Blocks[bi]
		fmt.Fprintf(&sb, "block%d(%s):\n", bi, formatParams(bd.Params))
		for _, inst := range bd.Insts {
			fmt.Fprintf(&sb, "    %s\n", formatInst(inst))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func formatParams(params []Value) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("v%d", p)
	}
	return strings.Join(parts, ", ")
}

func formatVals(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("v%d", v)
	}
	return strings.Join(parts, ", ")
}

func formatInst(inst Instruction) string {
	switch i := inst.(type) {
	case Iconst:
		return fmt.Sprintf("v%d = iconst %d", i.Dest, i.Imm)
	case Iadd:
		return fmt.Sprintf("v%d = iadd v%d, v%d", i.Dest, i.Lhs, i.Rhs)
	case Isub:
		return fmt.Sprintf("v%d = isub v%d, v%d", i.Dest, i.Lhs, i.Rhs)
	case Imul:
		return fmt.Sprintf("v%d = imul v%d, v%d", i.Dest, i.Lhs, i.Rhs)
	case Isdiv:
		return fmt.Sprintf("v%d = isdiv v%d, v%d", i.Dest, i.Lhs, i.Rhs)
	case Icmp:
		return fmt.Sprintf("v%d = icmp %s v%d, v%d", i.Dest, i.Cond, i.Lhs, i.Rhs)
	case Load:
		return fmt.Sprintf("v%d = load v%d+%d", i.Dest, i.Addr, i.Offset)
	case Store:
		return fmt.Sprintf("store v%d+%d, v%d", i.Addr, i.Offset, i.Src)
	case Call:
		return fmt.Sprintf("v%d = call v%d(%s)", i.Dest, i.Callee, formatVals(i.Args))
	case CallIndirect:
		return fmt.Sprintf("v%d = call_indirect v%d(%s)", i.Dest, i.Callee, formatVals(i.Args))
	case Jump:
		return fmt.Sprintf("jump block%d(%s)", i.Target, formatVals(i.BlockArgs))
	case Brif:
		return fmt.Sprintf("brif v%d, block%d(%s), block%d(%s)",
			i.Cond, i.IfTrue, formatVals(i.TrueArgs), i.IfFalse, formatVals(i.FalseArgs))
	case Return:
		if i.HasValue {
			return fmt.Sprintf("return v%d", i.Val)
		}
		return "return"
	case FuncAddr:
		return fmt.Sprintf("v%d = func_addr %d", i.Dest, i.Ref)
	case GlobalValue:
		return fmt.Sprintf("v%d = global_value %d", i.Dest, i.Ref)
	default:
		return fmt.Sprintf("<unknown %T>", inst)
	}
}
