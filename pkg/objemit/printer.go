package objemit

import (
	"fmt"
	"strings"
)

// Print renders prog as GNU assembler (AArch64) text, following the
// teacher's pkg/asm.Printer / pkg/linear printer convention of one
// instruction per line with a tab-indented mnemonic.
func Print(prog *Program) string {
	var b strings.Builder
	for _, d := range prog.Data {
		fmt.Fprintf(&b, ".data\n%s:\n", d.Name)
		fmt.Fprintf(&b, "\t.byte %s\n", byteList(d.Init))
	}
	for _, imp := range prog.Imports {
		fmt.Fprintf(&b, ".extern %s\n", imp)
	}
	for _, fn := range prog.Functions {
		fmt.Fprintf(&b, ".text\n.globl %s\n%s:\n", fn.Name, fn.Name)
		for _, inst := range fn.Code {
			b.WriteString(formatInst(inst, fn.Name))
		}
	}
	return b.String()
}

func byteList(data []byte) string {
	parts := make([]string, len(data))
	for i, c := range data {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return strings.Join(parts, ", ")
}

func label(fn string, l Label) string {
	return fmt.Sprintf(".L%s_%d", fn, int(l))
}

func formatInst(inst Instruction, fn string) string {
	switch i := inst.(type) {
	case ADDi:
		return fmt.Sprintf("\tadd %s, %s, #%d\n", i.Rd, i.Rn, i.Imm)
	case SUBi:
		return fmt.Sprintf("\tsub %s, %s, #%d\n", i.Rd, i.Rn, i.Imm)
	case ADD:
		return fmt.Sprintf("\tadd %s, %s, %s\n", i.Rd, i.Rn, i.Rm)
	case SUB:
		return fmt.Sprintf("\tsub %s, %s, %s\n", i.Rd, i.Rn, i.Rm)
	case MUL:
		return fmt.Sprintf("\tmul %s, %s, %s\n", i.Rd, i.Rn, i.Rm)
	case SDIV:
		return fmt.Sprintf("\tsdiv %s, %s, %s\n", i.Rd, i.Rn, i.Rm)
	case CMP:
		return fmt.Sprintf("\tcmp %s, %s\n", i.Rn, i.Rm)
	case CSET:
		return fmt.Sprintf("\tcset %s, %s\n", i.Rd, i.Cond)
	case MOV:
		return fmt.Sprintf("\tmov %s, %s\n", i.Rd, i.Rm)
	case MOVi:
		return fmt.Sprintf("\tmov %s, #%d\n", i.Rd, i.Imm)
	case LDR:
		return fmt.Sprintf("\tldr %s, [%s, #%d]\n", i.Rt, i.Rn, i.Ofs)
	case STR:
		return fmt.Sprintf("\tstr %s, [%s, #%d]\n", i.Rt, i.Rn, i.Ofs)
	case ADR:
		return fmt.Sprintf("\tadr %s, %s\n", i.Rd, i.Target)
	case B:
		return fmt.Sprintf("\tb %s\n", label(fn, i.Target))
	case Bcond:
		return fmt.Sprintf("\tb.%s %s\n", i.Cond, label(fn, i.Target))
	case BL:
		return fmt.Sprintf("\tbl %s\n", i.Target)
	case BLR:
		return fmt.Sprintf("\tblr %s\n", i.Rn)
	case RET:
		return "\tret\n"
	case LabelDef:
		return fmt.Sprintf("%s:\n", label(fn, i.L))
	default:
		return fmt.Sprintf("\t// unknown instruction %T\n", inst)
	}
}
