package bytecode

import (
	"fmt"
	"strings"
)

// AOTCompiler translates a program to a standalone Go main package.
// The generated code eliminates interpreter dispatch: runs of the same
// arithmetic or move instruction fold into one statement and loops become
// Go for statements. Failures print the same message the interpreter's
// RuntimeError would.
type AOTCompiler struct {
	sb     strings.Builder
	indent int
	prog   *Program
}

// NewAOTCompiler creates a new AOT compiler.
func NewAOTCompiler() *AOTCompiler {
	return &AOTCompiler{}
}

// CompileProgram generates Go source for p. name appears in the header.
func (c *AOTCompiler) CompileProgram(p *Program, name string) string {
	c.sb.Reset()
	c.indent = 0
	c.prog = p

	if name == "" {
		name = "program"
	}
	c.writeLine("// Code generated by tape aot from %q. DO NOT EDIT.", name)
	c.writeLine("")
	c.writeLine("package main")
	c.writeLine("")
	c.writeLine("import (")
	c.writeLine("\t\"bufio\"")
	c.writeLine("\t\"errors\"")
	c.writeLine("\t\"fmt\"")
	c.writeLine("\t\"io\"")
	c.writeLine("\t\"os\"")
	c.writeLine(")")
	c.writeLine("")
	c.writeLine("const tapeSize = %d", TapeSize)
	c.writeLine("")
	c.writePrelude()

	c.writeLine("func run(in *bufio.Reader, out *bufio.Writer) (err error) {")
	c.indent++
	c.writeLine("defer func() {")
	c.writeLine("\tif ferr := out.Flush(); ferr != nil && err == nil {")
	c.writeLine("\t\terr = ferr")
	c.writeLine("\t}")
	c.writeLine("}()")
	c.writeLine("")
	c.writeLine("tape := make([]byte, tapeSize)")
	c.writeLine("dp := 0")
	c.writeLine("_, _ = tape, dp")
	c.writeLine("")

	c.compileCode()

	c.writeLine("return nil")
	c.indent--
	c.writeLine("}")

	return c.sb.String()
}

// writePrelude emits main and the runtime helpers shared by every program.
func (c *AOTCompiler) writePrelude() {
	c.writeLine("var (")
	c.writeLine("\terrUnderflow = errors.New(%q)", ErrTapeUnderflow.Error())
	c.writeLine("\terrOverflow  = errors.New(%q)", ErrTapeOverflow.Error())
	c.writeLine("\terrExhausted = errors.New(%q)", ErrInputExhausted.Error())
	c.writeLine(")")
	c.writeLine("")
	c.writeLine("func main() {")
	c.writeLine("\tif err := run(bufio.NewReader(os.Stdin), bufio.NewWriter(os.Stdout)); err != nil {")
	c.writeLine("\t\tfmt.Fprintf(os.Stderr, \"tape: %%v\\n\", err)")
	c.writeLine("\t\tos.Exit(1)")
	c.writeLine("\t}")
	c.writeLine("}")
	c.writeLine("")
	c.writeLine("func fault(op string, offset int, err error) error {")
	c.writeLine("\treturn fmt.Errorf(\"%%s at offset %%d: %%w\", op, offset, err)")
	c.writeLine("}")
	c.writeLine("")
	c.writeLine("func read(in *bufio.Reader, cell *byte, offset int) error {")
	c.writeLine("\tb, err := in.ReadByte()")
	c.writeLine("\tif errors.Is(err, io.EOF) {")
	c.writeLine("\t\treturn fault(%q, offset, fmt.Errorf(\"%%w: %%w\", errExhausted, io.ErrUnexpectedEOF))", OpIn.String())
	c.writeLine("\t}")
	c.writeLine("\tif err != nil {")
	c.writeLine("\t\treturn fault(%q, offset, err)", OpIn.String())
	c.writeLine("\t}")
	c.writeLine("\t*cell = b")
	c.writeLine("\treturn nil")
	c.writeLine("}")
	c.writeLine("")
}

// compileCode emits one statement per instruction run.
func (c *AOTCompiler) compileCode() {
	code := c.prog.code
	pos := 0
	for pos < len(code) {
		op := Opcode(code[pos])
		start := pos
		pos++

		switch op {
		case OpInc, OpDec, OpRight, OpLeft:
			for pos < len(code) && Opcode(code[pos]) == op {
				pos++
			}
			c.compileRun(op, start, pos-start)

		case OpOut:
			c.writeLine("if err := out.WriteByte(tape[dp]); err != nil {")
			c.writeLine("\treturn fault(%q, %d, err)", OpOut.String(), start)
			c.writeLine("}")

		case OpIn:
			c.writeLine("if err := read(in, &tape[dp], %d); err != nil {", start)
			c.writeLine("\treturn err")
			c.writeLine("}")

		case OpLoopOpen:
			c.writeLine("for tape[dp] != 0 { // %06X", start)
			c.indent++

		case OpLoopClose:
			c.indent--
			c.writeLine("} // %06X", start)

		default:
			// Comment
		}
	}
}

// compileRun emits n consecutive copies of op starting at offset start.
func (c *AOTCompiler) compileRun(op Opcode, start, n int) {
	switch op {
	case OpInc:
		if k := n % 256; k != 0 {
			c.writeLine("tape[dp] += %d", k)
		}
	case OpDec:
		if k := n % 256; k != 0 {
			c.writeLine("tape[dp] -= %d", k)
		}
	case OpRight:
		// The first failing move is the one that would land on tapeSize.
		c.writeLine("if dp+%d >= tapeSize {", n)
		c.writeLine("\treturn fault(%q, %d+tapeSize-1-dp, errOverflow)", OpRight.String(), start)
		c.writeLine("}")
		c.writeLine("dp += %d", n)
	case OpLeft:
		c.writeLine("if dp < %d {", n)
		c.writeLine("\treturn fault(%q, %d+dp, errUnderflow)", OpLeft.String(), start)
		c.writeLine("}")
		c.writeLine("dp -= %d", n)
	}
}

func (c *AOTCompiler) writeLine(format string, args ...any) {
	c.sb.WriteString(strings.Repeat("\t", c.indent))
	c.sb.WriteString(fmt.Sprintf(format, args...))
	c.sb.WriteByte('\n')
}
