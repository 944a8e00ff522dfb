package main

import (
	"fmt"
	"strings"
)

// Op is the operation of one circuit statement.
type Op int

const (
	OpX Op = iota
	OpY
	OpZ
	OpH
	OpS
	OpSdg
	OpT
	OpTdg
	OpRZ   // Params[0] is the angle
	OpDiag // Params[0], Params[1] are the phases of |0> and |1>
	OpSetBit
	OpMeasure
	OpFreeBit
)

var opNames = map[Op]string{
	OpX:       "x",
	OpY:       "y",
	OpZ:       "z",
	OpH:       "h",
	OpS:       "s",
	OpSdg:     "sdg",
	OpT:       "t",
	OpTdg:     "tdg",
	OpRZ:      "rz",
	OpDiag:    "diag",
	OpSetBit:  "set",
	OpMeasure: "measure",
	OpFreeBit: "free",
}

func (o Op) String() string {
	return opNames[o]
}

// gateOps maps the command language's fixed gates to circuit operations.
var gateOps = map[GateKind]Op{
	GateX:   OpX,
	GateY:   OpY,
	GateZ:   OpZ,
	GateH:   OpH,
	GateS:   OpS,
	GateSdg: OpSdg,
	GateT:   OpT,
	GateTdg: OpTdg,
}

// Statement is one operation of a compiled circuit. It only ever refers
// to compiled qubit and bit indices.
type Statement struct {
	Op         Op
	Target     int       // qubit index; -1 for bit-only operations
	Controls   []int     // qubit indices that must all be |1>
	Conditions []int     // bit indices that must all read 1
	Params     []float64 // angles for OpRZ and OpDiag
	Bit        int       // bit index for OpSetBit, OpMeasure, OpFreeBit
	Value      bool      // value for OpSetBit
}

// Circuit is a compiled batch. The header counts include the qubits and
// bits carried over from previous batches, which occupy the lowest indices.
type Circuit struct {
	NumQubits  int
	NumBits    int
	PrevQubits int
	PrevBits   int
	Statements []Statement
}

// Empty reports whether executing the circuit would change nothing.
func (c *Circuit) Empty() bool {
	return c.NumQubits == c.PrevQubits && c.NumBits == c.PrevBits && len(c.Statements) == 0
}

// ToQASM renders the circuit as OpenQASM 3. Carried qubits and bits are
// declared like fresh ones; the header comment records how many there are.
func (c *Circuit) ToQASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 3.0;\n")
	sb.WriteString("include \"stdgates.inc\";\n\n")
	fmt.Fprintf(&sb, "// carried: %d qubits, %d bits\n", c.PrevQubits, c.PrevBits)
	fmt.Fprintf(&sb, "qubit[%d] q;\n", c.NumQubits)
	fmt.Fprintf(&sb, "bit[%d] c;\n\n", c.NumBits)

	for _, st := range c.Statements {
		writeStatementQASM(&sb, st)
	}
	return sb.String()
}

// writeStatementQASM writes a single statement's QASM representation.
func writeStatementQASM(sb *strings.Builder, st Statement) {
	if len(st.Conditions) > 0 {
		conds := make([]string, len(st.Conditions))
		for i, b := range st.Conditions {
			conds[i] = fmt.Sprintf("c[%d]", b)
		}
		fmt.Fprintf(sb, "if (%s) ", strings.Join(conds, " && "))
	}

	switch st.Op {
	case OpSetBit:
		fmt.Fprintf(sb, "c[%d] = %d;\n", st.Bit, bitDigit(st.Value))
		return
	case OpMeasure:
		fmt.Fprintf(sb, "c[%d] = measure q[%d];\n", st.Bit, st.Target)
		return
	case OpFreeBit:
		fmt.Fprintf(sb, "// free c[%d]\n", st.Bit)
		return
	}

	if len(st.Controls) == 1 {
		sb.WriteString("ctrl @ ")
	} else if len(st.Controls) > 1 {
		fmt.Fprintf(sb, "ctrl(%d) @ ", len(st.Controls))
	}

	sb.WriteString(st.Op.String())
	if len(st.Params) > 0 {
		params := make([]string, len(st.Params))
		for i, p := range st.Params {
			params[i] = formatParam(p)
		}
		fmt.Fprintf(sb, "(%s)", strings.Join(params, ", "))
	}

	for i, ctrl := range st.Controls {
		if i == 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(sb, "q[%d], ", ctrl)
	}
	if len(st.Controls) == 0 {
		sb.WriteString(" ")
	}
	fmt.Fprintf(sb, "q[%d];\n", st.Target)
}
