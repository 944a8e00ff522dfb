package main

import (
	"strings"
)

// singleQubitGates maps the operators of the fixed single-qubit gates.
var singleQubitGates = map[string]GateKind{
	"X":  GateX,
	"Y":  GateY,
	"Z":  GateZ,
	"H":  GateH,
	"S":  GateS,
	"S*": GateSdg,
	"T":  GateT,
	"T*": GateTdg,
}

// twoQubitGates maps the operators of the qubit-controlled Pauli gates.
var twoQubitGates = map[string]GateKind{
	"CNOT": GateX,
	"CZ":   GateZ,
	"CY":   GateY,
}

// ParseCommand converts one line of text into a Command. Failures are
// returned as *ParseError.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return Empty{}, nil
	}

	fields := strings.Fields(line)
	p := argParser{op: fields[0], args: fields[1:]}

	switch p.op {
	case "help", "reset", "fresh", "dump", "quit":
		if len(p.args) > 0 {
			return nil, parseErrorf("Command %s takes no arguments", p.op)
		}
		switch p.op {
		case "help":
			return Help{}, nil
		case "reset":
			return Reset{}, nil
		case "fresh":
			return Fresh{}, nil
		case "dump":
			return Dump{}, nil
		default:
			return Quit{}, nil
		}

	case "Q", "B":
		reg, value, err := p.allocation()
		if err != nil {
			return nil, err
		}
		if p.op == "Q" {
			return NewQubit{Reg: reg, Value: value}, nil
		}
		return NewBit{Reg: reg, Value: value}, nil

	case "N", "M", "R", "D":
		if len(p.args) != 1 {
			return nil, parseErrorf("Command %s requires exactly one argument", p.op)
		}
		reg, err := p.register(0)
		if err != nil {
			return nil, err
		}
		switch p.op {
		case "N":
			return Promote{Reg: reg}, nil
		case "M":
			return Measure{Reg: reg}, nil
		case "R":
			return Read{Reg: reg}, nil
		default:
			return Discard{Reg: reg}, nil
		}

	case "ROT":
		if err := p.atLeast(2, "two"); err != nil {
			return nil, err
		}
		angle, err := p.float(0)
		if err != nil {
			return nil, err
		}
		regs, err := p.registers(1)
		if err != nil {
			return nil, err
		}
		return Rot{Angle: angle, Target: regs[0], Controls: regs[1:]}, nil

	case "DIAG":
		if err := p.atLeast(3, "three"); err != nil {
			return nil, err
		}
		a, err := p.float(0)
		if err != nil {
			return nil, err
		}
		b, err := p.float(1)
		if err != nil {
			return nil, err
		}
		regs, err := p.registers(2)
		if err != nil {
			return nil, err
		}
		return Diag{A: a, B: b, Target: regs[0], Controls: regs[1:]}, nil

	case "CROT":
		if err := p.atLeast(3, "three"); err != nil {
			return nil, err
		}
		angle, err := p.float(0)
		if err != nil {
			return nil, err
		}
		regs, err := p.registers(1)
		if err != nil {
			return nil, err
		}
		return CRot{Angle: angle, Target: regs[0], Control: regs[1], Conditions: regs[2:]}, nil

	case "TOF":
		if err := p.atLeast(3, "three"); err != nil {
			return nil, err
		}
		regs, err := p.registers(0)
		if err != nil {
			return nil, err
		}
		return Toffoli{Target: regs[0], Control1: regs[1], Control2: regs[2], Conditions: regs[3:]}, nil
	}

	if kind, ok := singleQubitGates[p.op]; ok {
		if err := p.atLeast(1, "one"); err != nil {
			return nil, err
		}
		regs, err := p.registers(0)
		if err != nil {
			return nil, err
		}
		return Gate{Kind: kind, Target: regs[0], Controls: regs[1:]}, nil
	}

	if kind, ok := twoQubitGates[p.op]; ok {
		if err := p.atLeast(2, "two"); err != nil {
			return nil, err
		}
		regs, err := p.registers(0)
		if err != nil {
			return nil, err
		}
		return Controlled{Kind: kind, Target: regs[0], Control: regs[1], Conditions: regs[2:]}, nil
	}

	return nil, parseErrorf("Unrecognized operation")
}

// argParser holds the operator and raw operand tokens of one line so that
// every error can name the operator.
type argParser struct {
	op   string
	args []string
}

func (p argParser) atLeast(n int, word string) error {
	if len(p.args) < n {
		return parseErrorf("Command %s requires at least %s argument%s", p.op, word, plural(n))
	}
	return nil
}

func (p argParser) register(i int) (Register, error) {
	reg, ok := parseRegister(p.args[i])
	if !ok {
		return 0, parseErrorf("Command %s: %s is not a natural number", p.op, p.args[i])
	}
	return reg, nil
}

// registers parses every operand from position from onwards.
func (p argParser) registers(from int) ([]Register, error) {
	regs := make([]Register, 0, len(p.args)-from)
	for i := from; i < len(p.args); i++ {
		reg, err := p.register(i)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func (p argParser) float(i int) (float64, error) {
	val, ok := parseAngle(p.args[i])
	if !ok {
		return 0, parseErrorf("Command %s: %s is not a number", p.op, p.args[i])
	}
	return val, nil
}

// allocation parses the operands of Q and B: a register optionally followed
// by the bit literal 0 or 1. A second operand that is not a bit literal
// does not match the two-argument form.
func (p argParser) allocation() (Register, bool, error) {
	switch len(p.args) {
	case 0:
		return 0, false, parseErrorf("Command %s requires an argument", p.op)
	case 1, 2:
		reg, err := p.register(0)
		if err != nil {
			return 0, false, err
		}
		if len(p.args) == 1 {
			return reg, false, nil
		}
		switch p.args[1] {
		case "0":
			return reg, false, nil
		case "1":
			return reg, true, nil
		}
	}
	return 0, false, parseErrorf("Command %s requires at most two arguments", p.op)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
