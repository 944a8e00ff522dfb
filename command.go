package main

// Register is a session-local handle naming a bit or qubit slot.
type Register int

// GateKind identifies a fixed single-qubit gate.
type GateKind int

const (
	GateX GateKind = iota
	GateY
	GateZ
	GateH
	GateS
	GateSdg
	GateT
	GateTdg
)

var gateNames = map[GateKind]string{
	GateX:   "X",
	GateY:   "Y",
	GateZ:   "Z",
	GateH:   "H",
	GateS:   "S",
	GateSdg: "S*",
	GateT:   "T",
	GateTdg: "T*",
}

func (k GateKind) String() string {
	return gateNames[k]
}

// Command is one parsed line of the command language. The set of
// implementations is closed; every dispatch site switches over all of them.
type Command interface {
	// Op returns the operator as written on the wire.
	Op() string
	command()
}

type (
	// Empty is a comment or blank line.
	Empty struct{}
	// Help requests the command reference.
	Help struct{}
	// Reset clears the session.
	Reset struct{}
	// Fresh asks for the lowest unused register.
	Fresh struct{}
	// Dump requests a snapshot of registers and backend state.
	Dump struct{}
	// Quit ends the session.
	Quit struct{}

	// NewQubit allocates a qubit in state |Value>.
	NewQubit struct {
		Reg   Register
		Value bool
	}

	// NewBit allocates a classical bit holding Value.
	NewBit struct {
		Reg   Register
		Value bool
	}

	// Promote turns a bit register into a qubit in the matching basis state.
	Promote struct{ Reg Register }

	// Measure turns a qubit register into a bit holding the outcome.
	Measure struct{ Reg Register }

	// Read measures if needed, replies with the bit and removes the register.
	Read struct{ Reg Register }

	// Discard measures if needed and removes the register.
	Discard struct{ Reg Register }

	// Gate applies a fixed single-qubit gate. Controls may be qubits or bits.
	Gate struct {
		Kind     GateKind
		Target   Register
		Controls []Register
	}

	// Rot applies a Z rotation by Angle radians.
	Rot struct {
		Angle    float64
		Target   Register
		Controls []Register
	}

	// Diag applies diag(e^{iA}, e^{iB}).
	Diag struct {
		A, B     float64
		Target   Register
		Controls []Register
	}

	// Controlled applies Kind (X, Y or Z) to Target controlled by the qubit
	// Control. Conditions are classical bits that must all be set.
	Controlled struct {
		Kind       GateKind
		Target     Register
		Control    Register
		Conditions []Register
	}

	// CRot applies a Z rotation to Target controlled by the qubit Control.
	CRot struct {
		Angle      float64
		Target     Register
		Control    Register
		Conditions []Register
	}

	// Toffoli flips Target when both qubit controls are set.
	Toffoli struct {
		Target     Register
		Control1   Register
		Control2   Register
		Conditions []Register
	}
)

func (Empty) Op() string { return "#" }
func (Help) Op() string { return "help" }
func (Reset) Op() string { return "reset" }
func (Fresh) Op() string { return "fresh" }
func (Dump) Op() string { return "dump" }
func (Quit) Op() string { return "quit" }
func (NewQubit) Op() string { return "Q" }
func (NewBit) Op() string { return "B" }
func (Promote) Op() string { return "N" }
func (Measure) Op() string { return "M" }
func (Read) Op() string { return "R" }
func (Discard) Op() string { return "D" }
func (g Gate) Op() string { return g.Kind.String() }
func (Rot) Op() string { return "ROT" }
func (Diag) Op() string { return "DIAG" }
func (CRot) Op() string { return "CROT" }
func (Toffoli) Op() string { return "TOF" }

func (c Controlled) Op() string {
	switch c.Kind {
	case GateZ:
		return "CZ"
	case GateY:
		return "CY"
	default:
		return "CNOT"
	}
}

func (Empty) command() {}
func (Help) command() {}
func (Reset) command() {}
func (Fresh) command() {}
func (Dump) command() {}
func (Quit) command() {}
func (NewQubit) command() {}
func (NewBit) command() {}
func (Promote) command() {}
func (Measure) command() {}
func (Read) command() {}
func (Discard) command() {}
func (Gate) command() {}
func (Rot) command() {}
func (Diag) command() {}
func (Controlled) command() {}
func (CRot) command() {}
func (Toffoli) command() {}
