package main

import (
	"fmt"
	"strings"
)

// commandHelp describes one command for the help text.
type commandHelp struct {
	usage       string
	description string
}

// commandCategory groups related commands under a heading.
type commandCategory struct {
	name  string
	items []commandHelp
}

// commandCatalog lists every command the parser accepts.
var commandCatalog = []commandCategory{
	{
		name: "Control commands",
		items: []commandHelp{
			{usage: "help", description: "print usage information"},
			{usage: "reset", description: "reset the machine to the initial state"},
			{usage: "quit", description: "quit"},
			{usage: "fresh", description: "return the address of a free register"},
			{usage: "dump", description: "print registers and backend state"},
		},
	},
	{
		name: "QRAM commands",
		items: []commandHelp{
			{usage: "Q x", description: "initialize qubit x to |0>"},
			{usage: "Q x b", description: "initialize qubit x to |b>"},
			{usage: "B x", description: "initialize bit x to 0"},
			{usage: "B x b", description: "initialize bit x to b"},
			{usage: "N x", description: "initialize qubit from bit x"},
			{usage: "M x", description: "measure qubit x into bit x"},
			{usage: "D x", description: "discard bit or qubit x"},
			{usage: "R x", description: "read and discard bit or qubit x"},
		},
	},
	{
		name: "Gate operations",
		items: []commandHelp{
			{usage: "X x [ctrls]", description: "apply X-gate to qubit x"},
			{usage: "Y x [ctrls]", description: "apply Y-gate to qubit x"},
			{usage: "Z x [ctrls]", description: "apply Z-gate to qubit x"},
			{usage: "H x [ctrls]", description: "apply H-gate to qubit x"},
			{usage: "S x [ctrls]", description: "apply S-gate to qubit x"},
			{usage: "S* x [ctrls]", description: "apply S*-gate to qubit x"},
			{usage: "T x [ctrls]", description: "apply T-gate to qubit x"},
			{usage: "T* x [ctrls]", description: "apply T*-gate to qubit x"},
			{usage: "CNOT x y [bits]", description: "apply X to qubit x controlled by qubit y"},
			{usage: "TOF x y z [bits]", description: "apply X to qubit x controlled by qubits y and z"},
			{usage: "CZ x y [bits]", description: "apply Z to qubit x controlled by qubit y"},
			{usage: "CY x y [bits]", description: "apply Y to qubit x controlled by qubit y"},
			{usage: "DIAG a b x [ctrls]", description: "apply diag(e^ia, e^ib) to qubit x"},
			{usage: "ROT r x [ctrls]", description: "apply RZ gate with angle r to qubit x"},
			{usage: "CROT r x y [bits]", description: "apply RZ gate with angle r to qubit x controlled by qubit y"},
		},
	},
}

// helpText is the reply to the help command.
var helpText = renderHelp()

func renderHelp() string {
	width := 0
	for _, cat := range commandCatalog {
		for _, item := range cat.items {
			width = max(width, len(item.usage))
		}
	}

	var sb strings.Builder
	for _, cat := range commandCatalog {
		fmt.Fprintf(&sb, "\n%s:\n", cat.name)
		for _, item := range cat.items {
			fmt.Fprintf(&sb, "%-*s - %s\n", width, item.usage, item.description)
		}
	}
	sb.WriteString("\nControls are qubits (quantum control) or bits (classical control);\n")
	sb.WriteString("[bits] must be bits. Angles accept numbers and pi expressions like pi/4.\n\n")
	return sb.String()
}
