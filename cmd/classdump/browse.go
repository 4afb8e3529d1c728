// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	classfile "github.com/gojvm/classfile"
)

// opcodeNames maps JVM opcodes to their mnemonics for the disassembler
// and the bytecode browser tab.
var opcodeNames = [...]string{
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2",
	"iconst_3", "iconst_4", "iconst_5", "lconst_0", "lconst_1", "fconst_0",
	"fconst_1", "fconst_2", "dconst_0", "dconst_1", "bipush", "sipush",
	"ldc", "ldc_w", "ldc2_w", "iload", "lload", "fload", "dload", "aload",
	"iload_0", "iload_1", "iload_2", "iload_3", "lload_0", "lload_1",
	"lload_2", "lload_3", "fload_0", "fload_1", "fload_2", "fload_3",
	"dload_0", "dload_1", "dload_2", "dload_3", "aload_0", "aload_1",
	"aload_2", "aload_3", "iaload", "laload", "faload", "daload", "aaload",
	"baload", "caload", "saload", "istore", "lstore", "fstore", "dstore",
	"astore", "istore_0", "istore_1", "istore_2", "istore_3", "lstore_0",
	"lstore_1", "lstore_2", "lstore_3", "fstore_0", "fstore_1", "fstore_2",
	"fstore_3", "dstore_0", "dstore_1", "dstore_2", "dstore_3", "astore_0",
	"astore_1", "astore_2", "astore_3", "iastore", "lastore", "fastore",
	"dastore", "aastore", "bastore", "castore", "sastore", "pop", "pop2",
	"dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2", "swap",
	"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
	"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
	"ishl", "lshl", "ishr", "lshr", "iushr", "lushr", "iand", "land",
	"ior", "lor", "ixor", "lxor", "iinc", "i2l", "i2f", "i2d", "l2i",
	"l2f", "l2d", "f2i", "f2l", "f2d", "d2i", "d2l", "d2f", "i2b", "i2c",
	"i2s", "lcmp", "fcmpl", "fcmpg", "dcmpl", "dcmpg", "ifeq", "ifne",
	"iflt", "ifge", "ifgt", "ifle", "if_icmpeq", "if_icmpne", "if_icmplt",
	"if_icmpge", "if_icmpgt", "if_icmple", "if_acmpeq", "if_acmpne",
	"goto", "jsr", "ret", "tableswitch", "lookupswitch", "ireturn",
	"lreturn", "freturn", "dreturn", "areturn", "return", "getstatic",
	"putstatic", "getfield", "putfield", "invokevirtual", "invokespecial",
	"invokestatic", "invokeinterface", "invokedynamic", "new", "newarray",
	"anewarray", "arraylength", "athrow", "checkcast", "instanceof",
	"monitorenter", "monitorexit", "wide", "multianewarray", "ifnull",
	"ifnonnull", "goto_w", "jsr_w",
}

func opcodeName(opcode int) string {
	if opcode >= 0 && opcode < len(opcodeNames) {
		return opcodeNames[opcode]
	}
	return fmt.Sprintf("op_%d", opcode)
}

// disassembler renders one method body into mnemonic lines, appended to
// the owning methodSummary row.
type disassembler struct {
	classfile.MethodVisitorBase
	summary *classSummary
	index   int
	labels  map[*classfile.Label]int
}

func (d *disassembler) add(line string) {
	m := &d.summary.Methods[d.index]
	m.Instructions = append(m.Instructions, line)
}

func (d *disassembler) labelName(l *classfile.Label) string {
	if d.labels == nil {
		d.labels = make(map[*classfile.Label]int)
	}
	id, ok := d.labels[l]
	if !ok {
		id = len(d.labels)
		d.labels[l] = id
	}
	return fmt.Sprintf("L%d", id)
}

func (d *disassembler) VisitInsn(opcode int) { d.add(opcodeName(opcode)) }

func (d *disassembler) VisitIntInsn(opcode, operand int) {
	d.add(fmt.Sprintf("%s %d", opcodeName(opcode), operand))
}

func (d *disassembler) VisitVarInsn(opcode, varIndex int) {
	d.add(fmt.Sprintf("%s %d", opcodeName(opcode), varIndex))
}

func (d *disassembler) VisitTypeInsn(opcode int, typ string) {
	d.add(fmt.Sprintf("%s %s", opcodeName(opcode), typ))
}

func (d *disassembler) VisitFieldInsn(opcode int, owner, name, descriptor string) {
	d.add(fmt.Sprintf("%s %s.%s %s", opcodeName(opcode), owner, name, descriptor))
}

func (d *disassembler) VisitMethodInsn(opcode int, owner, name, descriptor string, isInterface bool) {
	d.add(fmt.Sprintf("%s %s.%s%s", opcodeName(opcode), owner, name, descriptor))
}

func (d *disassembler) VisitInvokeDynamicInsn(name, descriptor string, bootstrapMethodHandle classfile.Handle, bootstrapMethodArguments []interface{}) {
	d.add(fmt.Sprintf("invokedynamic %s%s via %s.%s", name, descriptor, bootstrapMethodHandle.Owner, bootstrapMethodHandle.Name))
}

func (d *disassembler) VisitJumpInsn(opcode int, label *classfile.Label) {
	d.add(fmt.Sprintf("%s %s", opcodeName(opcode), d.labelName(label)))
}

func (d *disassembler) VisitLabel(label *classfile.Label) {
	d.add(d.labelName(label) + ":")
}

func (d *disassembler) VisitLdcInsn(value interface{}) {
	d.add(fmt.Sprintf("ldc %v", value))
}

func (d *disassembler) VisitIincInsn(varIndex, increment int) {
	d.add(fmt.Sprintf("iinc %d %d", varIndex, increment))
}

func (d *disassembler) VisitTableSwitchInsn(min, max int, dflt *classfile.Label, labels []*classfile.Label) {
	d.add(fmt.Sprintf("tableswitch %d..%d default %s", min, max, d.labelName(dflt)))
}

func (d *disassembler) VisitLookupSwitchInsn(dflt *classfile.Label, keys []int, labels []*classfile.Label) {
	d.add(fmt.Sprintf("lookupswitch %d pairs default %s", len(keys), d.labelName(dflt)))
}

func (d *disassembler) VisitMultiANewArrayInsn(descriptor string, numDimensions int) {
	d.add(fmt.Sprintf("multianewarray %s %d", descriptor, numDimensions))
}

func (d *disassembler) VisitMaxs(maxStack, maxLocals int) {
	d.add(fmt.Sprintf("// max_stack=%d max_locals=%d", maxStack, maxLocals))
}

// --- interactive browser --------------------------------------------------

type browseTab int

const (
	fieldsTab browseTab = iota
	methodsTab
	bytecodeTab
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	tabStyle   = lipgloss.NewStyle().Padding(0, 1).Faint(true)
	activeTab  = lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true)
	baseStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

type browseModel struct {
	summary *classSummary

	currentTab browseTab
	fields     table.Model
	methods    table.Model
	bytecode   table.Model

	width, height int
}

func newBrowseModel(summary *classSummary) *browseModel {
	fieldRows := make([]table.Row, 0, len(summary.Fields))
	for _, f := range summary.Fields {
		fieldRows = append(fieldRows, table.Row{f.Access, f.Name, f.Descriptor, f.Signature})
	}
	fields := table.New(
		table.WithColumns([]table.Column{
			{Title: "Access", Width: 8},
			{Title: "Name", Width: 24},
			{Title: "Descriptor", Width: 32},
			{Title: "Signature", Width: 32},
		}),
		table.WithRows(fieldRows),
		table.WithFocused(true),
	)

	methodRows := make([]table.Row, 0, len(summary.Methods))
	for _, m := range summary.Methods {
		methodRows = append(methodRows, table.Row{m.Access, m.Name, m.Descriptor, fmt.Sprintf("%d insns", len(m.Instructions))})
	}
	methods := table.New(
		table.WithColumns([]table.Column{
			{Title: "Access", Width: 8},
			{Title: "Name", Width: 24},
			{Title: "Descriptor", Width: 40},
			{Title: "Body", Width: 12},
		}),
		table.WithRows(methodRows),
	)

	return &browseModel{summary: summary, fields: fields, methods: methods}
}

func (m *browseModel) Init() tea.Cmd { return nil }

func (m *browseModel) rebuildBytecode() {
	cursor := m.methods.Cursor()
	if cursor < 0 || cursor >= len(m.summary.Methods) {
		return
	}
	rows := make([]table.Row, 0, len(m.summary.Methods[cursor].Instructions))
	for i, insn := range m.summary.Methods[cursor].Instructions {
		rows = append(rows, table.Row{fmt.Sprintf("%d", i), insn})
	}
	m.bytecode = table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 6},
			{Title: "Instruction", Width: 72},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
	)
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "1":
			m.currentTab = fieldsTab
		case "2":
			m.currentTab = methodsTab
		case "enter":
			if m.currentTab == methodsTab {
				m.rebuildBytecode()
				m.currentTab = bytecodeTab
			}
		case "esc":
			if m.currentTab == bytecodeTab {
				m.currentTab = methodsTab
			}
		}
	}

	var cmd tea.Cmd
	switch m.currentTab {
	case fieldsTab:
		m.fields, cmd = m.fields.Update(msg)
	case methodsTab:
		m.methods, cmd = m.methods.Update(msg)
	case bytecodeTab:
		m.bytecode, cmd = m.bytecode.Update(msg)
	}
	return m, cmd
}

func (m *browseModel) View() string {
	title := titleStyle.Render(fmt.Sprintf("%s (major %d)  super %s", m.summary.Name, m.summary.Major, m.summary.SuperName))
	tabs := lipgloss.JoinHorizontal(lipgloss.Top,
		m.tabLabel("1 fields", fieldsTab),
		m.tabLabel("2 methods", methodsTab),
		m.tabLabel("enter bytecode", bytecodeTab),
	)
	var body string
	switch m.currentTab {
	case fieldsTab:
		body = baseStyle.Render(m.fields.View())
	case methodsTab:
		body = baseStyle.Render(m.methods.View())
	case bytecodeTab:
		body = baseStyle.Render(m.bytecode.View())
	}
	help := tabStyle.Render("q quit · enter open method · esc back")
	return lipgloss.JoinVertical(lipgloss.Left, title, tabs, body, help)
}

func (m *browseModel) tabLabel(label string, tab browseTab) string {
	if m.currentTab == tab {
		return activeTab.Render(label)
	}
	return tabStyle.Render(label)
}

var browseCmd = &cobra.Command{
	Use:   "browse [path to class file]",
	Short: "Browse a class file interactively",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		r, err := classfile.Open(args[0], &classfile.Options{})
		if err != nil {
			log.Fatalf("error while opening file: %s, reason: %v", args[0], err)
		}
		defer r.Close()
		summary := &classSummary{File: args[0]}
		if err := r.Accept(&summaryVisitor{summary: summary}, 0); err != nil {
			log.Fatalf("error while parsing file: %s, reason: %v", args[0], err)
		}
		if _, err := tea.NewProgram(newBrowseModel(summary), tea.WithAltScreen()).Run(); err != nil {
			log.Fatalf("browse UI error: %v", err)
		}
	},
}
