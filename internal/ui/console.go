package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/vaultctl/internal/app"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// control is one focusable element of the console.
type control int

const (
	ctlConnect control = iota
	ctlNetwork
	ctlDisconnect
	ctlBalance
	ctlIsOwner
	ctlOwner
	ctlSend
	ctlSendAmount
	ctlWithdraw
	ctlWithdrawAmount
	ctlCount
)

// Approvals hands wallet approval requests from the provider to the
// console, which shows them as a modal and sends back the answer.
type Approvals struct {
	ch chan approvalMsg
}

// NewApprovals returns an Approvals broker.
func NewApprovals() *Approvals {
	return &Approvals{ch: make(chan approvalMsg)}
}

// Approve blocks until the console answers or ctx is done. It has the
// shape of provider.Approver.
func (a *Approvals) Approve(ctx context.Context, prompt string) bool {
	req := approvalMsg{prompt: prompt, reply: make(chan bool, 1)}
	select {
	case a.ch <- req:
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-req.reply:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (a *Approvals) next() tea.Cmd {
	return func() tea.Msg { return <-a.ch }
}

type approvalMsg struct {
	prompt string
	reply  chan bool
}

// stateMsg carries a fresh app snapshot.
type stateMsg app.State

type spinTickMsg struct{}

func spinTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg { return spinTickMsg{} })
}

// consoleModel is the Bubble Tea model of the vault console.
type consoleModel struct {
	app       *app.App
	ctx       context.Context
	approvals *Approvals
	dirty     <-chan struct{}

	state    app.State
	focus    control
	prompts  []approvalMsg
	frame    int
	ticking  bool
	quitting bool
}

func newConsole(ctx context.Context, a *app.App, approvals *Approvals, dirty <-chan struct{}) consoleModel {
	return consoleModel{
		app:       a,
		ctx:       ctx,
		approvals: approvals,
		dirty:     dirty,
		state:     a.Snapshot(),
	}
}

// RunConsole runs the interactive console until the user quits.
func RunConsole(ctx context.Context, a *app.App, approvals *Approvals) error {
	dirty := make(chan struct{}, 1)
	unsubscribe := a.Subscribe(func(app.State) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	p := tea.NewProgram(newConsole(ctx, a, approvals, dirty), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

func (m consoleModel) waitState() tea.Cmd {
	if m.dirty == nil {
		return nil
	}
	a := m.app
	dirty := m.dirty
	return func() tea.Msg {
		<-dirty
		return stateMsg(a.Snapshot())
	}
}

func (m consoleModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitState()}
	if m.approvals != nil {
		cmds = append(cmds, m.approvals.next())
	}
	return tea.Batch(cmds...)
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = app.State(msg)
		tick := m.startTicking()
		return m, tea.Batch(m.waitState(), tick)

	case approvalMsg:
		m.prompts = append(m.prompts, msg)
		return m, m.approvals.next()

	case spinTickMsg:
		m.frame++
		if m.state.Pending == 0 {
			m.ticking = false
			return m, nil
		}
		return m, spinTick()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}
		if len(m.prompts) > 0 {
			return m.answer(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *consoleModel) startTicking() tea.Cmd {
	if m.ticking || m.state.Pending == 0 {
		return nil
	}
	m.ticking = true
	return spinTick()
}

func (m consoleModel) quit() (tea.Model, tea.Cmd) {
	for _, p := range m.prompts {
		p.reply <- false
	}
	m.prompts = nil
	m.quitting = true
	return m, tea.Quit
}

// answer resolves the oldest pending approval.
func (m consoleModel) answer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var ok bool
	switch msg.String() {
	case "y", "Y", "enter":
		ok = true
	case "n", "N", "esc":
		ok = false
	default:
		return m, nil
	}
	m.prompts[0].reply <- ok
	m.prompts = m.prompts[1:]
	return m, nil
}

func (m consoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "shift+tab":
		m.focus = m.step(-1)
		return m, nil
	case "down", "tab":
		m.focus = m.step(1)
		return m, nil
	case "enter":
		return m, m.activate(m.focus)
	}

	if m.focus == ctlSendAmount || m.focus == ctlWithdrawAmount {
		return m.edit(msg), nil
	}

	switch msg.String() {
	case "q", "esc":
		return m.quit()
	case " ":
		return m, m.activate(m.focus)
	}
	return m, nil
}

// edit applies a keystroke to the focused amount input.
func (m consoleModel) edit(msg tea.KeyMsg) consoleModel {
	field := &m.state.SendAmount
	set := m.app.SetSendAmount
	if m.focus == ctlWithdrawAmount {
		field = &m.state.WithdrawAmount
		set = m.app.SetWithdrawAmount
	}

	switch msg.Type {
	case tea.KeyBackspace:
		if r := []rune(*field); len(r) > 0 {
			*field = string(r[:len(r)-1])
		}
	case tea.KeyRunes:
		*field += string(msg.Runes)
	default:
		return m
	}
	set(*field)
	return m
}

// visible reports whether c is shown for the current state.
func (m consoleModel) visible(c control) bool {
	switch c {
	case ctlNetwork:
		return m.state.Network != "" || m.state.TargetNetwork != ""
	case ctlDisconnect:
		return m.state.Connected()
	}
	return true
}

// step moves focus by dir, skipping hidden controls.
func (m consoleModel) step(dir int) control {
	c := m.focus
	for i := 0; i < int(ctlCount); i++ {
		c = control((int(c) + dir + int(ctlCount)) % int(ctlCount))
		if m.visible(c) {
			return c
		}
	}
	return m.focus
}

// activate returns the command running the focused button's action.
func (m consoleModel) activate(c control) tea.Cmd {
	a, ctx := m.app, m.ctx
	var run func()
	switch c {
	case ctlConnect:
		run = func() { a.Connect(ctx) }
	case ctlNetwork:
		run = func() { a.SwitchNetwork(ctx) }
	case ctlDisconnect:
		run = a.Disconnect
	case ctlBalance:
		run = func() { a.CheckBalance(ctx) }
	case ctlIsOwner:
		run = func() { a.CheckIsOwner(ctx) }
	case ctlOwner:
		run = func() { a.CheckContractOwner(ctx) }
	case ctlSend, ctlSendAmount:
		run = func() { a.Send(ctx) }
	case ctlWithdraw, ctlWithdrawAmount:
		run = func() { a.Withdraw(ctx) }
	default:
		return nil
	}
	return func() tea.Msg {
		run()
		return nil
	}
}

func (m consoleModel) View() string {
	if m.quitting {
		return ""
	}
	st := m.state

	var sb strings.Builder
	sb.WriteString(Banner() + "\n\n")

	// Wallet section.
	connectLabel := "Connect Wallet"
	if st.Connected() {
		connectLabel = "Connected: " + ShortAddr(st.Account)
	}
	line := m.button(ctlConnect, connectLabel)
	if st.Balance != "" {
		line += "  " + Meta("Balance: ") + Val(st.Balance)
	}
	sb.WriteString(line + "\n")

	if m.visible(ctlNetwork) {
		name := st.Network
		if name == "" {
			name = st.TargetNetwork
		}
		sb.WriteString(m.button(ctlNetwork, "Network: "+name) + "\n")
	}
	if m.visible(ctlDisconnect) {
		sb.WriteString(m.button(ctlDisconnect, "Disconnect") + "\n")
	}

	// Contract section.
	sb.WriteString("\n" + StyleTitle.Render("Vault contract "+Addr(ShortAddr(m.app.Contract().Hex()))) + "\n")

	line = m.button(ctlBalance, "Check Balance")
	if st.ContractBalance != "" {
		line += "  " + Meta("Balance: ") + Val(st.ContractBalance)
	}
	sb.WriteString(line + "\n")

	isOwner := st.IsOwner
	if isOwner == "" {
		isOwner = "false"
	}
	sb.WriteString(m.button(ctlIsOwner, "Check Is Owner") + "  " + Meta("isOwner: ") + Val(isOwner) + "\n")
	sb.WriteString(m.button(ctlOwner, "Check Contract Owner") + "  " + Meta("Contract owner: ") + Addr(st.ContractOwner) + "\n\n")

	sb.WriteString(m.button(ctlSend, "Send Money to Contract") + "  " + m.input(ctlSendAmount, st.SendAmount) + "\n")
	sb.WriteString(m.button(ctlWithdraw, "Withdraw Money from Contract") + "  " + m.input(ctlWithdrawAmount, st.WithdrawAmount) + "\n")

	if st.Pending > 0 {
		sb.WriteString("\n" + StyleWarning.Render(fmt.Sprintf("%s %d transaction(s) pending", Frame(m.frame), st.Pending)) + "\n")
	}
	if st.LastTx != "" {
		sb.WriteString("\n" + Meta("Last tx: ") + Addr(st.LastTx) + "\n")
	}

	sb.WriteString("\n" + Meta("[ ↑↓ / tab ] move   [ enter ] press   [ q ] quit"))

	view := sb.String()
	if len(m.prompts) > 0 {
		modal := StyleModal.Render(
			StyleWarning.Render("Wallet approval") + "\n\n" +
				m.prompts[0].prompt + "\n\n" +
				Meta("[ y ] approve   [ n ] reject"))
		view = lipgloss.JoinVertical(lipgloss.Left, view, "", modal)
	}
	return view
}

func (m consoleModel) button(c control, label string) string {
	if m.focus == c {
		return StyleButtonFocused.Render(label)
	}
	return StyleButton.Render(label)
}

func (m consoleModel) input(c control, value string) string {
	if m.focus == c {
		return StyleSelected.Render(" " + value + "█ ")
	}
	return StyleValue.Render("[" + value + "]")
}
