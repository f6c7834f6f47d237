package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/cartsync/internal/cart"
	"github.com/five82/cartsync/internal/coupon"
	"github.com/five82/cartsync/internal/logtail"
	"github.com/five82/cartsync/internal/notify"
	"github.com/five82/cartsync/internal/prefs"
	"github.com/five82/cartsync/internal/state"
)

// CartEngine is the part of the sync engine the view drives.
type CartEngine interface {
	View() state.View
	Refresh(ctx context.Context) error
	UpdateItemQuantity(lineID string, qty int) error
	RemoveItem(lineID string) error
	ApplyCoupon(ctx context.Context, code string) (coupon.Result, error)
	SaveDeliveryInfo(ctx context.Context, details cart.DeliveryDetails) error
	Close(ctx context.Context) error
}

// mode is the input surface that currently owns the keyboard.
type mode int

const (
	modeCart mode = iota
	modeCoupon
	modeDelivery
)

const (
	defaultPollTick     = 250 * time.Millisecond
	defaultCloseTimeout = 10 * time.Second
	toastLifetime       = 5 * time.Second
	activityLines       = 200
)

// Options configures the UI.
type Options struct {
	Context      context.Context
	Engine       CartEngine
	Feed         *notify.Feed
	LogFile      string
	PollTick     time.Duration
	CloseTimeout time.Duration
	ThemeName    string
	ShowHelp     bool // open the help overlay at startup
	PrefsPath    string
	Logger       *zap.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx          context.Context
	engine       CartEngine
	feed         *notify.Feed
	logFile      string
	prefsPath    string
	settings     prefs.Prefs
	logger       *zap.Logger
	pollTick     time.Duration
	closeTimeout time.Duration
	keys         keyMap

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	mode     mode
	showHelp bool
	closing  bool

	// Data state
	view     state.View
	toasts   []notify.Toast
	flash    string
	selected int

	// Activity pane
	showActivity bool
	activity     []logtail.Entry

	// Forms
	couponInput textinput.Model
	delivery    deliveryForm
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}

	closeTimeout := opts.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = defaultCloseTimeout
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	theme := GetTheme(opts.ThemeName)

	m := Model{
		ctx:          ctx,
		engine:       opts.Engine,
		feed:         opts.Feed,
		logFile:      opts.LogFile,
		prefsPath:    prefsPath,
		settings:     prefs.Prefs{Theme: theme.Name, ShowHelp: opts.ShowHelp},
		logger:       logger,
		pollTick:     pollTick,
		closeTimeout: closeTimeout,
		keys:         DefaultKeyMap(),
		theme:        theme,
		showHelp:     opts.ShowHelp,
		couponInput:  newCouponInput(),
		delivery:     newDeliveryForm(),
	}
	if m.engine != nil {
		m.view = m.engine.View()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.pollTick),
		fetchViewCmd(m.engine, m.feed),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case viewMsg:
		m.applyView(msg.view)
		m.toasts = msg.toasts
		return m, nil

	case activityMsg:
		m.activity = msg
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			m.flash = msg.err.Error()
		}
		if msg.closeForm && msg.err == nil {
			m.mode = modeCart
		}
		return m, fetchViewCmd(m.engine, m.feed)

	case closedMsg:
		if msg.err != nil {
			m.logger.Warn("cart engine close failed; pending edits may be lost", zap.Error(msg.err))
		}
		return m, tea.Quit
	}

	return m, m.updateInputs(msg)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.closing {
		return m.renderClosing()
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.closing {
		return m, nil
	}

	if msg.String() == "ctrl+c" {
		m.closing = true
		return m, closeCmd(m.ctx, m.engine, m.closeTimeout)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch m.mode {
	case modeCoupon:
		return m.handleCouponKey(msg)
	case modeDelivery:
		return m.handleDeliveryKey(msg)
	}

	m.flash = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closing = true
		return m, closeCmd(m.ctx, m.engine, m.closeTimeout)

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.settings.Theme = m.theme.Name
		if m.prefsPath != "" {
			if err := prefs.Save(m.prefsPath, m.settings); err != nil {
				m.logger.Warn("save prefs failed", zap.Error(err))
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, refreshCmd(m.ctx, m.engine)

	case key.Matches(msg, m.keys.Activity):
		m.showActivity = !m.showActivity
		if m.showActivity {
			return m, fetchActivityCmd(m.logFile)
		}
		return m, nil

	case key.Matches(msg, m.keys.Coupon):
		if m.view.CouponStatus == state.CouponPending {
			return m, nil
		}
		m.mode = modeCoupon
		m.couponInput.SetValue(m.view.CouponCode)
		m.couponInput.CursorEnd()
		return m, m.couponInput.Focus()

	case key.Matches(msg, m.keys.Delivery):
		if m.view.AddressSaving {
			return m, nil
		}
		m.mode = modeDelivery
		return m, m.delivery.open(m.view.Snapshot.Details())
	}

	return m.handleCartKey(msg)
}

// handleCartKey moves the selection and edits quantities.
func (m Model) handleCartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.view.Items)
	if count == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selected < count-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selected = count - 1
	case key.Matches(msg, m.keys.Increase):
		line := m.view.Items[m.selected]
		m.edit(m.engine.UpdateItemQuantity(line.ID, line.Quantity+1))
	case key.Matches(msg, m.keys.Decrease):
		line := m.view.Items[m.selected]
		m.edit(m.engine.UpdateItemQuantity(line.ID, line.Quantity-1))
	case key.Matches(msg, m.keys.Remove):
		m.edit(m.engine.RemoveItem(m.view.Items[m.selected].ID))
	}
	return m, nil
}

// edit records the outcome of a local edit and picks up the optimistic state.
func (m *Model) edit(err error) {
	if err != nil {
		m.flash = err.Error()
	}
	m.applyView(m.engine.View())
}

func (m *Model) applyView(v state.View) {
	m.view = v
	if m.selected >= len(v.Items) {
		m.selected = len(v.Items) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{fetchViewCmd(m.engine, m.feed)}
	if m.showActivity {
		cmds = append(cmds, fetchActivityCmd(m.logFile))
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	switch m.mode {
	case modeCoupon:
		var cmd tea.Cmd
		m.couponInput, cmd = m.couponInput.Update(msg)
		return cmd
	case modeDelivery:
		return m.delivery.update(msg)
	}
	return nil
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderContent())

	if toasts := m.renderToasts(); toasts != "" {
		b.WriteString("\n")
		b.WriteString(toasts)
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderContent() string {
	switch m.mode {
	case modeCoupon:
		return m.renderCart() + "\n" + m.renderCouponForm()
	case modeDelivery:
		return m.renderDeliveryForm()
	}
	if m.showActivity {
		return m.renderCart() + "\n" + m.renderActivity()
	}
	return m.renderCart()
}

// Messages

type tickMsg time.Time

type viewMsg struct {
	view   state.View
	toasts []notify.Toast
}

type activityMsg []logtail.Entry

type opDoneMsg struct {
	err       error
	closeForm bool
}

type closedMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchViewCmd(engine CartEngine, feed *notify.Feed) tea.Cmd {
	if engine == nil {
		return nil
	}
	return func() tea.Msg {
		msg := viewMsg{view: engine.View()}
		if feed != nil {
			msg.toasts = feed.Recent(toastLifetime)
		}
		return msg
	}
}

func fetchActivityCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, activityLines)
		if err != nil {
			return activityMsg{{Level: "error", Message: err.Error()}}
		}
		return activityMsg(entries)
	}
}

func refreshCmd(ctx context.Context, engine CartEngine) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: engine.Refresh(ctx)}
	}
}

func applyCouponCmd(ctx context.Context, engine CartEngine, code string) tea.Cmd {
	return func() tea.Msg {
		_, err := engine.ApplyCoupon(ctx, code)
		return opDoneMsg{err: err, closeForm: true}
	}
}

func saveDeliveryCmd(ctx context.Context, engine CartEngine, details cart.DeliveryDetails) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: engine.SaveDeliveryInfo(ctx, details), closeForm: true}
	}
}

// closeCmd flushes pending edits before the program exits.
func closeCmd(ctx context.Context, engine CartEngine, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		if engine == nil {
			return closedMsg{}
		}
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return closedMsg{err: engine.Close(closeCtx)}
	}
}

// Run starts the Bubble Tea program. Cancelling the context ends it
// without an error.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
