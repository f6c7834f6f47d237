package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/cartsync/internal/cart"
)

func newCouponInput() textinput.Model {
	in := textinput.New()
	in.Placeholder = "WELCOME10"
	in.Prompt = "Coupon: "
	in.CharLimit = 32
	in.Width = 24
	return in
}

func (m Model) handleCouponKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeCart
		m.couponInput.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		code := m.couponInput.Value()
		m.couponInput.Blur()
		return m, applyCouponCmd(m.ctx, m.engine, code)
	}

	var cmd tea.Cmd
	m.couponInput, cmd = m.couponInput.Update(msg)
	return m, cmd
}

// Delivery form field order.
const (
	fieldName = iota
	fieldPhone
	fieldAddress
	fieldNote
	fieldCount
)

var fieldLabels = [fieldCount]string{"Name", "Phone", "Address", "Note"}

// deliveryForm edits the customer and address fields of the order.
type deliveryForm struct {
	inputs    [fieldCount]textinput.Model
	focus     int
	orderType cart.OrderType
}

func newDeliveryForm() deliveryForm {
	var f deliveryForm
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 160
		in.Width = 40
		f.inputs[i] = in
	}
	f.inputs[fieldPhone].CharLimit = 20
	f.inputs[fieldAddress].Placeholder = "Street, district"
	f.inputs[fieldNote].Placeholder = "optional"
	f.orderType = cart.OrderDelivery
	return f
}

// open loads the saved details and focuses the first field.
func (f *deliveryForm) open(d cart.DeliveryDetails) tea.Cmd {
	f.inputs[fieldName].SetValue(d.CustomerName)
	f.inputs[fieldPhone].SetValue(d.CustomerPhone)
	f.inputs[fieldAddress].SetValue(d.DeliveryAddress)
	f.inputs[fieldNote].SetValue(d.DeliveryNote)
	f.orderType = d.OrderType
	if f.orderType == "" {
		f.orderType = cart.OrderDelivery
	}
	return f.setFocus(fieldName)
}

func (f *deliveryForm) setFocus(idx int) tea.Cmd {
	f.focus = (idx + fieldCount) % fieldCount
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.focus {
			cmd = f.inputs[i].Focus()
			continue
		}
		f.inputs[i].Blur()
	}
	return cmd
}

func (f *deliveryForm) blur() {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

func (f *deliveryForm) toggleOrderType() {
	if f.orderType == cart.OrderDineIn {
		f.orderType = cart.OrderDelivery
		return
	}
	f.orderType = cart.OrderDineIn
}

func (f deliveryForm) details() cart.DeliveryDetails {
	return cart.DeliveryDetails{
		OrderType:       f.orderType,
		CustomerName:    f.inputs[fieldName].Value(),
		CustomerPhone:   f.inputs[fieldPhone].Value(),
		DeliveryAddress: f.inputs[fieldAddress].Value(),
		DeliveryNote:    f.inputs[fieldNote].Value(),
	}
}

func (f *deliveryForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (m Model) handleDeliveryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeCart
		m.delivery.blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		if m.view.AddressSaving {
			return m, nil
		}
		return m, saveDeliveryCmd(m.ctx, m.engine, m.delivery.details())
	case key.Matches(msg, m.keys.OrderType):
		m.delivery.toggleOrderType()
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		return m, m.delivery.setFocus(m.delivery.focus + 1)
	case key.Matches(msg, m.keys.PrevField):
		return m, m.delivery.setFocus(m.delivery.focus - 1)
	}
	return m, m.delivery.update(msg)
}

func (m Model) renderCouponForm() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(m.couponInput.View())
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter apply · esc cancel"))
	return styles.FocusPanel.Render(b.String())
}

func (m Model) renderDeliveryForm() string {
	styles := m.theme.Styles()
	var b strings.Builder

	b.WriteString(styles.AccentText.Bold(true).Render("Delivery details"))
	b.WriteString("\n\n")

	order := "Delivery"
	if m.delivery.orderType == cart.OrderDineIn {
		order = "Dine-in"
	}
	b.WriteString(styles.MutedText.Render(padRight("Order", 10)))
	b.WriteString(styles.Text.Render(order))
	b.WriteString(styles.FaintText.Render("  (ctrl+t to switch)"))
	b.WriteString("\n")

	for i, in := range m.delivery.inputs {
		label := padRight(fieldLabels[i], 10)
		if i == m.delivery.focus {
			b.WriteString(styles.AccentText.Render(label))
		} else {
			b.WriteString(styles.MutedText.Render(label))
		}
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.view.AddressSaving {
		b.WriteString(styles.InfoText.Render("Saving…"))
	} else {
		b.WriteString(styles.FaintText.Render("tab next field · enter save · esc cancel"))
	}
	return styles.FocusPanel.Render(b.String())
}
