package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/cartsync/internal/cart"
	"github.com/five82/cartsync/internal/logtail"
	"github.com/five82/cartsync/internal/notify"
	"github.com/five82/cartsync/internal/state"
)

// Column widths for the cart table.
const (
	colName  = 28
	colQty   = 5
	colPrice = 12
	colTotal = 12
)

func (m Model) renderHeader() string {
	styles := m.theme.Styles()

	title := styles.Logo.Render("cartsync")
	order := titleCase(string(m.view.Snapshot.OrderType))
	if order == "" {
		order = "Order"
	}
	left := title + "  " + styles.MutedText.Render(order)
	if name := m.view.Snapshot.CustomerName; name != "" {
		left += styles.FaintText.Render(" · " + truncate(name, 24))
	}

	status := syncStatus(m.view)
	right := styles.StatusStyle(status).Render(statusLabel(status))
	if !m.view.LastUpdated.IsZero() {
		right = styles.FaintText.Render("updated "+m.view.LastUpdated.Format("15:04:05")) + " " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return styles.Header.Render(left + strings.Repeat(" ", gap) + right)
}

// syncStatus picks the badge shown in the header.
func syncStatus(v state.View) string {
	switch {
	case v.InitialLoading && v.Loading:
		return statusLoading
	case v.SyncingChanges:
		return statusSyncing
	case v.PendingSync:
		return statusWaiting
	case v.Error != "":
		return statusError
	default:
		return statusSynced
	}
}

func statusLabel(status string) string {
	switch status {
	case statusLoading:
		return "loading"
	case statusWaiting:
		return "waiting to sync…"
	case statusSyncing:
		return "syncing changes…"
	case statusError:
		return "out of sync"
	default:
		return "synced"
	}
}

// renderStatus shows the error line or the flash from the last action.
func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	switch {
	case m.view.Error != "":
		return styles.DangerText.Render(truncate(m.view.Error, maxInt(m.width-20, 20))) +
			styles.FaintText.Render("  press r to retry")
	case m.flash != "":
		return styles.WarningText.Render(m.flash)
	case m.view.Loading && !m.view.InitialLoading:
		return styles.InfoText.Render("Refreshing cart…")
	default:
		return ""
	}
}

func (m Model) renderCart() string {
	styles := m.theme.Styles()
	v := m.view

	if v.InitialLoading && v.Loading {
		return styles.Panel.Render(styles.MutedText.Render("Loading your cart…"))
	}
	if len(v.Items) == 0 {
		return styles.Panel.Render(styles.MutedText.Render("Your cart is empty."))
	}

	var b strings.Builder
	header := padRight("Item", colName) +
		padLeft("Qty", colQty) +
		padLeft("Price", colPrice) +
		padLeft("Subtotal", colTotal)
	b.WriteString(styles.FaintText.Render(header))
	b.WriteString("\n")

	for i, line := range v.Items {
		row := padRight(truncate(line.Name, colName-1), colName) +
			padLeft(fmt.Sprintf("%d", line.Quantity), colQty) +
			padLeft(cart.FormatAmount(line.Price), colPrice) +
			padLeft(cart.FormatAmount(line.Subtotal), colTotal)
		if i == m.selected {
			b.WriteString(styles.Selected.Render(row))
		} else {
			b.WriteString(styles.Text.Render(row))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderTotals())
	return styles.Panel.Render(b.String())
}

func (m Model) renderTotals() string {
	styles := m.theme.Styles()
	v := m.view
	width := colName + colQty + colPrice

	row := func(label string, amount cart.Amount, style lipgloss.Style) string {
		return styles.MutedText.Render(padRight(label, width)) +
			style.Render(padLeft(cart.FormatAmount(amount), colTotal)) + "\n"
	}

	var b strings.Builder
	b.WriteString(row("Subtotal", v.Subtotal, styles.Text))
	b.WriteString(row("Shipping", v.ShippingFee, styles.Text))
	if v.Discount > 0 {
		b.WriteString(row("Discount "+v.CouponCode, -v.Discount, styles.SuccessText))
	}
	b.WriteString(row("Total", v.Total, styles.Text.Bold(true)))

	switch v.CouponStatus {
	case state.CouponPending:
		b.WriteString(styles.InfoText.Render("Checking " + v.CouponCode + "…"))
	case state.CouponApplied:
		b.WriteString(styles.StatusStyle(statusApplied).Render(v.CouponCode))
		b.WriteString(" ")
		b.WriteString(styles.MutedText.Render(v.CouponMessage))
	case state.CouponFailed:
		b.WriteString(styles.StatusStyle(statusFailed).Render("coupon"))
		b.WriteString(" ")
		b.WriteString(styles.DangerText.Render(v.CouponMessage))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	styles := m.theme.Styles()
	lines := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		var style lipgloss.Style
		switch t.Kind {
		case notify.Success:
			style = styles.SuccessText
		case notify.Warning:
			style = styles.WarningText
		case notify.Error:
			style = styles.DangerText
		default:
			style = styles.InfoText
		}
		text := style.Render(t.Title)
		if t.Message != "" {
			text += styles.MutedText.Render(": " + t.Message)
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderActivity() string {
	styles := m.theme.Styles()
	height := 8
	if m.height > 30 {
		height = m.height / 3
	}

	entries := m.activity
	if len(entries) > height {
		entries = entries[len(entries)-height:]
	}

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Activity"))
	if len(entries) == 0 {
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render("No log entries yet."))
	}
	for _, e := range entries {
		b.WriteString("\n")
		line := truncate(logtail.Format(e), maxInt(m.width-6, 20))
		switch e.Level {
		case "error", "dpanic", "panic", "fatal":
			b.WriteString(styles.DangerText.Render(line))
		case "warn":
			b.WriteString(styles.WarningText.Render(line))
		case "debug":
			b.WriteString(styles.FaintText.Render(line))
		default:
			b.WriteString(styles.Text.Render(line))
		}
	}
	return styles.Panel.Render(b.String())
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	h := help.New()
	h.ShortSeparator = " · "
	h.Styles.ShortKey = styles.AccentText
	h.Styles.ShortDesc = styles.MutedText
	h.Styles.ShortSeparator = styles.FaintText
	return styles.Footer.Render(h.ShortHelpView(m.keys.ShortHelp()))
}

func (m Model) renderClosing() string {
	styles := m.theme.Styles()
	msg := "Saving your changes…"
	if !m.view.PendingSync && !m.view.SyncingChanges {
		msg = "Closing…"
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		styles.InfoText.Render(msg))
}
