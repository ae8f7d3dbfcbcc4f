package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShakilAhmedRego/VMV5/client/internal/explorer"
	"github.com/ShakilAhmedRego/VMV5/models"
)

const (
	minVisibleRows  = 5
	chromeHeight    = 12
	previewFields   = 3
	maskedValue     = "•••"
	maxPreviewWidth = 24
)

// updateExplorerScreen обрабатывает клавиши на экране записей.
func (m *model) updateExplorerScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ex := m.explorer()
	records := ex.Records()

	switch msg.String() {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(records)-1 {
			m.cursor++
		}
	case " ":
		if m.cursor < len(records) {
			ex.Toggle(ex.RecordID(records[m.cursor]))
		}
	case "a":
		ex.SelectAll()
	case "c":
		ex.Clear()
	case "u", "enter":
		if !ex.SignedIn() {
			m.state = loginScreen
			return m, nil
		}
		if ex.Unlocking() {
			return m, nil
		}
		if !ex.CanAfford() {
			return m.setStatusMessage(fmt.Sprintf("Недостаточно кредитов: не хватает %d", ex.Shortfall()))
		}
		return m, m.unlockCmd()
	case "tab", "right", "l":
		return m.switchVertical(1)
	case "shift+tab", "left", "h":
		return m.switchVertical(-1)
	case "r":
		return m, m.loadCmd()
	case "i":
		if _, ok := m.sessions.CurrentUserID(); !ok {
			m.state = loginScreen
			m.focusedField = 0
			m.syncFocus()
		}
	case "o":
		if err := m.sessions.SignOut(); err != nil {
			m.err = err
			return m, nil
		}
		m.client.SetAuthToken("")
		// Без фонового наблюдателя сбрасываем модель сами
		if m.send == nil {
			ex.Reset()
		}
		return m.setStatusMessage("Выход выполнен")
	}
	return m, nil
}

func (m *model) switchVertical(step int) (tea.Model, tea.Cmd) {
	n := len(m.verticals)
	m.current = ((m.current+step)%n + n) % n
	m.cursor, m.offset = 0, 0
	m.err = m.explorer().Err()
	return m, m.loadCmd()
}

// viewExplorerScreen отображает вкладки вертикалей, записи и панель разблокировки.
func (m *model) viewExplorerScreen() string {
	ex := m.explorer()
	var b strings.Builder

	b.WriteString(m.viewTabs() + "\n\n")
	b.WriteString(m.viewRecords(ex) + "\n")
	b.WriteString(m.viewUnlockBar(ex) + "\n")

	if m.status != "" {
		b.WriteString(okStyle.Render(m.status) + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(describeError(m.err)) + "\n")
	}
	b.WriteString(subtleStyle.Render(
		"↑/↓ - выбор строки, Space - отметить, a - все, c - снять, u - разблокировать, " +
			"Tab - вертикаль, r - обновить, i - вход, o - выход, q - выход из программы"))
	return b.String()
}

func (m *model) viewTabs() string {
	n := len(m.verticals)
	label := func(v models.VerticalInfo) string {
		if v.Label != "" {
			return v.Label
		}
		return v.Key
	}
	cur := m.verticals[m.current]
	parts := []string{}
	if n > 1 {
		parts = append(parts, tabStyle.Render("◀ "+label(m.verticals[(m.current-1+n)%n])))
	}
	parts = append(parts, activeTab.Render(label(cur)))
	if n > 1 {
		parts = append(parts, tabStyle.Render(label(m.verticals[(m.current+1)%n])+" ▶"))
	}
	return titleStyle.Render("VMV") + " " + strings.Join(parts, " ") +
		subtleStyle.Render(fmt.Sprintf(" (%d/%d)", m.current+1, n))
}

func (m *model) viewRecords(ex *explorer.Explorer) string {
	records := ex.Records()
	if len(records) == 0 {
		return subtleStyle.Render("Записей нет") + "\n"
	}

	visible := m.height - chromeHeight
	if visible < minVisibleRows {
		visible = minVisibleRows
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	end := min(m.offset+visible, len(records))

	var b strings.Builder
	idField := ex.IDField()
	for i := m.offset; i < end; i++ {
		rec := records[i]
		id := ex.RecordID(rec)
		check := "[ ]"
		if ex.IsSelected(id) {
			check = "[x]"
		}
		lock := "🔒"
		unlocked := ex.Unlocked(id)
		if unlocked {
			lock = "🔓"
		}
		line := fmt.Sprintf("%s %s %s  %s", check, lock, id, preview(rec, idField, unlocked))
		switch {
		case i == m.cursor:
			line = cursorStyle.Render(line)
		case !unlocked:
			line = lockedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(subtleStyle.Render(fmt.Sprintf("%d-%d из %d (показаны первые %d)",
		m.offset+1, end, len(records), models.MaxRecords)) + "\n")
	return b.String()
}

// preview показывает несколько полей записи. Поля закрытых записей маскируются.
func preview(rec models.Record, idField string, unlocked bool) string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		if k != idField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > previewFields {
		keys = keys[:previewFields]
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := maskedValue
		if unlocked {
			v = fmt.Sprint(rec[k])
			if r := []rune(v); len(r) > maxPreviewWidth {
				v = string(r[:maxPreviewWidth-1]) + "…"
			}
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, "  ")
}

// viewUnlockBar отображает выбор, стоимость и баланс.
func (m *model) viewUnlockBar(ex *explorer.Explorer) string {
	if !ex.SignedIn() {
		return unlockBarBase.Render("Войдите, чтобы видеть баланс и разблокировать записи (i)")
	}
	balance, _ := ex.Balance()
	cost := ex.Cost()
	text := fmt.Sprintf("Выбрано: %d  Новых: %d  Стоимость: %d  Баланс: %d",
		len(ex.Selected()), len(ex.PendingIDs()), cost, balance)
	switch {
	case ex.Unlocking():
		text += "  " + m.spinner.View() + " разблокировка..."
	case !ex.CanAfford():
		text += "  " + errorStyle.Render(fmt.Sprintf("не хватает %d, разблокировка недоступна", ex.Shortfall()))
	case cost > 0:
		text += "  " + okStyle.Render("u - разблокировать")
	}
	return unlockBarBase.Render(text)
}
