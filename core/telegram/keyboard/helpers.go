// Package keyboard builds inline keyboards from plain button values.
package keyboard

import (
	"slices"

	tele "gopkg.in/telebot.v4"
)

// Button is one inline button. Unique is the callback key and Data its payload.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Grid lays buttons out perRow to a row. perRow below 1 means one per row.
func Grid(perRow int, buttons ...Button) [][]Button {
	perRow = max(perRow, 1)
	rows := make([][]Button, 0, (len(buttons)+perRow-1)/perRow)
	for row := range slices.Chunk(buttons, perRow) {
		rows = append(rows, row)
	}
	return rows
}

// Column is a keyboard with every button on its own row.
func Column(buttons ...Button) *tele.ReplyMarkup {
	return Inline(Grid(1, buttons...)...)
}

// Inline renders rows into reply markup. Empty rows are skipped.
func Inline(rows ...[]Button) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, *m.Data(b.Text, b.Unique, b.Data).Inline())
		}
		m.InlineKeyboard = append(m.InlineKeyboard, line)
	}
	return m
}
