package bot

import (
	"strconv"

	"github.com/m3rciful/exchangebot/core/telegram/keyboard"
	"github.com/m3rciful/exchangebot/internal/exchange"

	tele "gopkg.in/telebot.v4"
)

// Callback uniques. Payloads follow after telebot's '|' separator.
const (
	cbLang   = "lang"
	cbDir    = "dir"
	cbFrom   = "from"
	cbTo     = "to"
	cbSent   = "sent"
	cbCancel = "cancel"
)

const assetsPerRow = 3

func langKeyboard() *tele.ReplyMarkup {
	return keyboard.Inline([]keyboard.Button{
		{Text: "English", Unique: cbLang, Data: langEN},
		{Text: "Türkçe", Unique: cbLang, Data: langTR},
	})
}

func directionKeyboard(lang string) *tele.ReplyMarkup {
	return keyboard.Column(
		keyboard.Button{Text: tr(lang, "dir_crypto_to_fiat"), Unique: cbDir, Data: string(exchange.CryptoToFiat)},
		keyboard.Button{Text: tr(lang, "dir_fiat_to_crypto"), Unique: cbDir, Data: string(exchange.FiatToCrypto)},
	)
}

func assetKeyboard(assets []exchange.Currency, unique string) *tele.ReplyMarkup {
	btns := make([]keyboard.Button, 0, len(assets))
	for _, a := range assets {
		btns = append(btns, keyboard.Button{Text: a.String(), Unique: unique, Data: a.String()})
	}
	rows := append(keyboard.Grid(assetsPerRow, btns...), []keyboard.Button{{Text: "✖", Unique: cbCancel}})
	return keyboard.Inline(rows...)
}

func confirmKeyboard(lang string, orderID int64) *tele.ReplyMarkup {
	id := strconv.FormatInt(orderID, 10)
	return keyboard.Column(
		keyboard.Button{Text: tr(lang, "btn_sent"), Unique: cbSent, Data: id},
		keyboard.Button{Text: tr(lang, "btn_cancel"), Unique: cbCancel, Data: id},
	)
}
