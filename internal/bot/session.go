package bot

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/exchangebot/core/telegram/state"
	"github.com/m3rciful/exchangebot/internal/exchange"

	tele "gopkg.in/telebot.v4"
)

// Dialogue steps that consume free input. Button steps need no state.
const (
	stateAmount state.State = "exchange.amount"
	stateFee    state.State = "exchange.fee"
	stateProof  state.State = "exchange.proof"
)

// sessionIdle bounds how long an abandoned dialogue is remembered.
const sessionIdle = 72 * time.Hour

const (
	keyLang       = "lang"
	keyDraft      = "draft"
	keyProofOrder = "proof_order"
)

// draft collects the intake answers until the order is created.
type draft struct {
	Direction exchange.Direction
	Source    exchange.Currency
	Target    exchange.Currency
	Amount    decimal.Decimal
}

func (b *Bot) langFor(userID int64, hint string) string {
	if s, ok := state.Get[string](b.sessions, userID, keyLang); ok && s != "" {
		return s
	}
	return matchLang(hint)
}

func (b *Bot) lang(c tele.Context) string {
	u := c.Sender()
	if u == nil {
		return langEN
	}
	return b.langFor(u.ID, u.LanguageCode)
}

func (b *Bot) draft(userID int64) draft {
	d, _ := state.Get[draft](b.sessions, userID, keyDraft)
	return d
}

func (b *Bot) saveDraft(userID int64, d draft) {
	b.sessions.Put(userID, keyDraft, d)
}

// resetDialogue drops the intake progress but keeps the language choice.
func (b *Bot) resetDialogue(userID int64) {
	b.sessions.ClearState(userID)
	b.sessions.Delete(userID, keyDraft, keyProofOrder)
}
