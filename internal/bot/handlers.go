package bot

import (
	"errors"
	"strings"

	"github.com/m3rciful/exchangebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"
	"github.com/m3rciful/exchangebot/core/telegram/state"
	"github.com/m3rciful/exchangebot/internal/exchange"
	"github.com/m3rciful/exchangebot/internal/orders"

	tele "gopkg.in/telebot.v4"
)

const skipFeeCode = "-"

func (b *Bot) onStartCommand(c tele.Context) error {
	b.resetDialogue(c.Sender().ID)
	return tghelpers.SendText(c, tr(b.lang(c), "choose_lang"), langKeyboard())
}

func (b *Bot) onLangCommand(c tele.Context) error {
	return tghelpers.SendText(c, tr(b.lang(c), "choose_lang"), langKeyboard())
}

func (b *Bot) onHelp(c tele.Context) error {
	return tghelpers.SendText(c, tr(b.lang(c), "help"))
}

func (b *Bot) onCancelCommand(c tele.Context) error {
	b.resetDialogue(c.Sender().ID)
	return tghelpers.SendText(c, tr(b.lang(c), "cancelled"))
}

func (b *Bot) onUnknown(c tele.Context) error {
	return tghelpers.SendText(c, tr(b.lang(c), "unknown"))
}

func (b *Bot) onUnsupportedAction(c tele.Context) error {
	return tghelpers.SendText(c, tr(b.lang(c), "unsupported_action"))
}

// onSlowDown answers updates dropped by the rate limiter.
func (b *Bot) onSlowDown(c tele.Context) error {
	msg := tr(b.lang(c), "slow_down")
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: msg})
	}
	return tghelpers.SendText(c, msg)
}

func (b *Bot) onNotAdmin(c tele.Context) error {
	return tghelpers.SendText(c, tr(b.lang(c), "not_admin"))
}

func (b *Bot) onLangPick(c tele.Context) error {
	lang := matchLang(callbacks.Payload(c))
	uid := c.Sender().ID
	b.sessions.Put(uid, keyLang, lang)
	b.resetDialogue(uid)
	if err := tghelpers.EditOrSendText(c, tr(lang, "lang_set")); err != nil {
		return err
	}
	return tghelpers.SendText(c, tr(lang, "menu_title"), directionKeyboard(lang))
}

func (b *Bot) onDirection(c tele.Context) error {
	lang := b.lang(c)
	d, err := exchange.ParseDirection(callbacks.Payload(c))
	if err != nil {
		return tghelpers.SendText(c, errorText(lang, err, 0))
	}
	uid := c.Sender().ID
	b.resetDialogue(uid)
	b.saveDraft(uid, draft{Direction: d})
	return tghelpers.EditOrSendText(c, tr(lang, "choose_from"),
		assetKeyboard(b.settings.Offered(d.SourceKind()), cbFrom))
}

func (b *Bot) onFrom(c tele.Context) error {
	lang := b.lang(c)
	uid := c.Sender().ID
	d := b.draft(uid)
	cur, err := b.pick(c, d.Direction.SourceKind())
	if err != nil || d.Direction == "" {
		b.resetDialogue(uid)
		return tghelpers.SendText(c, tr(lang, "unsupported"))
	}
	d.Source = cur
	b.saveDraft(uid, d)
	return tghelpers.EditOrSendText(c, tr(lang, "choose_to"),
		assetKeyboard(b.settings.Offered(d.Direction.TargetKind()), cbTo))
}

func (b *Bot) onTo(c tele.Context) error {
	lang := b.lang(c)
	uid := c.Sender().ID
	d := b.draft(uid)
	cur, err := b.pick(c, d.Direction.TargetKind())
	if err != nil || d.Source == "" {
		b.resetDialogue(uid)
		return tghelpers.SendText(c, tr(lang, "unsupported"))
	}
	d.Target = cur
	b.saveDraft(uid, d)
	b.sessions.SetState(uid, stateAmount)
	return tghelpers.EditOrSendText(c, tr(lang, "enter_amount", "currency", d.Source.String()))
}

// pick parses the pressed currency and checks it belongs to the expected rail.
func (b *Bot) pick(c tele.Context, want exchange.Kind) (exchange.Currency, error) {
	cur, err := exchange.ParseCurrency(callbacks.Payload(c))
	if err != nil {
		return "", err
	}
	if cur.Kind() != want || !b.settings.Supported(cur) {
		return "", exchange.ErrUnsupportedCurrency
	}
	return cur, nil
}

func (b *Bot) onAmount(c tele.Context) error {
	lang := b.lang(c)
	amount, err := exchange.ParseAmount(c.Text())
	if err != nil {
		return tghelpers.SendText(c, tr(lang, "bad_amount"))
	}
	uid := c.Sender().ID
	d := b.draft(uid)
	d.Amount = amount
	b.saveDraft(uid, d)
	b.sessions.SetState(uid, stateFee)
	return tghelpers.SendText(c, tr(lang, "enter_fee_code",
		"default_fee", exchange.TierStandard.Percent().String()))
}

func (b *Bot) onFeeCode(c tele.Context) error {
	lang := b.lang(c)
	user := c.Sender()
	code := strings.TrimSpace(c.Text())
	if code == skipFeeCode {
		code = ""
	}
	d := b.draft(user.ID)
	b.resetDialogue(user.ID)

	ctx := tghelpers.BuildContext(c)
	o, err := b.orders.CreateOrder(ctx, orders.NewOrder{
		UserID:    user.ID,
		Username:  user.Username,
		Lang:      lang,
		Direction: d.Direction,
		Source:    d.Source,
		Target:    d.Target,
		Amount:    d.Amount,
		FeeCode:   code,
	})
	if err != nil {
		return b.replyError(c, lang, err, 0)
	}

	if err := tghelpers.SendText(c, quoteText(lang, o)); err != nil {
		return err
	}
	instructions := depositText(lang, o, b.cfg.Exchange.Deposit) + "\n\n" + tr(lang, "confirm_sent")
	if err := tghelpers.SendText(c, instructions, confirmKeyboard(lang, o.ID)); err != nil {
		return err
	}
	b.notify.orderCreated(ctx, o)
	return nil
}

func (b *Bot) onSent(c tele.Context) error {
	lang := b.lang(c)
	uid := c.Sender().ID
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return tghelpers.SendText(c, tr(lang, "unknown"))
	}
	o, err := b.orders.Get(tghelpers.BuildContext(c), id)
	if err != nil {
		return b.replyError(c, lang, err, id)
	}
	if o.UserID != uid || o.Status != exchange.StatusPendingProof {
		return tghelpers.SendText(c, tr(lang, "not_your_order"))
	}
	b.resetDialogue(uid)
	b.sessions.Put(uid, keyProofOrder, o.ID)
	b.sessions.SetState(uid, stateProof)
	return tghelpers.SendText(c, proofPrompt(lang, o))
}

// onCancelPick aborts the dialogue. With an order id in the payload the
// user's own pending order is cancelled too.
func (b *Bot) onCancelPick(c tele.Context) error {
	lang := b.lang(c)
	uid := c.Sender().ID
	b.resetDialogue(uid)

	if id, err := callbacks.PayloadInt64(c); err == nil {
		ctx := tghelpers.BuildContext(c)
		o, err := b.orders.Get(ctx, id)
		if err != nil {
			return b.replyError(c, lang, err, id)
		}
		if o.UserID != uid || o.Status != exchange.StatusPendingProof {
			return tghelpers.SendText(c, tr(lang, "not_your_order"))
		}
		if _, err := b.orders.MarkCancelled(ctx, id); err != nil {
			return b.replyError(c, lang, err, id)
		}
	}
	return tghelpers.EditOrSendText(c, tr(lang, "cancelled"))
}

func (b *Bot) onProof(c tele.Context) error {
	lang := b.lang(c)
	uid := c.Sender().ID
	id, ok := state.Get[int64](b.sessions, uid, keyProofOrder)
	if !ok {
		b.resetDialogue(uid)
		return tghelpers.SendText(c, tr(lang, "unknown"))
	}
	ctx := tghelpers.BuildContext(c)
	o, err := b.orders.Get(ctx, id)
	if err != nil {
		b.resetDialogue(uid)
		return b.replyError(c, lang, err, id)
	}

	proof, receipt := proofFrom(c.Message(), o)
	updated, err := b.orders.AttachProof(ctx, id, proof)
	if errors.Is(err, exchange.ErrInvalidProof) {
		return tghelpers.SendText(c, tr(lang, "invalid_proof", "hint", proofPrompt(lang, o)))
	}
	b.resetDialogue(uid)
	if err != nil {
		return b.replyError(c, lang, err, id)
	}

	eta := b.settings.ETA.For(updated.Source, updated.Target)
	if err := tghelpers.SendText(c, tr(lang, "proof_received", "eta", eta, "order_id", formatID(id))); err != nil {
		return err
	}
	b.notify.proofSubmitted(ctx, updated, receipt)
	return nil
}

// proofFrom reads the evidence from msg. Files become receipt proofs and are
// returned for forwarding; text is a txid for crypto orders and a transfer
// reference for fiat ones.
func proofFrom(msg *tele.Message, o *exchange.Order) (exchange.Proof, tele.Sendable) {
	if msg == nil {
		return exchange.Proof{}, nil
	}
	caption := "#" + formatID(o.ID)
	switch {
	case msg.Photo != nil:
		return exchange.Proof{Kind: exchange.ProofReceiptFile, Payload: msg.Photo.FileID},
			&tele.Photo{File: tele.File{FileID: msg.Photo.FileID}, Caption: caption}
	case msg.Document != nil:
		return exchange.Proof{Kind: exchange.ProofReceiptFile, Payload: msg.Document.FileID},
			&tele.Document{File: tele.File{FileID: msg.Document.FileID}, Caption: caption}
	}
	kind := exchange.ProofReferenceText
	if o.Source.IsCrypto() {
		kind = exchange.ProofTxid
	}
	return exchange.Proof{Kind: kind, Payload: msg.Text}, nil
}

// replyError answers with the localized text of a domain error. Domain
// errors are expected outcomes; anything else is returned for logging.
func (b *Bot) replyError(c tele.Context, lang string, err error, orderID int64) error {
	if sendErr := tghelpers.SendText(c, errorText(lang, err, orderID)); sendErr != nil {
		return sendErr
	}
	if exchange.CodeOf(err) != "" {
		return nil
	}
	return err
}
