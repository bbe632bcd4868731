package bot

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	langEN = "en"
	langTR = "tr"
)

var (
	supportedTags = []language.Tag{language.English, language.Turkish}
	langMatcher   = language.NewMatcher(supportedTags)
)

// matchLang maps a Telegram language_code (or a stored preference) to a
// catalog key. Anything unknown falls back to English.
func matchLang(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return langEN
	}
	_, idx, conf := langMatcher.Match(language.Make(code))
	if conf == language.No {
		return langEN
	}
	base, _ := supportedTags[idx].Base()
	return base.String()
}

// tr renders key in lang, substituting {name} placeholders from pairs.
// Missing keys render as the key itself.
func tr(lang, key string, pairs ...string) string {
	cat, ok := catalogs[lang]
	if !ok {
		cat = catalogs[langEN]
	}
	s, ok := cat[key]
	if !ok {
		if s, ok = catalogs[langEN][key]; !ok {
			return key
		}
	}
	if len(pairs) < 2 {
		return s
	}
	repl := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		repl = append(repl, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(repl...).Replace(s)
}

var catalogs = map[string]map[string]string{
	langEN: {
		"choose_lang":        "Choose language / Dil secin:",
		"lang_set":           "Language set to English.",
		"menu_title":         "What do you want to do?",
		"dir_crypto_to_fiat": "Crypto -> Fiat",
		"dir_fiat_to_crypto": "Fiat -> Crypto",
		"choose_from":        "Choose FROM currency:",
		"choose_to":          "Choose TO currency:",
		"enter_amount":       "Enter amount in {currency} (numbers only).",
		"enter_fee_code":     "Enter fee code (optional).\n\nIf you skip, the default fee {default_fee}% is used.\n\nSend '-' to skip.",
		"quote":              "Quote #{order_id}\nRate: 1 {from_asset} = {rate} {to_asset}{via}\nFee: {fee_pct}%\nYou send: {amount_from} {from_asset}\nYou receive (est.): {amount_to} {to_asset}",
		"via":                " (via {bridge})",
		"bank_details":       "Deposit instructions\nBank transfer to:\nBank: {bank}\nHolder: {holder}\nIBAN: {iban}\nSWIFT: {swift}\nNote: {hint}\n\nTransfer title/reference: {order_id}",
		"crypto_details":     "Deposit instructions\nSend {asset} to:\nAddress: {address}\nNetwork: {network}\n\nMemo/Tag: (if required by your wallet)\n\nOrder ID: {order_id}",
		"no_wallet":          "Deposit instructions for {asset} will be sent by the operator.\n\nOrder ID: {order_id}",
		"confirm_sent":       "After you send, press 'I sent'.",
		"btn_sent":           "I sent",
		"btn_cancel":         "Cancel",
		"ask_txid":           "Please paste the TXID (transaction hash).",
		"ask_receipt":        "Please upload bank receipt (photo or document). If you can't, send transfer reference text.",
		"proof_received":     "Proof received. Estimated transfer time: {eta}\n\nYour order is now in processing.\nOrder ID: {order_id}",
		"cancelled":          "Cancelled.",
		"bad_amount":         "Please send a valid number (example: 100 or 100.5).",
		"unknown":            "Something went wrong. Use /start to begin again.",
		"rate_unavailable":   "Rates are unavailable right now. Please try again in a few minutes with /start.",
		"unsupported":        "This currency pair is not supported. Use /start to begin again.",
		"invalid_proof":      "This proof does not fit the order. {hint}",
		"order_not_found":    "Order not found.",
		"invalid_transition": "Order #{order_id} cannot change from its current status.",
		"not_your_order":     "This order is not active any more.",
		"order_done":         "Order #{order_id} is completed. Thank you!",
		"order_cancelled":    "Order #{order_id} was cancelled by the operator.",
		"admin_new_order":    "New order #{order_id}\nUser: {user}\nDirection: {direction}\nPair: {pair}\nAmount: {amount_from} {from_asset} -> {amount_to} {to_asset}\nFee: {fee_pct}%\nStatus: {status}",
		"admin_proof":        "Order #{order_id} proof submitted.\nType: {proof_type}\nValue: {proof_value}",
		"admin_list_header":  "Last orders:",
		"admin_list_line":    "#{order_id} {user} {amount_from} {from_asset} -> {amount_to} {to_asset} [{status}]",
		"admin_list_empty":   "No orders yet.",
		"admin_marked":       "Order #{order_id} marked as {status}.",
		"admin_usage":        "Usage: {command} <order id>",
		"not_admin":          "Not allowed.",
		"unsupported_action": "Unsupported action.",
		"slow_down":          "Too fast, please wait a moment.",
		"help":               "Commands:\n/start - restart\n/lang - change language\n/cancel - abort the current dialogue\n\nAdmins:\n/admin_orders [n] - list\n/admin_done <id> - mark done\n/admin_cancel <id> - mark cancelled",
	},
	langTR: {
		"choose_lang":        "Dil secin / Choose language:",
		"lang_set":           "Dil Turkce olarak ayarlandi.",
		"menu_title":         "Ne yapmak istiyorsunuz?",
		"dir_crypto_to_fiat": "Kripto -> Fiat",
		"dir_fiat_to_crypto": "Fiat -> Kripto",
		"choose_from":        "GONDEREN para birimini secin:",
		"choose_to":          "ALAN para birimini secin:",
		"enter_amount":       "{currency} tutarini girin (sadece sayi).",
		"enter_fee_code":     "Komisyon kodu girin (opsiyonel).\n\nGecerseniz varsayilan komisyon %{default_fee}.\n\nAtlamak icin '-' gonderin.",
		"quote":              "Teklif #{order_id}\nKur: 1 {from_asset} = {rate} {to_asset}{via}\nKomisyon: %{fee_pct}\nSiz gonderirsiniz: {amount_from} {from_asset}\nSiz alirsiniz (tahmini): {amount_to} {to_asset}",
		"via":                " ({bridge} uzerinden)",
		"bank_details":       "Odeme bilgileri\nBanka havalesi:\nBanka: {bank}\nAlici: {holder}\nIBAN: {iban}\nSWIFT: {swift}\nNot: {hint}\n\nAciklama/Referans: {order_id}",
		"crypto_details":     "Odeme bilgileri\n{asset} gonderin:\nAdres: {address}\nAg: {network}\n\nGerekirse Memo/Tag\n\nSiparis ID: {order_id}",
		"no_wallet":          "{asset} odeme bilgileri operator tarafindan gonderilecek.\n\nSiparis ID: {order_id}",
		"confirm_sent":       "Gonderim yaptiktan sonra 'Gonderdim' tusuna basin.",
		"btn_sent":           "Gonderdim",
		"btn_cancel":         "Iptal",
		"ask_txid":           "Lutfen TXID (islem hash) gonderin.",
		"ask_receipt":        "Lutfen banka dekontunu yukleyin (fotograf veya dosya). Yapamiyorsaniz transfer referans metnini yazin.",
		"proof_received":     "Kanit alindi. Tahmini transfer suresi: {eta}\n\nSiparisiniz isleme alindi.\nSiparis ID: {order_id}",
		"cancelled":          "Iptal edildi.",
		"bad_amount":         "Lutfen gecerli bir sayi gonderin (ornek: 100 veya 100.5).",
		"unknown":            "Bir hata olustu. Yeniden baslamak icin /start.",
		"rate_unavailable":   "Kurlar su anda alinamiyor. Birkac dakika sonra /start ile tekrar deneyin.",
		"unsupported":        "Bu parite desteklenmiyor. Yeniden baslamak icin /start.",
		"invalid_proof":      "Bu kanit siparise uygun degil. {hint}",
		"order_not_found":    "Siparis bulunamadi.",
		"invalid_transition": "Siparis #{order_id} mevcut durumundan degistirilemez.",
		"not_your_order":     "Bu siparis artik aktif degil.",
		"order_done":         "Siparis #{order_id} tamamlandi. Tesekkurler!",
		"order_cancelled":    "Siparis #{order_id} operator tarafindan iptal edildi.",
		"admin_new_order":    "Yeni siparis #{order_id}\nKullanici: {user}\nYon: {direction}\nParite: {pair}\nTutar: {amount_from} {from_asset} -> {amount_to} {to_asset}\nKomisyon: %{fee_pct}\nDurum: {status}",
		"admin_proof":        "Siparis #{order_id} kanit gonderildi.\nTur: {proof_type}\nDeger: {proof_value}",
		"admin_list_header":  "Son siparisler:",
		"admin_list_line":    "#{order_id} {user} {amount_from} {from_asset} -> {amount_to} {to_asset} [{status}]",
		"admin_list_empty":   "Henuz siparis yok.",
		"admin_marked":       "Siparis #{order_id} durumu: {status}.",
		"admin_usage":        "Kullanim: {command} <siparis id>",
		"not_admin":          "Yetkiniz yok.",
		"unsupported_action": "Desteklenmeyen islem.",
		"slow_down":          "Cok hizli, lutfen biraz bekleyin.",
		"help":               "Komutlar:\n/start - yeniden baslat\n/lang - dil degistir\n/cancel - islemi iptal et\n\nAdmin:\n/admin_orders [n] - liste\n/admin_done <id> - tamamlandi\n/admin_cancel <id> - iptal",
	},
}
