package alert

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/civicgrid/vote-engine/logging"
)

var (
	apiBase = "https://api.telegram.org"
	client  = &http.Client{Timeout: 10 * time.Second}
)

// SendTelegramMessage escalates to the operator channel. Failures are
// logged and swallowed; alerting must never feed back into the vote
// path.
func SendTelegramMessage(identity string, botId string, chatId string, msg string) {
	if botId == "" || chatId == "" || msg == "" {
		return
	}

	form := url.Values{
		"chat_id":    {chatId},
		"parse_mode": {"html"},
		"text":       {fmt.Sprintf("%s: %s", identity, msg)},
	}
	resp, err := client.PostForm(fmt.Sprintf("%s/bot%s/sendMessage", apiBase, botId), form)
	if err != nil {
		logging.Logger.Errorf("send telegram message error, chat_id=%s, msg=%s, err=%s", chatId, msg, err.Error())
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logging.Logger.Errorf("telegram rejected alert, status=%d, chat_id=%s", resp.StatusCode, chatId)
	}
}
