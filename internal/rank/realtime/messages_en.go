package realtime

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "realtime.status.proxy_switched", "🤖 %s switched to proxy")
}
