package realtime

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Korean

	message.SetString(lang, "realtime.status.proxy_switched", "🤖 %s님이 대리 진행으로 전환되었습니다")
}
