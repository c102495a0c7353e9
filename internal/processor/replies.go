package processor

import "fmt"

// Reply texts. The emoji markers are part of the bot's visible contract;
// keep them stable.

func throttledText(authorHandle string) string {
	return fmt.Sprintf("@%s ⏳ You can request another analysis in a few hours.", authorHandle)
}

func successText(target, url string) string {
	return fmt.Sprintf("📊 Analysis ready for @%s\n\n🔗 %s\n⏱ Expires in 24h", target, url)
}

func failureText(authorHandle, reason string) string {
	return fmt.Sprintf("@%s ❌ %s", authorHandle, reason)
}
