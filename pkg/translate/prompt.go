package translate

import "fmt"

const defaultMaxTokens = 2048

func systemPrompt(source, target string) string {
	from := source
	if baseLanguage(source) == "" {
		from = "the language it is written in"
	}
	return fmt.Sprintf("You are a translation engine. Translate the user's message from %s into %s. "+
		"Reply with the translation only. Keep line breaks, numbers and names. Do not explain.", from, target)
}
