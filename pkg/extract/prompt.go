package extract

import (
	"strings"

	"github.com/tidwall/gjson"
)

const visionPrompt = `Read this image. Answer with a single JSON object and nothing else:
{"text": "<all text visible in the image, line breaks kept, empty string if none>",
 "description": "<one or two sentences describing what the image shows>"}`

const defaultMaxTokens = 2048

// parseVisionAnswer reads the JSON object a vision model was asked for. Models
// sometimes wrap it in a code fence or add prose around it; when no object can
// be found the whole answer is taken as the text.
func parseVisionAnswer(answer string) Content {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Content{}
	}

	raw := answer
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	if !gjson.Valid(raw) {
		return Content{Text: answer}
	}

	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return Content{Text: answer}
	}
	return Content{
		Text:        strings.TrimSpace(parsed.Get("text").String()),
		Description: strings.TrimSpace(parsed.Get("description").String()),
	}
}
