package handlers

import (
	"fmt"
	"strings"

	"github.com/zhaopengme/transclaw/pkg/extract"
	"github.com/zhaopengme/transclaw/pkg/translate"
)

const (
	MsgWelcome = `欢迎使用翻译机器人！

我可以帮你将任何语言翻译成中文，只需发送文本消息或图片给我。

- 发送文字消息：我会自动检测语言并翻译成中文
- 发送图片：我会识别图片中的文字并翻译成中文

使用 /help 查看更多帮助信息。`

	MsgHelp = `使用方法：

1. 翻译文本：直接发送任何语言的文本，我会自动翻译成中文
2. 翻译图片中的文字：发送图片，我会识别图片中的文字并翻译成中文

请注意：
- 只支持文本和图片翻译
- 翻译结果仅供参考
- 大型图片处理可能需要一些时间

如有问题，请联系开发者。`

	MsgUnsupported    = "请发送文本消息或图片。我只能处理这两种类型的输入。"
	MsgUnknownCommand = "未知命令。使用 /help 查看可用命令。"
	MsgGenericError   = "处理消息时出错，请重试。"

	MsgImageProcessing  = "正在处理图片，请稍等..."
	MsgImageRecognizing = "正在识别图片内容..."
	MsgImageDone        = "处理完成。"
	MsgImageInfoFailed  = "获取图片信息失败，请重试。"
	MsgDownloadFailed   = "下载图片失败，请重试。"
	MsgImageError       = "处理图片时出错，请重试。"
	MsgExtractFailed    = "无法从图片中提取文字或理解内容。请确保图片清晰可见。"
	MsgNoTextDescribed  = "图片中没有检测到文字，但已分析图片内容。"
)

// FormatTextReply renders a translation result for the chat.
func FormatTextReply(res translate.Result, target string) string {
	if res.Original == res.Translated {
		return fmt.Sprintf("文本已经是%s，无需翻译。\n\n%s", translate.DisplayName(target), res.Original)
	}
	return fmt.Sprintf("原文 [%s]:\n%s\n\n译文:\n%s", res.DetectedLanguage, res.Original, res.Translated)
}

// FormatImageReply renders an extraction result for the chat.
func FormatImageReply(res extract.Result, target string) string {
	if !res.Success {
		return MsgExtractFailed
	}

	var sb strings.Builder
	switch {
	case res.Original != "" && res.Original == res.Translated:
		fmt.Fprintf(&sb, "图片中的文字已经是%s，无需翻译。\n\n文字内容:\n%s", translate.DisplayName(target), res.Original)
	case res.Original != "":
		fmt.Fprintf(&sb, "图片OCR结果 [%s]:\n%s\n\n译文:\n%s", res.DetectedLanguage, res.Original, res.Translated)
	default:
		sb.WriteString(MsgNoTextDescribed)
	}

	if res.ContentDescription != "" {
		sb.WriteString("\n\n图片内容描述:\n")
		sb.WriteString(res.ContentDescription)
	}
	return sb.String()
}
