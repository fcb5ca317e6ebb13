package job

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Category is the closed failure taxonomy surfaced to users.
type Category string

const (
	CategoryInputModeration   Category = "INPUT_MODERATION"
	CategoryOutputModeration  Category = "OUTPUT_MODERATION"
	CategoryGenericWithDetail Category = "GENERIC_WITH_DETAIL"
	CategoryGenericUnknown    Category = "GENERIC_UNKNOWN"
	CategoryNetworkAborted    Category = "NETWORK_ABORTED"
	CategoryNetworkFailed     Category = "NETWORK_FAILED"
	CategoryProtocolMalformed Category = "PROTOCOL_MALFORMED"
)

var noticeTags = []language.Tag{
	language.English,
	language.SimplifiedChinese,
}

var noticeMatcher = language.NewMatcher(noticeTags)

var notices = map[language.Tag]map[Category]string{
	language.English: {
		CategoryInputModeration:   "The submitted content may violate the content policy. Please adjust your prompt and try again.",
		CategoryOutputModeration:  "The generated content did not pass review. Please adjust your prompt and try again.",
		CategoryGenericWithDetail: "Generation failed: %s",
		CategoryGenericUnknown:    "Generation failed. Please try again later.",
		CategoryNetworkAborted:    "Generation cancelled.",
		CategoryNetworkFailed:     "A network error interrupted the request. Please try again.",
		CategoryProtocolMalformed: "The service ended without returning a result. Please try again.",
	},
	language.SimplifiedChinese: {
		CategoryInputModeration:   "输入内容可能违反了内容政策，请调整后重试。",
		CategoryOutputModeration:  "生成内容未通过审核，请调整后重试。",
		CategoryGenericWithDetail: "生成失败：%s",
		CategoryGenericUnknown:    "生成失败，请稍后重试。",
		CategoryNetworkAborted:    "已取消生成。",
		CategoryNetworkFailed:     "网络请求中断，请重试。",
		CategoryProtocolMalformed: "服务未返回结果，请重试。",
	},
}

// Notices resolves categories to human-readable messages for one locale.
type Notices struct {
	tag language.Tag
}

// NoticesFor matches a free-form locale string ("zh", "zh-CN", "en-GB", ...)
// against the supported message catalogs, defaulting to English.
func NoticesFor(locale string) Notices {
	desired, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return Notices{tag: language.English}
	}
	_, idx, _ := noticeMatcher.Match(desired)
	return Notices{tag: noticeTags[idx]}
}

// Classify maps a backend failure signal onto the taxonomy and its message.
func (n Notices) Classify(failureReason, errorDetail string) (Category, string) {
	reason := strings.TrimSpace(failureReason)
	detail := strings.TrimSpace(errorDetail)
	switch reason {
	case "input_moderation":
		return CategoryInputModeration, n.Message(CategoryInputModeration, "")
	case "output_moderation":
		return CategoryOutputModeration, n.Message(CategoryOutputModeration, "")
	}
	if detail != "" {
		return CategoryGenericWithDetail, n.Message(CategoryGenericWithDetail, detail)
	}
	if reason != "" {
		return CategoryGenericWithDetail, n.Message(CategoryGenericWithDetail, reason)
	}
	return CategoryGenericUnknown, n.Message(CategoryGenericUnknown, "")
}

// Message renders the notice for a category, interpolating detail where the
// template asks for it. Raw protocol internals never reach the user through
// any other path.
func (n Notices) Message(cat Category, detail string) string {
	catalog, ok := notices[n.tag]
	if !ok {
		catalog = notices[language.English]
	}
	tmpl, ok := catalog[cat]
	if !ok {
		tmpl = catalog[CategoryGenericUnknown]
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, detail)
	}
	return tmpl
}
