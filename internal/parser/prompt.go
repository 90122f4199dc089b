package parser

import (
	"fmt"
	"strings"

	"qmoney/internal/core"
)

// SystemInstruction sets the assistant persona for model backends.
const SystemInstruction = "你是一个可爱、乐于助人的中文记账助手。你会把用户的口语转换为精确的记账数据。"

var (
	expenseKeywords = []string{"花了", "买", "支付", "付了", "扣款"}
	incomeKeywords  = []string{"赚了", "发工资", "收到", "入账"}
)

// Prompt builds the user turn sent to model backends. today anchors
// relative dates.
func Prompt(text, today string) string {
	categories := strings.Join(core.CategoryNames(), ", ")
	return fmt.Sprintf(`请将用户的自然语言输入解析为结构化的记账数据: %q.
根据上下文推断分类（Categories: %s）。
如果用户说 %s, 则是支出 (expense)。
如果用户说 %s, 则是收入 (income)。
今天是 %s，日期使用 YYYY-MM-DD 格式，用户没说则为今天。
备注(note)请使用中文。
只返回一个 JSON 对象: {"amount": number, "category": string, "type": "expense"|"income", "note": string, "date": string, "emoji": string}`,
		text, categories, quoteAll(expenseKeywords), quoteAll(incomeKeywords), today)
}

func quoteAll(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, ", ")
}
