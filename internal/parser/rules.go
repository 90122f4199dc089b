package parser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"qmoney/internal/core"
)

// Rules is an offline parser driven by keyword tables and regular
// expressions. It never fails on non-blank input; unrecognised fields are
// left nil.
type Rules struct {
	now func() time.Time
}

func NewRules(now func() time.Time) *Rules {
	if now == nil {
		now = time.Now
	}
	return &Rules{now: now}
}

var (
	isoDateRe   = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	monthDayRe  = regexp.MustCompile(`(\d{1,2})月(\d{1,2})[日号]`)
	amountRe    = regexp.MustCompile(`(?:¥|￥)?\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*(?:元|块|rmb|RMB)?`)
	groupedRe   = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	commaDecRe  = regexp.MustCompile(`^\d+,\d{1,2}$`)
	relativeDay = []struct {
		word   string
		offset int
	}{
		{"大前天", -3},
		{"前天", -2},
		{"昨天", -1},
		{"今天", 0},
	}

	// checked in registry order; generic verbs such as 买 are not listed
	categoryKeywords = map[string][]string{
		"餐饮": {"吃", "饭", "餐", "咖啡", "奶茶", "外卖", "汉堡", "火锅", "零食", "水果"},
		"交通": {"打车", "地铁", "公交", "出租", "加油", "高铁", "火车", "机票", "滴滴", "停车"},
		"购物": {"衣服", "鞋", "淘宝", "京东", "超市", "网购", "包包"},
		"娱乐": {"电影", "游戏", "KTV", "演唱会", "旅游", "门票"},
		"账单": {"话费", "电费", "水费", "燃气", "房租", "网费", "物业", "账单"},
		"医疗": {"药", "医院", "看病", "挂号", "体检"},
		"薪资": {"工资", "薪水", "奖金", "年终奖"},
		"人情": {"红包", "礼物", "份子", "礼金"},
	}
)

const maxNoteRunes = 64

func (p *Rules) Parse(ctx context.Context, text string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil, ErrEmptyInput
	}

	res := &Result{}
	rest := text

	if date, matched := p.guessDate(text); date != "" {
		res.Date = &date
		rest = strings.Replace(rest, matched, " ", 1)
	}
	if amount, ok := guessAmount(rest); ok {
		res.Amount = &amount
	}
	if t := guessType(text); t != "" {
		res.Type = &t
	}
	if c, ok := guessCategory(text); ok {
		res.Category = &c.Name
		if res.Type == nil && c.Type == core.Income {
			t := string(core.Income)
			res.Type = &t
		}
	}
	note := truncate(text, maxNoteRunes)
	res.Note = &note

	return res, nil
}

// guessDate returns the ISO date and the substring it was read from.
func (p *Rules) guessDate(text string) (string, string) {
	today := p.now()
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if d, ok := civilDate(m[1], m[2], m[3]); ok {
			return d, m[0]
		}
	}
	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		if d, ok := civilDate(strconv.Itoa(today.Year()), m[1], m[2]); ok {
			return d, m[0]
		}
	}
	for _, rd := range relativeDay {
		if strings.Contains(text, rd.word) {
			return core.FormatDate(today.AddDate(0, 0, rd.offset)), rd.word
		}
	}
	return "", ""
}

func civilDate(y, m, d string) (string, bool) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	s := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	if !core.IsDate(s) {
		return "", false
	}
	return s, true
}

// guessAmount prefers a number written with a currency marker and falls
// back to the first positive number.
func guessAmount(text string) (float64, bool) {
	var fallback float64
	found := false
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		num, ok := numberText(m[1])
		if !ok {
			continue
		}
		v, err := core.ParseAmount(num)
		if err != nil || v <= 0 {
			continue
		}
		if strings.TrimSpace(m[0]) != m[1] {
			return v, true
		}
		if !found {
			fallback, found = v, true
		}
	}
	return fallback, found
}

// numberText normalises a digit run for ParseAmount. Commas are either
// thousands separators (1,299 or 15,000.50) or, followed by one or two
// final digits, a decimal comma (18,5). Anything else is not a number.
func numberText(s string) (string, bool) {
	switch {
	case !strings.Contains(s, ","):
		return s, true
	case groupedRe.MatchString(s):
		return strings.ReplaceAll(s, ",", ""), true
	case commaDecRe.MatchString(s):
		return s, true
	default:
		return "", false
	}
}

func guessType(text string) string {
	for _, k := range incomeKeywords {
		if strings.Contains(text, k) {
			return string(core.Income)
		}
	}
	for _, k := range expenseKeywords {
		if strings.Contains(text, k) {
			return string(core.Expense)
		}
	}
	return ""
}

func guessCategory(text string) (core.CategoryOption, bool) {
	lower := strings.ToLower(text)
	for _, c := range core.Categories() {
		if strings.Contains(text, c.Name) {
			return c, true
		}
	}
	for _, c := range core.Categories() {
		for _, k := range categoryKeywords[c.Name] {
			if strings.Contains(lower, strings.ToLower(k)) {
				return c, true
			}
		}
	}
	if strings.Contains(text, "买") {
		return core.LookupCategory("购物")
	}
	return core.CategoryOption{}, false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
