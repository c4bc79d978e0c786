package nlp

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// foodIndicators is the canonical "is this food" table. Recognizers report
// labels in Chinese or English (Rekognition parents are English), so both
// vocabularies live in the one list.
var foodIndicators = []string{
	"食", "菜", "肉", "果", "蔬", "饭", "面", "汤", "粥", "鱼", "鸡",
	"虾", "蛋", "糕", "饼", "甜品", "小吃", "饮",
	"food", "fruit", "vegetable", "meat", "seafood", "dish", "dessert",
	"drink", "beverage", "bread", "snack", "pastry",
}

// IsFoodIndicator reports whether a label or its recognizer-reported category
// contains any food-indicating substring.
func IsFoodIndicator(label, category string) bool {
	for _, probe := range []string{label, category} {
		if probe == "" {
			continue
		}
		lowered := strings.ToLower(probe)
		for _, kw := range foodIndicators {
			if strings.Contains(lowered, kw) {
				return true
			}
		}
	}
	return false
}

// CategoryDefault is the fallback serving estimate for one food bucket.
type CategoryDefault struct {
	WeightGrams int
	Calories    int
}

type bucket struct {
	keywords []string
	def      CategoryDefault
}

// defaultBuckets is checked in order; the first bucket whose keyword occurs
// in the label wins. The tail entry below covers everything else.
var defaultBuckets = []bucket{
	{
		keywords: []string{"饭", "面", "粥", "米", "rice", "noodle", "porridge", "pasta"},
		def:      CategoryDefault{WeightGrams: 300, Calories: 350},
	},
	{
		keywords: []string{"肉", "鱼", "鸡", "鸭", "牛", "猪", "虾", "meat", "fish", "chicken", "beef", "pork", "duck", "shrimp"},
		def:      CategoryDefault{WeightGrams: 200, Calories: 280},
	},
	{
		keywords: []string{"青菜", "生菜", "菠菜", "白菜", "菜", "vegetable", "lettuce", "spinach", "greens", "cabbage"},
		def:      CategoryDefault{WeightGrams: 150, Calories: 50},
	},
	{
		keywords: []string{"苹果", "香蕉", "橙", "梨", "桃", "西瓜", "果", "apple", "banana", "orange", "pear", "peach", "melon", "fruit"},
		def:      CategoryDefault{WeightGrams: 200, Calories: 80},
	},
	{
		keywords: []string{"莓", "葡萄", "樱桃", "提子", "berry", "grape", "cherry"},
		def:      CategoryDefault{WeightGrams: 100, Calories: 45},
	},
}

var fallbackDefault = CategoryDefault{WeightGrams: 200, Calories: 200}

// DefaultEstimate classifies label into one of the keyword buckets and
// returns that bucket's serving defaults.
func DefaultEstimate(label string) CategoryDefault {
	lowered := strings.ToLower(NormalizeLabel(label))
	for _, b := range defaultBuckets {
		for _, kw := range b.keywords {
			if strings.Contains(lowered, kw) {
				return b.def
			}
		}
	}
	return fallbackDefault
}

var digitRunPattern = regexp.MustCompile(`\d+`)

// ExtractDigitPair scans text for runs of consecutive digits and returns the
// first two, positionally. ok is false when fewer than two runs exist.
// NFKC-normalized first so full-width digits from Chinese model output count.
func ExtractDigitPair(text string) (first int, second int, ok bool) {
	runs := digitRunPattern.FindAllString(norm.NFKC.String(text), 3)
	if len(runs) < 2 {
		return 0, 0, false
	}

	first, err := strconv.Atoi(runs[0])
	if err != nil {
		return 0, 0, false
	}
	second, err = strconv.Atoi(runs[1])
	if err != nil {
		return 0, 0, false
	}

	return first, second, true
}

// ExtractDigits collapses text to its digit characters and parses them as one
// integer, the way the single-number "digits only" prompts are read back.
func ExtractDigits(text string) (int, bool) {
	var sb strings.Builder
	for _, r := range norm.NFKC.String(text) {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(sb.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// NormalizeLabel canonicalizes a recognizer label before it is cached or
// compared: NFKC form, surrounding whitespace, quotes and trailing periods
// stripped. Model replies tend to wrap names in quotes or end with 。
func NormalizeLabel(label string) string {
	s := norm.NFKC.String(label)
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”‘’`")
	s = strings.TrimRight(s, "。.，, ")
	return strings.TrimSpace(s)
}
