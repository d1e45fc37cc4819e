package classifier

import "regexp"

type brandEntry struct {
	Name    string
	Aliases []string
}

// Aliases are matched as whole tokens against the normalized text.
var brands = []brandEntry{
	{Name: "samsung", Aliases: []string{"سامسونگ", "samsung"}},
	{Name: "apple", Aliases: []string{"آیفون", "اپل", "apple", "iphone"}},
	{Name: "huawei", Aliases: []string{"هواوی", "huawei"}},
	{Name: "xiaomi", Aliases: []string{"شیائومی", "xiaomi", "redmi"}},
	{Name: "lg", Aliases: []string{"ال جی", "lg"}},
	{Name: "sony", Aliases: []string{"سونی", "sony"}},
	{Name: "nokia", Aliases: []string{"نوکیا", "nokia"}},
	{Name: "asus", Aliases: []string{"ایسوس", "asus"}},
	{Name: "lenovo", Aliases: []string{"لنوو", "lenovo"}},
	{Name: "dell", Aliases: []string{"دل", "dell"}},
	{Name: "hp", Aliases: []string{"اچ پی", "hp"}},
	{Name: "msi", Aliases: []string{"ام اس آی", "msi"}},
	{Name: "acer", Aliases: []string{"ایسر", "acer"}},
	{Name: "philips", Aliases: []string{"فیلیپس", "philips"}},
	{Name: "panasonic", Aliases: []string{"پاناسونیک", "panasonic"}},
}

type categoryEntry struct {
	Name     string
	Keywords []string
}

// Name is the Persian term the storefront indexes the category under.
var categories = []categoryEntry{
	{Name: "گوشی", Keywords: []string{"گوشی", "موبایل", "phone", "smartphone", "mobile"}},
	{Name: "لپ تاپ", Keywords: []string{"لپ تاپ", "لپتاپ", "laptop", "notebook"}},
	{Name: "هدفون", Keywords: []string{"هدفون", "هندزفری", "headphone", "headphones", "earphone", "headset"}},
	{Name: "تلویزیون", Keywords: []string{"تلویزیون", "تی وی", "tv", "television"}},
	{Name: "تبلت", Keywords: []string{"تبلت", "tablet", "ipad"}},
	{Name: "ساعت هوشمند", Keywords: []string{"ساعت هوشمند", "smartwatch", "watch"}},
	{Name: "ماشین اصلاح", Keywords: []string{"ماشین اصلاح", "اصلاح", "shaver", "trimmer"}},
}

type patternEntry[T any] struct {
	Tag     T
	Pattern *regexp.Regexp
}

var intentPatterns = []patternEntry[Intent]{
	{IntentComparison, regexp.MustCompile(`مقایسه|compare|بهتر|better|\bvs\b|در مقابل`)},
	{IntentBudget, regexp.MustCompile(`ارزان|cheap|قیمت|price|budget|تومان`)},
	{IntentSpecificFeature, regexp.MustCompile(`عکاس|camera|gaming|گیمینگ|باتری|battery`)},
	{IntentUrgent, regexp.MustCompile(`فوری|urgent|زود|سریع|امروز|today`)},
	{IntentRecommendation, regexp.MustCompile(`پیشنهاد|recommend|بهترین|best|چی|what|کدام`)},
	{IntentReplacement, regexp.MustCompile(`جایگزین|replace|alternative|بجای`)},
}

var featurePatterns = []patternEntry[string]{
	{"gaming", regexp.MustCompile(`گیمینگ|gaming|بازی|game`)},
	{"camera", regexp.MustCompile(`دوربین|عکاسی|camera|photo`)},
	{"battery", regexp.MustCompile(`باتری|battery|شارژ|charge`)},
	{"storage", regexp.MustCompile(`حافظه|storage|memory|گیگ`)},
	{"processor", regexp.MustCompile(`پردازنده|processor|cpu|chip`)},
}

var usagePatterns = []patternEntry[string]{
	{"gaming", regexp.MustCompile(`gaming|گیمینگ|بازی|game`)},
	{"work", regexp.MustCompile(`کار|work|office|اداری|business`)},
	{"study", regexp.MustCompile(`درس|study|دانشجو|student|university`)},
	{"photography", regexp.MustCompile(`عکس|photo|camera|عکاسی`)},
	{"daily_use", regexp.MustCompile(`روزانه|daily|عادی|normal`)},
}

var categoryGroupPatterns = []patternEntry[string]{
	{"electronics", regexp.MustCompile(`گوشی|لپ تاپ|تلویزیون|هدفون|phone|laptop|tv`)},
	{"home_appliance", regexp.MustCompile(`یخچال|ماشین لباسشویی|مایکروویو`)},
	{"personal_care", regexp.MustCompile(`ماشین اصلاح|شامپو|عطر`)},
	{"fashion", regexp.MustCompile(`لباس|کفش|کیف`)},
}

var budgetPatterns = []patternEntry[Budget]{
	{BudgetConscious, regexp.MustCompile(`ارزان|cheap|budget|کم`)},
	{BudgetPremium, regexp.MustCompile(`گران|expensive|premium|پریمیم`)},
	{BudgetMidRange, regexp.MustCompile(`متوسط|middle|میان`)},
}

var (
	urgencyPattern   = regexp.MustCompile(`فوری|urgent|امروز|today|سریع|quick|زود|soon`)
	technicalPattern = regexp.MustCompile(`specs|مشخصات|processor|پردازنده|\bram\b|حافظه|gpu|benchmark`)
)

// Stopwords are dropped when picking meaningful tokens out of a query.
var stopwords = map[string]struct{}{
	"و": {}, "یا": {}, "که": {}, "را": {}, "در": {}, "با": {}, "از": {}, "به": {}, "تا": {},
	"برای": {}, "خوب": {}, "بهترین": {}, "پیشنهاد": {}, "بده": {}, "کن": {}, "میخوام": {},
	"میخواهم": {}, "لطفا": {}, "یک": {}, "این": {}, "اون": {}, "چی": {}, "کدام": {},
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "for": {}, "with": {},
	"good": {}, "best": {}, "want": {}, "need": {}, "please": {}, "some": {}, "buy": {},
}
