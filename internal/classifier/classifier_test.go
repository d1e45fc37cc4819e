package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/digikala-search/internal/models"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected models.Language
	}{
		{name: "Persian only", text: "گوشی سامسونگ ارزان", expected: models.LanguagePersian},
		{name: "English only", text: "laptop for work", expected: models.LanguageEnglish},
		{name: "Mixed", text: "گوشی samsung", expected: models.LanguageMixed},
		{name: "Digits and symbols only", text: "123 !!", expected: models.LanguageUnknown},
		{name: "Empty", text: "", expected: models.LanguageUnknown},
		{name: "Mostly Persian with a model name", text: "گوشی موبایل سامسونگ A54", expected: models.LanguagePersian},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectLanguage(tt.text))
		})
	}
}

func TestDetectBrands(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "Persian brand", text: "سامسونگ گوشی ارزان", expected: []string{"سامسونگ"}},
		{name: "English brand any case", text: "Samsung Galaxy", expected: []string{"samsung"}},
		{name: "Two word brand", text: "تلویزیون ال جی", expected: []string{"ال جی"}},
		{name: "Brand inside another word is ignored", text: "مدل جدید", expected: nil},
		{name: "Two brands in table order", text: "asus or lenovo laptop", expected: []string{"asus", "lenovo"}},
		{name: "Aliases collapse to one brand", text: "apple iphone", expected: []string{"apple"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectBrands(tt.text))
		})
	}
}

func TestDetectCategories(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "English laptop", text: "laptop for work", expected: []string{"لپ تاپ"}},
		{name: "Persian phone", text: "سامسونگ گوشی ارزان", expected: []string{"گوشی"}},
		{name: "Laptop written with ZWNJ", text: "لپ\u200cتاپ ایسوس", expected: []string{"لپ تاپ"}},
		{name: "Smartphone maps to phone", text: "best smartphone", expected: []string{"گوشی"}},
		{name: "Nothing", text: "یک چیز خوب", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectCategories(tt.text))
		})
	}
}

func TestClassifyIntents(t *testing.T) {
	c := Classify("مقایسه بهترین گوشی ارزان برای عکاسی")

	assert.True(t, c.HasIntent(IntentComparison))
	assert.True(t, c.HasIntent(IntentBudget))
	assert.True(t, c.HasIntent(IntentSpecificFeature))
	assert.True(t, c.HasIntent(IntentRecommendation))
	assert.False(t, c.HasIntent(IntentReplacement))
	assert.Equal(t, BudgetConscious, c.Budget)
	assert.Contains(t, c.UsageContexts, "photography")
	assert.Contains(t, c.CategoryGroups, "electronics")
}

func TestClassifyDefaults(t *testing.T) {
	c := Classify("hello")

	assert.Empty(t, c.Intents)
	assert.Equal(t, BudgetFlexible, c.Budget)
	assert.Equal(t, "normal", c.Urgency)
	assert.Equal(t, "general", c.TechnicalLevel)
}

func TestClassifyUrgencyAndTechnical(t *testing.T) {
	c := Classify("need a laptop today with 16gb ram and good gpu")

	assert.Equal(t, "high", c.Urgency)
	assert.Equal(t, "technical", c.TechnicalLevel)
	assert.True(t, c.HasIntent(IntentUrgent))
}

func TestClassifyIsIdempotent(t *testing.T) {
	texts := []string{
		"سامسونگ گوشی ارزان",
		"laptop for work",
		"هدفون sony یا jbl برای بازی",
		"",
	}

	for _, text := range texts {
		assert.Equal(t, Classify(text), Classify(text), text)
	}
}

func TestMeaningfulTokens(t *testing.T) {
	assert.Equal(t, []string{"laptop", "work"}, MeaningfulTokens("laptop for work", 3))
	assert.Empty(t, MeaningfulTokens("یه میخوام", 3))
	assert.Empty(t, MeaningfulTokens("و یا که را", 3))
	assert.Equal(t, []string{"اسپیکر", "بلوتوث", "قابل"}, MeaningfulTokens("اسپیکر بلوتوث قابل حمل", 3))
}

func TestBrandAliases(t *testing.T) {
	assert.Contains(t, BrandAliases("سامسونگ"), "samsung")
	assert.Contains(t, BrandAliases("Samsung"), "سامسونگ")
	assert.Equal(t, []string{"jbl"}, BrandAliases("JBL"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "samsung galaxy a54 5g", Normalize("  Samsung   Galaxy-A54 (5G) "))
	assert.Equal(t, "لپ تاپ", Normalize("لپ\u200cتاپ"))
}
