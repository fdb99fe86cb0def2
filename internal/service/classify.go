package service

import (
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pathconvert/pathconvert/internal/catalog"
	"github.com/pathconvert/pathconvert/internal/models"
)

var saleKeywords = wordSet(
	"sale", "sales", "clearance", "outlet", "offer", "offers",
	"deals", "discount", "promotions", "promo",
)

var (
	menKeywords   = wordSet("men", "mens", "man", "male", "him", "his", "guys", "gentleman")
	womenKeywords = wordSet("women", "womens", "woman", "female", "her", "hers", "ladies", "girls")
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}

	return m
}

// words splits the lowercased title and handle on anything that is not a
// letter or digit, so "women's-tops" yields women, s, tops.
func words(title, handle string) []string {
	return strings.FieldsFunc(strings.ToLower(title+" "+handle), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAny(tokens []string, set map[string]struct{}) bool {
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			return true
		}
	}

	return false
}

// ClassifyCategory derives the audience of a collection from whole words in
// its title and handle.
func ClassifyCategory(title, handle string) models.Category {
	tokens := words(title, handle)
	men := containsAny(tokens, menKeywords)
	women := containsAny(tokens, womenKeywords)

	switch {
	case men && women:
		return models.CategoryUnisex
	case men:
		return models.CategoryMen
	case women:
		return models.CategoryWomen
	default:
		return models.CategoryUnknown
	}
}

// IsSaleCollection reports whether the title or handle names a promotion.
func IsSaleCollection(title, handle string) bool {
	return containsAny(words(title, handle), saleKeywords)
}

// CleanDescription converts description HTML to plain text. Tags become word
// breaks, entities are decoded, whitespace is collapsed and the result is
// capped at models.MaxDescriptionLength characters.
func CleanDescription(descriptionHTML string) string {
	if strings.TrimSpace(descriptionHTML) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(descriptionHTML))
	if err != nil {
		return ""
	}

	var b strings.Builder

	collectText(doc.Selection, &b)

	return truncateRunes(strings.Join(strings.Fields(b.String()), " "), models.MaxDescriptionLength)
}

func collectText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)

		switch {
		case node.Type == html.TextNode:
			b.WriteString(node.Data)
		case node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style"):
			return
		default:
			b.WriteByte(' ')
			collectText(s, b)
			b.WriteByte(' ')
		}
	})
}

// productSample joins up to models.MaxProductSample product titles.
func productSample(titles []string) string {
	if len(titles) > models.MaxProductSample {
		titles = titles[:models.MaxProductSample]
	}

	kept := make([]string, 0, len(titles))
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}

	return strings.Join(kept, ", ")
}

// NormalizeCollection turns a catalog record into the form stored locally.
func NormalizeCollection(c catalog.Collection) models.CollectionUpsert {
	var updated *time.Time
	if c.UpdatedAt != nil {
		t := c.UpdatedAt.UTC()
		updated = &t
	}

	return models.CollectionUpsert{
		ExternalID:      c.ExternalID,
		Handle:          c.Handle,
		Title:           strings.TrimSpace(c.Title),
		Description:     CleanDescription(c.DescriptionHTML),
		ProductSample:   productSample(c.ProductTitles),
		Category:        ClassifyCategory(c.Title, c.Handle),
		ExcludedSale:    IsSaleCollection(c.Title, c.Handle),
		UpdatedAtSource: updated,
	}
}
