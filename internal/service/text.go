package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pathconvert/pathconvert/internal/models"
)

// Embedding text limits, in characters.
const (
	maxDescriptionChars   = 5000
	maxEmbeddingTextChars = 6000
)

// BuildEmbeddingText renders the text a collection is embedded from. Empty
// sections are omitted and the unknown category is never mentioned.
func BuildEmbeddingText(c models.Collection) string {
	parts := make([]string, 0, 4)

	if c.Title != "" {
		parts = append(parts, "Title: "+c.Title)
	}

	if c.Description != "" {
		parts = append(parts, "Description: "+truncateRunes(c.Description, maxDescriptionChars))
	}

	if c.ProductSample != "" {
		parts = append(parts, "Products: "+c.ProductSample)
	}

	if c.Category.Classified() {
		parts = append(parts, "Category: "+string(c.Category))
	}

	return truncateRunes(strings.Join(parts, "\n\n"), maxEmbeddingTextChars)
}

// TextHash returns the hex sha256 of an embedding text.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))

	return hex.EncodeToString(sum[:])
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}

		count++
	}

	return s
}
