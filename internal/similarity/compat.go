package similarity

import "github.com/pathconvert/pathconvert/internal/models"

// CanRecommend reports whether a collection of the source category may link
// to one of the target category. The rule is one-directional: gendered
// sources refuse the opposite gender, everything else links anywhere.
func CanRecommend(source, target models.Category) bool {
	switch source {
	case models.CategoryMen:
		return target != models.CategoryWomen
	case models.CategoryWomen:
		return target != models.CategoryMen
	default:
		return true
	}
}
