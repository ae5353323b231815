// file: internal/models/category.go
// version: 1.0.0
// guid: daa08849-dc63-4d09-a73c-8f3a44b0cc91

package models

// Unclassified marks a book whose KDC bucket is unknown.
const Unclassified = -1

// Category is one bucket of the Korean Decimal Classification table.
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// Categories is the fixed KDC table, indexed by ID.
var Categories = []Category{
	{ID: 0, Name: "총류", Icon: "📚", Description: "총류, 문헌정보학, 백과사전"},
	{ID: 1, Name: "철학", Icon: "🤔", Description: "철학, 심리학, 윤리학"},
	{ID: 2, Name: "종교", Icon: "🙏", Description: "종교, 신화, 신학"},
	{ID: 3, Name: "자연과학", Icon: "🔬", Description: "수학, 물리학, 화학, 생물학"},
	{ID: 4, Name: "기술과학", Icon: "⚙️", Description: "의학, 공학, 농학, 가정학"},
	{ID: 5, Name: "예술", Icon: "🎨", Description: "예술, 음악, 미술, 체육"},
	{ID: 6, Name: "언어", Icon: "💬", Description: "언어학, 한국어, 영어"},
	{ID: 7, Name: "문학", Icon: "✍️", Description: "한국문학, 세계문학"},
	{ID: 8, Name: "역사", Icon: "🏛️", Description: "역사, 지리, 전기"},
}

// CategoryByID returns the table entry for id, or false for Unclassified
// and anything outside the table.
func CategoryByID(id int) (Category, bool) {
	if id < 0 || id >= len(Categories) {
		return Category{}, false
	}
	return Categories[id], true
}

// CategoryName returns the display name, or "" when id has no entry.
func CategoryName(id int) string {
	c, ok := CategoryByID(id)
	if !ok {
		return ""
	}
	return c.Name
}

// ValidCategory reports whether id is Unclassified or a table entry.
func ValidCategory(id int) bool {
	return id == Unclassified || (id >= 0 && id < len(Categories))
}
