package merge

import (
	"slices"

	"github.com/rarepdftool/pdftools/internal/models"
)

// The helpers below never modify their input; each returns a fresh slice
// that replaces the session's ordering wholesale.

func indexOf(items []models.Item, id string) int {
	return slices.IndexFunc(items, func(it models.Item) bool { return it.ID == id })
}

// moveItem relocates id to newIndex, clamped to the valid range. The other
// items keep their relative order.
func moveItem(items []models.Item, id string, newIndex int) ([]models.Item, bool) {
	from := indexOf(items, id)
	if from < 0 {
		return items, false
	}
	newIndex = max(0, min(newIndex, len(items)-1))

	next := make([]models.Item, 0, len(items))
	rest := slices.Concat(items[:from], items[from+1:])
	next = append(next, rest[:newIndex]...)
	next = append(next, items[from])
	next = append(next, rest[newIndex:]...)
	return next, true
}

func removeItem(items []models.Item, id string) ([]models.Item, models.Item, bool) {
	idx := indexOf(items, id)
	if idx < 0 {
		return items, models.Item{}, false
	}
	return slices.Concat(items[:idx], items[idx+1:]), items[idx], true
}

func replaceItem(items []models.Item, it models.Item) ([]models.Item, bool) {
	idx := indexOf(items, it.ID)
	if idx < 0 {
		return items, false
	}
	next := slices.Clone(items)
	next[idx] = it
	return next, true
}

func totalSize(items []models.Item) int64 {
	var n int64
	for _, it := range items {
		n += it.Size
	}
	return n
}
