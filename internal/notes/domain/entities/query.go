package entities

import (
	"sort"
	"strings"
)

// SortOrder порядок сортировки по времени создания.
type SortOrder string

// Варианты сортировки.
const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// ListOptions параметры выборки заметок источника.
type ListOptions struct {
	Search string
	Tags   []string
	Sort   SortOrder
}

// Apply фильтрует и сортирует заметки. Мягко удаленные заметки отбрасываются всегда.
func (o ListOptions) Apply(notes []*Note) []*Note {
	search := strings.ToLower(strings.TrimSpace(o.Search))

	out := make([]*Note, 0, len(notes))
	for _, n := range Live(notes) {
		if search != "" &&
			!strings.Contains(strings.ToLower(n.Title), search) &&
			!strings.Contains(strings.ToLower(n.Content), search) {
			continue
		}
		if !n.HasAnyTag(o.Tags) {
			continue
		}
		out = append(out, n)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if o.Sort == SortOldest {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Template заметка-шаблон с извлеченным именем.
type Template struct {
	Name string `json:"name"`
	Note *Note  `json:"note"`
}

// Templates выбирает шаблоны среди неудаленных заметок, сортируя по имени.
func Templates(notes []*Note) []Template {
	out := make([]Template, 0)
	for _, n := range Live(notes) {
		if name, ok := n.TemplateName(); ok {
			out = append(out, Template{Name: name, Note: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
