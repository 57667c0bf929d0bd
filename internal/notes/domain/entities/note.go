// Package entities defines the domain entities for the notes service.
package entities

import (
	"sort"
	"strings"
	"time"
)

// TemplateTagPrefix префикс тега, которым помечаются шаблоны заметок.
const TemplateTagPrefix = "template:"

// TimePrecision точность меток времени заметки. timestamptz в Postgres хранит микросекунды.
const TimePrecision = time.Microsecond

// Note заметка, хранящаяся в строке удаленной таблицы и в локальном кэше.
type Note struct {
	ID        string     `json:"id"`
	SourceID  string     `json:"sourceId,omitempty"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Tags      string     `json:"tags"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// NewNote creates a note stamped with the given time.
func NewNote(id, sourceID, title, content, tags string, now time.Time) *Note {
	return &Note{
		ID:        id,
		SourceID:  sourceID,
		Title:     title,
		Content:   content,
		Tags:      NormalizeTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsDeleted единственный предикат мягкого удаления: все выборки отбрасывают такие заметки.
func (n *Note) IsDeleted() bool {
	return n.DeletedAt != nil
}

// Clone возвращает независимую копию заметки.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	if n.DeletedAt != nil {
		d := *n.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}

// Touch выставляет UpdatedAt, не позволяя ему уменьшиться.
func (n *Note) Touch(now time.Time) {
	if now.After(n.UpdatedAt) {
		n.UpdatedAt = now
	}
}

// NewerThan сообщает, что заметка изменена строго позже other с точностью TimePrecision.
func (n *Note) NewerThan(other *Note) bool {
	return n.UpdatedAt.Truncate(TimePrecision).After(other.UpdatedAt.Truncate(TimePrecision))
}

// MarkDeleted мягко удаляет заметку.
func (n *Note) MarkDeleted(now time.Time) {
	n.Touch(now)
	deletedAt := n.UpdatedAt
	n.DeletedAt = &deletedAt
}

// TagList возвращает теги заметки без пустых значений.
func (n *Note) TagList() []string {
	return SplitTags(n.Tags)
}

// HasAnyTag проверяет, есть ли у заметки хотя бы один из тегов.
func (n *Note) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	own := n.TagList()
	for _, want := range tags {
		for _, have := range own {
			if have == want {
				return true
			}
		}
	}
	return false
}

// TemplateName возвращает имя шаблона, если заметка помечена тегом template:<name>.
func (n *Note) TemplateName() (string, bool) {
	for _, tag := range n.TagList() {
		if name, ok := strings.CutPrefix(tag, TemplateTagPrefix); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// SplitTags разбирает строку тегов через запятую.
func SplitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeTags убирает пробелы и дубликаты, сохраняя порядок первого появления.
func NormalizeTags(tags string) string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, tag := range SplitTags(tags) {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return strings.Join(out, ",")
}

// UniqueTags собирает отсортированное множество тегов неудаленных заметок.
func UniqueTags(notes []*Note) []string {
	set := make(map[string]struct{})
	for _, n := range notes {
		if n.IsDeleted() {
			continue
		}
		for _, tag := range n.TagList() {
			set[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Live отбрасывает мягко удаленные заметки.
func Live(notes []*Note) []*Note {
	out := make([]*Note, 0, len(notes))
	for _, n := range notes {
		if !n.IsDeleted() {
			out = append(out, n)
		}
	}
	return out
}

// SheetRow переводит позицию строки данных (с нуля) в абсолютный номер строки таблицы:
// первая строка занята заголовком, нумерация таблицы начинается с единицы.
func SheetRow(dataIndex int) int {
	return dataIndex + 2
}
