package syncer

import (
	"sync"
	"time"

	"sheetnotes/internal/notes/domain/entities"
)

// NoticeKind вид уведомления пользователю.
type NoticeKind string

// Виды уведомлений.
const (
	// NoticeReverted изменение не сохранено в таблице и отменено локально.
	NoticeReverted NoticeKind = "reverted"
)

// Notice уведомление о результате фоновой доставки.
type Notice struct {
	Kind      NoticeKind         `json:"kind"`
	SourceID  string             `json:"sourceId"`
	NoteID    string             `json:"noteId"`
	Operation entities.Operation `json:"operation"`
	Err       error              `json:"-"`
	At        time.Time          `json:"at"`
}

const subscriberBuffer = 10

// Notifier рассылает уведомления подписчикам и хранит последние из них.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[chan Notice]struct{}
	recent      []Notice
	keep        int
}

// NewNotifier создает рассыльщик, хранящий keep последних уведомлений.
func NewNotifier(keep int) *Notifier {
	if keep <= 0 {
		keep = 50
	}
	return &Notifier{
		subscribers: make(map[chan Notice]struct{}),
		keep:        keep,
	}
}

// Subscribe возвращает канал уведомлений.
func (n *Notifier) Subscribe() chan Notice {
	ch := make(chan Notice, subscriberBuffer)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe закрывает канал подписчика.
func (n *Notifier) Unsubscribe(ch chan Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.subscribers[ch]; ok {
		close(ch)
		delete(n.subscribers, ch)
	}
}

// Publish рассылает уведомление. Переполненный подписчик его пропускает.
func (n *Notifier) Publish(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.recent = append(n.recent, notice)
	if len(n.recent) > n.keep {
		n.recent = n.recent[len(n.recent)-n.keep:]
	}

	for ch := range n.subscribers {
		select {
		case ch <- notice:
		default:
		}
	}
}

// Recent возвращает последние уведомления, новые первыми.
func (n *Notifier) Recent() []Notice {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Notice, len(n.recent))
	for i, notice := range n.recent {
		out[len(n.recent)-1-i] = notice
	}
	return out
}
