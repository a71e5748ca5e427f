package mockserver

import (
	"sync"

	"github.com/Lolalalalo-o/autocombat/pkg/api"
)

type subscriber struct {
	account string
	ch      chan api.StateUpdate
}

// Broadcaster занимается только рассылкой сообщений подписчикам.
// Один аккаунт может держать несколько соединений.
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: ID соединения -> подписчик
	subscribers map[string]*subscriber
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*subscriber),
	}
}

// Register создает личный канал для соединения
func (b *Broadcaster) Register(connID, account string) chan api.StateUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Если канал был, закрываем
	if old, ok := b.subscribers[connID]; ok {
		close(old.ch)
	}

	ch := make(chan api.StateUpdate, 64)
	b.subscribers[connID] = &subscriber{account: account, ch: ch}
	return ch
}

// Unregister удаляет подписчика
func (b *Broadcaster) Unregister(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[connID]; ok {
		close(sub.ch)
		delete(b.subscribers, connID)
	}
}

// SendTo отправляет сообщение всем соединениям аккаунта.
// Медленный подписчик теряет сообщение, а не блокирует сервер.
func (b *Broadcaster) SendTo(account string, msg api.StateUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.account != account {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// Broadcast отправляет всем
func (b *Broadcaster) Broadcast(msg api.StateUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// SubscriberCount возвращает количество активных подписчиков.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
