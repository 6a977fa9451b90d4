package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TypingCoordinator держит клиентскую половину индикатора печати.
// Наружу уходят только переходы: повторный StartTyping при уже идущей
// печати лишь сдвигает таймер. Флаги удаленных пользователей гаснут
// по собственному таймеру, парный stop-сигнал может и не дойти
type TypingCoordinator struct {
	mu       sync.Mutex
	publish  func(isTyping bool)
	debounce time.Duration
	expiry   time.Duration

	typing    bool
	stopTimer *time.Timer
	remote    map[uuid.UUID]*time.Timer
	closed    bool
}

func NewTypingCoordinator(publish func(isTyping bool), debounce, expiry time.Duration) *TypingCoordinator {
	return &TypingCoordinator{
		publish:  publish,
		debounce: debounce,
		expiry:   expiry,
		remote:   make(map[uuid.UUID]*time.Timer),
	}
}

// StartTyping вызывается на каждое нажатие. Публикация — только
// на переходе "не печатал -> печатает"
func (tc *TypingCoordinator) StartTyping() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.closed {
		return
	}

	if tc.stopTimer != nil {
		tc.stopTimer.Stop()
	}
	tc.stopTimer = time.AfterFunc(tc.debounce, tc.StopTyping)

	if tc.typing {
		return
	}
	tc.typing = true
	tc.publish(true)
}

// StopTyping гасит локальный флаг: явно при отправке сообщения
// или автоматически по окну бездействия
func (tc *TypingCoordinator) StopTyping() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.closed || !tc.typing {
		return
	}
	tc.typing = false
	if tc.stopTimer != nil {
		tc.stopTimer.Stop()
		tc.stopTimer = nil
	}
	tc.publish(false)
}

// HandleRemote обрабатывает событие user-typing от другого участника.
// true продлевает срок жизни флага, false убирает его сразу
func (tc *TypingCoordinator) HandleRemote(userID uuid.UUID, isTyping bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.closed {
		return
	}

	if existing, ok := tc.remote[userID]; ok {
		existing.Stop()
		delete(tc.remote, userID)
	}

	if !isTyping {
		return
	}

	tc.remote[userID] = time.AfterFunc(tc.expiry, func() {
		tc.mu.Lock()
		defer tc.mu.Unlock()
		delete(tc.remote, userID)
	})
}

// TypingUsers возвращает пользователей с непогасшим флагом печати
func (tc *TypingCoordinator) TypingUsers() []uuid.UUID {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	users := make([]uuid.UUID, 0, len(tc.remote))
	for id := range tc.remote {
		users = append(users, id)
	}
	return users
}

// Text — строка индикатора для UI
func (tc *TypingCoordinator) Text() string {
	tc.mu.Lock()
	n := len(tc.remote)
	tc.mu.Unlock()

	switch {
	case n == 0:
		return ""
	case n == 1:
		return "is typing…"
	case n == 2:
		return "are typing…"
	default:
		return fmt.Sprintf("%d people are typing…", n)
	}
}

// Close останавливает все таймеры; дальнейшие вызовы — no-op
func (tc *TypingCoordinator) Close() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.closed = true
	if tc.stopTimer != nil {
		tc.stopTimer.Stop()
	}
	for id, timer := range tc.remote {
		timer.Stop()
		delete(tc.remote, id)
	}
}
