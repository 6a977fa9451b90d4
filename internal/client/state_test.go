package client

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"marketplace_messaging/internal/domain"
)

func serverMessage(senderID uuid.UUID, content string) *domain.Message {
	return &domain.Message{
		ID:        uuid.New(),
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func TestAppendOptimisticIsImmediate(t *testing.T) {
	userID := uuid.New()
	state := NewThreadState(userID)

	message := state.AppendOptimistic("привет", nil)

	if message.Status != StatusSending {
		t.Fatalf("expected status sending, got %s", message.Status)
	}
	if message.OptimisticID == "" {
		t.Fatal("expected optimistic ID to be assigned")
	}
	if len(state.Messages()) != 1 {
		t.Fatalf("expected 1 message, got %d", len(state.Messages()))
	}
}

func TestConfirmSentCollapsesToSingleEntry(t *testing.T) {
	userID := uuid.New()
	state := NewThreadState(userID)

	optimistic := state.AppendOptimistic("Is this still available?", nil)

	confirmed := serverMessage(userID, "Is this still available?")
	if !state.ConfirmSent(optimistic.OptimisticID, confirmed) {
		t.Fatal("expected confirmation to match the optimistic entry")
	}

	messages := state.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected exactly 1 entry after confirmation, got %d", len(messages))
	}
	if messages[0].Status != StatusSent {
		t.Fatalf("expected status sent, got %s", messages[0].Status)
	}
	if messages[0].ID != confirmed.ID {
		t.Fatal("expected server ID to replace the optimistic entry")
	}
}

func TestConfirmSentMatchesByOptimisticIDUnderIdenticalContent(t *testing.T) {
	userID := uuid.New()
	state := NewThreadState(userID)

	// Два одинаковых текста подряд: сверка по содержимому неоднозначна,
	// корреляционный ID выбирает правильную запись
	first := state.AppendOptimistic("ok", nil)
	second := state.AppendOptimistic("ok", nil)

	confirmed := serverMessage(userID, "ok")
	if !state.ConfirmSent(second.OptimisticID, confirmed) {
		t.Fatal("expected confirmation to succeed")
	}

	messages := state.Messages()
	if messages[0].OptimisticID != first.OptimisticID || messages[0].Status != StatusSending {
		t.Fatal("expected the first optimistic entry to stay pending")
	}
	if messages[1].ID != confirmed.ID || messages[1].Status != StatusSent {
		t.Fatal("expected the second entry to be confirmed")
	}
}

func TestConfirmSentFallsBackToContentMatch(t *testing.T) {
	userID := uuid.New()
	state := NewThreadState(userID)

	state.AppendOptimistic("fallback", nil)

	confirmed := serverMessage(userID, "fallback")
	if !state.ConfirmSent("", confirmed) {
		t.Fatal("expected content fallback to match")
	}
	if state.Messages()[0].Status != StatusSent {
		t.Fatal("expected entry to be confirmed via content match")
	}
}

func TestLateConfirmAfterEchoKeepsOtherPendingEntry(t *testing.T) {
	userID := uuid.New()
	state := NewThreadState(userID)

	// Две отправки с одинаковым текстом, эхо первой приходит раньше
	// ее HTTP-подтверждения
	first := state.AppendOptimistic("hi", nil)
	second := state.AppendOptimistic("hi", nil)

	confirmed := serverMessage(userID, "hi")
	state.Receive(confirmed, first.OptimisticID)

	if !state.ConfirmSent(first.OptimisticID, confirmed) {
		t.Fatal("expected late confirmation to be accepted as already applied")
	}

	messages := state.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(messages))
	}

	var withServerID int
	for _, message := range messages {
		if message.ID == confirmed.ID {
			withServerID++
		}
	}
	if withServerID != 1 {
		t.Fatalf("expected a single entry for server id, got %d", withServerID)
	}
	if messages[1].OptimisticID != second.OptimisticID || messages[1].Status != StatusSending {
		t.Fatal("expected the second send to stay pending")
	}
}

func TestConfirmSentSkipsContentFallbackWhenIDGiven(t *testing.T) {
	userID := uuid.New()
	state := NewThreadState(userID)

	state.AppendOptimistic("same text", nil)

	// Корреляционный ID задан, но такой заготовки нет: совпадение
	// по тексту использовать нельзя
	confirmed := serverMessage(userID, "same text")
	if state.ConfirmSent("unknown-id", confirmed) {
		t.Fatal("expected no content fallback for a stale correlation ID")
	}
	if state.Messages()[0].Status != StatusSending {
		t.Fatal("expected the pending entry to stay untouched")
	}
}

func TestReceiveDeduplicatesByServerID(t *testing.T) {
	userID := uuid.New()
	other := uuid.New()
	state := NewThreadState(userID)

	incoming := serverMessage(other, "дубликат")
	state.Receive(incoming, "")
	state.Receive(incoming, "")

	messages := state.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected exactly 1 entry for duplicated delivery, got %d", len(messages))
	}
	if messages[0].Status != StatusDelivered {
		t.Fatalf("expected status delivered, got %s", messages[0].Status)
	}
}

func TestReceiveOwnEchoConfirmsOptimistic(t *testing.T) {
	userID := uuid.New()
	state := NewThreadState(userID)

	optimistic := state.AppendOptimistic("echo", nil)
	state.Receive(serverMessage(userID, "echo"), optimistic.OptimisticID)

	messages := state.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected echo to collapse into 1 entry, got %d", len(messages))
	}
	if messages[0].Status != StatusSent {
		t.Fatalf("expected status sent, got %s", messages[0].Status)
	}
}

func TestFailedStaysInPlaceAndRetryCreatesFresh(t *testing.T) {
	userID := uuid.New()
	state := NewThreadState(userID)

	optimistic := state.AppendOptimistic("не ушло", nil)

	if !state.MarkFailed(optimistic.OptimisticID) {
		t.Fatal("expected entry to transition to failed")
	}
	messages := state.Messages()
	if len(messages) != 1 || messages[0].Status != StatusFailed {
		t.Fatal("expected failed entry to remain in place")
	}

	fresh := state.Retry(optimistic.OptimisticID)
	if fresh == nil {
		t.Fatal("expected retry to create a fresh optimistic entry")
	}
	if fresh.OptimisticID == optimistic.OptimisticID {
		t.Fatal("expected a new optimistic ID on retry")
	}

	messages = state.Messages()
	if len(messages) != 1 || messages[0].Status != StatusSending {
		t.Fatal("expected the failed entry to be replaced by a fresh one")
	}
	if messages[0].Content != "не ушло" {
		t.Fatal("expected retry to reuse the original content")
	}
}

func TestSendTimeoutMarksFailed(t *testing.T) {
	userID := uuid.New()
	state := NewThreadState(userID)

	optimistic := state.AppendOptimistic("timeout", nil)
	state.StartSendTimeout(optimistic.OptimisticID, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)

	if state.Messages()[0].Status != StatusFailed {
		t.Fatal("expected unconfirmed send to surface as failed")
	}
}

func TestSendTimeoutDoesNotTouchConfirmed(t *testing.T) {
	userID := uuid.New()
	state := NewThreadState(userID)

	optimistic := state.AppendOptimistic("быстрое подтверждение", nil)
	state.StartSendTimeout(optimistic.OptimisticID, 10*time.Millisecond)
	state.ConfirmSent(optimistic.OptimisticID, serverMessage(userID, "быстрое подтверждение"))

	time.Sleep(50 * time.Millisecond)

	if state.Messages()[0].Status != StatusSent {
		t.Fatal("expected confirmed message to stay sent after timeout fires")
	}
}

func TestMarkReadFlipsStatus(t *testing.T) {
	userID := uuid.New()
	other := uuid.New()
	state := NewThreadState(userID)

	incoming := serverMessage(other, "прочитай меня")
	state.Receive(incoming, "")
	state.MarkRead([]uuid.UUID{incoming.ID})

	if state.Messages()[0].Status != StatusRead {
		t.Fatal("expected status read after mark-read")
	}
}

func TestPrependKeepsOrderAndSkipsDuplicates(t *testing.T) {
	userID := uuid.New()
	other := uuid.New()
	state := NewThreadState(userID)

	recent := serverMessage(other, "recent")
	state.Receive(recent, "")

	older1 := serverMessage(other, "older-1")
	older2 := serverMessage(other, "older-2")
	state.Prepend([]*domain.Message{older1, older2, recent})

	messages := state.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(messages))
	}
	if messages[0].ID != older1.ID || messages[1].ID != older2.ID || messages[2].ID != recent.ID {
		t.Fatal("expected older page to be prepended without disturbing existing entries")
	}
}

func TestReconcileKeepsPendingEntries(t *testing.T) {
	userID := uuid.New()
	other := uuid.New()
	state := NewThreadState(userID)

	state.Receive(serverMessage(other, "старое"), "")
	pending := state.AppendOptimistic("еще не ушло", nil)

	authoritative := []*domain.Message{
		serverMessage(other, "первое"),
		serverMessage(other, "второе"),
	}
	state.Reconcile(authoritative)

	messages := state.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected 2 authoritative + 1 pending, got %d", len(messages))
	}
	if messages[2].OptimisticID != pending.OptimisticID {
		t.Fatal("expected pending optimistic entry to survive reconciliation")
	}
}
