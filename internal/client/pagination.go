package client

import (
	"context"
	"sync"

	"marketplace_messaging/internal/domain"
)

// FetchPage загружает страницу истории с сервера.
// Страницы нумеруются с первой (самые новые сообщения)
type FetchPage func(ctx context.Context, page, limit int) (*domain.MessagePage, error)

// Paginator подгружает историю при прокрутке назад. Старые страницы
// добавляются в начало списка; хранилище отдает страницы в стабильном
// порядке, поэтому страница N+1 не пересекается с уже загруженной N
// даже при параллельных отправках
type Paginator struct {
	mu    sync.Mutex
	fetch FetchPage
	apply func(older []*domain.Message)
	limit int

	currentPage   int
	hasNextPage   bool
	isLoadingMore bool
	generation    int
}

func NewPaginator(fetch FetchPage, apply func(older []*domain.Message), limit int) *Paginator {
	return &Paginator{
		fetch:       fetch,
		apply:       apply,
		limit:       limit,
		currentPage: 1,
		hasNextPage: true,
	}
}

// LoadFirst загружает первую страницу и сбрасывает состояние.
// Ответы незавершенных загрузок прежнего поколения отбрасываются
func (p *Paginator) LoadFirst(ctx context.Context) (*domain.MessagePage, error) {
	p.mu.Lock()
	p.generation++
	generation := p.generation
	p.currentPage = 1
	p.hasNextPage = true
	p.isLoadingMore = false
	p.mu.Unlock()

	result, err := p.fetch(ctx, 1, p.limit)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if generation != p.generation {
		return nil, nil
	}
	p.currentPage = result.Pagination.Page
	p.hasNextPage = result.Pagination.HasNextPage
	return result, nil
}

// LoadMore подгружает следующую (более старую) страницу.
// No-op, пока идет загрузка или страницы закончились — шторм
// scroll-событий не превращается в шторм запросов
func (p *Paginator) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.isLoadingMore || !p.hasNextPage {
		p.mu.Unlock()
		return nil
	}
	p.isLoadingMore = true
	generation := p.generation
	nextPage := p.currentPage + 1
	p.mu.Unlock()

	result, err := p.fetch(ctx, nextPage, p.limit)

	p.mu.Lock()
	// Пользователь ушел из диалога — поздний ответ не применяем
	if generation != p.generation {
		p.mu.Unlock()
		return nil
	}
	p.isLoadingMore = false
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.currentPage = result.Pagination.Page
	p.hasNextPage = result.Pagination.HasNextPage
	p.mu.Unlock()

	// Якорь прокрутки сохраняет UI: верхнее видимое сообщение
	// остается на месте, автопрокрутка вниз не срабатывает
	p.apply(result.Messages)
	return nil
}

// Invalidate отменяет эффект всех незавершенных загрузок
func (p *Paginator) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.isLoadingMore = false
}

func (p *Paginator) HasNextPage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasNextPage
}

func (p *Paginator) IsLoadingMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isLoadingMore
}

func (p *Paginator) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentPage
}
