package protocol

import "sync"

// BufPool: пул переиспользуемых буферов для сборки исходящих фреймов.
type BufPool struct {
	pool sync.Pool
}

// NewBufPool создаёт пул с указанной начальной ёмкостью для новых слайсов.
func NewBufPool(defaultCap int) *BufPool {
	p := &BufPool{}
	p.pool.New = func() any {
		b := make([]byte, 0, defaultCap)
		return &b
	}
	return p
}

// Get возвращает пустой слайс (len 0) для append-сборки фрейма.
func (p *BufPool) Get() []byte {
	return (*p.pool.Get().(*[]byte))[:0]
}

// Put возвращает слайс в пул. Вызывающий больше не должен его использовать.
func (p *BufPool) Put(b []byte) {
	if b == nil {
		return
	}
	b = b[:0]
	p.pool.Put(&b)
}
