// Пакет idgen — генератор 64-битных id без центрального секвенсора:
// (секунды от собственной эпохи << 32) | счётчик из стора.
// Счётчик — отдельный ключ на (тег, день), так что значения в нём не
// переполняют int64 и обнуляются на границе суток (документированное
// поведение, вызывающий его переживает: старшие биты растут со временем).
package idgen

import (
	"context"

	"github.com/EgorLis/nearby/internal/domain"
)

const (
	// Эпоха генератора: 2022-01-01T00:00:00Z.
	epochSeconds = 1640995200
	sequenceBits = 32
	sequenceMask = (int64(1) << sequenceBits) - 1
)

type Worker struct {
	kv    domain.KV
	clock domain.Clock
}

func New(kv domain.KV) *Worker {
	return &Worker{kv: kv, clock: domain.RealClock{}}
}

// NewWithClock — для тестов с фиксированным временем.
func NewWithClock(kv domain.KV, clock domain.Clock) *Worker {
	return &Worker{kv: kv, clock: clock}
}

// NextID выдаёт уникальный монотонно неубывающий id для бизнес-тега.
// Уникальность глобальная для всех инстансов, делящих store; строгий
// порядок между конкурентными вызовами одного мгновения не гарантируется.
func (w *Worker) NextID(ctx context.Context, tag string) (int64, error) {
	now := w.clock.Now().UTC()
	ts := now.Unix() - epochSeconds

	seq, err := w.kv.Incr(ctx, domain.IDCounterKey(tag, now))
	if err != nil {
		return 0, err
	}

	return ts<<sequenceBits | (seq & sequenceMask), nil
}
