package pipeline

import (
	"context"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/talkincode/wabridge/internal/whatsapp"
)

// Dispatcher fans inbound events onto a bounded worker pool so slow
// chatbot round-trips cannot back up the transport's event loop.
type Dispatcher struct {
	pool     *ants.Pool
	pipeline *Pipeline
}

func NewDispatcher(workers int, pipeline *Pipeline) (*Dispatcher, error) {
	if workers <= 0 {
		workers = 16
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{pool: pool, pipeline: pipeline}, nil
}

// Dispatch submits one event. When the pool rejects the task the event
// is processed inline rather than dropped.
func (d *Dispatcher) Dispatch(cli whatsapp.Client, evt whatsapp.Event) {
	err := d.pool.Submit(func() {
		d.pipeline.Process(context.Background(), evt)
	})
	if err != nil {
		zap.L().Warn("dispatcher: pool submit failed, running inline",
			zap.String("from", evt.From), zap.Error(err))
		d.pipeline.Process(context.Background(), evt)
	}
}

func (d *Dispatcher) Release() {
	d.pool.Release()
}
