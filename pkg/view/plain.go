package view

import (
	"sync"

	"github.com/rs/zerolog"
)

// Plain 以日志形式输出轮询状态，用于非交互终端，实现 poller.View.
type Plain struct {
	logger *zerolog.Logger

	mu   sync.Mutex
	last string
}

// NewPlain 创建日志视图.
func NewPlain(logger *zerolog.Logger) *Plain {
	return &Plain{logger: logger}
}

func (p *Plain) StartSpinner() { p.logger.Debug().Msg("Polling started") }

func (p *Plain) StopSpinner() { p.logger.Debug().Msg("Polling stopped") }

// SetStatus 相同的状态只输出一次.
func (p *Plain) SetStatus(header, message string) {
	p.mu.Lock()
	key := header + "\x00" + message
	repeated := key == p.last
	p.last = key
	p.mu.Unlock()

	if repeated {
		return
	}

	p.logger.Info().Str("header", header).Str("detail", message).Msg("Status")
}

func (p *Plain) HideStatus() {}

func (p *Plain) ShowResults() { p.logger.Debug().Msg("Results ready") }
