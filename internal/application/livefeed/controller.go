package livefeed

import (
	"context"
	"errors"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/internal/domain/feed"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/devex-dashboard/pkg/clock"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// Deps внешние зависимости Controller
type Deps struct {
	Dialer  port.StreamDialer
	Source  port.SnapshotSource
	Clock   clock.Clock
	Metrics port.FeedMetrics
	Logger  *logger.Logger
}

// Controller владеет push-соединением и fallback poller одного дашборда
// и сводит все входящие сообщения в состояние S через feed.Router.
//
// Все переходы выполняются под одним mutex в порядке поступления.
// Listeners вызываются синхронно под этим mutex и не должны обращаться к Controller.
// Fallback терминален: после перехода в него переподключений нет.
type Controller[S any] struct {
	cfg     Config
	router  *feed.Router[S]
	dialer  port.StreamDialer
	source  port.SnapshotSource
	clock   clock.Clock
	metrics port.FeedMetrics
	logger  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    S
	status   valueobject.ConnectionStatus
	started  bool
	closed   bool
	fallback bool
	polling  bool

	conn        port.StreamConn
	attempt     uint64
	pendingDial uint64
	subscribing uint64
	dialCancel  context.CancelFunc
	backoff     backoff.BackOff

	connectTimer   clock.Timer
	reconnectTimer clock.Timer
	pollTimer      clock.Timer
	effects        map[uint64]clock.Timer
	effectSeq      uint64

	onUpdate []func(S)
	onStatus []func(valueobject.ConnectionStatus)

	workers sync.WaitGroup
}

// NewController создает Controller в статусе connecting.
// Без Dialer или URL Connect сразу переходит в fallback.
func NewController[S any](cfg Config, router *feed.Router[S], initial S, deps Deps) *Controller[S] {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Metrics == nil {
		deps.Metrics = port.NoopFeedMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.New("info")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller[S]{
		cfg:     cfg,
		router:  router,
		dialer:  deps.Dialer,
		source:  deps.Source,
		clock:   deps.Clock,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		ctx:     ctx,
		cancel:  cancel,
		state:   initial,
		status:  valueobject.StatusConnecting,
		backoff: newBackOff(cfg.Backoff),
		effects: make(map[uint64]clock.Timer),
	}
}

// Name имя feed из конфигурации
func (c *Controller[S]) Name() string {
	return c.cfg.Name
}

// State возвращает текущее состояние
func (c *Controller[S]) State() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status возвращает статус соединения
func (c *Controller[S]) Status() valueobject.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// OnUpdate регистрирует listener нового состояния.
// Listener вызывается под блокировкой controller и не должен вызывать его методы.
func (c *Controller[S]) OnUpdate(fn func(S)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = append(c.onUpdate, fn)
}

// OnStatus регистрирует listener смены статуса
func (c *Controller[S]) OnStatus(fn func(valueobject.ConnectionStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = append(c.onStatus, fn)
}

// Run подключается и держит feed до отмены ctx, затем выполняет Close
func (c *Controller[S]) Run(ctx context.Context) error {
	c.Connect()
	<-ctx.Done()
	c.Close()
	return nil
}

// Connect начинает первую попытку подключения. Повторный вызов ничего не делает.
func (c *Controller[S]) Connect() {
	c.mu.Lock()
	if c.closed || c.started {
		c.mu.Unlock()
		return
	}
	c.started = true

	if c.dialer == nil || c.cfg.URL == "" {
		c.logger.Info("Live stream is not configured, starting fallback", "feed", c.cfg.Name)
		pollNow := c.startFallbackLocked()
		c.mu.Unlock()
		if pollNow {
			c.poll()
		}
		return
	}

	c.connectLocked()
	c.mu.Unlock()
}

// StartFallback переводит feed в polling. Идемпотентен.
// Первый снимок запрашивается синхронно в вызывающей goroutine.
func (c *Controller[S]) StartFallback() {
	c.mu.Lock()
	c.started = true
	pollNow := c.startFallbackLocked()
	c.mu.Unlock()

	if pollNow {
		c.poll()
	}
}

// Dispatch маршрутизирует локально созданное сообщение (например alert_resolved)
func (c *Controller[S]) Dispatch(msg feed.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.applyLocked(msg)
}

// Close отменяет все таймеры и запросы, закрывает соединение и дожидается
// завершения чтения. После возврата состояние не меняется и listeners не вызываются.
func (c *Controller[S]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true

	stopTimer(&c.connectTimer)
	stopTimer(&c.reconnectTimer)
	stopTimer(&c.pollTimer)
	for id, t := range c.effects {
		t.Stop()
		delete(c.effects, id)
	}

	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.pendingDial = 0

	conn := c.conn
	c.conn = nil
	c.cancel()
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.workers.Wait()

	c.logger.Info("Live feed closed", "feed", c.cfg.Name)
}

// connectLocked запускает попытку подключения с таймаутом на часах Controller
func (c *Controller[S]) connectLocked() {
	c.attempt++
	id := c.attempt

	dialCtx, cancel := context.WithCancel(c.ctx)
	c.dialCancel = cancel
	c.pendingDial = id
	c.connectTimer = c.clock.AfterFunc(c.cfg.ConnectTimeout, func() {
		c.onConnectTimeout(id)
	})

	c.logger.Debug("Connecting to live stream", "feed", c.cfg.Name, "url", c.cfg.URL, "attempt", id)

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		conn, err := c.dialer.Dial(dialCtx, c.cfg.URL)
		c.onDialResult(id, conn, err)
	}()
}

func (c *Controller[S]) onConnectTimeout(id uint64) {
	c.mu.Lock()
	if c.closed || c.pendingDial != id {
		c.mu.Unlock()
		return
	}

	c.connectTimer = nil
	c.dialCancel()
	c.dialCancel = nil
	c.pendingDial = 0

	c.logger.Warn("Live stream connect timeout", "feed", c.cfg.Name, "timeout", c.cfg.ConnectTimeout.String(), "attempt", id)

	// таймаут первой попытки сразу включает fallback при любой стратегии,
	// таймаут во время reconnect считается очередной неудачной попыткой
	var pollNow bool
	if id == 1 {
		c.setStatusLocked(valueobject.StatusDisconnected)
		pollNow = c.startFallbackLocked()
	} else {
		pollNow = c.handleDisconnectLocked()
	}
	c.mu.Unlock()

	if pollNow {
		c.poll()
	}
}

func (c *Controller[S]) onDialResult(id uint64, conn port.StreamConn, err error) {
	c.mu.Lock()
	if c.closed || c.pendingDial != id {
		// попытка уже отменена таймаутом, fallback или Close
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}

	stopTimer(&c.connectTimer)
	c.dialCancel()
	c.dialCancel = nil
	c.pendingDial = 0
	c.subscribing = id
	c.mu.Unlock()

	// подписка пишется без c.mu: медленный upstream не держит State и Close
	if err == nil {
		if err = conn.WriteJSON(c.cfg.Subscribe); err != nil {
			_ = conn.Close()
		}
	}

	c.mu.Lock()
	if c.closed || c.subscribing != id {
		// за время подписки сработал Close или StartFallback
		c.mu.Unlock()
		if err == nil {
			_ = conn.Close()
		}
		return
	}
	c.subscribing = 0

	if err != nil {
		c.logger.Warn("Live stream connect failed", "feed", c.cfg.Name, "error", err.Error())
		pollNow := c.handleDisconnectLocked()
		c.mu.Unlock()
		if pollNow {
			c.poll()
		}
		return
	}

	c.conn = conn
	c.backoff.Reset()
	c.setStatusLocked(valueobject.StatusConnected)

	c.workers.Add(1)
	go c.readLoop(conn)
	c.mu.Unlock()
}

func (c *Controller[S]) readLoop(conn port.StreamConn) {
	defer c.workers.Done()

	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			c.onStreamClosed(conn, err)
			return
		}
		c.onFrame(conn, frame)
	}
}

func (c *Controller[S]) onFrame(conn port.StreamConn, frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn != conn {
		return
	}

	msg, err := feed.Decode(frame)
	if err != nil {
		c.logger.Warn("Malformed live stream message dropped", "feed", c.cfg.Name, "error", err.Error())
		c.metrics.MessageDropped(c.cfg.Name, "malformed")
		return
	}
	c.applyLocked(msg)
}

func (c *Controller[S]) onStreamClosed(conn port.StreamConn, err error) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil

	c.logger.Warn("Live stream closed", "feed", c.cfg.Name, "error", err.Error())
	pollNow := c.handleDisconnectLocked()
	c.mu.Unlock()

	_ = conn.Close()

	if pollNow {
		c.poll()
	}
}

// handleDisconnectLocked выбирает следующий шаг после неудачной попытки или обрыва.
// Возвращает true, если вызывающий должен сразу выполнить первый poll.
func (c *Controller[S]) handleDisconnectLocked() bool {
	c.setStatusLocked(valueobject.StatusDisconnected)

	if c.cfg.Strategy == StrategyReconnect {
		delay := c.backoff.NextBackOff()
		if delay != backoff.Stop {
			c.setStatusLocked(valueobject.StatusReconnecting)
			c.metrics.ReconnectScheduled(c.cfg.Name)
			c.logger.Info("Reconnect scheduled", "feed", c.cfg.Name, "delay", delay.String())
			c.reconnectTimer = c.clock.AfterFunc(delay, c.onReconnectTimer)
			return false
		}
		c.logger.Warn("Reconnect attempts exhausted", "feed", c.cfg.Name, "attempts", c.cfg.Backoff.MaxAttempts)
	}

	return c.startFallbackLocked()
}

func (c *Controller[S]) onReconnectTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.fallback {
		return
	}
	c.reconnectTimer = nil
	c.connectLocked()
}

// startFallbackLocked гасит все попытки подключения и включает polling.
// Push-соединение и fallback никогда не активны одновременно.
func (c *Controller[S]) startFallbackLocked() bool {
	if c.closed || c.fallback {
		return false
	}
	c.fallback = true

	stopTimer(&c.connectTimer)
	stopTimer(&c.reconnectTimer)
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.pendingDial = 0
	c.subscribing = 0
	if c.conn != nil {
		c.releaseConnLocked(c.conn)
		c.conn = nil
	}

	c.setStatusLocked(valueobject.StatusFallback)

	if c.source == nil {
		c.logger.Warn("Fallback has no snapshot source", "feed", c.cfg.Name)
		return false
	}
	return true
}

// releaseConnLocked закрывает соединение вне c.mu: Close пишет close frame с дедлайном.
// Close дожидается этой goroutine через workers.
func (c *Controller[S]) releaseConnLocked(conn port.StreamConn) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		_ = conn.Close()
	}()
}

// poll запрашивает один снимок и планирует следующий через PollInterval
func (c *Controller[S]) poll() {
	c.mu.Lock()
	if c.closed || c.polling {
		c.mu.Unlock()
		return
	}
	c.polling = true
	c.pollTimer = nil
	ctx := c.ctx
	c.mu.Unlock()

	msg, err := c.source.NextSnapshot(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.polling = false
	if c.closed {
		return
	}

	c.metrics.PollCompleted(c.cfg.Name, err)
	if err != nil {
		// остаются прежние данные, следующий тик повторит запрос
		c.logger.Warn("Snapshot poll failed", "feed", c.cfg.Name, "error", err.Error())
	} else {
		c.applyLocked(msg)
	}

	c.pollTimer = c.clock.AfterFunc(c.cfg.PollInterval, c.poll)
}

// applyLocked пропускает сообщение через router и планирует его эффекты
func (c *Controller[S]) applyLocked(msg feed.Message) {
	next, effects, err := c.router.Route(c.state, msg, c.clock.Now())
	if err != nil {
		reason := "invalid_payload"
		if errors.Is(err, feed.ErrUnknownType) {
			reason = "unknown_type"
		}
		c.logger.Warn("Feed message dropped", "feed", c.cfg.Name, "type", msg.Type, "reason", reason, "error", err.Error())
		c.metrics.MessageDropped(c.cfg.Name, reason)
		return
	}

	c.state = next
	c.metrics.MessageApplied(c.cfg.Name, msg.Type)

	for _, effect := range effects {
		c.scheduleEffectLocked(effect)
	}
	for _, fn := range c.onUpdate {
		fn(next)
	}
}

func (c *Controller[S]) scheduleEffectLocked(effect feed.Effect) {
	c.effectSeq++
	id := c.effectSeq

	c.effects[id] = c.clock.AfterFunc(effect.After, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed {
			return
		}
		if _, ok := c.effects[id]; !ok {
			return
		}
		delete(c.effects, id)
		c.applyLocked(effect.Message)
	})
}

func (c *Controller[S]) setStatusLocked(status valueobject.ConnectionStatus) {
	if c.status == status {
		return
	}
	c.status = status
	c.metrics.StatusChanged(c.cfg.Name, status)
	c.logger.Info("Live feed status changed", "feed", c.cfg.Name, "status", status.String())

	for _, fn := range c.onStatus {
		fn(status)
	}
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
