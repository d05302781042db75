package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mmx233/PatchSync/config"
	"github.com/Mmx233/PatchSync/filesync"
	"github.com/Mmx233/PatchSync/inventory"
	"github.com/Mmx233/PatchSync/metrics"
	"github.com/Mmx233/PatchSync/protocol"
	"github.com/Mmx233/PatchSync/state"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrClientStopped     = errors.New("client stopped")
	ErrQueueFull         = errors.New("request queue full")
	ErrSyncIncomplete    = errors.New("sync incomplete")
	ErrServerInfoInvalid = errors.New("server info response rejected")
)

const requestQueueSize = 16

// RequestKind identifies an application request handled by the reactor.
type RequestKind int

const (
	RequestSync RequestKind = iota
	RequestServerInfo
	RequestNotice
)

func (k RequestKind) String() string {
	switch k {
	case RequestSync:
		return "sync"
	case RequestServerInfo:
		return "server_info"
	case RequestNotice:
		return "notice"
	default:
		return "unknown"
	}
}

// SyncResult summarizes one session with the update server.
type SyncResult struct {
	Session    string                      `json:"session"`
	Request    string                      `json:"request"`
	Inventory  []inventory.PatchFileRecord `json:"inventory,omitempty"`
	Deleted    []string                    `json:"deleted,omitempty"`
	Updated    []string                    `json:"updated,omitempty"`
	Rejected   []string                    `json:"rejected,omitempty"`
	Profile    state.ServerProfile         `json:"profile"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at"`
	Error      string                      `json:"error,omitempty"`
	Err        error                       `json:"-"`
}

// OK reports whether the session completed without error.
func (r *SyncResult) OK() bool {
	return r.Err == nil
}

func (r *SyncResult) apply(out Outcome) {
	r.Deleted = append(r.Deleted, out.Deleted...)
	if out.Updated != "" {
		r.Updated = append(r.Updated, out.Updated)
	}
	if out.Rejected != "" {
		r.Rejected = append(r.Rejected, out.Rejected)
	}
}

type request struct {
	kind    RequestKind
	session string
	ctx     context.Context
	done    chan response // nil for fire-and-forget requests
}

// abandoned is the result reported when the caller stops waiting for r.
// The reactor may still run the session.
func (r *request) abandoned(err error) (SyncResult, error) {
	return SyncResult{
		Session: r.session,
		Request: r.kind.String(),
		Error:   err.Error(),
		Err:     err,
	}, err
}

type response struct {
	result SyncResult
	err    error
}

// Option customizes a Client.
type Option func(*Client)

// WithStore publishes server info to store instead of state.Shared.
func WithStore(store *state.Store) Option {
	return func(c *Client) { c.store = store }
}

// WithMetrics records client activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTransport overrides the transport chosen from the configuration.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithFileSync overrides the file executor.
func WithFileSync(fs FileSync) Option {
	return func(c *Client) { c.files = fs }
}

// WithLogger sets the parent logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// OnSyncComplete registers fn to run on the reactor after every sync request,
// successful or not. fn must not block.
func OnSyncComplete(fn func(SyncResult)) Option {
	return func(c *Client) { c.onSyncComplete = fn }
}

// Client is the update protocol client. One reactor goroutine owns the
// connection; the public methods only enqueue requests to it.
type Client struct {
	config         *config.Client
	conn           *ConnectionManager
	dispatcher     *Dispatcher
	scanner        *inventory.Scanner
	store          *state.Store
	metrics        *metrics.Metrics
	transport      Transport
	files          FileSync
	onSyncComplete func(SyncResult)

	requests chan *request
	logger   zerolog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a client
func New(conf *config.Client, opts ...Option) (*Client, error) {
	// Apply defaults to ensure all required fields have values
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Client{
		config:   conf,
		store:    state.Shared,
		requests: make(chan *request, requestQueueSize),
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("com", "client").Logger()

	if c.transport == nil {
		transport, err := NewTransport(conf)
		if err != nil {
			return nil, fmt.Errorf("create transport: %w", err)
		}
		c.transport = transport
	}
	if c.files == nil {
		c.files = filesync.NewExecutor(conf.DataDir, c.logger)
	}

	c.scanner = inventory.NewScanner(conf.DataDir, c.logger)
	c.dispatcher = NewDispatcher(c.store, c.files, c.metrics, c.logger)
	c.conn = NewConnectionManager(conf.Server.Address, c.transport, ConnectionOptions{
		ConnectTimeout: conf.ConnectTimeout,
		ReadTimeout:    conf.ReadTimeout,
		WriteTimeout:   conf.WriteTimeout,
		MaxFrameSize:   conf.MaxFrameSize,
		Metrics:        c.metrics,
	}, c.logger)

	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// Start launches the reactor. It returns immediately; the reactor stops when
// ctx is done or Stop is called.
func (c *Client) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.logger.Info().
			Str("server", c.config.Server.Address).
			Str("transport", c.config.Server.Transport).
			Msg("starting client")

		stop := context.AfterFunc(ctx, c.cancel)
		c.wg.Add(1)
		go func() {
			defer stop()
			c.run()
		}()
	})
}

// Stop stops the reactor, closes the connection and waits for the reactor to exit.
func (c *Client) Stop() error {
	c.stopOnce.Do(func() {
		c.cancel()
		// Interrupts a read in progress
		_ = c.conn.Close()
	})
	c.wg.Wait()
	c.logger.Info().Msg("client stopped")
	return nil
}

// ServerProfile returns the last published server profile.
func (c *Client) ServerProfile() state.ServerProfile {
	return c.store.Load()
}

// ConnectionState returns the connection state.
func (c *Client) ConnectionState() ConnectionState {
	return c.conn.State()
}

// Sync reconciles the local patch inventory with the server and waits for the result.
func (c *Client) Sync(ctx context.Context) (SyncResult, error) {
	return c.do(ctx, RequestSync)
}

// TriggerSync enqueues a sync without waiting. The result is delivered to the
// OnSyncComplete callback.
func (c *Client) TriggerSync() error {
	r := &request{kind: RequestSync, session: uuid.NewString(), ctx: context.Background()}
	select {
	case <-c.ctx.Done():
		return ErrClientStopped
	default:
	}
	select {
	case c.requests <- r:
		return nil
	default:
		return ErrQueueFull
	}
}

// FetchServerInfo requests the server profile and waits for it to be published.
func (c *Client) FetchServerInfo(ctx context.Context) (state.ServerProfile, error) {
	res, err := c.do(ctx, RequestServerInfo)
	return res.Profile, err
}

// FetchNotice refreshes the server notice.
func (c *Client) FetchNotice(ctx context.Context) (string, error) {
	res, err := c.do(ctx, RequestNotice)
	return res.Profile.Notice, err
}

func (c *Client) do(ctx context.Context, kind RequestKind) (SyncResult, error) {
	r := &request{kind: kind, session: uuid.NewString(), ctx: ctx, done: make(chan response, 1)}

	select {
	case c.requests <- r:
	case <-ctx.Done():
		return r.abandoned(ctx.Err())
	case <-c.ctx.Done():
		return r.abandoned(ErrClientStopped)
	}

	select {
	case resp := <-r.done:
		return resp.result, resp.err
	case <-ctx.Done():
		return r.abandoned(ctx.Err())
	case <-c.ctx.Done():
		return r.abandoned(ErrClientStopped)
	}
}

// run is the reactor loop. It is the only goroutine touching the connection.
func (c *Client) run() {
	defer c.wg.Done()
	defer c.conn.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		case r := <-c.requests:
			res := c.handle(r)
			if r.done != nil {
				r.done <- response{result: res, err: res.Err}
			}
		}
	}
}

func (c *Client) handle(r *request) SyncResult {
	ctx, cancel := context.WithCancel(r.ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	res := SyncResult{
		Session:   r.session,
		Request:   r.kind.String(),
		StartedAt: time.Now(),
	}
	logger := c.logger.With().
		Str("session", res.Session).
		Str("request", res.Request).
		Logger()

	err := c.session(ctx, r.kind, &res, logger)

	res.FinishedAt = time.Now()
	res.Profile = c.store.Load()
	if err != nil {
		res.Err = err
		res.Error = err.Error()
	}

	result := metrics.ResultOK
	switch {
	case err == nil:
		logger.Info().
			Int("deleted", len(res.Deleted)).
			Int("updated", len(res.Updated)).
			Int("rejected", len(res.Rejected)).
			Dur("took", res.FinishedAt.Sub(res.StartedAt)).
			Msg("session complete")
	case errors.Is(err, ErrSyncIncomplete):
		result = metrics.ResultFileError
		logger.Error().Err(err).Msg("session finished with file errors")
	default:
		result = metrics.ResultTransport
		logger.Error().Err(err).Msg("session failed")
	}
	c.metrics.SessionFinished(res.Request, result)

	if r.kind == RequestSync && c.onSyncComplete != nil {
		c.onSyncComplete(res)
	}
	return res
}

// session runs one request/response exchange on the reactor.
func (c *Client) session(ctx context.Context, kind RequestKind, res *SyncResult, logger zerolog.Logger) error {
	var (
		payload  []byte
		terminal string
	)
	switch kind {
	case RequestSync:
		records, err := c.scanner.Scan()
		if err != nil {
			return fmt.Errorf("scan inventory: %w", err)
		}
		res.Inventory = records
		payload = inventory.EncodeRequest(records)
		terminal = protocol.CmdCheckPatches
	case RequestServerInfo:
		payload = protocol.EncodeMessage(protocol.CmdInitServer, protocol.NoArgument)
		terminal = protocol.CmdServerInfo
	case RequestNotice:
		payload = protocol.EncodeMessage(protocol.CmdGetNotice, protocol.NoArgument)
		terminal = protocol.CmdServerInfo
	default:
		return fmt.Errorf("unknown request kind %d", kind)
	}

	if !c.config.KeepConnection {
		defer c.conn.Close()
	}

	if err := c.conn.Connect(ctx); err != nil {
		c.store.MarkDisconnected()
		return err
	}
	if err := c.conn.Send(ctx, payload); err != nil {
		c.store.MarkDisconnected()
		return err
	}
	logger.Debug().Int("bytes", len(payload)).Msg("request sent")

	var (
		writeErrs []error
		done      bool
		termErr   error
	)
	for !done {
		bodies, readErr := c.conn.ReadMessages(ctx)
		// Messages completed before a read error are still applied
		for _, body := range bodies {
			out := c.dispatcher.Dispatch(body)
			res.apply(out)
			if out.Err != nil {
				writeErrs = append(writeErrs, out.Err)
			}
			if out.Command == terminal {
				done = true
				if out.Dropped && terminal == protocol.CmdServerInfo {
					termErr = ErrServerInfoInvalid
				}
			}
		}
		if readErr != nil && !done {
			c.store.MarkDisconnected()
			return readErr
		}
	}

	if termErr != nil {
		return termErr
	}
	if len(writeErrs) > 0 {
		return fmt.Errorf("%w: %d file(s) failed: %w", ErrSyncIncomplete, len(writeErrs), errors.Join(writeErrs...))
	}
	return nil
}
