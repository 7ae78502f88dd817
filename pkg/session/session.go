// Package session implements the transport-agnostic JSON-RPC peer at the
// core of the SDK: it assigns request IDs, correlates responses to
// outstanding requests under per-request timeouts, routes inbound requests
// and notifications to registered handlers, and serializes outbound writes
// through its transport.
//
// Both roles run a symmetric Session; the asymmetry lives in which request
// methods each side registers.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	mcperrors "github.com/mcpkit/mcp-go/pkg/errors"
	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/protocol"
	"github.com/mcpkit/mcp-go/pkg/transport"
)

// DefaultRequestTimeout is the per-request deadline applied when none is
// configured.
const DefaultRequestTimeout = 10 * time.Second

// defaultWorkerLimit bounds concurrently running inbound request handlers.
const defaultWorkerLimit = 16

// notificationQueueSize bounds the in-order notification dispatch queue.
const notificationQueueSize = 64

// RequestHandler produces a response payload, or an error that is converted
// into a JSON-RPC error response.
type RequestHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// NotificationHandler consumes a one-way notification. Errors are logged,
// never surfaced to the peer.
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// Direction distinguishes locally originated traffic from peer-originated
// traffic in hooks.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Hook observes session activity; implementations must be safe for
// concurrent use. The finish function returned by OnRequest receives the
// outcome status once the request completes.
type Hook interface {
	OnRequest(ctx context.Context, direction Direction, method string) (context.Context, func(status string))
	OnNotification(ctx context.Context, direction Direction, method string)
}

// Session states.
const (
	stateCreated int32 = iota
	stateRunning
	stateClosing
	stateClosed
)

type pendingRequest struct {
	method string
	ch     chan *protocol.Response
}

// Session is a JSON-RPC peer bound to a Transport. It owns the transport
// exclusively for the transport's lifetime.
type Session struct {
	transport transport.Transport
	logger    logging.Logger
	timeout   time.Duration
	hooks     []Hook

	prefix  string
	counter atomic.Int64

	mu                   sync.Mutex
	pending              map[string]*pendingRequest
	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string]NotificationHandler

	state   atomic.Int32
	baseCtx context.Context
	cancel  context.CancelFunc

	workers   *semaphore.Weighted
	handlerWG sync.WaitGroup
	notifs    chan *protocol.Notification
}

// Option configures a Session.
type Option func(*Session)

// WithRequestTimeout sets the per-request deadline for SendRequest.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger.WithFields(logging.String("component", "Session"))
		}
	}
}

// WithHooks attaches observability hooks.
func WithHooks(hooks ...Hook) Option {
	return func(s *Session) {
		s.hooks = append(s.hooks, hooks...)
	}
}

// WithWorkerLimit bounds the number of concurrently running inbound
// request handlers.
func WithWorkerLimit(n int64) Option {
	return func(s *Session) {
		if n > 0 {
			s.workers = semaphore.NewWeighted(n)
		}
	}
}

// New creates a session around the given transport. Handlers must be
// registered before Start; no inbound message is observed before the
// routing tables are populated.
func New(t transport.Transport, options ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		transport:            t,
		logger:               logging.Default().WithFields(logging.String("component", "Session")),
		timeout:              DefaultRequestTimeout,
		prefix:               uuid.NewString(),
		pending:              make(map[string]*pendingRequest),
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string]NotificationHandler),
		baseCtx:              ctx,
		cancel:               cancel,
		workers:              semaphore.NewWeighted(defaultWorkerLimit),
		notifs:               make(chan *protocol.Notification, notificationQueueSize),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// ID returns the session-local request ID prefix.
func (s *Session) ID() string {
	return s.prefix
}

// RegisterRequestHandler routes inbound requests for method to handler.
func (s *Session) RegisterRequestHandler(method string, handler RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestHandlers[method] = handler
}

// RegisterNotificationHandler routes inbound notifications for method to
// handler.
func (s *Session) RegisterNotificationHandler(method string, handler NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationHandlers[method] = handler
}

// Start installs the inbound dispatcher as the transport handler and
// connects the transport. The dispatcher is in place before the transport
// reports readiness.
func (s *Session) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(stateCreated, stateRunning) {
		return mcperrors.SessionNotRunning("start").WithDetail("session already started")
	}

	go s.runNotificationLoop()

	if err := s.transport.Connect(ctx, s.dispatch); err != nil {
		s.state.Store(stateClosed)
		s.cancel()
		return err
	}

	// A transport whose read path terminates takes the session down with it.
	if notifier, ok := s.transport.(interface{ Done() <-chan struct{} }); ok {
		go func() {
			select {
			case <-notifier.Done():
				if s.state.Load() == stateRunning {
					s.logger.Warn("transport terminated, closing session")
					_ = s.Close()
				}
			case <-s.baseCtx.Done():
			}
		}()
	}
	return nil
}

// SendRequest sends a request and blocks until its response, the
// per-request timeout, cancellation, or session close. A non-nil result is
// decoded from the response's result member.
func (s *Session) SendRequest(ctx context.Context, method string, params, result interface{}) error {
	if s.state.Load() != stateRunning {
		return mcperrors.SessionNotRunning("send_request")
	}

	id := fmt.Sprintf("%s-%d", s.prefix, s.counter.Add(1)-1)
	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return mcperrors.Wrap(err, mcperrors.CodeInternalError, "failed to build request", mcperrors.CategoryInternal)
	}

	pr := &pendingRequest{method: method, ch: make(chan *protocol.Response, 1)}
	s.mu.Lock()
	s.pending[id] = pr
	s.mu.Unlock()

	hookCtx, finish := s.startRequestHooks(ctx, DirectionOutbound, method)

	if err := s.transport.SendMessage(hookCtx, req); err != nil {
		s.removePending(id)
		finish("send_error")
		return err
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case resp := <-pr.ch:
		if resp.Error != nil {
			finish("error")
			return mcperrors.PeerError(resp.Error.Code, resp.Error.Message, resp.Error.Data)
		}
		if result != nil {
			if err := transport.Unmarshal(resp.Result, result); err != nil {
				finish("decode_error")
				return mcperrors.Wrap(err, mcperrors.CodeInternalError, "failed to decode result", mcperrors.CategoryProtocol)
			}
		}
		finish("ok")
		return nil
	case <-timer.C:
		s.removePending(id)
		finish("timeout")
		return mcperrors.RequestTimeout(method, id, s.timeout)
	case <-hookCtx.Done():
		s.removePending(id)
		finish("cancelled")
		return mcperrors.RequestCancelled(method, hookCtx.Err())
	case <-s.baseCtx.Done():
		s.removePending(id)
		finish("session_closed")
		return mcperrors.SessionClosed()
	}
}

// SendNotification sends a one-way notification; no response is correlated.
func (s *Session) SendNotification(ctx context.Context, method string, params interface{}) error {
	if s.state.Load() != stateRunning {
		return mcperrors.SessionNotRunning("send_notification")
	}

	notif, err := protocol.NewNotification(method, params)
	if err != nil {
		return mcperrors.Wrap(err, mcperrors.CodeInternalError, "failed to build notification", mcperrors.CategoryInternal)
	}
	for _, hook := range s.hooks {
		hook.OnNotification(ctx, DirectionOutbound, method)
	}
	return s.transport.SendMessage(ctx, notif)
}

// PendingCount reports the number of outstanding outbound requests.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// CloseGracefully stops accepting traffic, waits for in-flight inbound
// handlers bounded by ctx, flushes the transport and completes every
// pending request with a session-closed error.
func (s *Session) CloseGracefully(ctx context.Context) error {
	if s.state.CompareAndSwap(stateCreated, stateClosed) {
		s.cancel()
		return nil
	}
	if !s.state.CompareAndSwap(stateRunning, stateClosing) {
		return nil
	}

	handlersDone := make(chan struct{})
	go func() {
		s.handlerWG.Wait()
		close(handlersDone)
	}()
	select {
	case <-handlersDone:
	case <-ctx.Done():
		s.logger.Warn("closing with inbound handlers still in flight")
	}

	err := s.transport.CloseGracefully(ctx)
	s.finishClose()
	return err
}

// Close forces the session down: pending requests complete with a
// session-closed error and the transport is torn down.
func (s *Session) Close() error {
	prev := s.state.Swap(stateClosed)
	if prev == stateClosed {
		return nil
	}
	err := s.transport.Close()
	s.finishClose()
	return err
}

func (s *Session) finishClose() {
	s.state.Store(stateClosed)
	s.cancel()
	s.mu.Lock()
	s.pending = make(map[string]*pendingRequest)
	s.mu.Unlock()
}

func (s *Session) removePending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// dispatch is the transport's inbound handler. It runs on the transport's
// read path: request and notification handlers are moved off it.
func (s *Session) dispatch(ctx context.Context, msg protocol.Message) {
	if s.state.Load() != stateRunning {
		s.logger.Warn("dropping message received while not running")
		return
	}

	switch m := msg.(type) {
	case *protocol.Response:
		s.dispatchResponse(m)
	case *protocol.Request:
		s.dispatchRequest(m)
	case *protocol.Notification:
		s.dispatchNotification(m)
	default:
		s.logger.Warn("dropping message of unknown shape")
	}
}

func (s *Session) dispatchResponse(resp *protocol.Response) {
	id := fmt.Sprintf("%v", resp.ID)
	s.mu.Lock()
	pr, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if !ok {
		// Late responses after a timeout land here as well.
		s.logger.Warn("dropping response with no pending request", logging.String("id", id))
		return
	}
	pr.ch <- resp
}

func (s *Session) dispatchRequest(req *protocol.Request) {
	s.handlerWG.Add(1)
	if err := s.workers.Acquire(s.baseCtx, 1); err != nil {
		s.handlerWG.Done()
		return
	}
	go func() {
		defer s.workers.Release(1)
		defer s.handlerWG.Done()
		s.handleRequest(req)
	}()
}

func (s *Session) dispatchNotification(notif *protocol.Notification) {
	select {
	case s.notifs <- notif:
	case <-s.baseCtx.Done():
	}
}

// runNotificationLoop invokes notification handlers one at a time in
// receive order, concurrently with request handlers.
func (s *Session) runNotificationLoop() {
	for {
		select {
		case notif := <-s.notifs:
			s.handleNotification(notif)
		case <-s.baseCtx.Done():
			return
		}
	}
}

// handleRequest invokes the registered handler at most once and sends back
// exactly one response carrying the request's id.
func (s *Session) handleRequest(req *protocol.Request) {
	hookCtx, finish := s.startRequestHooks(s.baseCtx, DirectionInbound, req.Method)

	s.mu.Lock()
	handler, ok := s.requestHandlers[req.Method]
	s.mu.Unlock()

	var resp *protocol.Response
	if !ok {
		resp = protocol.NewErrorResponse(req.ID, protocol.MethodNotFound,
			fmt.Sprintf("Method not found: %s", req.Method), nil)
		finish("method_not_found")
	} else {
		result, err := s.invokeRequestHandler(hookCtx, handler, req)
		if err != nil {
			resp = errorResponseFor(req.ID, err)
			finish("handler_error")
		} else {
			var buildErr error
			resp, buildErr = protocol.NewResponse(req.ID, result)
			if buildErr != nil {
				resp = protocol.NewErrorResponse(req.ID, protocol.InternalError, buildErr.Error(), nil)
			}
			finish("ok")
		}
	}

	// Best effort: the transport may already be closed.
	if err := s.transport.SendMessage(s.baseCtx, resp); err != nil {
		s.logger.Warn("failed to send response",
			logging.String("method", req.Method), logging.Err(err))
	}
}

func (s *Session) invokeRequestHandler(ctx context.Context, handler RequestHandler, req *protocol.Request) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = mcperrors.Newf(mcperrors.CodeInternalError, mcperrors.CategoryInternal,
				"handler panic processing %s: %v", req.Method, r)
		}
	}()
	return handler(ctx, req.Params)
}

// handleNotification invokes the registered handler; failures are logged
// and never cause outbound messages.
func (s *Session) handleNotification(notif *protocol.Notification) {
	s.mu.Lock()
	handler, ok := s.notificationHandlers[notif.Method]
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("dropping notification with no handler", logging.String("method", notif.Method))
		return
	}

	for _, hook := range s.hooks {
		hook.OnNotification(s.baseCtx, DirectionInbound, notif.Method)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notification handler panic",
				logging.String("method", notif.Method), logging.Any("panic", r))
		}
	}()
	if err := handler(s.baseCtx, notif.Params); err != nil {
		s.logger.Warn("notification handler failed",
			logging.String("method", notif.Method), logging.Err(err))
	}
}

func (s *Session) startRequestHooks(ctx context.Context, direction Direction, method string) (context.Context, func(string)) {
	if len(s.hooks) == 0 {
		return ctx, func(string) {}
	}
	finishers := make([]func(string), 0, len(s.hooks))
	for _, hook := range s.hooks {
		var finish func(string)
		ctx, finish = hook.OnRequest(ctx, direction, method)
		finishers = append(finishers, finish)
	}
	return ctx, func(status string) {
		for i := len(finishers) - 1; i >= 0; i-- {
			finishers[i](status)
		}
	}
}

// errorResponseFor maps a handler error onto a JSON-RPC error response,
// preserving structured codes when the handler returned an MCPError.
func errorResponseFor(id interface{}, err error) *protocol.Response {
	if mcpErr, ok := mcperrors.As(err); ok {
		return protocol.NewErrorResponse(id, mcpErr.Code(), mcpErr.Error(), mcpErr.Data())
	}
	return protocol.NewErrorResponse(id, protocol.InternalError, err.Error(), nil)
}
