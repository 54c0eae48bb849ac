package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Ananth-NQI/menubot-backend/internal/models"
	"github.com/Ananth-NQI/menubot-backend/internal/storage"
)

// Audit action tags.
const (
	ActionMenuInsert          = "menus.insert"
	ActionMenuUpdatePrice     = "menus.update.price"
	ActionMenuUpdateAvailable = "menus.update.available"
	ActionMenuSearch          = "menus.search"
	ActionAddItemStart        = "dialog.addItem.start"
	ActionAddItemName         = "dialog.addItem.name"
	ActionAddItemPrice        = "dialog.addItem.price"
	ActionAddItemAvailable    = "dialog.addItem.available"
	ActionAddItemConfirm      = "dialog.addItem.confirm"
	ActionAddItemCancel       = "dialog.addItem.cancel"
	ActionHelp                = "help"
)

// DefaultSessionTTL is how long an idle dialogue stays current.
const DefaultSessionTTL = 20 * time.Minute

// DialogEngine drives the add-item dialogue and the one-shot commands.
type DialogEngine struct {
	sessions    storage.SessionStore
	audit       storage.AuditLog
	catalog     storage.CatalogStore
	log         *slog.Logger
	sessionTTL  time.Duration
	searchLimit int
	now         func() time.Time
}

// EngineOption customizes a DialogEngine.
type EngineOption func(*DialogEngine)

// WithSessionTTL sets how long a dialogue survives without a new message.
func WithSessionTTL(ttl time.Duration) EngineOption {
	return func(e *DialogEngine) { e.sessionTTL = ttl }
}

// WithSearchLimit sets the maximum number of search results.
func WithSearchLimit(n int) EngineOption {
	return func(e *DialogEngine) { e.searchLimit = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *DialogEngine) { e.now = now }
}

// NewDialogEngine creates a new dialog engine
func NewDialogEngine(
	log *slog.Logger,
	sessions storage.SessionStore,
	audit storage.AuditLog,
	catalog storage.CatalogStore,
	opts ...EngineOption,
) *DialogEngine {
	e := &DialogEngine{
		sessions:    sessions,
		audit:       audit,
		catalog:     catalog,
		log:         log,
		sessionTTL:  DefaultSessionTTL,
		searchLimit: DefaultSearchLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// turn is the outcome of one inbound message.
type turn struct {
	reply   string
	action  string
	success bool
	detail  map[string]any
	// next is the session to persist; nil leaves the stored session untouched.
	next *models.DialogSession
}

// Handle processes one message and returns the reply. An active session takes
// priority over the one-shot grammars. Store failures are returned as errors;
// catalog mutation failures become replies.
func (e *DialogEngine) Handle(ctx context.Context, msg InboundMessage) (string, error) {
	text := strings.TrimSpace(msg.Text)
	now := e.now()

	sess, err := e.sessions.GetSession(ctx, msg.TenantID, msg.Sender)
	switch {
	case errors.Is(err, models.ErrNotFound):
		sess = nil
	case err != nil:
		return "", fmt.Errorf("load dialog session: %w", err)
	}

	gw := NewCatalogGateway(e.catalog, msg.TenantID, e.searchLimit)

	var t turn
	if sess.Active(now) {
		t, err = e.continueAddItem(ctx, gw, msg, sess, text, now)
	} else {
		t, err = e.dispatch(ctx, gw, msg, sess, text, now)
	}
	if err != nil {
		return "", err
	}

	rec := &models.AuditRecord{
		TenantID:   msg.TenantID,
		Sender:     msg.Sender,
		InputType:  msg.InputType,
		InputText:  msg.Text,
		Action:     t.action,
		Success:    t.success,
		Detail:     t.detail,
		RawPayload: msg.RawPayload,
		CreatedAt:  now,
	}
	if msg.MessageID != "" {
		id := msg.MessageID
		rec.MessageID = &id
	}

	// The audit record goes first for every turn. Once it exists a redelivery
	// of the same message id is short-circuited, so a session save that fails
	// afterwards can only drop the step, never replay it against an advanced
	// session.
	if err := e.appendAudit(ctx, rec); err != nil {
		return "", err
	}
	if err := e.saveSession(ctx, t.next); err != nil {
		return "", err
	}

	e.log.Info("message processed",
		slog.String("tenant_id", msg.TenantID),
		slog.String("sender", msg.Sender),
		slog.String("message_id", msg.MessageID),
		slog.String("action", t.action),
		slog.Bool("success", t.success),
	)
	return t.reply, nil
}

func (e *DialogEngine) saveSession(ctx context.Context, s *models.DialogSession) error {
	if s == nil {
		return nil
	}
	if err := e.sessions.SaveSession(ctx, s); err != nil {
		return fmt.Errorf("save dialog session: %w", err)
	}
	return nil
}

func (e *DialogEngine) appendAudit(ctx context.Context, rec *models.AuditRecord) error {
	if err := e.audit.AppendAudit(ctx, rec); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// dispatch handles a message from a sender with no active dialogue. stale is
// the sender's idle or expired session, if any; a new dialogue reuses it so
// the version check still applies.
func (e *DialogEngine) dispatch(ctx context.Context, gw *CatalogGateway, msg InboundMessage, stale *models.DialogSession, text string, now time.Time) (turn, error) {
	switch cmd := ParseCommand(text).(type) {
	case AddItemCommand:
		form := models.FormData{Name: cmd.Name, Price: cmd.Price, Available: cmd.Available}
		t := e.advance(msg, stale, form, now)
		t.action = ActionAddItemStart
		t.detail = formDetail(form)
		return t, nil

	case EditPriceCommand:
		detail := map[string]any{"query": cmd.NameQuery, "price": cmd.Price.String()}
		items, err := gw.UpdatePriceByNameContains(ctx, cmd.NameQuery, cmd.Price)
		if err != nil {
			if isContextErr(err) {
				return turn{}, err
			}
			e.log.Warn("price update failed", slog.String("tenant_id", msg.TenantID), slog.Any("error", err))
			detail["error"] = err.Error()
			return turn{reply: replyUpdateFailed(err), action: ActionMenuUpdatePrice, detail: detail}, nil
		}
		detail["affected"] = len(items)
		detail["ids"] = itemIDs(items)
		reply := replyNoMatches(cmd.NameQuery)
		if len(items) > 0 {
			reply = replyPriceUpdated(items, cmd.Price)
		}
		return turn{reply: reply, action: ActionMenuUpdatePrice, success: true, detail: detail}, nil

	case ToggleAvailabilityCommand:
		detail := map[string]any{"query": cmd.NameQuery, "available": cmd.Enable}
		items, err := gw.SetAvailabilityByNameContains(ctx, cmd.NameQuery, cmd.Enable)
		if err != nil {
			if isContextErr(err) {
				return turn{}, err
			}
			e.log.Warn("availability update failed", slog.String("tenant_id", msg.TenantID), slog.Any("error", err))
			detail["error"] = err.Error()
			return turn{reply: replyUpdateFailed(err), action: ActionMenuUpdateAvailable, detail: detail}, nil
		}
		detail["affected"] = len(items)
		detail["ids"] = itemIDs(items)
		reply := replyNoMatches(cmd.NameQuery)
		if len(items) > 0 {
			reply = replyAvailabilityUpdated(items, cmd.Enable)
		}
		return turn{reply: reply, action: ActionMenuUpdateAvailable, success: true, detail: detail}, nil

	case SearchCommand:
		detail := map[string]any{"query": cmd.Query}
		items, err := gw.SearchByNameContains(ctx, cmd.Query)
		if err != nil {
			if isContextErr(err) {
				return turn{}, err
			}
			detail["error"] = err.Error()
			return turn{reply: replySearchFailed(err), action: ActionMenuSearch, detail: detail}, nil
		}
		detail["results"] = len(items)
		reply := replyNoResults(cmd.Query)
		if len(items) > 0 {
			reply = replySearchResults(items)
		}
		return turn{reply: reply, action: ActionMenuSearch, success: true, detail: detail}, nil

	default:
		return turn{reply: ReplyHelp, action: ActionHelp, success: true}, nil
	}
}

// continueAddItem applies one message to an in-progress add-item dialogue.
// Invalid answers keep the current state and the fields already collected.
func (e *DialogEngine) continueAddItem(ctx context.Context, gw *CatalogGateway, msg InboundMessage, sess *models.DialogSession, text string, now time.Time) (turn, error) {
	if isAbort(text) || (sess.State == models.StateAddItemConfirm && isCancel(text)) {
		return turn{
			reply:   ReplyCancelled,
			action:  ActionAddItemCancel,
			success: true,
			detail:  formDetail(sess.Form),
			next:    e.transition(msg, sess, models.StateIdle, models.FormData{}, now),
		}, nil
	}

	form := sess.Form
	switch sess.State {
	case models.StateAddItemWaitName:
		if text == "" {
			return e.reprompt(msg, sess, ActionAddItemName, ReplyEmptyName, "empty name", now), nil
		}
		name := text
		form.Name = &name
		t := e.advance(msg, sess, form, now)
		t.action = ActionAddItemName
		t.detail = map[string]any{"name": name}
		return t, nil

	case models.StateAddItemWaitPrice:
		price, ok := ParsePrice(text)
		if !ok {
			return e.reprompt(msg, sess, ActionAddItemPrice, ReplyInvalidPrice, "invalid price", now), nil
		}
		form.Price = &price
		t := e.advance(msg, sess, form, now)
		t.action = ActionAddItemPrice
		t.detail = map[string]any{"price": price.String()}
		return t, nil

	case models.StateAddItemWaitAvailable:
		available, ok := ParseYesNo(text)
		if !ok {
			return e.reprompt(msg, sess, ActionAddItemAvailable, ReplyInvalidAvailable, "invalid availability", now), nil
		}
		form.Available = &available
		t := e.advance(msg, sess, form, now)
		t.action = ActionAddItemAvailable
		t.detail = map[string]any{"available": available}
		return t, nil

	case models.StateAddItemConfirm:
		if !form.Complete() {
			t := e.advance(msg, sess, form, now)
			t.action = ActionAddItemConfirm
			return t, nil
		}
		if !isConfirm(text) {
			return turn{reply: ReplyConfirmOrCancel, action: ActionAddItemConfirm, detail: map[string]any{"error": "expected confirm or cancel"}}, nil
		}
		return e.completeAddItem(ctx, gw, msg, sess, now)
	}

	// Unknown state: drop it and treat the message as fresh.
	e.log.Warn("unknown dialog state", slog.String("state", string(sess.State)))
	reset := e.transition(msg, sess, models.StateIdle, models.FormData{}, now)
	t, err := e.dispatch(ctx, gw, msg, reset, text, now)
	if err == nil && t.next == nil {
		t.next = reset
	}
	return t, err
}

// completeAddItem inserts the collected item. The session returns to idle
// whether or not the insert succeeds; the sender must start over on failure.
func (e *DialogEngine) completeAddItem(ctx context.Context, gw *CatalogGateway, msg InboundMessage, sess *models.DialogSession, now time.Time) (turn, error) {
	form := sess.Form
	detail := formDetail(form)
	idle := e.transition(msg, sess, models.StateIdle, models.FormData{}, now)

	item, err := gw.AddItem(ctx, *form.Name, *form.Price, *form.Available)
	if err != nil {
		if isContextErr(err) {
			return turn{}, err
		}
		e.log.Warn("menu insert failed", slog.String("tenant_id", msg.TenantID), slog.Any("error", err))
		detail["error"] = err.Error()
		return turn{reply: replyAddFailed(err), action: ActionMenuInsert, detail: detail, next: idle}, nil
	}

	detail["id"] = item.ID
	return turn{reply: ReplyItemAdded, action: ActionMenuInsert, success: true, detail: detail, next: idle}, nil
}

// advance moves the dialogue to the first field still missing, or to the
// confirmation step when the form is complete.
func (e *DialogEngine) advance(msg InboundMessage, sess *models.DialogSession, form models.FormData, now time.Time) turn {
	var (
		state models.DialogState
		reply string
	)
	switch {
	case form.Name == nil:
		state, reply = models.StateAddItemWaitName, ReplyAskName
	case form.Price == nil:
		state, reply = models.StateAddItemWaitPrice, replyAskPrice(*form.Name)
	case form.Available == nil:
		state, reply = models.StateAddItemWaitAvailable, replyAskAvailable(*form.Name)
	default:
		state, reply = models.StateAddItemConfirm, replySummary(form)
	}
	return turn{
		reply:   reply,
		success: true,
		next:    e.transition(msg, sess, state, form, now),
	}
}

// reprompt keeps the state and refreshes the expiry.
func (e *DialogEngine) reprompt(msg InboundMessage, sess *models.DialogSession, action, reply, reason string, now time.Time) turn {
	return turn{
		reply:  reply,
		action: action,
		detail: map[string]any{"error": reason},
		next:   e.transition(msg, sess, sess.State, sess.Form, now),
	}
}

// transition builds the next session record from base, keeping its ID and
// version for the compare-and-swap write.
func (e *DialogEngine) transition(msg InboundMessage, base *models.DialogSession, state models.DialogState, form models.FormData, now time.Time) *models.DialogSession {
	next := &models.DialogSession{TenantID: msg.TenantID, Sender: msg.Sender}
	if base != nil {
		copied := *base
		next = &copied
	}
	next.State = state
	next.Form = form
	next.ExpiresAt = now.Add(e.sessionTTL)
	return next
}

func formDetail(form models.FormData) map[string]any {
	detail := make(map[string]any)
	if form.Name != nil {
		detail["name"] = *form.Name
	}
	if form.Price != nil {
		detail["price"] = form.Price.String()
	}
	if form.Available != nil {
		detail["available"] = *form.Available
	}
	return detail
}

func itemIDs(items []models.MenuItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
