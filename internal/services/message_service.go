package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/messagely-be/internal/auth"
	"github.com/isdelr/messagely-be/internal/common"
	"github.com/isdelr/messagely-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Notification actions pushed to connected clients.
const (
	ActionMessageSent = "message.sent"
	ActionMessageRead = "message.read"
)

// Notifier pushes realtime updates to a user's connected clients.
type Notifier interface {
	Notify(username, action string, payload interface{})
}

// MessageServiceProvider defines the interface for message services.
type MessageServiceProvider interface {
	Send(ctx context.Context, from string, in SendInput) (models.Message, error)
	Get(ctx context.Context, id string) (models.MessageDetail, error)
	GetMessage(ctx context.Context, id string) (models.Message, error)
	MarkRead(ctx context.Context, id, caller string) (models.Message, error)
	MessagesTo(ctx context.Context, username string) ([]models.MessageDetail, error)
	MessagesFrom(ctx context.Context, username string) ([]models.MessageDetail, error)
}

// SendInput is the body of a send request.
type SendInput struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

// MessageService owns the message lifecycle: Sent on creation, Read once the
// recipient marks it.
type MessageService struct {
	db       *sql.DB
	events   EventServiceProvider
	notifier Notifier
	now      func() time.Time
}

// NewMessageService creates a new MessageService. notifier may be nil.
func NewMessageService(db *sql.DB, events EventServiceProvider, notifier Notifier) *MessageService {
	return &MessageService{
		db:       db,
		events:   events,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Send validates and stores a new message from the given sender.
func (s *MessageService) Send(ctx context.Context, from string, in SendInput) (models.Message, error) {
	if missing := missingFields([2]string{"to_username", in.ToUsername}, [2]string{"body", in.Body}); len(missing) > 0 {
		return models.Message{}, fmt.Errorf("%w: missing %s", common.ErrInvalidInput, strings.Join(missing, ", "))
	}

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE username = ?", in.ToUsername).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, fmt.Errorf("%w: unknown recipient %s", common.ErrInvalidInput, in.ToUsername)
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("lookup recipient: %w", err)
	}

	msg := models.Message{
		ID:           uuid.New().String(),
		FromUsername: from,
		ToUsername:   in.ToUsername,
		Body:         in.Body,
		SentAt:       s.now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, from_username, to_username, body, sent_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.FromUsername, msg.ToUsername, msg.Body, msg.SentAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}

	s.record(ctx, "message.send", from, fmt.Sprintf("Message %s sent to %s.", msg.ID, msg.ToUsername))
	if s.notifier != nil {
		s.notifier.Notify(msg.ToUsername, ActionMessageSent, msg)
	}
	return msg, nil
}

// Get retrieves a message joined with both parties' directory entries.
func (s *MessageService) Get(ctx context.Context, id string) (models.MessageDetail, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       f.username, f.first_name, f.last_name, f.phone,
		       t.username, t.first_name, t.last_name, t.phone
		FROM messages m
		JOIN users f ON f.username = m.from_username
		JOIN users t ON t.username = m.to_username
		WHERE m.id = ?`, id)

	var d models.MessageDetail
	var readAt sql.NullTime
	var from, to models.UserSummary
	err := row.Scan(&d.ID, &d.Body, &d.SentAt, &readAt,
		&from.Username, &from.FirstName, &from.LastName, &from.Phone,
		&to.Username, &to.FirstName, &to.LastName, &to.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MessageDetail{}, fmt.Errorf("message %s: %w", id, common.ErrNotFound)
		}
		return models.MessageDetail{}, err
	}
	d.SentAt = d.SentAt.UTC()
	d.ReadAt = nullTime(readAt)
	d.FromUser, d.ToUser = &from, &to
	return d, nil
}

// GetMessage retrieves the raw message row.
func (s *MessageService) GetMessage(ctx context.Context, id string) (models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, from_username, to_username, body, sent_at, read_at FROM messages WHERE id = ?", id)

	var m models.Message
	var readAt sql.NullTime
	if err := row.Scan(&m.ID, &m.FromUsername, &m.ToUsername, &m.Body, &m.SentAt, &readAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Message{}, fmt.Errorf("message %s: %w", id, common.ErrNotFound)
		}
		return models.Message{}, err
	}
	m.SentAt = m.SentAt.UTC()
	m.ReadAt = nullTime(readAt)
	return m, nil
}

// MarkRead moves a message to the Read state. Only the recipient may do so.
// Marking an already read message is a no-op returning the stored read_at.
func (s *MessageService) MarkRead(ctx context.Context, id, caller string) (models.Message, error) {
	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		return models.Message{}, err
	}
	if err := auth.RequireRecipient(caller, msg); err != nil {
		return models.Message{}, err
	}
	if msg.IsRead() {
		return msg, nil
	}

	readAt := s.now()
	if readAt.Before(msg.SentAt) {
		readAt = msg.SentAt
	}

	res, err := s.db.ExecContext(ctx, "UPDATE messages SET read_at = ? WHERE id = ? AND read_at IS NULL", readAt, id)
	if err != nil {
		return models.Message{}, fmt.Errorf("mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Message{}, fmt.Errorf("mark read: %w", err)
	}
	if n == 0 {
		// lost the race to a concurrent MarkRead; keep the first timestamp
		return s.GetMessage(ctx, id)
	}

	msg.ReadAt = &readAt
	s.record(ctx, "message.read", caller, fmt.Sprintf("Message %s marked read.", id))
	if s.notifier != nil {
		s.notifier.Notify(msg.FromUsername, ActionMessageRead, map[string]interface{}{
			"id":      msg.ID,
			"read_at": readAt,
		})
	}
	return msg, nil
}

// MessagesTo lists a user's inbox, newest first, with sender details.
func (s *MessageService) MessagesTo(ctx context.Context, username string) ([]models.MessageDetail, error) {
	return s.list(ctx, `
		SELECT m.id, m.body, m.sent_at, m.read_at, u.username, u.first_name, u.last_name, u.phone
		FROM messages m JOIN users u ON u.username = m.from_username
		WHERE m.to_username = ? ORDER BY m.sent_at DESC`, username, true)
}

// MessagesFrom lists a user's outbox, newest first, with recipient details.
func (s *MessageService) MessagesFrom(ctx context.Context, username string) ([]models.MessageDetail, error) {
	return s.list(ctx, `
		SELECT m.id, m.body, m.sent_at, m.read_at, u.username, u.first_name, u.last_name, u.phone
		FROM messages m JOIN users u ON u.username = m.to_username
		WHERE m.from_username = ? ORDER BY m.sent_at DESC`, username, false)
}

func (s *MessageService) list(ctx context.Context, query, username string, inbox bool) ([]models.MessageDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.MessageDetail{}
	for rows.Next() {
		var d models.MessageDetail
		var readAt sql.NullTime
		var other models.UserSummary
		if err := rows.Scan(&d.ID, &d.Body, &d.SentAt, &readAt,
			&other.Username, &other.FirstName, &other.LastName, &other.Phone); err != nil {
			return nil, err
		}
		d.SentAt = d.SentAt.UTC()
		d.ReadAt = nullTime(readAt)
		if inbox {
			d.FromUser = &other
		} else {
			d.ToUser = &other
		}
		messages = append(messages, d)
	}
	return messages, rows.Err()
}

func (s *MessageService) record(ctx context.Context, eventType, username, message string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(ctx, eventType, "info", message, &username); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record audit event")
	}
}
