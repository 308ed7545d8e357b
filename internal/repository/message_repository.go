package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/taakra/engine/internal/models"
	appErr "github.com/taakra/engine/pkg/errors"
	"gorm.io/gorm"
)

// RoomSummary is one row of the support inbox.
type RoomSummary struct {
	RoomID        string          `gorm:"column:room_id" json:"roomId"`
	LastMessage   string          `gorm:"column:last_message" json:"lastMessage"`
	LastMessageAt time.Time       `gorm:"column:last_message_at" json:"lastMessageAt"`
	SenderID      uuid.UUID       `gorm:"column:sender_id" json:"-"`
	UnreadCount   int64           `gorm:"column:unread_count" json:"unreadCount"`
	Sender        *models.Profile `gorm:"-" json:"sender,omitempty"`
}

type MessageRepository interface {
	BaseRepository[models.Message]
	GetWithParticipants(ctx context.Context, id uuid.UUID, dest *models.Message) error
	ListByRoom(ctx context.Context, room string, page, limit int) ([]models.Message, int64, error)
	MarkRoomRead(ctx context.Context, room string, readerID uuid.UUID) (int64, error)
	Rooms(ctx context.Context) ([]RoomSummary, error)
}

type messageRepository struct {
	BaseRepository[models.Message]
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{BaseRepository: NewBaseRepository[models.Message](db, "Message not found"), db: db}
}

func (r *messageRepository) GetWithParticipants(ctx context.Context, id uuid.UUID, dest *models.Message) error {
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		First(dest, "id = ?", id).Error
	if err != nil {
		return translate(err, "Message not found", "get message")
	}
	return nil
}

// ListByRoom returns one page counted from the newest message, ordered oldest first.
func (r *messageRepository) ListByRoom(ctx context.Context, room string, page, limit int) ([]models.Message, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).Where("chat_room = ?", room).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "Message not found", "count messages")
	}

	var out []models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Where("chat_room = ?", room).
		Order("created_at DESC").
		Offset(paginate(page, limit)).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, translate(err, "Message not found", "list messages")
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, total, nil
}

// MarkRoomRead flips unread messages from other senders. Repeating it affects nothing.
func (r *messageRepository) MarkRoomRead(ctx context.Context, room string, readerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("chat_room = ? AND sender_id <> ? AND is_read = ?", room, readerID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, translate(res.Error, "Message not found", "mark room read")
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) Rooms(ctx context.Context) ([]RoomSummary, error) {
	latest := sq.Select("chat_room", "content", "sender_id", "created_at").
		Options("DISTINCT ON (chat_room)").
		From("messages").
		OrderBy("chat_room", "created_at DESC")
	unread := sq.Select("chat_room", "COUNT(*) FILTER (WHERE NOT is_read) AS unread_count").
		From("messages").
		GroupBy("chat_room")

	query, args, err := sq.Select(
		"l.chat_room AS room_id",
		"l.content AS last_message",
		"l.created_at AS last_message_at",
		"l.sender_id",
		"u.unread_count",
	).
		FromSelect(latest, "l").
		JoinClause(unread.Prefix("JOIN (").Suffix(") u ON u.chat_room = l.chat_room")).
		OrderBy("l.created_at DESC").
		ToSql()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "build rooms query failed")
	}

	var rooms []RoomSummary
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rooms).Error; err != nil {
		return nil, translate(err, "Message not found", "list rooms")
	}
	if len(rooms) == 0 {
		return rooms, nil
	}

	ids := make([]uuid.UUID, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.SenderID)
	}
	var senders []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&senders).Error; err != nil {
		return nil, translate(err, "User not found", "load room senders")
	}
	byID := make(map[uuid.UUID]*models.User, len(senders))
	for i := range senders {
		byID[senders[i].ID] = &senders[i]
	}
	for i := range rooms {
		rooms[i].Sender = byID[rooms[i].SenderID].Profile()
	}
	return rooms, nil
}
