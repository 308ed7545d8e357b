package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/pkg/database"
	appErr "github.com/taakra/engine/pkg/errors"
)

var (
	dbOnce    sync.Once
	sharedDB  *gorm.DB
	dbErr     error
	container *tcpostgres.PostgresContainer
)

func TestMain(m *testing.M) {
	code := m.Run()
	if container != nil {
		_ = container.Terminate(context.Background())
	}
	os.Exit(code)
}

// testDB starts one Postgres container for the package and truncates it per test.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	dbOnce.Do(func() {
		ctx := context.Background()
		container, dbErr = tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("taakra"),
			tcpostgres.WithUsername("taakra"),
			tcpostgres.WithPassword("taakra"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(90*time.Second),
			),
		)
		if dbErr != nil {
			return
		}
		var dsn string
		dsn, dbErr = container.ConnectionString(ctx, "sslmode=disable")
		if dbErr != nil {
			return
		}
		sharedDB, dbErr = database.OpenPostgres(ctx, dsn, database.Options{MaxOpenConns: 30})
		if dbErr != nil {
			return
		}
		dbErr = AutoMigrate(ctx, sharedDB)
	})
	require.NoError(t, dbErr)

	require.NoError(t, sharedDB.Exec(`TRUNCATE users, categories, competitions, competition_participants, user_competitions, messages`).Error)
	return sharedDB
}

func seedUser(t *testing.T, repo UserRepository, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]), Role: models.RoleUser}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func seedCompetition(t *testing.T, db *gorm.DB, max *int, deadline time.Time) *models.Competition {
	t.Helper()
	ctx := context.Background()
	cat := &models.Category{Name: "cat-" + uuid.NewString()[:8]}
	require.NoError(t, NewCategoryRepository(db).Create(ctx, cat))

	start := deadline.Add(24 * time.Hour)
	c := &models.Competition{
		Title:                "Hackathon",
		Description:          "Build things",
		CategoryID:           cat.ID,
		Rules:                "Be nice",
		StartDate:            start,
		EndDate:              start.Add(48 * time.Hour),
		RegistrationDeadline: deadline,
		MaxParticipants:      max,
		IsActive:             true,
	}
	require.NoError(t, NewCompetitionRepository(db).Create(ctx, c))
	return c
}

func intPtr(v int) *int { return &v }

func TestUserEmailUnique(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Name: "Ada", Email: "ada@example.com", Role: models.RoleUser}))
	err := repo.Create(ctx, &models.User{Name: "Ada 2", Email: "ada@example.com", Role: models.RoleUser})
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))

	var got models.User
	require.NoError(t, repo.GetByEmail(ctx, "ada@example.com", &got))
	assert.Equal(t, "Ada", got.Name)

	err = repo.GetByEmail(ctx, "nobody@example.com", &got)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestUserListFilters(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Name: "Grace Hopper", Email: "grace@example.com", Role: models.RoleAdmin}))
	require.NoError(t, repo.Create(ctx, &models.User{Name: "Alan", Email: "alan@example.com", Role: models.RoleUser}))
	require.NoError(t, repo.Create(ctx, &models.User{Name: "Linus", Email: "linus_100%@example.com", Role: models.RoleSupport}))

	admins, err := repo.List(ctx, UserFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "Grace Hopper", admins[0].Name)

	found, err := repo.List(ctx, UserFilter{Search: "HOPPER"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = repo.List(ctx, UserFilter{Search: "100%"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Linus", found[0].Name)

	all, err := repo.List(ctx, UserFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRegisterKeepsCountConsistent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	repo := NewCompetitionRepository(db)
	now := time.Now()

	c := seedCompetition(t, db, intPtr(2), now.Add(time.Hour))
	u1, u2, u3 := seedUser(t, users, "u1"), seedUser(t, users, "u2"), seedUser(t, users, "u3")

	p, err := repo.Register(ctx, c.ID, u1.ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, p.Status)

	_, err = repo.Register(ctx, c.ID, u1.ID, now)
	assert.ErrorIs(t, err, models.ErrAlreadyRegistered)

	_, err = repo.Register(ctx, c.ID, u2.ID, now)
	require.NoError(t, err)

	_, err = repo.Register(ctx, c.ID, u3.ID, now)
	assert.ErrorIs(t, err, models.ErrCompetitionFull)

	var got models.Competition
	require.NoError(t, repo.GetByID(ctx, c.ID, &got))
	parts, err := repo.Participants(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RegistrationCount)
	assert.Len(t, parts, got.RegistrationCount)

	var withList models.User
	require.NoError(t, users.GetWithCompetitions(ctx, u1.ID, &withList))
	require.Len(t, withList.RegisteredCompetitions, 1)
	assert.Equal(t, c.ID, withList.RegisteredCompetitions[0].ID)
}

func TestUpdateKeepsCountersFromConcurrentWrites(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCompetitionRepository(db)
	now := time.Now()

	c := seedCompetition(t, db, nil, now.Add(time.Hour))
	u := seedUser(t, NewUserRepository(db), "u1")

	var stale models.Competition
	require.NoError(t, repo.GetByID(ctx, c.ID, &stale))

	// a registration and a view land after the admin read the row
	_, err := repo.Register(ctx, c.ID, u.ID, now)
	require.NoError(t, err)
	require.NoError(t, repo.IncrementViews(ctx, c.ID))

	stale.Title = "Hackathon 2"
	stale.IsActive = false
	require.NoError(t, repo.Update(ctx, &stale))

	var got models.Competition
	require.NoError(t, repo.GetByID(ctx, c.ID, &got))
	assert.Equal(t, "Hackathon 2", got.Title)
	assert.False(t, got.IsActive)
	assert.Equal(t, 1, got.RegistrationCount)
	assert.Equal(t, int64(1), got.Views)

	participants, err := repo.Participants(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, participants, got.RegistrationCount)

	missing := models.Competition{ID: uuid.New(), Title: "x"}
	err = repo.Update(ctx, &missing)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestRegisterAfterDeadline(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCompetitionRepository(db)
	now := time.Now()

	c := seedCompetition(t, db, nil, now.Add(-time.Minute))
	u := seedUser(t, NewUserRepository(db), "late")

	_, err := repo.Register(ctx, c.ID, u.ID, now)
	assert.ErrorIs(t, err, models.ErrDeadlinePassed)

	_, err = repo.Register(ctx, uuid.New(), u.ID, now)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestRegisterConcurrentNeverOverfills(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	repo := NewCompetitionRepository(db)
	now := time.Now()

	c := seedCompetition(t, db, intPtr(5), now.Add(time.Hour))
	var ids []uuid.UUID
	for i := 0; i < 20; i++ {
		ids = append(ids, seedUser(t, users, fmt.Sprintf("racer%d", i)).ID)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for _, id := range ids {
		wg.Add(1)
		go func(uid uuid.UUID) {
			defer wg.Done()
			if _, err := repo.Register(ctx, c.ID, uid, now); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	var got models.Competition
	require.NoError(t, repo.GetByID(ctx, c.ID, &got))
	assert.Equal(t, 5, ok)
	assert.Equal(t, 5, got.RegistrationCount)
}

func TestUpdateParticipantStatus(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCompetitionRepository(db)
	now := time.Now()

	c := seedCompetition(t, db, nil, now.Add(time.Hour))
	u := seedUser(t, NewUserRepository(db), "p")
	_, err := repo.Register(ctx, c.ID, u.ID, now)
	require.NoError(t, err)

	p, err := repo.UpdateParticipantStatus(ctx, c.ID, u.ID, models.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, p.Status)
	require.NotNil(t, p.User)

	// Rejected registrations may be confirmed again.
	p, err = repo.UpdateParticipantStatus(ctx, c.ID, u.ID, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, p.Status)

	_, err = repo.UpdateParticipantStatus(ctx, c.ID, uuid.New(), models.StatusConfirmed)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	ae, _ := appErr.As(err)
	assert.Equal(t, "Participant not found", ae.Message)

	mine, err := repo.ListByParticipant(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Competition)
	assert.NotNil(t, mine[0].Competition.Category)
}

func TestCompetitionListSortAndFilter(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCompetitionRepository(db)
	now := time.Now()

	a := seedCompetition(t, db, nil, now.Add(time.Hour))
	b := seedCompetition(t, db, nil, now.Add(2*time.Hour))
	b.Title = "Robotics Cup"
	b.Description = "Robots"
	require.NoError(t, repo.Update(ctx, b))
	require.NoError(t, repo.IncrementViews(ctx, a.ID))
	require.NoError(t, repo.IncrementViews(ctx, a.ID))

	page, total, err := repo.List(ctx, CompetitionFilter{ActiveOnly: true, Sort: SortTrending, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 2)
	assert.Equal(t, a.ID, page[0].ID)
	assert.NotNil(t, page[0].Category)

	page, total, err = repo.List(ctx, CompetitionFilter{ActiveOnly: true, Search: "robot", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, b.ID, page[0].ID)

	from := b.StartDate.Add(-time.Minute)
	page, _, err = repo.List(ctx, CompetitionFilter{StartFrom: &from, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, b.ID, page[0].ID)

	page, total, err = repo.List(ctx, CompetitionFilter{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, page, 1)
}

func TestDeactivateEnded(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCompetitionRepository(db)
	now := time.Now()

	ended := seedCompetition(t, db, nil, now.Add(-96*time.Hour))
	live := seedCompetition(t, db, nil, now.Add(time.Hour))

	n, err := repo.DeactivateEnded(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var got models.Competition
	require.NoError(t, repo.GetByID(ctx, ended.ID, &got))
	assert.False(t, got.IsActive)
	require.NoError(t, repo.GetByID(ctx, live.ID, &got))
	assert.True(t, got.IsActive)

	n, err = repo.DeactivateEnded(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkRoomReadIsIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	repo := NewMessageRepository(db)

	alice, bob := seedUser(t, users, "alice"), seedUser(t, users, "bob")
	for i, sender := range []uuid.UUID{alice.ID, bob.ID, bob.ID} {
		require.NoError(t, repo.Create(ctx, &models.Message{SenderID: sender, ChatRoom: "support_1", Content: fmt.Sprintf("m%d", i)}))
	}

	n, err := repo.MarkRoomRead(ctx, "support_1", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.MarkRoomRead(ctx, "support_1", alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	msgs, total, err := repo.ListByRoom(ctx, "support_1", 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, msgs, 3)
	assert.False(t, msgs[0].Read, "alice's own message stays unread")
	assert.True(t, msgs[1].Read)
	assert.Equal(t, "m0", msgs[0].Content)
	assert.Equal(t, "m2", msgs[2].Content)
}

func TestRoomsSummaries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	repo := NewMessageRepository(db)

	alice, bob := seedUser(t, users, "alice"), seedUser(t, users, "bob")
	base := time.Now().Add(-time.Hour)
	msgs := []models.Message{
		{SenderID: alice.ID, ChatRoom: "room_a", Content: "a1", CreatedAt: base},
		{SenderID: bob.ID, ChatRoom: "room_a", Content: "a2", CreatedAt: base.Add(time.Minute)},
		{SenderID: bob.ID, ChatRoom: "room_b", Content: "b1", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range msgs {
		require.NoError(t, repo.Create(ctx, &msgs[i]))
	}
	_, err := repo.MarkRoomRead(ctx, "room_b", alice.ID)
	require.NoError(t, err)

	rooms, err := repo.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	assert.Equal(t, "room_b", rooms[0].RoomID)
	assert.Equal(t, "b1", rooms[0].LastMessage)
	assert.Zero(t, rooms[0].UnreadCount)

	assert.Equal(t, "room_a", rooms[1].RoomID)
	assert.Equal(t, "a2", rooms[1].LastMessage)
	assert.Equal(t, int64(2), rooms[1].UnreadCount)
	require.NotNil(t, rooms[1].Sender)
	assert.Equal(t, "bob", rooms[1].Sender.Name)
}
